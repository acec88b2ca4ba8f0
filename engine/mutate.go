package engine

import (
	"context"
	"syscall"

	"github.com/gofuse-contrib/inmemfuse/internal/permkernel"
	"github.com/gofuse-contrib/inmemfuse/protocol"
)

// Rename supports same-parent renames only; cross-directory rename is an
// intentional limitation (ENOSYS), not a missing feature.
func (d *Dispatcher) Rename(ctx context.Context, h protocol.InHeader, parent uint64, name string, newParent uint64, newName string, flags uint32) syscall.Errno {
	if parent != newParent {
		return syscall.ENOSYS
	}
	p := d.item(parent)
	if p == nil || !p.IsDir() {
		return syscall.ENOENT
	}
	child := p.FindChild(name)
	if child == nil {
		return syscall.ENOENT
	}
	if p.FindChild(newName) != nil {
		return syscall.EEXIST
	}

	now := d.clock.Now()
	child.Name = newName
	child.Meta.Ctime = now
	p.Meta.Mtime = now
	p.Meta.Ctime = now
	return 0
}

// stickyBlocks reports whether a non-root caller is blocked from removing child
// from a sticky parent: permitted only if the caller owns the parent or
// the child.
func stickyBlocks(h protocol.InHeader, parentPerm, parentUid, childUid uint32) bool {
	if h.Uid == 0 {
		return false
	}
	if parentPerm&permkernel.ModeSticky == 0 {
		return false
	}
	return h.Uid != parentUid && h.Uid != childUid
}

// Unlink removes a regular file (or any non-directory) entry from parent.
func (d *Dispatcher) Unlink(ctx context.Context, h protocol.InHeader, parent uint64, name string) syscall.Errno {
	p := d.item(parent)
	if p == nil || !p.IsDir() {
		return syscall.ENOENT
	}
	child := p.FindChild(name)
	if child == nil {
		return syscall.ENOENT
	}
	if stickyBlocks(h, p.Meta.Perm, p.Meta.Uid, child.Meta.Uid) {
		return syscall.EACCES
	}

	now := d.clock.Now()
	d.store.Remove(p, child)
	p.Meta.Mtime = now
	p.Meta.Ctime = now
	return 0
}

// Rmdir removes an empty directory entry from parent.
func (d *Dispatcher) Rmdir(ctx context.Context, h protocol.InHeader, parent uint64, name string) syscall.Errno {
	p := d.item(parent)
	if p == nil || !p.IsDir() {
		return syscall.ENOENT
	}
	if !d.checkAccess(p, h.Uid, h.Gid, permkernel.WOK) {
		return syscall.EACCES
	}
	child := p.FindChild(name)
	if child == nil {
		return syscall.ENOENT
	}
	if !child.IsDir() {
		return syscall.EACCES
	}
	if len(child.Children()) > 0 {
		return syscall.ENOTEMPTY
	}
	if stickyBlocks(h, p.Meta.Perm, p.Meta.Uid, child.Meta.Uid) {
		return syscall.EACCES
	}

	now := d.clock.Now()
	d.store.Remove(p, child)
	p.Meta.Mtime = now
	p.Meta.Ctime = now
	return 0
}
