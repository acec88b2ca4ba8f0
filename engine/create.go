package engine

import (
	"context"
	"syscall"

	"github.com/gofuse-contrib/inmemfuse/internal/permkernel"
	"github.com/gofuse-contrib/inmemfuse/internal/vfs"
	"github.com/gofuse-contrib/inmemfuse/protocol"
)

// Lookup requires execute on parent and returns the named child's
// attributes, or ENOENT if the name does not exist.
func (d *Dispatcher) Lookup(ctx context.Context, h protocol.InHeader, parent uint64, name string) (protocol.EntryOut, syscall.Errno) {
	p := d.item(parent)
	if p == nil || !p.IsDir() {
		return protocol.EntryOut{}, syscall.ENOENT
	}
	if !d.checkAccess(p, h.Uid, h.Gid, permkernel.XOK) {
		return protocol.EntryOut{}, syscall.EACCES
	}
	child := p.FindChild(name)
	if child == nil {
		return protocol.EntryOut{}, syscall.ENOENT
	}
	return protocol.EntryOut{Ino: child.Ino, Attr: child.Meta.Attr(child.Ino)}, 0
}

// Mknod supports only regular files and directories, distinguished by the
// type nibble of mode; any other type is ENOSYS.
func (d *Dispatcher) Mknod(ctx context.Context, h protocol.InHeader, parent uint64, name string, mode uint32) (protocol.EntryOut, syscall.Errno) {
	kind, ok := kindFromMode(mode)
	if !ok {
		return protocol.EntryOut{}, syscall.ENOSYS
	}
	child, errno := d.create(h, parent, name, mode, kind)
	if errno != 0 {
		return protocol.EntryOut{}, errno
	}
	return protocol.EntryOut{Ino: child.Ino, Attr: child.Meta.Attr(child.Ino)}, 0
}

// Mkdir creates a directory, inheriting SGID from the parent when set.
func (d *Dispatcher) Mkdir(ctx context.Context, h protocol.InHeader, parent uint64, name string, mode uint32) (protocol.EntryOut, syscall.Errno) {
	child, errno := d.create(h, parent, name, mode, vfs.KindDirectory)
	if errno != 0 {
		return protocol.EntryOut{}, errno
	}
	return protocol.EntryOut{Ino: child.Ino, Attr: child.Meta.Attr(child.Ino)}, 0
}

// Create validates the open-style access mode, then runs the shared
// create routine for a regular file, then allocates a file-handle.
func (d *Dispatcher) Create(ctx context.Context, h protocol.InHeader, parent uint64, name string, flags uint32, mode uint32) (protocol.EntryOut, protocol.OpenOut, syscall.Errno) {
	if _, errno := validateOpenFlags(flags); errno != 0 {
		return protocol.EntryOut{}, protocol.OpenOut{}, errno
	}
	child, errno := d.create(h, parent, name, mode, vfs.KindRegular)
	if errno != 0 {
		return protocol.EntryOut{}, protocol.OpenOut{}, errno
	}
	return protocol.EntryOut{Ino: child.Ino, Attr: child.Meta.Attr(child.Ino)},
		protocol.OpenOut{Fh: d.allocFh(), FuseFlags: d.openFlags()}, 0
}

// create is the shared routine backing mknod, mkdir, and create:
//  1. parent must exist and be a directory;
//  2. name must not already exist under parent;
//  3. parent must be writable by the requester;
//  4. a mode with no permission bits falls back to the mount's configured
//     default (file-perm/dir-perm);
//  5. a non-root requester has SUID/SGID stripped from mode;
//  6. the mount's suid_support setting is applied;
//  7. uid comes from the request, gid from creation_gid;
//  8. the fully-formed item is inserted into the tree (never observing
//     default attributes transiently), and parent's times are touched.
func (d *Dispatcher) create(h protocol.InHeader, parentIno uint64, name string, mode uint32, kind vfs.Kind) (*vfs.Item, syscall.Errno) {
	parent := d.item(parentIno)
	if parent == nil || !parent.IsDir() {
		return nil, syscall.ENOENT
	}
	if parent.FindChild(name) != nil {
		return nil, syscall.EEXIST
	}
	if !d.checkAccess(parent, h.Uid, h.Gid, permkernel.WOK) {
		return nil, syscall.EACCES
	}

	perm := mode & 0o7777
	if perm == 0 {
		if kind == vfs.KindDirectory {
			perm = d.opts.DirPerm
		} else {
			perm = d.opts.FilePerm
		}
	}
	if h.Uid != 0 {
		perm &^= permkernel.ModeSuid | permkernel.ModeSgid
	}
	perm = permkernel.CreationMode(perm, d.opts.SUIDSupport)
	if kind == vfs.KindDirectory && parent.Meta.Perm&permkernel.ModeSgid != 0 {
		perm |= permkernel.ModeSgid
	}

	gid := permkernel.CreationGid(parent.Meta.Perm, parent.Meta.Gid, h.Gid)
	now := d.clock.Now()
	meta := vfs.Metadata{
		Perm:   perm,
		Uid:    h.Uid,
		Gid:    gid,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
		Crtime: now,
	}

	var child *vfs.Item
	switch kind {
	case vfs.KindDirectory:
		child = vfs.NewDirectory(d.allocIno(), name, meta)
	case vfs.KindRegular:
		child = vfs.NewRegularFile(d.allocIno(), name, meta)
	default:
		return nil, syscall.ENOSYS
	}

	if err := d.store.Push(parent, child); err != nil {
		// parent was already confirmed to be a directory above; a failure
		// here means the node store's bookkeeping is inconsistent.
		panic(err)
	}
	parent.Meta.Mtime = now
	parent.Meta.Ctime = now
	return child, 0
}
