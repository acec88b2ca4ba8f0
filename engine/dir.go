package engine

import (
	"context"
	"syscall"

	"github.com/gofuse-contrib/inmemfuse/internal/permkernel"
	"github.com/gofuse-contrib/inmemfuse/protocol"
)

// validateOpenFlags derives the access mask open/opendir/create must check
// and enforces the flag-combination rules: exactly one of read-only/
// write-only/read-write must be set, O_RDONLY|O_TRUNC is always rejected,
// and FMODE_EXEC on a read-only open requires execute rather than read.
func validateOpenFlags(flags uint32) (uint32, syscall.Errno) {
	accMode := flags & protocol.OAccModeMask

	var mask uint32
	switch accMode {
	case protocol.ORdOnly:
		mask = permkernel.ROK
	case protocol.OWrOnly:
		mask = permkernel.WOK
	case protocol.ORdWr:
		mask = permkernel.ROK | permkernel.WOK
	default:
		return 0, syscall.EINVAL
	}

	if accMode == protocol.ORdOnly && flags&protocol.OTrunc != 0 {
		return 0, syscall.EACCES
	}
	if accMode == protocol.ORdOnly && flags&protocol.FmodeExec != 0 {
		mask = permkernel.XOK
	}
	return mask, 0
}

func (d *Dispatcher) openFlags() uint32 {
	if d.opts.DirectIO {
		return protocol.FopenDirectIO
	}
	return 0
}

// Open validates the access-mode flags, checks the derived permission
// mask, and allocates a file-handle.
func (d *Dispatcher) Open(ctx context.Context, h protocol.InHeader, ino uint64, flags uint32) (protocol.OpenOut, syscall.Errno) {
	it := d.item(ino)
	if it == nil {
		return protocol.OpenOut{}, syscall.ENOENT
	}
	mask, errno := validateOpenFlags(flags)
	if errno != 0 {
		return protocol.OpenOut{}, errno
	}
	if !d.checkAccess(it, h.Uid, h.Gid, mask) {
		return protocol.OpenOut{}, syscall.EACCES
	}
	return protocol.OpenOut{Fh: d.allocFh(), FuseFlags: d.openFlags()}, 0
}

// OpenDir mirrors Open's access-check path exactly, replying EACCES on a
// failed check rather than silently succeeding.
func (d *Dispatcher) OpenDir(ctx context.Context, h protocol.InHeader, ino uint64, flags uint32) (protocol.OpenOut, syscall.Errno) {
	it := d.item(ino)
	if it == nil {
		return protocol.OpenOut{}, syscall.ENOENT
	}
	mask, errno := validateOpenFlags(flags)
	if errno != 0 {
		return protocol.OpenOut{}, errno
	}
	if !d.checkAccess(it, h.Uid, h.Gid, mask) {
		return protocol.OpenOut{}, syscall.EACCES
	}
	return protocol.OpenOut{Fh: d.allocFh(), FuseFlags: d.openFlags()}, 0
}

// ReadDir produces ".", ".." (except at root), then children in insertion
// order, starting from offset.
func (d *Dispatcher) ReadDir(ctx context.Context, h protocol.InHeader, ino uint64, offset uint64) ([]protocol.Dirent, syscall.Errno) {
	it := d.item(ino)
	if it == nil {
		return nil, syscall.ENOENT
	}
	if !it.IsDir() {
		return nil, syscall.ENOENT
	}

	children := it.Children()
	entries := make([]protocol.Dirent, 0, len(children)+2)
	entries = append(entries, protocol.Dirent{Ino: it.Ino, Kind: protocol.KindDirectory, Name: "."})
	if parent := it.Parent(); parent != nil {
		entries = append(entries, protocol.Dirent{Ino: parent.Ino, Kind: protocol.KindDirectory, Name: ".."})
	}
	for _, c := range children {
		kind := protocol.KindRegular
		if c.IsDir() {
			kind = protocol.KindDirectory
		}
		entries = append(entries, protocol.Dirent{Ino: c.Ino, Kind: kind, Name: c.Name})
	}
	for i := range entries {
		entries[i].Off = uint64(i) + 1
	}

	if offset >= uint64(len(entries)) {
		return []protocol.Dirent{}, 0
	}
	return entries[offset:], 0
}

// Access runs check_access against the file's current attributes.
func (d *Dispatcher) Access(ctx context.Context, h protocol.InHeader, ino uint64, mask uint32) syscall.Errno {
	it := d.item(ino)
	if it == nil {
		return syscall.ENOENT
	}
	if !d.checkAccess(it, h.Uid, h.Gid, mask) {
		return syscall.EACCES
	}
	return 0
}

// Release is a no-op; handles carry no per-open state in this engine.
func (d *Dispatcher) Release(ctx context.Context, ino uint64, fh uint64) syscall.Errno {
	return 0
}

// ReleaseDir is a no-op, except it reports ENOENT if the inode is gone.
func (d *Dispatcher) ReleaseDir(ctx context.Context, ino uint64, fh uint64) syscall.Errno {
	if d.item(ino) == nil {
		return syscall.ENOENT
	}
	return 0
}

// Flush is a no-op: there is no write-back buffering to flush.
func (d *Dispatcher) Flush(ctx context.Context, ino uint64, fh uint64) syscall.Errno {
	return 0
}

// Forget is a no-op: item lifetime is governed by the tree and node-store
// index, not by lookup-count bookkeeping.
func (d *Dispatcher) Forget(ctx context.Context, ino uint64, nlookup uint64) {}
