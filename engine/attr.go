package engine

import (
	"context"
	"syscall"
	"time"

	"github.com/gofuse-contrib/inmemfuse/internal/permkernel"
	"github.com/gofuse-contrib/inmemfuse/internal/vfs"
	"github.com/gofuse-contrib/inmemfuse/protocol"
)

// GetAttr returns an item's attributes. No permission check, per spec.
func (d *Dispatcher) GetAttr(ctx context.Context, h protocol.InHeader, ino uint64) (protocol.AttrOut, syscall.Errno) {
	it := d.item(ino)
	if it == nil {
		return protocol.AttrOut{}, syscall.ENOENT
	}
	return protocol.AttrOut{Attr: it.Meta.Attr(it.Ino)}, 0
}

// SetAttr applies every field present in in, in the fixed order mode ->
// uid/gid -> size -> atime -> mtime. A field that is rejected does not
// prevent later fields from being evaluated; the first rejection's errno
// is what is ultimately returned, but mutations from fields that did
// succeed are not rolled back.
func (d *Dispatcher) SetAttr(ctx context.Context, h protocol.InHeader, ino uint64, in protocol.SetattrIn) (protocol.AttrOut, syscall.Errno) {
	it := d.item(ino)
	if it == nil {
		return protocol.AttrOut{}, syscall.ENOENT
	}

	var first syscall.Errno

	if in.Mode != nil {
		if e := d.chmod(it, h, *in.Mode); e != 0 && first == 0 {
			first = e
		}
	}
	if in.Uid != nil || in.Gid != nil {
		if e := d.chown(it, h, in.Uid, in.Gid); e != 0 && first == 0 {
			first = e
		}
	}
	if in.Size != nil {
		if e := d.truncate(it, h, *in.Size); e != 0 && first == 0 {
			first = e
		}
	}
	if in.Atime != nil || in.AtimeNow {
		if e := d.utime(it, h, true, in.Atime, in.AtimeNow); e != 0 && first == 0 {
			first = e
		}
	}
	if in.Mtime != nil || in.MtimeNow {
		if e := d.utime(it, h, false, in.Mtime, in.MtimeNow); e != 0 && first == 0 {
			first = e
		}
	}

	return protocol.AttrOut{Attr: it.Meta.Attr(it.Ino)}, first
}

// chmod: caller must be root or owner. A non-root, non-group-member caller
// has SGID cleared from the requested mode rather than rejected outright.
func (d *Dispatcher) chmod(it *vfs.Item, h protocol.InHeader, mode uint32) syscall.Errno {
	if h.Uid != 0 && h.Uid != it.Meta.Uid {
		return syscall.EPERM
	}

	perm := mode & 0o7777
	if h.Uid != 0 && !d.callerInGroup(h, it.Meta.Gid) {
		perm &^= permkernel.ModeSgid
	}

	it.Meta.Perm = perm
	it.Meta.Ctime = d.clock.Now()
	return 0
}

// chown: non-root may only "change" uid to its current value, and may
// change gid only to a group it is a member of, and only on files it owns.
func (d *Dispatcher) chown(it *vfs.Item, h protocol.InHeader, uidp, gidp *uint32) syscall.Errno {
	if uidp != nil && h.Uid != 0 && *uidp != it.Meta.Uid {
		return syscall.EPERM
	}
	if gidp != nil && h.Uid != 0 {
		if h.Uid != it.Meta.Uid {
			return syscall.EPERM
		}
		if !d.callerInGroup(h, *gidp) {
			return syscall.EPERM
		}
	}

	if uidp != nil {
		it.Meta.Uid = *uidp
		it.Meta.Perm &^= permkernel.ModeSuid
	}
	if gidp != nil {
		it.Meta.Gid = *gidp
		if h.Uid != 0 {
			it.Meta.Perm &^= permkernel.ModeSgid
		}
	}
	if it.Meta.Perm&0o111 != 0 {
		it.Meta.Perm = permkernel.ClearSuidSgid(it.Meta.Perm)
	}

	it.Meta.Ctime = d.clock.Now()
	return 0
}

// truncate resizes a regular file's content buffer, zero-filling on
// growth, and clears SUID (and SGID, per the group-exec rule) the way any
// content-changing mutation does.
func (d *Dispatcher) truncate(it *vfs.Item, h protocol.InHeader, size uint64) syscall.Errno {
	if it.IsDir() {
		return syscall.EINVAL
	}

	switch {
	case size == 0:
		it.Data = []byte{}
	case uint64(len(it.Data)) < size:
		grown := make([]byte, size)
		copy(grown, it.Data)
		it.Data = grown
	default:
		it.Data = it.Data[:size]
	}

	it.Meta.Size = size
	it.Meta.Perm = permkernel.ClearSuidSgid(it.Meta.Perm)

	now := d.clock.Now()
	it.Meta.Mtime = now
	it.Meta.Ctime = now
	return 0
}

// utime applies one of atime/mtime. A non-owner, non-root caller may only
// request "now", and only with write permission; a specific timestamp from
// a non-owner is always rejected.
func (d *Dispatcher) utime(it *vfs.Item, h protocol.InHeader, isAtime bool, t *time.Time, now bool) syscall.Errno {
	owner := h.Uid == 0 || h.Uid == it.Meta.Uid
	if !owner {
		if !now {
			return syscall.EPERM
		}
		if !d.checkAccess(it, h.Uid, h.Gid, permkernel.WOK) {
			return syscall.EACCES
		}
	}

	val := d.clock.Now()
	if !now && t != nil {
		val = *t
	}
	if isAtime {
		it.Meta.Atime = val
	} else {
		it.Meta.Mtime = val
	}
	it.Meta.Ctime = d.clock.Now()
	return 0
}
