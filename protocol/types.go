// Package protocol carries the wire-level types exchanged between the
// in-memory filesystem engine and its kernel transport. The transport
// itself — request framing, decoding, reply encoding, and the mount/
// unmount syscalls — is assumed to be provided by an external library;
// this package only fixes the shape of the data that crosses that
// boundary, mirroring the subset of the FUSE kernel ABI this engine's
// operations actually need.
package protocol

import "time"

// RootIno is the reserved inode number of the filesystem root.
const RootIno = 1

// Access mask bits, as consulted by check_access and the access() call.
const (
	OK = 0
	RMask = 4
	WMask = 2
	XMask = 1
	FMask = 0
)

// Open flags this engine interprets. Values match the POSIX O_* constants
// so callers can pass through unix.O_RDONLY and friends unchanged.
const (
	ORdOnly = 0x0
	OWrOnly = 0x1
	ORdWr   = 0x2
	OAccModeMask = 0x3
	OTrunc  = 0x200
)

// FuseFlags returned from Open/OpenDir/Create.
const (
	FopenDirectIO  = 1 << 0
	FopenKeepCache = 1 << 1
)

// FmodeExec marks an Open call made to execute the file (FMODE_EXEC),
// which requires X_OK rather than R_OK even though the kernel requested a
// read-only handle.
const FmodeExec = 1 << 17

// InHeader carries the per-request caller identity the Dispatcher needs
// for every permission decision. Transports populate this from the
// kernel's fuse_in_header.
type InHeader struct {
	Nodeid uint64
	Uid    uint32
	Gid    uint32
	Pid    uint32
}

// Kind enumerates the item kinds this engine supports.
type Kind uint32

const (
	KindRegular Kind = iota
	KindDirectory
)

// Attr is the stat-like attribute record returned for every item.
type Attr struct {
	Ino     uint64
	Size    uint64
	Blocks  uint64
	Blksize uint32
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
	Crtime  time.Time
	Kind    Kind
	Perm    uint32 // 12 bits: 9 POSIX bits + SUID + SGID + sticky
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Rdev    uint32
	Flags   uint32
}

// EntryOut is the reply to lookup/mknod/mkdir/create: the child's
// identity plus its current attributes.
type EntryOut struct {
	Ino  uint64
	Attr Attr
}

// AttrOut is the reply to getattr/setattr.
type AttrOut struct {
	Attr Attr
}

// SetattrIn carries the optional fields setattr may update. A nil pointer
// means "field not supplied".
type SetattrIn struct {
	Mode  *uint32
	Uid   *uint32
	Gid   *uint32
	Size  *uint64
	Atime *time.Time
	// AtimeNow is set when the caller requested "set to current time"
	// rather than a specific timestamp.
	AtimeNow bool
	Mtime    *time.Time
	MtimeNow bool
}

// OpenOut is the reply to open/opendir/create.
type OpenOut struct {
	Fh        uint64
	FuseFlags uint32
}

// Dirent is one entry produced by readdir.
type Dirent struct {
	Ino  uint64
	Kind Kind
	Name string
	// Off is the offset of the *next* entry, for continuation.
	Off uint64
}

// WrittenOut is the reply to write/copy_file_range.
type WrittenOut struct {
	Size uint32
}
