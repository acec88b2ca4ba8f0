package protocol

import (
	"context"
	"syscall"
)

// FileSystem is the request-dispatch surface a transport calls into. Every
// method takes the header of the originating request and returns a typed
// reply or a syscall.Errno; 0 (OK) means success. Implementations must not
// block indefinitely — transports expect bounded latency per call.
//
// This mirrors github.com/hanwen/go-fuse/v2/fuse's RawFileSystem and the
// node-level NodeXxxer interfaces of github.com/hanwen/go-fuse/v2/fs,
// collapsed onto a single inode-keyed surface because this engine owns its
// own inode tree rather than delegating tree bookkeeping to a library.
type FileSystem interface {
	Init(ctx context.Context)

	Lookup(ctx context.Context, h InHeader, parent uint64, name string) (EntryOut, syscall.Errno)
	GetAttr(ctx context.Context, h InHeader, ino uint64) (AttrOut, syscall.Errno)
	SetAttr(ctx context.Context, h InHeader, ino uint64, in SetattrIn) (AttrOut, syscall.Errno)

	Mknod(ctx context.Context, h InHeader, parent uint64, name string, mode uint32) (EntryOut, syscall.Errno)
	Mkdir(ctx context.Context, h InHeader, parent uint64, name string, mode uint32) (EntryOut, syscall.Errno)
	Create(ctx context.Context, h InHeader, parent uint64, name string, flags uint32, mode uint32) (EntryOut, OpenOut, syscall.Errno)

	Rename(ctx context.Context, h InHeader, parent uint64, name string, newParent uint64, newName string, flags uint32) syscall.Errno
	Unlink(ctx context.Context, h InHeader, parent uint64, name string) syscall.Errno
	Rmdir(ctx context.Context, h InHeader, parent uint64, name string) syscall.Errno

	Read(ctx context.Context, h InHeader, ino uint64, fh uint64, offset int64, size int) ([]byte, syscall.Errno)
	Write(ctx context.Context, h InHeader, ino uint64, fh uint64, offset int64, data []byte) (WrittenOut, syscall.Errno)
	CopyFileRange(ctx context.Context, srcIno uint64, srcFh uint64, srcOff int64, dstIno uint64, dstFh uint64, dstOff int64, size int) (WrittenOut, syscall.Errno)

	Open(ctx context.Context, h InHeader, ino uint64, flags uint32) (OpenOut, syscall.Errno)
	OpenDir(ctx context.Context, h InHeader, ino uint64, flags uint32) (OpenOut, syscall.Errno)
	ReadDir(ctx context.Context, h InHeader, ino uint64, offset uint64) ([]Dirent, syscall.Errno)

	Access(ctx context.Context, h InHeader, ino uint64, mask uint32) syscall.Errno

	Release(ctx context.Context, ino uint64, fh uint64) syscall.Errno
	ReleaseDir(ctx context.Context, ino uint64, fh uint64) syscall.Errno
	Flush(ctx context.Context, ino uint64, fh uint64) syscall.Errno
	Forget(ctx context.Context, ino uint64, nlookup uint64)
}
