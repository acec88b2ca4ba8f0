package engine

import (
	"context"
	"syscall"

	"github.com/gofuse-contrib/inmemfuse/internal/vfs"
	"github.com/gofuse-contrib/inmemfuse/protocol"
)

// growBuffer ensures it.Data can hold n bytes starting at offset,
// zero-filling any newly exposed region.
func growBuffer(it *vfs.Item, offset uint64, n int) {
	need := offset + uint64(n)
	if uint64(len(it.Data)) >= need {
		return
	}
	grown := make([]byte, need)
	copy(grown, it.Data)
	it.Data = grown
}

// Read slices [offset, offset+size) out of ino's content buffer, clamped
// to the buffer's length. An offset beyond the end of the file returns an
// empty (not an error) result, and there is no hidden read cursor: every
// call is fully specified by its arguments.
func (d *Dispatcher) Read(ctx context.Context, h protocol.InHeader, ino uint64, fh uint64, offset int64, size int) ([]byte, syscall.Errno) {
	it := d.item(ino)
	if it == nil {
		return nil, syscall.ENOENT
	}
	if it.IsDir() {
		return nil, syscall.ENOENT
	}
	if offset < 0 {
		return nil, syscall.EINVAL
	}

	off := uint64(offset)
	if off >= uint64(len(it.Data)) {
		return []byte{}, 0
	}
	end := off + uint64(size)
	if end > uint64(len(it.Data)) {
		end = uint64(len(it.Data))
	}

	out := make([]byte, end-off)
	copy(out, it.Data[off:end])
	return out, 0
}

// Write overwrites ino's content buffer starting at offset, growing it as
// needed, and reports the post-write buffer length as the new size.
func (d *Dispatcher) Write(ctx context.Context, h protocol.InHeader, ino uint64, fh uint64, offset int64, data []byte) (protocol.WrittenOut, syscall.Errno) {
	it := d.item(ino)
	if it == nil {
		return protocol.WrittenOut{}, syscall.ENOENT
	}
	if it.IsDir() {
		return protocol.WrittenOut{}, syscall.ENOENT
	}
	if offset < 0 {
		return protocol.WrittenOut{}, syscall.EINVAL
	}

	off := uint64(offset)
	growBuffer(it, off, len(data))
	copy(it.Data[off:], data)

	now := d.clock.Now()
	it.Meta.Size = uint64(len(it.Data))
	it.Meta.Mtime = now
	it.Meta.Ctime = now
	return protocol.WrittenOut{Size: uint32(len(data))}, 0
}

// CopyFileRange reads min(size, srcLen-srcOff) bytes from src and writes
// them into dst at dstOff, growing dst's buffer as needed.
func (d *Dispatcher) CopyFileRange(ctx context.Context, srcIno uint64, srcFh uint64, srcOff int64, dstIno uint64, dstFh uint64, dstOff int64, size int) (protocol.WrittenOut, syscall.Errno) {
	src := d.item(srcIno)
	dst := d.item(dstIno)
	if src == nil || dst == nil {
		return protocol.WrittenOut{}, syscall.ENOENT
	}
	if src.IsDir() || dst.IsDir() {
		return protocol.WrittenOut{}, syscall.ENOENT
	}
	if srcOff < 0 || dstOff < 0 {
		return protocol.WrittenOut{}, syscall.EINVAL
	}

	so := uint64(srcOff)
	if so >= uint64(len(src.Data)) {
		return protocol.WrittenOut{Size: 0}, 0
	}
	end := so + uint64(size)
	if end > uint64(len(src.Data)) {
		end = uint64(len(src.Data))
	}
	chunk := src.Data[so:end]

	do := uint64(dstOff)
	growBuffer(dst, do, len(chunk))
	copy(dst.Data[do:], chunk)

	now := d.clock.Now()
	dst.Meta.Size = uint64(len(dst.Data))
	dst.Meta.Mtime = now
	dst.Meta.Ctime = now
	return protocol.WrittenOut{Size: uint32(len(chunk))}, 0
}
