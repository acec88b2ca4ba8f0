package engine

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gofuse-contrib/inmemfuse/config"
	"github.com/gofuse-contrib/inmemfuse/internal/clock"
	"github.com/gofuse-contrib/inmemfuse/internal/groups"
	"github.com/gofuse-contrib/inmemfuse/internal/logger"
	"github.com/gofuse-contrib/inmemfuse/protocol"
)

func newTestDispatcher(t *testing.T, opts config.Options, gp groups.Provider) (*Dispatcher, *clock.Fake) {
	t.Helper()
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	t.Cleanup(func() { devNull.Close() })

	log, _ := logger.New(devNull, false)
	fake := clock.NewFake(time.Unix(1_700_000_000, 0).UTC())
	if gp == nil {
		gp = groups.Static{}
	}
	d := New(opts, fake, gp, log)
	d.Init(context.Background())
	return d, fake
}

func hdr(uid, gid, pid uint32) protocol.InHeader {
	return protocol.InHeader{Uid: uid, Gid: gid, Pid: pid}
}

// 1. Root lookup: after init, getattr(1) returns kind=directory, perm
// 0o777, uid=0, gid=0, nlink=2.
func TestRootLookup(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)

	out, errno := d.GetAttr(context.Background(), hdr(0, 0, 1), protocol.RootIno)
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, protocol.KindDirectory, out.Attr.Kind)
	require.Equal(t, uint32(0o777), out.Attr.Perm)
	require.Equal(t, uint32(0), out.Attr.Uid)
	require.Equal(t, uint32(0), out.Attr.Gid)
	require.Equal(t, uint32(2), out.Attr.Nlink)
}

// 2. SUID strip on creation: non-root create(1, "x", mode=0o4755) with
// suid_support=false produces an item whose perm is 0o0755.
func TestSUIDStripOnCreation(t *testing.T) {
	opts := config.Defaults()
	opts.SUIDSupport = false
	d, _ := newTestDispatcher(t, opts, nil)

	entry, _, errno := d.Create(context.Background(), hdr(100, 100, 1), protocol.RootIno, "x", protocol.ORdWr, 0o4755)
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint32(0o0755), entry.Attr.Perm)
}

// 3. Sticky-bit unlink: parent perm 0o1777 owned by uid 100; child owned
// by uid 200; request uid 300 -> EACCES. Same call with uid 200 or 100
// succeeds.
func TestStickyBitUnlink(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)

	_, errno := d.SetAttr(context.Background(), hdr(0, 0, 1), protocol.RootIno,
		protocol.SetattrIn{Mode: modePtr(0o1777)})
	require.Equal(t, syscall.Errno(0), errno)
	_, errno = d.SetAttr(context.Background(), hdr(0, 0, 1), protocol.RootIno,
		protocol.SetattrIn{Uid: uidPtr(100)})
	require.Equal(t, syscall.Errno(0), errno)

	entry, _, errno := d.Create(context.Background(), hdr(200, 200, 1), protocol.RootIno, "f", protocol.ORdWr, 0o644)
	require.Equal(t, syscall.Errno(0), errno)
	require.NotZero(t, entry.Ino)

	errno = d.Unlink(context.Background(), hdr(300, 300, 1), protocol.RootIno, "f")
	require.Equal(t, syscall.EACCES, errno)

	errno = d.Unlink(context.Background(), hdr(200, 200, 1), protocol.RootIno, "f")
	require.Equal(t, syscall.Errno(0), errno)

	_, _, errno = d.Create(context.Background(), hdr(200, 200, 1), protocol.RootIno, "f", protocol.ORdWr, 0o644)
	require.Equal(t, syscall.Errno(0), errno)

	errno = d.Unlink(context.Background(), hdr(100, 100, 1), protocol.RootIno, "f")
	require.Equal(t, syscall.Errno(0), errno)
}

// 4. Rename collision: create(1,"a"); create(1,"b"); rename(1,"a",1,"b")
// -> EEXIST; both items remain.
func TestRenameCollision(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	_, _, errno := d.Create(context.Background(), h, protocol.RootIno, "a", protocol.ORdWr, 0o644)
	require.Equal(t, syscall.Errno(0), errno)
	_, _, errno = d.Create(context.Background(), h, protocol.RootIno, "b", protocol.ORdWr, 0o644)
	require.Equal(t, syscall.Errno(0), errno)

	errno = d.Rename(context.Background(), h, protocol.RootIno, "a", protocol.RootIno, "b", 0)
	require.Equal(t, syscall.EEXIST, errno)

	_, errno = d.Lookup(context.Background(), h, protocol.RootIno, "a")
	require.Equal(t, syscall.Errno(0), errno)
	_, errno = d.Lookup(context.Background(), h, protocol.RootIno, "b")
	require.Equal(t, syscall.Errno(0), errno)
}

// 5. Rmdir non-empty: mkdir(1,"d"); create(d,"f"); rmdir(1,"d") ->
// ENOTEMPTY.
func TestRmdirNonEmpty(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	dirEntry, errno := d.Mkdir(context.Background(), h, protocol.RootIno, "d", 0o755)
	require.Equal(t, syscall.Errno(0), errno)

	_, _, errno = d.Create(context.Background(), h, dirEntry.Ino, "f", protocol.ORdWr, 0o644)
	require.Equal(t, syscall.Errno(0), errno)

	errno = d.Rmdir(context.Background(), h, protocol.RootIno, "d")
	require.Equal(t, syscall.ENOTEMPTY, errno)
}

// 6. Truncate + SUID clear: file with perm 0o4755, size 10; setattr(size=3)
// yields size=3, perm 0o0755 (SUID cleared, SGID preserved/cleared per
// group-exec).
func TestTruncateClearsSUID(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	entry, _, errno := d.Create(context.Background(), h, protocol.RootIno, "f", protocol.ORdWr, 0o4755)
	require.Equal(t, syscall.Errno(0), errno)

	_, errno = d.Write(context.Background(), h, entry.Ino, 0, 0, []byte("0123456789"))
	require.Equal(t, syscall.Errno(0), errno)

	out, errno := d.SetAttr(context.Background(), h, entry.Ino, protocol.SetattrIn{Size: sizePtr(3)})
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint64(3), out.Attr.Size)
	require.Equal(t, uint32(0o0755), out.Attr.Perm)

	data, errno := d.Read(context.Background(), h, entry.Ino, 0, 0, 10)
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, []byte("012"), data)
}

// 7. Read past end: file of length 4 at offset 100 returns zero-length
// data, no error.
func TestReadPastEnd(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	entry, _, errno := d.Create(context.Background(), h, protocol.RootIno, "f", protocol.ORdWr, 0o644)
	require.Equal(t, syscall.Errno(0), errno)
	_, errno = d.Write(context.Background(), h, entry.Ino, 0, 0, []byte("abcd"))
	require.Equal(t, syscall.Errno(0), errno)

	data, errno := d.Read(context.Background(), h, entry.Ino, 0, 100, 10)
	require.Equal(t, syscall.Errno(0), errno)
	require.Empty(t, data)
}

// 8. Readdir ordering: create children "a","b","c" in that order ->
// readdir of the root yields ".", "a", "b", "c" (the root has no "..").
func TestReaddirOrdering(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	for _, name := range []string{"a", "b", "c"} {
		_, _, errno := d.Create(context.Background(), h, protocol.RootIno, name, protocol.ORdWr, 0o644)
		require.Equal(t, syscall.Errno(0), errno)
	}

	entries, errno := d.ReadDir(context.Background(), h, protocol.RootIno, 0)
	require.Equal(t, syscall.Errno(0), errno)
	require.Len(t, entries, 4)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	require.Equal(t, []string{".", "a", "b", "c"}, names)
}

// 9. Open O_RDONLY|O_TRUNC: returns EACCES regardless of permissions.
func TestOpenRdonlyTruncRejected(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	entry, _, errno := d.Create(context.Background(), h, protocol.RootIno, "f", protocol.ORdWr, 0o666)
	require.Equal(t, syscall.Errno(0), errno)

	_, errno = d.Open(context.Background(), h, entry.Ino, protocol.ORdOnly|protocol.OTrunc)
	require.Equal(t, syscall.EACCES, errno)
}

// Round-trip: write(ino, 0, D); read(ino, 0, |D|) == D.
func TestWriteReadRoundTrip(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	entry, _, errno := d.Create(context.Background(), h, protocol.RootIno, "f", protocol.ORdWr, 0o644)
	require.Equal(t, syscall.Errno(0), errno)

	payload := []byte("hello, in-memory world")
	written, errno := d.Write(context.Background(), h, entry.Ino, 0, 0, payload)
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint32(len(payload)), written.Size)

	got, errno := d.Read(context.Background(), h, entry.Ino, 0, 0, len(payload))
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, payload, got)
}

// Round-trip: mkdir(P, N); rmdir(P, N) returns the parent to its prior
// child set; mtime/ctime advance.
func TestMkdirRmdirRoundTrip(t *testing.T) {
	d, fake := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	before, errno := d.GetAttr(context.Background(), h, protocol.RootIno)
	require.Equal(t, syscall.Errno(0), errno)

	fake.Advance(time.Second)
	_, errno = d.Mkdir(context.Background(), h, protocol.RootIno, "d", 0o755)
	require.Equal(t, syscall.Errno(0), errno)

	fake.Advance(time.Second)
	errno = d.Rmdir(context.Background(), h, protocol.RootIno, "d")
	require.Equal(t, syscall.Errno(0), errno)

	after, errno := d.GetAttr(context.Background(), h, protocol.RootIno)
	require.Equal(t, syscall.Errno(0), errno)
	require.True(t, after.Attr.Mtime.After(before.Attr.Mtime))

	entries, errno := d.ReadDir(context.Background(), h, protocol.RootIno, 0)
	require.Equal(t, syscall.Errno(0), errno)
	require.Len(t, entries, 1) // only "."
}

// Round-trip: create(P, N); unlink(P, N); lookup(P, N) == ENOENT.
func TestCreateUnlinkLookupRoundTrip(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	_, _, errno := d.Create(context.Background(), h, protocol.RootIno, "f", protocol.ORdWr, 0o644)
	require.Equal(t, syscall.Errno(0), errno)

	errno = d.Unlink(context.Background(), h, protocol.RootIno, "f")
	require.Equal(t, syscall.Errno(0), errno)

	_, errno = d.Lookup(context.Background(), h, protocol.RootIno, "f")
	require.Equal(t, syscall.ENOENT, errno)
}

func TestSGIDInheritedOnMkdir(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	_, errno := d.SetAttr(context.Background(), h, protocol.RootIno, protocol.SetattrIn{Mode: modePtr(0o2777)})
	require.Equal(t, syscall.Errno(0), errno)

	entry, errno := d.Mkdir(context.Background(), hdr(100, 100, 1), protocol.RootIno, "d", 0o755)
	require.Equal(t, syscall.Errno(0), errno)
	require.NotZero(t, entry.Attr.Perm&0o2000)
}

func TestCrossParentRenameIsENOSYS(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)
	h := hdr(0, 0, 1)

	dirEntry, errno := d.Mkdir(context.Background(), h, protocol.RootIno, "d", 0o755)
	require.Equal(t, syscall.Errno(0), errno)
	_, _, errno = d.Create(context.Background(), h, protocol.RootIno, "f", protocol.ORdWr, 0o644)
	require.Equal(t, syscall.Errno(0), errno)

	errno = d.Rename(context.Background(), h, protocol.RootIno, "f", dirEntry.Ino, "f", 0)
	require.Equal(t, syscall.ENOSYS, errno)
}

// A gid-only chown on a non-executable setuid file must not clear SUID:
// the clear is gated on the file's own execute bit, not its kind.
func TestChownPreservesSUIDOnNonExecutableFile(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)

	entry, _, errno := d.Create(context.Background(), hdr(0, 0, 1), protocol.RootIno, "f", protocol.ORdWr, 0o4644)
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint32(0o4644), entry.Attr.Perm)

	out, errno := d.SetAttr(context.Background(), hdr(0, 0, 1), entry.Ino, protocol.SetattrIn{Gid: uidPtr(7)})
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint32(0o4644), out.Attr.Perm)
	require.Equal(t, uint32(7), out.Attr.Gid)
}

// The same gid-only chown on an executable setuid file does clear SUID.
func TestChownClearsSUIDOnExecutableFile(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Defaults(), nil)

	entry, _, errno := d.Create(context.Background(), hdr(0, 0, 1), protocol.RootIno, "f", protocol.ORdWr, 0o4755)
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint32(0o4755), entry.Attr.Perm)

	out, errno := d.SetAttr(context.Background(), hdr(0, 0, 1), entry.Ino, protocol.SetattrIn{Gid: uidPtr(7)})
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint32(0o0755), out.Attr.Perm)
	require.Equal(t, uint32(7), out.Attr.Gid)
}

// A create request whose mode carries no permission bits falls back to the
// mount's configured file-perm/dir-perm defaults.
func TestCreateFallsBackToConfiguredDefaultPerm(t *testing.T) {
	opts := config.Defaults()
	opts.FilePerm = 0o640
	opts.DirPerm = 0o750
	d, _ := newTestDispatcher(t, opts, nil)

	file, _, errno := d.Create(context.Background(), hdr(0, 0, 1), protocol.RootIno, "f", protocol.ORdWr, 0)
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint32(0o640), file.Attr.Perm)

	dir, errno := d.Mkdir(context.Background(), hdr(0, 0, 1), protocol.RootIno, "d", 0)
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint32(0o750), dir.Attr.Perm)
}

func modePtr(v uint32) *uint32 { return &v }
func uidPtr(v uint32) *uint32  { return &v }
func sizePtr(v uint64) *uint64 { return &v }
