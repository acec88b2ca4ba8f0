// Package permkernel implements the engine's pure, stateless POSIX
// permission checks: access decisions, SUID/SGID clearing, creation-gid
// inheritance, and mode-to-kind mapping. None of these functions touch the
// tree or the node store; they only look at the fields handed to them,
// matching the POSIX semantics distilled from the original Rust
// check_access/clear_suid_sgid/creation_gid/as_file_kind helpers.
package permkernel

import "golang.org/x/sys/unix"

// Mode bit constants this engine cares about. Kept local (rather than
// importing them piecemeal from unix) so the triad math below reads
// directly against the POSIX numbers.
const (
	ModeSuid = 0o4000
	ModeSgid = 0o2000
	ModeSticky = 0o1000
	ModePermMask = 0o0777

	ModeOwnerX = 0o0100
	ModeGroupX = 0o0010
)

// Access mask bits, matching unix.R_OK/W_OK/X_OK/F_OK.
const (
	ROK = unix.R_OK
	WOK = unix.W_OK
	XOK = unix.X_OK
	FOK = unix.F_OK
)

// CheckAccess decides whether a requester (reqUid, reqGid) may access a
// file (fileUid, fileGid, filePerm) under the given access mask.
//
//   - mask == F_OK always succeeds: existence alone is being probed.
//   - root (reqUid == 0) may read/write anything; for execute, root
//     succeeds iff at least one of the three triads grants execute — root
//     is not allowed to execute a file nobody may ever execute.
//   - otherwise the owner triad applies if reqUid == fileUid, else the
//     group triad if reqGid == fileGid, else the other triad; every bit in
//     mask must be present in the selected triad.
func CheckAccess(fileUid, fileGid uint32, filePerm uint32, reqUid, reqGid uint32, mask uint32) bool {
	if mask == FOK {
		return true
	}

	if reqUid == 0 {
		rootMask := mask &^ uint32(ROK|WOK)
		if rootMask == 0 {
			return true
		}
		return filePerm&0o111 != 0
	}

	var triad uint32
	switch {
	case reqUid == fileUid:
		triad = (filePerm >> 6) & 0o7
	case reqGid == fileGid:
		triad = (filePerm >> 3) & 0o7
	default:
		triad = filePerm & 0o7
	}

	return mask&triad == mask
}

// CreationGid returns the gid a newly created child should inherit: the
// parent's gid when the parent has SGID set, otherwise the requester's
// gid.
func CreationGid(parentPerm uint32, parentGid, reqGid uint32) uint32 {
	if parentPerm&ModeSgid != 0 {
		return parentGid
	}
	return reqGid
}

// ClearSuidSgid reports the perm bits that should survive a mutation that
// must strip SUID/SGID. SUID is always cleared; SGID survives only when
// group-execute is absent — Linux treats SGID-without-group-exec as
// mandatory locking, not a privilege bit, so it is not a security-relevant
// clear.
func ClearSuidSgid(perm uint32) uint32 {
	perm &^= ModeSuid
	if perm&ModeGroupX != 0 {
		perm &^= ModeSgid
	}
	return perm
}

// CreationMode strips SUID/SGID from mode when the mount disabled SUID
// support; otherwise it passes mode through unchanged.
func CreationMode(mode uint32, suidSupport bool) uint32 {
	if !suidSupport {
		return mode &^ (ModeSuid | ModeSgid)
	}
	return mode
}

// Kind mirrors the item kinds this engine supports; AsFileKind maps a mode
// nibble onto one, treating any other type as a programming error since
// it is outside this engine's scope (devices, sockets, FIFOs).
type Kind int

const (
	KindRegular Kind = iota
	KindSymlink
	KindDirectory
)

// AsFileKind extracts the type nibble from mode and maps it to a Kind. It
// panics on unsupported types, which must never occur for a valid mknod/
// mkdir/create request in this engine's scope.
func AsFileKind(mode uint32) Kind {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return KindRegular
	case unix.S_IFLNK:
		return KindSymlink
	case unix.S_IFDIR:
		return KindDirectory
	default:
		panic("permkernel: unsupported file type in mode")
	}
}
