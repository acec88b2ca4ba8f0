// Package vfs implements the in-memory inode tree: the Tree/Item/Node
// Store split described by the engine's design, monomorphized to a single
// filesystem item type rather than kept generic (the generic split pays no
// dividend for a single concrete payload).
package vfs

import (
	"time"

	"github.com/gofuse-contrib/inmemfuse/protocol"
)

// BlockSize is the fixed block size reported in every item's attributes.
const BlockSize = 512

// DirSize is the fixed stat-reported size of a directory.
const DirSize = 512

// Kind is an alias of protocol.Kind, so an item's kind is carried into
// Attr unchanged.
type Kind = protocol.Kind

const (
	KindRegular   = protocol.KindRegular
	KindDirectory = protocol.KindDirectory
)

// Metadata is the stat-like record carried by every Item.
type Metadata struct {
	Size   uint64
	Kind   Kind
	Perm   uint32 // 9 POSIX bits + SUID(04000) + SGID(02000) + sticky(01000)
	Uid    uint32
	Gid    uint32
	Nlink  uint32
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
	Crtime time.Time
	Flags  uint32
	Rdev   uint32
}

// Blocks returns ceil(Size/BlockSize), the kernel's block count.
func (m Metadata) Blocks() uint64 {
	return (m.Size + BlockSize - 1) / BlockSize
}

// Attr converts Metadata plus an inode number into the wire Attr record.
func (m Metadata) Attr(ino uint64) protocol.Attr {
	return protocol.Attr{
		Ino:     ino,
		Size:    m.Size,
		Blocks:  m.Blocks(),
		Blksize: BlockSize,
		Atime:   m.Atime,
		Mtime:   m.Mtime,
		Ctime:   m.Ctime,
		Crtime:  m.Crtime,
		Kind:    m.Kind,
		Perm:    m.Perm,
		Nlink:   m.Nlink,
		Uid:     m.Uid,
		Gid:     m.Gid,
		Rdev:    m.Rdev,
		Flags:   m.Flags,
	}
}

// Item is one filesystem entity: a directory with an ordered child list, or
// a regular file with a byte-addressable content buffer. It wraps a tree
// node: parent/children links are part of Item itself since the engine
// monomorphizes its tree to this one payload type.
//
// The parent pointer is a non-owning back-reference: what keeps an Item
// alive is the Node Store's ino index together with its parent's owning
// entry in children. Removing both destroys the Item (ordinary Go garbage
// collection, once unreachable).
type Item struct {
	Ino  uint64
	Name string
	Meta Metadata

	// Data holds the byte content for a regular file. Nil for directories.
	Data []byte

	// children holds the ordered (insertion-order) child list for a
	// directory. Nil for regular files.
	children []*Item
	parent   *Item
}

// NewDirectory constructs a directory Item with no children.
func NewDirectory(ino uint64, name string, meta Metadata) *Item {
	meta.Kind = KindDirectory
	meta.Size = DirSize
	if meta.Nlink == 0 {
		meta.Nlink = 2
	}
	return &Item{Ino: ino, Name: name, Meta: meta}
}

// NewRegularFile constructs an empty regular file Item.
func NewRegularFile(ino uint64, name string, meta Metadata) *Item {
	meta.Kind = KindRegular
	if meta.Nlink == 0 {
		meta.Nlink = 1
	}
	return &Item{Ino: ino, Name: name, Meta: meta, Data: []byte{}}
}

// IsDir reports whether this Item is a directory.
func (it *Item) IsDir() bool { return it.Meta.Kind == KindDirectory }

// Parent returns the weak-upgraded parent, or nil iff this item is root.
func (it *Item) Parent() *Item { return it.parent }

// Children returns the child list in insertion order. Callers must not
// mutate the returned slice; it aliases the Item's internal state.
func (it *Item) Children() []*Item { return it.children }

// FindChild does a linear scan of the directory's children, returning the
// first whose name matches, or nil.
func (it *Item) FindChild(name string) *Item {
	for _, c := range it.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}
