package vfs

import "fmt"

// attach appends child to parent's child list (insertion order) and points
// child's back-reference at parent. It is the one place an owning
// parent→child edge is created.
func attach(parent, child *Item) {
	parent.children = append(parent.children, child)
	child.parent = parent
}

// detach removes child from parent's child list by identity (not by name,
// so it is safe even if two children were ever to share a name transiently)
// and clears child's back-reference. It panics if child is not actually a
// child of parent: that is a programmer error, never reachable from a
// valid request sequence, per the engine's error-handling design.
func detach(parent, child *Item) {
	for i, c := range parent.children {
		if c == child {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			child.parent = nil
			return
		}
	}
	panic(fmt.Sprintf("vfs: detach: %q is not a child of %q", child.Name, parent.Name))
}
