package kext

import (
	"github.com/armon/go-radix"
)

// Index is the in-memory mapping from bundle identifier to the head of
// its version/duplicate tree.
//
// Backed by a radix tree rather than a plain map: kext identifiers are
// reverse-DNS dotted strings ("com.vendor.family.driver") that share
// long common prefixes within a vendor's bundle family, which is
// exactly the shape github.com/armon/go-radix compresses well. No
// locking is used: the core engine runs single-threaded, with all
// mutation happening during a rebuild a caller triggers explicitly.
type Index struct {
	t *radix.Tree
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{t: radix.New()}
}

func (ix *Index) get(id Identifier) (NodeRef, bool) {
	v, ok := ix.t.Get(string(id))
	if !ok {
		return NilRef, false
	}
	return v.(NodeRef), true
}

func (ix *Index) set(id Identifier, ref NodeRef) {
	ix.t.Insert(string(id), ref)
}

func (ix *Index) delete(id Identifier) {
	ix.t.Delete(string(id))
}

// Head returns the current head (maximum known version) for id.
func (ix *Index) Head(id Identifier) (NodeRef, bool) {
	return ix.get(id)
}

// Len returns the number of distinct identifiers in the index.
func (ix *Index) Len() int {
	return ix.t.Len()
}

// Identifiers returns every identifier currently in the index, in
// lexical (radix walk) order.
func (ix *Index) Identifiers() []Identifier {
	var out []Identifier
	ix.t.Walk(func(s string, _ interface{}) bool {
		out = append(out, Identifier(s))
		return false
	})
	return out
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.t = radix.New()
}

// Insert admits ref into the index, choosing its spine position by
// version comparison and demoting equal-version conflicts into the
// duplicate list.
//
// Inserting a ref that is already in id's tree is a no-op, so a second
// Insert of the same bundle leaves the index unchanged.
func (ix *Index) Insert(ref NodeRef) {
	b := ref.Bundle()
	id := b.Identifier()
	v := b.Version()

	head, ok := ix.get(id)
	if !ok {
		ix.set(id, ref)
		return
	}
	for _, node := range ix.CopyAllWith(id) {
		if node.Equal(ref) {
			return
		}
	}

	newRec := ref.Record()
	headBundle := head.Bundle()
	hv := headBundle.Version()

	switch {
	case v.GreaterThan(hv):
		newRec.Prior = head
		ix.set(id, ref)

	case v.LessThan(hv):
		prev := head
		cur := head.Record().Prior
		for !cur.IsNil() && cur.Bundle().Version().GreaterThan(v) {
			prev = cur
			cur = cur.Record().Prior
		}
		if !cur.IsNil() && cur.Bundle().Version().Equal(v) {
			last := cur
			for !last.Record().Duplicate.IsNil() {
				last = last.Record().Duplicate
			}
			last.Record().Duplicate = ref
			return
		}
		prev.Record().Prior = ref
		newRec.Prior = cur

	default:
		last := head
		for !last.Record().Duplicate.IsNil() {
			last = last.Record().Duplicate
		}
		last.Record().Duplicate = ref
	}
}

// Spine returns the strictly-decreasing version chain for id, head
// first, not including duplicates.
func (ix *Index) Spine(id Identifier) []NodeRef {
	head, ok := ix.get(id)
	if !ok {
		return nil
	}
	var out []NodeRef
	for cur := head; !cur.IsNil(); cur = cur.Record().Prior {
		out = append(out, cur)
	}
	return out
}

// Duplicates returns node's duplicate-version list, not including node
// itself.
func Duplicates(node NodeRef) []NodeRef {
	var out []NodeRef
	for cur := node.Record().Duplicate; !cur.IsNil(); cur = cur.Record().Duplicate {
		out = append(out, cur)
	}
	return out
}

// CopyAllWith flattens the full spine plus every duplicate list for id
// into an ordered sequence: spine order head→tail, each spine node's
// duplicates emitted before advancing to the next spine node.
func (ix *Index) CopyAllWith(id Identifier) []NodeRef {
	var out []NodeRef
	for _, node := range ix.Spine(id) {
		out = append(out, node)
		out = append(out, Duplicates(node)...)
	}
	return out
}
