// node.go defines the tagged node variant that is the heart of the trie:
// exactly one of Null, Branch, Leaf, Extension, or Digest, plus a lazily
// computed and interior-mutable reference cache. Grounded on the
// original source's MptNode/MptNodeData split, adapted to a single Go
// struct with a kind tag rather than a Rust enum, in the style of this
// repository's existing tagged-node types.
package trie

import "github.com/ethereum/go-ethereum/common"

// kind discriminates the node variant.
type kind uint8

const (
	kindNull kind = iota
	kindBranch
	kindLeaf
	kindExtension
	kindDigest
)

func (k kind) String() string {
	switch k {
	case kindNull:
		return "null"
	case kindBranch:
		return "branch"
	case kindLeaf:
		return "leaf"
	case kindExtension:
		return "extension"
	case kindDigest:
		return "digest"
	default:
		return "unknown"
	}
}

// node is a single trie node. Which fields are meaningful depends on k:
//
//   - kindNull: no other field is meaningful.
//   - kindBranch: children holds up to 16 entries, indexed by nibble value;
//     a nil entry means an empty slot.
//   - kindLeaf: path is the remaining key nibbles, value is the stored
//     (non-empty) bytes.
//   - kindExtension: path is the shared nibble prefix, children[0] is the
//     single child (always a Branch or Digest at rest).
//   - kindDigest: digest holds the 32-byte placeholder hash.
//
// A node never mutates its kind in place except through the trie
// operations in ops.go, all of which invalidate refCache before
// returning.
type node struct {
	k kind

	children [16]*pointer // kindBranch; children[0] doubles as the sole child for kindExtension
	path     []byte       // kindLeaf, kindExtension: raw nibble sequence (no terminator, no flag byte)
	value    []byte       // kindLeaf
	digest   common.Hash  // kindDigest

	refCache    reference
	refCacheSet bool
}

// newNull returns a fresh Null node.
func newNull() *node {
	return &node{k: kindNull}
}

// newDigest returns a Digest node standing in for the given hash.
func newDigest(h common.Hash) *node {
	return &node{k: kindDigest, digest: h}
}

// newLeaf returns a Leaf node. value must be non-empty; callers enforce
// this at the public API boundary (§3.2.6).
func newLeaf(path, value []byte) *node {
	return &node{k: kindLeaf, path: append([]byte(nil), path...), value: value}
}

// newExtension returns an Extension node wrapping child.
func newExtension(path []byte, child *pointer) *node {
	n := &node{k: kindExtension, path: append([]byte(nil), path...)}
	n.children[0] = child
	return n
}

// newBranch returns an empty Branch node with no children set.
func newBranch() *node {
	return &node{k: kindBranch}
}

// isEmpty reports whether the node is the Null variant.
func (n *node) isEmpty() bool { return n.k == kindNull }

// isDigest reports whether the node is the Digest variant.
func (n *node) isDigest() bool { return n.k == kindDigest }

// invalidateRefCache clears the node's cached reference. Called on every
// node along the mutated path after a structural change, per §4.5.
func (n *node) invalidateRefCache() {
	n.refCacheSet = false
	n.refCache = reference{}
}

// size counts this node and all non-Digest, non-Null descendants owned
// by it (archived children are resolved transparently by pointer.size).
func (n *node) size() int {
	switch n.k {
	case kindNull, kindDigest:
		return 0
	case kindBranch:
		count := 1
		for _, c := range n.children {
			if c != nil {
				count += c.size()
			}
		}
		return count
	case kindExtension:
		return 1 + n.children[0].size()
	case kindLeaf:
		return 1
	default:
		return 0
	}
}
