// proof.go implements §4.6/§6.4: parsing RLP-encoded proof nodes, splicing
// them into a single sparse trie, resolving digests against a supplied
// index, checking non-inclusion, and emitting orphan records for later
// resolution. Grounded on crates/preflight/src/trie.rs's usage of these
// operations (parse_proof/is_not_included/shorten_node_path/orphan
// bookkeeping) and on this repository's own RLP decoding conventions,
// since the functions themselves are designed fresh against §4.6/§6.4 —
// their Rust definitions live outside the retrieved source tree.
package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zethtrie/sparsetrie/rlp"
)

// DecodeNode RLP-decodes a single node per §6.5's three accepted shapes:
// a 17-item list (branch; the 17th item must be the empty string), a
// 2-item list (leaf if the compact flag's leaf bit is set, else
// extension), or a 32-byte string (digest). Any other shape is malformed
// input.
func DecodeNode(encoded []byte) (*node, error) {
	s := rlp.NewStreamFromBytes(encoded)
	kind, raw, err := s.Raw()
	if err != nil {
		return nil, fmt.Errorf("trie: decode node: %w", err)
	}
	return decodeNodeRaw(kind, raw)
}

func decodeNodeRaw(kind rlp.Kind, raw []byte) (*node, error) {
	switch kind {
	case rlp.String, rlp.Byte:
		payload, err := rlp.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("trie: decode node: %w", err)
		}
		switch len(payload) {
		case 0:
			return newNull(), nil
		case 32:
			var h common.Hash
			copy(h[:], payload)
			return newDigest(h), nil
		default:
			return nil, fmt.Errorf("trie: decode node: malformed %d-byte string item", len(payload))
		}

	case rlp.List:
		items, err := rlp.DecodeRawList(raw)
		if err != nil {
			return nil, fmt.Errorf("trie: decode node: %w", err)
		}
		switch len(items) {
		case 17:
			return decodeBranchItems(items)
		case 2:
			return decodeShortItems(items)
		default:
			return nil, fmt.Errorf("trie: decode node: expected 2 or 17 list items, got %d", len(items))
		}

	default:
		return nil, fmt.Errorf("trie: decode node: unexpected item kind %v", kind)
	}
}

func decodeBranchItems(items [][]byte) (*node, error) {
	valueItem, err := rlp.DecodeString(items[16])
	if err != nil {
		return nil, fmt.Errorf("trie: decode branch: %w", err)
	}
	if len(valueItem) != 0 {
		return nil, fmt.Errorf("trie: decode branch: %w", ErrValueInBranch)
	}
	b := newBranch()
	for i := 0; i < 16; i++ {
		child, err := decodeChildRef(items[i])
		if err != nil {
			return nil, err
		}
		if child != nil {
			b.children[i] = ownedPointer(child)
		}
	}
	return b, nil
}

func decodeShortItems(items [][]byte) (*node, error) {
	compact, err := rlp.DecodeString(items[0])
	if err != nil {
		return nil, fmt.Errorf("trie: decode node: %w", err)
	}
	nibs, isLeaf := prefixNibs(compact)
	if isLeaf {
		value, err := rlp.DecodeString(items[1])
		if err != nil {
			return nil, fmt.Errorf("trie: decode leaf value: %w", err)
		}
		return newLeaf(nibs, value), nil
	}
	child, err := decodeChildRef(items[1])
	if err != nil {
		return nil, err
	}
	if child == nil {
		child = newNull()
	}
	return newExtension(nibs, ownedPointer(child)), nil
}

// decodeChildRef decodes a branch slot or extension child reference: the
// empty string (nil/Null), a 32-byte string (Digest), or an inline
// RLP-encoded node (decoded recursively).
func decodeChildRef(raw []byte) (*node, error) {
	kind, payload, err := rlp.PeekKindAndPayload(raw)
	if err != nil {
		return nil, fmt.Errorf("trie: decode child reference: %w", err)
	}
	switch kind {
	case rlp.String, rlp.Byte:
		switch len(payload) {
		case 0:
			return nil, nil
		case 32:
			var h common.Hash
			copy(h[:], payload)
			return newDigest(h), nil
		default:
			return nil, fmt.Errorf("trie: decode child reference: malformed %d-byte string", len(payload))
		}
	case rlp.List:
		return decodeNodeRaw(rlp.List, raw)
	default:
		return nil, fmt.Errorf("trie: decode child reference: unexpected kind %v", kind)
	}
}

// ParseProof RLP-decodes each element of a proof into a trie node.
func ParseProof(rlpNodes [][]byte) ([]*node, error) {
	out := make([]*node, len(rlpNodes))
	for i, enc := range rlpNodes {
		n, err := DecodeNode(enc)
		if err != nil {
			return nil, fmt.Errorf("trie: parse proof node %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// MptFromProof splices a parsed proof's nodes into a single trie,
// substituting each Digest reference with the matching node (matched by
// reference equality), and returns the resulting root. A Digest reference
// with no matching node among nodes (such as a sibling subtree off the
// proof path) stays in place as a Digest node. Fails if a non-root node
// is not referenced by any parent, either by digest or inline.
func MptFromProof(nodes []*node) (*pointer, error) {
	if len(nodes) == 0 {
		return ownedPointer(newNull()), nil
	}

	byRef := make(map[common.Hash]*node, len(nodes))
	referenced := make(map[common.Hash]bool, len(nodes))
	for _, n := range nodes {
		byRef[n.hash()] = n
	}

	var splice func(n *node) error
	splice = func(n *node) error {
		switch n.k {
		case kindBranch:
			for i, c := range n.children {
				if c == nil {
					continue
				}
				child := c.asNodeReadOnly()
				if child.k != kindDigest {
					// Embedded inline in n: its reference is its own encoding.
					referenced[child.hash()] = true
					if err := splice(child); err != nil {
						return err
					}
					continue
				}
				match, ok := byRef[child.digest]
				if !ok {
					continue // digest not present among nodes; left unresolved for the caller
				}
				referenced[child.digest] = true
				n.children[i] = ownedPointer(match)
				if err := splice(match); err != nil {
					return err
				}
			}
			return nil
		case kindExtension:
			child := n.children[0].asNodeReadOnly()
			if child.k != kindDigest {
				// Embedded inline in n: its reference is its own encoding.
				referenced[child.hash()] = true
				return splice(child)
			}
			match, ok := byRef[child.digest]
			if !ok {
				return nil
			}
			referenced[child.digest] = true
			n.children[0] = ownedPointer(match)
			return splice(match)
		default:
			return nil
		}
	}

	root := nodes[0]
	if err := splice(root); err != nil {
		return nil, err
	}
	for _, n := range nodes[1:] {
		if !referenced[n.hash()] {
			return nil, fmt.Errorf("trie: malformed proof: node with reference %s is not referenced by any parent", n.hash())
		}
	}
	return ownedPointer(root), nil
}

// ResolveNodes recursively replaces any Digest node in root whose digest
// appears in index with the indexed node, descending into the
// replacement and any sibling subtrees.
func ResolveNodes(root *pointer, index map[common.Hash]*node) *pointer {
	n := root.asNodeReadOnly()
	switch n.k {
	case kindDigest:
		if repl, ok := index[n.digest]; ok {
			return ResolveNodes(ownedPointer(repl), index)
		}
		return root
	case kindBranch:
		for i, c := range n.children {
			if c != nil {
				n.children[i] = ResolveNodes(c, index)
			}
		}
		return ownedPointer(n)
	case kindExtension:
		n.children[0] = ResolveNodes(n.children[0], index)
		return ownedPointer(n)
	default:
		return root
	}
}

// IsNotIncluded runs get(key) against the proof's final (possibly
// partial) node and reports whether the key provably does not exist:
// true when get returns no value without needing to resolve any further
// digest.
func IsNotIncluded(key []byte, final *pointer) (bool, error) {
	v, err := final.get(toNibs(key))
	if err != nil {
		if _, ok := IsNodeNotResolved(err); ok {
			return false, nil
		}
		return false, err
	}
	return v == nil, nil
}

// Orphan is a (prefix, target-digest) pair derived from a non-inclusion
// proof, recording a subtree that may need later resolution.
type Orphan struct {
	Prefix []byte // nibble prefix leading to the orphaned subtree
	Target common.Hash
}

// AddOrphanedNodes enters into index every shortened form of the proof's
// final node on the path to key (via ShortenNodePath), and returns the
// orphan pair (prefix nibbles, target digest) when the final node is an
// Extension whose child is an unresolved Digest. Intended for non-inclusion proofs: the caller later filters
// the returned orphan against its already-resolved set before treating it
// as genuinely missing.
func AddOrphanedNodes(key []byte, final *pointer, index map[common.Hash]*node) (*Orphan, error) {
	n := final.asNodeReadOnly()
	shortened, err := ShortenNodePath(n)
	if err != nil {
		return nil, err
	}
	for _, sn := range shortened {
		index[sn.hash()] = sn
	}

	if n.k != kindExtension {
		return nil, nil
	}
	child := n.children[0].asNodeReadOnly()
	if child.k != kindDigest {
		return nil, nil
	}
	return &Orphan{Prefix: append([]byte(nil), n.path...), Target: child.digest}, nil
}

// ShortenNodePath produces the set of nodes reachable by dropping one
// nibble at a time from a Leaf's or Extension's path prefix. It is used
// so that a subsequent deletion/insertion can "see" the shorter path it
// implicitly requires. For a Leaf it returns copies whose paths run from
// the full path down to the last single nibble; the empty-path form is
// not produced, since a non-root leaf with an empty path is invalid
// (§3.2.5), and a Leaf whose path is already empty returns
// ErrEmptyPathLeaf. For an Extension it returns copies whose paths run
// from the full path down to the last single nibble, followed by the
// original node itself. Any other node is returned as the only element.
func ShortenNodePath(n *node) ([]*node, error) {
	switch n.k {
	case kindLeaf:
		out := make([]*node, 0, len(n.path))
		for l := len(n.path); l >= 1; l-- {
			out = append(out, newLeaf(n.path[len(n.path)-l:], n.value))
		}
		if len(n.path) == 0 {
			return nil, ErrEmptyPathLeaf
		}
		return out, nil

	case kindExtension:
		out := make([]*node, 0, len(n.path)+1)
		for l := len(n.path); l >= 0; l-- {
			if l == 0 {
				out = append(out, n)
				continue
			}
			out = append(out, newExtension(n.path[len(n.path)-l:], n.children[0]))
		}
		return out, nil

	default:
		return []*node{n}, nil
	}
}
