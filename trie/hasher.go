// hasher.go implements §4.5: RLP encoding of nodes, reference caching, and
// the hash() operation. Adapted from this repository's own hasher.go
// encode/wrap-list shape, generalised to the five-variant node taxonomy
// (no value slot on branches) and backed by the package's own rlp codec.
package trie

import "github.com/zethtrie/sparsetrie/rlp"

// hash returns the node's canonical 32-byte hash: the empty-trie hash for
// Null, the digest itself for Digest, and keccak(rlp(node)) otherwise —
// which the reference machinery guarantees equals the digest-shaped
// reference when the encoding is long, or keccak(inline bytes) when
// short.
func (n *node) hash() (h [32]byte) {
	switch n.k {
	case kindNull:
		return emptyTrieRoot
	case kindDigest:
		return n.digest
	default:
		ref := n.reference()
		return ref.toDigest()
	}
}

// reference returns the node's cached reference, computing and caching it
// on demand per §4.5. Null and Digest nodes are handled by their callers
// (node.hash, pointer.referenceEncode) before this is invoked, since they have no RLP
// encoding of their own worth caching.
func (n *node) reference() reference {
	if n.refCacheSet {
		return n.refCache
	}
	enc := n.encodeRLP()
	ref := referenceFromRLP(enc)
	n.refCache = ref
	n.refCacheSet = true
	return ref
}

// encodeRLP produces the node's canonical RLP encoding per §4.5:
//   - Null: the single byte 0x80.
//   - Branch: a 17-item list, the 16 children's references followed by an
//     empty string (branches never carry a value).
//   - Leaf: a 2-item list [compact(path, leaf=true), value].
//   - Extension: a 2-item list [compact(path, leaf=false), child.reference].
//   - Digest: the RLP encoding of the 32-byte digest string.
func (n *node) encodeRLP() []byte {
	switch n.k {
	case kindNull:
		return []byte{0x80}

	case kindDigest:
		return rlp.EncodeBytes32(n.digest)

	case kindBranch:
		var payload []byte
		for _, c := range n.children {
			payload = appendChildRef(payload, c)
		}
		payload = append(payload, 0x80) // branches carry no value
		return rlp.WrapList(payload)

	case kindLeaf:
		compact := toCompact(n.path, true)
		var payload []byte
		payload = rlp.AppendBytes(payload, compact)
		payload = rlp.AppendBytes(payload, n.value)
		return rlp.WrapList(payload)

	case kindExtension:
		compact := toCompact(n.path, false)
		var payload []byte
		payload = rlp.AppendBytes(payload, compact)
		payload = appendChildRef(payload, n.children[0])
		return rlp.WrapList(payload)

	default:
		panic("trie: unknown node kind in encodeRLP")
	}
}

// appendChildRef appends the RLP reference encoding of a (possibly empty)
// branch slot or extension child to dst.
func appendChildRef(dst []byte, child *pointer) []byte {
	if child == nil {
		return append(dst, 0x80)
	}
	return child.referenceEncode(dst)
}
