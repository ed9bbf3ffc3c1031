// reference.go implements the node reference: the way a node appears
// inside its parent, either as its raw RLP bytes (when short) or as the
// keccak-256 digest of those bytes (when 32 bytes or longer). Grounded
// on the original source's MptNodeReference enum (Bytes/Digest) and on
// this repository's own reference-caching conventions in hasher.go.
package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// inlineThreshold is the byte length at or above which a reference is a
// digest rather than inline bytes, per Ethereum's RLP-embedding rule.
const inlineThreshold = 32

// reference is either inline RLP bytes (len < 32) or a 32-byte digest
// reference. Exactly one of the two fields is meaningful at a time;
// isDigest selects which.
type reference struct {
	inline   []byte
	digest   common.Hash
	isDigest bool
}

// referenceFromRLP builds a reference from a node's already-computed RLP
// encoding: inline when the encoding is shorter than 32 bytes, otherwise
// the keccak-256 digest of the encoding.
func referenceFromRLP(encoded []byte) reference {
	if len(encoded) < inlineThreshold {
		return reference{inline: append([]byte(nil), encoded...)}
	}
	return reference{digest: crypto.Keccak256Hash(encoded), isDigest: true}
}

// referenceFromDigest wraps a known 32-byte digest directly, without
// requiring the underlying RLP bytes (used for Digest nodes).
func referenceFromDigest(h common.Hash) reference {
	return reference{digest: h, isDigest: true}
}

// encode appends the wire form of the reference to dst and returns the
// result: the raw inline bytes verbatim, or the RLP string encoding of
// the 32-byte digest (0x80+32 followed by the digest) when digest-shaped.
func (r reference) encode(dst []byte) []byte {
	if r.isDigest {
		dst = append(dst, 0x80+32)
		return append(dst, r.digest[:]...)
	}
	return append(dst, r.inline...)
}

// length reports the number of bytes encode would append: 33 for a
// digest reference, len(inline) for an inline one.
func (r reference) length() int {
	if r.isDigest {
		return 1 + common.HashLength
	}
	return len(r.inline)
}

// toDigest returns the 32-byte digest this reference denotes, rehashing
// inline bytes if necessary.
func (r reference) toDigest() common.Hash {
	if r.isDigest {
		return r.digest
	}
	return crypto.Keccak256Hash(r.inline)
}

// asSlice returns the reference's payload: the digest bytes or the
// inline bytes, without any RLP string framing.
func (r reference) asSlice() []byte {
	if r.isDigest {
		return r.digest[:]
	}
	return r.inline
}

// rlpEmptyString is the RLP encoding of the empty byte string, 0x80.
var rlpEmptyString = []byte{0x80}

// emptyTrieRoot is the canonical empty-trie hash keccak(rlp("")).
var emptyTrieRoot = crypto.Keccak256Hash(rlpEmptyString)
