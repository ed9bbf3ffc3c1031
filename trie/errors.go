package trie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrValueInBranch is returned when an operation would assign or remove a
// value at a key whose nibble path terminates at a branch. Branches never
// carry a value; this is always a caller bug in Ethereum-shaped workloads
// and is never recovered internally.
var ErrValueInBranch = errors.New("trie: branch node cannot carry a value")

// ErrInvalidArchivedReference is returned by VerifyReference when an
// archived node's cached reference does not match its recomputed RLP
// reference. The image is corrupt or built against a mismatched schema
// version; this error is non-recoverable.
var ErrInvalidArchivedReference = errors.New("trie: archived node reference mismatch")

// ErrEmptyPathLeaf is returned by ShortenNodePath when it is given a Leaf
// whose path is already empty; a non-root leaf with an empty path is
// forbidden by §3.2.5.
var ErrEmptyPathLeaf = errors.New("trie: non-root leaf with empty path")

// NodeNotResolvedError is the sole mechanism by which a sparse trie signals
// "I cannot answer this request without more data": a traversal descended
// into a Digest node whose content is required. Callers recover by
// providing the missing subtree (via ResolveNodes or a deeper proof) and
// retrying the operation.
type NodeNotResolvedError struct {
	Digest common.Hash
}

func (e *NodeNotResolvedError) Error() string {
	return fmt.Sprintf("trie: node not resolved: digest %s required", e.Digest)
}

// errNodeNotResolved constructs a NodeNotResolvedError for the given digest.
func errNodeNotResolved(digest common.Hash) error {
	return &NodeNotResolvedError{Digest: digest}
}

// IsNodeNotResolved reports whether err is (or wraps) a NodeNotResolvedError,
// and if so returns the digest it names.
func IsNodeNotResolved(err error) (common.Hash, bool) {
	var nre *NodeNotResolvedError
	if errors.As(err, &nre) {
		return nre.Digest, true
	}
	return common.Hash{}, false
}
