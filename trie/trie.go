// trie.go implements §6.1/§6.2: the owned-trie and pointer-level external
// API. Grounded on the teacher repository's trie.go facade shape
// (New/Get/Put/Delete/Hash/Len/Empty), generalised to the pointer-backed,
// five-variant node taxonomy this package defines instead of
// go-ethereum's fullNode/shortNode/valueNode representation.
package trie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zethtrie/sparsetrie/log"
	"github.com/zethtrie/sparsetrie/rlp"
)

// Trie is a sparse Merkle-Patricia Trie. The zero value is not usable;
// construct one with New, NewFromDigest, or via the proof interface in
// proof.go. A Trie is not safe for concurrent use: callers must serialize
// access to a single Trie and to any subtrees it shares through an
// archived pointer, per §5.
type Trie struct {
	root *pointer
	log  *log.Logger
}

// New returns an empty trie.
func New() *Trie {
	return &Trie{root: ownedPointer(newNull()), log: disabledLogger}
}

// NewFromDigest constructs a trie rooted at a known digest: Null if d is
// the zero hash or the canonical empty-trie hash, otherwise a Digest
// placeholder standing in for an as-yet-unresolved subtree.
func NewFromDigest(d common.Hash) *Trie {
	if d == (common.Hash{}) || d == emptyTrieRoot {
		return New()
	}
	return &Trie{root: ownedPointer(newDigest(d)), log: disabledLogger}
}

// NewFromPointer wraps an existing pointer (owned or archived) as a Trie.
// Used by the archive and proof layers to hand back a root built by means
// other than New/NewFromDigest.
func NewFromPointer(p *pointer) *Trie {
	return &Trie{root: p, log: disabledLogger}
}

// SetLogger attaches a logger for diagnostic tracing. Passing nil
// disables logging.
func (t *Trie) SetLogger(l *log.Logger) {
	t.log = moduleLogger(l)
}

// Root returns the trie's underlying pointer, for callers that need to
// archive it or hand it to the proof interface.
func (t *Trie) Root() *pointer { return t.root }

// IsEmpty reports whether the trie holds the Null variant.
func (t *Trie) IsEmpty() bool { return t.root.isEmpty() }

// IsDigest reports whether the trie's root is an unresolved Digest.
func (t *Trie) IsDigest() bool { return t.root.isDigest() }

// Hash returns the trie's root hash.
func (t *Trie) Hash() common.Hash { return t.root.hash() }

// Size returns the count of non-Digest, non-Null nodes reachable from
// the root.
func (t *Trie) Size() int { return t.root.size() }

// Get returns the value stored at key, or nil if absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	v, err := t.root.get(toNibs(key))
	if err != nil {
		return nil, fmt.Errorf("trie: get %x: %w", key, err)
	}
	return v, nil
}

// GetRLP retrieves the value at key and RLP-decodes it into out.
func (t *Trie) GetRLP(key []byte, out interface{}) (bool, error) {
	v, err := t.Get(key)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	if err := rlp.DecodeBytes(v, out); err != nil {
		return false, fmt.Errorf("trie: decode value at %x: %w", key, err)
	}
	return true, nil
}

// Insert sets key to value, returning true if the trie changed. value
// must be non-empty, per §3.2.6; an empty value is a contract violation
// and panics, matching the owned-trie API's documented behaviour.
func (t *Trie) Insert(key, value []byte) (bool, error) {
	if len(value) == 0 {
		panic("trie: insert with empty value")
	}
	changed, err := t.root.insert(toNibs(key), value)
	if err != nil {
		if errors.Is(err, ErrValueInBranch) {
			t.log.Debug("insert rejected: value would land on a branch", "key", fmt.Sprintf("%x", key))
		}
		return false, fmt.Errorf("trie: insert %x: %w", key, err)
	}
	return changed, nil
}

// InsertRLP RLP-encodes val and inserts it at key.
func (t *Trie) InsertRLP(key []byte, val interface{}) (bool, error) {
	enc, err := rlp.EncodeToBytes(val)
	if err != nil {
		return false, fmt.Errorf("trie: encode value for %x: %w", key, err)
	}
	return t.Insert(key, enc)
}

// Delete removes key, returning true if it was present.
func (t *Trie) Delete(key []byte) (bool, error) {
	existed, err := t.root.delete(toNibs(key))
	if err != nil {
		return false, fmt.Errorf("trie: delete %x: %w", key, err)
	}
	return existed, nil
}

// Clear resets the trie to empty.
func (t *Trie) Clear() {
	t.root = ownedPointer(newNull())
}
