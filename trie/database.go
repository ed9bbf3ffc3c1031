// database.go supplements the proof interface with an optional node
// database binding: a sparse trie's Digest nodes can be resolved by hash
// lookup against a backing store, not only through explicit proof
// splicing. Adapted from this repository's own NodeDatabase
// (dirty/disk two-tier cache), generalised from go-ethereum-shaped
// hash-keyed blobs to this package's node type.
package trie

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNodeNotFound is returned by NodeReader implementations when a
// requested node hash is unknown to them.
var ErrNodeNotFound = errors.New("trie: node not found in database")

// NodeReader retrieves RLP-encoded trie nodes by hash from a backing
// store (disk, network, or another in-memory trie's committed set).
type NodeReader interface {
	Node(hash common.Hash) ([]byte, error)
}

// NodeDatabase caches dirty (uncommitted) nodes in memory, falling back
// to a NodeReader for nodes that have already been committed elsewhere.
type NodeDatabase struct {
	mu    sync.RWMutex
	dirty map[common.Hash][]byte
	disk  NodeReader
}

// NewNodeDatabase creates a node database backed by the given reader. If
// disk is nil, the database operates in memory only.
func NewNodeDatabase(disk NodeReader) *NodeDatabase {
	return &NodeDatabase{dirty: make(map[common.Hash][]byte), disk: disk}
}

// Put stores the RLP encoding of a node under its hash.
func (db *NodeDatabase) Put(hash common.Hash, encoded []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.dirty[hash] = append([]byte(nil), encoded...)
}

// Get retrieves the RLP encoding of a node by hash, checking the dirty
// cache before falling back to the backing reader.
func (db *NodeDatabase) Get(hash common.Hash) ([]byte, error) {
	db.mu.RLock()
	if enc, ok := db.dirty[hash]; ok {
		db.mu.RUnlock()
		return enc, nil
	}
	db.mu.RUnlock()

	if db.disk == nil {
		return nil, ErrNodeNotFound
	}
	return db.disk.Node(hash)
}

// ResolvableTrie pairs a sparse Trie with a NodeDatabase so Digest nodes
// encountered during traversal can be resolved on demand instead of only
// through an explicit proof. ResolveDigest is the bridge: callers catch a
// NodeNotResolvedError, call ResolveDigest, splice the result in with
// ResolveNodes, and retry.
type ResolvableTrie struct {
	Trie
	db *NodeDatabase
}

// NewResolvableTrie wraps t with a node database.
func NewResolvableTrie(t *Trie, db *NodeDatabase) *ResolvableTrie {
	return &ResolvableTrie{Trie: *t, db: db}
}

// ResolveDigest fetches and decodes the node stored under hash in the
// backing database.
func (rt *ResolvableTrie) ResolveDigest(hash common.Hash) (*node, error) {
	enc, err := rt.db.Get(hash)
	if err != nil {
		return nil, err
	}
	return DecodeNode(enc)
}

// GetResolving behaves like Get, but on encountering an unresolved
// Digest it fetches the missing subtree from the database, splices it
// into the trie in place, and retries, repeating until the key resolves
// or a digest is genuinely missing from the database.
func (rt *ResolvableTrie) GetResolving(key []byte) ([]byte, error) {
	for {
		v, err := rt.Get(key)
		if err == nil {
			return v, nil
		}
		digest, ok := IsNodeNotResolved(err)
		if !ok {
			return nil, err
		}
		repl, rerr := rt.ResolveDigest(digest)
		if rerr != nil {
			return nil, rerr
		}
		rt.root = ResolveNodes(rt.root, map[common.Hash]*node{digest: repl})
	}
}
