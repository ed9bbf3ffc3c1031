// orphan.go supplements §4.6 with an accumulator for the orphan records
// AddOrphanedNodes produces. Grounded on crates/preflight/src/trie.rs's
// add_orphaned_nodes/proof_nodes_nibbles/nibbles_to_digest call pattern,
// where a preflight driver gathers orphans across many keys before
// resolving them together in a single pass; the core proof interface
// only ever emits one orphan per call, so something on the caller side
// has to collect them.
package trie

import "github.com/ethereum/go-ethereum/common"

// OrphanSet accumulates orphan records produced by AddOrphanedNodes
// across many non-inclusion proofs, keyed by target digest so the same
// orphan reported twice collapses to one entry.
type OrphanSet struct {
	byTarget map[common.Hash]*Orphan
}

// NewOrphanSet returns an empty OrphanSet.
func NewOrphanSet() *OrphanSet {
	return &OrphanSet{byTarget: make(map[common.Hash]*Orphan)}
}

// Add records o, a no-op if o is nil (the common case when the proof's
// final node was not an Extension and AddOrphanedNodes had nothing to
// report).
func (s *OrphanSet) Add(o *Orphan) {
	if o == nil {
		return
	}
	s.byTarget[o.Target] = o
}

// Resolved removes every orphan whose target digest already appears in
// resolved, leaving only genuinely outstanding orphans. Mirrors how the
// preflight driver filters against its current resolved set before
// reporting true orphans (§9, "Orphan emission").
func (s *OrphanSet) Resolved(resolved map[common.Hash]*node) {
	for target := range s.byTarget {
		if _, ok := resolved[target]; ok {
			delete(s.byTarget, target)
		}
	}
}

// List returns the currently outstanding orphans.
func (s *OrphanSet) List() []*Orphan {
	out := make([]*Orphan, 0, len(s.byTarget))
	for _, o := range s.byTarget {
		out = append(out, o)
	}
	return out
}

// Len reports the number of outstanding orphans.
func (s *OrphanSet) Len() int { return len(s.byTarget) }
