// proof_test.go exercises §4.6/§6.4 and the §8 "Proof soundness"
// property: inclusion proofs parse and splice to a trie whose hash
// matches the claimed root, and non-inclusion proofs are correctly
// reported absent.
package trie

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zethtrie/sparsetrie/rlp"
)

// collectProofRLP walks t along key, returning the RLP encoding of every
// node visited (root first), the shape an Ethereum Merkle proof takes.
func collectProofRLP(t *testing.T, tr *Trie, key []byte) [][]byte {
	t.Helper()
	var out [][]byte
	nibs := toNibs(key)
	p := tr.root
	for {
		n := p.asNodeReadOnly()
		out = append(out, n.encodeRLP())
		switch n.k {
		case kindBranch:
			if len(nibs) == 0 {
				return out
			}
			child := n.children[nibs[0]]
			if child == nil {
				return out
			}
			nibs = nibs[1:]
			p = child
		case kindExtension:
			c := lcp(n.path, nibs)
			if c != len(n.path) {
				return out
			}
			nibs = nibs[c:]
			p = n.children[0]
		default:
			return out
		}
	}
}

func TestProofSoundness_Inclusion(t *testing.T) {
	tr := buildSampleTrie(t)
	root := tr.Hash()

	for _, key := range []string{"painting", "dog", "doge", "horse"} {
		proofRLP := collectProofRLP(t, tr, []byte(key))

		nodes, err := ParseProof(proofRLP)
		if err != nil {
			t.Fatalf("parse proof for %q: %v", key, err)
		}
		p, err := MptFromProof(nodes)
		if err != nil {
			t.Fatalf("splice proof for %q: %v", key, err)
		}
		if p.hash() != root {
			t.Fatalf("spliced proof hash for %q = %s, want %s", key, p.hash(), root)
		}

		want, err := tr.Get([]byte(key))
		if err != nil {
			t.Fatalf("trie get(%q): %v", key, err)
		}
		got, err := p.get(toNibs([]byte(key)))
		if err != nil {
			t.Fatalf("proof get(%q): %v", key, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("proof get(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestProofSoundness_NonInclusion(t *testing.T) {
	tr := buildSampleTrie(t)

	for _, key := range []string{"absentkey", "zzz", "p"} {
		proofRLP := collectProofRLP(t, tr, []byte(key))
		nodes, err := ParseProof(proofRLP)
		if err != nil {
			t.Fatalf("parse proof for %q: %v", key, err)
		}
		p, err := MptFromProof(nodes)
		if err != nil {
			t.Fatalf("splice proof for %q: %v", key, err)
		}

		notIncluded, err := IsNotIncluded([]byte(key), p)
		if err != nil {
			t.Fatalf("IsNotIncluded(%q): %v", key, err)
		}
		if !notIncluded {
			t.Fatalf("expected %q to be reported as not included", key)
		}
	}
}

func TestDecodeNode_RoundTrip(t *testing.T) {
	tr := buildSampleTrie(t)
	n := tr.root.asNodeReadOnly()
	enc := n.encodeRLP()

	decoded, err := DecodeNode(enc)
	if err != nil {
		t.Fatalf("decode root: %v", err)
	}
	if decoded.hash() != n.hash() {
		t.Fatalf("decoded node hash = %s, want %s", decoded.hash(), n.hash())
	}
}

func TestDecodeNode_RejectsBranchWithValue(t *testing.T) {
	b := newBranch()
	b.children[1] = ownedPointer(newLeaf([]byte{1}, []byte("x")))
	b.children[2] = ownedPointer(newLeaf([]byte{2}, []byte("y")))
	enc := b.encodeRLP()

	// Corrupt the encoding by hand-crafting a 17-item list whose 17th
	// item is non-empty, the one shape §6.5 forbids branches from
	// taking (§3.2.2 "no branch stores a value").
	items, err := rlp.DecodeRawList(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 17 {
		t.Fatalf("expected 17 branch items, got %d", len(items))
	}
	var payload []byte
	for i := 0; i < 16; i++ {
		payload = append(payload, items[i]...)
	}
	payload = rlp.AppendBytes(payload, []byte("not-allowed"))
	malformed := rlp.WrapList(payload)

	if _, err := DecodeNode(malformed); err == nil {
		t.Fatal("expected DecodeNode to reject a branch whose 17th item is non-empty")
	}
}

// MptFromProof over an empty proof returns the Null trie: the spec
// places no requirement on a zero-length proof, but the function must
// not panic on it.
func TestMptFromProof_Empty(t *testing.T) {
	p, err := MptFromProof(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !p.isEmpty() {
		t.Fatal("MptFromProof(nil) should yield the Null trie")
	}
}

func TestResolveNodes(t *testing.T) {
	tr := buildSampleTrie(t)
	root := tr.Hash()

	// Build a digest-only stand-in for the root, then resolve it back
	// using an index containing every reachable node.
	index := make(map[common.Hash]*node)
	var collect func(p *pointer)
	collect = func(p *pointer) {
		n := p.asNodeReadOnly()
		index[n.hash()] = n
		switch n.k {
		case kindBranch:
			for _, c := range n.children {
				if c != nil {
					collect(c)
				}
			}
		case kindExtension:
			collect(n.children[0])
		}
	}
	collect(tr.root)

	digestRoot := ownedPointer(newDigest(root))
	resolved := ResolveNodes(digestRoot, index)
	if resolved.hash() != root {
		t.Fatalf("resolved hash = %s, want %s", resolved.hash(), root)
	}

	got, err := resolved.get(toNibs([]byte("painting")))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "place" {
		t.Fatalf("resolved get(painting) = %q, want %q", got, "place")
	}
}

func TestShortenNodePath_Leaf(t *testing.T) {
	leaf := newLeaf([]byte{1, 2, 3}, []byte("v"))
	out, err := ShortenNodePath(leaf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 shortened forms for a 3-nibble leaf, got %d", len(out))
	}
	for i, n := range out {
		wantLen := 3 - i
		if len(n.path) != wantLen {
			t.Fatalf("shortened[%d].path len = %d, want %d", i, len(n.path), wantLen)
		}
	}
}

func TestShortenNodePath_EmptyLeafIsInvalid(t *testing.T) {
	leaf := newLeaf(nil, []byte("v"))
	if _, err := ShortenNodePath(leaf); err != ErrEmptyPathLeaf {
		t.Fatalf("expected ErrEmptyPathLeaf, got %v", err)
	}
}

func TestShortenNodePath_Extension(t *testing.T) {
	child := ownedPointer(newBranch())
	ext := newExtension([]byte{1, 2}, child)
	out, err := ShortenNodePath(ext)
	if err != nil {
		t.Fatal(err)
	}
	// len(path)+1 forms: copies with paths [1,2] and [2], then the
	// original node itself.
	if len(out) != 3 {
		t.Fatalf("expected 3 shortened forms, got %d", len(out))
	}
	if out[len(out)-1] != ext {
		t.Fatal("final shortened form should be the original node itself")
	}
}

func TestAddOrphanedNodes(t *testing.T) {
	var target common.Hash
	target[0] = 0xcd
	ext := newExtension([]byte{3, 4}, ownedPointer(newDigest(target)))

	index := make(map[common.Hash]*node)
	orphan, err := AddOrphanedNodes([]byte("key"), ownedPointer(ext), index)
	if err != nil {
		t.Fatal(err)
	}
	if orphan == nil {
		t.Fatal("expected an orphan record for an extension pointing at an unresolved digest")
	}
	if orphan.Target != target {
		t.Fatalf("orphan target = %x, want %x", orphan.Target, target)
	}
	if !bytes.Equal(orphan.Prefix, []byte{3, 4}) {
		t.Fatalf("orphan prefix = %v, want [3 4]", orphan.Prefix)
	}
	if len(index) == 0 {
		t.Fatal("expected shortened forms to be recorded in the index")
	}
}

func TestOrphanSet(t *testing.T) {
	s := NewOrphanSet()
	s.Add(nil) // no-op

	var d1, d2 common.Hash
	d1[0] = 1
	d2[0] = 2
	s.Add(&Orphan{Prefix: []byte{1}, Target: d1})
	s.Add(&Orphan{Prefix: []byte{2}, Target: d2})
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	resolved := map[common.Hash]*node{d1: newNull()}
	s.Resolved(resolved)
	if s.Len() != 1 {
		t.Fatalf("after Resolved, Len() = %d, want 1", s.Len())
	}
	remaining := s.List()
	if len(remaining) != 1 || remaining[0].Target != d2 {
		t.Fatalf("remaining orphans = %+v, want just d2", remaining)
	}
}
