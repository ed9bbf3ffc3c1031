// archive_test.go exercises §4.7/§6.3 and the §8 "Archive round-trip"
// and "Copy-on-write equivalence" properties.
package trie

import (
	"bytes"
	"testing"
)

func buildSampleTrie(t *testing.T) *Trie {
	t.Helper()
	tr := New()
	pairs := []struct{ k, v string }{
		{"painting", "place"},
		{"guest", "ship"},
		{"mud", "leave"},
		{"paper", "call"},
		{"gate", "boast"},
		{"dog", "puppy"},
		{"doge", "coin"},
		{"horse", "stallion"},
	}
	for _, p := range pairs {
		mustInsert(t, tr, p.k, p.v)
	}
	return tr
}

// TestArchiveRoundTrip exercises §8 "Archive round-trip".
func TestArchiveRoundTrip(t *testing.T) {
	tr := buildSampleTrie(t)
	wantHash := tr.Hash()

	archive, err := Serialize(tr.Root())
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	root, err := archive.Access()
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	accessed := NewFromPointer(root)

	if accessed.Hash() != wantHash {
		t.Fatalf("archived hash = %s, want %s", accessed.Hash(), wantHash)
	}

	keys := []string{"painting", "guest", "mud", "paper", "gate", "dog", "doge", "horse", "absent"}
	for _, k := range keys {
		want, err := tr.Get([]byte(k))
		if err != nil {
			t.Fatalf("owned get(%q): %v", k, err)
		}
		got, err := accessed.Get([]byte(k))
		if err != nil {
			t.Fatalf("archived get(%q): %v", k, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("get(%q): archived = %q, owned = %q", k, got, want)
		}
	}

	if err := VerifyReference(root); err != nil {
		t.Fatalf("verify reference: %v", err)
	}
}

func TestVerifyReference_NoopOnOwnedPointer(t *testing.T) {
	tr := buildSampleTrie(t)
	if err := VerifyReference(tr.Root()); err != nil {
		t.Fatalf("VerifyReference on an owned pointer should be a no-op, got %v", err)
	}
}

func TestVerifyReference_DetectsCorruption(t *testing.T) {
	// A single short leaf serialises as: [8-byte root offset][kindLeaf
	// byte][ref flag byte][inline-ref length byte][inline ref bytes]...
	// Flipping a byte inside the cached inline reference (without
	// touching its length prefix) corrupts the stored reference while
	// leaving the node's own path/value encoding, which
	// VerifyReference recomputes from scratch, untouched.
	tr := New()
	mustInsert(t, tr, "k", "v")

	archive, err := Serialize(tr.Root())
	if err != nil {
		t.Fatal(err)
	}
	data := append([]byte(nil), archive.Bytes()...)
	const refBytesStart = 8 /* header */ + 1 /* kind */ + 1 /* flag */ + 1 /* length */
	if len(data) <= refBytesStart {
		t.Fatalf("archive image too short to corrupt at offset %d: %d bytes", refBytesStart, len(data))
	}
	data[refBytesStart] ^= 0xff

	root, err := Access(data)
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if err := VerifyReference(root); err == nil {
		t.Fatal("expected VerifyReference to detect the corrupted cached reference")
	} else if err != ErrInvalidArchivedReference {
		t.Fatalf("expected ErrInvalidArchivedReference, got %v", err)
	}
}

// TestCopyOnWriteEquivalence exercises §8 "Copy-on-write equivalence":
// applying the same sequence of inserts/deletes to an owned trie and to
// an archived-then-mutated trie keeps their hashes equal after every
// step.
func TestCopyOnWriteEquivalence(t *testing.T) {
	base := buildSampleTrie(t)
	archive, err := Serialize(base.Root())
	if err != nil {
		t.Fatal(err)
	}
	root, err := archive.Access()
	if err != nil {
		t.Fatal(err)
	}
	archived := NewFromPointer(root)
	owned := buildSampleTrie(t)

	if archived.Hash() != owned.Hash() {
		t.Fatalf("initial hashes differ: archived = %s, owned = %s", archived.Hash(), owned.Hash())
	}

	ops := []struct {
		insert     bool
		key, value string
	}{
		{true, "alpha", "one"},
		{true, "alphabet", "two"},
		{false, "dog", ""},
		{true, "bravo", "three"},
		{false, "guest", ""},
		{true, "mud", "changed"},
		{false, "doge", ""},
	}
	for i, op := range ops {
		if op.insert {
			if _, err := archived.Insert([]byte(op.key), []byte(op.value)); err != nil {
				t.Fatalf("step %d: archived insert: %v", i, err)
			}
			if _, err := owned.Insert([]byte(op.key), []byte(op.value)); err != nil {
				t.Fatalf("step %d: owned insert: %v", i, err)
			}
		} else {
			if _, err := archived.Delete([]byte(op.key)); err != nil {
				t.Fatalf("step %d: archived delete: %v", i, err)
			}
			if _, err := owned.Delete([]byte(op.key)); err != nil {
				t.Fatalf("step %d: owned delete: %v", i, err)
			}
		}
		if archived.Hash() != owned.Hash() {
			t.Fatalf("step %d (%+v): hash mismatch: archived = %s, owned = %s", i, op, archived.Hash(), owned.Hash())
		}
	}

	// After any mutation the root pointer must have been promoted to
	// Owned; it no longer borrows from the original image.
	if archived.root.isArchived() {
		t.Fatal("root pointer should be Owned after mutation (copy-on-write)")
	}
}

func TestAccess_RejectsShortImage(t *testing.T) {
	if _, err := Access([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error accessing a too-short image")
	}
}

func TestAccess_RejectsCorruptRootOffset(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = 0xff
	}
	if _, err := Access(data); err == nil {
		t.Fatal("expected an error for a root offset past the end of the image")
	}
}
