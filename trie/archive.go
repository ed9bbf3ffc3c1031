// archive.go implements §4.7 and §6.3: a zero-copy archived mirror of a
// node tree backed by a single contiguous byte image, and the loader
// that memory-maps such an image from disk via mmap-go for true
// zero-copy access. Cross-references inside the image are offsets into
// the same byte slice; every archived non-Null, non-Digest node carries
// its cached reference alongside it, since the image is immutable.
//
// This is a from-scratch binary framing (no flatbuffers/capnproto
// dependency was present anywhere in the retrieved example pack), kept
// deliberately small: a one-byte kind tag per node, a length-prefixed
// reference, and uvarint-encoded offsets/lengths via the standard
// library's encoding/binary, the same low-level approach this
// repository's own rlp/encoder_pool.go already uses for its zero-alloc
// fast paths.
package trie

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/ethereum/go-ethereum/common"
)

// Archive is an owned, contiguous byte image produced by Serialize.
type Archive struct {
	data []byte
}

// Bytes returns the archive's raw byte image.
func (a *Archive) Bytes() []byte { return a.data }

// Access wraps an Archive's byte image as a read-only pointer rooted at
// the image's stored root offset. Callers should call VerifyReference on
// the result before trusting it, per §4.7.
func (a *Archive) Access() (*pointer, error) {
	return Access(a.data)
}

// Access wraps a raw byte image (e.g. one obtained via mmap) as a
// read-only pointer rooted at the image's stored root offset.
func Access(data []byte) (*pointer, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("trie: archive image too short: %d bytes", len(data))
	}
	rootOff := binary.LittleEndian.Uint64(data[0:8])
	if rootOff >= uint64(len(data)) {
		return nil, fmt.Errorf("trie: archive image has corrupt root offset %d", rootOff)
	}
	return archivedPointer(&archivedNode{data: data, off: int(rootOff)}), nil
}

// LoadMmap memory-maps the archive image at path read-only and returns a
// pointer rooted at it, plus a function that unmaps and closes the
// backing file. The returned pointer (and anything derived from it)
// becomes invalid once close is called.
func LoadMmap(path string) (p *pointer, closeFn func() error, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("trie: open archive %q: %w", path, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("trie: mmap archive %q: %w", path, err)
	}
	p, err = Access([]byte(m))
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, nil, err
	}
	closeFn = func() error {
		if uerr := m.Unmap(); uerr != nil {
			f.Close()
			return uerr
		}
		return f.Close()
	}
	return p, closeFn, nil
}

// Serialize rehydrates any archived sub-pointers of root to owned copies
// where needed and writes a fresh, self-contained byte image for the
// whole subtree, computing every node's hash (and therefore its cached
// reference) before writing so the image carries canonical references.
func Serialize(root *pointer) (*Archive, error) {
	buf := make([]byte, 8) // reserved for the root offset header
	rootOff, err := serializePointer(&buf, root)
	if err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(buf[0:8], uint64(rootOff))
	return &Archive{data: buf}, nil
}

// VerifyReference recursively checks that every non-Digest, non-Null
// archived node's cached reference equals the reference recomputed from
// its RLP encoding, and that every Digest node's cached reference is
// that digest. It is a no-op for a pointer that is not (or no longer)
// archived.
func VerifyReference(p *pointer) error {
	if !p.isArchived() {
		return nil
	}
	return verifyArchivedNode(p.arc)
}

func verifyArchivedNode(a *archivedNode) error {
	n := a.toOwnedShallow()
	switch n.k {
	case kindNull:
		return nil

	case kindDigest:
		if n.refCache.toDigest() != n.digest {
			return ErrInvalidArchivedReference
		}
		return nil

	default:
		want := referenceFromRLP(n.encodeRLP())
		if !referencesEqual(n.refCache, want) {
			return ErrInvalidArchivedReference
		}
		switch n.k {
		case kindBranch:
			for _, c := range n.children {
				if c != nil && c.isArchived() {
					if err := verifyArchivedNode(c.arc); err != nil {
						return err
					}
				}
			}
		case kindExtension:
			if n.children[0].isArchived() {
				if err := verifyArchivedNode(n.children[0].arc); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

func referencesEqual(a, b reference) bool {
	if a.isDigest != b.isDigest {
		return false
	}
	if a.isDigest {
		return a.digest == b.digest
	}
	return bytes.Equal(a.inline, b.inline)
}

// archivedNode is a read-only, offset-addressed view into an archive's
// byte image. It never mutates data; mutation always goes through
// pointer.insert/delete's copy-on-write path, which materialises a
// shallow owned *node first.
type archivedNode struct {
	data []byte
	off  int
}

func (a *archivedNode) kind() kind { return kind(a.data[a.off]) }

func (a *archivedNode) isEmpty() bool  { return a.kind() == kindNull }
func (a *archivedNode) isDigest() bool { return a.kind() == kindDigest }

func (a *archivedNode) hash() [32]byte { return a.toOwnedShallow().hash() }
func (a *archivedNode) size() int      { return a.toOwnedShallow().size() }

func (a *archivedNode) referenceEncode(dst []byte) []byte {
	n := a.toOwnedShallow()
	switch n.k {
	case kindNull:
		return append(dst, 0x80)
	case kindDigest:
		return append(dst, rlpEncodeDigest(n.digest)...)
	default:
		return n.reference().encode(dst)
	}
}

func (a *archivedNode) get(nibs []byte) ([]byte, error) {
	return a.toOwnedShallow().get(nibs)
}

func (a *archivedNode) insert(nibs, value []byte) (bool, *node, error) {
	shallow := a.toOwnedShallow()
	changed, repl, err := shallow.insert(nibs, value)
	if err != nil {
		return false, nil, err
	}
	if !changed {
		return false, nil, nil
	}
	if repl != nil {
		return true, repl, nil
	}
	return true, shallow, nil
}

func (a *archivedNode) delete(nibs []byte) (bool, *node, error) {
	shallow := a.toOwnedShallow()
	changed, repl, err := shallow.delete(nibs)
	if err != nil {
		return false, nil, err
	}
	if !changed {
		return false, nil, nil
	}
	if repl != nil {
		return true, repl, nil
	}
	return true, shallow, nil
}

// toOwnedShallow decodes the node header at a's offset into a fresh
// *node whose own fields are fully populated but whose children (for
// Branch/Extension) remain Archived pointers into the same image —
// materialising exactly one level per call.
func (a *archivedNode) toOwnedShallow() *node {
	data, off := a.data, a.off
	k := kind(data[off])
	off++

	switch k {
	case kindNull:
		return &node{k: kindNull}

	case kindDigest:
		var h common.Hash
		copy(h[:], data[off:off+32])
		return &node{k: kindDigest, digest: h, refCache: referenceFromDigest(h), refCacheSet: true}

	case kindLeaf:
		ref, off1 := readRef(data, off)
		pathLen, off2 := readUvarint(data, off1)
		path := data[off2 : off2+int(pathLen)]
		off3 := off2 + int(pathLen)
		valLen, off4 := readUvarint(data, off3)
		value := data[off4 : off4+int(valLen)]
		return &node{k: kindLeaf, path: path, value: value, refCache: ref, refCacheSet: true}

	case kindExtension:
		ref, off1 := readRef(data, off)
		pathLen, off2 := readUvarint(data, off1)
		path := data[off2 : off2+int(pathLen)]
		off3 := off2 + int(pathLen)
		childOff, _ := readUvarint(data, off3)
		n := &node{k: kindExtension, path: path, refCache: ref, refCacheSet: true}
		n.children[0] = archivedPointer(&archivedNode{data: data, off: int(childOff)})
		return n

	case kindBranch:
		ref, off1 := readRef(data, off)
		n := &node{k: kindBranch, refCache: ref, refCacheSet: true}
		cur := off1
		for i := 0; i < 16; i++ {
			present := data[cur]
			cur++
			if present == 1 {
				childOff, next := readUvarint(data, cur)
				cur = next
				n.children[i] = archivedPointer(&archivedNode{data: data, off: int(childOff)})
			}
		}
		return n

	default:
		panic(fmt.Sprintf("trie: corrupt archive: unknown node kind %d at offset %d", k, a.off))
	}
}

// serializePointer writes p's subtree (rehydrating archived children to
// owned first, per §6.3) and returns the offset at which its node header
// begins.
func serializePointer(buf *[]byte, p *pointer) (int, error) {
	if p.isArchived() {
		p.toOwned()
	}
	return serializeOwnedNode(buf, p.own)
}

func serializeOwnedNode(buf *[]byte, n *node) (int, error) {
	switch n.k {
	case kindNull:
		off := len(*buf)
		*buf = append(*buf, byte(kindNull))
		return off, nil

	case kindDigest:
		off := len(*buf)
		*buf = append(*buf, byte(kindDigest))
		*buf = append(*buf, n.digest[:]...)
		return off, nil

	case kindLeaf:
		ref := n.reference()
		var b []byte
		b = append(b, byte(kindLeaf))
		b = appendRef(b, ref)
		b = appendUvarint(b, uint64(len(n.path)))
		b = append(b, n.path...)
		b = appendUvarint(b, uint64(len(n.value)))
		b = append(b, n.value...)
		off := len(*buf)
		*buf = append(*buf, b...)
		return off, nil

	case kindExtension:
		childOff, err := serializePointer(buf, n.children[0])
		if err != nil {
			return 0, err
		}
		ref := n.reference()
		var b []byte
		b = append(b, byte(kindExtension))
		b = appendRef(b, ref)
		b = appendUvarint(b, uint64(len(n.path)))
		b = append(b, n.path...)
		b = appendUvarint(b, uint64(childOff))
		off := len(*buf)
		*buf = append(*buf, b...)
		return off, nil

	case kindBranch:
		var childOffs [16]int
		var present [16]bool
		for i, c := range n.children {
			if c == nil || c.isEmpty() {
				continue
			}
			o, err := serializePointer(buf, c)
			if err != nil {
				return 0, err
			}
			childOffs[i] = o
			present[i] = true
		}
		ref := n.reference()
		var b []byte
		b = append(b, byte(kindBranch))
		b = appendRef(b, ref)
		for i := 0; i < 16; i++ {
			if present[i] {
				b = append(b, 1)
				b = appendUvarint(b, uint64(childOffs[i]))
			} else {
				b = append(b, 0)
			}
		}
		off := len(*buf)
		*buf = append(*buf, b...)
		return off, nil

	default:
		return 0, fmt.Errorf("trie: cannot serialize unknown node kind %d", n.k)
	}
}

func appendRef(b []byte, r reference) []byte {
	if r.isDigest {
		b = append(b, 1)
		return append(b, r.digest[:]...)
	}
	b = append(b, 0)
	b = append(b, byte(len(r.inline)))
	return append(b, r.inline...)
}

func readRef(data []byte, off int) (reference, int) {
	flag := data[off]
	off++
	if flag == 1 {
		var h common.Hash
		copy(h[:], data[off:off+32])
		return referenceFromDigest(h), off + 32
	}
	l := int(data[off])
	off++
	inline := data[off : off+l]
	return reference{inline: inline}, off + l
}

func appendUvarint(b []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(b, tmp[:n]...)
}

func readUvarint(data []byte, off int) (uint64, int) {
	v, n := binary.Uvarint(data[off:])
	return v, off + n
}
