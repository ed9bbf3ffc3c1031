// pointer.go implements §4.7: the ownership-polymorphic node pointer. A
// pointer is either Owned (a mutable *node the trie exclusively owns) or
// Archived (a read-only view into a byte image). All public trie
// operations dispatch through a pointer; insert/delete against an
// Archived pointer perform copy-on-write, rerunning the mutation against
// the archived node's logical content and rewriting the pointer to Owned
// with a replacement subtree whose untouched children remain Archived.
//
// Grounded on the original source's MptNodePointer<'a> enum and its
// data_insert/data_delete dispatch, adapted to Go's lack of sum types via
// an explicit discriminant plus two mutually exclusive fields.
package trie

// pointer is either an owned, mutable node or a read-only archived view.
// Exactly one of own/arc is non-nil.
type pointer struct {
	own *node
	arc *archivedNode
}

// ownedPointer wraps n as an Owned pointer.
func ownedPointer(n *node) *pointer {
	return &pointer{own: n}
}

// archivedPointer wraps a as an Archived pointer.
func archivedPointer(a *archivedNode) *pointer {
	return &pointer{arc: a}
}

// isArchived reports whether the pointer currently borrows from an image.
func (p *pointer) isArchived() bool { return p.arc != nil }

// kind reports the node variant this pointer currently denotes, without
// promoting an archived pointer to owned.
func (p *pointer) kind() kind {
	if p.own != nil {
		return p.own.k
	}
	return p.arc.kind()
}

// toOwned returns the owned *node backing this pointer, materialising a
// shallow owned copy from the archived view first if necessary. Children
// of the materialised copy remain Archived pointers: only the node being
// directly touched is deserialised.
func (p *pointer) toOwned() *node {
	if p.own != nil {
		return p.own
	}
	owned := p.arc.toOwnedShallow()
	p.own = owned
	p.arc = nil
	return owned
}

// asNodeReadOnly returns a *node view for read-only dispatch (get, hash,
// size, ...) without promoting an archived pointer to owned. For archived
// pointers this is a shallow, on-demand view built fresh each call; it is
// never mutated.
func (p *pointer) asNodeReadOnly() *node {
	if p.own != nil {
		return p.own
	}
	return p.arc.toOwnedShallow()
}

// isEmpty reports whether the pointer denotes the Null variant.
func (p *pointer) isEmpty() bool {
	if p.own != nil {
		return p.own.isEmpty()
	}
	return p.arc.isEmpty()
}

// isDigest reports whether the pointer denotes the Digest variant.
func (p *pointer) isDigest() bool {
	if p.own != nil {
		return p.own.isDigest()
	}
	return p.arc.isDigest()
}

// hash returns the pointer's canonical hash, dispatching to the owned or
// archived reference cache as appropriate.
func (p *pointer) hash() [32]byte {
	if p.own != nil {
		return p.own.hash()
	}
	return p.arc.hash()
}

// size counts non-Digest, non-Null descendants reachable from this
// pointer, resolving archived structure transparently.
func (p *pointer) size() int {
	if p.own != nil {
		return p.own.size()
	}
	return p.arc.size()
}

// referenceEncode appends this pointer's RLP reference encoding to dst.
func (p *pointer) referenceEncode(dst []byte) []byte {
	if p.own != nil {
		switch p.own.k {
		case kindNull:
			return append(dst, 0x80)
		case kindDigest:
			return append(dst, rlpEncodeDigest(p.own.digest)...)
		default:
			return p.own.reference().encode(dst)
		}
	}
	return p.arc.referenceEncode(dst)
}

// get implements §4.3 get over a pointer, dispatching to the owned or
// archived node. Archived nodes never need copy-on-write for reads.
func (p *pointer) get(nibs []byte) ([]byte, error) {
	if p.own != nil {
		return p.own.get(nibs)
	}
	return p.arc.get(nibs)
}

// insert implements §4.3/§6.2 insert over a pointer. If the pointer is
// Archived, the mutation is computed against the archived content and,
// if it changed anything, the pointer is rewritten to Owned holding the
// replacement; unmodified archived children inside that replacement stay
// Archived (copy-on-write).
func (p *pointer) insert(nibs, value []byte) (bool, error) {
	if p.own != nil {
		changed, replacement, err := p.own.insert(nibs, value)
		if err != nil {
			return false, err
		}
		if replacement != nil {
			p.own = replacement
		}
		return changed, nil
	}
	changed, replacement, err := p.arc.insert(nibs, value)
	if err != nil {
		return false, err
	}
	if changed {
		p.own = replacement
		p.arc = nil
	}
	return changed, nil
}

// delete implements §4.3/§6.2 delete over a pointer, with the same
// copy-on-write behaviour as insert.
func (p *pointer) delete(nibs []byte) (bool, error) {
	if p.own != nil {
		changed, replacement, err := p.own.delete(nibs)
		if err != nil {
			return false, err
		}
		if replacement != nil {
			p.own = replacement
		}
		return changed, nil
	}
	changed, replacement, err := p.arc.delete(nibs)
	if err != nil {
		return false, err
	}
	if changed {
		p.own = replacement
		p.arc = nil
	}
	return changed, nil
}

// rlpEncodeDigest is the RLP string encoding of a 32-byte digest.
func rlpEncodeDigest(h [32]byte) []byte {
	buf := make([]byte, 33)
	buf[0] = 0x80 + 32
	copy(buf[1:], h[:])
	return buf
}
