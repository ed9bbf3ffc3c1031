// ops.go implements §4.3 (get/insert/delete) and §4.4 (maybe_collapse)
// over the owned node representation. Grounded on the original source's
// MptNodeData::get/insert/delete/maybe_collapse, adapted to Go methods
// returning an explicit (changed, replacement, error) triple in place of
// Rust's in-place enum reassignment: replacement == nil means the node
// was mutated in place and the caller should keep using it; a non-nil
// replacement means the node's kind itself changed and the caller (the
// owning pointer, or a parent branch/extension) must swap it in.
package trie

import "bytes"

// get implements §4.3 get: traverses the trie along nibs, returning the
// stored value at an exact leaf match, or nil if the key is absent.
func (n *node) get(nibs []byte) ([]byte, error) {
	switch n.k {
	case kindNull:
		return nil, nil

	case kindBranch:
		if len(nibs) == 0 {
			return nil, nil // path exhausted at a branch: no value lives here
		}
		child := n.children[nibs[0]]
		if child == nil {
			return nil, nil
		}
		return child.get(nibs[1:])

	case kindLeaf:
		if bytes.Equal(n.path, nibs) {
			return n.value, nil
		}
		return nil, nil

	case kindExtension:
		c := lcp(n.path, nibs)
		if c == len(n.path) {
			return n.children[0].get(nibs[c:])
		}
		return nil, nil

	case kindDigest:
		return nil, errNodeNotResolved(n.digest)

	default:
		panic("trie: unknown node kind in get")
	}
}

// insert implements §4.3 insert. value must be non-empty; callers enforce
// this at the public API boundary.
func (n *node) insert(nibs, value []byte) (changed bool, replacement *node, err error) {
	switch n.k {
	case kindNull:
		return true, newLeaf(nibs, value), nil

	case kindBranch:
		if len(nibs) == 0 {
			return false, nil, ErrValueInBranch
		}
		i, tail := nibs[0], nibs[1:]
		child := n.children[i]
		if child == nil {
			n.children[i] = ownedPointer(newLeaf(tail, value))
			n.invalidateRefCache()
			return true, nil, nil
		}
		ch, err := child.insert(tail, value)
		if err != nil {
			return false, nil, err
		}
		if ch {
			n.invalidateRefCache()
		}
		return ch, nil, nil

	case kindLeaf:
		c := lcp(n.path, nibs)
		switch {
		case c == len(n.path) && c == len(nibs):
			if bytes.Equal(n.value, value) {
				return false, nil, nil
			}
			n.value = value
			n.invalidateRefCache()
			return true, nil, nil

		case c == len(n.path) || c == len(nibs):
			return false, nil, ErrValueInBranch

		default:
			branch := newBranch()
			branch.children[n.path[c]] = ownedPointer(newLeaf(n.path[c+1:], n.value))
			branch.children[nibs[c]] = ownedPointer(newLeaf(nibs[c+1:], value))
			if c > 0 {
				return true, newExtension(n.path[:c], ownedPointer(branch)), nil
			}
			return true, branch, nil
		}

	case kindExtension:
		c := lcp(n.path, nibs)
		switch {
		case c == len(n.path):
			ch, err := n.children[0].insert(nibs[c:], value)
			if err != nil {
				return false, nil, err
			}
			if ch {
				n.invalidateRefCache()
			}
			return ch, nil, nil

		case c == len(nibs):
			return false, nil, ErrValueInBranch

		default:
			branch := newBranch()
			if c+1 == len(n.path) {
				branch.children[n.path[c]] = n.children[0]
			} else {
				branch.children[n.path[c]] = ownedPointer(newExtension(n.path[c+1:], n.children[0]))
			}
			branch.children[nibs[c]] = ownedPointer(newLeaf(nibs[c+1:], value))
			if c > 0 {
				return true, newExtension(n.path[:c], ownedPointer(branch)), nil
			}
			return true, branch, nil
		}

	case kindDigest:
		return false, nil, errNodeNotResolved(n.digest)

	default:
		panic("trie: unknown node kind in insert")
	}
}

// delete implements §4.3 delete followed by §4.4 maybe_collapse on the
// mutated path.
func (n *node) delete(nibs []byte) (existed bool, replacement *node, err error) {
	switch n.k {
	case kindNull:
		return false, nil, nil

	case kindLeaf:
		if bytes.Equal(n.path, nibs) {
			return true, newNull(), nil
		}
		return false, nil, nil

	case kindExtension:
		if !bytes.HasPrefix(nibs, n.path) {
			return false, nil, nil
		}
		changed, err := n.children[0].delete(nibs[len(n.path):])
		if err != nil {
			return false, nil, err
		}
		if !changed {
			return false, nil, nil
		}
		n.invalidateRefCache()
		repl, err := maybeCollapseExtension(n)
		if err != nil {
			return false, nil, err
		}
		return true, repl, nil

	case kindBranch:
		if len(nibs) == 0 {
			return false, nil, nil
		}
		i, tail := nibs[0], nibs[1:]
		child := n.children[i]
		if child == nil {
			return false, nil, nil
		}
		changed, err := child.delete(tail)
		if err != nil {
			return false, nil, err
		}
		if !changed {
			return false, nil, nil
		}
		if child.isEmpty() {
			n.children[i] = nil
		}
		n.invalidateRefCache()
		repl, err := maybeCollapseBranch(n)
		if err != nil {
			return false, nil, err
		}
		return true, repl, nil

	case kindDigest:
		return false, nil, errNodeNotResolved(n.digest)

	default:
		panic("trie: unknown node kind in delete")
	}
}

// maybeCollapseBranch implements the branch case of §4.4: a branch left
// with exactly one child is rewritten in terms of that child's shape.
// Returns nil when the branch remains valid (zero or ≥2 children) and no
// structural replacement is needed.
func maybeCollapseBranch(n *node) (*node, error) {
	idx := -1
	count := 0
	for i, c := range n.children {
		if c != nil {
			count++
			idx = i
		}
	}
	if count != 1 {
		return nil, nil
	}

	orphan := n.children[idx]
	orphanNode := orphan.asNodeReadOnly()
	i := byte(idx)

	switch orphanNode.k {
	case kindLeaf:
		newPath := make([]byte, 0, len(orphanNode.path)+1)
		newPath = append(newPath, i)
		newPath = append(newPath, orphanNode.path...)
		return newLeaf(newPath, orphanNode.value), nil

	case kindExtension:
		newPath := make([]byte, 0, len(orphanNode.path)+1)
		newPath = append(newPath, i)
		newPath = append(newPath, orphanNode.path...)
		return newExtension(newPath, orphanNode.children[0]), nil

	case kindBranch:
		return newExtension([]byte{i}, orphan), nil

	case kindDigest:
		return nil, errNodeNotResolved(orphanNode.digest)

	default: // kindNull: unreachable; branch-arity invariant guarantees a non-empty slot.
		return nil, nil
	}
}

// maybeCollapseExtension implements the extension case of §4.4: an
// extension whose child is no longer a Branch or Digest is merged with
// that child. Returns nil when the child is already a Branch or Digest
// (no change needed).
func maybeCollapseExtension(n *node) (*node, error) {
	child := n.children[0]
	childNode := child.asNodeReadOnly()

	switch childNode.k {
	case kindBranch, kindDigest:
		return nil, nil

	case kindNull:
		return newNull(), nil

	case kindLeaf:
		newPath := make([]byte, 0, len(n.path)+len(childNode.path))
		newPath = append(newPath, n.path...)
		newPath = append(newPath, childNode.path...)
		return newLeaf(newPath, childNode.value), nil

	case kindExtension:
		newPath := make([]byte, 0, len(n.path)+len(childNode.path))
		newPath = append(newPath, n.path...)
		newPath = append(newPath, childNode.path...)
		return newExtension(newPath, childNode.children[0]), nil

	default:
		return nil, nil
	}
}
