// nibble.go implements the nibble codec: conversions between byte keys,
// nibble sequences, and the compact hex-prefix encoding used inside
// leaf/extension nodes. The encoding is bit-for-bit identical to
// Ethereum's hex-prefix (HP) scheme from the Yellow Paper, Appendix C,
// but unlike go-ethereum's trie package, nibble sequences here never
// carry an embedded terminator nibble: leaf-vs-extension is conveyed
// explicitly by the caller (the node's own tag), not by a sentinel value
// folded into the path.
package trie

// toNibs splits a byte string into a nibble sequence, high nibble first.
func toNibs(key []byte) []byte {
	nibs := make([]byte, len(key)*2)
	for i, b := range key {
		nibs[i*2] = b >> 4
		nibs[i*2+1] = b & 0x0f
	}
	return nibs
}

// nibsToKey packs a nibble sequence of even length back into bytes, high
// nibble first within each byte.
func nibsToKey(nibs []byte) []byte {
	if len(nibs)&1 != 0 {
		panic("trie: odd-length nibble sequence cannot pack into bytes")
	}
	key := make([]byte, len(nibs)/2)
	for i := range key {
		key[i] = nibs[i*2]<<4 | nibs[i*2+1]
	}
	return key
}

// toCompact packs a nibble sequence into the compact hex-prefix encoding.
// The first byte's high nibble carries the flags: bit 0x20 set when
// isLeaf, bit 0x10 set when the nibble count is odd; an odd count stores
// its first nibble in the low nibble of that same flag byte.
func toCompact(nibs []byte, isLeaf bool) []byte {
	oddLen := len(nibs)&1 == 1
	buf := make([]byte, len(nibs)/2+1)

	flags := byte(0)
	if isLeaf {
		flags |= 1 << 5
	}
	if oddLen {
		flags |= 1 << 4
		flags |= nibs[0]
		nibs = nibs[1:]
	}
	buf[0] = flags
	packNibblePairs(nibs, buf[1:])
	return buf
}

// prefixNibs is the inverse of toCompact: it strips the flag word and
// returns the original nibble sequence together with the leaf flag that
// was encoded alongside it.
func prefixNibs(compact []byte) (nibs []byte, isLeaf bool) {
	if len(compact) == 0 {
		return nil, false
	}
	flags := compact[0]
	isLeaf = flags&(1<<5) != 0
	odd := flags&(1<<4) != 0

	rest := compact[1:]
	unpacked := make([]byte, len(rest)*2)
	unpackNibblePairs(rest, unpacked)

	if odd {
		nibs = make([]byte, len(unpacked)+1)
		nibs[0] = flags & 0x0f
		copy(nibs[1:], unpacked)
	} else {
		nibs = unpacked
	}
	return nibs, isLeaf
}

// lcp returns the length of the longest common prefix of two nibble
// sequences.
func lcp(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// packNibblePairs packs consecutive nibble pairs from nibs into dst,
// one output byte per two input nibbles. len(nibs) must be even and
// len(dst) must equal len(nibs)/2.
func packNibblePairs(nibs []byte, dst []byte) {
	for i := 0; i < len(dst); i++ {
		dst[i] = nibs[i*2]<<4 | nibs[i*2+1]
	}
}

// unpackNibblePairs expands each byte of src into two nibbles in dst.
// len(dst) must equal len(src)*2.
func unpackNibblePairs(src []byte, dst []byte) {
	for i, b := range src {
		dst[i*2] = b >> 4
		dst[i*2+1] = b & 0x0f
	}
}
