// Package codec implements the deterministic binary wire format shared by
// every persistent and on-the-wire type in the node: transactions, blocks,
// storage keys, and P2P packets. It is grounded on the teacher's
// network/package.go framing helper, generalized from a single
// fixed-size length prefix into the full varint/key/blob/vector grammar
// spec.md §4.1 requires.
package codec

// AppendVarint writes v as an unsigned LEB128 varint: groups of 7 bits,
// least significant group first, continuation bit set on every group but
// the last.
func AppendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// SizeVarint reports the encoded length of v without allocating.
func SizeVarint(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
