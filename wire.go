package midifile

import "fmt"

// maxVarLen is the largest value a variable-length quantity can carry:
// 28 bits across 4 bytes.
const maxVarLen = 0x0FFFFFFF

// appendVarLen appends the variable-length encoding of v to dst. The
// value must not exceed maxVarLen; callers validate before encoding.
func appendVarLen(dst []byte, v uint32) []byte {
	switch {
	case v < 0x80:
		return append(dst, byte(v))
	case v < 0x4000:
		return append(dst, byte(v>>7)|0x80, byte(v&0x7F))
	case v < 0x200000:
		return append(dst, byte(v>>14)|0x80, byte(v>>7&0x7F)|0x80, byte(v&0x7F))
	default:
		return append(dst, byte(v>>21)|0x80, byte(v>>14&0x7F)|0x80, byte(v>>7&0x7F)|0x80, byte(v&0x7F))
	}
}

// readVarLen decodes a variable-length quantity from the start of b,
// returning the value and the number of bytes consumed. Each byte
// contributes 7 bits, high bit meaning continuation; more than 4 bytes
// is an error.
func readVarLen(b []byte) (uint32, int, error) {
	var v uint32
	for i, c := range b {
		if i == 4 {
			return 0, 0, fmt.Errorf("%w: more than 4 bytes", ErrVarLen)
		}
		v = v<<7 | uint32(c&0x7F)
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: truncated", ErrVarLen)
}
