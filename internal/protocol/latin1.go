package protocol

import "fmt"

// Ciphertext travels inside JSON string fields by treating every byte
// as a single Unicode code point in U+0000..U+00FF, the latin-1
// round-trip the protocol prescribes.

// Latin1Encode maps each byte of b to the code point of the same
// value.
func Latin1Encode(b []byte) string {
	runes := make([]rune, len(b))
	for i, v := range b {
		runes[i] = rune(v)
	}
	return string(runes)
}

// Latin1Decode maps each code point of s back to a byte. Code points
// above U+00FF cannot have come from Latin1Encode and are rejected.
func Latin1Decode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, fmt.Errorf("%w: code point U+%04X outside byte range", ErrFrameMalformed, r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}
