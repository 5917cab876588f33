package mac

import (
	"github.com/postalsys/latchkey/internal/sha1"
)

// TagLength is the length of an HMAC-SHA1 tag in its wire
// representation: "0x" plus 40 lowercase hex characters.
const TagLength = 42

// HMAC implements HMAC-SHA1 with a 512-bit block size.
type HMAC struct {
	key []byte
}

// NewHMAC creates an HMAC with the given key.
func NewHMAC(key []byte) *HMAC {
	h := &HMAC{}
	h.SetKey(key)
	return h
}

// Name returns the wire name of this MAC.
func (h *HMAC) Name() string {
	return "HMAC"
}

// Length returns the tag length in bytes.
func (h *HMAC) Length() int {
	return TagLength
}

// Generate computes the HMAC-SHA1 tag of data, rendered as the
// 0x-prefixed hex string used on the wire.
func (h *HMAC) Generate(data []byte) []byte {
	// Keys longer than the block are replaced by their digest, then
	// right-padded with zeros to a full block.
	key := h.key
	if len(key) > sha1.BlockSize {
		digest := sha1.Sum(key)
		key = digest[:]
	}
	padded := make([]byte, sha1.BlockSize)
	copy(padded, key)

	ipad := make([]byte, sha1.BlockSize)
	opad := make([]byte, sha1.BlockSize)
	for i := range padded {
		ipad[i] = padded[i] ^ 0x36
		opad[i] = padded[i] ^ 0x5C
	}

	inner := sha1.Sum(append(ipad, data...))
	tag := sha1.HexString(append(opad, inner[:]...))
	return []byte(tag)
}

// SetKey replaces the MAC key.
func (h *HMAC) SetKey(key []byte) {
	h.key = append([]byte(nil), key...)
}

// Clone returns an independent copy of this MAC.
func (h *HMAC) Clone() Mac {
	return NewHMAC(h.key)
}
