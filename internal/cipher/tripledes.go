package cipher

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/postalsys/latchkey/internal/numtheory"
)

// desBlockSize is the DES block size in bytes.
const desBlockSize = 8

// tripleDESKeyLen is the combined key length: three independent 64-bit
// DES keys.
const tripleDESKeyLen = 3 * desBlockSize

// endSentinel marks the end of the plaintext inside the zero-padded
// final block. Decryption truncates at its first occurrence.
var endSentinel = []byte("ENDMESS")

// TripleDES is EDE triple DES over chained ECB blocks with sentinel
// padding.
type TripleDES struct {
	k1, k2, k3 uint64
	keySet     bool
}

// NewTripleDES creates a TripleDES instance with no key installed.
func NewTripleDES() *TripleDES {
	return &TripleDES{}
}

// Name returns the wire name of this cipher.
func (c *TripleDES) Name() string {
	return "TripleDES"
}

// Priority returns the suite-selection priority.
func (c *TripleDES) Priority() int {
	return 1
}

// Encrypt appends the sentinel, zero-pads to a block boundary and runs
// encrypt-decrypt-encrypt over each 64-bit block.
func (c *TripleDES) Encrypt(message []byte) ([]byte, error) {
	if !c.keySet {
		return nil, fmt.Errorf("%w: triple-des key not set", ErrBadKey)
	}

	padded := append(append([]byte(nil), message...), endSentinel...)
	for len(padded)%desBlockSize != 0 {
		padded = append(padded, 0x00)
	}

	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += desBlockSize {
		block := binary.BigEndian.Uint64(padded[i:])
		block = desBlock(block, c.k1, false)
		block = desBlock(block, c.k2, true)
		block = desBlock(block, c.k3, false)
		binary.BigEndian.PutUint64(out[i:], block)
	}
	return out, nil
}

// Decrypt inverts Encrypt and truncates at the first sentinel.
func (c *TripleDES) Decrypt(message []byte) ([]byte, error) {
	if !c.keySet {
		return nil, fmt.Errorf("%w: triple-des key not set", ErrBadKey)
	}
	if len(message)%desBlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d not a block multiple", ErrCiphertextMalformed, len(message))
	}

	out := make([]byte, len(message))
	for i := 0; i < len(message); i += desBlockSize {
		block := binary.BigEndian.Uint64(message[i:])
		block = desBlock(block, c.k3, true)
		block = desBlock(block, c.k2, false)
		block = desBlock(block, c.k1, true)
		binary.BigEndian.PutUint64(out[i:], block)
	}

	end := bytes.Index(out, endSentinel)
	if end < 0 {
		return nil, fmt.Errorf("%w: end sentinel missing", ErrCiphertextMalformed)
	}
	return out[:end], nil
}

// GenKey generates and installs three random 64-bit keys, returned as
// one 24-byte string.
func (c *TripleDES) GenKey() ([]byte, error) {
	key := make([]byte, tripleDESKeyLen)
	for i := 0; i < 3; i++ {
		n, err := numtheory.RandBits(64)
		if err != nil {
			return nil, err
		}
		raw := n.Bytes()
		copy(key[i*desBlockSize+desBlockSize-len(raw):], raw)
	}
	if err := c.SetKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// GetKey returns the current 24-byte key.
func (c *TripleDES) GetKey() []byte {
	if !c.keySet {
		return nil
	}
	key := make([]byte, tripleDESKeyLen)
	binary.BigEndian.PutUint64(key[0:], c.k1)
	binary.BigEndian.PutUint64(key[8:], c.k2)
	binary.BigEndian.PutUint64(key[16:], c.k3)
	return key
}

// SetKey installs a 24-byte key as three 64-bit DES keys.
func (c *TripleDES) SetKey(key []byte) error {
	if len(key) != tripleDESKeyLen {
		return fmt.Errorf("%w: triple-des key must be %d bytes, got %d", ErrBadKey, tripleDESKeyLen, len(key))
	}
	c.k1 = binary.BigEndian.Uint64(key[0:])
	c.k2 = binary.BigEndian.Uint64(key[8:])
	c.k3 = binary.BigEndian.Uint64(key[16:])
	c.keySet = true
	return nil
}
