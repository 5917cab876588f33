package cipher

import (
	"fmt"

	"github.com/postalsys/latchkey/internal/numtheory"
)

// RC4 is the RC4 stream cipher. The keystream state is rebuilt on every
// call, so encrypting the same plaintext twice under one key produces
// the same ciphertext; uniqueness comes from the envelope nonce above
// this layer.
type RC4 struct {
	keysize int // key width in bits
	key     []byte
}

// NewRC4 creates an RC4 instance producing keys of keysize bits.
func NewRC4(keysize int) *RC4 {
	return &RC4{
		keysize: keysize,
		key:     make([]byte, (keysize+7)/8),
	}
}

// Name returns the wire name of this cipher.
func (c *RC4) Name() string {
	return "RC4"
}

// Priority returns the suite-selection priority.
func (c *RC4) Priority() int {
	return 1
}

// Encrypt XORs message with the RC4 keystream.
func (c *RC4) Encrypt(message []byte) ([]byte, error) {
	if len(c.key) == 0 {
		return nil, fmt.Errorf("%w: rc4 key not set", ErrBadKey)
	}

	// Key-scheduling algorithm.
	var s [256]byte
	for i := range s {
		s[i] = byte(i)
	}
	j := 0
	for i := 0; i < 256; i++ {
		j = (j + int(s[i]) + int(c.key[i%len(c.key)])) % 256
		s[i], s[j] = s[j], s[i]
	}

	// Pseudo-random generation, XORed into the message.
	out := make([]byte, len(message))
	x, y := 0, 0
	for k, b := range message {
		x = (x + 1) % 256
		y = (y + int(s[x])) % 256
		s[x], s[y] = s[y], s[x]
		out[k] = b ^ s[(int(s[x])+int(s[y]))%256]
	}
	return out, nil
}

// Decrypt is identical to Encrypt.
func (c *RC4) Decrypt(message []byte) ([]byte, error) {
	return c.Encrypt(message)
}

// GenKey generates and installs a random key of the configured width.
func (c *RC4) GenKey() ([]byte, error) {
	n, err := numtheory.RandBits(c.keysize)
	if err != nil {
		return nil, err
	}

	key := make([]byte, (c.keysize+7)/8)
	raw := n.Bytes()
	copy(key[len(key)-len(raw):], raw)
	c.key = key
	return c.GetKey(), nil
}

// GetKey returns the current key.
func (c *RC4) GetKey() []byte {
	return append([]byte(nil), c.key...)
}

// SetKey installs a key.
func (c *RC4) SetKey(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty rc4 key", ErrBadKey)
	}
	c.key = append([]byte(nil), key...)
	c.keysize = len(key) * 8
	return nil
}
