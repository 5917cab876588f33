package cipher

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/postalsys/latchkey/internal/numtheory"
	"github.com/postalsys/latchkey/internal/sha1"
)

// maskBlock is the SSRSA keystream block: one SHA-1 digest.
const maskBlock = sha1.Size

// SSRSA is RSA with a semantic-security strengthening: instead of
// exponentiating the message, a random r is exponentiated and the
// message is XOR-masked with a SHA-1 keystream derived from r. The
// ciphertext is the pair (r^e mod n, masked bytes), serialized as the
// decimal of the first element, a colon, then the masked bytes.
//
// The plaintext is zero-prefix-padded to a digest multiple before
// masking, so messages with leading zero bytes do not round-trip.
type SSRSA struct {
	RSA
}

// NewSSRSA creates an SSRSA instance for moduli of roughly keysize
// bits.
func NewSSRSA(keysize int) *SSRSA {
	return &SSRSA{RSA: *NewRSA(keysize)}
}

// Name returns the wire name of this cryptosystem.
func (c *SSRSA) Name() string {
	return "SSRSA"
}

// EncryptPublic masks the message under a keystream derived from a
// fresh random value encrypted with the public exponent.
func (c *SSRSA) EncryptPublic(message []byte) ([]byte, error) {
	return c.seal(message, c.e)
}

// EncryptPrivate is EncryptPublic with the private exponent.
func (c *SSRSA) EncryptPrivate(message []byte) ([]byte, error) {
	if c.d == nil {
		return nil, ErrNoPrivateKey
	}
	return c.seal(message, c.d)
}

// DecryptPublic recovers r with the public exponent and unmasks.
func (c *SSRSA) DecryptPublic(message []byte) ([]byte, error) {
	return c.open(message, c.e)
}

// DecryptPrivate recovers r with the private exponent and unmasks.
func (c *SSRSA) DecryptPrivate(message []byte) ([]byte, error) {
	if c.d == nil {
		return nil, ErrNoPrivateKey
	}
	return c.open(message, c.d)
}

func (c *SSRSA) seal(message []byte, exp *big.Int) ([]byte, error) {
	if c.n == nil || exp == nil {
		return nil, fmt.Errorf("%w: ssrsa key pair not set", ErrBadKey)
	}

	r, err := numtheory.RandBelow(c.n)
	if err != nil {
		return nil, err
	}
	c1 := numtheory.PowMod(r, exp, c.n)

	// Zero-prefix the plaintext to a whole number of digest blocks.
	// An aligned plaintext still gains a full zero block, matching the
	// decrypt side's leading-zero strip.
	pad := maskBlock - len(message)%maskBlock
	padded := make([]byte, pad+len(message))
	copy(padded[pad:], message)

	masked := xorMask(padded, r)

	out := []byte(c1.String())
	out = append(out, ':')
	return append(out, masked...), nil
}

func (c *SSRSA) open(message []byte, exp *big.Int) ([]byte, error) {
	if c.n == nil || exp == nil {
		return nil, fmt.Errorf("%w: ssrsa key pair not set", ErrBadKey)
	}

	sep := bytes.IndexByte(message, ':')
	if sep < 0 {
		return nil, fmt.Errorf("%w: ssrsa separator missing", ErrCiphertextMalformed)
	}
	c1, ok := new(big.Int).SetString(string(message[:sep]), 10)
	if !ok {
		return nil, fmt.Errorf("%w: ssrsa first element not an integer", ErrCiphertextMalformed)
	}
	masked := message[sep+1:]
	if len(masked)%maskBlock != 0 {
		return nil, fmt.Errorf("%w: ssrsa body not a digest multiple", ErrCiphertextMalformed)
	}

	r := numtheory.PowMod(c1, exp, c.n)
	plain := xorMask(masked, r)

	// Strip the zero-prefix padding.
	i := 0
	for i < len(plain) && plain[i] == 0 {
		i++
	}
	return plain[i:], nil
}

// xorMask XORs data with the SHA-1 digest of r's big-endian bytes,
// repeated across every block.
func xorMask(data []byte, r *big.Int) []byte {
	mask := sha1.Sum(r.Bytes())
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ mask[i%maskBlock]
	}
	return out
}

// CopyWithPublicKey returns a public-only SSRSA clone.
func (c *SSRSA) CopyWithPublicKey(pub any) (PublicKey, error) {
	clone := NewSSRSA(c.keysize)
	if err := clone.SetKeyPair(pub, nil); err != nil {
		return nil, err
	}
	return clone, nil
}
