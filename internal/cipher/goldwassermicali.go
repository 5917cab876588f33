package cipher

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/postalsys/latchkey/internal/numtheory"
)

// GoldwasserMicali is the Goldwasser-Micali probabilistic cryptosystem.
// Each plaintext bit becomes one integer r^2 * x^b mod n, where x is a
// quadratic non-residue modulo both prime factors; the ciphertext is
// the comma-separated decimal list of those integers.
//
// Only the public-encrypt/private-decrypt directions exist.
type GoldwasserMicali struct {
	keysize int
	p, q    *big.Int
	n, x    *big.Int
}

// NewGoldwasserMicali creates an instance for moduli of roughly
// keysize bits.
func NewGoldwasserMicali(keysize int) *GoldwasserMicali {
	return &GoldwasserMicali{keysize: keysize}
}

// Name returns the wire name of this cryptosystem.
func (c *GoldwasserMicali) Name() string {
	return "GoldwasserMicali"
}

// Priority returns the suite-selection priority.
func (c *GoldwasserMicali) Priority() int {
	return 3
}

// KeySize returns the configured modulus width in bits.
func (c *GoldwasserMicali) KeySize() int {
	return c.keysize
}

// EncryptPublic emits one quadratic residue or non-residue per
// plaintext bit, most significant bit of each byte first.
func (c *GoldwasserMicali) EncryptPublic(message []byte) ([]byte, error) {
	if c.n == nil || c.x == nil {
		return nil, fmt.Errorf("%w: gm public key not set", ErrBadKey)
	}

	var out bytes.Buffer
	for _, b := range message {
		for bit := 7; bit >= 0; bit-- {
			r, err := c.randomBase()
			if err != nil {
				return nil, err
			}

			v := new(big.Int).Mul(r, r)
			if b>>uint(bit)&1 == 1 {
				v.Mul(v, c.x)
			}
			v.Mod(v, c.n)

			if out.Len() > 0 {
				out.WriteByte(',')
			}
			out.WriteString(v.String())
		}
	}
	return out.Bytes(), nil
}

// randomBase draws r in [0, n) avoiding the prime factors themselves.
func (c *GoldwasserMicali) randomBase() (*big.Int, error) {
	for {
		r, err := numtheory.RandBelow(c.n)
		if err != nil {
			return nil, err
		}
		if c.p != nil && r.Cmp(c.p) == 0 {
			continue
		}
		if c.q != nil && r.Cmp(c.q) == 0 {
			continue
		}
		return r, nil
	}
}

// EncryptPrivate is not defined for Goldwasser-Micali.
func (c *GoldwasserMicali) EncryptPrivate(message []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: gm private encryption", ErrOperationUnsupported)
}

// DecryptPublic is not defined for Goldwasser-Micali.
func (c *GoldwasserMicali) DecryptPublic(message []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: gm public decryption", ErrOperationUnsupported)
}

// DecryptPrivate maps each integer back to a bit: a residue modulo
// both factors is 0, anything else is 1.
func (c *GoldwasserMicali) DecryptPrivate(message []byte) ([]byte, error) {
	if c.p == nil || c.q == nil {
		return nil, ErrNoPrivateKey
	}

	parts := bytes.Split(message, []byte(","))
	if len(parts)%8 != 0 {
		return nil, fmt.Errorf("%w: gm ciphertext has %d values, not a byte multiple", ErrCiphertextMalformed, len(parts))
	}

	out := make([]byte, len(parts)/8)
	for i, part := range parts {
		v, ok := new(big.Int).SetString(string(part), 10)
		if !ok {
			return nil, fmt.Errorf("%w: gm value %q not an integer", ErrCiphertextMalformed, part)
		}
		if !c.isQuadraticResidue(v) {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out, nil
}

// isQuadraticResidue checks residuosity modulo both prime factors.
func (c *GoldwasserMicali) isQuadraticResidue(v *big.Int) bool {
	return numtheory.Legendre(new(big.Int).Mod(v, c.p), c.p) == 1 &&
		numtheory.Legendre(new(big.Int).Mod(v, c.q), c.q) == 1
}

// GenKeyPair generates the prime factors and a quadratic non-residue
// x below both of them.
func (c *GoldwasserMicali) GenKeyPair() error {
	primeBits := c.keysize/2 + 1

	for {
		p, err := numtheory.RandomPrime(primeBits, primalityRounds)
		if err != nil {
			return err
		}
		q, err := numtheory.RandomPrime(primeBits, primalityRounds)
		if err != nil {
			return err
		}

		smaller := p
		if q.Cmp(p) < 0 {
			smaller = q
		}
		x, err := numtheory.RandBelow(smaller)
		if err != nil {
			return err
		}

		if numtheory.Legendre(x, p) == -1 && numtheory.Legendre(x, q) == -1 {
			c.p, c.q, c.x = p, q, x
			c.n = new(big.Int).Mul(p, q)
			return nil
		}
	}
}

// PublicKeyMaterial returns [x, n].
func (c *GoldwasserMicali) PublicKeyMaterial() any {
	return []*big.Int{c.x, c.n}
}

// PrivateKeyMaterial returns [p, q], or nil for a public-only copy.
func (c *GoldwasserMicali) PrivateKeyMaterial() any {
	if c.p == nil || c.q == nil {
		return nil
	}
	return []*big.Int{c.p, c.q}
}

// SetKeyPair installs pub = [x, n] and priv = [p, q]. priv may be nil
// for a public-only instance.
func (c *GoldwasserMicali) SetKeyPair(pub, priv any) error {
	xn, err := ParseBigList(pub, 2)
	if err != nil {
		return fmt.Errorf("gm public key: %w", err)
	}
	c.x, c.n = xn[0], xn[1]

	if priv == nil {
		c.p, c.q = nil, nil
		return nil
	}
	pq, err := ParseBigList(priv, 2)
	if err != nil {
		return fmt.Errorf("gm private key: %w", err)
	}
	c.p, c.q = pq[0], pq[1]
	return nil
}

// CopyWithPublicKey returns a public-only clone.
func (c *GoldwasserMicali) CopyWithPublicKey(pub any) (PublicKey, error) {
	clone := NewGoldwasserMicali(c.keysize)
	if err := clone.SetKeyPair(pub, nil); err != nil {
		return nil, err
	}
	return clone, nil
}
