package cipher

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/postalsys/latchkey/internal/numtheory"
)

// primalityRounds is the Miller-Rabin round count used by key
// generation across the public-key cryptosystems.
const primalityRounds = 40

// RSA is textbook RSA. Messages convert byte-string to integer in
// little-endian order and must be strictly shorter than keysize/8
// bytes.
//
// Public key material is [e, n]; private material is d.
type RSA struct {
	keysize int
	e, d, n *big.Int
}

// NewRSA creates an RSA instance for moduli of roughly keysize bits.
func NewRSA(keysize int) *RSA {
	return &RSA{keysize: keysize}
}

// Name returns the wire name of this cryptosystem.
func (c *RSA) Name() string {
	return "RSA"
}

// Priority returns the suite-selection priority.
func (c *RSA) Priority() int {
	return 1
}

// KeySize returns the configured modulus width in bits.
func (c *RSA) KeySize() int {
	return c.keysize
}

// EncryptPublic computes m^e mod n.
func (c *RSA) EncryptPublic(message []byte) ([]byte, error) {
	return c.power(message, c.e)
}

// EncryptPrivate computes m^d mod n.
func (c *RSA) EncryptPrivate(message []byte) ([]byte, error) {
	if c.d == nil {
		return nil, ErrNoPrivateKey
	}
	return c.power(message, c.d)
}

// DecryptPublic computes c^e mod n. This mirrors the construction it
// reimplements, where the public decrypt direction reuses the same
// modular power as encryption.
func (c *RSA) DecryptPublic(message []byte) ([]byte, error) {
	return c.rawPower(message, c.e)
}

// DecryptPrivate computes c^d mod n.
func (c *RSA) DecryptPrivate(message []byte) ([]byte, error) {
	if c.d == nil {
		return nil, ErrNoPrivateKey
	}
	return c.rawPower(message, c.d)
}

// power enforces the plaintext size bound before exponentiating.
func (c *RSA) power(message []byte, exp *big.Int) ([]byte, error) {
	if c.n == nil || exp == nil {
		return nil, fmt.Errorf("%w: rsa key pair not set", ErrBadKey)
	}
	if len(message) >= c.keysize/8 {
		return nil, fmt.Errorf("%w: %d bytes, key size %d bits", ErrMessageTooLong, len(message), c.keysize)
	}
	return c.rawPower(message, exp)
}

// rawPower converts little-endian bytes to an integer, exponentiates
// and converts back.
func (c *RSA) rawPower(message []byte, exp *big.Int) ([]byte, error) {
	if c.n == nil || exp == nil {
		return nil, fmt.Errorf("%w: rsa key pair not set", ErrBadKey)
	}
	m := bytesToInt(message)
	return intToBytes(numtheory.PowMod(m, exp, c.n)), nil
}

// GenKeyPair generates two keysize/2+1 bit primes, a random public
// exponent and its inverse modulo (p-1)(q-1), retrying until the
// exponent is invertible.
func (c *RSA) GenKeyPair() error {
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
		e, err := numtheory.RandBits(c.keysize)
		if err != nil {
			return err
		}

		phi := new(big.Int).Mul(
			new(big.Int).Sub(p, big.NewInt(1)),
			new(big.Int).Sub(q, big.NewInt(1)),
		)

		d, err := numtheory.ModInverse(e, phi)
		if err != nil {
			if errors.Is(err, numtheory.ErrNotCoprime) {
				continue
			}
			return err
		}

		c.e = e
		c.d = d
		c.n = new(big.Int).Mul(p, q)
		return nil
	}
}

// PublicKeyMaterial returns [e, n].
func (c *RSA) PublicKeyMaterial() any {
	return []*big.Int{c.e, c.n}
}

// PrivateKeyMaterial returns d, or nil for a public-only copy.
func (c *RSA) PrivateKeyMaterial() any {
	if c.d == nil {
		return nil
	}
	return c.d
}

// SetKeyPair installs pub = [e, n] and priv = d. priv may be nil for a
// public-only instance.
func (c *RSA) SetKeyPair(pub, priv any) error {
	en, err := ParseBigList(pub, 2)
	if err != nil {
		return fmt.Errorf("rsa public key: %w", err)
	}
	c.e, c.n = en[0], en[1]

	if priv == nil {
		c.d = nil
		return nil
	}
	d, err := ParseBig(priv)
	if err != nil {
		return fmt.Errorf("rsa private key: %w", err)
	}
	c.d = d
	return nil
}

// CopyWithPublicKey returns a clone that holds only the given public
// key; private-key operations on the clone fail.
func (c *RSA) CopyWithPublicKey(pub any) (PublicKey, error) {
	clone := NewRSA(c.keysize)
	if err := clone.SetKeyPair(pub, nil); err != nil {
		return nil, err
	}
	return clone, nil
}
