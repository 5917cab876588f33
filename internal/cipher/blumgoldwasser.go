package cipher

import (
	"bytes"
	"fmt"
	"math/big"
	mathbits "math/bits"

	"github.com/postalsys/latchkey/internal/numtheory"
)

// DefaultBlumGoldwasserBound is the default upper bound for the k in
// the 4k+3 prime sampling. The resulting ~16-bit primes keep key
// generation instantaneous; the bound is a constructor parameter so a
// deployment can trade speed for modulus width.
const DefaultBlumGoldwasserBound = 10000

// BlumGoldwasser is the Blum-Goldwasser probabilistic cryptosystem: a
// Blum-Blum-Shub keystream seeded by a random quadratic residue, with
// the final squaring state appended so the private key holder can
// rewind it. The ciphertext is the decimal of x_{t+1}, a colon, then
// the keystream-XORed bytes.
type BlumGoldwasser struct {
	bound int64
	p, q  *big.Int
	a, b  *big.Int
	n     *big.Int
	h     int
}

// NewBlumGoldwasser creates an instance sampling primes p = 4k+3 with
// k in [0, bound]. A bound <= 0 selects the default.
func NewBlumGoldwasser(bound int64) *BlumGoldwasser {
	if bound <= 0 {
		bound = DefaultBlumGoldwasserBound
	}
	return &BlumGoldwasser{bound: bound}
}

// Name returns the wire name of this cryptosystem.
func (c *BlumGoldwasser) Name() string {
	return "BlumGoldwasser"
}

// Priority returns the suite-selection priority.
func (c *BlumGoldwasser) Priority() int {
	return 2
}

// blockBits derives h = floor(log2(floor(log2 n))).
func blockBits(n *big.Int) (int, error) {
	log2 := n.BitLen() - 1
	if log2 < 2 {
		return 0, fmt.Errorf("%w: bg modulus too small", ErrBadKey)
	}
	return mathbits.Len(uint(log2)) - 1, nil
}

// EncryptPublic XORs the message with h bits of Blum-Blum-Shub output
// per block and appends the final squaring state.
func (c *BlumGoldwasser) EncryptPublic(message []byte) ([]byte, error) {
	if c.n == nil {
		return nil, fmt.Errorf("%w: bg public key not set", ErrBadKey)
	}

	r, err := numtheory.RandBelow(c.n)
	if err != nil {
		return nil, err
	}
	x := numtheory.PowMod(r, big.NewInt(2), c.n)

	out, x := c.keystream(message, x)

	final := numtheory.PowMod(x, big.NewInt(2), c.n)
	ct := []byte(final.String())
	ct = append(ct, ':')
	return append(ct, out...), nil
}

// EncryptPrivate is not defined for Blum-Goldwasser.
func (c *BlumGoldwasser) EncryptPrivate(message []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: bg private encryption", ErrOperationUnsupported)
}

// DecryptPublic is not defined for Blum-Goldwasser.
func (c *BlumGoldwasser) DecryptPublic(message []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: bg public decryption", ErrOperationUnsupported)
}

// DecryptPrivate rewinds x_{t+1} to x_0 through the prime factors and
// replays the keystream.
func (c *BlumGoldwasser) DecryptPrivate(message []byte) ([]byte, error) {
	if c.p == nil || c.q == nil {
		return nil, ErrNoPrivateKey
	}

	sep := bytes.IndexByte(message, ':')
	if sep < 0 {
		return nil, fmt.Errorf("%w: bg separator missing", ErrCiphertextMalformed)
	}
	final, ok := new(big.Int).SetString(string(message[:sep]), 10)
	if !ok {
		return nil, fmt.Errorf("%w: bg state not an integer", ErrCiphertextMalformed)
	}
	body := message[sep+1:]

	t := (len(body)*8 + c.h - 1) / c.h

	// x_{t+1} = x_0^(2^(t+1)), so x_0 mod p is recovered by raising to
	// ((p+1)/4)^(t+1) mod (p-1), and likewise mod q; the halves are
	// combined by CRT.
	one := big.NewInt(1)
	four := big.NewInt(4)
	tPlusOne := big.NewInt(int64(t + 1))

	expP := numtheory.PowMod(
		new(big.Int).Div(new(big.Int).Add(c.p, one), four),
		tPlusOne,
		new(big.Int).Sub(c.p, one),
	)
	expQ := numtheory.PowMod(
		new(big.Int).Div(new(big.Int).Add(c.q, one), four),
		tPlusOne,
		new(big.Int).Sub(c.q, one),
	)

	u := numtheory.PowMod(final, expP, c.p)
	v := numtheory.PowMod(final, expQ, c.q)

	x := new(big.Int).Mul(v, c.a)
	x.Mul(x, c.p)
	x.Add(x, new(big.Int).Mul(new(big.Int).Mul(u, c.b), c.q))
	x.Mod(x, c.n)

	out, _ := c.keystream(body, x)
	return out, nil
}

// keystream squares x per block and XORs its low h bits into the data,
// returning the transformed bytes and the last squaring state.
func (c *BlumGoldwasser) keystream(data []byte, x *big.Int) ([]byte, *big.Int) {
	two := big.NewInt(2)
	hMask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(c.h)), big.NewInt(1))

	out := make([]byte, len(data))
	copy(out, data)

	bits := len(data) * 8
	for low := 0; low < bits; low += c.h {
		x = numtheory.PowMod(x, two, c.n)
		ks := new(big.Int).And(x, hMask)

		take := c.h
		if bits-low < take {
			take = bits - low
		}
		for i := 0; i < take; i++ {
			if ks.Bit(c.h-1-i) == 1 {
				pos := low + i
				out[pos/8] ^= 1 << uint(7-pos%8)
			}
		}
	}
	return out, x
}

// GenKeyPair samples p and q congruent to 3 mod 4 below the configured
// bound and derives the CRT coefficients.
func (c *BlumGoldwasser) GenKeyPair() error {
	sample := func() (*big.Int, error) {
		for {
			k, err := numtheory.RandBelow(big.NewInt(c.bound + 1))
			if err != nil {
				return nil, err
			}
			p := new(big.Int).Mul(k, big.NewInt(4))
			p.Add(p, big.NewInt(3))
			if numtheory.MillerRabin(p, primalityRounds) {
				return p, nil
			}
		}
	}

	p, err := sample()
	if err != nil {
		return err
	}
	q, err := sample()
	for err == nil && q.Cmp(p) == 0 {
		q, err = sample()
	}
	if err != nil {
		return err
	}

	return c.install(p, q, new(big.Int).Mul(p, q))
}

// install derives a, b and h from the factors and modulus.
func (c *BlumGoldwasser) install(p, q, n *big.Int) error {
	h, err := blockBits(n)
	if err != nil {
		return err
	}

	c.p, c.q, c.n, c.h = p, q, n, h
	if p != nil && q != nil {
		// a = p^-1 mod q and b = q^-1 mod p via Fermat.
		c.a = numtheory.PowMod(p, new(big.Int).Sub(q, big.NewInt(2)), q)
		c.b = numtheory.PowMod(q, new(big.Int).Sub(p, big.NewInt(2)), p)
	} else {
		c.a, c.b = nil, nil
	}
	return nil
}

// PublicKeyMaterial returns n.
func (c *BlumGoldwasser) PublicKeyMaterial() any {
	return c.n
}

// PrivateKeyMaterial returns [p, q], or nil for a public-only copy.
func (c *BlumGoldwasser) PrivateKeyMaterial() any {
	if c.p == nil || c.q == nil {
		return nil
	}
	return []*big.Int{c.p, c.q}
}

// SetKeyPair installs pub = n and priv = [p, q]. priv may be nil for a
// public-only instance.
func (c *BlumGoldwasser) SetKeyPair(pub, priv any) error {
	n, err := ParseBig(pub)
	if err != nil {
		return fmt.Errorf("bg public key: %w", err)
	}

	if priv == nil {
		return c.install(nil, nil, n)
	}
	pq, err := ParseBigList(priv, 2)
	if err != nil {
		return fmt.Errorf("bg private key: %w", err)
	}
	return c.install(pq[0], pq[1], n)
}

// CopyWithPublicKey returns a public-only clone.
func (c *BlumGoldwasser) CopyWithPublicKey(pub any) (PublicKey, error) {
	clone := NewBlumGoldwasser(c.bound)
	if err := clone.SetKeyPair(pub, nil); err != nil {
		return nil, err
	}
	return clone, nil
}
