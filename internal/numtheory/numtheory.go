// Package numtheory implements the modular arithmetic and primality
// primitives used by the public-key cryptosystems.
package numtheory

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNotCoprime is returned when a modular inverse does not exist.
	ErrNotCoprime = errors.New("values are not coprime")

	// ErrCryptoInvariant is returned when an internal arithmetic
	// invariant is violated.
	ErrCryptoInvariant = errors.New("crypto invariant violated")
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// PowMod computes base^exp mod mod by square-and-multiply.
// mod must be positive; exp must be non-negative.
func PowMod(base, exp, mod *big.Int) *big.Int {
	if mod.Cmp(one) == 0 {
		return big.NewInt(0)
	}

	result := big.NewInt(1)
	b := new(big.Int).Mod(base, mod)
	e := new(big.Int).Set(exp)

	for e.Sign() > 0 {
		if e.Bit(0) == 1 {
			result.Mul(result, b)
			result.Mod(result, mod)
		}
		b.Mul(b, b)
		b.Mod(b, mod)
		e.Rsh(e, 1)
	}

	return result
}

// EGCD computes the extended Euclidean algorithm, returning g, x, y
// such that a*x + b*y = g = gcd(a, b).
func EGCD(a, b *big.Int) (g, x, y *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldS, s := big.NewInt(1), big.NewInt(0)
	oldT, t := big.NewInt(0), big.NewInt(1)

	for r.Sign() != 0 {
		q := new(big.Int).Div(oldR, r)

		oldR, r = r, new(big.Int).Sub(oldR, new(big.Int).Mul(q, r))
		oldS, s = s, new(big.Int).Sub(oldS, new(big.Int).Mul(q, s))
		oldT, t = t, new(big.Int).Sub(oldT, new(big.Int).Mul(q, t))
	}

	return oldR, oldS, oldT
}

// ModInverse returns x in [0, m) such that a*x = 1 (mod m).
// It fails with ErrNotCoprime if gcd(a, m) != 1.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	g, x, _ := EGCD(a, m)
	if g.Cmp(one) != 0 {
		return nil, fmt.Errorf("%w: gcd(%s, m) != 1", ErrNotCoprime, a.String())
	}
	return x.Mod(x, m), nil
}

// MillerRabin runs k rounds of the Miller-Rabin probabilistic primality
// test with bases drawn uniformly from [1, n-2]. Composites are accepted
// with probability at most 4^(-k).
func MillerRabin(n *big.Int, k int) bool {
	if n.Cmp(big.NewInt(4)) < 0 {
		// 1, 2 and 3 are treated as prime.
		return true
	}
	if n.Bit(0) == 0 {
		return false
	}

	// Write n-1 = d * 2^r with d odd.
	d := new(big.Int).Sub(n, one)
	r := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		r++
	}

	nMinusOne := new(big.Int).Sub(n, one)
	nMinusTwo := new(big.Int).Sub(n, two)

	for i := 0; i < k; i++ {
		a, err := rand.Int(rand.Reader, nMinusTwo)
		if err != nil {
			// Out of entropy; treat the candidate as composite so key
			// generation retries rather than accepting a weak prime.
			return false
		}
		a.Add(a, one)

		x := PowMod(a, d, n)
		if x.Cmp(one) == 0 || x.Cmp(nMinusOne) == 0 {
			continue
		}

		witness := true
		for j := 0; j < r-1; j++ {
			x = PowMod(x, two, n)
			if x.Cmp(nMinusOne) == 0 {
				witness = false
				break
			}
		}
		if witness {
			return false
		}
	}

	return true
}

// RandomPrime draws an odd bits-wide integer with the top bit set and
// scans forward by 2 until a candidate passes rounds of Miller-Rabin.
func RandomPrime(bits, rounds int) (*big.Int, error) {
	if bits < 2 {
		return nil, fmt.Errorf("%w: prime width %d too small", ErrCryptoInvariant, bits)
	}

	p, err := RandBits(bits - 1)
	if err != nil {
		return nil, err
	}
	p.Lsh(p, 1)
	p.Add(p, one)
	p.SetBit(p, bits-1, 1)

	for !MillerRabin(p, rounds) {
		p.Add(p, two)
	}

	return p, nil
}

// RandBits returns a uniformly random integer in [0, 2^bits).
func RandBits(bits int) (*big.Int, error) {
	limit := new(big.Int).Lsh(one, uint(bits))
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("reading random bits: %w", err)
	}
	return n, nil
}

// RandBelow returns a uniformly random integer in [0, n).
func RandBelow(n *big.Int) (*big.Int, error) {
	v, err := rand.Int(rand.Reader, n)
	if err != nil {
		return nil, fmt.Errorf("reading random value: %w", err)
	}
	return v, nil
}

// Legendre computes the Legendre symbol (a|p) for an odd prime p,
// returning 1 for quadratic residues, -1 for non-residues and 0 when
// p divides a.
func Legendre(a, p *big.Int) int {
	exp := new(big.Int).Sub(p, one)
	exp.Rsh(exp, 1)

	l := PowMod(a, exp, p)
	if l.Sign() == 0 {
		return 0
	}
	if l.Cmp(new(big.Int).Sub(p, one)) == 0 {
		return -1
	}
	return 1
}
