package numtheory

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"
)

func TestPowModMatchesBigExp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		base := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), 256))
		exp := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), 64))
		mod := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), 128))
		mod.Add(mod, big.NewInt(2))

		want := new(big.Int).Exp(base, exp, mod)
		if got := PowMod(base, exp, mod); got.Cmp(want) != 0 {
			t.Fatalf("PowMod(%v, %v, %v) = %v, want %v", base, exp, mod, got, want)
		}
	}
}

func TestPowModEdgeCases(t *testing.T) {
	if got := PowMod(big.NewInt(5), big.NewInt(0), big.NewInt(7)); got.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("x^0 mod 7 = %v, want 1", got)
	}
	if got := PowMod(big.NewInt(5), big.NewInt(100), big.NewInt(1)); got.Sign() != 0 {
		t.Errorf("x^e mod 1 = %v, want 0", got)
	}
}

func TestEGCDIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 200; i++ {
		a := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), 128))
		a.Add(a, big.NewInt(1))
		b := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), 128))
		b.Add(b, big.NewInt(1))

		g, x, y := EGCD(a, b)

		want := new(big.Int).GCD(nil, nil, a, b)
		if g.Cmp(want) != 0 {
			t.Fatalf("EGCD(%v, %v) gcd = %v, want %v", a, b, g, want)
		}

		// a*x + b*y must equal g.
		sum := new(big.Int).Mul(a, x)
		sum.Add(sum, new(big.Int).Mul(b, y))
		if sum.Cmp(g) != 0 {
			t.Fatalf("EGCD(%v, %v): a*x + b*y = %v, want %v", a, b, sum, g)
		}
	}
}

func TestModInverse(t *testing.T) {
	m := big.NewInt(3120)
	inv, err := ModInverse(big.NewInt(17), m)
	if err != nil {
		t.Fatalf("ModInverse(17, 3120): %v", err)
	}
	if inv.Cmp(big.NewInt(2753)) != 0 {
		t.Errorf("ModInverse(17, 3120) = %v, want 2753", inv)
	}

	if _, err := ModInverse(big.NewInt(6), big.NewInt(9)); !errors.Is(err, ErrNotCoprime) {
		t.Errorf("ModInverse(6, 9) error = %v, want ErrNotCoprime", err)
	}
}

func TestModInverseRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 100; i++ {
		m := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), 64))
		m.Add(m, big.NewInt(2))
		a := new(big.Int).Rand(rng, m)

		inv, err := ModInverse(a, m)
		if err != nil {
			continue
		}
		if inv.Sign() < 0 || inv.Cmp(m) >= 0 {
			t.Fatalf("ModInverse(%v, %v) = %v outside [0, m)", a, m, inv)
		}
		prod := new(big.Int).Mul(a, inv)
		prod.Mod(prod, m)
		if prod.Cmp(big.NewInt(1)) != 0 {
			t.Fatalf("a * ModInverse(a, m) mod m = %v, want 1", prod)
		}
	}
}

func TestMillerRabin(t *testing.T) {
	tests := []struct {
		n    string
		want bool
	}{
		{"2", true},
		{"3", true},
		{"5", true},
		{"9", false},
		{"561", false},   // Carmichael number
		{"7919", true},   // 1000th prime
		{"7917", false},
		{"2305843009213693951", true}, // 2^61 - 1
		{"2305843009213693953", false},
	}

	for _, tt := range tests {
		n, _ := new(big.Int).SetString(tt.n, 10)
		if got := MillerRabin(n, 30); got != tt.want {
			t.Errorf("MillerRabin(%s) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestRandomPrime(t *testing.T) {
	for _, bits := range []int{16, 33, 64} {
		p, err := RandomPrime(bits, 30)
		if err != nil {
			t.Fatalf("RandomPrime(%d): %v", bits, err)
		}
		if p.BitLen() < bits {
			t.Errorf("RandomPrime(%d) has %d bits", bits, p.BitLen())
		}
		if p.Bit(0) != 1 {
			t.Errorf("RandomPrime(%d) = %v is even", bits, p)
		}
		if !p.ProbablyPrime(30) {
			t.Errorf("RandomPrime(%d) = %v is composite", bits, p)
		}
	}
}

func TestLegendre(t *testing.T) {
	// Modulo 11, the quadratic residues are 1, 3, 4, 5, 9.
	p := big.NewInt(11)
	residues := map[int64]bool{1: true, 3: true, 4: true, 5: true, 9: true}

	for a := int64(1); a < 11; a++ {
		want := -1
		if residues[a] {
			want = 1
		}
		if got := Legendre(big.NewInt(a), p); got != want {
			t.Errorf("Legendre(%d, 11) = %d, want %d", a, got, want)
		}
	}

	if got := Legendre(big.NewInt(22), p); got != 0 {
		t.Errorf("Legendre(22, 11) = %d, want 0", got)
	}
}
