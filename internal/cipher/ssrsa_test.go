package cipher

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
)

func testSSRSAKey(t *testing.T) *SSRSA {
	t.Helper()
	c := NewSSRSA(512)
	e, _ := new(big.Int).SetString(testRSAE, 10)
	n, _ := new(big.Int).SetString(testRSAN, 10)
	if err := c.SetKeyPair([]*big.Int{e, n}, testRSAD); err != nil {
		t.Fatalf("SetKeyPair: %v", err)
	}
	return c
}

func TestSSRSARoundTrip(t *testing.T) {
	c := testSSRSAKey(t)

	// Unlike plain RSA, the masked construction has no modulus-bound
	// message limit.
	for _, msg := range []string{"A", "hello", string(bytes.Repeat([]byte{0x7F}, 500))} {
		ct, err := c.EncryptPublic([]byte(msg))
		if err != nil {
			t.Fatalf("EncryptPublic: %v", err)
		}
		pt, err := c.DecryptPrivate(ct)
		if err != nil {
			t.Fatalf("DecryptPrivate: %v", err)
		}
		if string(pt) != msg {
			t.Errorf("round trip = %q, want %q", pt, msg)
		}
	}
}

func TestSSRSAIsProbabilistic(t *testing.T) {
	c := testSSRSAKey(t)
	msg := []byte("same message, same key")

	first, err := c.EncryptPublic(msg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.EncryptPublic(msg)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(first, second) {
		t.Error("two encryptions of the same message are identical")
	}

	for _, ct := range [][]byte{first, second} {
		pt, err := c.DecryptPrivate(ct)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(pt, msg) {
			t.Errorf("decrypt = %q, want %q", pt, msg)
		}
	}
}

func TestSSRSAStripsLeadingZeros(t *testing.T) {
	c := testSSRSAKey(t)

	// The zero-prefix padding makes leading zero bytes in the
	// plaintext indistinguishable from padding; they are lost.
	ct, err := c.EncryptPublic([]byte{0x00, 0x00, 0x41})
	if err != nil {
		t.Fatal(err)
	}
	pt, err := c.DecryptPrivate(ct)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, []byte{0x41}) {
		t.Errorf("decrypt = %x, want 41", pt)
	}
}

func TestSSRSAPrivateDirection(t *testing.T) {
	c := testSSRSAKey(t)

	ct, err := c.EncryptPrivate([]byte("from the key holder"))
	if err != nil {
		t.Fatal(err)
	}
	pt, err := c.DecryptPublic(ct)
	if err != nil {
		t.Fatal(err)
	}
	if string(pt) != "from the key holder" {
		t.Errorf("private round trip = %q", pt)
	}
}

func TestSSRSACopyWithPublicKey(t *testing.T) {
	c := testSSRSAKey(t)

	clone, err := c.CopyWithPublicKey(c.PublicKeyMaterial())
	if err != nil {
		t.Fatal(err)
	}
	if clone.Name() != "SSRSA" {
		t.Errorf("clone Name = %s, want SSRSA", clone.Name())
	}

	ct, err := clone.EncryptPublic([]byte("masked"))
	if err != nil {
		t.Fatal(err)
	}
	pt, err := c.DecryptPrivate(ct)
	if err != nil {
		t.Fatal(err)
	}
	if string(pt) != "masked" {
		t.Errorf("decrypt of clone ciphertext = %q", pt)
	}

	if _, err := clone.DecryptPrivate(ct); !errors.Is(err, ErrNoPrivateKey) {
		t.Errorf("clone DecryptPrivate error = %v, want ErrNoPrivateKey", err)
	}
}

func TestSSRSAMalformedCiphertext(t *testing.T) {
	c := testSSRSAKey(t)

	if _, err := c.DecryptPrivate([]byte("no separator")); !errors.Is(err, ErrCiphertextMalformed) {
		t.Errorf("missing separator error = %v, want ErrCiphertextMalformed", err)
	}
	if _, err := c.DecryptPrivate([]byte("123:odd-length-body")); !errors.Is(err, ErrCiphertextMalformed) {
		t.Errorf("bad body length error = %v, want ErrCiphertextMalformed", err)
	}
}
