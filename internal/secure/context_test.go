package secure

import (
	"errors"
	"math/big"
	"testing"

	"github.com/postalsys/latchkey/internal/cipher"
	"github.com/postalsys/latchkey/internal/logging"
	"github.com/postalsys/latchkey/internal/mac"
	"github.com/postalsys/latchkey/internal/nonce"
)

const (
	testRSAE = "4876340053150530757984841341286164202537214730003637172258166496708397606235836638149400699947151219456467146271772528952919718705470754694389297791129407"
	testRSAD = "3933982916295644854989833424807805853960243040704615741968237896949897181238914753621824969870886590710923849830618356095694078476679281352114361961305343"
	testRSAN = "22108486544880816513472182233985986929801002934241799336035184559986399133218861074432834197409921116690349495312769313613935623940770951065002655734416907"
)

func testEnvelopeParts(t *testing.T) (nonce.Generator, nonce.Verifier, mac.Mac) {
	t.Helper()
	gen, err := nonce.NewSequentialGenerator(32)
	if err != nil {
		t.Fatal(err)
	}
	ver, err := nonce.NewSequentialVerifier(32)
	if err != nil {
		t.Fatal(err)
	}
	return gen, ver, mac.NewHMAC([]byte("mac_secret"))
}

func testSymmetricContext(t *testing.T) *SymmetricContext {
	t.Helper()
	rc4 := cipher.NewRC4(56)
	if _, err := rc4.GenKey(); err != nil {
		t.Fatal(err)
	}
	gen, ver, m := testEnvelopeParts(t)
	return NewSymmetricContext(rc4, gen, ver, m)
}

func testRSACipher(t *testing.T) *cipher.RSA {
	t.Helper()
	c := cipher.NewRSA(512)
	e, _ := new(big.Int).SetString(testRSAE, 10)
	n, _ := new(big.Int).SetString(testRSAN, 10)
	if err := c.SetKeyPair([]*big.Int{e, n}, testRSAD); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSymmetricContextRoundTrip(t *testing.T) {
	ctx := testSymmetricContext(t)

	for _, msg := range []string{"", "hello", "a longer payload that spans several keystream bytes"} {
		ct, err := ctx.Encrypt([]byte(msg))
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", msg, err)
		}
		pt, err := ctx.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", msg, err)
		}
		if string(pt) != msg {
			t.Errorf("round trip = %q, want %q", pt, msg)
		}
	}
}

func TestSymmetricContextName(t *testing.T) {
	ctx := testSymmetricContext(t)
	if got := ctx.Name(); got != "RC4_SequentialNonce_HMAC" {
		t.Errorf("Name() = %q, want RC4_SequentialNonce_HMAC", got)
	}
	if ctx.Priority() != 1 {
		t.Errorf("Priority() = %d, want 1", ctx.Priority())
	}
}

func TestSymmetricContextTamperDetected(t *testing.T) {
	ctx := testSymmetricContext(t)

	ct, err := ctx.Encrypt([]byte("integrity matters"))
	if err != nil {
		t.Fatal(err)
	}

	// RC4 is a stream cipher, so flipping one ciphertext byte flips
	// the same plaintext byte; the MAC over the payload catches it.
	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0x01

	if _, err := ctx.Decrypt(tampered); !errors.Is(err, ErrMacMismatch) {
		t.Errorf("Decrypt(tampered) error = %v, want ErrMacMismatch", err)
	}
}

func TestSymmetricContextReplayDetected(t *testing.T) {
	ctx := testSymmetricContext(t)

	ct, err := ctx.Encrypt([]byte("once only"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ctx.Decrypt(ct); err != nil {
		t.Fatalf("first Decrypt: %v", err)
	}
	if _, err := ctx.Decrypt(ct); !errors.Is(err, ErrNonceInvalid) {
		t.Errorf("replayed Decrypt error = %v, want ErrNonceInvalid", err)
	}
}

func TestSymmetricContextMacRekey(t *testing.T) {
	ctx := testSymmetricContext(t)

	ct, err := ctx.Encrypt([]byte("old key"))
	if err != nil {
		t.Fatal(err)
	}

	// Rekeying the MAC invalidates envelopes sealed under the old key.
	ctx.SetMacKey([]byte("fresh key"))
	if _, err := ctx.Decrypt(ct); !errors.Is(err, ErrMacMismatch) {
		t.Errorf("Decrypt after rekey error = %v, want ErrMacMismatch", err)
	}
}

func TestPKCContextRoundTrip(t *testing.T) {
	rsa := testRSACipher(t)

	pubGen, pubVer, pubMac := testEnvelopeParts(t)
	privGen, privVer, privMac := testEnvelopeParts(t)
	pub := NewPublicKeyContext(rsa, pubGen, pubVer, pubMac)
	priv := NewPrivateKeyContext(rsa, privGen, privVer, privMac)

	if pub.Name() != priv.Name() {
		t.Fatalf("pair names differ: %q vs %q", pub.Name(), priv.Name())
	}

	ct, err := pub.Encrypt([]byte("key transport"))
	if err != nil {
		t.Fatalf("public Encrypt: %v", err)
	}
	pt, err := priv.Decrypt(ct)
	if err != nil {
		t.Fatalf("private Decrypt: %v", err)
	}
	if string(pt) != "key transport" {
		t.Errorf("round trip = %q", pt)
	}
}

func TestPKCContextCopyWithKey(t *testing.T) {
	rsa := testRSACipher(t)

	pubGen, pubVer, pubMac := testEnvelopeParts(t)
	privGen, privVer, privMac := testEnvelopeParts(t)
	pub := NewPublicKeyContext(rsa, pubGen, pubVer, pubMac)
	priv := NewPrivateKeyContext(rsa, privGen, privVer, privMac)

	// A peer builds its sending context from the advertised key.
	peer, err := pub.CopyWithKey(pub.Key())
	if err != nil {
		t.Fatalf("CopyWithKey: %v", err)
	}

	ct, err := peer.Encrypt([]byte("from the peer"))
	if err != nil {
		t.Fatal(err)
	}
	pt, err := priv.Decrypt(ct)
	if err != nil {
		t.Fatal(err)
	}
	if string(pt) != "from the peer" {
		t.Errorf("round trip = %q", pt)
	}

	// The copy has no private half.
	if _, err := peer.Decrypt(ct); err == nil {
		t.Error("public-only copy decrypted a private-direction ciphertext")
	}
}

func TestPrivateEncryptPublicDecrypt(t *testing.T) {
	rsa := testRSACipher(t)

	pubGen, pubVer, pubMac := testEnvelopeParts(t)
	privGen, privVer, privMac := testEnvelopeParts(t)
	pub := NewPublicKeyContext(rsa, pubGen, pubVer, pubMac)
	priv := NewPrivateKeyContext(rsa, privGen, privVer, privMac)

	ct, err := priv.Encrypt([]byte("provenance"))
	if err != nil {
		t.Fatal(err)
	}
	pt, err := pub.Decrypt(ct)
	if err != nil {
		t.Fatal(err)
	}
	if string(pt) != "provenance" {
		t.Errorf("round trip = %q", pt)
	}
}

func TestManagerForTests(t *testing.T) {
	// Sanity-check the helper other tests lean on.
	m := NewManager(logging.NopLogger())
	m.AddSymmetricContext(testSymmetricContext(t))
	if len(m.SupportedSymmetric()) != 1 {
		t.Fatal("symmetric context not registered")
	}
}
