// Package secure wraps the cryptosystems with the nonce and MAC
// envelope and manages the registered cipher suites.
package secure

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/postalsys/latchkey/internal/cipher"
	"github.com/postalsys/latchkey/internal/mac"
	"github.com/postalsys/latchkey/internal/nonce"
)

var (
	// ErrMacMismatch is returned when a decrypted envelope fails its
	// MAC check.
	ErrMacMismatch = errors.New("mac mismatch")

	// ErrNonceInvalid is returned when a decrypted envelope carries a
	// nonce the verifier rejects.
	ErrNonceInvalid = errors.New("nonce invalid")

	// ErrNameMismatch is returned when a public/private context pair
	// does not share a name.
	ErrNameMismatch = errors.New("context names must match")
)

// envelope carries the nonce and MAC machinery shared by every context
// variant. seal appends nonce then MAC; open strips and checks them.
type envelope struct {
	nonceGen nonce.Generator
	nonceVer nonce.Verifier
	mac      mac.Mac
}

func (e *envelope) seal(data []byte) []byte {
	payload := append(append([]byte(nil), data...), e.nonceGen.Generate()...)
	return append(payload, e.mac.Generate(payload)...)
}

func (e *envelope) open(data []byte) ([]byte, error) {
	macLen := e.mac.Length()
	nonceLen := e.nonceGen.Length()
	if len(data) < macLen+nonceLen {
		return nil, fmt.Errorf("%w: envelope shorter than nonce and mac", ErrMacMismatch)
	}

	payload := data[:len(data)-macLen]
	tag := data[len(data)-macLen:]
	if !bytes.Equal(tag, e.mac.Generate(payload)) {
		return nil, fmt.Errorf("%w: tag %q", ErrMacMismatch, tag)
	}

	n := string(payload[len(payload)-nonceLen:])
	if !e.nonceVer.Verify(n) {
		return nil, fmt.Errorf("%w: nonce %q", ErrNonceInvalid, n)
	}

	return payload[:len(payload)-nonceLen], nil
}

func (e *envelope) clone() envelope {
	return envelope{
		nonceGen: e.nonceGen.Clone(),
		nonceVer: e.nonceVer.Clone(),
		mac:      e.mac.Clone(),
	}
}

// contextName composes the wire name of a context from its parts.
func contextName(algorithm, nonceName, macName string) string {
	return algorithm + "_" + nonceName + "_" + macName
}

// SymmetricContext is a secure context over a symmetric cipher.
type SymmetricContext struct {
	envelope
	algorithm cipher.Symmetric
}

// NewSymmetricContext assembles a symmetric secure context.
func NewSymmetricContext(algorithm cipher.Symmetric, gen nonce.Generator, ver nonce.Verifier, m mac.Mac) *SymmetricContext {
	return &SymmetricContext{
		envelope:  envelope{nonceGen: gen, nonceVer: ver, mac: m},
		algorithm: algorithm,
	}
}

// Name returns the composed context name.
func (c *SymmetricContext) Name() string {
	return contextName(c.algorithm.Name(), c.nonceGen.Name(), c.mac.Name())
}

// Priority returns the underlying cipher's priority.
func (c *SymmetricContext) Priority() int {
	return c.algorithm.Priority()
}

// Encrypt seals data in the envelope and encrypts it.
func (c *SymmetricContext) Encrypt(data []byte) ([]byte, error) {
	return c.algorithm.Encrypt(c.seal(data))
}

// Decrypt decrypts and opens the envelope, verifying MAC and nonce.
func (c *SymmetricContext) Decrypt(data []byte) ([]byte, error) {
	plain, err := c.algorithm.Decrypt(data)
	if err != nil {
		return nil, err
	}
	return c.open(plain)
}

// GenKey generates and installs a fresh session key.
func (c *SymmetricContext) GenKey() ([]byte, error) {
	return c.algorithm.GenKey()
}

// Key returns the current key.
func (c *SymmetricContext) Key() []byte {
	return c.algorithm.GetKey()
}

// SetKey installs a session key.
func (c *SymmetricContext) SetKey(key []byte) error {
	return c.algorithm.SetKey(key)
}

// SetMacKey replaces the MAC key.
func (c *SymmetricContext) SetMacKey(key []byte) {
	c.mac.SetKey(key)
}

// PublicKeyContext is a secure context using the public half of a
// public-key cryptosystem.
type PublicKeyContext struct {
	envelope
	algorithm cipher.PublicKey
}

// NewPublicKeyContext assembles a public-key secure context.
func NewPublicKeyContext(algorithm cipher.PublicKey, gen nonce.Generator, ver nonce.Verifier, m mac.Mac) *PublicKeyContext {
	return &PublicKeyContext{
		envelope:  envelope{nonceGen: gen, nonceVer: ver, mac: m},
		algorithm: algorithm,
	}
}

// Name returns the composed context name.
func (c *PublicKeyContext) Name() string {
	return contextName(c.algorithm.Name(), c.nonceGen.Name(), c.mac.Name())
}

// Priority returns the underlying cryptosystem's priority.
func (c *PublicKeyContext) Priority() int {
	return c.algorithm.Priority()
}

// Encrypt seals data and encrypts it under the public key.
func (c *PublicKeyContext) Encrypt(data []byte) ([]byte, error) {
	return c.algorithm.EncryptPublic(c.seal(data))
}

// Decrypt decrypts under the public key and opens the envelope.
func (c *PublicKeyContext) Decrypt(data []byte) ([]byte, error) {
	plain, err := c.algorithm.DecryptPublic(data)
	if err != nil {
		return nil, err
	}
	return c.open(plain)
}

// Key returns the public key material.
func (c *PublicKeyContext) Key() any {
	return c.algorithm.PublicKeyMaterial()
}

// SetMacKey replaces the MAC key.
func (c *PublicKeyContext) SetMacKey(key []byte) {
	c.mac.SetKey(key)
}

// CopyWithKey clones this context around a peer's public key. The
// nonce and MAC state are copied; the private half is absent in the
// clone.
func (c *PublicKeyContext) CopyWithKey(pub any) (*PublicKeyContext, error) {
	algorithm, err := c.algorithm.CopyWithPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &PublicKeyContext{
		envelope:  c.envelope.clone(),
		algorithm: algorithm,
	}, nil
}

// PrivateKeyContext is a secure context using the private half of a
// public-key cryptosystem.
type PrivateKeyContext struct {
	envelope
	algorithm cipher.PublicKey
}

// NewPrivateKeyContext assembles a private-key secure context.
func NewPrivateKeyContext(algorithm cipher.PublicKey, gen nonce.Generator, ver nonce.Verifier, m mac.Mac) *PrivateKeyContext {
	return &PrivateKeyContext{
		envelope:  envelope{nonceGen: gen, nonceVer: ver, mac: m},
		algorithm: algorithm,
	}
}

// Name returns the composed context name.
func (c *PrivateKeyContext) Name() string {
	return contextName(c.algorithm.Name(), c.nonceGen.Name(), c.mac.Name())
}

// Priority returns the underlying cryptosystem's priority.
func (c *PrivateKeyContext) Priority() int {
	return c.algorithm.Priority()
}

// Encrypt seals data and encrypts it under the private key.
func (c *PrivateKeyContext) Encrypt(data []byte) ([]byte, error) {
	return c.algorithm.EncryptPrivate(c.seal(data))
}

// Decrypt decrypts under the private key and opens the envelope.
func (c *PrivateKeyContext) Decrypt(data []byte) ([]byte, error) {
	plain, err := c.algorithm.DecryptPrivate(data)
	if err != nil {
		return nil, err
	}
	return c.open(plain)
}

// Key returns the private key material.
func (c *PrivateKeyContext) Key() any {
	return c.algorithm.PrivateKeyMaterial()
}

// SetMacKey replaces the MAC key.
func (c *PrivateKeyContext) SetMacKey(key []byte) {
	c.mac.SetKey(key)
}
