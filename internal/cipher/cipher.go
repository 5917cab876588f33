// Package cipher implements the symmetric and public-key cryptosystems
// that can be negotiated for a channel.
//
// All of the algorithms here are educational reconstructions of their
// published descriptions. They are not hardened: comparisons are not
// constant-time and the RSA variants are textbook constructions.
package cipher

import "errors"

var (
	// ErrMessageTooLong is returned when a plaintext does not fit the
	// public-key modulus.
	ErrMessageTooLong = errors.New("message too long for key size")

	// ErrNoPrivateKey is returned when a private-key operation is
	// attempted on a public-only cryptosystem.
	ErrNoPrivateKey = errors.New("private key material absent")

	// ErrOperationUnsupported is returned by cryptosystems that do not
	// implement a direction (Goldwasser-Micali has no private-encrypt).
	ErrOperationUnsupported = errors.New("operation not supported by cryptosystem")

	// ErrCiphertextMalformed is returned when a ciphertext cannot be
	// parsed back into the algorithm's wire form.
	ErrCiphertextMalformed = errors.New("ciphertext malformed")

	// ErrBadKey is returned when key material has the wrong shape.
	ErrBadKey = errors.New("bad key material")
)

// Symmetric is the capability set of a symmetric cipher. Encrypt and
// Decrypt are byte-in/byte-out; keys are opaque byte strings.
type Symmetric interface {
	Name() string
	Priority() int
	Encrypt(message []byte) ([]byte, error)
	Decrypt(message []byte) ([]byte, error)
	GenKey() ([]byte, error)
	GetKey() []byte
	SetKey(key []byte) error
}

// PublicKey is the capability set of a public-key cryptosystem. Key
// material is exposed in a JSON-marshalable shape so the handshake can
// carry it inside protocol messages.
type PublicKey interface {
	Name() string
	Priority() int
	EncryptPublic(message []byte) ([]byte, error)
	EncryptPrivate(message []byte) ([]byte, error)
	DecryptPublic(message []byte) ([]byte, error)
	DecryptPrivate(message []byte) ([]byte, error)
	GenKeyPair() error
	PublicKeyMaterial() any
	PrivateKeyMaterial() any
	SetKeyPair(pub, priv any) error
	CopyWithPublicKey(pub any) (PublicKey, error)
}
