// Package protocol implements the wire framing and the handshake and
// session messages carried over it.
//
// Every frame is a 6-digit zero-padded ASCII decimal length followed
// by that many bytes of JSON body. Encrypted fields hold ciphertext as
// latin-1 strings; key material rides as JSON numbers of arbitrary
// precision.
package protocol

import "fmt"

// Encrypter seals plaintext for a message field. The secure context
// variants all satisfy it.
type Encrypter interface {
	Encrypt(data []byte) ([]byte, error)
}

// Decrypter opens an encrypted message field.
type Decrypter interface {
	Decrypt(data []byte) ([]byte, error)
}

// Message is a field-addressable protocol message. The protocol is
// positional: the handshake state machine knows which message comes
// next, so bodies carry no type tag.
type Message struct {
	raw map[string]any
}

// NewMessage wraps a raw field map.
func NewMessage(raw map[string]any) *Message {
	return &Message{raw: raw}
}

// Get returns a raw field value.
func (m *Message) Get(name string) (any, error) {
	v, ok := m.raw[name]
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing", ErrFrameMalformed, name)
	}
	return v, nil
}

// GetString returns a string field.
func (m *Message) GetString(name string) (string, error) {
	v, err := m.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is %T, not a string", ErrFrameMalformed, name, v)
	}
	return s, nil
}

// GetStringList returns a list-of-strings field.
func (m *Message) GetStringList(name string) ([]string, error) {
	v, err := m.Get(name)
	if err != nil {
		return nil, err
	}

	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is %T, not a list", ErrFrameMalformed, name, v)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %q element %d is %T, not a string", ErrFrameMalformed, name, i, item)
		}
		out[i] = s
	}
	return out, nil
}

// GetBytes returns a string field decoded back to raw bytes.
func (m *Message) GetBytes(name string) ([]byte, error) {
	s, err := m.GetString(name)
	if err != nil {
		return nil, err
	}
	return Latin1Decode(s)
}

// GetEncrypted returns an encrypted field decrypted through the given
// secure context.
func (m *Message) GetEncrypted(name string, ctx Decrypter) ([]byte, error) {
	ct, err := m.GetBytes(name)
	if err != nil {
		return nil, err
	}
	return ctx.Decrypt(ct)
}

// encryptField seals plaintext and renders it as a field value.
func encryptField(ctx Encrypter, plain []byte) (string, error) {
	ct, err := ctx.Encrypt(plain)
	if err != nil {
		return "", err
	}
	return Latin1Encode(ct), nil
}

// NewClientHello builds the handshake opener advertising the client's
// supported context names.
func NewClientHello(pkc, symmetric []string) *Message {
	return NewMessage(map[string]any{
		"pkc":       pkc,
		"symmetric": symmetric,
	})
}

// NewServerHello builds the server's suite decision, carrying its
// public key in the clear.
func NewServerHello(pkcName, symmetricName string, pubKey any) *Message {
	return NewMessage(map[string]any{
		"pkc":       pkcName,
		"symmetric": symmetricName,
		"pub_key":   pubKey,
	})
}

// NewClientChallenge builds the client's challenge. The challenge,
// session key and MAC key are encrypted under the server's public-key
// context; the client's public key rides in the clear.
func NewClientChallenge(serverPub Encrypter, challenge, sessionKey, macKey []byte, pubKey any) (*Message, error) {
	encChallenge, err := encryptField(serverPub, challenge)
	if err != nil {
		return nil, err
	}
	encSessionKey, err := encryptField(serverPub, sessionKey)
	if err != nil {
		return nil, err
	}
	encMacKey, err := encryptField(serverPub, macKey)
	if err != nil {
		return nil, err
	}

	return NewMessage(map[string]any{
		"challenge":   encChallenge,
		"pub_key":     pubKey,
		"session_key": encSessionKey,
		"mac_key":     encMacKey,
	}), nil
}

// NewServerChallenge builds the server's counter-challenge, encrypted
// under the client's public key, alongside the echoed client challenge
// under the session cipher.
func NewServerChallenge(clientPub, session Encrypter, challenge, response []byte) (*Message, error) {
	encChallenge, err := encryptField(clientPub, challenge)
	if err != nil {
		return nil, err
	}
	encResponse, err := encryptField(session, response)
	if err != nil {
		return nil, err
	}

	return NewMessage(map[string]any{
		"challenge": encChallenge,
		"response":  encResponse,
	}), nil
}

// NewClientSessionVerify builds the client's final handshake message,
// echoing the server's challenge under the session cipher.
func NewClientSessionVerify(session Encrypter, response []byte) (*Message, error) {
	encResponse, err := encryptField(session, response)
	if err != nil {
		return nil, err
	}
	return NewMessage(map[string]any{"response": encResponse}), nil
}

// NewSessionMessage builds an application payload message under the
// session cipher.
func NewSessionMessage(session Encrypter, contents []byte) (*Message, error) {
	encContents, err := encryptField(session, contents)
	if err != nil {
		return nil, err
	}
	return NewMessage(map[string]any{"contents": encContents}), nil
}
