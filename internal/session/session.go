// Package session implements the handshake and the message loop of a
// negotiated secure channel.
//
// The handshake is five messages: the client advertises suites, the
// server picks one and sends its public key, the client responds with
// a challenge plus the session and MAC keys under the server's public
// key, the server proves the challenge and issues its own, and the
// client proves that one back. All later traffic is SessionMessage
// frames under the symmetric session context.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/postalsys/latchkey/internal/protocol"
	"github.com/postalsys/latchkey/internal/secure"
)

var (
	// ErrNoSuiteMatch is returned when client and server share no
	// cipher suite.
	ErrNoSuiteMatch = errors.New("no matching cipher suite")

	// ErrChallengeFailed is returned when a peer's response does not
	// match the issued challenge.
	ErrChallengeFailed = errors.New("challenge failed")

	// ErrPeerDisconnected is returned when the peer closes the
	// connection in the middle of a handshake. An orderly close after
	// the handshake ends the session loop without error.
	ErrPeerDisconnected = errors.New("peer disconnected")
)

// tokenBytes is the entropy of challenges and MAC keys. Tokens travel
// as 2*tokenBytes hex characters.
const tokenBytes = 40

// randomToken draws a fresh hex-encoded random value.
func randomToken() ([]byte, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}
	out := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(out, raw)
	return out, nil
}

// errorReason maps an error chain to a metrics label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrNoSuiteMatch):
		return "no_suite_match"
	case errors.Is(err, ErrChallengeFailed):
		return "challenge_failed"
	case errors.Is(err, secure.ErrMacMismatch):
		return "mac_mismatch"
	case errors.Is(err, secure.ErrNonceInvalid):
		return "nonce_invalid"
	case errors.Is(err, protocol.ErrFrameMalformed), errors.Is(err, protocol.ErrFrameTooShort):
		return "frame"
	case errors.Is(err, ErrPeerDisconnected):
		return "disconnected"
	default:
		return "io"
	}
}
