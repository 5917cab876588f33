package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/postalsys/latchkey/internal/logging"
	"github.com/postalsys/latchkey/internal/metrics"
	"github.com/postalsys/latchkey/internal/protocol"
	"github.com/postalsys/latchkey/internal/secure"
)

// Client is the initiating side of a secure channel. The constructor
// performs the handshake; afterwards SendMessage carries application
// payloads under the session cipher.
type Client struct {
	conn    net.Conn
	manager *secure.Manager
	log     *slog.Logger
	metrics *metrics.Metrics

	bytesSent    uint64
	messagesSent uint64
}

// Dial connects to addr and performs the handshake.
func Dial(addr string, manager *secure.Manager, log *slog.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	client, err := NewClient(conn, manager, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

// NewClient wraps an established connection and performs the
// handshake.
func NewClient(conn net.Conn, manager *secure.Manager, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = logging.NopLogger()
	}
	c := &Client{
		conn:    conn,
		manager: manager,
		log:     log.With(logging.KeyComponent, "client"),
		metrics: metrics.Default(),
	}

	start := time.Now()
	if err := c.handshake(); err != nil {
		c.metrics.HandshakeErrors.WithLabelValues(errorReason(err)).Inc()
		return nil, err
	}
	c.metrics.HandshakesTotal.Inc()
	c.metrics.HandshakeLatency.Observe(time.Since(start).Seconds())

	c.log.Info("session successfully initialized",
		logging.KeyRemoteAddr, conn.RemoteAddr().String(),
		logging.KeyDuration, time.Since(start))
	return c, nil
}

// handshake drives the client side of the five-message exchange.
func (c *Client) handshake() error {
	hello := protocol.NewClientHello(c.manager.SupportedPKCs(), c.manager.SupportedSymmetric())
	if err := protocol.WriteMessage(c.conn, hello); err != nil {
		return fmt.Errorf("sending ClientHello: %w", err)
	}

	serverHello, err := c.read()
	if err != nil {
		return fmt.Errorf("reading ServerHello: %w", err)
	}

	pkcName, err := serverHello.GetString("pkc")
	if err != nil {
		return err
	}
	symmetricName, err := serverHello.GetString("symmetric")
	if err != nil {
		return err
	}
	if err := c.manager.SetAlgorithms(pkcName, symmetricName); err != nil {
		return fmt.Errorf("%w: %v", ErrNoSuiteMatch, err)
	}

	serverKey, err := serverHello.Get("pub_key")
	if err != nil {
		return err
	}
	c.log.Debug("got server public key")

	clientPub, clientPriv := c.manager.PKC()
	serverPub, err := clientPub.CopyWithKey(serverKey)
	if err != nil {
		return fmt.Errorf("building server public context: %w", err)
	}

	return c.performChallenge(serverPub, clientPub, clientPriv)
}

// performChallenge issues the client challenge, installs the new keys
// and verifies the server's proof.
func (c *Client) performChallenge(serverPub, clientPub *secure.PublicKeyContext, clientPriv *secure.PrivateKeyContext) error {
	challenge, err := randomToken()
	if err != nil {
		return err
	}
	macKey, err := randomToken()
	if err != nil {
		return err
	}

	symmetric := c.manager.Symmetric()
	sessionKey, err := symmetric.GenKey()
	if err != nil {
		return fmt.Errorf("generating session key: %w", err)
	}

	msg, err := protocol.NewClientChallenge(serverPub, challenge, sessionKey, macKey, clientPub.Key())
	if err != nil {
		return fmt.Errorf("building ClientChallenge: %w", err)
	}
	if err := protocol.WriteMessage(c.conn, msg); err != nil {
		return fmt.Errorf("sending ClientChallenge: %w", err)
	}

	// The message above went out under the bootstrap MAC key; only now
	// does the new key take effect, on both the registered contexts and
	// the server-public copy that lives outside the manager.
	c.manager.SetMacKeys(macKey)
	serverPub.SetMacKey(macKey)

	serverChallenge, err := c.read()
	if err != nil {
		return fmt.Errorf("reading ServerChallenge: %w", err)
	}

	response, err := serverChallenge.GetEncrypted("response", symmetric)
	if err != nil {
		return fmt.Errorf("decrypting server response: %w", err)
	}
	if !bytes.Equal(response, challenge) {
		return fmt.Errorf("%w: expected %s, got %s", ErrChallengeFailed, challenge, response)
	}
	c.log.Debug("server challenge passed")

	proof, err := serverChallenge.GetEncrypted("challenge", clientPriv)
	if err != nil {
		return fmt.Errorf("decrypting server challenge: %w", err)
	}

	verify, err := protocol.NewClientSessionVerify(symmetric, proof)
	if err != nil {
		return fmt.Errorf("building ClientSessionVerify: %w", err)
	}
	if err := protocol.WriteMessage(c.conn, verify); err != nil {
		return fmt.Errorf("sending ClientSessionVerify: %w", err)
	}
	return nil
}

// SendMessage encrypts data under the session context and sends it.
func (c *Client) SendMessage(data []byte) error {
	msg, err := protocol.NewSessionMessage(c.manager.Symmetric(), data)
	if err != nil {
		return fmt.Errorf("building SessionMessage: %w", err)
	}
	if err := protocol.WriteMessage(c.conn, msg); err != nil {
		return fmt.Errorf("sending SessionMessage: %w", err)
	}

	c.bytesSent += uint64(len(data))
	c.messagesSent++
	c.metrics.MessagesSent.Inc()
	c.metrics.BytesSent.Add(float64(len(data)))
	return nil
}

// Stats reports the messages and plaintext bytes sent this session.
func (c *Client) Stats() (messages, sentBytes uint64) {
	return c.messagesSent, c.bytesSent
}

// Close releases the connection.
func (c *Client) Close() error {
	c.log.Debug("closing connection")
	return c.conn.Close()
}

// read reads one frame, mapping an end-of-stream to
// ErrPeerDisconnected.
func (c *Client) read() (*protocol.Message, error) {
	msg, err := protocol.ReadMessage(c.conn)
	if errors.Is(err, io.EOF) {
		return nil, ErrPeerDisconnected
	}
	return msg, err
}
