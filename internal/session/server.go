package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/postalsys/latchkey/internal/logging"
	"github.com/postalsys/latchkey/internal/metrics"
	"github.com/postalsys/latchkey/internal/protocol"
	"github.com/postalsys/latchkey/internal/secure"
)

// ManagerFactory builds a fresh CryptoManager. The manager holds
// per-session key state, so the server builds one per connection.
type ManagerFactory func() (*secure.Manager, error)

// ServerOptions configures a Server.
type ServerOptions struct {
	// Log receives structured server logs. Defaults to a nop logger.
	Log *slog.Logger

	// OnMessage is invoked with each decrypted session payload.
	// Defaults to logging the payload.
	OnMessage func(data []byte)

	// ReceivePerSecond throttles the session receive loop. Zero
	// disables the limit.
	ReceivePerSecond float64
}

// Server accepts connections and serves one secure channel per client.
type Server struct {
	listener   net.Listener
	newManager ManagerFactory
	opts       ServerOptions
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// Listen binds addr and returns a server ready to accept clients.
func Listen(addr string, newManager ManagerFactory, opts ServerOptions) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	log := opts.Log
	if log == nil {
		log = logging.NopLogger()
	}
	log = log.With(logging.KeyComponent, "server")
	log.Info("server listening", logging.KeyLocalAddr, listener.Addr().String())

	return &Server{
		listener:   listener,
		newManager: newManager,
		opts:       opts,
		log:        log,
		metrics:    metrics.Default(),
	}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops the listener.
func (s *Server) Close() error {
	return s.listener.Close()
}

// HandleClient accepts one connection, performs the handshake and
// services messages until the peer disconnects.
func (s *Server) HandleClient(ctx context.Context) error {
	conn, err := s.listener.Accept()
	if err != nil {
		return fmt.Errorf("accepting connection: %w", err)
	}
	defer conn.Close()

	return s.serveConn(ctx, conn)
}

// Serve accepts connections until the context is cancelled or the
// listener fails, serving each client on its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		go func() {
			defer conn.Close()
			if err := s.serveConn(ctx, conn); err != nil {
				s.log.Error("session ended with error",
					logging.KeyRemoteAddr, conn.RemoteAddr().String(),
					logging.KeyError, err)
			}
		}()
	}
}

// serveConn runs the handshake and the receive loop for one client.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) error {
	log := s.log.With(logging.KeyRemoteAddr, conn.RemoteAddr().String())
	log.Info("got connection")

	manager, err := s.newManager()
	if err != nil {
		return fmt.Errorf("building crypto manager: %w", err)
	}

	start := time.Now()
	if err := s.handshake(conn, manager, log); err != nil {
		s.metrics.HandshakeErrors.WithLabelValues(errorReason(err)).Inc()
		return err
	}
	s.metrics.HandshakesTotal.Inc()
	s.metrics.HandshakeLatency.Observe(time.Since(start).Seconds())

	pub, _ := manager.PKC()
	s.metrics.SuiteSelected.WithLabelValues(pub.Name(), manager.Symmetric().Name()).Inc()
	log.Info("session successfully initialized",
		logging.KeyPKC, pub.Name(),
		logging.KeySymmetric, manager.Symmetric().Name(),
		logging.KeyDuration, time.Since(start))

	s.metrics.SessionsActive.Inc()
	defer s.metrics.SessionsActive.Dec()

	return s.receiveLoop(ctx, conn, manager, log)
}

// handshake drives the server side of the five-message exchange.
func (s *Server) handshake(conn net.Conn, manager *secure.Manager, log *slog.Logger) error {
	clientHello, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("reading ClientHello: %w", err)
	}

	clientPKCs, err := clientHello.GetStringList("pkc")
	if err != nil {
		return err
	}
	clientSymmetric, err := clientHello.GetStringList("symmetric")
	if err != nil {
		return err
	}

	if !manager.ChooseAlgorithms(clientPKCs, clientSymmetric) {
		return fmt.Errorf("%w: client offered pkc %v, symmetric %v",
			ErrNoSuiteMatch, clientPKCs, clientSymmetric)
	}

	pub, priv := manager.PKC()
	symmetric := manager.Symmetric()

	serverHello := protocol.NewServerHello(pub.Name(), symmetric.Name(), pub.Key())
	if err := protocol.WriteMessage(conn, serverHello); err != nil {
		return fmt.Errorf("sending ServerHello: %w", err)
	}

	return s.handleChallenge(conn, manager, pub, priv, symmetric, log)
}

// handleChallenge processes the client's challenge message, installs
// the delivered keys and runs the counter-challenge.
func (s *Server) handleChallenge(conn net.Conn, manager *secure.Manager,
	pub *secure.PublicKeyContext, priv *secure.PrivateKeyContext,
	symmetric *secure.SymmetricContext, log *slog.Logger) error {

	challengeMsg, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("reading ClientChallenge: %w", err)
	}

	clientKey, err := challengeMsg.Get("pub_key")
	if err != nil {
		return err
	}
	log.Debug("got client public key")

	clientPub, err := pub.CopyWithKey(clientKey)
	if err != nil {
		return fmt.Errorf("building client public context: %w", err)
	}

	// Decryption follows the client's encryption order so the private
	// context's nonce verifier sees a contiguous sequence.
	response, err := challengeMsg.GetEncrypted("challenge", priv)
	if err != nil {
		return fmt.Errorf("decrypting client challenge: %w", err)
	}
	sessionKey, err := challengeMsg.GetEncrypted("session_key", priv)
	if err != nil {
		return fmt.Errorf("decrypting session key: %w", err)
	}
	if err := symmetric.SetKey(sessionKey); err != nil {
		return fmt.Errorf("installing session key: %w", err)
	}
	macKey, err := challengeMsg.GetEncrypted("mac_key", priv)
	if err != nil {
		return fmt.Errorf("decrypting mac key: %w", err)
	}

	// Everything up to here was verified under the bootstrap MAC key;
	// the delivered key takes over from the next message on.
	manager.SetMacKeys(macKey)
	clientPub.SetMacKey(macKey)

	clientChallenge, err := randomToken()
	if err != nil {
		return err
	}

	challengeOut, err := protocol.NewServerChallenge(clientPub, symmetric, clientChallenge, response)
	if err != nil {
		return fmt.Errorf("building ServerChallenge: %w", err)
	}
	if err := protocol.WriteMessage(conn, challengeOut); err != nil {
		return fmt.Errorf("sending ServerChallenge: %w", err)
	}

	verifyMsg, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("reading ClientSessionVerify: %w", err)
	}
	clientResponse, err := verifyMsg.GetEncrypted("response", symmetric)
	if err != nil {
		return fmt.Errorf("decrypting client response: %w", err)
	}
	if !bytes.Equal(clientResponse, clientChallenge) {
		return fmt.Errorf("%w: expected %s, got %s", ErrChallengeFailed, clientChallenge, clientResponse)
	}
	log.Debug("client challenge passed")
	return nil
}

// receiveLoop services SessionMessage frames until the peer
// disconnects or a message fails to decode.
func (s *Server) receiveLoop(ctx context.Context, conn net.Conn, manager *secure.Manager, log *slog.Logger) error {
	var limiter *rate.Limiter
	if s.opts.ReceivePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.ReceivePerSecond), 1)
	}

	symmetric := manager.Symmetric()
	for {
		msg, err := protocol.ReadMessage(conn)
		if errors.Is(err, io.EOF) {
			log.Info("client disconnected")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading SessionMessage: %w", err)
		}

		contents, err := msg.GetEncrypted("contents", symmetric)
		if err != nil {
			s.metrics.EnvelopeErrors.WithLabelValues(errorReason(err)).Inc()
			return fmt.Errorf("decrypting SessionMessage: %w", err)
		}

		s.metrics.MessagesReceived.Inc()
		s.metrics.BytesReceived.Add(float64(len(contents)))

		if s.opts.OnMessage != nil {
			s.opts.OnMessage(contents)
		} else {
			log.Info("got message", "contents", string(contents))
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
	}
}

// readFrame reads one frame during the handshake, where an early close
// is a protocol failure.
func readFrame(conn net.Conn) (*protocol.Message, error) {
	msg, err := protocol.ReadMessage(conn)
	if errors.Is(err, io.EOF) {
		return nil, ErrPeerDisconnected
	}
	return msg, err
}
