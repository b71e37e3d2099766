// Package session defines the abstract session state every protocol
// client (IMAP, NNTP, SMTP) builds on: a state enum, an idle/IO timeout
// pair, and the last-access bookkeeping that drives both.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/infodancer/mailcore/internal/transport/socket"
)

// Kind identifies which protocol a session speaks.
type Kind int

const (
	KindIMAP Kind = iota
	KindNNTP
	KindSMTP
)

// String returns the protocol name, used as the metrics "protocol" label.
func (k Kind) String() string {
	switch k {
	case KindIMAP:
		return "imap"
	case KindNNTP:
		return "nntp"
	case KindSMTP:
		return "smtp"
	default:
		return "unknown"
	}
}

// State is the shared connection lifecycle every client passes through.
type State int

const (
	StateReady State = iota
	StateSend
	StateRecv
	StateEOF
	StateTimeout
	StateError
	StateDisconnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateSend:
		return "SEND"
	case StateRecv:
		return "RECV"
	case StateEOF:
		return "EOF"
	case StateTimeout:
		return "TIMEOUT"
	case StateError:
		return "ERROR"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Base is embedded by each protocol's Client to provide the shared
// session lifecycle: state, last-access tracking, and the socket
// wrapper every command reads/writes through.
type Base struct {
	mu sync.Mutex

	Kind   Kind
	Socket *socket.Socket
	Logger *slog.Logger

	state      State
	lastAccess time.Time

	ioTimeout   time.Duration
	idleTimeout time.Duration // zero disables idle enforcement
}

// NewBase constructs a Base around an already-dialed socket. ioTimeout
// defaults to 60s (spec's per-command default) when zero.
func NewBase(kind Kind, sock *socket.Socket, logger *slog.Logger, ioTimeout, idleTimeout time.Duration) *Base {
	if ioTimeout <= 0 {
		ioTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{
		Kind:        kind,
		Socket:      sock,
		Logger:      logger.With("session", kind.String()),
		state:       StateReady,
		lastAccess:  time.Now(),
		ioTimeout:   ioTimeout,
		idleTimeout: idleTimeout,
	}
}

// State returns the current session state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetState transitions the session to s and stamps LastAccess.
func (b *Base) SetState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
	b.lastAccess = time.Now()
}

// LastAccess returns the time of the most recent state transition or
// Touch call.
func (b *Base) LastAccess() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAccess
}

// Touch updates LastAccess without changing state, called after every
// successful read/write.
func (b *Base) Touch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastAccess = time.Now()
}

// IdleExpired reports whether the session has been idle longer than its
// configured idle timeout. Always false when no idle timeout is set.
func (b *Base) IdleExpired() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.idleTimeout <= 0 {
		return false
	}
	return time.Since(b.lastAccess) > b.idleTimeout
}

// Cancel transitions the session to Disconnected and closes its socket.
// Idempotent.
func (b *Base) Cancel() error {
	b.SetState(StateDisconnected)
	if b.Socket == nil {
		return nil
	}
	return b.Socket.Close()
}

// ReadLine reads a single CRLF-terminated line, transitioning through
// Recv and back to Ready, or Timeout/Error/EOF on failure.
func (b *Base) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		b.SetState(StateError)
		return "", err
	}
	b.SetState(StateRecv)
	line, err := b.Socket.Gets()
	if err != nil {
		b.SetState(classifyReadError(err))
		return "", err
	}
	b.SetState(StateReady)
	b.Touch()
	return line, nil
}

// WriteLine writes s followed by CRLF, transitioning through Send and
// back to Ready.
func (b *Base) WriteLine(ctx context.Context, s string) error {
	if err := ctx.Err(); err != nil {
		b.SetState(StateError)
		return err
	}
	b.SetState(StateSend)
	if err := b.Socket.WriteString(s + "\r\n"); err != nil {
		b.SetState(StateError)
		return err
	}
	b.SetState(StateReady)
	b.Touch()
	return nil
}

func classifyReadError(err error) State {
	if errors.Is(err, io.EOF) {
		return StateEOF
	}
	type timeout interface{ Timeout() bool }
	if te, ok := err.(timeout); ok && te.Timeout() {
		return StateTimeout
	}
	return StateError
}
