package smtpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/infodancer/mailcore/internal/config"
	"github.com/infodancer/mailcore/internal/session"
	"github.com/infodancer/mailcore/internal/transport/resolveraddr"
	"github.com/infodancer/mailcore/internal/transport/socket"
	"github.com/infodancer/mailcore/internal/transport/socksdial"
	"github.com/infodancer/mailcore/internal/transport/tlsdial"
)

// Client is one SMTP session, walking the linear sub-state machine
// spec.md's diagram describes. *session.Base carries the protocol-
// independent half of that: socket, logger, idle tracking, and the
// shared READY/SEND/RECV lifecycle; state below is SMTP's own finer
// sub-state (HELO, FROM, RCPT, ...) layered on top of it.
type Client struct {
	*session.Base

	caps           *Capabilities
	forceMechanism AuthMechanism
	localName      string

	state State
}

// Connect dials acc, reads the 220 banner, and issues EHLO (falling
// back to HELO if the server rejects it). STARTTLS, if configured, is
// performed and the capability set is re-fetched via a second EHLO.
func Connect(ctx context.Context, acc config.Account, resolver resolveraddr.Resolver, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dial(ctx, acc, resolver)
	if err != nil {
		return nil, err
	}
	if acc.Security == config.SecurityTunnel {
		tlsConn, err := tlsdial.Tunnel(ctx, conn, tlsConfigFor(acc))
		if err != nil {
			conn.Close()
			return nil, err
		}
		conn = tlsConn
	}

	cl := &Client{
		Base:           session.NewBase(session.KindSMTP, socket.New(conn, acc.Timeouts.IOTimeout()), logger, acc.Timeouts.IOTimeout(), acc.Timeouts.IdleTimeout()),
		forceMechanism: AuthMechanism(acc.ForceMechanism),
		localName:      localHostname(),
		state:          StateReady,
	}

	resp, err := readResponse(ctx, cl.Base)
	if err != nil {
		cl.Base.Cancel()
		return nil, fmt.Errorf("smtpclient: reading banner: %w", err)
	}
	if resp.Code != 220 {
		cl.Base.Cancel()
		return nil, fmt.Errorf("smtpclient: server rejected connection: %d %s", resp.Code, resp.Text())
	}
	cl.state = StateConnected

	if err := cl.ehloOrHelo(ctx); err != nil {
		cl.Base.Cancel()
		return nil, err
	}
	cl.state = StateHelo

	if acc.Security == config.SecurityStartTLS {
		if err := cl.startTLS(ctx, acc); err != nil {
			cl.Base.Cancel()
			return nil, err
		}
		cl.state = StateTLS
		if err := cl.ehloOrHelo(ctx); err != nil {
			cl.Base.Cancel()
			return nil, err
		}
		cl.state = StateHelo
	}

	return cl, nil
}

func localHostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return name
}

func dial(ctx context.Context, acc config.Account, resolver resolveraddr.Resolver) (net.Conn, error) {
	if acc.Socks != nil {
		proxyConn, err := net.DialTimeout("tcp", net.JoinHostPort(acc.Socks.Host, fmt.Sprintf("%d", acc.Socks.Port)), acc.Timeouts.ConnectTimeout())
		if err != nil {
			return nil, fmt.Errorf("smtpclient: dialing SOCKS proxy: %w", err)
		}
		conn, err := socksdial.Dial(ctx, socksdial.Config{
			Type: acc.Socks.Type, Host: acc.Socks.Host, Port: acc.Socks.Port,
			Username: acc.Socks.Username, Password: acc.Socks.Password,
		}, acc.Host, acc.EffectivePort())
		if err != nil {
			proxyConn.Close()
			return nil, err
		}
		return conn, nil
	}
	if resolver != nil {
		if addrs, err := resolver.Resolve(ctx, acc.Host, acc.EffectivePort()); err == nil && len(addrs) > 0 {
			d := net.Dialer{Timeout: acc.Timeouts.ConnectTimeout()}
			var lastErr error
			for _, addr := range addrs {
				conn, err := d.DialContext(ctx, "tcp", addr.String())
				if err == nil {
					return conn, nil
				}
				lastErr = err
			}
			if lastErr != nil {
				return nil, fmt.Errorf("smtpclient: dialing %s: %w", acc.Host, lastErr)
			}
		}
	}
	d := net.Dialer{Timeout: acc.Timeouts.ConnectTimeout()}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(acc.Host, fmt.Sprintf("%d", acc.EffectivePort())))
	if err != nil {
		return nil, fmt.Errorf("smtpclient: dialing %s: %w", acc.Host, err)
	}
	return conn, nil
}

func tlsConfigFor(acc config.Account) tlsdial.Config {
	return tlsdial.Config{
		ServerName:         acc.Host,
		MinVersion:         acc.TLS.MinTLSVersion(),
		InsecureSkipVerify: acc.TLS.InsecureSkipVerify,
	}
}

// ehloOrHelo issues EHLO; on rejection it retries with HELO (no
// capabilities result from HELO, so caps is left nil).
func (cl *Client) ehloOrHelo(ctx context.Context) error {
	resp, err := cl.command(ctx, "EHLO "+cl.localName)
	if err != nil {
		return err
	}
	if resp.OK() {
		// The first line is the server's greeting restated; the rest are
		// capability lines.
		var capLines []string
		if len(resp.Lines) > 1 {
			capLines = resp.Lines[1:]
		}
		cl.caps = ParseCapabilities(capLines)
		return nil
	}

	resp, err = cl.command(ctx, "HELO "+cl.localName)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("smtpclient: HELO rejected: %d %s", resp.Code, resp.Text())
	}
	cl.caps = nil
	return nil
}

func (cl *Client) startTLS(ctx context.Context, acc config.Account) error {
	resp, err := cl.command(ctx, "STARTTLS")
	if err != nil {
		return err
	}
	if resp.Code != 220 {
		return fmt.Errorf("smtpclient: STARTTLS rejected: %d %s", resp.Code, resp.Text())
	}
	tlsConn, err := tlsdial.StartTLS(ctx, cl.Socket.Conn(), tlsConfigFor(acc))
	if err != nil {
		return err
	}
	cl.Socket.Rebind(tlsConn)
	cl.caps = nil
	return nil
}

// Capabilities returns the most recently parsed EHLO capability set,
// or nil if the server only accepted HELO.
func (cl *Client) Capabilities() *Capabilities {
	return cl.caps
}

// State reports the client's current sub-state.
func (cl *Client) State() State {
	return cl.state
}

// command writes a single command line and reads its (possibly
// multiline) response, through Base so the shared session lifecycle
// (SEND/RECV transitions, last-access) is exercised on every exchange.
func (cl *Client) command(ctx context.Context, cmd string) (Response, error) {
	cl.Logger.Debug("smtp command", "line", redactAuthArgs(cmd))
	if err := cl.Base.WriteLine(ctx, cmd); err != nil {
		return Response{}, err
	}
	return readResponse(ctx, cl.Base)
}

func redactAuthArgs(cmd string) string {
	if len(cmd) >= 11 && cmd[:11] == "AUTH LOGIN " {
		return "AUTH LOGIN ****"
	}
	if len(cmd) >= 10 && cmd[:10] == "AUTH PLAIN" {
		return "AUTH PLAIN ****"
	}
	return cmd
}

// Disconnect issues QUIT and closes the connection. QUIT is always
// attempted, even after DATA failures, per spec §8.6; a failure to
// write or read its response is downgraded to a logged warning rather
// than returned, since the connection is being torn down regardless.
func (cl *Client) Disconnect() error {
	ctx := context.Background()
	cl.state = StateQuit
	if err := cl.Base.WriteLine(ctx, "QUIT"); err != nil {
		cl.Logger.Warn("smtp QUIT write failed", "error", err)
	} else if _, err := readResponse(ctx, cl.Base); err != nil {
		cl.Logger.Warn("smtp QUIT response failed", "error", err)
	}
	cl.state = StateDisconnected
	return cl.Base.Cancel()
}
