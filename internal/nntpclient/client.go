package nntpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/infodancer/mailcore/internal/config"
	"github.com/infodancer/mailcore/internal/session"
	"github.com/infodancer/mailcore/internal/transport/resolveraddr"
	"github.com/infodancer/mailcore/internal/transport/socket"
	"github.com/infodancer/mailcore/internal/transport/socksdial"
	"github.com/infodancer/mailcore/internal/transport/tlsdial"
)

// Client is one NNTP session: selected group, optional credentials, and
// the auth-failed latch §4.4 describes. *session.Base carries the
// protocol-independent socket/logger/idle-timeout lifecycle shared
// with imapclient and smtpclient.
type Client struct {
	*session.Base

	user, pass string
	authFailed bool

	Selected GroupInfo // zero value means no group selected yet
}

// GroupInfo is the state a successful GROUP response establishes.
type GroupInfo struct {
	Name  string
	Count int64
	Low   int64
	High  int64
}

// Connect dials acc, reads the 200/201 posting-allowed banner, and
// returns a ready Client. acc.Username is stored for deferred AUTHINFO
// (the password is supplied with SetCredentials); neither is sent until
// a command actually returns 480.
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
		Base: session.NewBase(session.KindNNTP, socket.New(conn, acc.Timeouts.IOTimeout()), logger, acc.Timeouts.IOTimeout(), acc.Timeouts.IdleTimeout()),
		user: acc.Username,
	}

	resp, err := readResponse(ctx, cl.Base)
	if err != nil {
		cl.Base.Cancel()
		return nil, fmt.Errorf("nntpclient: reading banner: %w", err)
	}
	if resp.Code != 200 && resp.Code != 201 {
		cl.Base.Cancel()
		return nil, fmt.Errorf("nntpclient: server rejected connection: %d %s", resp.Code, resp.Text)
	}

	if acc.Security == config.SecurityStartTLS {
		if err := cl.startTLS(ctx, acc); err != nil {
			cl.Base.Cancel()
			return nil, err
		}
	}
	return cl, nil
}

func dial(ctx context.Context, acc config.Account, resolver resolveraddr.Resolver) (net.Conn, error) {
	if acc.Socks != nil {
		proxyConn, err := net.DialTimeout("tcp", net.JoinHostPort(acc.Socks.Host, fmt.Sprintf("%d", acc.Socks.Port)), acc.Timeouts.ConnectTimeout())
		if err != nil {
			return nil, fmt.Errorf("nntpclient: dialing SOCKS proxy: %w", err)
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
				return nil, fmt.Errorf("nntpclient: dialing %s: %w", acc.Host, lastErr)
			}
		}
	}
	d := net.Dialer{Timeout: acc.Timeouts.ConnectTimeout()}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(acc.Host, fmt.Sprintf("%d", acc.EffectivePort())))
	if err != nil {
		return nil, fmt.Errorf("nntpclient: dialing %s: %w", acc.Host, err)
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

func (cl *Client) startTLS(ctx context.Context, acc config.Account) error {
	resp, err := cl.command(ctx, "STARTTLS")
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("nntpclient: STARTTLS rejected: %d %s", resp.Code, resp.Text)
	}
	tlsConn, err := tlsdial.StartTLS(ctx, cl.Socket.Conn(), tlsConfigFor(acc))
	if err != nil {
		return err
	}
	cl.Socket.Rebind(tlsConn)
	return nil
}

// SetCredentials sets the username/password AUTHINFO sends on a
// deferred 480 challenge.
func (cl *Client) SetCredentials(user, pass string) {
	cl.user, cl.pass = user, pass
}

// AuthFailed reports whether a prior AUTHINFO retry already failed once
// this session; per §4.4 a second failure is permanent.
func (cl *Client) AuthFailed() bool {
	return cl.authFailed
}

// command writes a single command line and reads its single-line
// response, transparently handling the deferred-AUTHINFO retry: any
// 480 triggers AUTHINFO USER/PASS and exactly one retry of cmd.
func (cl *Client) command(ctx context.Context, cmd string) (Response, error) {
	if err := cl.writeLine(ctx, cmd); err != nil {
		return Response{}, err
	}
	resp, err := readResponse(ctx, cl.Base)
	if err != nil {
		return Response{}, err
	}
	if resp.Code != 480 || cl.authFailed {
		return resp, nil
	}
	if err := cl.authenticate(ctx); err != nil {
		cl.authFailed = true
		return resp, nil
	}
	if err := cl.writeLine(ctx, cmd); err != nil {
		return Response{}, err
	}
	return readResponse(ctx, cl.Base)
}

func (cl *Client) authenticate(ctx context.Context) error {
	if err := cl.writeLine(ctx, "AUTHINFO USER "+cl.user); err != nil {
		return err
	}
	resp, err := readResponse(ctx, cl.Base)
	if err != nil {
		return err
	}
	if resp.Code != 381 {
		return fmt.Errorf("nntpclient: AUTHINFO USER not challenged: %d %s", resp.Code, resp.Text)
	}
	if err := cl.writeLine(ctx, "AUTHINFO PASS "+cl.pass); err != nil {
		return err
	}
	resp, err = readResponse(ctx, cl.Base)
	if err != nil {
		return err
	}
	if resp.Code != 281 {
		return fmt.Errorf("nntpclient: AUTHINFO PASS rejected: %d %s", resp.Code, resp.Text)
	}
	return nil
}

// writeLine writes a single command line through Base, exercising the
// shared session lifecycle (SEND transition, last-access) on every
// command, the same way smtpclient.Client.command does.
func (cl *Client) writeLine(ctx context.Context, s string) error {
	cl.Logger.Debug("nntp command", "line", s)
	return cl.Base.WriteLine(ctx, s)
}

// Quit sends QUIT and closes the connection.
func (cl *Client) Quit() error {
	ctx := context.Background()
	_ = cl.writeLine(ctx, "QUIT")
	_, _ = readResponse(ctx, cl.Base)
	return cl.Base.Cancel()
}
