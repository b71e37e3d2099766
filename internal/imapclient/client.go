// Package imapclient implements an IMAP4rev1 client: command framing,
// response parsing, capability/AUTH negotiation, mailbox selection,
// folder-list and flag synchronisation, and message fetch/append/store
// operations.
package imapclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/infodancer/mailcore/internal/config"
	"github.com/infodancer/mailcore/internal/imapclient/mutf7"
	"github.com/infodancer/mailcore/internal/session"
	"github.com/infodancer/mailcore/internal/transport/resolveraddr"
	"github.com/infodancer/mailcore/internal/transport/socket"
	"github.com/infodancer/mailcore/internal/transport/socksdial"
	"github.com/infodancer/mailcore/internal/transport/tlsdial"
)

// Client is one IMAP4rev1 session. *session.Base carries the socket,
// logger, and shared READY/SEND/RECV lifecycle every mailcore client
// rides on; the fields below are this protocol's own cached state:
// capabilities, the active mailbox namespace separator, and the
// currently selected mailbox's last-known status.
type Client struct {
	*session.Base

	tags             tagCounter
	caps             *Capabilities
	forceMechanism   AuthMechanism
	separator        byte
	selected         *MailboxStatus
	preauthenticated bool
	worker           Worker
}

// Namespace holds the three namespace categories RFC 2342 defines;
// mailcore only uses the personal namespace's separator (§4.3.5), the
// shared/other lists are retained for callers that want to present them.
type Namespace struct {
	Personal []NamespaceEntry
	Other    []NamespaceEntry
	Shared   []NamespaceEntry
}

// NamespaceEntry is one (prefix, separator) pair from a NAMESPACE response.
type NamespaceEntry struct {
	Prefix    string
	Separator byte
}

// Connect dials acc (resolving through resolver, optionally tunneling
// through a SOCKS proxy, optionally wrapping immediately in TLS for
// acc.Security == tls), reads the server greeting, and fetches the
// initial CAPABILITY list. The returned Client is ready for
// Authenticate.
func Connect(ctx context.Context, acc config.Account, resolver resolveraddr.Resolver, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dialAccount(ctx, acc, resolver)
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
		Base:           session.NewBase(session.KindIMAP, socket.New(conn, acc.Timeouts.IOTimeout()), logger, acc.Timeouts.IOTimeout(), acc.Timeouts.IdleTimeout()),
		separator:      '/',
		forceMechanism: AuthMechanism(strings.ToUpper(acc.ForceMechanism)),
	}

	if err := cl.readGreeting(ctx); err != nil {
		cl.Base.Cancel()
		return nil, err
	}

	if acc.Security == config.SecurityStartTLS {
		if err := cl.startTLS(ctx, acc); err != nil {
			cl.Base.Cancel()
			return nil, err
		}
	}

	if err := cl.fetchCapabilities(ctx); err != nil {
		cl.Base.Cancel()
		return nil, err
	}
	return cl, nil
}

func dialAccount(ctx context.Context, acc config.Account, resolver resolveraddr.Resolver) (net.Conn, error) {
	if acc.Socks != nil {
		proxyConn, err := net.DialTimeout("tcp", net.JoinHostPort(acc.Socks.Host, portString(acc.Socks.Port)), acc.Timeouts.ConnectTimeout())
		if err != nil {
			return nil, fmt.Errorf("imapclient: dialing SOCKS proxy: %w", err)
		}
		conn, err := socksdial.Dial(ctx, socksdial.Config{
			Type:     acc.Socks.Type,
			Host:     acc.Socks.Host,
			Port:     acc.Socks.Port,
			Username: acc.Socks.Username,
			Password: acc.Socks.Password,
		}, acc.Host, acc.EffectivePort())
		if err != nil {
			proxyConn.Close()
			return nil, err
		}
		return conn, nil
	}

	if resolver != nil {
		addrs, err := resolver.Resolve(ctx, acc.Host, acc.EffectivePort())
		if err == nil && len(addrs) > 0 {
			var lastErr error
			d := net.Dialer{Timeout: acc.Timeouts.ConnectTimeout()}
			for _, addr := range addrs {
				conn, err := d.DialContext(ctx, "tcp", addr.String())
				if err == nil {
					return conn, nil
				}
				lastErr = err
			}
			if lastErr != nil {
				return nil, fmt.Errorf("imapclient: dialing %s: %w", acc.Host, lastErr)
			}
		}
	}

	d := net.Dialer{Timeout: acc.Timeouts.ConnectTimeout()}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(acc.Host, portString(acc.EffectivePort())))
	if err != nil {
		return nil, fmt.Errorf("imapclient: dialing %s: %w", acc.Host, err)
	}
	return conn, nil
}

func portString(p int) string {
	return fmt.Sprintf("%d", p)
}

func tlsConfigFor(acc config.Account) tlsdial.Config {
	return tlsdial.Config{
		ServerName:         acc.Host,
		MinVersion:         acc.TLS.MinTLSVersion(),
		InsecureSkipVerify: acc.TLS.InsecureSkipVerify,
	}
}

func (cl *Client) readGreeting(ctx context.Context) error {
	line, err := ReadLine(ctx, cl.Base)
	if err != nil {
		return fmt.Errorf("imapclient: reading greeting: %w", err)
	}
	if !line.IsUntagged() {
		return fmt.Errorf("imapclient: malformed greeting: %s", line.Raw)
	}
	switch line.FirstAtom() {
	case "OK":
		cl.preauthenticated = false
	case "PREAUTH":
		cl.preauthenticated = true
	case "BYE":
		return fmt.Errorf("imapclient: server refused connection: %s", line.Raw)
	default:
		return fmt.Errorf("imapclient: unexpected greeting: %s", line.Raw)
	}
	return nil
}

// Preauthenticated reports whether the server greeted with PREAUTH,
// meaning authentication is already complete (e.g. an IP-trust policy).
func (cl *Client) Preauthenticated() bool {
	return cl.preauthenticated
}

func (cl *Client) startTLS(ctx context.Context, acc config.Account) error {
	tag := cl.tags.Next()
	if err := cl.writeCommand(ctx, tag+" STARTTLS"); err != nil {
		return err
	}
	if err := cl.drainUntilTagged(ctx, tag, "STARTTLS"); err != nil {
		return err
	}
	tlsConn, err := tlsdial.StartTLS(ctx, cl.Socket.Conn(), tlsConfigFor(acc))
	if err != nil {
		return err
	}
	cl.Socket.Rebind(tlsConn)
	// Capabilities advertised before STARTTLS cannot be trusted once the
	// channel is encrypted; the caller fetches CAPABILITY fresh next.
	cl.caps = nil
	return nil
}

func (cl *Client) fetchCapabilities(ctx context.Context) error {
	tag := cl.tags.Next()
	if err := cl.writeCommand(ctx, tag+" CAPABILITY"); err != nil {
		return err
	}
	var atoms []string
	for {
		line, err := ReadLine(ctx, cl.Base)
		if err != nil {
			return err
		}
		if line.Tag == tag {
			if responseStatus(line) != StatusOK {
				return fmt.Errorf("imapclient: CAPABILITY failed: %s", line.Raw)
			}
			cl.caps = ParseCapabilities(atoms)
			return nil
		}
		if line.IsUntagged() && strings.EqualFold(line.FirstAtom(), "CAPABILITY") {
			for _, tok := range line.Tokens[1:] {
				atoms = append(atoms, tok.Str)
			}
		}
	}
}

// Capabilities returns the most recently fetched capability set.
func (cl *Client) Capabilities() *Capabilities {
	return cl.caps
}

// Namespace issues NAMESPACE if advertised, else falls back to probing
// with `LIST "" ""` to recover the personal namespace's separator, and
// records that separator for subsequent ToWire/FromWire calls.
func (cl *Client) Namespace(ctx context.Context) (Namespace, error) {
	var ns Namespace
	err := cl.exclusive(func() error {
		if cl.caps.Has("NAMESPACE") {
			n, err := cl.namespaceCommand(ctx)
			if err != nil {
				return err
			}
			if len(n.Personal) > 0 {
				cl.separator = n.Personal[0].Separator
			}
			ns = n
			return nil
		}

		sep, err := cl.probeSeparator(ctx)
		if err != nil {
			return err
		}
		cl.separator = sep
		ns = Namespace{Personal: []NamespaceEntry{{Prefix: "", Separator: sep}}}
		return nil
	})
	if err != nil {
		return Namespace{}, err
	}
	return ns, nil
}

func (cl *Client) namespaceCommand(ctx context.Context) (Namespace, error) {
	tag := cl.tags.Next()
	if err := cl.writeCommand(ctx, tag+" NAMESPACE"); err != nil {
		return Namespace{}, err
	}
	var ns Namespace
	for {
		line, err := ReadLine(ctx, cl.Base)
		if err != nil {
			return Namespace{}, err
		}
		if line.Tag == tag {
			if responseStatus(line) != StatusOK {
				return Namespace{}, fmt.Errorf("imapclient: NAMESPACE failed: %s", line.Raw)
			}
			return ns, nil
		}
		if line.IsUntagged() && strings.EqualFold(line.FirstAtom(), "NAMESPACE") && len(line.Tokens) >= 4 {
			ns.Personal = parseNamespaceGroup(line.Tokens[1])
			ns.Other = parseNamespaceGroup(line.Tokens[2])
			ns.Shared = parseNamespaceGroup(line.Tokens[3])
		}
	}
}

func parseNamespaceGroup(tok Token) []NamespaceEntry {
	if tok.Kind != TokenList {
		return nil
	}
	var out []NamespaceEntry
	for _, item := range tok.Items {
		if item.Kind != TokenList || len(item.Items) < 2 {
			continue
		}
		prefix := mutf7.Decode(item.Items[0].Str)
		var sep byte
		if len(item.Items[1].Str) > 0 {
			sep = item.Items[1].Str[0]
		}
		out = append(out, NamespaceEntry{Prefix: prefix, Separator: sep})
	}
	return out
}

// probeSeparator issues `LIST "" ""` per RFC 3501 §6.3.8, which returns
// exactly the hierarchy delimiter with no mailbox name, for servers that
// never implemented the NAMESPACE extension.
func (cl *Client) probeSeparator(ctx context.Context) (byte, error) {
	tag := cl.tags.Next()
	if err := cl.writeCommand(ctx, tag+` LIST "" ""`); err != nil {
		return '/', err
	}
	var sep byte = '/'
	for {
		line, err := ReadLine(ctx, cl.Base)
		if err != nil {
			return '/', err
		}
		if line.Tag == tag {
			if responseStatus(line) != StatusOK {
				return '/', fmt.Errorf("imapclient: LIST \"\" \"\" failed: %s", line.Raw)
			}
			return sep, nil
		}
		if line.IsUntagged() && strings.EqualFold(line.FirstAtom(), "LIST") && len(line.Tokens) >= 3 {
			if s := line.Tokens[2].Str; len(s) > 0 {
				sep = s[0]
			}
		}
	}
}

// Disconnect releases the underlying connection without sending LOGOUT;
// callers that want a clean protocol shutdown should call Logout first.
func (cl *Client) Disconnect() error {
	return cl.Base.Cancel()
}
