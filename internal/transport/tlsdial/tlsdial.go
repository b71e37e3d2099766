// Package tlsdial wraps a net.Conn with crypto/tls in either of the two
// modes a mail protocol client needs: an implicit tunnel established
// immediately after the TCP connect (IMAPS/POP3S/SMTPS/NNTPS), or an
// explicit upgrade triggered mid-session after a STARTTLS/STLS command
// (IMAP STARTTLS, SMTP STARTTLS, NNTP STARTTLS).
package tlsdial

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
)

// Config configures the TLS handshake.
type Config struct {
	ServerName         string
	MinVersion         uint16
	InsecureSkipVerify bool
}

func (c Config) tlsConfig() *tls.Config {
	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return &tls.Config{
		ServerName:         c.ServerName,
		MinVersion:         minVersion,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}

// Tunnel wraps conn with TLS immediately, for implicit-TLS ports
// (993/995/465/563). The handshake is performed eagerly so dial errors
// surface before the caller starts the protocol greeting.
func Tunnel(ctx context.Context, conn net.Conn, cfg Config) (*tls.Conn, error) {
	return handshake(ctx, conn, cfg, "tunnel")
}

// StartTLS wraps conn with TLS after the caller has already exchanged
// the protocol-specific STARTTLS/STLS command and received its
// affirmative response. The caller is responsible for discarding any
// cached capabilities, since most servers require CAPABILITY/EHLO to be
// re-issued after the upgrade.
func StartTLS(ctx context.Context, conn net.Conn, cfg Config) (*tls.Conn, error) {
	return handshake(ctx, conn, cfg, "starttls")
}

func handshake(ctx context.Context, conn net.Conn, cfg Config, mode string) (*tls.Conn, error) {
	tlsConn := tls.Client(conn, cfg.tlsConfig())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("tlsdial: %s handshake: %w", mode, err)
	}
	return tlsConn, nil
}
