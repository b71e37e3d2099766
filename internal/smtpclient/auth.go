package smtpclient

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/emersion/go-sasl"
)

// Authenticate logs in using the strongest mechanism the cached EHLO
// capabilities (and any forced override) allow. It returns
// StatusAuthFail, not an error, on rejection so a caller can retry
// with different credentials without tearing down the connection.
func (cl *Client) Authenticate(ctx context.Context, user, pass string) (Status, error) {
	mech := cl.caps.PreferredAuth(cl.forceMechanism)
	cl.state = StateAuth
	switch mech {
	case AuthCRAMMD5:
		return cl.authCRAMMD5(ctx, user, pass)
	case AuthDigestMD5:
		return cl.authSASL(ctx, "DIGEST-MD5", sasl.NewDigestMD5Client("", user, pass))
	case AuthPlain:
		return cl.authSASL(ctx, "PLAIN", sasl.NewPlainClient("", user, pass))
	case AuthLogin:
		return cl.authSASL(ctx, "LOGIN", sasl.NewLoginClient(user, pass))
	default:
		return StatusUnrecoverable, fmt.Errorf("smtpclient: no usable auth mechanism advertised")
	}
}

func (cl *Client) authCRAMMD5(ctx context.Context, user, pass string) (Status, error) {
	resp, err := cl.command(ctx, "AUTH CRAM-MD5")
	if err != nil {
		return StatusError, err
	}
	if resp.Code != 334 {
		return responseStatus(resp), nil
	}

	challenge, err := base64.StdEncoding.DecodeString(resp.Text())
	if err != nil {
		return StatusError, fmt.Errorf("smtpclient: decoding CRAM-MD5 challenge: %w", err)
	}

	mac := hmac.New(md5.New, []byte(pass))
	mac.Write(challenge)
	digest := hex.EncodeToString(mac.Sum(nil))
	reply := base64.StdEncoding.EncodeToString([]byte(user + " " + digest))

	final, err := cl.command(ctx, reply)
	if err != nil {
		return StatusError, err
	}
	return responseStatus(final), nil
}

// authSASL drives a go-sasl client.Client through the AUTH continuation
// exchange: each 334 line carries a base64 challenge, each reply is a
// base64-encoded response line.
func (cl *Client) authSASL(ctx context.Context, mechName string, sc sasl.Client) (Status, error) {
	_, initial, err := sc.Start()
	if err != nil {
		return StatusError, fmt.Errorf("smtpclient: starting %s: %w", mechName, err)
	}

	cmd := "AUTH " + mechName
	if initial != nil {
		cmd += " " + base64.StdEncoding.EncodeToString(initial)
	}
	resp, err := cl.command(ctx, cmd)
	if err != nil {
		return StatusError, err
	}

	for resp.Code == 334 {
		challenge, err := base64.StdEncoding.DecodeString(resp.Text())
		if err != nil {
			return StatusError, fmt.Errorf("smtpclient: decoding %s challenge: %w", mechName, err)
		}
		next, done, err := sc.Next(challenge)
		if err != nil {
			return StatusError, fmt.Errorf("smtpclient: %s exchange: %w", mechName, err)
		}
		resp, err = cl.command(ctx, base64.StdEncoding.EncodeToString(next))
		if err != nil {
			return StatusError, err
		}
		if done {
			break
		}
	}
	return responseStatus(resp), nil
}

func responseStatus(resp Response) Status {
	switch {
	case resp.OK():
		return StatusOK
	case resp.Code == 535 || resp.Code == 534 || resp.Code == 504:
		return StatusAuthFail
	default:
		return StatusError
	}
}
