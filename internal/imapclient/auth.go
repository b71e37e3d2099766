package imapclient

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/emersion/go-sasl"
)

// Authenticate logs in using the strongest mechanism the cached
// capabilities and any forced override allow, per §4.3.3's preference
// order. It returns StatusAuthFail (not an error) on rejection so
// callers can retry with different credentials without tearing down
// the connection.
func (cl *Client) Authenticate(ctx context.Context, user, pass string) (Status, error) {
	if st, err := cl.beginCommand(); err != nil {
		return st, err
	}
	defer cl.worker.Release()

	mech := cl.caps.PreferredAuth(cl.forceMechanism)
	switch mech {
	case AuthCRAMMD5:
		return cl.authCRAMMD5(ctx, user, pass)
	case AuthDigestMD5:
		return cl.authSASL(ctx, "DIGEST-MD5", sasl.NewDigestMD5Client("", user, pass))
	case AuthPlain:
		return cl.authSASL(ctx, "PLAIN", sasl.NewPlainClient("", user, pass))
	case AuthLogin:
		return cl.authLogin(ctx, user, pass)
	default:
		return StatusAuthFail, fmt.Errorf("imapclient: no usable auth mechanism advertised")
	}
}

func (cl *Client) authCRAMMD5(ctx context.Context, user, pass string) (Status, error) {
	tag := cl.tags.Next()
	if err := cl.writeCommand(ctx, tag+" AUTHENTICATE CRAM-MD5"); err != nil {
		return StatusError, err
	}

	line, err := ReadLine(ctx, cl.Base)
	if err != nil {
		return StatusError, err
	}
	if !line.IsContinuation() {
		return responseStatus(line), nil
	}

	challenge, err := base64.StdEncoding.DecodeString(continuationPayload(line))
	if err != nil {
		return StatusError, fmt.Errorf("imapclient: decoding CRAM-MD5 challenge: %w", err)
	}

	mac := hmac.New(md5.New, []byte(pass))
	mac.Write(challenge)
	digest := hex.EncodeToString(mac.Sum(nil))
	reply := base64.StdEncoding.EncodeToString([]byte(user + " " + digest))

	if err := cl.Base.WriteLine(ctx, reply); err != nil {
		return StatusError, err
	}
	return cl.finishAuth(ctx, tag)
}

func (cl *Client) authLogin(ctx context.Context, user, pass string) (Status, error) {
	tag := cl.tags.Next()
	cmd := fmt.Sprintf("%s LOGIN %s %s", tag, quoteArg(user), quoteArg(pass))
	cl.Logger.Debug("imap command", "line", redactLoginArgs(cmd, 1))
	if err := cl.Base.WriteLine(ctx, cmd); err != nil {
		return StatusError, err
	}
	return cl.finishAuth(ctx, tag)
}

// authSASL drives a go-sasl client.Client through the AUTHENTICATE
// continuation exchange; go-sasl's mechanisms (PLAIN, DIGEST-MD5)
// implement the Start/Next challenge-response protocol identically.
func (cl *Client) authSASL(ctx context.Context, mechName string, sc sasl.Client) (Status, error) {
	tag := cl.tags.Next()
	if err := cl.writeCommand(ctx, tag+" AUTHENTICATE "+mechName); err != nil {
		return StatusError, err
	}

	_, initial, err := sc.Start()
	if err != nil {
		return StatusError, fmt.Errorf("imapclient: starting %s: %w", mechName, err)
	}
	if err := cl.sendSASLResponse(ctx, initial); err != nil {
		return StatusError, err
	}

	for {
		line, err := ReadLine(ctx, cl.Base)
		if err != nil {
			return StatusError, err
		}
		if !line.IsContinuation() {
			return responseStatus(line), nil
		}
		challenge, err := base64.StdEncoding.DecodeString(continuationPayload(line))
		if err != nil {
			return StatusError, fmt.Errorf("imapclient: decoding %s challenge: %w", mechName, err)
		}
		resp, done, err := sc.Next(challenge)
		if err != nil {
			return StatusError, fmt.Errorf("imapclient: %s exchange: %w", mechName, err)
		}
		if err := cl.sendSASLResponse(ctx, resp); err != nil {
			return StatusError, err
		}
		if done {
			return cl.finishAuth(ctx, tag)
		}
	}
}

func (cl *Client) sendSASLResponse(ctx context.Context, resp []byte) error {
	return cl.Base.WriteLine(ctx, base64.StdEncoding.EncodeToString(resp))
}

// finishAuth reads the tagged completion response that follows the
// final AUTHENTICATE exchange step.
func (cl *Client) finishAuth(ctx context.Context, tag string) (Status, error) {
	for {
		line, err := ReadLine(ctx, cl.Base)
		if err != nil {
			return StatusError, err
		}
		if line.Tag == tag {
			return responseStatus(line), nil
		}
		// Untagged responses (e.g. CAPABILITY piggybacked on the OK) are
		// ignored here; the capability cache is not updated from them.
	}
}

func responseStatus(line *Line) Status {
	switch line.FirstAtom() {
	case "OK":
		return StatusOK
	case "NO":
		return StatusAuthFail
	default:
		return StatusError
	}
}

// continuationPayload returns the raw base64 text following a "+ "
// continuation prompt.
func continuationPayload(line *Line) string {
	return strings.TrimSpace(strings.TrimPrefix(line.Raw, "+"))
}

// writeCommand logs then writes a fully-formed command line, redacting
// credential-bearing arguments per §4.3.1. It does not take the
// §4.3.13 single-in-flight gate itself: callers acquire cl.worker via
// beginCommand or exclusive before writing and release it with
// cl.worker.Release() once the response has been read. Continuation
// data (AUTHENTICATE replies, APPEND message bodies) is written
// through Base directly rather than through writeCommand.
func (cl *Client) writeCommand(ctx context.Context, cmd string) error {
	cl.Logger.Debug("imap command", "line", redactLoginArgs(cmd, 1))
	return cl.Base.WriteLine(ctx, cmd)
}

// beginCommand acquires the single-in-flight gate, returning
// StatusEAgain if another command is already running on this
// connection (§4.3.13, §8's "any attempt to send while in_flight is
// true returns EAGAIN and produces no bytes on the wire"). Every
// exported command method calls this before writeCommand and
// cl.worker.Release() (via defer) once its response is fully drained.
func (cl *Client) beginCommand() (Status, error) {
	if !cl.worker.TryAcquire() {
		return StatusEAgain, ErrInFlight
	}
	return StatusOK, nil
}

// exclusive runs fn under the single-in-flight gate, for command
// methods whose signature doesn't carry a Status: a concurrent call
// while fn is running gets ErrInFlight back (the same condition
// Authenticate surfaces as StatusEAgain) with no bytes written.
func (cl *Client) exclusive(fn func() error) error {
	if !cl.worker.TryAcquire() {
		return ErrInFlight
	}
	defer cl.worker.Release()
	return fn()
}
