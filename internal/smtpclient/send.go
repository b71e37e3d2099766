package smtpclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressFunc reports send progress as bytesSent/bytesTotal, throttled
// the same way imapclient.FetchEnvelopes throttles its callback.
type ProgressFunc func(bytesSent, bytesTotal int64)

const defaultProgressInterval = 200 * time.Millisecond

// Send drives MAIL FROM / one RCPT TO per recipient / DATA through to
// completion. Any recipient rejection fails the whole send (§8.6): no
// partial delivery is attempted. QUIT is the caller's responsibility
// via Disconnect, so the connection can be reused or torn down.
func (cl *Client) Send(ctx context.Context, from string, rcpts []string, body io.Reader, bodySize int64, progress ProgressFunc) error {
	return cl.sendEvery(ctx, from, rcpts, body, bodySize, progress, defaultProgressInterval)
}

func (cl *Client) sendEvery(ctx context.Context, from string, rcpts []string, body io.Reader, bodySize int64, progress ProgressFunc, interval time.Duration) error {
	cl.state = StateFrom
	resp, err := cl.command(ctx, "MAIL FROM:<"+from+">")
	if err != nil {
		return err
	}
	if !resp.OK() {
		return cl.abort(ctx, fmt.Errorf("smtpclient: MAIL FROM rejected: %d %s", resp.Code, resp.Text()))
	}

	cl.state = StateRcpt
	for _, rcpt := range rcpts {
		resp, err := cl.command(ctx, "RCPT TO:<"+rcpt+">")
		if err != nil {
			return err
		}
		if !resp.OK() {
			return cl.abort(ctx, fmt.Errorf("smtpclient: RCPT TO <%s> rejected: %d %s", rcpt, resp.Code, resp.Text()))
		}
	}

	cl.state = StateData
	resp, err = cl.command(ctx, "DATA")
	if err != nil {
		return err
	}
	if resp.Code != 354 {
		return cl.abort(ctx, fmt.Errorf("smtpclient: DATA rejected: %d %s", resp.Code, resp.Text()))
	}

	cl.state = StateSendData
	if err := cl.sendBody(ctx, body, bodySize, progress, interval); err != nil {
		return err
	}

	cl.state = StateEom
	if err := cl.Base.WriteLine(ctx, "."); err != nil {
		return err
	}
	final, err := readResponse(ctx, cl.Base)
	if err != nil {
		return err
	}
	if !final.OK() {
		return fmt.Errorf("smtpclient: message rejected: %d %s", final.Code, final.Text())
	}
	return nil
}

// abort transitions through StateRset, issuing RSET so the connection
// can be reused for a subsequent send, and returns the original error.
// RSET's own outcome is logged, not propagated: the caller already has
// the cause of failure and a broken RSET doesn't change it.
func (cl *Client) abort(ctx context.Context, cause error) error {
	cl.state = StateRset
	if resp, err := cl.command(ctx, "RSET"); err != nil {
		cl.Logger.Warn("smtp RSET failed", "error", err)
	} else if !resp.OK() {
		cl.Logger.Warn("smtp RSET rejected", "code", resp.Code)
	}
	cl.state = StateHelo
	return cause
}

func (cl *Client) sendBody(ctx context.Context, body io.Reader, bodySize int64, progress ProgressFunc, interval time.Duration) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var sent int64
	last := time.Now()
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		stuffed := dotStuff(line)
		if err := cl.Base.WriteLine(ctx, stuffed); err != nil {
			return err
		}
		sent += int64(len(line)) + 2
		if progress != nil && (time.Since(last) >= interval) {
			progress(sent, bodySize)
			last = time.Now()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("smtpclient: reading message body: %w", err)
	}
	if progress != nil {
		progress(sent, bodySize)
	}
	return nil
}

// dotStuff doubles a leading "." per RFC 5321 §4.5.2 transparency.
func dotStuff(line string) string {
	if strings.HasPrefix(line, ".") {
		return "." + line
	}
	return line
}
