package nntpclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Post sends body (an RFC 5322 message, CRLF or bare-LF terminated) via
// POST: waits for the 340 continuation, dot-stuffs the body, writes the
// terminating ".", and expects 240.
func (cl *Client) Post(ctx context.Context, body io.Reader) error {
	resp, err := cl.command(ctx, "POST")
	if err != nil {
		return err
	}
	if resp.Code != 340 {
		return fmt.Errorf("nntpclient: POST not accepted: %d %s", resp.Code, resp.Text)
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if err := cl.writeLine(ctx, dotStuff(line)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("nntpclient: reading POST body: %w", err)
	}
	if err := cl.writeLine(ctx, "."); err != nil {
		return err
	}

	final, err := readResponse(ctx, cl.Base)
	if err != nil {
		return err
	}
	if final.Code != 240 {
		return fmt.Errorf("nntpclient: POST rejected: %d %s", final.Code, final.Text)
	}
	return nil
}

// dotStuff doubles a leading "." per RFC 3977 §3.1.1 transparency.
func dotStuff(line string) string {
	if strings.HasPrefix(line, ".") {
		return "." + line
	}
	return line
}
