package smtpclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/infodancer/mailcore/internal/session"
)

// Response is a complete (possibly multiline) SMTP reply: one status
// code and every text line, continuation lines ("250-...") folded in.
type Response struct {
	Code  int
	Lines []string
}

// OK reports whether the code is in the 2xx/3xx success range.
func (r Response) OK() bool {
	return r.Code >= 200 && r.Code < 400
}

// Text joins all lines with "; " for error messages.
func (r Response) Text() string {
	return strings.Join(r.Lines, "; ")
}

// readResponse reads one complete reply, following "code-text"
// continuation lines until a "code text" (space, not dash) final line.
// Lines are read through base so the shared session lifecycle
// (RECV transitions, last-access) is exercised on every reply.
func readResponse(ctx context.Context, base *session.Base) (Response, error) {
	var resp Response
	for {
		line, err := base.ReadLine(ctx)
		if err != nil {
			return Response{}, err
		}
		code, text, more, ok := splitResponseLine(line)
		if !ok {
			return Response{}, fmt.Errorf("smtpclient: malformed response line %q", line)
		}
		if resp.Code == 0 {
			resp.Code = code
		} else if code != resp.Code {
			return Response{}, fmt.Errorf("smtpclient: response code changed mid-reply: %d then %d", resp.Code, code)
		}
		resp.Lines = append(resp.Lines, text)
		if !more {
			return resp, nil
		}
	}
}

func splitResponseLine(line string) (code int, text string, more, ok bool) {
	if len(line) < 3 {
		return 0, "", false, false
	}
	n, err := strconv.Atoi(line[:3])
	if err != nil {
		return 0, "", false, false
	}
	if len(line) == 3 {
		return n, "", false, true
	}
	sep := line[3]
	if sep != '-' && sep != ' ' {
		return 0, "", false, false
	}
	return n, line[4:], sep == '-', true
}
