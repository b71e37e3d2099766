// Package nntpclient implements an RFC 3977 NNTP client: group
// selection, article retrieval, overview/header batch queries, posting,
// and deferred AUTHINFO authentication.
package nntpclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/infodancer/mailcore/internal/session"
)

// Response is one parsed single-line NNTP reply: a 3-digit status code
// and the trailing text.
type Response struct {
	Code int
	Text string
}

// OK reports whether the code is in the 2xx/3xx success range.
func (r Response) OK() bool {
	return r.Code >= 200 && r.Code < 400
}

func readResponse(ctx context.Context, base *session.Base) (Response, error) {
	line, err := base.ReadLine(ctx)
	if err != nil {
		return Response{}, err
	}
	code, text, ok := splitResponseLine(line)
	if !ok {
		return Response{}, fmt.Errorf("nntpclient: malformed response line %q", line)
	}
	return Response{Code: code, Text: text}, nil
}

func splitResponseLine(line string) (int, string, bool) {
	if len(line) < 3 {
		return 0, "", false
	}
	code, err := strconv.Atoi(line[:3])
	if err != nil {
		return 0, "", false
	}
	text := strings.TrimPrefix(line[3:], " ")
	return code, text, true
}

// readMultiline reads a dot-terminated multiline block (the body of an
// ARTICLE/HEAD/BODY/LIST/XOVER/XHDR response), un-stuffing any leading
// "." doubled for transparency and stripping the terminating "." line.
func readMultiline(ctx context.Context, base *session.Base) ([]string, error) {
	var lines []string
	for {
		line, err := base.ReadLine(ctx)
		if err != nil {
			return nil, err
		}
		if line == "." {
			return lines, nil
		}
		if strings.HasPrefix(line, "..") {
			line = line[1:]
		}
		lines = append(lines, line)
	}
}
