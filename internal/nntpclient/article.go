package nntpclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ArticleRef identifies an article by number, message-id, or neither
// (meaning "current article").
type ArticleRef string

// ByNumber and ByMessageID build the command-line argument ARTICLE/
// HEAD/BODY/STAT accept; Current leaves it empty.
func ByNumber(n int64) ArticleRef    { return ArticleRef(strconv.FormatInt(n, 10)) }
func ByMessageID(id string) ArticleRef { return ArticleRef(id) }

const Current ArticleRef = ""

// Article fetches the full article (headers + body) for ref via
// ARTICLE.
func (cl *Client) Article(ctx context.Context, ref ArticleRef) (int64, string, []string, error) {
	return cl.fetchMultiline(ctx, "ARTICLE", ref, 220)
}

// Head fetches only the headers via HEAD.
func (cl *Client) Head(ctx context.Context, ref ArticleRef) (int64, string, []string, error) {
	return cl.fetchMultiline(ctx, "HEAD", ref, 221)
}

// Body fetches only the body via BODY.
func (cl *Client) Body(ctx context.Context, ref ArticleRef) (int64, string, []string, error) {
	return cl.fetchMultiline(ctx, "BODY", ref, 222)
}

func (cl *Client) fetchMultiline(ctx context.Context, verb string, ref ArticleRef, okCode int) (int64, string, []string, error) {
	cmd := verb
	if ref != "" {
		cmd = verb + " " + string(ref)
	}
	resp, err := cl.command(ctx, cmd)
	if err != nil {
		return 0, "", nil, err
	}
	if resp.Code != okCode {
		return 0, "", nil, fmt.Errorf("nntpclient: %s failed: %d %s", verb, resp.Code, resp.Text)
	}
	num, msgid := parseNumberAndMsgid(resp.Text)
	lines, err := readMultiline(ctx, cl.Base)
	if err != nil {
		return 0, "", nil, err
	}
	return num, msgid, lines, nil
}

// Stat locates an article without transferring it, via STAT.
func (cl *Client) Stat(ctx context.Context, ref ArticleRef) (int64, string, error) {
	cmd := "STAT"
	if ref != "" {
		cmd = "STAT " + string(ref)
	}
	resp, err := cl.command(ctx, cmd)
	if err != nil {
		return 0, "", err
	}
	if resp.Code != 223 {
		return 0, "", fmt.Errorf("nntpclient: STAT failed: %d %s", resp.Code, resp.Text)
	}
	num, msgid := parseNumberAndMsgid(resp.Text)
	return num, msgid, nil
}

// Next advances the server's current-article pointer and reports the
// new article's number and message-id, via NEXT.
func (cl *Client) Next(ctx context.Context) (int64, string, error) {
	resp, err := cl.command(ctx, "NEXT")
	if err != nil {
		return 0, "", err
	}
	if resp.Code != 223 {
		return 0, "", fmt.Errorf("nntpclient: NEXT failed: %d %s", resp.Code, resp.Text)
	}
	num, msgid := parseNumberAndMsgid(resp.Text)
	return num, msgid, nil
}

func parseNumberAndMsgid(text string) (int64, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, ""
	}
	n, _ := strconv.ParseInt(fields[0], 10, 64)
	msgid := ""
	if len(fields) > 1 {
		msgid = fields[1]
	}
	return n, msgid
}
