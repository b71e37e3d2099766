package nntpclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Group selects name via GROUP, unless it is already the selected
// group and the caller doesn't need fresh article counts (§4.4).
func (cl *Client) Group(ctx context.Context, name string, needCounts bool) (GroupInfo, error) {
	if !needCounts && cl.Selected.Name == name {
		return cl.Selected, nil
	}
	resp, err := cl.command(ctx, "GROUP "+name)
	if err != nil {
		return GroupInfo{}, err
	}
	if resp.Code != 211 {
		return GroupInfo{}, fmt.Errorf("nntpclient: GROUP %s failed: %d %s", name, resp.Code, resp.Text)
	}
	info, err := parseGroupResponse(resp.Text)
	if err != nil {
		return GroupInfo{}, err
	}
	cl.Selected = info
	return info, nil
}

// parseGroupResponse parses "<count> <low> <high> <group>".
func parseGroupResponse(text string) (GroupInfo, error) {
	fields := strings.Fields(text)
	if len(fields) < 4 {
		return GroupInfo{}, fmt.Errorf("nntpclient: malformed GROUP response %q", text)
	}
	count, err1 := strconv.ParseInt(fields[0], 10, 64)
	low, err2 := strconv.ParseInt(fields[1], 10, 64)
	high, err3 := strconv.ParseInt(fields[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return GroupInfo{}, fmt.Errorf("nntpclient: malformed GROUP counters %q", text)
	}
	return GroupInfo{Name: fields[3], Count: count, Low: low, High: high}, nil
}

// Mode sends MODE READER, which some servers require before any other
// command to switch out of a transit-only posting mode.
func (cl *Client) Mode(ctx context.Context, mode string) error {
	resp, err := cl.command(ctx, "MODE "+mode)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("nntpclient: MODE %s failed: %d %s", mode, resp.Code, resp.Text)
	}
	return nil
}

// List requests LIST (or LIST ACTIVE when wildmat is non-empty) and
// returns each multiline response line verbatim for the caller to parse.
func (cl *Client) List(ctx context.Context, wildmat string) ([]string, error) {
	cmd := "LIST"
	if wildmat != "" {
		cmd = "LIST ACTIVE " + wildmat
	}
	resp, err := cl.command(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if resp.Code != 215 {
		return nil, fmt.Errorf("nntpclient: LIST failed: %d %s", resp.Code, resp.Text)
	}
	return readMultiline(ctx, cl.Base)
}
