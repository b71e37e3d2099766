package nntpclient

import (
	"log/slog"
	"net"
	"testing"

	"github.com/infodancer/mailcore/internal/session"
	"github.com/infodancer/mailcore/internal/transport/socket"
)

// newTestClient wires a Client to one end of a net.Pipe, with reply
// driving the scripted server goroutine on the other end. reply is
// called once per line the Client writes and returns the single-line
// response text to send back (without the trailing CRLF).
func newTestClient(t *testing.T, reply func(line string) string) (*Client, net.Conn) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	cl := &Client{
		Base: session.NewBase(session.KindNNTP, socket.New(clientConn, 0), slog.Default(), 0, 0),
	}
	serverSock := socket.New(serverConn, 0)
	go func() {
		for {
			line, err := serverSock.Gets()
			if err != nil {
				return
			}
			resp := reply(line)
			if resp == "" {
				continue
			}
			if err := serverSock.WriteString(resp + "\r\n"); err != nil {
				return
			}
		}
	}()
	return cl, clientConn
}

func TestGroupFastPathSkipsWireRoundtrip(t *testing.T) {
	cl, _ := newTestClient(t, func(line string) string {
		t.Errorf("unexpected wire traffic: %q", line)
		return "500 unexpected"
	})
	cl.Selected = GroupInfo{Name: "misc.test", Count: 10, Low: 1, High: 10}

	info, err := cl.Group(t.Context(), "misc.test", false)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if info != cl.Selected {
		t.Fatalf("Group fast path returned %+v, want %+v", info, cl.Selected)
	}
}

func TestGroupSendsCommandWhenCountsNeeded(t *testing.T) {
	cl, _ := newTestClient(t, func(line string) string {
		if line != "GROUP misc.test" {
			t.Errorf("unexpected command %q", line)
		}
		return "211 5 100 104 misc.test"
	})
	cl.Selected = GroupInfo{Name: "misc.test"}

	info, err := cl.Group(t.Context(), "misc.test", true)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	want := GroupInfo{Name: "misc.test", Count: 5, Low: 100, High: 104}
	if info != want {
		t.Fatalf("Group = %+v, want %+v", info, want)
	}
	if cl.Selected != want {
		t.Fatalf("Selected = %+v, want %+v", cl.Selected, want)
	}
}

func TestCommandRetriesOnceAfterDeferredAuthinfo(t *testing.T) {
	step := 0
	cl, _ := newTestClient(t, func(line string) string {
		step++
		switch step {
		case 1:
			if line != "GROUP secret" {
				t.Errorf("unexpected first command %q", line)
			}
			return "480 Authentication required"
		case 2:
			if line != "AUTHINFO USER alice" {
				t.Errorf("unexpected auth user command %q", line)
			}
			return "381 Password required"
		case 3:
			if line != "AUTHINFO PASS hunter2" {
				t.Errorf("unexpected auth pass command %q", line)
			}
			return "281 Authenticated"
		case 4:
			if line != "GROUP secret" {
				t.Errorf("unexpected retried command %q", line)
			}
			return "211 1 1 1 secret"
		default:
			t.Errorf("unexpected extra command %q", line)
			return "500 unexpected"
		}
	})
	cl.SetCredentials("alice", "hunter2")

	resp, err := cl.command(t.Context(), "GROUP secret")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if resp.Code != 211 {
		t.Fatalf("resp.Code = %d, want 211", resp.Code)
	}
	if cl.AuthFailed() {
		t.Fatal("AuthFailed() = true after successful retry")
	}
}

func TestCommandPermanentlyFailsAfterSecondAuthFailure(t *testing.T) {
	step := 0
	cl, _ := newTestClient(t, func(line string) string {
		step++
		switch step {
		case 1:
			return "480 Authentication required"
		case 2:
			return "381 Password required"
		case 3:
			return "481 Authentication rejected"
		case 4:
			// A second command is still sent as-is; authFailed only
			// suppresses a further AUTHINFO retry, not the command itself.
			if line != "GROUP secret" {
				t.Errorf("unexpected second command %q", line)
			}
			return "480 Authentication required"
		default:
			t.Errorf("unexpected extra command %q", line)
			return "500 unexpected"
		}
	})
	cl.SetCredentials("alice", "wrong")

	resp, err := cl.command(t.Context(), "GROUP secret")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if resp.Code != 480 {
		t.Fatalf("resp.Code = %d, want original 480 surfaced", resp.Code)
	}
	if !cl.AuthFailed() {
		t.Fatal("AuthFailed() = false after failed retry")
	}

	// A second 480 must not trigger another AUTHINFO attempt.
	resp2, err := cl.command(t.Context(), "GROUP secret")
	if err != nil {
		t.Fatalf("command (second): %v", err)
	}
	if resp2.Code != 480 {
		t.Fatalf("resp2.Code = %d, want 480 with no further AUTHINFO retry", resp2.Code)
	}
}

func TestModeSendsCommand(t *testing.T) {
	cl, _ := newTestClient(t, func(line string) string {
		if line != "MODE READER" {
			t.Errorf("unexpected command %q", line)
		}
		return "200 Posting allowed"
	})
	if err := cl.Mode(t.Context(), "READER"); err != nil {
		t.Fatalf("Mode: %v", err)
	}
}

func TestListReturnsMultilineBody(t *testing.T) {
	step := 0
	cl, _ := newTestClient(t, func(line string) string {
		step++
		if step == 1 {
			if line != "LIST" {
				t.Errorf("unexpected command %q", line)
			}
			return "215 list follows\r\nmisc.test 104 1 y\r\n.\r\n"
		}
		return ""
	})
	lines, err := cl.List(t.Context(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lines) != 1 || lines[0] != "misc.test 104 1 y" {
		t.Fatalf("List lines = %v", lines)
	}
}

func TestParseGroupResponse(t *testing.T) {
	info, err := parseGroupResponse("5 100 104 misc.test")
	if err != nil {
		t.Fatalf("parseGroupResponse: %v", err)
	}
	want := GroupInfo{Name: "misc.test", Count: 5, Low: 100, High: 104}
	if info != want {
		t.Fatalf("parseGroupResponse = %+v, want %+v", info, want)
	}
}

func TestParseGroupResponseMalformed(t *testing.T) {
	if _, err := parseGroupResponse("not enough fields"); err == nil {
		t.Fatal("expected error for malformed GROUP response")
	}
	if _, err := parseGroupResponse("x y z misc.test"); err == nil {
		t.Fatal("expected error for non-numeric counters")
	}
}
