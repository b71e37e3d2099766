package smtpclient

import (
	"strings"
	"testing"
)

func TestDotStuff(t *testing.T) {
	if got := dotStuff("normal"); got != "normal" {
		t.Fatalf("dotStuff = %q", got)
	}
	if got := dotStuff(".leading"); got != "..leading" {
		t.Fatalf("dotStuff = %q", got)
	}
}

func TestSendHappyPath(t *testing.T) {
	var bodyLines []string
	step := 0
	cl := newTestClient(t, func(line string) string {
		step++
		switch step {
		case 1:
			if line != "MAIL FROM:<alice@example.com>" {
				t.Errorf("unexpected command %q", line)
			}
			return "250 OK"
		case 2:
			if line != "RCPT TO:<bob@example.com>" {
				t.Errorf("unexpected command %q", line)
			}
			return "250 OK"
		case 3:
			if line != "DATA" {
				t.Errorf("unexpected command %q", line)
			}
			return "354 Start mail input"
		default:
			if line == "." {
				return "250 Queued"
			}
			bodyLines = append(bodyLines, line)
			return ""
		}
	})

	body := strings.NewReader("Subject: hi\r\n\r\n.Body with a leading dot\r\nsecond line\r\n")
	err := cl.Send(t.Context(), "alice@example.com", []string{"bob@example.com"}, body, 0, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := []string{"Subject: hi", "", "..Body with a leading dot", "second line"}
	if len(bodyLines) != len(want) {
		t.Fatalf("bodyLines = %v, want %v", bodyLines, want)
	}
	for i := range want {
		if bodyLines[i] != want[i] {
			t.Fatalf("bodyLines[%d] = %q, want %q", i, bodyLines[i], want[i])
		}
	}
	if cl.State() != StateEom {
		t.Fatalf("State() = %v, want StateEom", cl.State())
	}
}

func TestSendMailFromRejectedIssuesRset(t *testing.T) {
	step := 0
	cl := newTestClient(t, func(line string) string {
		step++
		switch step {
		case 1:
			return "451 temporary failure"
		case 2:
			if line != "RSET" {
				t.Errorf("expected RSET after MAIL FROM rejection, got %q", line)
			}
			return "250 OK"
		default:
			t.Errorf("unexpected extra command %q", line)
			return "500 unexpected"
		}
	})
	body := strings.NewReader("body\r\n")
	err := cl.Send(t.Context(), "alice@example.com", []string{"bob@example.com"}, body, 0, nil)
	if err == nil {
		t.Fatal("expected error when MAIL FROM is rejected")
	}
	if cl.State() != StateHelo {
		t.Fatalf("State() = %v, want StateHelo after RSET recovery", cl.State())
	}
}

func TestSendRcptRejectedFailsWholeSend(t *testing.T) {
	step := 0
	cl := newTestClient(t, func(line string) string {
		step++
		switch step {
		case 1:
			return "250 OK"
		case 2:
			return "550 No such user"
		case 3:
			return "250 OK" // RSET
		default:
			t.Errorf("unexpected extra command %q", line)
			return "500 unexpected"
		}
	})
	body := strings.NewReader("body\r\n")
	err := cl.Send(t.Context(), "alice@example.com", []string{"nobody@example.com"}, body, 0, nil)
	if err == nil {
		t.Fatal("expected error when a recipient is rejected")
	}
}

func TestSendProgressCallback(t *testing.T) {
	step := 0
	cl := newTestClient(t, func(line string) string {
		step++
		switch step {
		case 1:
			return "250 OK"
		case 2:
			return "250 OK"
		case 3:
			return "354 Start mail input"
		default:
			if line == "." {
				return "250 Queued"
			}
			return ""
		}
	})
	var calls int
	progress := func(sent, total int64) { calls++ }
	body := strings.NewReader("line one\r\nline two\r\n")
	err := cl.sendEvery(t.Context(), "a@example.com", []string{"b@example.com"}, body, 100, progress, 0)
	if err != nil {
		t.Fatalf("sendEvery: %v", err)
	}
	if calls == 0 {
		t.Fatal("expected at least one progress callback")
	}
}
