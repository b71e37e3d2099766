package queue

import (
	"testing"
)

func TestParseQueuedFileSplitsHeaderAndBody(t *testing.T) {
	data := []byte("S:alice@example.com\n" +
		"R:bob@example.com, carol@example.com\n" +
		"AID:3\n" +
		"REP:inbox/12\n" +
		"FWD:inbox/9\n" +
		"FWD:sent/4\n" +
		"MID:<abc123@example.com>\n" +
		"SSH:ignored\n" +
		"\n" +
		"Subject: hi\r\n\r\nbody text\r\n")

	info, body, err := ParseQueuedFile(data)
	if err != nil {
		t.Fatalf("ParseQueuedFile: %v", err)
	}
	if info.Sender != "alice@example.com" {
		t.Fatalf("Sender = %q", info.Sender)
	}
	if len(info.Recipients) != 2 || info.Recipients[0] != "bob@example.com" || info.Recipients[1] != "carol@example.com" {
		t.Fatalf("Recipients = %v", info.Recipients)
	}
	if info.AccountID != 3 {
		t.Fatalf("AccountID = %d", info.AccountID)
	}
	if info.ReplyTarget != "inbox/12" {
		t.Fatalf("ReplyTarget = %q", info.ReplyTarget)
	}
	if len(info.ForwardTargets) != 2 || info.ForwardTargets[0] != "inbox/9" || info.ForwardTargets[1] != "sent/4" {
		t.Fatalf("ForwardTargets = %v", info.ForwardTargets)
	}
	if info.MessageID != "<abc123@example.com>" {
		t.Fatalf("MessageID = %q", info.MessageID)
	}
	wantBody := "Subject: hi\r\n\r\nbody text\r\n"
	if string(body) != wantBody {
		t.Fatalf("body = %q, want %q", body, wantBody)
	}
}

func TestParseQueuedFileMissingBlankLine(t *testing.T) {
	data := []byte("S:alice@example.com\nbody without blank line terminator")
	if _, _, err := ParseQueuedFile(data); err == nil {
		t.Fatal("expected error for missing blank line")
	}
}

func TestParseQueuedFileMalformedLine(t *testing.T) {
	data := []byte("not a header line\n\nbody\n")
	if _, _, err := ParseQueuedFile(data); err == nil {
		t.Fatal("expected error for header line with no colon")
	}
}

func TestParseQueuedFileUnrecognizedKey(t *testing.T) {
	data := []byte("ZZZ:surprise\n\nbody\n")
	if _, _, err := ParseQueuedFile(data); err == nil {
		t.Fatal("expected error for unrecognized key")
	}
}

func TestParseQueuedFileNewsgroupHeader(t *testing.T) {
	data := []byte("S:alice@example.com\nNG:comp.lang.go,rec.arts\n\nbody\n")
	info, _, err := ParseQueuedFile(data)
	if err != nil {
		t.Fatalf("ParseQueuedFile: %v", err)
	}
	if len(info.Newsgroups) != 2 || info.Newsgroups[0] != "comp.lang.go" || info.Newsgroups[1] != "rec.arts" {
		t.Fatalf("Newsgroups = %v", info.Newsgroups)
	}
}

func TestParseQueuedFileEmptyHeaderIsValid(t *testing.T) {
	data := []byte("\nbody only\n")
	info, body, err := ParseQueuedFile(data)
	if err != nil {
		t.Fatalf("ParseQueuedFile: %v", err)
	}
	if info.Sender != "" {
		t.Fatalf("Sender = %q, want empty", info.Sender)
	}
	if string(body) != "body only\n" {
		t.Fatalf("body = %q", body)
	}
}
