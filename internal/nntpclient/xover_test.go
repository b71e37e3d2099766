package nntpclient

import (
	"reflect"
	"testing"
)

func TestParseOverviewLine(t *testing.T) {
	line := "104\tHello =?UTF-8?Q?world?=\tAlice <alice@example.com>\tWed, 01 Jan 2026 00:00:00 +0000\t<msg104@example.com>\t<msg100@example.com> <msg101@example.com>\t1234\t42"
	entry, ok := parseOverviewLine(line)
	if !ok {
		t.Fatal("parseOverviewLine returned ok=false")
	}
	want := OverviewEntry{
		Number:     104,
		Subject:    "Hello world",
		From:       "Alice <alice@example.com>",
		Date:       "Wed, 01 Jan 2026 00:00:00 +0000",
		MessageID:  "<msg104@example.com>",
		References: []string{"<msg100@example.com>", "<msg101@example.com>"},
		Bytes:      1234,
		Lines:      42,
	}
	if !reflect.DeepEqual(entry, want) {
		t.Fatalf("parseOverviewLine = %+v, want %+v", entry, want)
	}
}

func TestParseOverviewLinePlainSubjectUnchanged(t *testing.T) {
	line := "1\tPlain subject\tBob <bob@example.com>\tdate\t<m1@example.com>\t\t10\t1"
	entry, ok := parseOverviewLine(line)
	if !ok {
		t.Fatal("parseOverviewLine returned ok=false")
	}
	if entry.Subject != "Plain subject" {
		t.Fatalf("Subject = %q, want unchanged plain text", entry.Subject)
	}
	if len(entry.References) != 0 {
		t.Fatalf("References = %v, want empty", entry.References)
	}
}

func TestParseOverviewLineTooFewFields(t *testing.T) {
	if _, ok := parseOverviewLine("1\t2\t3"); ok {
		t.Fatal("expected ok=false for too few fields")
	}
}

func TestParseOverviewLineNonNumericNumber(t *testing.T) {
	if _, ok := parseOverviewLine("x\tS\tF\tD\tM\tR\t1\t1"); ok {
		t.Fatal("expected ok=false for non-numeric article number")
	}
}

func TestExtractMessageIDTrimsWhitespace(t *testing.T) {
	if got := extractMessageID("  <id@example.com>  "); got != "<id@example.com>" {
		t.Fatalf("extractMessageID = %q", got)
	}
}
