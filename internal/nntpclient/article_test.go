package nntpclient

import (
	"reflect"
	"testing"
)

func TestByNumberAndByMessageID(t *testing.T) {
	if got := ByNumber(104); got != ArticleRef("104") {
		t.Fatalf("ByNumber = %q", got)
	}
	if got := ByMessageID("<id@example.com>"); got != ArticleRef("<id@example.com>") {
		t.Fatalf("ByMessageID = %q", got)
	}
}

func TestParseNumberAndMsgid(t *testing.T) {
	num, msgid := parseNumberAndMsgid("104 <id@example.com> article retrieved")
	if num != 104 || msgid != "<id@example.com>" {
		t.Fatalf("parseNumberAndMsgid = (%d, %q)", num, msgid)
	}
}

func TestParseNumberAndMsgidEmpty(t *testing.T) {
	num, msgid := parseNumberAndMsgid("")
	if num != 0 || msgid != "" {
		t.Fatalf("parseNumberAndMsgid empty = (%d, %q)", num, msgid)
	}
}

func TestArticleFetchesBodyAfterOKCode(t *testing.T) {
	step := 0
	cl, _ := newTestClient(t, func(line string) string {
		step++
		if step != 1 {
			t.Errorf("unexpected extra command %q", line)
			return "500 unexpected"
		}
		if line != "ARTICLE 104" {
			t.Errorf("unexpected command %q", line)
		}
		return "220 104 <id@example.com> article retrieved\r\nSubject: hi\r\n\r\nbody\r\n.\r\n"
	})
	num, msgid, lines, err := cl.Article(t.Context(), ByNumber(104))
	if err != nil {
		t.Fatalf("Article: %v", err)
	}
	if num != 104 || msgid != "<id@example.com>" {
		t.Fatalf("Article header = (%d, %q)", num, msgid)
	}
	want := []string{"Subject: hi", "", "body"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("Article lines = %v, want %v", lines, want)
	}
}

func TestHeadUsesCurrentArticleWhenRefEmpty(t *testing.T) {
	cl, _ := newTestClient(t, func(line string) string {
		if line != "HEAD" {
			t.Errorf("unexpected command %q", line)
		}
		return "221 104 <id@example.com> head follows\r\nSubject: hi\r\n.\r\n"
	})
	_, _, lines, err := cl.Head(t.Context(), Current)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if len(lines) != 1 || lines[0] != "Subject: hi" {
		t.Fatalf("Head lines = %v", lines)
	}
}

func TestBodyWrongCodeIsError(t *testing.T) {
	cl, _ := newTestClient(t, func(line string) string {
		return "423 No such article number"
	})
	if _, _, _, err := cl.Body(t.Context(), ByNumber(999)); err == nil {
		t.Fatal("expected error for wrong response code")
	}
}

func TestStatReturnsNumberAndMsgid(t *testing.T) {
	cl, _ := newTestClient(t, func(line string) string {
		if line != "STAT 104" {
			t.Errorf("unexpected command %q", line)
		}
		return "223 104 <id@example.com> article exists"
	})
	num, msgid, err := cl.Stat(t.Context(), ByNumber(104))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if num != 104 || msgid != "<id@example.com>" {
		t.Fatalf("Stat = (%d, %q)", num, msgid)
	}
}

func TestNextAdvancesPointer(t *testing.T) {
	cl, _ := newTestClient(t, func(line string) string {
		if line != "NEXT" {
			t.Errorf("unexpected command %q", line)
		}
		return "223 105 <id105@example.com> article retrieved"
	})
	num, msgid, err := cl.Next(t.Context())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if num != 105 || msgid != "<id105@example.com>" {
		t.Fatalf("Next = (%d, %q)", num, msgid)
	}
}
