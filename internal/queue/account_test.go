package queue

import (
	"testing"

	"github.com/infodancer/mailcore/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Accounts: []config.Account{
			{Name: "work-imap", Protocol: config.ProtocolIMAP, Host: "imap.example.com"},
			{Name: "work-smtp", Protocol: config.ProtocolSMTP, Host: "smtp.example.com"},
			{Name: "news", Protocol: config.ProtocolNNTP, Host: "news.example.com"},
		},
	}
}

func TestConfigAccountLookupByIndex(t *testing.T) {
	l := ConfigAccountLookup{Config: testConfig()}
	acc, err := l.MailAccount(1)
	if err != nil {
		t.Fatalf("MailAccount: %v", err)
	}
	if acc.Host != "smtp.example.com" {
		t.Fatalf("Host = %q", acc.Host)
	}

	acc, err = l.NewsAccount(2)
	if err != nil {
		t.Fatalf("NewsAccount: %v", err)
	}
	if acc.Host != "news.example.com" {
		t.Fatalf("Host = %q", acc.Host)
	}
}

func TestConfigAccountLookupWrongProtocol(t *testing.T) {
	l := ConfigAccountLookup{Config: testConfig()}
	if _, err := l.MailAccount(0); err == nil {
		t.Fatal("expected error: account 0 is imap, not smtp")
	}
	if _, err := l.NewsAccount(1); err == nil {
		t.Fatal("expected error: account 1 is smtp, not nntp")
	}
}

func TestConfigAccountLookupOutOfRange(t *testing.T) {
	l := ConfigAccountLookup{Config: testConfig()}
	if _, err := l.MailAccount(99); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

func TestConfigAccountLookupNamed(t *testing.T) {
	l := ConfigAccountLookup{Config: testConfig()}
	acc, err := l.MailAccountNamed("work-smtp")
	if err != nil {
		t.Fatalf("MailAccountNamed: %v", err)
	}
	if acc.Host != "smtp.example.com" {
		t.Fatalf("Host = %q", acc.Host)
	}
	if _, err := l.MailAccountNamed("does-not-exist"); err == nil {
		t.Fatal("expected error for unknown account name")
	}
	if _, err := l.NewsAccountNamed("work-smtp"); err == nil {
		t.Fatal("expected error: work-smtp is smtp, not nntp")
	}
}
