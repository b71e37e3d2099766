package queue

import (
	"fmt"

	"github.com/infodancer/mailcore/internal/config"
)

// ConfigAccountLookup implements AccountLookup against a loaded
// config.Config: a queued message's AID: is the zero-based index of
// its owning account in cfg.Accounts, the natural identifier for an
// account list with no separate id field.
type ConfigAccountLookup struct {
	Config *config.Config
}

func (l ConfigAccountLookup) account(accountID int, want config.Protocol) (config.Account, error) {
	if l.Config == nil || accountID < 0 || accountID >= len(l.Config.Accounts) {
		return config.Account{}, fmt.Errorf("queue: no account at index %d", accountID)
	}
	acc := l.Config.Accounts[accountID]
	if acc.Protocol != want {
		return config.Account{}, fmt.Errorf("queue: account %d (%s) is %s, want %s", accountID, acc.Name, acc.Protocol, want)
	}
	return acc, nil
}

// MailAccount resolves the SMTP account for a queued message's mail
// recipients. Per §4.6 step 2, an NNTP-owned message with mail
// recipients needs a *separate* mail account; SSV: names it when the
// owning account itself isn't SMTP, falling back to AID: otherwise.
func (l ConfigAccountLookup) MailAccount(accountID int) (config.Account, error) {
	return l.account(accountID, config.ProtocolSMTP)
}

// NewsAccount resolves the NNTP account for a queued message's
// newsgroup recipients.
func (l ConfigAccountLookup) NewsAccount(accountID int) (config.Account, error) {
	return l.account(accountID, config.ProtocolNNTP)
}

func (l ConfigAccountLookup) named(name string, want config.Protocol) (config.Account, error) {
	if l.Config == nil {
		return config.Account{}, fmt.Errorf("queue: no config loaded")
	}
	acc, ok := l.Config.FindAccount(name)
	if !ok {
		return config.Account{}, fmt.Errorf("queue: no account named %q", name)
	}
	if acc.Protocol != want {
		return config.Account{}, fmt.Errorf("queue: account %q is %s, want %s", name, acc.Protocol, want)
	}
	return acc, nil
}

// MailAccountNamed resolves a mail account by name. The SSV: server
// hint in the queue header names an account this way, for messages
// whose owning account doesn't itself match the protocol needed
// (§4.6 step 2: an NNTP-owned message with mail recipients needs a
// separate SMTP account).
func (l ConfigAccountLookup) MailAccountNamed(name string) (config.Account, error) {
	return l.named(name, config.ProtocolSMTP)
}

// NewsAccountNamed resolves an NNTP account by name, the NSV: hint's
// counterpart to MailAccountNamed.
func (l ConfigAccountLookup) NewsAccountNamed(name string) (config.Account, error) {
	return l.named(name, config.ProtocolNNTP)
}
