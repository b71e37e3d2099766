package queue

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/infodancer/mailcore/internal/config"
	"github.com/infodancer/mailcore/internal/credential"
	"github.com/infodancer/mailcore/internal/nntpclient"
	"github.com/infodancer/mailcore/internal/smtpclient"
	"github.com/infodancer/mailcore/internal/transport/resolveraddr"
)

// MailFolder is the narrow collaborator the dispatcher uses to flip
// the replied/forwarded bits on a sent message's originating folder,
// addressed by a portable `<folder-path>/<msgnum>` locator (§4.6
// step 4). Implementations must verify the stored Message-ID before
// applying the update, per the step's safety check.
type MailFolder interface {
	// MessageID returns the Message-ID stored for msgnum in folder.
	MessageID(folder string, msgnum int) (string, error)
	// MarkReplied records that msgnum in folder has been replied to.
	MarkReplied(folder string, msgnum int) error
	// MarkForwarded records that msgnum in folder has been forwarded,
	// clearing any previously-set replied bit (§4.6 step 4).
	MarkForwarded(folder string, msgnum int) error
}

// AccountLookup resolves a queued message's AID: account id to the
// config.Account to dial. mail is used for SMTP sends and news for
// NNTP posts; a queued message may need both (§4.6 step 2) when its
// owning account is NNTP but it also carries mail recipients.
type AccountLookup interface {
	MailAccount(accountID int) (config.Account, error)
	NewsAccount(accountID int) (config.Account, error)
	MailAccountNamed(name string) (config.Account, error)
	NewsAccountNamed(name string) (config.Account, error)
}

// Dispatcher sends queued messages (§4.6).
type Dispatcher struct {
	Accounts   AccountLookup
	Folders    MailFolder
	Resolver   resolveraddr.Resolver
	Credential *credential.Cache
	Logger     *slog.Logger
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// ParseFolderAddress splits a "<folder-path>/<msgnum>" locator as
// used by REP: and FWD: into its folder path and message number.
func ParseFolderAddress(addr string) (folder string, msgnum int, err error) {
	idx := strings.LastIndex(addr, "/")
	if idx < 0 {
		return "", 0, fmt.Errorf("queue: malformed folder address %q", addr)
	}
	folder = addr[:idx]
	msgnum, err = strconv.Atoi(addr[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("queue: malformed folder address %q: %w", addr, err)
	}
	return folder, msgnum, nil
}

// Send dispatches one queued-message file (§4.6 steps 1-4). path
// names the queue file on disk; it is not removed here — the caller
// (typically QueueSendAll) removes a queue file only after Send
// reports success.
func (d *Dispatcher) Send(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("queue: reading %s: %w", path, err)
	}
	info, body, err := ParseQueuedFile(data)
	if err != nil {
		return fmt.Errorf("queue: parsing %s: %w", path, err)
	}

	isNews := len(info.Newsgroups) > 0
	isMail := len(info.Recipients) > 0

	if isMail {
		var acc config.Account
		var err error
		if info.SMTPServerHint != "" {
			acc, err = d.Accounts.MailAccountNamed(info.SMTPServerHint)
		} else {
			acc, err = d.Accounts.MailAccount(info.AccountID)
		}
		if err != nil {
			return fmt.Errorf("queue: resolving mail account for %s: %w", path, err)
		}
		if err := d.sendSMTP(ctx, acc, info, body); err != nil {
			return fmt.Errorf("queue: SMTP send for %s: %w", path, err)
		}
	}
	if isNews {
		var acc config.Account
		var err error
		if info.NNTPServerHint != "" {
			acc, err = d.Accounts.NewsAccountNamed(info.NNTPServerHint)
		} else {
			acc, err = d.Accounts.NewsAccount(info.AccountID)
		}
		if err != nil {
			return fmt.Errorf("queue: resolving news account for %s: %w", path, err)
		}
		if err := d.postNNTP(ctx, acc, info, body); err != nil {
			return fmt.Errorf("queue: NNTP post for %s: %w", path, err)
		}
	}

	d.applyFlagUpdates(info)
	return nil
}

func (d *Dispatcher) sendSMTP(ctx context.Context, acc config.Account, info *QueueInfo, body []byte) error {
	cl, err := smtpclient.Connect(ctx, acc, d.Resolver, d.logger())
	if err != nil {
		return err
	}
	defer cl.Disconnect()

	if acc.Username != "" {
		pass, err := d.credentialFor(ctx, acc)
		if err != nil {
			return fmt.Errorf("fetching credential: %w", err)
		}
		status, err := cl.Authenticate(ctx, acc.Username, pass)
		if err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
		if status == smtpclient.StatusAuthFail && d.Credential != nil {
			d.Credential.Forget(acc.Host, acc.Username)
		}
		if status != smtpclient.StatusOK {
			return fmt.Errorf("authentication failed")
		}
	}

	return cl.Send(ctx, info.Sender, info.Recipients, bytes.NewReader(body), int64(len(body)), nil)
}

func (d *Dispatcher) postNNTP(ctx context.Context, acc config.Account, info *QueueInfo, body []byte) error {
	cl, err := nntpclient.Connect(ctx, acc, d.Resolver, d.logger())
	if err != nil {
		return err
	}
	defer cl.Quit()

	if acc.Username != "" {
		pass, err := d.credentialFor(ctx, acc)
		if err != nil {
			return fmt.Errorf("fetching credential: %w", err)
		}
		cl.SetCredentials(acc.Username, pass)
	}

	if err := cl.Post(ctx, bytes.NewReader(body)); err != nil {
		if cl.AuthFailed() && d.Credential != nil {
			d.Credential.Forget(acc.Host, acc.Username)
		}
		return err
	}
	return nil
}

func (d *Dispatcher) credentialFor(ctx context.Context, acc config.Account) (string, error) {
	if d.Credential == nil {
		return "", fmt.Errorf("queue: no credential source configured for account %q", acc.Name)
	}
	return d.Credential.Query(ctx, acc.Host, acc.Username)
}

// applyFlagUpdates implements §4.6 step 4: REP: marks one message
// replied; FWD: marks each listed message forwarded (which also
// clears any replied bit). Failures are logged, not returned — a
// successfully sent message must not be re-queued just because a
// flag update on an unrelated folder failed.
func (d *Dispatcher) applyFlagUpdates(info *QueueInfo) {
	if d.Folders == nil {
		return
	}
	if info.ReplyTarget != "" {
		d.markOne(info.ReplyTarget, info.MessageID, d.Folders.MarkReplied)
	}
	for _, target := range info.ForwardTargets {
		d.markOne(target, info.MessageID, d.Folders.MarkForwarded)
	}
}

func (d *Dispatcher) markOne(target, messageID string, apply func(folder string, msgnum int) error) {
	folder, msgnum, err := ParseFolderAddress(target)
	if err != nil {
		d.logger().Warn("queue: skipping flag update", "target", target, "error", err)
		return
	}
	stored, err := d.Folders.MessageID(folder, msgnum)
	if err != nil {
		d.logger().Warn("queue: skipping flag update, message lookup failed", "target", target, "error", err)
		return
	}
	if messageID != "" && stored != messageID {
		d.logger().Warn("queue: skipping flag update, Message-ID mismatch",
			"target", target, "want", messageID, "got", stored)
		return
	}
	if err := apply(folder, msgnum); err != nil {
		d.logger().Warn("queue: flag update failed", "target", target, "error", err)
	}
}

// QueueSendAll enumerates queue files in folder in ascending number
// order, sends each with Send, and removes the file on success. It
// returns the number sent; failed messages are left in the queue for
// a later retry.
func (d *Dispatcher) QueueSendAll(ctx context.Context, folder string) (int, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0, fmt.Errorf("queue: listing %s: %w", folder, err)
	}

	type queued struct {
		num  int
		path string
	}
	var files []queued
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		num, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		files = append(files, queued{num: num, path: filepath.Join(folder, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].num < files[j].num })

	sent := 0
	for _, f := range files {
		if err := d.Send(ctx, f.path); err != nil {
			d.logger().Warn("queue: send failed, leaving queued", "path", f.path, "error", err)
			continue
		}
		if err := os.Remove(f.path); err != nil {
			d.logger().Warn("queue: sent message could not be removed from queue", "path", f.path, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
