package imapclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/infodancer/mailcore/internal/imapclient/seqset"
)

// copyCountCap bounds how many UIDs a single UID COPY command line
// folds together, per §4.3.12.
const copyCountCap = 200

// Copy issues UID COPY for every uid against destMbox, splitting the
// sequence set across multiple commands when it would otherwise exceed
// the 1000-char piece cap or the 200-UID COPY cap.
func (cl *Client) Copy(ctx context.Context, uids []uint32, destMbox string) error {
	return cl.exclusive(func() error {
		wire := ToWire(destMbox, cl.separator)
		for _, piece := range seqset.Build(uids, copyCountCap) {
			tag := cl.tags.Next()
			cmd := fmt.Sprintf("%s UID COPY %s %s", tag, piece, quoteArg(wire))
			if err := cl.writeCommand(ctx, cmd); err != nil {
				return err
			}
			if err := cl.drainUntilTagged(ctx, tag, "UID COPY"); err != nil {
				return err
			}
		}
		return nil
	})
}

// storeOp names STORE's three flag-update modes.
type storeOp int

const (
	StoreSet storeOp = iota
	StoreAdd
	StoreRemove
)

// Store issues UID STORE to add, remove, or replace flags on uids.
func (cl *Client) Store(ctx context.Context, uids []uint32, op storeOp, flags IMAPFlags) error {
	return cl.exclusive(func() error {
		item := "FLAGS"
		switch op {
		case StoreAdd:
			item = "+FLAGS"
		case StoreRemove:
			item = "-FLAGS"
		}
		kws := flags.wireKeywords()
		for _, piece := range seqset.Build(uids, 0) {
			tag := cl.tags.Next()
			cmd := fmt.Sprintf("%s UID STORE %s %s (%s)", tag, piece, item, strings.Join(kws, " "))
			if err := cl.writeCommand(ctx, cmd); err != nil {
				return err
			}
			if err := cl.drainUntilTagged(ctx, tag, "UID STORE"); err != nil {
				return err
			}
		}
		return nil
	})
}

// Expunge permanently removes messages marked \Deleted in the selected
// mailbox.
func (cl *Client) Expunge(ctx context.Context) error {
	return cl.exclusive(func() error {
		tag := cl.tags.Next()
		if err := cl.writeCommand(ctx, tag+" EXPUNGE"); err != nil {
			return err
		}
		return cl.drainUntilTagged(ctx, tag, "EXPUNGE")
	})
}

// Close closes the selected mailbox, expunging \Deleted messages as a
// side effect, and clears the cached selection state.
func (cl *Client) Close(ctx context.Context) error {
	return cl.exclusive(func() error {
		tag := cl.tags.Next()
		if err := cl.writeCommand(ctx, tag+" CLOSE"); err != nil {
			return err
		}
		if err := cl.drainUntilTagged(ctx, tag, "CLOSE"); err != nil {
			return err
		}
		cl.selected = nil
		return nil
	})
}

// Logout sends LOGOUT and waits for the server's BYE + tagged OK before
// the caller closes the underlying connection.
func (cl *Client) Logout(ctx context.Context) error {
	return cl.exclusive(func() error {
		tag := cl.tags.Next()
		if err := cl.writeCommand(ctx, tag+" LOGOUT"); err != nil {
			return err
		}
		return cl.drainUntilTagged(ctx, tag, "LOGOUT")
	})
}

// drainUntilTagged reads and discards untagged responses until the
// command's tagged completion arrives, returning an error if it isn't OK.
func (cl *Client) drainUntilTagged(ctx context.Context, tag, cmdName string) error {
	for {
		line, err := ReadLine(ctx, cl.Base)
		if err != nil {
			return err
		}
		if line.Tag == tag {
			if responseStatus(line) != StatusOK {
				return fmt.Errorf("imapclient: %s failed: %s", cmdName, line.Raw)
			}
			return nil
		}
	}
}
