package imapclient

import "context"

// SyncResult describes how a folder's local UID-keyed cache should
// change after reconciling against a fresh server flag map, per
// §4.3.8 steps 1-3.
type SyncResult struct {
	// Discarded is true when the stored UIDVALIDITY didn't match the
	// server's and the entire local cache was thrown away before
	// reconciliation (the UIDVALIDITY gating invariant).
	Discarded bool

	// Deleted holds UIDs present locally but absent from the server
	// map; callers remove their on-disk copy and decrement counters.
	Deleted []uint32

	// Changed holds UIDs whose flag bits differ from the local cache;
	// callers update permanent flags and replace the color label.
	Changed []uint32

	// FirstNewUID is the first server UID absent from the local cache,
	// marking the start of the "fetch new envelopes" range (0 if every
	// server UID was already cached).
	FirstNewUID uint32

	// WindowFirst/WindowLast bound the UIDs that should survive in the
	// cache after trimming to [first_uid, last_uid] (step 3); zero
	// values mean the server reported no messages at all.
	WindowFirst uint32
	WindowLast  uint32
}

// ReconcileFlags is the pure decision function behind folder sync: given
// the server's current uid->flags map and the previously cached one, it
// computes what the local cache must do to catch up. It takes no
// network action itself, so it is fully unit-testable.
func ReconcileFlags(serverFlags, localFlags map[uint32]IMAPFlags, storedUIDValidity, serverUIDValidity int64) SyncResult {
	if storedUIDValidity != serverUIDValidity {
		localFlags = nil
	}

	res := SyncResult{Discarded: storedUIDValidity != serverUIDValidity}

	for uid := range localFlags {
		if _, ok := serverFlags[uid]; !ok {
			res.Deleted = append(res.Deleted, uid)
		}
	}
	for uid, sf := range serverFlags {
		if lf, ok := localFlags[uid]; ok {
			if lf != sf {
				res.Changed = append(res.Changed, uid)
			}
		} else if res.FirstNewUID == 0 || uid < res.FirstNewUID {
			res.FirstNewUID = uid
		}
	}

	for uid := range serverFlags {
		if res.WindowFirst == 0 || uid < res.WindowFirst {
			res.WindowFirst = uid
		}
		if uid > res.WindowLast {
			res.WindowLast = uid
		}
	}
	return res
}

// SyncFolder selects mbox, fetches the server's current flag map, and
// reconciles it against the caller's locally cached flags, returning
// both the fresh server map (for the caller to persist) and the
// SyncResult describing what changed.
func (cl *Client) SyncFolder(ctx context.Context, mbox string, storedUIDValidity int64, localFlags map[uint32]IMAPFlags) (map[uint32]IMAPFlags, SyncResult, error) {
	st, err := cl.Select(ctx, mbox, true)
	if err != nil {
		return nil, SyncResult{}, err
	}
	serverFlags, err := cl.FetchFlags(ctx)
	if err != nil {
		return nil, SyncResult{}, err
	}
	res := ReconcileFlags(serverFlags, localFlags, storedUIDValidity, st.UIDValidity)
	return serverFlags, res, nil
}
