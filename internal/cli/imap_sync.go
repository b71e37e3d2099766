package cli

import (
	"context"
	"fmt"

	"github.com/infodancer/mailcore/internal/credential"
	"github.com/infodancer/mailcore/internal/imapclient"
	"github.com/spf13/cobra"
)

var imapSyncCmd = &cobra.Command{
	Use:   "imap-sync <account>",
	Short: "Connect to an IMAP account and reconcile one mailbox's flags (§4.3.8)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := loggerFor(cfg)

		acc, ok := cfg.FindAccount(args[0])
		if !ok {
			return fmt.Errorf("no account named %q", args[0])
		}

		mailbox, err := cmd.Flags().GetString("mailbox")
		if err != nil {
			return err
		}
		storedUIDValidity, err := cmd.Flags().GetInt64("uidvalidity")
		if err != nil {
			return err
		}

		ctx := context.Background()
		cl, err := imapclient.Connect(ctx, acc, buildResolver(cfg), logger)
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", acc.Host, err)
		}
		defer cl.Disconnect()

		if !cl.Preauthenticated() && acc.Username != "" {
			cache := credential.New(credential.EnvProvider{})
			pass, err := cache.Query(ctx, acc.Host, acc.Username)
			if err != nil {
				return fmt.Errorf("fetching credential: %w", err)
			}
			status, err := cl.Authenticate(ctx, acc.Username, pass)
			if err != nil {
				return fmt.Errorf("authenticating: %w", err)
			}
			if status == imapclient.StatusAuthFail {
				cache.Forget(acc.Host, acc.Username)
				return fmt.Errorf("authentication failed")
			}
		}

		serverFlags, result, err := cl.SyncFolder(ctx, mailbox, storedUIDValidity, nil)
		if err != nil {
			return fmt.Errorf("syncing %s: %w", mailbox, err)
		}

		logger.Info("sync complete",
			"mailbox", mailbox,
			"server_messages", len(serverFlags),
			"discarded", result.Discarded,
			"deleted", len(result.Deleted),
			"changed", len(result.Changed),
			"first_new_uid", result.FirstNewUID)
		return nil
	},
}
