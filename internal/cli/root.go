// Package cli wires mailcore's cobra command tree: send, queue-send-all,
// imap-sync, and resolve-worker, grounded on BadSMTP's koanf+cobra root
// command (layered precedence: flags over environment over config file
// over defaults).
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/infodancer/mailcore/internal/config"
	"github.com/infodancer/mailcore/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "mailcore",
	Short:         "mailcore IMAP/NNTP/SMTP client core",
	Long:          "mailcore dials IMAP, NNTP, and SMTP servers and dispatches the send queue.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// RegisterFlags registers the root command's persistent flags. Called
// once from main before Execute, mirroring BadSMTP's RegisterFlags/
// Execute split (same no-init-function convention).
//
// Flag names are delegated to config.RegisterFlags so they line up with
// the koanf struct tags config.Load unmarshals into (kposflag binds a
// flag's own name as the koanf key) instead of drifting out of sync.
func RegisterFlags() {
	pf := rootCmd.PersistentFlags()
	config.RegisterFlags(pf)
	pf.Lookup("config").Shorthand = "c"

	imapSyncCmd.Flags().String("mailbox", "INBOX", "Mailbox to sync")
	imapSyncCmd.Flags().Int64("uidvalidity", 0, "Previously stored UIDVALIDITY (0 if no local cache)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(queueSendAllCmd)
	rootCmd.AddCommand(imapSyncCmd)
	rootCmd.AddCommand(resolveWorkerCmd)
}

// Execute sets the version and runs the root command. ExecuteContext is
// used (rather than Execute) so every RunE's cmd.Context() is guaranteed
// non-nil without relying on cobra's own default-seeding behavior.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig loads config.Config layering, in increasing precedence,
// built-in defaults, the --config file, the MAILCORE_ env prefix, and
// any flags set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loggerFor(cfg config.Config) *slog.Logger {
	return logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
