package cli

import (
	"fmt"

	"github.com/infodancer/mailcore/internal/credential"
	"github.com/infodancer/mailcore/internal/metrics"
	"github.com/infodancer/mailcore/internal/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <queued-file>",
	Short: "Dispatch a single queued-message file (§4.6)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := loggerFor(cfg)

		var collector metrics.Collector = &metrics.NoopCollector{}
		if cfg.Metrics.Enabled {
			collector = metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
		}

		d := &queue.Dispatcher{
			Accounts:   queue.ConfigAccountLookup{Config: &cfg},
			Resolver:   buildResolver(cfg),
			Credential: credential.New(credential.EnvProvider{}),
			Logger:     logger,
		}
		err = d.Send(cmd.Context(), args[0])
		collector.QueueSendResult(err == nil)
		if err != nil {
			return fmt.Errorf("send %s: %w", args[0], err)
		}
		logger.Info("message sent", "path", args[0])
		return nil
	},
}
