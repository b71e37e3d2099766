package cli

import (
	"fmt"

	"github.com/infodancer/mailcore/internal/credential"
	"github.com/infodancer/mailcore/internal/metrics"
	"github.com/infodancer/mailcore/internal/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var queueSendAllCmd = &cobra.Command{
	Use:   "queue-send-all",
	Short: "Dispatch every queued message in cfg.QueueDir, in ascending number order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.QueueDir == "" {
			return fmt.Errorf("queue_dir is not configured")
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
		sent, err := d.QueueSendAll(cmd.Context(), cfg.QueueDir)
		collector.QueueSendResult(err == nil)
		if err != nil {
			return err
		}
		logger.Info("queue drained", "sent", sent)
		return nil
	},
}
