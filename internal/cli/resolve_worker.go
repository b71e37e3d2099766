package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/infodancer/mailcore/internal/transport/resolveraddr"
	"github.com/spf13/cobra"
)

var resolveWorkerCmd = &cobra.Command{
	Use:    resolveraddr.WorkerSubcommand + " <host> <port>",
	Short:  "Resolve a host and write the result in the subprocess-resolver wire format",
	Hidden: true,
	Args:   cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[1], err)
		}
		return resolveraddr.RunWorker(os.Stdout, args[0], port)
	},
}
