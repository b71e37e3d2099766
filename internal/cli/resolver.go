package cli

import (
	"os"

	"github.com/infodancer/mailcore/internal/config"
	"github.com/infodancer/mailcore/internal/transport/resolveraddr"
)

// buildResolver selects the DNS resolution strategy named by
// cfg.Resolver (spec §4.2's three strategies): sync runs on the
// caller's goroutine, subprocess re-execs the current binary as a
// resolve-worker child, goroutine wraps the synchronous lookup to run
// off-goroutine.
func buildResolver(cfg config.Config) resolveraddr.Resolver {
	switch cfg.Resolver {
	case config.ResolverSubprocess:
		execPath, err := os.Executable()
		if err != nil {
			return resolveraddr.NewSyncResolver()
		}
		return resolveraddr.NewSubprocessResolver(execPath)
	case config.ResolverGoroutine:
		return resolveraddr.NewGoroutineResolver(resolveraddr.NewSyncResolver())
	default:
		return resolveraddr.NewSyncResolver()
	}
}
