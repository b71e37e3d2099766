// Package credential caches server/user credential lookups for the
// lifetime of the process, per spec §5's "Shared resource policy":
// the callback that actually prompts for or retrieves a secret is
// invoked at most once per (host, user) pair unless a previous
// attempt failed.
package credential

import (
	"context"
	"fmt"
	"sync"
)

// Provider queries the underlying secret store (a keyring, a prompt,
// a config file) for the password belonging to user@host. Providers
// do their own caching, if any; Cache is what enforces the
// process-wide at-most-once policy on top of a Provider.
type Provider interface {
	Query(ctx context.Context, host, user string) (string, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, host, user string) (string, error)

func (f ProviderFunc) Query(ctx context.Context, host, user string) (string, error) {
	return f(ctx, host, user)
}

type key struct {
	host string
	user string
}

type entry struct {
	secret string
	err    error
}

// Cache wraps a Provider with the process-wide "at most once per
// (host, user) unless it previously failed" policy. The zero value
// is not usable; construct with New.
type Cache struct {
	provider Provider

	mu      sync.Mutex
	entries map[key]entry
	pending map[key]*sync.WaitGroup
}

// New wraps provider in a Cache.
func New(provider Provider) *Cache {
	return &Cache{
		provider: provider,
		entries:  make(map[key]entry),
		pending:  make(map[key]*sync.WaitGroup),
	}
}

// Query returns the cached secret for host/user, calling the
// underlying Provider only on the first lookup (or after a failed
// lookup, which is not cached, or a Forget following an AUTHFAIL).
// Concurrent callers for the same (host,
// user) block on a single in-flight Provider call rather than each
// triggering their own.
func (c *Cache) Query(ctx context.Context, host, user string) (string, error) {
	k := key{host: host, user: user}

	for {
		c.mu.Lock()
		if e, ok := c.entries[k]; ok {
			c.mu.Unlock()
			return e.secret, e.err
		}
		if wg, ok := c.pending[k]; ok {
			c.mu.Unlock()
			wg.Wait()
			continue
		}
		wg := &sync.WaitGroup{}
		wg.Add(1)
		c.pending[k] = wg
		c.mu.Unlock()

		secret, err := c.provider.Query(ctx, host, user)

		c.mu.Lock()
		if err == nil {
			c.entries[k] = entry{secret: secret, err: err}
		}
		delete(c.pending, k)
		c.mu.Unlock()
		wg.Done()

		return secret, err
	}
}

// Forget evicts the cached result for host/user, so the next Query
// calls the Provider again. Callers invoke this after the server
// reports AUTHFAIL for a credential the cache had already supplied,
// since a cached bad password would otherwise fail forever.
func (c *Cache) Forget(host, user string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key{host: host, user: user})
}

// ErrNotFound is returned by providers that have no credential on
// file for a given host/user pair.
var ErrNotFound = fmt.Errorf("credential: no credential on file")
