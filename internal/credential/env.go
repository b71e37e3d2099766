package credential

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider resolves passwords from environment variables named
// MAILCORE_PASSWORD_<HOST>_<USER> (non-alphanumeric characters folded
// to underscore, uppercased), for scripted and headless use. It is
// the default Provider cmd/mailcore wires in; an interactive prompt
// or OS keychain integration is a separate Provider implementation.
type EnvProvider struct{}

func (EnvProvider) Query(ctx context.Context, host, user string) (string, error) {
	name := "MAILCORE_PASSWORD_" + envSafe(host) + "_" + envSafe(user)
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: set %s", ErrNotFound, name)
}

func envSafe(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
