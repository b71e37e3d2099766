package cli

import (
	"testing"

	"github.com/infodancer/mailcore/internal/config"
	"github.com/infodancer/mailcore/internal/transport/resolveraddr"
)

func TestBuildResolverDefaultsToSync(t *testing.T) {
	r := buildResolver(config.Config{})
	if _, ok := r.(*resolveraddr.SyncResolver); !ok {
		t.Fatalf("got %T, want *SyncResolver", r)
	}
}

func TestBuildResolverGoroutine(t *testing.T) {
	r := buildResolver(config.Config{Resolver: config.ResolverGoroutine})
	if _, ok := r.(*resolveraddr.GoroutineResolver); !ok {
		t.Fatalf("got %T, want *GoroutineResolver", r)
	}
}

func TestBuildResolverSubprocess(t *testing.T) {
	r := buildResolver(config.Config{Resolver: config.ResolverSubprocess})
	if _, ok := r.(*resolveraddr.SubprocessResolver); !ok {
		t.Fatalf("got %T, want *SubprocessResolver", r)
	}
}
