// Package resolveraddr provides interchangeable DNS resolution
// strategies behind a single Resolver interface: a synchronous
// stdlib lookup, a subprocess worker communicating over a pipe wire
// protocol, and a goroutine-based async lookup.
package resolveraddr

import (
	"context"
	"net"
)

// Resolver resolves host to a list of TCP addresses on port, in the
// order candidates should be dialed.
type Resolver interface {
	Resolve(ctx context.Context, host string, port int) ([]net.TCPAddr, error)
}

// SyncResolver resolves synchronously using net.DefaultResolver, bounded
// by ctx only; it applies no timeout of its own.
type SyncResolver struct {
	Resolver *net.Resolver
}

// NewSyncResolver returns a SyncResolver using net.DefaultResolver.
func NewSyncResolver() *SyncResolver {
	return &SyncResolver{Resolver: net.DefaultResolver}
}

// Resolve implements Resolver.
func (r *SyncResolver) Resolve(ctx context.Context, host string, port int) ([]net.TCPAddr, error) {
	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	ipAddrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	addrs := make([]net.TCPAddr, 0, len(ipAddrs))
	for _, ip := range ipAddrs {
		addrs = append(addrs, net.TCPAddr{IP: ip.IP, Port: port, Zone: ip.Zone})
	}
	return addrs, nil
}
