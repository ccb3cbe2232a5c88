// Package transport provides the multicast UDP sockets mDNS queries and
// responses travel over: one implementation per address family, a platform
// control function to set SO_REUSEPORT-equivalent options so multiple mDNS
// participants can share port 5353 on one host, and a buffer pool for the
// receive hot path.
package transport

import (
	"context"
	"net"
)

// Transport sends and receives raw mDNS datagrams. Implementations own a
// single multicast socket; Send and Receive may be called concurrently from
// different goroutines, but Receive is not itself safe for concurrent use
// from multiple goroutines (callers run one receive loop per transport).
type Transport interface {
	Send(ctx context.Context, packet []byte, dest net.Addr) error
	Receive(ctx context.Context) ([]byte, net.Addr, error)
	Close() error
}
