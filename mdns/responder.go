package mdns

import (
	"context"
	"net"
	"sync"

	"github.com/jfuller/mdnsgo/internal/protocol"
	"github.com/jfuller/mdnsgo/internal/responder"
	"github.com/jfuller/mdnsgo/internal/security"
	"github.com/jfuller/mdnsgo/internal/transport"
	"github.com/jfuller/mdnsgo/internal/wire"
)

// Responder answers mDNS queries for the services registered in its
// Registry. It does not probe for name conflicts or announce on startup;
// it only answers queries addressed to it while Listen runs, per the
// scope of the responder-listen entrypoint.
type Responder struct {
	registry *responder.Registry
	builder  *responder.ResponseBuilder

	ipv4 transport.Transport
	ipv6 transport.Transport

	useIPv6          bool
	rateLimitEnabled bool
	rateLimiter      *security.RateLimiter
	sourceFilter     *security.SourceFilter
	bufSize          int
}

// NewResponder creates a Responder over registry, joining the IPv4 mDNS
// multicast group (and IPv6's, with WithResponderIPv6(true)).
func NewResponder(registry *responder.Registry, opts ...ResponderOption) (*Responder, error) {
	ipv4, err := transport.NewIPv4Transport()
	if err != nil {
		return nil, err
	}

	r := &Responder{
		registry:         registry,
		builder:          responder.NewResponseBuilder(registry),
		ipv4:             ipv4,
		rateLimitEnabled: true,
		bufSize:          1500,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			_ = ipv4.Close()
			return nil, err
		}
	}

	if r.useIPv6 {
		ipv6, err := transport.NewIPv6Transport()
		if err != nil {
			_ = ipv4.Close()
			return nil, err
		}
		r.ipv6 = ipv6
	}

	if r.rateLimitEnabled {
		r.rateLimiter = security.NewRateLimiter(100, 100, 10000)
	}

	if ifaces, ierr := transport.MulticastInterfaces(); ierr == nil {
		r.sourceFilter = security.NewSourceFilterForInterfaces(ifaces)
	}

	return r, nil
}

// Listen runs the responder-listen entrypoint until ctx is canceled:
// receive a datagram, walk its question section, and for every question
// this Responder's registry can answer, send the matching response back.
func (r *Responder) Listen(ctx context.Context) error {
	datagrams := make(chan datagram, 64)
	var wg sync.WaitGroup

	recv := func(t transport.Transport) {
		defer wg.Done()
		for {
			buf, src, err := t.Receive(ctx)
			if err != nil {
				return
			}
			if len(buf) > maxDatagramSize {
				continue
			}
			select {
			case datagrams <- datagram{buf: buf, source: src}:
			case <-ctx.Done():
				return
			}
		}
	}

	wg.Add(1)
	go recv(r.ipv4)
	if r.ipv6 != nil {
		wg.Add(1)
		go recv(r.ipv6)
	}
	go func() {
		wg.Wait()
		close(datagrams)
	}()

	for d := range datagrams {
		udpAddr, ok := d.source.(*net.UDPAddr)
		if ok && r.sourceFilter != nil && !r.sourceFilter.IsValid(udpAddr.IP) {
			continue
		}
		if r.rateLimiter != nil && ok && !r.rateLimiter.Allow(udpAddr.IP.String()) {
			continue
		}
		r.answer(ctx, d)
	}
	return ctx.Err()
}

// answer walks one inbound datagram's question section and sends a
// response datagram for every question the registry can answer.
func (r *Responder) answer(ctx context.Context, d datagram) {
	_, _ = wire.DecodeQuestions(d.buf, d.source, func(q wire.Record) int32 {
		unicast := q.Class&protocol.QUBit != 0
		dest := r.destFor(d.source, unicast)

		if q.Name == protocol.ServiceEnumerationName {
			answers, err := r.builder.BuildDiscoveryAnswers(r.bufSize)
			if err == nil {
				r.send(ctx, answers, dest)
			}
			return 0
		}

		answers, err := r.builder.BuildServiceAnswers(q, q.QueryID, r.bufSize)
		if err == nil {
			r.send(ctx, answers, dest)
		}
		return 0
	})
}

func (r *Responder) destFor(source net.Addr, unicast bool) net.Addr {
	if unicast {
		return source
	}
	if isIPv6Addr(source) {
		return protocol.MulticastGroupIPv6()
	}
	return protocol.MulticastGroupIPv4()
}

// transportFor picks the transport matching dest's address family, so a
// query received over IPv6 gets its response sent back over IPv6 rather
// than unconditionally through the IPv4 socket.
func (r *Responder) transportFor(dest net.Addr) transport.Transport {
	if isIPv6Addr(dest) && r.ipv6 != nil {
		return r.ipv6
	}
	return r.ipv4
}

func isIPv6Addr(addr net.Addr) bool {
	udpAddr, ok := addr.(*net.UDPAddr)
	return ok && udpAddr.IP.To4() == nil
}

func (r *Responder) send(ctx context.Context, datagrams [][]byte, dest net.Addr) {
	t := r.transportFor(dest)
	for _, dg := range datagrams {
		_ = t.Send(ctx, dg, dest)
	}
}

// Close releases the Responder's transports.
func (r *Responder) Close() error {
	err := r.ipv4.Close()
	if r.ipv6 != nil {
		if ierr := r.ipv6.Close(); err == nil {
			err = ierr
		}
	}
	return err
}
