package mdns

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/jfuller/mdnsgo/internal/protocol"
	"github.com/jfuller/mdnsgo/internal/security"
	"github.com/jfuller/mdnsgo/internal/transport"
	"github.com/jfuller/mdnsgo/internal/wire"
)

const maxDatagramSize = 9000 // RFC 6762 §17

// datagram is one inbound packet handed from a receive goroutine to the
// collector loop, paired with its source so rate limiting and source
// filtering can be applied before decode.
type datagram struct {
	buf    []byte
	source net.Addr
}

// Querier sends mDNS queries and collects the responses that arrive
// within a caller-supplied timeout. Each Query/Discover call runs its own
// receive loop on the Querier's transports for its collection window, so
// concurrent calls read from the same transport at once, which Transport
// does not support, and each call sees only the datagrams its own loop
// reads.
type Querier struct {
	ipv4 transport.Transport
	ipv6 transport.Transport

	timeout            time.Duration
	includeAuthorities bool
	useIPv6            bool
	rateLimitEnabled   bool
	rateLimitQPS       int
	rateLimiter        *security.RateLimiter
	sourceFilter       *security.SourceFilter

	closed chan struct{}
	once   sync.Once
}

// NewQuerier creates a Querier bound to the IPv4 mDNS multicast group (and
// IPv6's, with WithIPv6(true)).
func NewQuerier(opts ...QuerierOption) (*Querier, error) {
	ipv4, err := transport.NewIPv4Transport()
	if err != nil {
		return nil, err
	}

	q := &Querier{
		ipv4:               ipv4,
		timeout:            time.Second,
		includeAuthorities: false,
		rateLimitEnabled:   true,
		rateLimitQPS:       100,
		closed:             make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(q); err != nil {
			_ = ipv4.Close()
			return nil, err
		}
	}

	if q.useIPv6 {
		ipv6, err := transport.NewIPv6Transport()
		if err != nil {
			_ = ipv4.Close()
			return nil, err
		}
		q.ipv6 = ipv6
	}

	if q.rateLimitEnabled {
		q.rateLimiter = security.NewRateLimiter(q.rateLimitQPS, q.rateLimitQPS, 10000)
	}

	if ifaces, ierr := transport.MulticastInterfaces(); ierr == nil {
		q.sourceFilter = security.NewSourceFilterForInterfaces(ifaces)
	}

	return q, nil
}

// Discover runs the DNS-SD service-type enumeration per RFC 6763 §9,
// returning the distinct service types advertised on the network within
// the Querier's configured timeout.
func (q *Querier) Discover(ctx context.Context) ([]string, error) {
	buf := make([]byte, 512)
	n, err := wire.EncodeDiscoveryQuery(buf)
	if err != nil {
		return nil, err
	}
	if err := q.broadcast(ctx, buf[:n]); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	err = q.collect(ctx, func(d datagram) {
		_, _ = wire.DecodeDiscovery(d.buf, d.source, func(r wire.Record) int32 {
			name, perr := wire.ParsePTR(d.buf, r.RecordOffset)
			if perr == nil {
				seen[name] = struct{}{}
			}
			return 0
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	return out, nil
}

// Query sends a PTR query for serviceType (e.g. "_http._tcp.local.") and
// returns the service instances that answered within the Querier's
// configured timeout, with whatever SRV/A/AAAA/TXT additionals arrived
// alongside each PTR answer merged in.
func (q *Querier) Query(ctx context.Context, serviceType string) ([]ServiceEntry, error) {
	buf := make([]byte, 512)
	n, err := wire.EncodeQuery(buf, serviceType, uint16(protocol.TypePTR), 0, false)
	if err != nil {
		return nil, err
	}
	if err := q.broadcast(ctx, buf[:n]); err != nil {
		return nil, err
	}

	byInstance := make(map[string]*ServiceEntry)
	byHostname := make(map[string][]*ServiceEntry)

	entryFor := func(instance string) *ServiceEntry {
		e, ok := byInstance[instance]
		if !ok {
			e = &ServiceEntry{InstanceName: instance, TXT: make(map[string]string)}
			byInstance[instance] = e
		}
		return e
	}

	err = q.collect(ctx, func(d datagram) {
		_, _ = wire.DecodeQuery(d.buf, d.source, q.includeAuthorities, func(r wire.Record) int32 {
			switch protocol.RecordType(r.Type) {
			case protocol.TypePTR:
				instance, perr := wire.ParsePTR(d.buf, r.RecordOffset)
				if perr != nil {
					return 0
				}
				e := entryFor(instance)
				e.ServiceType = r.Name
			case protocol.TypeSRV:
				srv, perr := wire.ParseSRV(d.buf, r.RecordOffset, r.RecordLength)
				if perr != nil {
					return 0
				}
				e := entryFor(r.Name)
				e.Port = srv.Port
				e.Hostname = srv.Target
				byHostname[srv.Target] = append(byHostname[srv.Target], e)
			case protocol.TypeA:
				addr, perr := wire.ParseA(d.buf, r.RecordOffset, r.RecordLength)
				if perr != nil {
					return 0
				}
				for _, e := range byHostname[r.Name] {
					e.IPv4 = addr.IP
				}
			case protocol.TypeAAAA:
				addr, perr := wire.ParseAAAA(d.buf, r.RecordOffset, r.RecordLength)
				if perr != nil {
					return 0
				}
				for _, e := range byHostname[r.Name] {
					e.IPv6 = addr.IP
				}
			case protocol.TypeTXT:
				pairs, _, perr := wire.ParseTXT(d.buf, r.RecordOffset, r.RecordLength, 64)
				if perr != nil {
					return 0
				}
				e := entryFor(r.Name)
				for _, p := range pairs {
					e.TXT[p.Key] = p.Value
				}
			}
			return 0
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]ServiceEntry, 0, len(byInstance))
	for _, e := range byInstance {
		out = append(out, *e)
	}
	return out, nil
}

// broadcast sends buf to the IPv4 group, and to the IPv6 group too when
// WithIPv6 is set.
func (q *Querier) broadcast(ctx context.Context, buf []byte) error {
	if err := q.ipv4.Send(ctx, buf, protocol.MulticastGroupIPv4()); err != nil {
		return err
	}
	if q.ipv6 != nil {
		if err := q.ipv6.Send(ctx, buf, protocol.MulticastGroupIPv6()); err != nil {
			return err
		}
	}
	return nil
}

// collect reads datagrams from every bound transport until ctx is
// canceled or the Querier's timeout elapses, invoking handle for each
// packet that passes the rate limiter.
func (q *Querier) collect(ctx context.Context, handle func(datagram)) error {
	collectCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	datagrams := make(chan datagram, 64)
	var wg sync.WaitGroup

	recv := func(t transport.Transport) {
		defer wg.Done()
		for {
			buf, src, err := t.Receive(collectCtx)
			if err != nil {
				return
			}
			if len(buf) > maxDatagramSize {
				continue
			}
			select {
			case datagrams <- datagram{buf: buf, source: src}:
			case <-collectCtx.Done():
				return
			}
		}
	}

	wg.Add(1)
	go recv(q.ipv4)
	if q.ipv6 != nil {
		wg.Add(1)
		go recv(q.ipv6)
	}
	go func() {
		wg.Wait()
		close(datagrams)
	}()

	for d := range datagrams {
		udpAddr, ok := d.source.(*net.UDPAddr)
		if ok && q.sourceFilter != nil && !q.sourceFilter.IsValid(udpAddr.IP) {
			continue
		}
		if q.rateLimiter != nil && ok && !q.rateLimiter.Allow(udpAddr.IP.String()) {
			continue
		}
		handle(d)
	}
	return nil
}

// Close releases the Querier's transports. Safe to call more than once.
func (q *Querier) Close() error {
	var err error
	q.once.Do(func() {
		close(q.closed)
		err = q.ipv4.Close()
		if q.ipv6 != nil {
			if ierr := q.ipv6.Close(); err == nil {
				err = ierr
			}
		}
	})
	return err
}
