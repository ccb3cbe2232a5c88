// Package security provides the source-address filter and receive-rate
// limiter applied to inbound mDNS datagrams before they reach the codec.
package security

import "net"

// SourceFilter validates a datagram's source address before it is handed to
// the decoder. Per RFC 6762 §2, mDNS is link-local scope: a source should be
// link-local or share a subnet with the receiving interface.
type SourceFilter struct {
	ifaceAddrs []net.IPNet
}

// NewSourceFilter builds a filter caching iface's addresses, avoiding a
// syscall per packet on the receive hot path.
func NewSourceFilter(iface net.Interface) (*SourceFilter, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return &SourceFilter{}, nil
	}

	var ipnets []net.IPNet
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			ipnets = append(ipnets, *ipnet)
		}
	}
	return &SourceFilter{ifaceAddrs: ipnets}, nil
}

// IsValid reports whether srcIP is an acceptable mDNS source: IPv4 or IPv6
// link-local, or within a subnet the receiving interface owns. If the
// filter has no interface addresses to check against (NewSourceFilter
// could not enumerate any, e.g. during early startup), it falls back to
// accepting RFC 1918 private addresses rather than rejecting everything
// non-link-local outright.
func (sf *SourceFilter) IsValid(srcIP net.IP) bool {
	if ip4 := srcIP.To4(); ip4 != nil {
		if ip4[0] == 169 && ip4[1] == 254 { // RFC 3927 link-local
			return true
		}
	} else if srcIP.IsLinkLocalUnicast() || srcIP.IsLinkLocalMulticast() {
		return true
	}

	for _, ipnet := range sf.ifaceAddrs {
		if ipnet.Contains(srcIP) {
			return true
		}
	}

	if len(sf.ifaceAddrs) == 0 && isPrivate(srcIP) {
		return true
	}
	return false
}

// NewSourceFilterForInterfaces merges the addresses of every interface in
// ifaces into one filter, for callers (Querier, Responder) that join the
// mDNS group on more than one interface at once.
func NewSourceFilterForInterfaces(ifaces []net.Interface) *SourceFilter {
	var ipnets []net.IPNet
	for _, ifi := range ifaces {
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				ipnets = append(ipnets, *ipnet)
			}
		}
	}
	return &SourceFilter{ifaceAddrs: ipnets}
}

// isPrivate reports whether ip falls in an RFC 1918 private range.
func isPrivate(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	if ip4[0] == 10 {
		return true
	}
	if ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31 {
		return true
	}
	if ip4[0] == 192 && ip4[1] == 168 {
		return true
	}
	return false
}
