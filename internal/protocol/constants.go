// Package protocol defines mDNS/DNS-SD wire constants shared by the codec,
// transport, and responder/querier packages, per RFC 6762 (Multicast DNS)
// and RFC 6763 (DNS-Based Service Discovery).
package protocol

import "net"

// Port is the mDNS port per RFC 6762 §5.
const Port = 5353

// MulticastAddrIPv4 is the mDNS IPv4 multicast address per RFC 6762 §5.
const MulticastAddrIPv4 = "224.0.0.251"

// MulticastAddrIPv6 is the mDNS IPv6 multicast address per RFC 6762 §5.
const MulticastAddrIPv6 = "ff02::fb"

// MulticastGroupIPv4 returns the mDNS IPv4 multicast group address.
func MulticastGroupIPv4() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(MulticastAddrIPv4), Port: Port}
}

// MulticastGroupIPv6 returns the mDNS IPv6 multicast group address.
func MulticastGroupIPv6() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(MulticastAddrIPv6), Port: Port}
}

// RecordType is a DNS resource record type per RFC 1035 §3.2.2 and RFC 2782.
type RecordType uint16

// Record types recognized by the codec per spec §3. Any other type is
// surfaced to the callback as a raw, un-interpreted span.
const (
	TypeA    RecordType = 1
	TypePTR  RecordType = 12
	TypeTXT  RecordType = 16
	TypeAAAA RecordType = 28
	TypeSRV  RecordType = 33
	TypeANY  RecordType = 255
)

func (rt RecordType) String() string {
	switch rt {
	case TypeA:
		return "A"
	case TypePTR:
		return "PTR"
	case TypeTXT:
		return "TXT"
	case TypeAAAA:
		return "AAAA"
	case TypeSRV:
		return "SRV"
	case TypeANY:
		return "ANY"
	default:
		return "UNKNOWN"
	}
}

// ClassIN is the Internet class per RFC 1035 §3.2.4, the only class the
// encoders produce. Decoders pass other classes through unexamined.
const ClassIN uint16 = 1

// ClassMask isolates the low 15 bits of a qclass/rclass field, i.e. the DNS
// class proper, stripping the mDNS-specific top-bit overload described in
// spec §3 (QU bit on questions, cache-flush bit on answers).
const ClassMask uint16 = 0x7FFF

// QUBit is the mDNS unicast-response-requested bit, the high bit of a
// question's qclass, per RFC 6762 §5.4.
const QUBit uint16 = 0x8000

// CacheFlushBit is the mDNS cache-flush bit, the high bit of an answer's
// rclass, per RFC 6762 §10.2.
const CacheFlushBit uint16 = 0x8000

// DNS header flag bits per RFC 1035 §4.1.1.
const (
	FlagQR uint16 = 1 << 15 // query (0) / response (1)
	FlagAA uint16 = 1 << 10 // authoritative answer
)

// DNS name constraints per RFC 1035 §3.1.
const (
	MaxLabelLength = 63
	MaxNameLength  = 255
)

// CompressionMask identifies a name-compression pointer: the top two bits
// of the length octet are both set, per RFC 1035 §4.1.4.
const CompressionMask byte = 0xC0

// TTL values used when emitting answers. spec.md §4.5 literally specifies
// TTL 10 for query-answer emission ("All use TTL 10"); the steady-state
// RFC 6762 §10 values are kept alongside. TTLService is also the TTL of the
// service-type enumeration (discovery) answer; TTLHostname is not used by
// any encoder.
const (
	TTLQueryAnswer = 10
	TTLService     = 120
	TTLHostname    = 4500
)

// ServiceEnumerationName is the DNS-SD service-type enumeration name per
// RFC 6763 §9.
const ServiceEnumerationName = "_services._dns-sd._udp.local."
