package wire

import (
	"github.com/jfuller/mdnsgo/internal/protocol"
)

// QueryAnswerParams carries the fields needed to build a query-answer
// datagram per spec §4.5: a PTR answer naming the service instance, plus
// whichever of SRV/A/AAAA/TXT additionals the caller has configured.
type QueryAnswerParams struct {
	QueryID      uint16
	ServiceType  string // e.g. "_http._tcp.local."
	InstanceName string // e.g. "My Printer._http._tcp.local."
	Hostname     string // e.g. "host.local."
	Port         uint16
	IPv4         []byte // 4 bytes, nil if not configured
	IPv6         []byte // 16 bytes, nil if not configured
	TXT          []string
}

func writeHeader(c *cursor, id, flags, qd, an, ns, ar uint16) error {
	for _, v := range []uint16{id, flags, qd, an, ns, ar} {
		if err := c.write16(v); err != nil {
			return err
		}
	}
	return nil
}

func writeQuestion(c *cursor, name string, qtype, qclass uint16) error {
	if err := encodeName(c, name); err != nil {
		return err
	}
	if err := c.write16(qtype); err != nil {
		return err
	}
	return c.write16(qclass)
}

func writeRecordHeader(c *cursor, name string, rtype, rclass uint16, ttl uint32) error {
	if err := encodeName(c, name); err != nil {
		return err
	}
	if err := c.write16(rtype); err != nil {
		return err
	}
	if err := c.write16(rclass); err != nil {
		return err
	}
	return c.write32(ttl)
}

// writeRDataWithLength writes rdlength, runs fill to produce the rdata into
// the remaining buffer, and patches rdlength afterward once the true
// length is known.
func writeRDataWithLength(c *cursor, fill func(*cursor) error) error {
	lengthPos := c.pos
	if err := c.write16(0); err != nil {
		return err
	}
	rdataStart := c.pos
	if err := fill(c); err != nil {
		return err
	}
	rdlen := c.pos - rdataStart
	if rdlen > 0xFFFF {
		return malformed("encode rdata", rdataStart, "rdata exceeds 65535 octets")
	}
	save := c.pos
	c.pos = lengthPos
	err := c.write16(uint16(rdlen))
	c.pos = save
	return err
}

// EncodeDiscoveryQuery builds the DNS-SD service-enumeration query: header
// (id=0, flags=0, qd=1), single PTR/IN question for
// "_services._dns-sd._udp.local.".
func EncodeDiscoveryQuery(buf []byte) (int, error) {
	c := newCursor(buf)
	if err := writeHeader(c, 0, 0, 1, 0, 0, 0); err != nil {
		return 0, err
	}
	if err := writeQuestion(c, protocol.ServiceEnumerationName, uint16(protocol.TypePTR), protocol.ClassIN); err != nil {
		return 0, err
	}
	return c.pos, nil
}

// EncodeQuery builds a single-question targeted query. If id is 0 a fresh
// nonzero transaction id derived from the caller is not chosen here —
// callers that want request/response correlation pass a nonzero id; per
// RFC 6762 §18.1 one-shot multicast queries conventionally use id 0. qu
// requests a unicast response by setting the high bit of qclass.
func EncodeQuery(buf []byte, name string, qtype, id uint16, qu bool) (int, error) {
	c := newCursor(buf)
	if err := writeHeader(c, id, 0, 1, 0, 0, 0); err != nil {
		return 0, err
	}
	qclass := protocol.ClassIN
	if qu {
		qclass |= protocol.QUBit
	}
	if err := writeQuestion(c, name, qtype, qclass); err != nil {
		return 0, err
	}
	return c.pos, nil
}

// EncodeDiscoveryAnswer builds a DNS-SD enumeration response: header
// (id=0, flags=QR|AA, an=1), one PTR answer under the enumeration name
// pointing at instanceServiceType (e.g. "_http._tcp.local.").
func EncodeDiscoveryAnswer(buf []byte, instanceServiceType string) (int, error) {
	c := newCursor(buf)
	if err := writeHeader(c, 0, protocol.FlagQR|protocol.FlagAA, 0, 1, 0, 0); err != nil {
		return 0, err
	}
	if err := writeRecordHeader(c, protocol.ServiceEnumerationName, uint16(protocol.TypePTR), protocol.ClassIN, protocol.TTLService); err != nil {
		return 0, err
	}
	if err := writeRDataWithLength(c, func(c *cursor) error {
		return encodeName(c, instanceServiceType)
	}); err != nil {
		return 0, err
	}
	return c.pos, nil
}

// EncodeQueryAnswer builds a service query-answer: one PTR answer
// (service type -> instance name), and, as additionals, one SRV, one A (if
// p.IPv4 is set), one AAAA (if p.IPv6 is set), and one TXT (if p.TXT is
// non-empty). All records use protocol.TTLQueryAnswer per spec §4.5.
func EncodeQueryAnswer(buf []byte, p QueryAnswerParams) (int, error) {
	extra := uint16(1) // SRV
	if p.IPv4 != nil {
		extra++
	}
	if p.IPv6 != nil {
		extra++
	}
	if len(p.TXT) > 0 {
		extra++
	}

	c := newCursor(buf)
	if err := writeHeader(c, p.QueryID, protocol.FlagQR|protocol.FlagAA, 0, 1, 0, extra); err != nil {
		return 0, err
	}

	if err := writeRecordHeader(c, p.ServiceType, uint16(protocol.TypePTR), protocol.ClassIN, protocol.TTLQueryAnswer); err != nil {
		return 0, err
	}
	if err := writeRDataWithLength(c, func(c *cursor) error {
		return encodeName(c, p.InstanceName)
	}); err != nil {
		return 0, err
	}

	if err := writeRecordHeader(c, p.InstanceName, uint16(protocol.TypeSRV), protocol.ClassIN|protocol.CacheFlushBit, protocol.TTLQueryAnswer); err != nil {
		return 0, err
	}
	if err := writeRDataWithLength(c, func(c *cursor) error {
		if err := c.write16(0); err != nil { // priority
			return err
		}
		if err := c.write16(0); err != nil { // weight
			return err
		}
		if err := c.write16(p.Port); err != nil {
			return err
		}
		return encodeName(c, p.Hostname)
	}); err != nil {
		return 0, err
	}

	if p.IPv4 != nil {
		if err := writeRecordHeader(c, p.Hostname, uint16(protocol.TypeA), protocol.ClassIN|protocol.CacheFlushBit, protocol.TTLQueryAnswer); err != nil {
			return 0, err
		}
		if err := writeRDataWithLength(c, func(c *cursor) error {
			return c.writeSpan(p.IPv4)
		}); err != nil {
			return 0, err
		}
	}

	if p.IPv6 != nil {
		if err := writeRecordHeader(c, p.Hostname, uint16(protocol.TypeAAAA), protocol.ClassIN|protocol.CacheFlushBit, protocol.TTLQueryAnswer); err != nil {
			return 0, err
		}
		if err := writeRDataWithLength(c, func(c *cursor) error {
			return c.writeSpan(p.IPv6)
		}); err != nil {
			return 0, err
		}
	}

	if len(p.TXT) > 0 {
		if err := writeRecordHeader(c, p.InstanceName, uint16(protocol.TypeTXT), protocol.ClassIN|protocol.CacheFlushBit, protocol.TTLQueryAnswer); err != nil {
			return 0, err
		}
		if err := writeRDataWithLength(c, func(c *cursor) error {
			for _, s := range p.TXT {
				if len(s) > 0xFF {
					return malformed("encode TXT", c.pos, "TXT string exceeds 255 octets")
				}
				if err := c.writeByte(byte(len(s))); err != nil {
					return err
				}
				if err := c.writeSpan([]byte(s)); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return 0, err
		}
	}

	return c.pos, nil
}
