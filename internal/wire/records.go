package wire

import (
	"encoding/binary"
	"net"

	"github.com/jfuller/mdnsgo/internal/protocol"
)

// SRVRecord is the parsed form of an SRV rdata per RFC 2782.
type SRVRecord struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// TXTPair is a single key/value entry out of a TXT record's rdata per
// RFC 6763 §6.3. Value is empty both for a bare key and for "key=".
type TXTPair struct {
	Key   string
	Value string
	HasEq bool
}

// parseA parses an A record's rdata into an IPv4 socket address. Port
// defaults to the mDNS port; callers that need a different port (e.g. one
// taken from a companion SRV record) overwrite it.
func parseA(buf []byte, recordOffset, recordLength int) (*net.UDPAddr, error) {
	if recordLength < 4 {
		return nil, malformed("parse A", recordOffset, "rdata shorter than 4 octets")
	}
	if recordOffset+4 > len(buf) {
		return nil, truncated("parse A", recordOffset, "rdata extends past end of buffer")
	}
	ip := make(net.IP, 4)
	copy(ip, buf[recordOffset:recordOffset+4])
	return &net.UDPAddr{IP: ip, Port: protocol.Port}, nil
}

// parseAAAA parses an AAAA record's rdata into an IPv6 socket address.
func parseAAAA(buf []byte, recordOffset, recordLength int) (*net.UDPAddr, error) {
	if recordLength < 16 {
		return nil, malformed("parse AAAA", recordOffset, "rdata shorter than 16 octets")
	}
	if recordOffset+16 > len(buf) {
		return nil, truncated("parse AAAA", recordOffset, "rdata extends past end of buffer")
	}
	ip := make(net.IP, 16)
	copy(ip, buf[recordOffset:recordOffset+16])
	return &net.UDPAddr{IP: ip, Port: protocol.Port}, nil
}

// parsePTR decodes the name at recordOffset. It is bounded by len(buf), not
// recordOffset+recordLength, because a compressed tail may point anywhere
// earlier in the datagram.
func parsePTR(buf []byte, recordOffset int) (string, error) {
	name, _, err := decodeName(buf, recordOffset)
	return name, err
}

// parseSRV reads the three fixed u16 fields then the target name starting
// at recordOffset+6.
func parseSRV(buf []byte, recordOffset, recordLength int) (*SRVRecord, error) {
	if recordLength < 6 {
		return nil, malformed("parse SRV", recordOffset, "rdata shorter than 6 octets")
	}
	if recordOffset+6 > len(buf) {
		return nil, truncated("parse SRV", recordOffset, "rdata extends past end of buffer")
	}
	priority := binary.BigEndian.Uint16(buf[recordOffset:])
	weight := binary.BigEndian.Uint16(buf[recordOffset+2:])
	port := binary.BigEndian.Uint16(buf[recordOffset+4:])
	target, _, err := decodeName(buf, recordOffset+6)
	if err != nil {
		return nil, err
	}
	return &SRVRecord{Priority: priority, Weight: weight, Port: port, Target: target}, nil
}

// parseTXT walks <len><bytes> strings up to recordOffset+recordLength,
// splitting each at the first '=' per RFC 6763 §6.3. Empty strings are
// skipped. capacity bounds how many pairs are produced; the true count
// found is always returned even when it exceeds capacity.
func parseTXT(buf []byte, recordOffset, recordLength, capacity int) ([]TXTPair, int, error) {
	end := recordOffset + recordLength
	if end > len(buf) {
		return nil, 0, truncated("parse TXT", recordOffset, "rdata extends past end of buffer")
	}

	var pairs []TXTPair
	count := 0
	pos := recordOffset
	for pos < end {
		l := int(buf[pos])
		pos++
		if pos+l > end {
			return nil, 0, malformed("parse TXT", pos, "string extends past rdata end")
		}
		s := buf[pos : pos+l]
		pos += l
		if l == 0 {
			continue
		}
		count++
		if len(pairs) >= capacity {
			continue
		}
		pair := TXTPair{}
		if i := indexByte(s, '='); i >= 0 {
			pair.Key = string(s[:i])
			pair.Value = string(s[i+1:])
			pair.HasEq = true
		} else {
			pair.Key = string(s)
		}
		pairs = append(pairs, pair)
	}
	return pairs, count, nil
}

// ParseA exports parseA for callers outside the package (mdns.Querier
// assembling a net.IP from a Record's RecordOffset/RecordLength).
func ParseA(buf []byte, recordOffset, recordLength int) (*net.UDPAddr, error) {
	return parseA(buf, recordOffset, recordLength)
}

// ParseAAAA exports parseAAAA for callers outside the package.
func ParseAAAA(buf []byte, recordOffset, recordLength int) (*net.UDPAddr, error) {
	return parseAAAA(buf, recordOffset, recordLength)
}

// ParsePTR exports parsePTR for callers outside the package.
func ParsePTR(buf []byte, recordOffset int) (string, error) {
	return parsePTR(buf, recordOffset)
}

// ParseSRV exports parseSRV for callers outside the package.
func ParseSRV(buf []byte, recordOffset, recordLength int) (*SRVRecord, error) {
	return parseSRV(buf, recordOffset, recordLength)
}

// ParseTXT exports parseTXT for callers outside the package.
func ParseTXT(buf []byte, recordOffset, recordLength, capacity int) ([]TXTPair, int, error) {
	return parseTXT(buf, recordOffset, recordLength, capacity)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
