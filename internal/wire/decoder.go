package wire

import (
	"net"

	"github.com/jfuller/mdnsgo/internal/protocol"
)

// EntryType identifies which DNS message section a Record was walked from.
type EntryType int

const (
	Question EntryType = iota
	Answer
	Authority
	Additional
)

// Header is the 12-octet DNS message header per RFC 1035 §4.1.1.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// IsResponse reports whether the QR bit is set.
func (h Header) IsResponse() bool { return h.Flags&protocol.FlagQR != 0 }

// Record is one question or resource record surfaced by the decoder. Name
// is decoded eagerly (the codec's one concession to ergonomics over the
// scratch-buffer style of the C original); RecordOffset/RecordLength bound
// the raw rdata so a caller can re-run a specific wire.parseX over it, or
// inspect rtypes the decoder does not specialize.
type Record struct {
	Source       net.Addr
	EntryType    EntryType
	QueryID      uint16
	Name         string
	Type         uint16
	Class        uint16
	TTL          uint32
	Buffer       []byte
	NameOffset   int
	RecordOffset int
	RecordLength int
}

// Callback receives one walked record at a time. The entrypoints discard
// its return value: it is not passed back to the entrypoint's caller and it
// never stops the walk early — only a decode failure does that.
type Callback func(Record) int32

// ParseHeader reads the fixed 12-octet header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < 12 {
		return Header{}, truncated("parse header", 0, "message shorter than 12 octets")
	}
	c := newCursor(buf)
	id, _ := c.read16()
	flags, _ := c.read16()
	qd, _ := c.read16()
	an, _ := c.read16()
	ns, _ := c.read16()
	ar, _ := c.read16()
	return Header{ID: id, Flags: flags, QDCount: qd, ANCount: an, NSCount: ns, ARCount: ar}, nil
}

// readQuestion advances past one question section entry, returning its
// decoded name, qtype, qclass, and the offset following it.
func readQuestion(buf []byte, offset int) (name string, qtype, qclass uint16, next int, err error) {
	name, next, err = decodeName(buf, offset)
	if err != nil {
		return "", 0, 0, offset, err
	}
	c := &cursor{buf: buf, pos: next}
	qtype, err = c.read16()
	if err != nil {
		return "", 0, 0, offset, err
	}
	qclass, err = c.read16()
	if err != nil {
		return "", 0, 0, offset, err
	}
	return name, qtype, qclass, c.pos, nil
}

// readRecord advances past one answer/authority/additional entry, returning
// its decoded name, fixed fields, the offset of its rdata, and the offset
// following the whole entry.
func readRecord(buf []byte, offset int) (name string, rtype uint16, rclass uint16, ttl uint32, nameOffset, rdataOffset, rdlength, next int, err error) {
	nameOffset = offset
	name, next, err = decodeName(buf, offset)
	if err != nil {
		return "", 0, 0, 0, 0, 0, 0, offset, err
	}
	c := &cursor{buf: buf, pos: next}
	rtype, err = c.read16()
	if err != nil {
		return "", 0, 0, 0, 0, 0, 0, offset, err
	}
	rclass, err = c.read16()
	if err != nil {
		return "", 0, 0, 0, 0, 0, 0, offset, err
	}
	ttl, err = c.read32()
	if err != nil {
		return "", 0, 0, 0, 0, 0, 0, offset, err
	}
	rdlen16, err := c.read16()
	if err != nil {
		return "", 0, 0, 0, 0, 0, 0, offset, err
	}
	rdlength = int(rdlen16)
	rdataOffset = c.pos
	if rdataOffset+rdlength > len(buf) {
		return "", 0, 0, 0, 0, 0, 0, offset, truncated("read record", rdataOffset, "rdlength exceeds remaining buffer")
	}
	return name, rtype, rclass, ttl, nameOffset, rdataOffset, rdlength, rdataOffset + rdlength, nil
}

// DecodeQuestions walks only the question section, invoking cb once per
// question with EntryType == Question and QueryID set to the message's
// transaction ID so the caller can build a matching reply. This is the
// responder-listen entrypoint's core (spec §4.4 step 2, third bullet).
func DecodeQuestions(buf []byte, source net.Addr, cb Callback) (int, error) {
	header, err := ParseHeader(buf)
	if err != nil {
		return 0, err
	}

	offset := 12
	count := 0
	for i := uint16(0); i < header.QDCount; i++ {
		name, qtype, qclass, next, err := readQuestion(buf, offset)
		if err != nil {
			return count, nil
		}
		cb(Record{
			Source:     source,
			EntryType:  Question,
			QueryID:    header.ID,
			Name:       name,
			Type:       qtype,
			Class:      qclass,
			Buffer:     buf,
			NameOffset: offset,
		})
		count++
		offset = next
	}
	return count, nil
}

// DecodeDiscovery implements the discovery-receive entrypoint: ignores
// non-response messages, walks the answer section only, and drops every
// answer whose name is not the DNS-SD service-enumeration name.
func DecodeDiscovery(buf []byte, source net.Addr, cb Callback) (int, error) {
	header, err := ParseHeader(buf)
	if err != nil {
		return 0, err
	}
	if !header.IsResponse() {
		return 0, nil
	}

	offset := 12
	count := 0
	for i := uint16(0); i < header.QDCount; i++ {
		_, _, _, next, err := readQuestion(buf, offset)
		if err != nil {
			return count, nil
		}
		offset = next
	}
	for i := uint16(0); i < header.ANCount; i++ {
		name, rtype, rclass, ttl, nameOffset, rdataOffset, rdlength, next, err := readRecord(buf, offset)
		if err != nil {
			return count, nil
		}
		if name == protocol.ServiceEnumerationName {
			cb(Record{
				Source: source, EntryType: Answer, QueryID: header.ID,
				Name: name, Type: rtype, Class: rclass, TTL: ttl,
				Buffer: buf, NameOffset: nameOffset,
				RecordOffset: rdataOffset, RecordLength: rdlength,
			})
			count++
		}
		offset = next
	}
	return count, nil
}

// DecodeQuery implements the query-receive entrypoint: ignores non-response
// messages and walks the answer, authority, and additional sections,
// invoking cb for every record. includeAuthorities is the policy knob
// described in spec §9's open question about suppressing authorities under
// RFC 6762 §6; the caller decides.
func DecodeQuery(buf []byte, source net.Addr, includeAuthorities bool, cb Callback) (int, error) {
	header, err := ParseHeader(buf)
	if err != nil {
		return 0, err
	}
	if !header.IsResponse() {
		return 0, nil
	}

	offset := 12
	count := 0
	for i := uint16(0); i < header.QDCount; i++ {
		_, _, _, next, err := readQuestion(buf, offset)
		if err != nil {
			return count, nil
		}
		offset = next
	}

	walkAnswers := func(n uint16, entryType EntryType, emit bool) bool {
		for i := uint16(0); i < n; i++ {
			name, rtype, rclass, ttl, nameOffset, rdataOffset, rdlength, next, err := readRecord(buf, offset)
			if err != nil {
				return false
			}
			if emit {
				cb(Record{
					Source: source, EntryType: entryType, QueryID: header.ID,
					Name: name, Type: rtype, Class: rclass, TTL: ttl,
					Buffer: buf, NameOffset: nameOffset,
					RecordOffset: rdataOffset, RecordLength: rdlength,
				})
				count++
			}
			offset = next
		}
		return true
	}

	if !walkAnswers(header.ANCount, Answer, true) {
		return count, nil
	}
	if !walkAnswers(header.NSCount, Authority, includeAuthorities) {
		return count, nil
	}
	walkAnswers(header.ARCount, Additional, true)
	return count, nil
}
