// Package wire implements the mDNS message codec: the bounds-checked octet
// cursor, the RFC 1035 §4.1.4 compressed name codec, the A/AAAA/PTR/SRV/TXT
// record parsers, the streaming message decoder, and the query/response
// message encoders.
//
// Every offset, length, and pointer the decoder touches is assumed to come
// from a hostile network peer: every dereference is checked against the
// datagram bounds before use, and a decode never reads or writes outside
// [0, len(buffer)).
package wire

import (
	"encoding/binary"

	"github.com/jfuller/mdnsgo/internal/errors"
)

// cursor is a bounds-checked read/write position over a caller-owned byte
// slice. It never allocates and never owns the underlying buffer.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func truncated(op string, offset int, msg string) error {
	return &errors.WireFormatError{Kind: errors.Truncated, Operation: op, Offset: offset, Message: msg}
}

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) peek16() (uint16, error) {
	if c.remaining() < 2 {
		return 0, truncated("peek16", c.pos, "fewer than 2 bytes remain")
	}
	return binary.BigEndian.Uint16(c.buf[c.pos:]), nil
}

func (c *cursor) read16() (uint16, error) {
	v, err := c.peek16()
	if err != nil {
		return 0, err
	}
	c.pos += 2
	return v, nil
}

func (c *cursor) read32() (uint32, error) {
	if c.remaining() < 4 {
		return 0, truncated("read32", c.pos, "fewer than 4 bytes remain")
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// readSpan advances the cursor by n bytes and returns the borrowed span.
func (c *cursor) readSpan(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, truncated("readSpan", c.pos, "requested span exceeds remaining buffer")
	}
	span := c.buf[c.pos : c.pos+n]
	c.pos += n
	return span, nil
}

func (c *cursor) write16(v uint16) error {
	if c.remaining() < 2 {
		return truncated("write16", c.pos, "insufficient capacity for 2 bytes")
	}
	binary.BigEndian.PutUint16(c.buf[c.pos:], v)
	c.pos += 2
	return nil
}

func (c *cursor) write32(v uint32) error {
	if c.remaining() < 4 {
		return truncated("write32", c.pos, "insufficient capacity for 4 bytes")
	}
	binary.BigEndian.PutUint32(c.buf[c.pos:], v)
	c.pos += 4
	return nil
}

func (c *cursor) writeSpan(b []byte) error {
	if c.remaining() < len(b) {
		return truncated("writeSpan", c.pos, "insufficient capacity for span")
	}
	copy(c.buf[c.pos:], b)
	c.pos += len(b)
	return nil
}

func (c *cursor) writeByte(b byte) error {
	if c.remaining() < 1 {
		return truncated("writeByte", c.pos, "insufficient capacity for 1 byte")
	}
	c.buf[c.pos] = b
	c.pos++
	return nil
}
