package wire

import (
	"strings"

	"github.com/jfuller/mdnsgo/internal/errors"
	"github.com/jfuller/mdnsgo/internal/protocol"
)

func malformed(op string, offset int, msg string) error {
	return &errors.WireFormatError{Kind: errors.Malformed, Operation: op, Offset: offset, Message: msg}
}

// decodeName decodes an RFC 1035 §4.1.4 compressed domain name starting at
// offset within buf, returning the dotted, trailing-dot form and the offset
// of the first octet following the on-wire name.
//
// Pointer cycles are rejected by requiring each *followed* pointer's target
// to be strictly less than every pointer target followed earlier in this
// same decode, tracked in limit. Comparing only against the current read
// position (the pointer's own site) is not sufficient: a literal label
// between two pointer follows advances read forward again, so a pointer
// can legally point backward of its own site and still land on an offset
// it has already visited, looping forever (e.g. label at 60..69, pointer
// at 70 -> 60, label walk returns to 70, pointer at 70 -> 60, ...). Because
// limit only ever shrinks and every followed target must be strictly below
// it, the number of pointer follows is bounded by the initial offset and a
// decode always terminates.
func decodeName(buf []byte, offset int) (string, int, error) {
	if offset < 0 || offset >= len(buf) {
		return "", offset, malformed("decode name", offset, "start offset out of bounds")
	}

	var labels []string
	read := offset
	end := -1 // unset; spec's MDNS_INVALID_POS made explicit as a signed sentinel
	limit := len(buf)

	for {
		if read >= len(buf) {
			return "", offset, truncated("decode name", read, "ran out of buffer before terminating label")
		}
		l := buf[read]

		switch {
		case l == 0:
			if end < 0 {
				end = read + 1
			}
			name := strings.Join(labels, ".") + "."
			if labels == nil {
				name = "."
			}
			return name, end, nil

		case l&protocol.CompressionMask == protocol.CompressionMask:
			if read+1 >= len(buf) {
				return "", offset, truncated("decode name", read, "truncated compression pointer")
			}
			target := int(l&0x3F)<<8 | int(buf[read+1])
			if target >= read {
				return "", offset, malformed("decode name", read, "compression pointer does not point strictly backward")
			}
			if target >= limit {
				return "", offset, malformed("decode name", read, "compression pointer does not strictly decrease from the prior pointer target")
			}
			limit = target
			if end < 0 {
				end = read + 2
			}
			read = target

		case l&protocol.CompressionMask == 0x00:
			if int(l) > protocol.MaxLabelLength {
				return "", offset, malformed("decode name", read, "label length exceeds 63 octets")
			}
			labelStart := read + 1
			labelEnd := labelStart + int(l)
			if labelEnd > len(buf) {
				return "", offset, truncated("decode name", read, "label extends past end of buffer")
			}
			labels = append(labels, string(buf[labelStart:labelEnd]))
			read = labelEnd

		default:
			return "", offset, malformed("decode name", read, "reserved label length bits (0x40 or 0x80)")
		}
	}
}

// skipName advances past an encoded name using exactly decodeName's rules,
// without allocating the decoded string.
func skipName(buf []byte, offset int) (int, error) {
	_, next, err := decodeName(buf, offset)
	return next, err
}

// namesEqual compares two encoded names in lockstep, following pointers
// independently on each side, without allocating either decoded string.
// Labels compare case-insensitively per DNS convention.
func namesEqual(bufA []byte, ofsA int, bufB []byte, ofsB int) (bool, error) {
	readA, readB := ofsA, ofsB
	endA, endB := -1, -1
	limitA, limitB := len(bufA), len(bufB)

	for {
		la, err := nextLabelLen(bufA, &readA, &endA, &limitA)
		if err != nil {
			return false, err
		}
		lb, err := nextLabelLen(bufB, &readB, &endB, &limitB)
		if err != nil {
			return false, err
		}
		if la < 0 && lb < 0 {
			return true, nil
		}
		if la < 0 || lb < 0 || la != lb {
			return false, nil
		}
		if la == 0 {
			continue
		}
		for i := 0; i < la; i++ {
			ca, cb := bufA[readA-la+i], bufB[readB-lb+i]
			if toLowerASCII(ca) != toLowerASCII(cb) {
				return false, nil
			}
		}
	}
}

// nextLabelLen follows pointers in buf starting at *pos until it reaches a
// literal label or the terminator, returning that label's length (-1 at the
// terminator) and leaving *pos just past the label's content. *limit tracks
// the smallest pointer target followed so far for this side of the
// comparison, with the same strictly-decreasing requirement as decodeName
// — see its doc comment for why comparing only against the current
// position does not terminate.
func nextLabelLen(buf []byte, pos *int, end *int, limit *int) (int, error) {
	for {
		if *pos >= len(buf) {
			return 0, truncated("compare names", *pos, "ran out of buffer")
		}
		l := buf[*pos]
		switch {
		case l == 0:
			if *end < 0 {
				*end = *pos + 1
			}
			*pos++
			return -1, nil
		case l&protocol.CompressionMask == protocol.CompressionMask:
			if *pos+1 >= len(buf) {
				return 0, truncated("compare names", *pos, "truncated compression pointer")
			}
			target := int(l&0x3F)<<8 | int(buf[*pos+1])
			if target >= *pos {
				return 0, malformed("compare names", *pos, "compression pointer does not point strictly backward")
			}
			if target >= *limit {
				return 0, malformed("compare names", *pos, "compression pointer does not strictly decrease from the prior pointer target")
			}
			*limit = target
			if *end < 0 {
				*end = *pos + 2
			}
			*pos = target
		case l&protocol.CompressionMask == 0x00:
			if int(l) > protocol.MaxLabelLength {
				return 0, malformed("compare names", *pos, "label length exceeds 63 octets")
			}
			labelEnd := *pos + 1 + int(l)
			if labelEnd > len(buf) {
				return 0, truncated("compare names", *pos, "label extends past end of buffer")
			}
			*pos = labelEnd
			return int(l), nil
		default:
			return 0, malformed("compare names", *pos, "reserved label length bits")
		}
	}
}

func toLowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// encodeName writes text as successive length-prefixed labels terminated by
// a zero octet, with no compression, leaving c positioned at the first
// octet following the encoded name. A missing trailing dot is tolerated; a
// bare "." or "" encodes the root name. Empty labels (a leading dot or
// consecutive dots) are not emitted, per spec, rather than rejected.
func encodeName(c *cursor, text string) error {
	text = strings.TrimSuffix(text, ".")
	if text == "" {
		return c.writeByte(0)
	}

	for _, label := range strings.Split(text, ".") {
		if label == "" {
			continue
		}
		if len(label) > protocol.MaxLabelLength {
			return malformed("encode name", c.pos, "label exceeds 63 octets")
		}
		if err := c.writeByte(byte(len(label))); err != nil {
			return err
		}
		if err := c.writeSpan([]byte(label)); err != nil {
			return err
		}
	}
	return c.writeByte(0)
}
