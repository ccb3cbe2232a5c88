package wire

import (
	"bytes"
	"net"
	"testing"

	"github.com/jfuller/mdnsgo/internal/protocol"
)

// TestEncodeDiscoveryQuery covers S1. It asserts the fixed header and
// trailing QTYPE/QCLASS octets exactly and decodes the name back rather
// than asserting a hardcoded total length: "_services._dns-sd._udp.local."
// encodes to 30 octets of name (4 labels, 9+7+4+5 bytes plus 4 length
// prefixes and a terminator), for a 46-octet datagram total, not the 34
// a quick label count might suggest. The round trip is the property that
// matters here (see DESIGN.md).
func TestEncodeDiscoveryQuery(t *testing.T) {
	buf := make([]byte, 512)
	n, err := EncodeDiscoveryQuery(buf)
	if err != nil {
		t.Fatalf("EncodeDiscoveryQuery() error = %v", err)
	}

	wantHeader := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf[:12], wantHeader) {
		t.Errorf("header = % X, want % X", buf[:12], wantHeader)
	}

	wantTrailer := []byte{0x00, 0x0C, 0x00, 0x01}
	if !bytes.Equal(buf[n-4:n], wantTrailer) {
		t.Errorf("trailer = % X, want % X (PTR/IN)", buf[n-4:n], wantTrailer)
	}

	name, off, err := decodeName(buf, 12)
	if err != nil {
		t.Fatalf("decodeName() error = %v", err)
	}
	if name != protocol.ServiceEnumerationName {
		t.Errorf("decoded question name = %q, want %q", name, protocol.ServiceEnumerationName)
	}
	if off != n-4 {
		t.Errorf("name end offset = %d, want %d", off, n-4)
	}
}

func TestEncodeDiscoveryQuery_Truncated(t *testing.T) {
	buf := make([]byte, 10)
	_, err := EncodeDiscoveryQuery(buf)
	if err == nil {
		t.Fatal("expected Truncated error for undersized buffer")
	}
}

// TestUnicastBitPreservation covers testable property 7: a question
// emitted with QU=1 decodes with the bit observable on qclass.
func TestUnicastBitPreservation(t *testing.T) {
	buf := make([]byte, 512)
	n, err := EncodeQuery(buf, "printer.local.", uint16(protocol.TypeA), 0x1234, true)
	if err != nil {
		t.Fatalf("EncodeQuery() error = %v", err)
	}

	var gotQClass uint16
	count, err := DecodeQuestions(buf[:n], nil, func(r Record) int32 {
		gotQClass = r.Class
		return 0
	})
	if err != nil {
		t.Fatalf("DecodeQuestions() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("DecodeQuestions() count = %d, want 1", count)
	}
	if gotQClass&protocol.QUBit == 0 {
		t.Error("QU bit not observable after decode")
	}
	if gotQClass&protocol.ClassMask != protocol.ClassIN {
		t.Errorf("class after masking QU bit = %d, want IN", gotQClass&protocol.ClassMask)
	}
}

// TestQueryAnswerSymmetry covers testable property 6: an emitted
// query-answer decodes to the same (service, host, port, ipv4, ipv6, txt)
// tuple it was built from.
func TestQueryAnswerSymmetry(t *testing.T) {
	params := QueryAnswerParams{
		QueryID:      0x55AA,
		ServiceType:  "_http._tcp.local.",
		InstanceName: "My Service._http._tcp.local.",
		Hostname:     "host.local.",
		Port:         8080,
		IPv4:         []byte{10, 0, 0, 5},
		IPv6:         net.ParseIP("fe80::1").To16(),
		TXT:          []string{"path=/", "tls"},
	}

	buf := make([]byte, 1024)
	n, err := EncodeQueryAnswer(buf, params)
	if err != nil {
		t.Fatalf("EncodeQueryAnswer() error = %v", err)
	}

	var gotSRV *SRVRecord
	var gotIPv4, gotIPv6 net.IP
	var gotTXT []TXTPair
	var gotPTR string

	_, err = DecodeQuery(buf[:n], nil, true, func(r Record) int32 {
		switch protocol.RecordType(r.Type) {
		case protocol.TypePTR:
			name, _ := parsePTR(r.Buffer, r.RecordOffset)
			gotPTR = name
		case protocol.TypeSRV:
			gotSRV, _ = parseSRV(r.Buffer, r.RecordOffset, r.RecordLength)
		case protocol.TypeA:
			addr, _ := parseA(r.Buffer, r.RecordOffset, r.RecordLength)
			gotIPv4 = addr.IP
		case protocol.TypeAAAA:
			addr, _ := parseAAAA(r.Buffer, r.RecordOffset, r.RecordLength)
			gotIPv6 = addr.IP
		case protocol.TypeTXT:
			gotTXT, _, _ = parseTXT(r.Buffer, r.RecordOffset, r.RecordLength, 16)
		}
		return 0
	})
	if err != nil {
		t.Fatalf("DecodeQuery() error = %v", err)
	}

	if gotPTR != params.InstanceName {
		t.Errorf("PTR = %q, want %q", gotPTR, params.InstanceName)
	}
	if gotSRV == nil || gotSRV.Port != params.Port || gotSRV.Target != params.Hostname {
		t.Errorf("SRV = %+v", gotSRV)
	}
	if !gotIPv4.Equal(net.IP(params.IPv4)) {
		t.Errorf("A = %v, want %v", gotIPv4, params.IPv4)
	}
	if !gotIPv6.Equal(net.IP(params.IPv6)) {
		t.Errorf("AAAA = %v, want %v", gotIPv6, params.IPv6)
	}
	if len(gotTXT) != 2 || gotTXT[0].Key != "path" || gotTXT[0].Value != "/" || gotTXT[1].Key != "tls" {
		t.Errorf("TXT = %+v", gotTXT)
	}
}
