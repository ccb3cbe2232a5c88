package wire

import (
	"net"
	"testing"

	"github.com/jfuller/mdnsgo/internal/protocol"
)

func TestParseHeader(t *testing.T) {
	buf := make([]byte, 12)
	c := newCursor(buf)
	_ = writeHeader(c, 0x1234, protocol.FlagQR, 0, 1, 0, 2)

	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if h.ID != 0x1234 || h.ANCount != 1 || h.ARCount != 2 {
		t.Errorf("ParseHeader() = %+v", h)
	}
	if !h.IsResponse() {
		t.Error("IsResponse() = false, want true")
	}
}

func TestParseHeader_Truncated(t *testing.T) {
	_, err := ParseHeader([]byte{0x00, 0x01})
	if err == nil {
		t.Fatal("expected Truncated error for short header")
	}
}

// TestDecodeQuestions covers the responder-listen entrypoint: one question
// walked, QueryID carried from the transaction id.
func TestDecodeQuestions(t *testing.T) {
	buf := make([]byte, 512)
	n, err := EncodeQuery(buf, "_http._tcp.local.", uint16(protocol.TypePTR), 0x9999, false)
	if err != nil {
		t.Fatalf("EncodeQuery() error = %v", err)
	}

	var got Record
	count, err := DecodeQuestions(buf[:n], nil, func(r Record) int32 {
		got = r
		return 0
	})
	if err != nil {
		t.Fatalf("DecodeQuestions() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if got.EntryType != Question {
		t.Errorf("EntryType = %v, want Question", got.EntryType)
	}
	if got.QueryID != 0x9999 {
		t.Errorf("QueryID = %x, want 9999", got.QueryID)
	}
	if got.Name != "_http._tcp.local." {
		t.Errorf("Name = %q", got.Name)
	}
}

// TestDecodeDiscovery covers S2: a datagram with QR=1, AN=1, and a single
// PTR answer under the DNS-SD enumeration name pointing at
// "_http._tcp.local." must invoke the callback exactly once with
// entry_type=Answer, rtype=PTR, name=the enumeration name.
func TestDecodeDiscovery(t *testing.T) {
	buf := make([]byte, 512)
	n, err := EncodeDiscoveryAnswer(buf, "_http._tcp.local.")
	if err != nil {
		t.Fatalf("EncodeDiscoveryAnswer() error = %v", err)
	}

	var got Record
	var gotPTR string
	count, err := DecodeDiscovery(buf[:n], nil, func(r Record) int32 {
		got = r
		gotPTR, _ = parsePTR(r.Buffer, r.RecordOffset)
		return 0
	})
	if err != nil {
		t.Fatalf("DecodeDiscovery() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if got.EntryType != Answer {
		t.Errorf("EntryType = %v, want Answer", got.EntryType)
	}
	if got.Type != uint16(protocol.TypePTR) {
		t.Errorf("Type = %d, want PTR", got.Type)
	}
	if got.Name != protocol.ServiceEnumerationName {
		t.Errorf("Name = %q, want %q", got.Name, protocol.ServiceEnumerationName)
	}
	if gotPTR != "_http._tcp.local." {
		t.Errorf("PTR target = %q, want %q", gotPTR, "_http._tcp.local.")
	}
}

func TestDecodeDiscovery_IgnoresQueries(t *testing.T) {
	buf := make([]byte, 512)
	n, _ := EncodeDiscoveryQuery(buf)
	count, err := DecodeDiscovery(buf[:n], nil, func(r Record) int32 { return 0 })
	if err != nil {
		t.Fatalf("DecodeDiscovery() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 for a non-response message", count)
	}
}

func TestDecodeDiscovery_FiltersOtherNames(t *testing.T) {
	buf := make([]byte, 512)
	c := newCursor(buf)
	_ = writeHeader(c, 0, protocol.FlagQR|protocol.FlagAA, 0, 1, 0, 0)
	_ = writeRecordHeader(c, "other.local.", uint16(protocol.TypePTR), protocol.ClassIN, protocol.TTLService)
	_ = writeRDataWithLength(c, func(c *cursor) error { return encodeName(c, "x.local.") })

	count, err := DecodeDiscovery(buf[:c.pos], nil, func(r Record) int32 { return 0 })
	if err != nil {
		t.Fatalf("DecodeDiscovery() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 (answer name is not the enumeration name)", count)
	}
}

// TestDecodeQuery exercises the query-receive entrypoint end to end over a
// message with no authority records; authority suppression is covered by
// TestDecodeQuery_SuppressesAuthorities.
func TestDecodeQuery(t *testing.T) {
	params := QueryAnswerParams{
		ServiceType:  "_http._tcp.local.",
		InstanceName: "Printer._http._tcp.local.",
		Hostname:     "host.local.",
		Port:         80,
		IPv4:         net.IPv4(10, 0, 0, 1).To4(),
	}
	buf := make([]byte, 1024)
	n, err := EncodeQueryAnswer(buf, params)
	if err != nil {
		t.Fatalf("EncodeQueryAnswer() error = %v", err)
	}

	var entries []EntryType
	count, err := DecodeQuery(buf[:n], nil, false, func(r Record) int32 {
		entries = append(entries, r.EntryType)
		return 0
	})
	if err != nil {
		t.Fatalf("DecodeQuery() error = %v", err)
	}
	// PTR answer + SRV/A additionals == 3, NS count is zero in this message
	// so includeAuthorities has nothing to suppress here; see
	// TestDecodeQuery_SuppressesAuthorities for that behavior.
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if entries[0] != Answer {
		t.Errorf("entries[0] = %v, want Answer", entries[0])
	}
}

func TestDecodeQuery_SuppressesAuthorities(t *testing.T) {
	buf := make([]byte, 512)
	c := newCursor(buf)
	_ = writeHeader(c, 0, protocol.FlagQR|protocol.FlagAA, 0, 0, 1, 0)
	_ = writeRecordHeader(c, "host.local.", uint16(protocol.TypeA), protocol.ClassIN|protocol.CacheFlushBit, protocol.TTLQueryAnswer)
	_ = writeRDataWithLength(c, func(c *cursor) error { return c.writeSpan([]byte{10, 0, 0, 1}) })
	n := c.pos

	count, err := DecodeQuery(buf[:n], nil, false, func(r Record) int32 { return 0 })
	if err != nil {
		t.Fatalf("DecodeQuery() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 (authorities suppressed by default)", count)
	}

	count, err = DecodeQuery(buf[:n], nil, true, func(r Record) int32 { return 0 })
	if err != nil {
		t.Fatalf("DecodeQuery() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 when authorities are requested", count)
	}
}

func TestDecodeQuery_IgnoresQueries(t *testing.T) {
	buf := make([]byte, 512)
	n, _ := EncodeQuery(buf, "host.local.", uint16(protocol.TypeA), 0, false)
	count, err := DecodeQuery(buf[:n], nil, true, func(r Record) int32 { return 0 })
	if err != nil {
		t.Fatalf("DecodeQuery() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 for a non-response message", count)
	}
}

// TestDecodeQuery_TruncatedSectionStopsWalkWithoutError covers spec §7's
// propagation policy: a decode failure partway through a section truncates
// the walk but is not itself surfaced as an error from the entrypoint.
func TestDecodeQuery_TruncatedSectionStopsWalkWithoutError(t *testing.T) {
	buf := make([]byte, 512)
	params := QueryAnswerParams{
		ServiceType:  "_http._tcp.local.",
		InstanceName: "Printer._http._tcp.local.",
		Hostname:     "host.local.",
		Port:         80,
	}
	n, err := EncodeQueryAnswer(buf, params)
	if err != nil {
		t.Fatalf("EncodeQueryAnswer() error = %v", err)
	}

	truncated := buf[:n-3] // chop off the tail of the SRV record
	count, err := DecodeQuery(truncated, nil, false, func(r Record) int32 { return 0 })
	if err != nil {
		t.Fatalf("DecodeQuery() on truncated input returned error %v, want nil", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (PTR answer decoded before the truncated SRV)", count)
	}
}
