package responder

import (
	"fmt"

	"github.com/jfuller/mdnsgo/internal/protocol"
	"github.com/jfuller/mdnsgo/internal/wire"
)

// ResponseBuilder turns an incoming question, matched against a Registry,
// into the wire.EncodeQueryAnswer/EncodeDiscoveryAnswer datagrams that
// answer it. RFC 6762 §6 limits a response's Answer/Additional sections to
// records the responder is authoritative for; a Registry entry is exactly
// that, so building a response is a lookup plus an encode, not a
// suppression or conflict-resolution decision (both out of scope here).
type ResponseBuilder struct {
	registry *Registry
}

// NewResponseBuilder builds a ResponseBuilder over the given registry.
func NewResponseBuilder(registry *Registry) *ResponseBuilder {
	return &ResponseBuilder{registry: registry}
}

// BuildServiceAnswers returns one query-answer datagram per registered
// service instance matching question.Name (the service type), or nil if
// nothing matches. Each datagram is built in its own freshly allocated
// buffer of bufSize octets; an answer that does not fit returns an error.
func (rb *ResponseBuilder) BuildServiceAnswers(question wire.Record, queryID uint16, bufSize int) ([][]byte, error) {
	if question.Type != uint16(protocol.TypePTR) && question.Type != uint16(protocol.TypeANY) {
		return nil, nil
	}

	matches := rb.registry.ByServiceType(question.Name)
	if len(matches) == 0 {
		return nil, nil
	}

	out := make([][]byte, 0, len(matches))
	for _, svc := range matches {
		buf := make([]byte, bufSize)
		n, err := wire.EncodeQueryAnswer(buf, wire.QueryAnswerParams{
			QueryID:      queryID,
			ServiceType:  svc.ServiceType,
			InstanceName: svc.InstanceName,
			Hostname:     svc.Hostname,
			Port:         svc.Port,
			IPv4:         svc.IPv4,
			IPv6:         svc.IPv6,
			TXT:          flattenTXT(svc.TXT),
		})
		if err != nil {
			return nil, fmt.Errorf("build answer for %q: %w", svc.InstanceName, err)
		}
		out = append(out, buf[:n])
	}
	return out, nil
}

// BuildDiscoveryAnswers returns one enumeration-answer datagram per unique
// registered service type, answering a "_services._dns-sd._udp.local."
// question per RFC 6763 §9.
func (rb *ResponseBuilder) BuildDiscoveryAnswers(bufSize int) ([][]byte, error) {
	types := rb.registry.ListServiceTypes()
	out := make([][]byte, 0, len(types))
	for _, serviceType := range types {
		buf := make([]byte, bufSize)
		n, err := wire.EncodeDiscoveryAnswer(buf, serviceType)
		if err != nil {
			return nil, fmt.Errorf("build discovery answer for %q: %w", serviceType, err)
		}
		out = append(out, buf[:n])
	}
	return out, nil
}

func flattenTXT(pairs map[string]string) []string {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]string, 0, len(pairs))
	for k, v := range pairs {
		if v == "" {
			out = append(out, k)
			continue
		}
		out = append(out, k+"="+v)
	}
	return out
}
