package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/net/ipv4"

	"github.com/jfuller/mdnsgo/internal/errors"
	"github.com/jfuller/mdnsgo/internal/protocol"
)

// IPv4Transport is a UDP multicast transport bound to 224.0.0.251:5353.
type IPv4Transport struct {
	conn *net.UDPConn
	pc   *ipv4.PacketConn
}

// NewIPv4Transport binds a UDP socket on the mDNS port, configures
// SO_REUSEPORT (platform-specific, see socket_*.go) so it can coexist with
// Avahi/Bonjour/systemd-resolved, and joins the IPv4 mDNS multicast group on
// every multicast-capable interface.
func NewIPv4Transport() (*IPv4Transport, error) {
	lc := net.ListenConfig{Control: PlatformControl}
	pconn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", protocol.Port))
	if err != nil {
		return nil, &errors.NetworkError{Operation: "listen udp4", Err: err, Details: fmt.Sprintf("bind :%d", protocol.Port)}
	}
	conn := pconn.(*net.UDPConn)
	if v := platformVersion(); v != "" {
		slog.Debug("opened mdns ipv4 socket", "platform_version", v)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "set control message", Err: err}
	}

	group := protocol.MulticastGroupIPv4()
	ifaces, err := multicastInterfaces()
	if err != nil {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "list interfaces", Err: err}
	}
	joined := 0
	for _, ifi := range ifaces {
		if err := pc.JoinGroup(&ifi, &net.UDPAddr{IP: group.IP}); err == nil {
			joined++
		}
	}
	if joined == 0 {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "join multicast group", Details: "no usable multicast interface"}
	}

	_ = pc.SetMulticastTTL(255)
	_ = pc.SetMulticastLoopback(true)

	return &IPv4Transport{conn: conn, pc: pc}, nil
}

func (t *IPv4Transport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	if err := ctx.Err(); err != nil {
		return &errors.NetworkError{Operation: "send", Err: err, Details: "context canceled before send"}
	}
	n, err := t.pc.WriteTo(packet, nil, dest)
	if err != nil {
		return &errors.NetworkError{Operation: "send", Err: err, Details: fmt.Sprintf("write to %s", dest)}
	}
	if n != len(packet) {
		return &errors.NetworkError{Operation: "send", Details: fmt.Sprintf("partial write %d/%d bytes", n, len(packet))}
	}
	return nil
}

func (t *IPv4Transport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, &errors.NetworkError{Operation: "receive", Err: err, Details: "context canceled before receive"}
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, &errors.NetworkError{Operation: "set read deadline", Err: err}
		}
	}

	bufPtr := GetBuffer()
	defer PutBuffer(bufPtr)
	buf := *bufPtr

	n, _, src, err := t.pc.ReadFrom(buf)
	if err != nil {
		return nil, nil, &errors.NetworkError{Operation: "receive", Err: err, Details: "read from socket"}
	}
	result := make([]byte, n)
	copy(result, buf[:n])
	return result, src, nil
}

func (t *IPv4Transport) Close() error {
	if err := t.conn.Close(); err != nil {
		return &errors.NetworkError{Operation: "close socket", Err: err}
	}
	return nil
}

var _ Transport = (*IPv4Transport)(nil)

// multicastInterfaces returns the interfaces suitable for joining an mDNS
// multicast group: up, and supporting multicast.
func multicastInterfaces() ([]net.Interface, error) {
	return MulticastInterfaces()
}

// MulticastInterfaces returns every up, multicast-capable interface on the
// host. Exported so callers above this package (mdns.Querier, mdns.Responder)
// can build an internal/security.SourceFilter over the same interface set
// the transport itself joins groups on.
func MulticastInterfaces() ([]net.Interface, error) {
	all, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []net.Interface
	for _, ifi := range all {
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		if ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		out = append(out, ifi)
	}
	return out, nil
}
