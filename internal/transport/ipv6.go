package transport

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv6"

	"github.com/jfuller/mdnsgo/internal/errors"
	"github.com/jfuller/mdnsgo/internal/protocol"
)

// IPv6Transport is a UDP multicast transport bound to [ff02::fb]:5353.
type IPv6Transport struct {
	conn *net.UDPConn
	pc   *ipv6.PacketConn
}

// NewIPv6Transport mirrors NewIPv4Transport for the IPv6 mDNS group.
func NewIPv6Transport() (*IPv6Transport, error) {
	lc := net.ListenConfig{Control: PlatformControl}
	pconn, err := lc.ListenPacket(context.Background(), "udp6", fmt.Sprintf(":%d", protocol.Port))
	if err != nil {
		return nil, &errors.NetworkError{Operation: "listen udp6", Err: err, Details: fmt.Sprintf("bind :%d", protocol.Port)}
	}
	conn := pconn.(*net.UDPConn)

	pc := ipv6.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv6.FlagInterface, true); err != nil {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "set control message", Err: err}
	}

	group := protocol.MulticastGroupIPv6()
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

	_ = pc.SetMulticastHopLimit(255)
	_ = pc.SetMulticastLoopback(true)

	return &IPv6Transport{conn: conn, pc: pc}, nil
}

func (t *IPv6Transport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
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

func (t *IPv6Transport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
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

func (t *IPv6Transport) Close() error {
	if err := t.conn.Close(); err != nil {
		return &errors.NetworkError{Operation: "close socket", Err: err}
	}
	return nil
}

var _ Transport = (*IPv6Transport)(nil)
