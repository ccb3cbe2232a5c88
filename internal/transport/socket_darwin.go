//go:build darwin

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// setSocketOptions sets SO_REUSEADDR and SO_REUSEPORT so the process can
// share port 5353 with mDNSResponder (Bonjour).
func setSocketOptions(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return fmt.Errorf("set SO_REUSEPORT: %w", err)
	}
	return nil
}

// platformVersion is unused on macOS; Darwin's kernel version doesn't bear
// on SO_REUSEPORT availability the way it does on Linux.
func platformVersion() string {
	return ""
}

func platformControl(_, _ string, c syscall.RawConn) error {
	var sockoptErr error
	if err := c.Control(func(fd uintptr) {
		sockoptErr = setSocketOptions(fd)
	}); err != nil {
		return fmt.Errorf("raw conn control: %w", err)
	}
	return sockoptErr
}

// PlatformControl is passed as net.ListenConfig.Control when opening the
// mDNS socket, applying the platform's multi-daemon-coexistence options.
func PlatformControl(network, address string, c syscall.RawConn) error {
	return platformControl(network, address, c)
}
