//go:build linux

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// setSocketOptions sets SO_REUSEADDR and, where the kernel supports it (3.9+),
// SO_REUSEPORT, so the process can share port 5353 with Avahi or
// systemd-resolved rather than failing to bind.
func setSocketOptions(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}

	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		if err != unix.ENOPROTOOPT {
			return fmt.Errorf("set SO_REUSEPORT: %w", err)
		}
	}

	return nil
}

// platformVersion returns the Linux kernel release string, e.g.
// "6.8.0-generic".
func platformVersion() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return "unknown"
	}
	release := make([]byte, 0, len(uname.Release))
	for _, b := range uname.Release {
		if b == 0 {
			break
		}
		release = append(release, byte(b))
	}
	return string(release)
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
