//go:build windows

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

// setSocketOptions sets SO_REUSEADDR, which on Windows (unlike POSIX) allows
// multiple processes to bind the same port, the closest available
// equivalent to SO_REUSEPORT. Windows has no SO_REUSEPORT constant.
func setSocketOptions(fd uintptr) error {
	if err := windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	return nil
}

// platformVersion is unused on Windows.
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
