//go:build windows

package telemetry

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func reuseAddr(network, address string, conn syscall.RawConn) error {
	var sockErr error

	err := conn.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})

	if err != nil {
		return err
	}

	return sockErr
}
