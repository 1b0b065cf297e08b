//go:build !windows

package telemetry

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddr marks the listening socket with SO_REUSEADDR so a restarted
// daemon can rebind while the old socket lingers in TIME_WAIT.
func reuseAddr(network, address string, conn syscall.RawConn) error {
	var sockErr error

	err := conn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})

	if err != nil {
		return err
	}

	return sockErr
}
