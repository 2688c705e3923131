//go:build unix

package server

import (
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// setSocketTimeouts applies SO_RCVTIMEO/SO_SNDTIMEO to an accepted
// connection's underlying fd through golang.org/x/sys, and sets a matching
// connection deadline (now + timeout), which is what makes a blocked
// Read/Write on conn fail with a timeout once it passes. timeout <= 0
// disables both (a zero timeval means "block indefinitely" at the
// setsockopt level, a zero deadline means none) — used for monitor
// connections, which are long-lived and must not time out waiting for a
// hang-up.
func setSocketTimeouts(conn net.Conn, timeout time.Duration) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return fmt.Errorf("setSocketTimeouts: SyscallConn: %w", err)
	}

	if timeout < 0 {
		timeout = 0
	}
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptTimeval(int(fd), unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); e != nil {
			sockErr = e
			return
		}
		sockErr = unix.SetsockoptTimeval(int(fd), unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)
	})
	if err != nil {
		return fmt.Errorf("setSocketTimeouts: Control: %w", err)
	}
	if sockErr != nil {
		return sockErr
	}
	// Go's sockets are non-blocking, so the runtime's Read/Write never hit
	// SO_RCVTIMEO/SO_SNDTIMEO; the connection deadline is what bounds them.
	if timeout == 0 {
		return conn.SetDeadline(time.Time{})
	}
	return conn.SetDeadline(time.Now().Add(timeout))
}
