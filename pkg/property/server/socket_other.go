//go:build !unix

package server

import (
	"net"
	"time"
)

// setSocketTimeouts falls back to Go's portable per-call deadline on
// platforms without golang.org/x/sys/unix socket-option support. timeout
// <= 0 clears any existing deadline (the zero time.Time means "never
// times out"), used for monitor connections which must stay blocked
// waiting for a hang-up indefinitely.
func setSocketTimeouts(conn net.Conn, timeout time.Duration) error {
	if timeout <= 0 {
		return conn.SetDeadline(time.Time{})
	}
	return conn.SetDeadline(time.Now().Add(timeout))
}
