// Package client implements C9, the property client library: a thin
// connect-per-request helper used by getprop/setprop and any in-process Go
// caller. Every request opens a fresh connection except Monitor, which
// stays open for the caller to read notifications from.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/kvprop/propd/pkg/property"
	"github.com/kvprop/propd/pkg/property/perrors"
	"github.com/kvprop/propd/pkg/property/wire"
)

// Client talks to a propd reactor over a single Unix-domain socket path.
type Client struct {
	socketPath string
}

// New returns a Client bound to socketPath. It does not dial anything yet —
// each request method connects fresh.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// connect retries dialing until it succeeds or fails with an error other
// than "no such endpoint" (ENOENT, surfaced by net as a *net.OpError whose
// wrapped syscall error matches os.ErrNotExist), sleeping 1ms between attempts — spec §4.9's
// retry-until-non-ENOENT loop, which absorbs the daemon's own startup race.
//
// Spec §9's open question about this loop's unbounded nature is resolved
// here by honoring ctx: a caller that wants a ceiling passes a context with
// a deadline or cancellation; the bare retry loop itself has none, matching
// the source's documented behavior.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	for {
		conn, err := net.Dial("unix", c.socketPath)
		if err == nil {
			return conn, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("client: connect %s: %w", c.socketPath, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// Set writes key=value. If oneway is true the status reply is not read
// back (spec §4.5: "S MAY be fire-and-forget"); the server always writes
// it regardless.
func (c *Client) Set(ctx context.Context, key string, value []byte, oneway bool) error {
	if property.KeyEmpty(key) {
		return perrors.ErrInval
	}
	if property.KeyTooLong(key) {
		return perrors.Err2Big
	}
	if !property.ValidValue(value) {
		return perrors.Err2Big
	}
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := writeSet(conn, key, value); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	if oneway {
		return nil
	}
	return readStatus(conn)
}

// Get fetches key into a buffer of capacity bufCap bytes. A short read or
// EOF (the key is absent) is surfaced as ErrNoData.
func (c *Client) Get(ctx context.Context, key string, bufCap int) ([]byte, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	bw := bufio.NewWriter(conn)
	if err := writeKeyOp(bw, wire.OpGet, key, uint8(bufCap)); err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}

	buf := make([]byte, bufCap)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil || errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, perrors.ErrTimedOut
		}
		return nil, perrors.ErrNoData
	}
	return buf[:n], nil
}

// Delete removes key.
func (c *Client) Delete(ctx context.Context, key string) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	bw := bufio.NewWriter(conn)
	if err := writeKeyOp(bw, wire.OpDelete, key, 0); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	return readStatus(conn)
}

// List enumerates every property in every namespace.
func (c *Client) List(ctx context.Context) ([]property.Property, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{byte(wire.OpList)}); err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}

	br := bufio.NewReader(conn)
	var out []property.Property
	for {
		klen, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
		}
		vlen, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
		}
		if klen == 0 && vlen == 0 {
			return out, nil
		}
		keyBuf := make([]byte, klen)
		if _, err := readFullReader(br, keyBuf); err != nil {
			return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
		}
		value := make([]byte, vlen)
		if vlen > 0 {
			if _, err := readFullReader(br, value); err != nil {
				return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
			}
		}
		if klen > 0 {
			out = append(out, property.Property{Key: string(keyBuf[:len(keyBuf)-1]), Value: value})
		}
	}
}

// Commit forces an immediate flush of every backend.
func (c *Client) Commit(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Write([]byte{byte(wire.OpCommit)}); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	return readStatus(conn)
}

// Reload re-runs the bootstrap loader with force=true. Best-effort: no
// reply is read (spec §4.5).
func (c *Client) Reload(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Write([]byte{byte(wire.OpReload)}); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	return nil
}

// Monitor opens a long-lived watcher connection for pattern. The caller
// owns the returned *Watcher and must Close it when done.
func (c *Client) Monitor(ctx context.Context, pattern string) (*Watcher, error) {
	if property.KeyEmpty(pattern) {
		return nil, perrors.ErrInval
	}
	if property.KeyTooLong(pattern) {
		return nil, perrors.Err2Big
	}
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(conn)
	if err := writeKeyOp(bw, wire.OpMonitor, pattern, 0); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	if err := bw.Flush(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	if err := readStatus(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &Watcher{conn: conn, br: bufio.NewReader(conn)}, nil
}

// Wait implements spec §5's property_wait(key, timeout_ms): open a monitor
// on the exact key, read at most one change frame, then close.
func (c *Client) Wait(ctx context.Context, key string, timeout time.Duration) (property.Property, error) {
	w, err := c.Monitor(ctx, key)
	if err != nil {
		return property.Property{}, err
	}
	defer w.Close()

	if timeout > 0 {
		w.conn.SetReadDeadline(time.Now().Add(timeout))
	}
	p, err := w.Next()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return property.Property{}, perrors.ErrTimedOut
		}
		return property.Property{}, err
	}
	return p, nil
}

// Watcher reads change-notification frames off a promoted Monitor
// connection.
type Watcher struct {
	conn net.Conn
	br   *bufio.Reader
}

// Next blocks for the next change-notification frame. A vlen of 0 signals
// a deletion of Key.
func (w *Watcher) Next() (property.Property, error) {
	klen, err := w.br.ReadByte()
	if err != nil {
		return property.Property{}, err
	}
	vlen, err := w.br.ReadByte()
	if err != nil {
		return property.Property{}, err
	}
	keyBuf := make([]byte, klen)
	if _, err := readFullReader(w.br, keyBuf); err != nil {
		return property.Property{}, err
	}
	value := make([]byte, vlen)
	if vlen > 0 {
		if _, err := readFullReader(w.br, value); err != nil {
			return property.Property{}, err
		}
	}
	return property.Property{Key: string(keyBuf[:len(keyBuf)-1]), Value: value}, nil
}

// Close deregisters the watcher by hanging up; the reactor observes the
// hang-up and drops it from the registry.
func (w *Watcher) Close() error {
	return w.conn.Close()
}

func writeSet(w net.Conn, key string, value []byte) error {
	bw := bufio.NewWriter(w)
	keyBytes := append([]byte(key), 0)
	if err := bw.WriteByte(byte(wire.OpSet)); err != nil {
		return err
	}
	if err := bw.WriteByte(byte(len(keyBytes))); err != nil {
		return err
	}
	if err := bw.WriteByte(byte(len(value))); err != nil {
		return err
	}
	if _, err := bw.Write(keyBytes); err != nil {
		return err
	}
	if _, err := bw.Write(value); err != nil {
		return err
	}
	return bw.Flush()
}

func writeKeyOp(bw *bufio.Writer, op wire.Opcode, key string, vlen uint8) error {
	keyBytes := append([]byte(key), 0)
	if err := bw.WriteByte(byte(op)); err != nil {
		return err
	}
	if err := bw.WriteByte(byte(len(keyBytes))); err != nil {
		return err
	}
	if op == wire.OpGet {
		if err := bw.WriteByte(vlen); err != nil {
			return err
		}
	}
	_, err := bw.Write(keyBytes)
	return err
}

func readStatus(conn net.Conn) error {
	status, err := wire.ReadStatus(conn)
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrNoData, err)
	}
	if status != 0 {
		return perrors.New(perrors.Code(status), fmt.Sprintf("status %d", status))
	}
	return nil
}

func readFullReader(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
