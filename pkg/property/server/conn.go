package server

import (
	"bufio"
	"context"
	"net"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kvprop/propd/internal/logger"
	"github.com/kvprop/propd/internal/telemetry"
	"github.com/kvprop/propd/pkg/property"
	"github.com/kvprop/propd/pkg/property/perrors"
	"github.com/kvprop/propd/pkg/property/wire"
)

// HandleConnection reads exactly one request frame from conn, dispatches it
// to the reactor, writes the reply, and — for every opcode except Monitor
// — closes conn. This is the per-connection goroutine spec §4.7 describes
// as "inline in the event loop"; here the blocking recv/send calls run on
// their own goroutine while the actual state mutation (the part that must
// not race) runs on the reactor goroutine via re.Submit.
func HandleConnection(ctx context.Context, re *Reactor, conn net.Conn, socketTimeout time.Duration) {
	remoteAddr := conn.RemoteAddr().String()
	lc := logger.NewLogContext(remoteAddr)
	ctx = logger.WithContext(ctx, lc)

	re.Metrics().ConnectionOpened()

	if err := setSocketTimeouts(conn, socketTimeout); err != nil {
		logger.WarnCtx(ctx, "conn: failed to set socket timeouts", logger.KeyError, err)
	}

	req, err := wire.ReadRequest(conn)
	if err != nil {
		logger.DebugCtx(ctx, "conn: dropping malformed or unreadable frame", logger.KeyError, err)
		conn.Close()
		re.Metrics().ConnectionClosed()
		return
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPropertyRequest,
		trace.WithAttributes(telemetry.Opcode(req.Op.String())))
	defer span.End()

	keptOpen := dispatch(ctx, re, req, conn, remoteAddr)

	if !keptOpen {
		conn.Close()
		re.Metrics().ConnectionClosed()
	}
}

// dispatch executes one decoded request and writes its reply. It returns
// true if ownership of conn was transferred to the watcher registry (a
// successful Monitor request) and the caller must not close it.
func dispatch(ctx context.Context, re *Reactor, req *wire.Request, conn net.Conn, remoteAddr string) bool {
	switch req.Op {
	case wire.OpSet:
		var status int32
		re.Submit(func(ctx context.Context) {
			status = int32(perrors.AsCode(re.NS.Set(ctx, req.Key, req.Value, false)))
		})
		re.Metrics().Request(req.Op.String(), status != 0)
		writeStatusReply(ctx, conn, status)
		// The mutating client's own reply is written before any watcher is
		// notified of the mutation (spec §5/§4.7 ordering requirement).
		if status == 0 {
			re.Submit(func(ctx context.Context) {
				re.Watchers.Notify(req.Key, req.Value, wire.WriteNotification)
			})
		}
		return false

	case wire.OpGet:
		var value []byte
		var code perrors.Code
		re.Submit(func(ctx context.Context) {
			v, err := re.NS.Get(ctx, req.Key, req.BufCap)
			value = v
			code = perrors.AsCode(err)
		})
		re.Metrics().Request(req.Op.String(), code != perrors.CodeOK)
		if code != perrors.CodeOK {
			// No reply at all for an absent/errored key: the client sees a
			// short read / EOF (spec §4.5).
			logger.DebugCtx(ctx, "conn: get miss, closing without reply", logger.KeyKey, req.Key)
			return false
		}
		if err := wire.WriteValue(conn, value); err != nil {
			logger.DebugCtx(ctx, "conn: get reply write failed", logger.KeyError, err)
		}
		return false

	case wire.OpDelete:
		var status int32
		re.Submit(func(ctx context.Context) {
			status = int32(perrors.AsCode(re.NS.Delete(ctx, req.Key, false)))
		})
		re.Metrics().Request(req.Op.String(), status != 0)
		writeStatusReply(ctx, conn, status)
		// Same reply-before-notify ordering as OpSet. A nil value signals a
		// deletion to watchers (spec §4.6).
		if status == 0 {
			re.Submit(func(ctx context.Context) {
				re.Watchers.Notify(req.Key, nil, wire.WriteNotification)
			})
		}
		return false

	case wire.OpList:
		var records []property.Property
		re.Submit(func(ctx context.Context) {
			_ = re.NS.List(ctx, func(key string, value []byte) {
				records = append(records, property.Property{Key: key, Value: value})
			})
		})
		re.Metrics().Request(req.Op.String(), false)
		writeListReply(ctx, conn, records)
		return false

	case wire.OpCommit:
		var status int32
		re.Submit(func(ctx context.Context) {
			status = int32(perrors.AsCode(re.NS.Commit(ctx)))
		})
		re.Metrics().Commit()
		re.Metrics().Request(req.Op.String(), status != 0)
		writeStatusReply(ctx, conn, status)
		return false

	case wire.OpReload:
		re.Submit(func(ctx context.Context) {
			if err := LoadSources(ctx, re.NS, re.BootstrapSources, true); err != nil {
				logger.WarnCtx(ctx, "conn: reload failed", logger.KeyError, err)
			}
		})
		re.Metrics().Request(req.Op.String(), false)
		// R has no reply (spec §4.5, best-effort).
		return false

	case wire.OpMonitor:
		var status int32
		re.Submit(func(ctx context.Context) {
			if property.KeyEmpty(req.Key) {
				status = int32(perrors.CodeInval)
				return
			}
			if property.KeyTooLong(req.Key) {
				status = int32(perrors.Code2Big)
				return
			}
			// The success reply is written here, on the reactor goroutine and
			// before Register, so it reaches the client ahead of any
			// notification Notify later writes to conn.
			writeStatusReply(ctx, conn, 0)
			re.Watchers.Register(req.Key, conn, remoteAddr)
			re.Metrics().WatcherRegistered()
		})
		re.Metrics().Request(req.Op.String(), status != 0)
		if status != 0 {
			writeStatusReply(ctx, conn, status)
			return false
		}
		if err := setSocketTimeouts(conn, 0); err != nil {
			logger.WarnCtx(ctx, "conn: failed to disable timeout on monitor socket", logger.KeyError, err)
		}
		go watchMonitorHangup(ctx, re, conn)
		return true

	default:
		return false
	}
}

func writeStatusReply(ctx context.Context, conn net.Conn, status int32) {
	if err := wire.WriteStatus(conn, status); err != nil {
		logger.DebugCtx(ctx, "conn: status reply write failed", logger.KeyError, err)
	}
}

func writeListReply(ctx context.Context, conn net.Conn, records []property.Property) {
	bw := bufio.NewWriter(conn)
	for _, rec := range records {
		if err := wire.WriteListRecord(bw, rec.Key, rec.Value); err != nil {
			logger.DebugCtx(ctx, "conn: list record write failed", logger.KeyError, err)
			return
		}
	}
	if err := wire.WriteListSentinel(bw); err != nil {
		logger.DebugCtx(ctx, "conn: list sentinel write failed", logger.KeyError, err)
		return
	}
	if err := bw.Flush(); err != nil {
		logger.DebugCtx(ctx, "conn: list reply flush failed", logger.KeyError, err)
	}
}

// watchMonitorHangup detects a monitor client disconnecting. The reactor
// never reads a monitor socket (spec §4.7) — only EPOLLHUP is acted on — so
// the Go translation is a dedicated goroutine blocked on Read. The monitor
// protocol never sends anything on a promoted connection, so any return
// from Read (EOF, reset, or a protocol violation) means the watcher is
// gone; either way it is dropped.
func watchMonitorHangup(ctx context.Context, re *Reactor, conn net.Conn) {
	var buf [1]byte
	conn.Read(buf[:])
	re.Submit(func(ctx context.Context) {
		re.Watchers.Drop(conn)
		re.Metrics().WatcherDropped()
	})
	re.Metrics().ConnectionClosed()
	conn.Close()
}
