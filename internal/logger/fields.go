package logger

// Structured log field keys. Centralized here so call sites don't
// hand-type strings that drift between log lines.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Wire protocol / operation
	KeyOpcode    = "opcode"
	KeyNamespace = "namespace"
	KeyStatus    = "status"
	KeyStatusMsg = "status_msg"
	KeyDuration  = "duration_ms"

	// Property data
	KeyKey      = "key"
	KeyValueLen = "value_len"
	KeyBackend  = "backend"
	KeyPath     = "path"
	KeySource   = "source"

	// Watcher registry
	KeyWatchPattern = "watch_pattern"
	KeyWatchCount   = "watch_count"

	// Commit / bootstrap
	KeyCommitDeadline = "commit_deadline"
	KeyLoadedCount    = "loaded_count"

	// Connection identification
	KeyRemoteAddr = "remote_addr"
	KeySocket     = "socket"

	// Errors
	KeyError = "error"
)
