// Package property defines the data model, wire constants, and namespace
// rules shared by the server, the storage backends, and the client.
package property

import "strings"

const (
	// KeyMax is the maximum key length in bytes, including the trailing NUL.
	KeyMax = 127
	// ValueMax is the strict upper bound on a value's length in bytes: a
	// value must be shorter than ValueMax.
	ValueMax = 255
	// MsgMax is the largest a single request frame may be: one opcode byte,
	// two u8 length fields, plus the key and value payloads.
	MsgMax = 3 + KeyMax + ValueMax

	// PersistPrefix selects the durable namespace; everything else falls to
	// volatile when it is enabled.
	PersistPrefix = "persist."
	// ReadOnlyPrefix marks a key as write-once outside of force writes.
	ReadOnlyPrefix = "ro."
)

// Namespace identifies which backend a key's prefix routes to.
type Namespace int

const (
	NamespacePersist Namespace = iota
	NamespaceVolatile
)

func (n Namespace) String() string {
	switch n {
	case NamespacePersist:
		return "persist"
	case NamespaceVolatile:
		return "volatile"
	default:
		return "unknown"
	}
}

// Property is a single (key, value) pair as stored by a backend.
type Property struct {
	Key   string
	Value []byte
}

// IsReadOnly reports whether key falls under the ro. write-once policy.
func IsReadOnly(key string) bool {
	return strings.HasPrefix(key, ReadOnlyPrefix)
}

// KeyEmpty reports whether key is rejected as empty: the literal empty
// string, or — for the persist namespace — the prefix "persist." with no
// tail. A zero-length tail is forbidden the same way a zero-length key is
// (spec §4.1).
func KeyEmpty(key string) bool {
	return key == "" || key == PersistPrefix
}

// KeyTooLong reports whether key, with its trailing NUL, would exceed
// KeyMax on the wire.
func KeyTooLong(key string) bool {
	return len(key)+1 > KeyMax
}

// ValidValue reports whether value is shorter than ValueMax.
func ValidValue(value []byte) bool {
	return len(value) < ValueMax
}
