package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span names and attribute keys for the property reactor's request path.
const (
	SpanPropertyRequest = "property.request"

	AttrOpcode    = "property.opcode"
	AttrKey       = "property.key"
	AttrNamespace = "property.namespace"
	AttrBackend   = "property.backend"
	AttrStatus    = "property.status"
	AttrRemote    = "property.remote_addr"
)

func Opcode(op string) attribute.KeyValue {
	return attribute.String(AttrOpcode, op)
}

func Key(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

func Namespace(ns string) attribute.KeyValue {
	return attribute.String(AttrNamespace, ns)
}

func Backend(name string) attribute.KeyValue {
	return attribute.String(AttrBackend, name)
}

func Status(status int32) attribute.KeyValue {
	return attribute.Int(AttrStatus, int(status))
}

func RemoteAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrRemote, addr)
}
