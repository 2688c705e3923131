package client

import (
	"context"
	"encoding/hex"
	"strconv"
)

// Typed wraps a Client (or EnvClient) with the bool/int32/int64/hex-buffer
// convenience encodings of kvdb/common.c's property_{get,set}_bool/int32/
// int64/buffer family. Every value is stored as its textual representation;
// these wrappers are pure transformations over the same Get/Set/Delete
// contract, not part of the core.
type Typed struct {
	propertyClient
}

// propertyClient is the subset Typed needs, satisfied by both *Client and
// *EnvClient so the overlay composes transparently.
type propertyClient interface {
	Get(ctx context.Context, key string, bufCap int) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, oneway bool) error
}

// NewTyped wraps c with the typed convenience accessors.
func NewTyped(c propertyClient) *Typed {
	return &Typed{propertyClient: c}
}

func (t *Typed) getString(ctx context.Context, key string) (string, bool) {
	v, err := t.Get(ctx, key, 255)
	if err != nil {
		return "", false
	}
	return string(v), true
}

// GetBool mirrors property_get_bool: "0"/"n" or "1"/"y" for single-char
// values; "no"/"false"/"off" or "yes"/"true"/"on" otherwise.
func (t *Typed) GetBool(ctx context.Context, key string, def bool) bool {
	v, ok := t.getString(ctx, key)
	if !ok {
		return def
	}
	switch v {
	case "0", "n", "no", "false", "off":
		return false
	case "1", "y", "yes", "true", "on":
		return true
	default:
		return def
	}
}

func (t *Typed) SetBool(ctx context.Context, key string, value bool) error {
	v := "false"
	if value {
		v = "true"
	}
	return t.Set(ctx, key, []byte(v), false)
}

func (t *Typed) GetInt32(ctx context.Context, key string, def int32) int32 {
	v, ok := t.getString(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 0, 32)
	if err != nil {
		return def
	}
	return int32(n)
}

func (t *Typed) SetInt32(ctx context.Context, key string, value int32) error {
	return t.Set(ctx, key, []byte(strconv.FormatInt(int64(value), 10)), false)
}

func (t *Typed) GetInt64(ctx context.Context, key string, def int64) int64 {
	v, ok := t.getString(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return def
	}
	return n
}

func (t *Typed) SetInt64(ctx context.Context, key string, value int64) error {
	return t.Set(ctx, key, []byte(strconv.FormatInt(value, 10)), false)
}

// GetBuffer decodes the stored value as a hex-encoded binary buffer
// (property_get_buffer).
func (t *Typed) GetBuffer(ctx context.Context, key string) ([]byte, error) {
	v, err := t.Get(ctx, key, 255)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(string(v))
}

// SetBuffer stores value hex-encoded (property_set_buffer).
func (t *Typed) SetBuffer(ctx context.Context, key string, value []byte) error {
	return t.Set(ctx, key, []byte(hex.EncodeToString(value)), false)
}
