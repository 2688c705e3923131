package client

import (
	"context"
	"os"
)

// EnvClient wraps a Client with C10's environment overlay: a presence
// check against the process environment short-circuits Get/Set/Delete
// before any socket traffic is generated. The server is never consulted
// and never aware this happened (spec §4.10) — this overlay exists purely
// in the client library.
type EnvClient struct {
	*Client
}

// WithEnvOverlay wraps c so its Get/Set/Delete consult the process
// environment first.
func WithEnvOverlay(c *Client) *EnvClient {
	return &EnvClient{Client: c}
}

// envKey maps a property key to the environment variable name the original
// client overlay checks. Property keys use '.'; environment variable names
// conventionally don't, so dots are left as-is — the overlay only fires
// when the exact key string is also a set environment variable name, which
// is the literal behavior spec §4.9/§4.10 describe ("presence check of the
// key").
func envKey(key string) string { return key }

// Get consults the environment first; if key is set there, its value wins
// and no socket traffic is generated.
func (e *EnvClient) Get(ctx context.Context, key string, bufCap int) ([]byte, error) {
	if v, ok := os.LookupEnv(envKey(key)); ok {
		if len(v) > bufCap {
			v = v[:bufCap]
		}
		return []byte(v), nil
	}
	return e.Client.Get(ctx, key, bufCap)
}

// Set writes through setenv when key is already present in the
// environment; otherwise it falls through to the backend.
func (e *EnvClient) Set(ctx context.Context, key string, value []byte, oneway bool) error {
	if _, ok := os.LookupEnv(envKey(key)); ok {
		return os.Setenv(envKey(key), string(value))
	}
	return e.Client.Set(ctx, key, value, oneway)
}

// Delete calls unsetenv and returns when key is present in the
// environment; otherwise it falls through to the backend.
func (e *EnvClient) Delete(ctx context.Context, key string) error {
	if _, ok := os.LookupEnv(envKey(key)); ok {
		return os.Unsetenv(envKey(key))
	}
	return e.Client.Delete(ctx, key)
}
