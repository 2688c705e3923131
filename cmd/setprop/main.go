// Command setprop is the thin CLI collaborator of spec §6: it sets a
// property, or deletes it if the value is omitted, then always issues a
// commit. Grounded on kvdb/setprop.c.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kvprop/propd/pkg/property/client"
	"github.com/kvprop/propd/pkg/property/perrors"
)

const defaultSocketPath = "/run/propd/propd.sock"

func socketPath() string {
	if v := os.Getenv("PROPD_SOCKET"); v != "" {
		return v
	}
	return defaultSocketPath
}

func main() {
	args := os.Args
	c := client.New(socketPath())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch {
	case len(args) == 3:
		err = c.Set(ctx, args[1], []byte(args[2]), false)
	case len(args) == 2 && args[1] != "-h":
		err = c.Delete(ctx, args[1])
	default:
		fmt.Printf("Usage: %s <key> [value]\n", args[0])
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", perrors.AsCode(err))
		os.Exit(1)
	}

	if err := c.Commit(ctx); err != nil {
		fmt.Printf("Error: commit %v\n", perrors.AsCode(err))
		os.Exit(1)
	}
}
