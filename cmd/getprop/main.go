// Command getprop is the thin CLI collaborator of spec §6: it prints one
// property value (auto-detecting printable vs hex dump) or lists every
// property when called with no key. Grounded on kvdb/getprop.c.
package main

import (
	"context"
	"fmt"
	"os"
	"time"
	"unicode"

	"github.com/kvprop/propd/pkg/property"
	"github.com/kvprop/propd/pkg/property/client"
)

const defaultSocketPath = "/run/propd/propd.sock"

func socketPath() string {
	if v := os.Getenv("PROPD_SOCKET"); v != "" {
		return v
	}
	return defaultSocketPath
}

func printValue(key string, value []byte) {
	printable := true
	for i, b := range value {
		last := i == len(value)-1
		if last && b == 0 {
			continue
		}
		if b > unicode.MaxASCII || !unicode.IsPrint(rune(b)) {
			printable = false
			break
		}
	}

	if key != "" {
		fmt.Printf("%s: ", key)
	}
	if printable {
		s := string(value)
		if len(s) > 0 && s[len(s)-1] == 0 {
			s = s[:len(s)-1]
		}
		fmt.Println(s)
		return
	}
	for _, b := range value {
		fmt.Printf("%02x", b)
	}
	fmt.Println()
}

func main() {
	args := os.Args
	c := client.New(socketPath())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch {
	case len(args) == 2 && args[1] != "-h":
		value, err := c.Get(ctx, args[1], property.ValueMax-1)
		if err != nil {
			os.Exit(1)
		}
		printValue("", value)

	case len(args) == 1:
		props, err := c.List(ctx)
		if err != nil {
			os.Exit(1)
		}
		for _, p := range props {
			printValue(p.Key, p.Value)
		}

	default:
		fmt.Printf("Usage: %s [key]\n", args[0])
	}
}
