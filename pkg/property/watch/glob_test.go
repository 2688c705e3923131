package watch_test

import (
	"testing"

	"github.com/kvprop/propd/pkg/property/watch"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"persist.net.*", "persist.net.ip", true},
		{"persist.net.*", "persist.other.ip", false},
		{"a.*", "a.b", true},
		{"a.?", "a.bb", false},
		{"a.?", "a.b", true},
		{"[abc].x", "a.x", true},
		{"[abc].x", "d.x", false},
		{"[!abc].x", "d.x", true},
		{"[a-c].x", "b.x", true},
		{"*", "anything", true},
		{`a\*.b`, `a\.b`, true}, // backslash is a literal, never an escape
		{`a\*.b`, `a*.b`, false},
	}
	for _, c := range cases {
		if got := watch.Match(c.pattern, c.name); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}
