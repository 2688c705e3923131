package server

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kvprop/propd/internal/logger"
)

// mountWaitAttempts and mountWaitInterval implement the loader's bounded
// wait for a source file's filesystem to mount, per spec §4.8: poll
// access() for up to 20ms (20 iterations x 1ms) before giving up on a
// single source path. Left unconfigurable per the Open Question in spec §9
// ("whether it should be configurable is unspecified") — see DESIGN.md.
const (
	mountWaitAttempts = 20
	mountWaitInterval = time.Millisecond
)

// LoadSources implements the bootstrap loader (C8): walk a
// semicolon-separated list of source file paths, parse each as key=value
// lines, and populate ns. force=true is used for reload (R); force=false
// for the initial startup load, so already-present keys are left alone.
func LoadSources(ctx context.Context, ns *Namespaces, sourceList string, force bool) error {
	paths := splitSources(sourceList)
	loaded := 0
	for _, path := range paths {
		if !waitForPath(path) {
			logger.Warn("bootstrap: source file never appeared, skipping", logger.KeySource, path)
			continue
		}
		n, err := loadFile(ctx, ns, path, force)
		if err != nil {
			logger.Warn("bootstrap: failed to load source", logger.KeySource, path, logger.KeyError, err)
			continue
		}
		loaded += n
	}
	logger.Info("bootstrap: load complete", logger.KeyLoadedCount, loaded)
	return ns.Commit(ctx)
}

func splitSources(sourceList string) []string {
	var paths []string
	for _, p := range strings.Split(sourceList, ";") {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// waitForPath polls os.Stat for up to mountWaitAttempts x mountWaitInterval,
// the Go analogue of the original's access()-retry loop that waits for a
// not-yet-mounted filesystem to appear.
func waitForPath(path string) bool {
	for i := 0; i < mountWaitAttempts; i++ {
		if _, err := os.Stat(path); err == nil {
			return true
		}
		time.Sleep(mountWaitInterval)
	}
	_, err := os.Stat(path)
	return err == nil
}

// loadFile parses one key=value-per-line source file. A line whose first
// non-whitespace byte is '#', or that is whitespace-only, is a comment and
// is skipped. A line with no '=' is silently skipped (spec §6).
func loadFile(ctx context.Context, ns *Namespaces, path string, force bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	loaded := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		key := line[:idx]
		value := line[idx+1:]

		if !force {
			// Force=false: an already-present key is left alone.
			if _, err := ns.Get(ctx, key, -1); err == nil {
				continue
			}
		}
		if err := ns.Set(ctx, key, []byte(value), true); err != nil {
			logger.Warn("bootstrap: set failed", logger.KeyKey, key, logger.KeyError, err)
			continue
		}
		loaded++
	}
	return loaded, scanner.Err()
}
