//go:build integration

package mirror

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/gicmo/home-sync/internal/rsync"
	"github.com/gicmo/home-sync/internal/sync"
	"github.com/gicmo/home-sync/internal/testutil"
	"github.com/gicmo/home-sync/internal/ui"
)

const remoteHost = "host1"

// shimScript stands in for ssh: it drops the host argument and runs the
// remote command locally with HOME pointing at the fake remote home.
const shimScript = `#!/bin/sh
echo "$*" >> "$SHIM_LOG"
shift
HOME="$REMOTE_HOME" exec sh -c "$*"
`

// Harness provides a local home, a fake remote home and an ssh shim
type Harness struct {
	t          *testing.T
	LocalHome  string
	RemoteHome string
	shim       string
	shimLog    string
}

// NewHarness creates a new test harness. Tests are skipped when rsync is
// not installed.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	if _, err := exec.LookPath("rsync"); err != nil {
		t.Skip("rsync not installed")
	}

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	h := &Harness{
		t:          t,
		LocalHome:  testutil.FakeHome(t),
		RemoteHome: t.TempDir(),
	}

	binDir := t.TempDir()
	h.shim = filepath.Join(binDir, "fake-ssh")
	h.shimLog = filepath.Join(binDir, "shim.log")
	if err := os.WriteFile(h.shim, []byte(shimScript), 0755); err != nil {
		t.Fatalf("write shim: %v", err)
	}

	t.Setenv("REMOTE_HOME", h.RemoteHome)
	t.Setenv("SHIM_LOG", h.shimLog)
	t.Setenv("TMPDIR", t.TempDir())

	return h
}

// Engine returns an engine running the real rsync through the shim
func (h *Harness) Engine(opts sync.Options) *sync.Engine {
	opts.Remote = remoteHost
	runner := &rsync.ExecRunner{
		Stdout: &testWriter{t: h.t, prefix: "[rsync] "},
		Stderr: &testWriter{t: h.t, prefix: "[rsync] "},
	}
	client := rsync.NewClient(runner, remoteHost, rsync.Options{SSH: h.shim})
	logger := slog.New(slog.NewTextHandler(&testWriter{t: h.t, prefix: "[log] "}, nil))
	return sync.NewEngine(opts, client, ui.NewPrinter(&testWriter{t: h.t, prefix: "[out] "}), logger)
}

// WriteLocal writes a file relative to the local home
func (h *Harness) WriteLocal(rel, content string) {
	h.t.Helper()
	testutil.WriteFile(h.t, filepath.Join(h.LocalHome, rel), content)
}

// WriteRemote writes a file relative to the fake remote home
func (h *Harness) WriteRemote(rel, content string) {
	h.t.Helper()
	testutil.WriteFile(h.t, filepath.Join(h.RemoteHome, rel), content)
}

// ReadRemote reads a file relative to the fake remote home
func (h *Harness) ReadRemote(rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(h.RemoteHome, rel))
	return string(data), err
}

// RemoteExists reports whether rel exists below the fake remote home
func (h *Harness) RemoteExists(rel string) bool {
	_, err := os.Stat(filepath.Join(h.RemoteHome, rel))
	return err == nil
}

// ShimCalls returns the argument lines the shim was invoked with
func (h *Harness) ShimCalls() []string {
	h.t.Helper()
	data, err := os.ReadFile(h.shimLog)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		h.t.Fatalf("read shim log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// testWriter wraps test logging for command output
type testWriter struct {
	t      *testing.T
	prefix string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if line != "" {
			w.t.Log(w.prefix + line)
		}
	}
	return len(p), nil
}

var _ io.Writer = (*testWriter)(nil)
