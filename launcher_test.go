package main

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fixtureProject builds a Project rooted in a temp dir declaring the given
// scripts. No lock file is written, so it resolves to npm.
func fixtureProject(t *testing.T, scripts ...string) *Project {
	t.Helper()
	dir := t.TempDir()
	entries := make([]ScriptEntry, 0, len(scripts))
	for _, name := range scripts {
		entries = append(entries, ScriptEntry{Name: name, Command: "fixture " + name})
	}
	return &Project{Name: "fixture", Path: dir, Scripts: entries}
}

// installFakeNpm puts a shell script named npm first on PATH so launches run
// the given body instead of a real package manager.
func installFakeNpm(t *testing.T, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake package manager fixture is unix-only")
	}
	bin := t.TempDir()
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(filepath.Join(bin, "npm"), []byte(script), 0o755); err != nil {
		t.Fatalf("write fake npm: %v", err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// emptyPath points PATH at an empty directory so no binary resolves.
func emptyPath(t *testing.T) {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
}

func waitExited(t *testing.T, h *ProcessHandle) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !h.Exited() {
		if time.Now().After(deadline) {
			t.Fatalf("process never exited")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOverlayEnv(t *testing.T) {
	t.Setenv("TERMDECK_TEST_KEEP", "original")

	env := overlayEnv(map[string]string{
		"TERMDECK_TEST_KEEP": "replaced",
		"TERMDECK_TEST_ADD":  "added",
	})

	var keep, add int
	for _, entry := range env {
		switch entry {
		case "TERMDECK_TEST_KEEP=replaced":
			keep++
		case "TERMDECK_TEST_ADD=added":
			add++
		case "TERMDECK_TEST_KEEP=original":
			t.Fatalf("expected existing key replaced, found original value")
		}
	}
	if keep != 1 || add != 1 {
		t.Fatalf("expected one replaced and one added entry, got keep=%d add=%d", keep, add)
	}
}

func TestOverlayEnvNoOverrides(t *testing.T) {
	if got, want := len(overlayEnv(nil)), len(os.Environ()); got != want {
		t.Fatalf("expected inherited environment unchanged, got %d vs %d entries", got, want)
	}
}

func TestScriptInvocationCommandLine(t *testing.T) {
	project := fixtureProject(t, "dev")
	if err := os.WriteFile(filepath.Join(project.Path, "yarn.lock"), nil, 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}
	inv := ScriptInvocation{Project: project, Script: "dev"}
	if got := inv.CommandLine(); got != "yarn dev" {
		t.Fatalf("expected yarn dev, got %q", got)
	}
}

func TestLaunchCapturedSpawnFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PATH fixture is unix-only")
	}
	emptyPath(t)
	project := fixtureProject(t, "dev")

	_, _, err := LaunchCaptured(ScriptInvocation{Project: project, Script: "dev"})
	if err == nil {
		t.Fatalf("expected spawn error")
	}
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected SpawnError, got %T: %v", err, err)
	}
}

func TestLaunchCapturedCollectsBothStreams(t *testing.T) {
	installFakeNpm(t, `echo "out one"
echo "out two"
echo "err line" >&2`)
	project := fixtureProject(t, "dev")

	h, ch, err := LaunchCaptured(ScriptInvocation{Project: project, Script: "dev"})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	lines := collectLines(t, ch)
	waitExited(t, h)

	if h.ExitCode() != 0 {
		t.Fatalf("expected exit code 0, got %d", h.ExitCode())
	}
	if !containsLine(lines, "out one") || !containsLine(lines, "out two") {
		t.Fatalf("missing stdout lines: %v", lines)
	}
	if !containsLine(lines, stderrTag+"err line") {
		t.Fatalf("missing tagged stderr line: %v", lines)
	}
	if indexOfLine(lines, "out one") > indexOfLine(lines, "out two") {
		t.Fatalf("stdout order not preserved: %v", lines)
	}
}

func TestLaunchCapturedExitCode(t *testing.T) {
	installFakeNpm(t, "exit 3")
	project := fixtureProject(t, "dev")

	h, ch, err := LaunchCaptured(ScriptInvocation{Project: project, Script: "dev"})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	collectLines(t, ch)
	waitExited(t, h)
	if h.ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %d", h.ExitCode())
	}
}

func TestLaunchCapturedEnvOverride(t *testing.T) {
	installFakeNpm(t, `echo "value=$TERMDECK_FIXTURE"`)
	project := fixtureProject(t, "dev")

	h, ch, err := LaunchCaptured(ScriptInvocation{
		Project: project,
		Script:  "dev",
		Env:     map[string]string{"TERMDECK_FIXTURE": "injected"},
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	lines := collectLines(t, ch)
	waitExited(t, h)
	if !containsLine(lines, "value=injected") {
		t.Fatalf("expected env override in output, got %v", lines)
	}
}

func TestLaunchWaitReturnsExitCode(t *testing.T) {
	installFakeNpm(t, "exit 5")
	project := fixtureProject(t, "dev")

	h, err := Launch(ScriptInvocation{Project: project, Script: "dev"})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if code := h.Wait(); code != 5 {
		t.Fatalf("expected exit code 5, got %d", code)
	}
	if !h.Exited() {
		t.Fatalf("expected Exited true after Wait")
	}
}

func TestKillIsIdempotent(t *testing.T) {
	installFakeNpm(t, "sleep 30")
	project := fixtureProject(t, "dev")

	h, ch, err := LaunchCaptured(ScriptInvocation{Project: project, Script: "dev"})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	h.Kill()
	h.Kill()
	collectLines(t, ch)
	waitExited(t, h)
	if h.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code after kill")
	}
}

func indexOfLine(lines []string, want string) int {
	for i, line := range lines {
		if strings.Contains(line, want) {
			return i
		}
	}
	return -1
}
