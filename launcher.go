package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
)

// ScriptInvocation pins down one script run: which project, which script,
// and the environment overrides layered on top of the inherited environment.
type ScriptInvocation struct {
	Project *Project
	Script  string
	Env     map[string]string
}

// Manager returns the package manager resolved for the invocation's project.
func (inv ScriptInvocation) Manager() PackageManager {
	return DetectPackageManager(inv.Project.Path)
}

// CommandLine is the display form of the command this invocation runs.
func (inv ScriptInvocation) CommandLine() string {
	return inv.Manager().RunCommand(inv.Script)
}

// SpawnError reports that the OS process could not be started.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return fmt.Sprintf("spawn failed: %v", e.Err) }
func (e *SpawnError) Unwrap() error { return e.Err }

// ErrCaptureUnavailable means the stdio pipes could not be acquired for a
// captured launch. The launch as a whole fails.
var ErrCaptureUnavailable = errors.New("output capture unavailable")

// ProcessHandle owns one spawned process. Exactly one handle exists per
// process; a background reaper goroutine waits on it so liveness checks
// never block and the OS handle is always collected.
type ProcessHandle struct {
	cmd      *exec.Cmd
	done     chan struct{}
	exitCode int
	killOnce sync.Once
}

func newProcessHandle(cmd *exec.Cmd) *ProcessHandle {
	h := &ProcessHandle{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				h.exitCode = exitErr.ExitCode()
			} else {
				h.exitCode = -1
			}
		}
		close(h.done)
	}()
	return h
}

// Exited reports whether the process has been reaped. Never blocks.
func (h *ProcessHandle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the process is reaped and returns its exit code.
func (h *ProcessHandle) Wait() int {
	<-h.done
	return h.exitCode
}

// ExitCode is only meaningful once Exited reports true.
func (h *ProcessHandle) ExitCode() int {
	select {
	case <-h.done:
		return h.exitCode
	default:
		return 0
	}
}

// Kill terminates the process tree. Safe to call more than once; only the
// first call does anything.
func (h *ProcessHandle) Kill() {
	h.killOnce.Do(func() {
		killProcess(h.cmd)
	})
}

func (h *ProcessHandle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Launch spawns the invocation with inherited stdio, fire and forget.
func Launch(inv ScriptInvocation) (*ProcessHandle, error) {
	cmd := buildScriptCommand(inv)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Err: err}
	}
	return newProcessHandle(cmd), nil
}

// LaunchCaptured spawns the invocation with stdout and stderr piped into two
// pump goroutines that share one line channel. The channel closes once both
// streams hit EOF. A pipe failure fails the whole launch.
func LaunchCaptured(inv ScriptInvocation) (*ProcessHandle, <-chan string, error) {
	cmd := buildScriptCommand(inv)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, &SpawnError{Err: err}
	}
	ch := pumpStreams(stdout, stderr)
	return newProcessHandle(cmd), ch, nil
}

// overlayEnv layers overrides on top of the inherited environment. Existing
// keys are replaced in place, new ones appended.
func overlayEnv(overrides map[string]string) []string {
	env := os.Environ()
	if len(overrides) == 0 {
		return env
	}
	remaining := make(map[string]string, len(overrides))
	for k, v := range overrides {
		remaining[k] = v
	}
	for i, entry := range env {
		key, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if v, found := remaining[key]; found {
			env[i] = key + "=" + v
			delete(remaining, key)
		}
	}
	keys := make([]string, 0, len(remaining))
	for k := range remaining {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+remaining[k])
	}
	return env
}
