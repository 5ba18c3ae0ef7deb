package main

import (
	"fmt"
)

type SessionState int

const (
	StatePlaceholder SessionState = iota
	StateRunning
	StateFinished
	StateStopped
)

const (
	markerExited  = "[process exited]"
	markerStopped = "[process stopped]"
)

// pendingTarget is the project/script pair a placeholder (or a finished
// session eligible for rerun) is bound to.
type pendingTarget struct {
	Project *Project
	Script  string
}

// TerminalSession wraps at most one live process and its multiplexed output
// channel. The session is the only owner of the process handle. The channel
// is non-nil exactly while a captured process is alive; both are cleared in
// the same operation when the process goes away.
type TerminalSession struct {
	Name    string
	Lines   []string
	State   SessionState
	proc    *ProcessHandle
	ch      <-chan string
	pending *pendingTarget
}

// Running reports whether the session currently owns a live process.
func (s *TerminalSession) Running() bool { return s.State == StateRunning }

// Pending returns the stored rerun/placeholder target, if any.
func (s *TerminalSession) Pending() (*Project, string, bool) {
	if s.pending == nil {
		return nil, "", false
	}
	return s.pending.Project, s.pending.Script, true
}

// releaseChannel hands the channel to a throwaway drainer so the pump
// goroutines never block on a full buffer after the registry stops reading.
func (s *TerminalSession) releaseChannel() {
	if s.ch == nil {
		return
	}
	go func(ch <-chan string) {
		for range ch {
		}
	}(s.ch)
	s.ch = nil
}

// SessionRegistry owns the ordered collection of terminal sessions and the
// index of the currently selected one. It is driven from the UI loop only;
// all blocking work lives in the pump goroutines behind each channel.
type SessionRegistry struct {
	sessions []*TerminalSession
	selected int
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{}
}

func (r *SessionRegistry) Len() int { return len(r.sessions) }

func (r *SessionRegistry) Sessions() []*TerminalSession { return r.sessions }

func (r *SessionRegistry) Session(i int) *TerminalSession {
	if i < 0 || i >= len(r.sessions) {
		return nil
	}
	return r.sessions[i]
}

func (r *SessionRegistry) Selected() int { return r.selected }

func (r *SessionRegistry) Select(i int) {
	if i >= 0 && i < len(r.sessions) {
		r.selected = i
	}
}

func (r *SessionRegistry) SelectedSession() *TerminalSession {
	return r.Session(r.selected)
}

func sessionName(project *Project, script string) string {
	return fmt.Sprintf("%s » %s", project.Name, script)
}

func headerLine(inv ScriptInvocation) string {
	return StripANSI(fmt.Sprintf("> %s » %s", inv.Project.Name, inv.CommandLine()))
}

// Start validates that the project declares the script, then launches it in
// capture mode and appends the new session. A validation failure creates no
// session. A spawn failure still creates a session so the error stays
// visible, terminated and carrying the error line.
func (r *SessionRegistry) Start(project *Project, script string, env map[string]string) (int, error) {
	if !project.HasScript(script) {
		return -1, fmt.Errorf("project %q has no script %q", project.Name, script)
	}
	s := r.newSession(project, script, env)
	r.sessions = append(r.sessions, s)
	r.selected = len(r.sessions) - 1
	return r.selected, nil
}

func (r *SessionRegistry) newSession(project *Project, script string, env map[string]string) *TerminalSession {
	inv := ScriptInvocation{Project: project, Script: script, Env: env}
	s := &TerminalSession{
		Name:    sessionName(project, script),
		Lines:   []string{headerLine(inv)},
		pending: &pendingTarget{Project: project, Script: script},
	}
	proc, ch, err := LaunchCaptured(inv)
	if err != nil {
		s.Lines = append(s.Lines, StripANSI(fmt.Sprintf("[error] %v", err)))
		s.State = StateFinished
		return s
	}
	s.proc = proc
	s.ch = ch
	s.State = StateRunning
	return s
}

// Drain is called once per UI tick. For every running session it moves all
// currently buffered lines into Lines, then does a non-blocking liveness
// check; a session whose process has exited gets its completion marker and
// releases process and channel together. Never blocks.
func (r *SessionRegistry) Drain() bool {
	changed := false
	for _, s := range r.sessions {
		if s.ch != nil {
			for {
				line, ok, more := tryRecv(s.ch)
				if ok {
					s.Lines = append(s.Lines, line)
					changed = true
					continue
				}
				if !more {
					s.ch = nil
				}
				break
			}
		}
		if s.State == StateRunning && s.proc != nil && s.proc.Exited() {
			s.Lines = append(s.Lines, markerExited)
			s.proc = nil
			s.releaseChannel()
			s.State = StateFinished
			changed = true
		}
	}
	return changed
}

// tryRecv polls the channel: (line, received, channel-still-open).
func tryRecv(ch <-chan string) (string, bool, bool) {
	select {
	case line, ok := <-ch:
		return line, ok, ok
	default:
		return "", false, true
	}
}

// Stop kills the session's process if it has one. Idempotent: stopping a
// session that is not running is a no-op. Lines still buffered in the pumps
// at kill time may be lost; that matches the drain-then-kill contract.
func (r *SessionRegistry) Stop(i int) {
	s := r.Session(i)
	if s == nil || s.State != StateRunning {
		return
	}
	proc := s.proc
	s.proc = nil
	s.releaseChannel()
	if proc != nil {
		proc.Kill()
	}
	s.Lines = append(s.Lines, markerStopped)
	s.State = StateStopped
}

func (r *SessionRegistry) StopAll() {
	for i := range r.sessions {
		r.Stop(i)
	}
}

// Close stops the session if needed and removes it, keeping the remaining
// sessions in order and clamping the selection into the new range.
func (r *SessionRegistry) Close(i int) {
	if i < 0 || i >= len(r.sessions) {
		return
	}
	r.Stop(i)
	r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
	if r.selected >= len(r.sessions) && len(r.sessions) > 0 {
		r.selected = len(r.sessions) - 1
	} else if r.selected > i {
		r.selected--
	}
	if len(r.sessions) == 0 {
		r.selected = 0
	}
}

// AddPlaceholder appends an empty session with no process and no target,
// to be configured via SetPlaceholderTarget and promoted via RunPlaceholder.
func (r *SessionRegistry) AddPlaceholder() int {
	r.sessions = append(r.sessions, &TerminalSession{
		Name:  "new…",
		State: StatePlaceholder,
	})
	r.selected = len(r.sessions) - 1
	return r.selected
}

// SetPlaceholderTarget binds a placeholder to a project/script choice.
func (r *SessionRegistry) SetPlaceholderTarget(i int, project *Project, script string) error {
	s := r.Session(i)
	if s == nil {
		return fmt.Errorf("no session at %d", i)
	}
	if s.State != StatePlaceholder {
		return fmt.Errorf("session %d is not a placeholder", i)
	}
	s.pending = &pendingTarget{Project: project, Script: script}
	return nil
}

// RunPlaceholder promotes a configured placeholder to a running session.
func (r *SessionRegistry) RunPlaceholder(i int, env map[string]string) error {
	s := r.Session(i)
	if s == nil {
		return fmt.Errorf("no session at %d", i)
	}
	if s.State != StatePlaceholder {
		return fmt.Errorf("session %d is not a placeholder", i)
	}
	project, script, ok := s.Pending()
	if !ok || project == nil || script == "" {
		return fmt.Errorf("pick a project and script first")
	}
	return r.restartInPlace(i, project, script, env)
}

// Rerun starts a terminated (or configured placeholder) session again in
// place, re-validating that the project still declares the script.
func (r *SessionRegistry) Rerun(i int, env map[string]string) error {
	s := r.Session(i)
	if s == nil {
		return fmt.Errorf("no session at %d", i)
	}
	if s.State == StateRunning {
		return fmt.Errorf("session is still running")
	}
	project, script, ok := s.Pending()
	if !ok || project == nil || script == "" {
		return fmt.Errorf("session has nothing to rerun")
	}
	return r.restartInPlace(i, project, script, env)
}

func (r *SessionRegistry) restartInPlace(i int, project *Project, script string, env map[string]string) error {
	if !project.HasScript(script) {
		return fmt.Errorf("project %q has no script %q", project.Name, script)
	}
	r.sessions[i] = r.newSession(project, script, env)
	r.selected = i
	return nil
}
