//go:build windows

package main

import "os/exec"

// buildScriptCommand wraps the invocation in cmd.exe: npm, yarn and pnpm are
// .cmd shims on Windows, so resolution has to go through the interpreter.
func buildScriptCommand(inv ScriptInvocation) *exec.Cmd {
	cmd := exec.Command("cmd", "/c", inv.Manager().RunCommand(inv.Script))
	cmd.Dir = inv.Project.Path
	cmd.Env = overlayEnv(inv.Env)
	return cmd
}

func killProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
