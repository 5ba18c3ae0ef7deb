package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "termdeck: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) > 0 && args[0] == "init" {
		if err := runInit(defaultConfigName); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Created %s. Edit it, then re-run termdeck.\n", defaultConfigName)
		return nil
	}
	if len(args) > 0 && args[0] == "run" {
		if len(args) != 3 {
			return errors.New("usage: termdeck run <project> <script>")
		}
		return runScriptAttached(defaultConfigName, args[1], args[2])
	}

	fs := flag.NewFlagSet("termdeck", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigName, "path to config file")
	fs.StringVar(configPath, "c", defaultConfigName, "shorthand for -config")
	rootDir := fs.String("root", "", "projects root (overrides config)")
	fs.StringVar(rootDir, "r", "", "shorthand for -root")
	theme := fs.String("theme", "", "auto, light, or dark (overrides config)")
	fs.StringVar(theme, "t", "", "shorthand for -theme")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && *configPath == defaultConfigName {
			return offerInit(*configPath)
		}
		return err
	}

	if dir := strings.TrimSpace(*rootDir); dir != "" {
		cfg.Root = dir
		cfg.normalize()
	}
	if t := strings.ToLower(strings.TrimSpace(*theme)); t != "" {
		cfg.Theme = t
		if err := cfg.validate(); err != nil {
			return err
		}
	}
	applyTheme(cfg.Theme)

	program := tea.NewProgram(newModel(cfg), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// runScriptAttached runs one project script in the foreground on the
// terminal's own stdio, without entering the alt screen.
func runScriptAttached(configPath, projectName, script string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = Config{}
		cfg.normalize()
	}

	projects, err := ScanProjects(cfg.Root)
	if err != nil {
		return err
	}
	var project *Project
	for _, p := range projects {
		if p.Name == projectName {
			project = p
			break
		}
	}
	if project == nil {
		return fmt.Errorf("no project named %q under %s", projectName, cfg.Root)
	}
	if !project.HasScript(script) {
		return fmt.Errorf("%s has no %s script", project.Name, script)
	}

	env, err := LoadEnv(cfg.Root, cfg.Profile())
	if err != nil {
		return err
	}
	handle, err := Launch(ScriptInvocation{Project: project, Script: script, Env: env})
	if err != nil {
		return err
	}
	if code := handle.Wait(); code != 0 {
		return fmt.Errorf("%s exited with status %d", script, code)
	}
	return nil
}

func applyTheme(theme string) {
	switch theme {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	default:
		// lipgloss queries the terminal itself, but inside tmux that query
		// is unreliable; COLORFGBG is the next best signal.
		if os.Getenv("TMUX") == "" {
			return
		}
		if dark, ok := darkBackgroundFromColorFgBg(os.Getenv("COLORFGBG")); ok {
			lipgloss.SetHasDarkBackground(dark)
		}
	}
}

// darkBackgroundFromColorFgBg reads the "fg;bg" convention some terminals
// export; backgrounds 0-6 are the dark half of the base palette.
func darkBackgroundFromColorFgBg(value string) (bool, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, false
	}
	parts := strings.Split(value, ";")
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return false, false
	}
	return bg <= 6, true
}
