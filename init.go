package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const defaultConfigName = ".termdeck.yml"

// Swapped out in tests, where stdin is a pipe.
var isTerminalFn = isTerminal

var errConfigMissing = errors.New("config missing")

// runInit writes a starter config into path, refusing to clobber one that
// already exists.
func runInit(path string) error {
	if path == "" {
		path = defaultConfigName
	}
	switch _, err := os.Stat(path); {
	case err == nil:
		return fmt.Errorf("config already exists at %s", path)
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigTemplate(workspaceTitle())), 0o644)
}

// workspaceTitle derives a config title from the current directory.
func workspaceTitle() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "termdeck"
	}
	base := filepath.Base(cwd)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "termdeck"
	}
	return base
}

func defaultConfigTemplate(title string) string {
	if strings.TrimSpace(title) == "" {
		title = "termdeck"
	}

	return fmt.Sprintf(`title: %q

# Directory scanned for projects (package.json manifests).
root: .

sidebar_width: 32

# auto, light, or dark
theme: auto

# Which .env flavor feeds script runs: dev, staging, or prod.
env_profile: dev

# Optional GitLab integration. The token can also come from $GITLAB_TOKEN.
# gitlab_url: https://gitlab.example.com
# gitlab_token: glpat-...
`, title)
}

// offerInit is the no-config path on startup: interactively propose creating
// one, or point at `termdeck init` when stdin is not a terminal.
func offerInit(path string) error {
	if !isTerminalFn(os.Stdin) {
		fmt.Fprintf(os.Stderr, "No %s found in this directory. Run `termdeck init` to create one.\n", path)
		return errConfigMissing
	}

	ok, err := promptYesNo(fmt.Sprintf("No %s found. Create one now?", path))
	if err != nil {
		return err
	}
	if !ok {
		return errConfigMissing
	}
	if err := runInit(path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Created %s. Edit it, then re-run termdeck.\n", path)
	return nil
}

func promptYesNo(question string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func isTerminal(file *os.File) bool {
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
