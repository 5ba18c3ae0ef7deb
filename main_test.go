package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeRunFixture lays out a workspace with one project and a config
// pointing at it, returning the config path.
func writeRunFixture(t *testing.T, scripts string) string {
	t.Helper()
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "api"), fmt.Sprintf(`{"name": "api", "scripts": {%s}}`, scripts))

	configPath := filepath.Join(t.TempDir(), "termdeck.yml")
	if err := os.WriteFile(configPath, []byte("root: "+root+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func TestRunScriptAttached(t *testing.T) {
	installFakeNpm(t, "exit 0")
	configPath := writeRunFixture(t, `"test": "jest"`)

	if err := runScriptAttached(configPath, "api", "test"); err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
}

func TestRunScriptAttachedNonZeroExit(t *testing.T) {
	installFakeNpm(t, "exit 5")
	configPath := writeRunFixture(t, `"test": "jest"`)

	err := runScriptAttached(configPath, "api", "test")
	if err == nil || !strings.Contains(err.Error(), "status 5") {
		t.Fatalf("expected exit status error, got %v", err)
	}
}

func TestRunScriptAttachedUnknownProject(t *testing.T) {
	configPath := writeRunFixture(t, `"test": "jest"`)

	err := runScriptAttached(configPath, "ghost", "test")
	if err == nil || !strings.Contains(err.Error(), "no project named") {
		t.Fatalf("expected unknown-project error, got %v", err)
	}
}

func TestRunScriptAttachedUnknownScript(t *testing.T) {
	configPath := writeRunFixture(t, `"dev": "vite"`)

	err := runScriptAttached(configPath, "api", "test")
	if err == nil || !strings.Contains(err.Error(), "has no test script") {
		t.Fatalf("expected unknown-script error, got %v", err)
	}
}

func TestDarkBackgroundFromColorFgBg(t *testing.T) {
	cases := []struct {
		in   string
		dark bool
		ok   bool
	}{
		{"15;0", true, true},
		{"0;15", false, true},
		{"12;8", false, true},
		{"default;default", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		dark, ok := darkBackgroundFromColorFgBg(tc.in)
		if dark != tc.dark || ok != tc.ok {
			t.Fatalf("darkBackgroundFromColorFgBg(%q) = %v, %v; want %v, %v", tc.in, dark, ok, tc.dark, tc.ok)
		}
	}
}
