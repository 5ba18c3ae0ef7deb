package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestScanProjects(t *testing.T) {
	root := t.TempDir()

	writeManifest(t, filepath.Join(root, "api"), `{
		"name": "backend",
		"scripts": {"start": "node server.js", "dev": "nodemon server.js"}
	}`)
	writeManifest(t, filepath.Join(root, "web"), `{"scripts": {"build": "vite build"}}`)
	writeManifest(t, filepath.Join(root, "api", "node_modules", "dep"), `{"name": "dep"}`)
	writeManifest(t, filepath.Join(root, ".cache", "tool"), `{"name": "hidden"}`)
	writeManifest(t, filepath.Join(root, "broken"), `{not json`)

	projects, err := ScanProjects(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d: %v", len(projects), projectNames(projects))
	}

	// Sorted by name: "backend" before "web".
	if projects[0].Name != "backend" || projects[1].Name != "web" {
		t.Fatalf("unexpected order: %v", projectNames(projects))
	}

	backend := projects[0]
	if !backend.HasScript("dev") || !backend.HasScript("start") {
		t.Fatalf("expected backend scripts, got %v", backend.ScriptNames())
	}
	if backend.HasScript("missing") {
		t.Fatalf("did not expect missing script")
	}

	// No name field falls back to the directory name.
	if projects[1].Name != "web" {
		t.Fatalf("expected directory-name fallback, got %q", projects[1].Name)
	}
	if got := projects[1].Scripts[0].Command; got != "vite build" {
		t.Fatalf("expected script command, got %q", got)
	}
}

func TestScanProjectsScriptsSorted(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "app"), `{
		"name": "app",
		"scripts": {"test": "x", "build": "y", "dev": "z"}
	}`)

	projects, err := ScanProjects(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	names := projects[0].ScriptNames()
	want := []string{"build", "dev", "test"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected sorted scripts %v, got %v", want, names)
		}
	}
}

func TestScanProjectsDepthLimit(t *testing.T) {
	root := t.TempDir()
	deep := root
	for i := 0; i < scanMaxDepth+1; i++ {
		deep = filepath.Join(deep, "d")
	}
	writeManifest(t, deep, `{"name": "too-deep"}`)
	writeManifest(t, filepath.Join(root, "shallow"), `{"name": "shallow"}`)

	projects, err := ScanProjects(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(projects) != 1 || projects[0].Name != "shallow" {
		t.Fatalf("expected only the shallow project, got %v", projectNames(projects))
	}
}

func TestScanProjectsEmptyRoot(t *testing.T) {
	projects, err := ScanProjects(t.TempDir())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected no projects, got %v", projectNames(projects))
	}
}

func TestPathDepth(t *testing.T) {
	root := filepath.Join("a", "b")
	cases := []struct {
		path string
		want int
	}{
		{filepath.Join("a", "b"), 0},
		{filepath.Join("a", "b", "c"), 1},
		{filepath.Join("a", "b", "c", "d"), 2},
	}
	for _, tc := range cases {
		if got := pathDepth(root, tc.path); got != tc.want {
			t.Fatalf("pathDepth(%q, %q) = %d, want %d", root, tc.path, got, tc.want)
		}
	}
}

func projectNames(projects []*Project) []string {
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return names
}
