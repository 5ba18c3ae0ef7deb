package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/tidwall/gjson"
)

// ScriptEntry is one script declared in a project manifest.
type ScriptEntry struct {
	Name    string
	Command string
}

// Project is a directory containing a package.json.
type Project struct {
	Name    string
	Path    string
	Scripts []ScriptEntry
}

func (p *Project) HasScript(name string) bool {
	for _, s := range p.Scripts {
		if s.Name == name {
			return true
		}
	}
	return false
}

// ScriptCommand returns the command line declared for a script, or "".
func (p *Project) ScriptCommand(name string) string {
	for _, s := range p.Scripts {
		if s.Name == name {
			return s.Command
		}
	}
	return ""
}

// ScriptNames returns the declared script names in manifest order.
func (p *Project) ScriptNames() []string {
	names := make([]string, 0, len(p.Scripts))
	for _, s := range p.Scripts {
		names = append(names, s.Name)
	}
	return names
}

const scanMaxDepth = 8

// ScanProjects walks root for package.json files, skipping dot-directories
// and node_modules. Results are sorted by project name for a stable UI.
func ScanProjects(root string) ([]*Project, error) {
	root = filepath.Clean(root)
	var (
		mu       sync.Mutex
		projects []*Project
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			if pathDepth(root, path) > scanMaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != "package.json" {
			return nil
		}
		project, err := loadProject(path)
		if err != nil {
			return nil
		}
		mu.Lock()
		projects = append(projects, project)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Name != projects[j].Name {
			return projects[i].Name < projects[j].Name
		}
		return projects[i].Path < projects[j].Path
	})
	return projects, nil
}

func pathDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// loadProject reads the manifest's name and scripts. The directory name
// stands in when the manifest has no name field.
func loadProject(manifestPath string) (*Project, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid manifest %s", manifestPath)
	}
	dir := filepath.Dir(manifestPath)
	name := gjson.GetBytes(data, "name").String()
	if name == "" {
		name = filepath.Base(dir)
	}
	var scripts []ScriptEntry
	gjson.GetBytes(data, "scripts").ForEach(func(key, value gjson.Result) bool {
		scripts = append(scripts, ScriptEntry{Name: key.String(), Command: value.String()})
		return true
	})
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return &Project{Name: name, Path: dir, Scripts: scripts}, nil
}
