package main

import (
	"fmt"
	"os"
	"path/filepath"
)

type PackageManager int

const (
	Npm PackageManager = iota
	Yarn
	Pnpm
)

func (pm PackageManager) String() string {
	switch pm {
	case Yarn:
		return "yarn"
	case Pnpm:
		return "pnpm"
	default:
		return "npm"
	}
}

// DetectPackageManager picks the package manager for a project directory by
// its lock file: pnpm-lock.yaml wins over yarn.lock, npm is the fallback.
func DetectPackageManager(dir string) PackageManager {
	if fileExists(filepath.Join(dir, "pnpm-lock.yaml")) {
		return Pnpm
	}
	if fileExists(filepath.Join(dir, "yarn.lock")) {
		return Yarn
	}
	return Npm
}

// RunArgs returns the argv for running a script with this package manager.
func (pm PackageManager) RunArgs(script string) []string {
	switch pm {
	case Yarn:
		return []string{"yarn", script}
	case Pnpm:
		return []string{"pnpm", script}
	default:
		return []string{"npm", "run", script}
	}
}

// RunCommand is the human-readable form of RunArgs, used for header lines
// and for shell-wrapped platforms.
func (pm PackageManager) RunCommand(script string) string {
	switch pm {
	case Yarn:
		return fmt.Sprintf("yarn %s", script)
	case Pnpm:
		return fmt.Sprintf("pnpm %s", script)
	default:
		return fmt.Sprintf("npm run %s", script)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
