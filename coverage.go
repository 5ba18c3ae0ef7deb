package main

import (
	"os/exec"
	"path/filepath"
	"runtime"
)

// coverageScript is the manifest script expected to produce the lcov report.
const coverageScript = "test"

func coverageReportPath(p *Project) string {
	return filepath.Join(p.Path, "coverage", "lcov-report", "index.html")
}

func hasCoverageReport(p *Project) bool {
	return fileExists(coverageReportPath(p))
}

// openerArgs is the platform argv for opening a file with its default
// application.
func openerArgs(goos, path string) []string {
	switch goos {
	case "darwin":
		return []string{"open", path}
	case "windows":
		return []string{"cmd", "/c", "start", "", path}
	default:
		return []string{"xdg-open", path}
	}
}

// openCoverageReport hands the report to the system browser, fire and forget.
func openCoverageReport(p *Project) error {
	args := openerArgs(runtime.GOOS, coverageReportPath(p))
	return exec.Command(args[0], args[1:]...).Start()
}
