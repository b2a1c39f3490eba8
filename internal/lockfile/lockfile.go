// Package lockfile identifies the package manager of a project from the
// lock file it leaves behind.
//
// Lookup order within a directory is pnpm-lock.yaml, yarn.lock, then
// package-lock.json (or npm-shrinkwrap.json). Directories are searched in
// the order given, normally the current package and then the workspace
// root. Without any lock file the manifest's "packageManager" field is
// consulted, and npm is assumed last.
package lockfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/launchcg/testup/internal/project"
)

// Lock file names per package manager.
const (
	PnpmLockName      = "pnpm-lock.yaml"
	YarnLockName      = "yarn.lock"
	NpmLockName       = "package-lock.json"
	NpmShrinkwrapName = "npm-shrinkwrap.json"
)

const packageManagerNote = "packageManager field"

var lockFiles = []struct {
	name    string
	manager project.PackageManager
}{
	{PnpmLockName, project.PNPM},
	{YarnLockName, project.Yarn},
	{NpmLockName, project.NPM},
	{NpmShrinkwrapName, project.NPM},
}

// Result is the outcome of package manager detection.
type Result struct {
	Manager project.PackageManager
	// LockfilePath is empty when no lock file was found.
	LockfilePath string
	// Source says what decided the result: a lock file path, the
	// packageManager field, or "default".
	Source string
}

// Detect looks for lock files in dirs, in order. packageManagerField is
// the manifest's "packageManager" value (may be empty).
func Detect(packageManagerField string, dirs ...string) Result {
	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true

		for _, lf := range lockFiles {
			path := filepath.Join(dir, lf.name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return Result{Manager: lf.manager, LockfilePath: path, Source: path}
			}
		}
	}

	if pm, ok := FromField(packageManagerField); ok {
		return Result{Manager: pm, Source: packageManagerNote}
	}
	return Result{Manager: project.NPM, Source: "default"}
}

// FromField parses a corepack "packageManager" value such as
// "pnpm@8.15.0" or "yarn@4.1.0+sha256.abc".
func FromField(field string) (project.PackageManager, bool) {
	name, _, _ := strings.Cut(strings.TrimSpace(field), "@")
	switch project.PackageManager(strings.ToLower(name)) {
	case project.PNPM:
		return project.PNPM, true
	case project.Yarn:
		return project.Yarn, true
	case project.NPM:
		return project.NPM, true
	}
	return "", false
}
