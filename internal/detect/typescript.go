package detect

import (
	"path/filepath"

	"github.com/launchcg/testup/internal/manifest"
)

// conventionalTSFiles are checked relative to the current directory.
var conventionalTSFiles = []string{
	"src/main.ts",
	"src/index.ts",
	"src/main.tsx",
	"src/index.tsx",
	"src/App.tsx",
}

// TypeScript reports whether the project is written in TypeScript, and
// the evidence that decided it.
func TypeScript(m *manifest.Manifest, currentDir, rootDir string) (bool, string) {
	if m != nil {
		if _, ok := m.AllDependencies()["typescript"]; ok {
			return true, "typescript dependency"
		}
		if m.Types() != "" {
			return true, "types field"
		}
	}

	for _, dir := range uniqueDirs(currentDir, rootDir) {
		if fileExists(filepath.Join(dir, "tsconfig.json")) {
			return true, filepath.Join(dir, "tsconfig.json")
		}
	}

	for _, rel := range conventionalTSFiles {
		if fileExists(filepath.Join(currentDir, filepath.FromSlash(rel))) {
			return true, rel
		}
	}
	return false, ""
}

// uniqueDirs drops empty and repeated directories, keeping order.
func uniqueDirs(dirs ...string) []string {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
