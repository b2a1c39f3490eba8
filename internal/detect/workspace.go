package detect

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
)

// PnpmWorkspaceFile declares a pnpm workspace.
const PnpmWorkspaceFile = "pnpm-workspace.yaml"

// maxRootSearch bounds the upward walk looking for a workspace root.
const maxRootSearch = 8

// Loader reads manifests; *manifest.Cache satisfies it.
type Loader interface {
	Load(dir string) (*manifest.Manifest, error)
}

type directLoader struct{}

func (directLoader) Load(dir string) (*manifest.Manifest, error) { return manifest.Load(dir) }

// Architecture locates the workspace root above currentDir and classifies
// the topology. Without a workspace the root is currentDir and the
// architecture is single.
func Architecture(currentDir string, loader Loader) (string, project.Architecture) {
	if loader == nil {
		loader = directLoader{}
	}

	dir := currentDir
	for i := 0; i < maxRootSearch; i++ {
		if fileExists(filepath.Join(dir, PnpmWorkspaceFile)) {
			return dir, project.ArchPnpmWorkspace
		}
		if m, err := loader.Load(dir); err == nil {
			if _, ok := m.Workspaces(); ok {
				return dir, project.ArchYarnWorkspace
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return currentDir, project.ArchSingle
}

type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

// WorkspaceGlobs returns the member globs declared at root for arch.
func WorkspaceGlobs(root string, arch project.Architecture, loader Loader) []string {
	if loader == nil {
		loader = directLoader{}
	}

	switch arch {
	case project.ArchPnpmWorkspace:
		data, err := os.ReadFile(filepath.Join(root, PnpmWorkspaceFile))
		if err != nil {
			return nil
		}
		var ws pnpmWorkspace
		if err := yaml.Unmarshal(data, &ws); err != nil {
			return nil
		}
		return ws.Packages
	case project.ArchYarnWorkspace:
		m, err := loader.Load(root)
		if err != nil {
			return nil
		}
		globs, _ := m.Workspaces()
		return globs
	}
	return nil
}

// Workspace enumerates the members of the workspace rooted at root and
// locates currentDir among them. It returns nil for single-package
// projects.
func Workspace(root, currentDir string, arch project.Architecture, loader Loader) *project.WorkspaceInfo {
	if arch == project.ArchSingle || arch == "" {
		return nil
	}
	if loader == nil {
		loader = directLoader{}
	}

	info := &project.WorkspaceInfo{
		Type:            "yarn",
		CurrentLocation: project.LocationRoot,
	}
	if arch == project.ArchPnpmWorkspace {
		info.Type = "pnpm"
	}
	if m, err := loader.Load(root); err == nil {
		info.RootManifest = m
	}

	for _, rel := range expandMembers(root, WorkspaceGlobs(root, arch, loader)) {
		m, err := loader.Load(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		info.Packages = append(info.Packages, project.WorkspacePackage{
			Name:     m.Name(),
			Path:     rel,
			Manifest: m,
		})
	}

	if pkg := memberContaining(root, currentDir, info.Packages); pkg != nil {
		info.CurrentLocation = project.LocationPackage
		info.CurrentPackage = pkg
	}
	return info
}

// expandMembers resolves member globs to slash-relative directories that
// hold a package.json. Negated globs ("!pattern") exclude, and nothing
// under node_modules is ever a member.
func expandMembers(root string, globs []string) []string {
	var include, exclude []string
	for _, g := range globs {
		g = strings.TrimSpace(g)
		g = strings.TrimPrefix(g, "./")
		g = strings.TrimSuffix(g, "/")
		if g == "" {
			continue
		}
		if neg, ok := strings.CutPrefix(g, "!"); ok {
			exclude = append(exclude, strings.TrimPrefix(neg, "./"))
			continue
		}
		include = append(include, g)
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var members []string
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern+"/"+manifest.FileName)
		if err != nil {
			continue
		}
		for _, match := range matches {
			dir := path.Dir(match)
			if dir == "." || seen[dir] || isNodeModules(dir) || excluded(dir, exclude) {
				continue
			}
			seen[dir] = true
			members = append(members, dir)
		}
	}

	slices.Sort(members)
	return members
}

func isNodeModules(rel string) bool {
	return slices.Contains(strings.Split(rel, "/"), "node_modules")
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// memberContaining returns the deepest member whose directory contains
// currentDir, so nested members resolve to a single package.
func memberContaining(root, currentDir string, members []project.WorkspacePackage) *project.WorkspacePackage {
	rel, err := filepath.Rel(root, currentDir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	rel = filepath.ToSlash(rel)

	var best *project.WorkspacePackage
	for i := range members {
		p := members[i].Path
		if rel != p && !strings.HasPrefix(rel, p+"/") {
			continue
		}
		if best == nil || len(p) > len(best.Path) {
			best = &members[i]
		}
	}
	return best
}
