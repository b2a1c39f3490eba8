// Package conflict finds collisions between generated test artifacts and
// files already in the project, and resolves them with a chosen strategy.
//
// Conflicts are data. Detection never fails; resolution reports problems
// in its Result rather than returning errors.
package conflict

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/launchcg/testup/internal/config"
	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
)

// Type classifies a conflict.
type Type string

const (
	TypeConfigExists        Type = "config-exists"
	TypeSetupConflict       Type = "setup-conflict"
	TypeDependencyMismatch  Type = "dependency-mismatch"
	TypeVersionIncompatible Type = "version-incompatible"
)

// Severity of a conflict.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// File kinds used as the first segment of conflict ids.
const (
	KindViteConfig  = "vite-config"
	KindSetupFile   = "setup-file"
	KindPackageJSON = "package-json"
	KindFile        = "file"
	KindFramework   = "framework"
)

var (
	fileStrategies     = []string{config.StrategyMerge, config.StrategyReplace, config.StrategyBackup, config.StrategySkip, config.StrategyManual}
	opaqueStrategies   = []string{config.StrategyReplace, config.StrategyBackup, config.StrategySkip, config.StrategyManual}
	manifestStrategies = []string{config.StrategyMerge, config.StrategySkip, config.StrategyManual}
	manualOnly         = []string{config.StrategyManual}
)

// ConfigConflict is one collision between a desired artifact and the
// existing project state.
type ConfigConflict struct {
	// ID is stable across runs: <kind>:<relative path>[:<key>].
	ID       string
	Type     Type
	Severity Severity

	// FilePath is the absolute path of the existing file.
	FilePath    string
	Description string

	// ExistingValue and NewValue are short display values.
	ExistingValue string
	NewValue      string

	// Desired is the full generated content for FilePath.
	Desired string

	SuggestedStrategy   string
	AvailableStrategies []string
}

// Allows reports whether strategy may be used on the conflict. Manual is
// always allowed.
func (c ConfigConflict) Allows(strategy string) bool {
	return strategy == config.StrategyManual || slices.Contains(c.AvailableStrategies, strategy)
}

// Kind returns the file kind encoded in the id.
func (c ConfigConflict) Kind() string {
	kind, _, _ := strings.Cut(c.ID, ":")
	return kind
}

// groupKey is the id without its trailing key segment.
func (c ConfigConflict) groupKey() string {
	parts := strings.SplitN(c.ID, ":", 3)
	if len(parts) < 2 {
		return c.ID
	}
	return parts[0] + ":" + parts[1]
}

// Group is the set of conflicts concerning one target.
type Group struct {
	Key       string
	FilePath  string
	Conflicts []ConfigConflict
}

// Primary is the conflict a resolution is applied through: the most
// severe one, the first on ties.
func (g Group) Primary() ConfigConflict {
	primary := g.Conflicts[0]
	for _, c := range g.Conflicts[1:] {
		if c.Severity.rank() > primary.Severity.rank() {
			primary = c
		}
	}
	return primary
}

// Severity is the highest severity in the group.
func (g Group) Severity() Severity {
	return g.Primary().Severity
}

// Suggested is the strategy auto mode picks for the group. Any conflict
// that only allows manual resolution makes the whole group manual.
func (g Group) Suggested() string {
	for _, c := range g.Conflicts {
		if slices.Equal(c.AvailableStrategies, manualOnly) {
			return config.StrategyManual
		}
	}
	return g.Primary().SuggestedStrategy
}

// GroupByTarget groups conflicts by target, keeping first-seen order.
func GroupByTarget(conflicts []ConfigConflict) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, c := range conflicts {
		key := c.groupKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key, FilePath: c.FilePath})
		}
		groups[i].Conflicts = append(groups[i].Conflicts, c)
	}
	return groups
}

// Annotate returns copies of configs with the ids of the conflicts
// touching each config file filled in. Inline manifest blocks
// ("package.json#jest") match conflicts on the manifest itself.
func Annotate(configs []project.ExistingConfig, conflicts []ConfigConflict) []project.ExistingConfig {
	out := make([]project.ExistingConfig, len(configs))
	for i, cfg := range configs {
		cfg.Conflicts = nil
		file, _, _ := strings.Cut(cfg.FilePath, "#")
		for _, c := range conflicts {
			if c.FilePath != "" && filepath.Clean(c.FilePath) == filepath.Clean(file) {
				cfg.Conflicts = append(cfg.Conflicts, c.ID)
			}
		}
		out[i] = cfg
	}
	return out
}

// setupFileGlob matches test setup file names.
const setupFileGlob = "{setupTests,setup-tests,vitest.setup,test-setup,setup}.{js,jsx,ts,tsx,mjs,mts}"

// viteConfigGlob matches Vite and Vitest config file names.
const viteConfigGlob = "{vite,vitest}.config.{js,ts,mjs,mts,cjs,cts}"

// KindOf classifies a target file by name.
func KindOf(path string) string {
	base := filepath.Base(path)
	if base == manifest.FileName {
		return KindPackageJSON
	}
	if ok, _ := doublestar.Match(viteConfigGlob, base); ok {
		return KindViteConfig
	}
	if ok, _ := doublestar.Match(setupFileGlob, base); ok {
		return KindSetupFile
	}
	return KindFile
}
