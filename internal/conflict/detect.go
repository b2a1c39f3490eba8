package conflict

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/launchcg/testup/internal/analyzer"
	"github.com/launchcg/testup/internal/config"
	"github.com/launchcg/testup/internal/detect"
	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
)

// viteMarkers are the tokens reported for an existing Vite/Vitest config.
var viteMarkers = []string{"test:", "vitest", "environment:", "globals:", "setupFiles:", "plugins:"}

var environmentValue = regexp.MustCompile(`environment\s*:\s*['"]([\w-]+)['"]`)

// mockTokens mark a setup file that already installs mocks.
var mockTokens = []string{"vi.mock(", "jest.mock(", "vi.fn(", "jest.fn(", "vi.stubGlobal(", "mockImplementation"}

// Detector finds conflicts for a set of target files.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a Detector. A nil logger uses slog.Default.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger}
}

// DetectConflicts compares each existing target file with the desired
// content for it and checks the declared framework version against the
// detected stack. Targets are absolute or relative to sig.CurrentDir;
// desired is keyed by the same strings. Missing targets never conflict.
func (d *Detector) DetectConflicts(sig *project.Signature, targetFiles []string, desired map[string]string) []ConfigConflict {
	var conflicts []ConfigConflict

	for _, name := range targetFiles {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(sig.CurrentDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				d.logger.Debug("Skipping unreadable target", slog.String("path", path), slog.Any("error", err))
			}
			continue
		}

		t := target{
			path:     path,
			rel:      relPath(sig, path),
			existing: string(data),
			desired:  desired[targetKey(name, desired, sig, path)],
		}

		var found []ConfigConflict
		switch KindOf(path) {
		case KindViteConfig:
			found = viteConflicts(t)
		case KindSetupFile:
			found = setupConflicts(t)
		case KindPackageJSON:
			found = packageConflicts(t)
		default:
			found = opaqueConflicts(t)
		}
		conflicts = append(conflicts, found...)
	}

	conflicts = append(conflicts, frameworkConflicts(sig)...)

	d.logger.Debug("Conflicts detected", slog.Int("count", len(conflicts)))
	return conflicts
}

type target struct {
	path     string
	rel      string
	existing string
	desired  string
}

func (t target) id(kind string, key ...string) string {
	return strings.Join(append([]string{kind, t.rel}, key...), ":")
}

func targetKey(original string, desired map[string]string, sig *project.Signature, path string) string {
	if _, ok := desired[original]; ok {
		return original
	}
	if _, ok := desired[path]; ok {
		return path
	}
	return relPath(sig, path)
}

func relPath(sig *project.Signature, path string) string {
	rel, err := filepath.Rel(sig.CurrentDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func viteConflicts(t target) []ConfigConflict {
	var markers []string
	for _, m := range viteMarkers {
		if strings.Contains(t.existing, m) {
			markers = append(markers, m)
		}
	}

	var out []ConfigConflict
	if detect.HasTestSection(t.existing) {
		out = append(out, ConfigConflict{
			ID:                  t.id(KindViteConfig, "test"),
			Type:                TypeConfigExists,
			Severity:            SeverityWarning,
			FilePath:            t.path,
			Description:         fmt.Sprintf("%s already has a test section", t.rel),
			ExistingValue:       strings.Join(markers, ", "),
			NewValue:            "test section",
			Desired:             t.desired,
			SuggestedStrategy:   config.StrategyMerge,
			AvailableStrategies: fileStrategies,
		})
	} else if t.existing != t.desired {
		out = append(out, ConfigConflict{
			ID:                  t.id(KindViteConfig, "test"),
			Type:                TypeConfigExists,
			Severity:            SeverityInfo,
			FilePath:            t.path,
			Description:         fmt.Sprintf("%s exists without a test section; merge adds one", t.rel),
			ExistingValue:       strings.Join(markers, ", "),
			NewValue:            "test section",
			Desired:             t.desired,
			SuggestedStrategy:   config.StrategyMerge,
			AvailableStrategies: fileStrategies,
		})
	}

	existingEnv := environmentValue.FindStringSubmatch(t.existing)
	desiredEnv := environmentValue.FindStringSubmatch(t.desired)
	if existingEnv != nil && desiredEnv != nil && existingEnv[1] != desiredEnv[1] {
		out = append(out, ConfigConflict{
			ID:                  t.id(KindViteConfig, "environment"),
			Type:                TypeConfigExists,
			Severity:            SeverityWarning,
			FilePath:            t.path,
			Description:         fmt.Sprintf("test environment in %s is %q, generated config uses %q", t.rel, existingEnv[1], desiredEnv[1]),
			ExistingValue:       existingEnv[1],
			NewValue:            desiredEnv[1],
			Desired:             t.desired,
			SuggestedStrategy:   config.StrategySkip,
			AvailableStrategies: fileStrategies,
		})
	}

	if slices.Contains(markers, "plugins:") {
		out = append(out, ConfigConflict{
			ID:                  t.id(KindViteConfig, "plugins"),
			Type:                TypeConfigExists,
			Severity:            SeverityInfo,
			FilePath:            t.path,
			Description:         fmt.Sprintf("%s declares plugins; the plugin list is kept and must be merged by hand if the generated one differs", t.rel),
			ExistingValue:       "plugins",
			Desired:             t.desired,
			SuggestedStrategy:   config.StrategyMerge,
			AvailableStrategies: fileStrategies,
		})
	}
	return out
}

func setupConflicts(t target) []ConfigConflict {
	var out []ConfigConflict

	if strings.Contains(t.existing, "@testing-library") {
		out = append(out, ConfigConflict{
			ID:                  t.id(KindSetupFile, "testing-library"),
			Type:                TypeSetupConflict,
			Severity:            SeverityWarning,
			FilePath:            t.path,
			Description:         fmt.Sprintf("%s already imports @testing-library", t.rel),
			ExistingValue:       "@testing-library",
			Desired:             t.desired,
			SuggestedStrategy:   config.StrategyMerge,
			AvailableStrategies: fileStrategies,
		})
	}
	if strings.Contains(t.existing, "cleanup") || strings.Contains(t.existing, "afterEach") {
		out = append(out, ConfigConflict{
			ID:                  t.id(KindSetupFile, "cleanup"),
			Type:                TypeSetupConflict,
			Severity:            SeverityInfo,
			FilePath:            t.path,
			Description:         fmt.Sprintf("%s already registers cleanup hooks", t.rel),
			ExistingValue:       "cleanup",
			Desired:             t.desired,
			SuggestedStrategy:   config.StrategyMerge,
			AvailableStrategies: fileStrategies,
		})
	}
	for _, token := range mockTokens {
		if strings.Contains(t.existing, token) {
			out = append(out, ConfigConflict{
				ID:                  t.id(KindSetupFile, "mocks"),
				Type:                TypeSetupConflict,
				Severity:            SeverityInfo,
				FilePath:            t.path,
				Description:         fmt.Sprintf("%s defines mocks", t.rel),
				ExistingValue:       token,
				Desired:             t.desired,
				SuggestedStrategy:   config.StrategyMerge,
				AvailableStrategies: fileStrategies,
			})
			break
		}
	}

	if len(out) == 0 && t.existing != t.desired {
		out = append(out, ConfigConflict{
			ID:                  t.id(KindSetupFile),
			Type:                TypeConfigExists,
			Severity:            SeverityInfo,
			FilePath:            t.path,
			Description:         fmt.Sprintf("%s exists; merge adds missing imports", t.rel),
			Desired:             t.desired,
			SuggestedStrategy:   config.StrategyMerge,
			AvailableStrategies: fileStrategies,
		})
	}
	return out
}

// packageSections are the manifest sections a generated fragment may
// contribute to.
var packageSections = []struct {
	name string
	typ  Type
	key  string
}{
	{"scripts", TypeConfigExists, "script"},
	{manifest.SectionDevDependencies, TypeDependencyMismatch, "devDependency"},
}

func packageConflicts(t target) []ConfigConflict {
	m, err := manifest.Parse(t.path, []byte(t.existing))
	if err != nil {
		return []ConfigConflict{{
			ID:                  t.id(KindPackageJSON),
			Type:                TypeConfigExists,
			Severity:            SeverityError,
			FilePath:            t.path,
			Description:         fmt.Sprintf("%s is not valid JSON: %v", t.rel, err),
			Desired:             t.desired,
			SuggestedStrategy:   config.StrategyManual,
			AvailableStrategies: manualOnly,
		}}
	}

	fragment, err := manifest.ParseObject([]byte(t.desired))
	if err != nil {
		return nil
	}

	var out []ConfigConflict
	additions := 0
	for _, section := range packageSections {
		entries, ok := fragment.Object(section.name)
		if !ok {
			continue
		}
		existing := m.Section(section.name)
		for _, name := range entries.Keys() {
			var want string
			if !entries.Get(name, &want) {
				continue
			}
			have, ok := existing[name]
			if !ok && section.name == manifest.SectionDevDependencies {
				have, ok = m.DeclaredVersion(name)
			}
			if !ok {
				additions++
				continue
			}
			if have == want {
				continue
			}
			out = append(out, ConfigConflict{
				ID:                  t.id(KindPackageJSON, section.key, name),
				Type:                section.typ,
				Severity:            SeverityWarning,
				FilePath:            t.path,
				Description:         fmt.Sprintf("%s %q is %q, generated configuration wants %q", section.key, name, have, want),
				ExistingValue:       have,
				NewValue:            want,
				Desired:             t.desired,
				SuggestedStrategy:   config.StrategyMerge,
				AvailableStrategies: manifestStrategies,
			})
		}
	}

	if len(out) == 0 && additions > 0 {
		out = append(out, ConfigConflict{
			ID:                  t.id(KindPackageJSON),
			Type:                TypeConfigExists,
			Severity:            SeverityInfo,
			FilePath:            t.path,
			Description:         fmt.Sprintf("%d entries to add to %s", additions, t.rel),
			Desired:             t.desired,
			SuggestedStrategy:   config.StrategyMerge,
			AvailableStrategies: manifestStrategies,
		})
	}
	return out
}

func opaqueConflicts(t target) []ConfigConflict {
	if t.desired == "" || t.existing == t.desired {
		return nil
	}
	return []ConfigConflict{{
		ID:                  t.id(KindFile),
		Type:                TypeConfigExists,
		Severity:            SeverityInfo,
		FilePath:            t.path,
		Description:         fmt.Sprintf("%s exists with different content", t.rel),
		Desired:             t.desired,
		SuggestedStrategy:   config.StrategyBackup,
		AvailableStrategies: opaqueStrategies,
	}}
}

func frameworkConflicts(sig *project.Signature) []ConfigConflict {
	declared := sig.FrameworkVersion()
	if declared == "" {
		return nil
	}
	ok, reason := analyzer.FrameworkCompatible(sig.TechStack, declared)
	if ok {
		return nil
	}

	path := filepath.Join(sig.CurrentDir, manifest.FileName)
	return []ConfigConflict{{
		ID:                  KindFramework + ":" + sig.TechStack.Framework(),
		Type:                TypeVersionIncompatible,
		Severity:            SeverityError,
		FilePath:            path,
		Description:         reason,
		ExistingValue:       declared,
		SuggestedStrategy:   config.StrategyManual,
		AvailableStrategies: manualOnly,
	}}
}
