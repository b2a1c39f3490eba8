package detect

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
)

// testFrameworkPackages maps dependency names to framework names.
var testFrameworkPackages = map[string]string{
	"vitest":           "vitest",
	"jest":             "jest",
	"mocha":            "mocha",
	"jasmine":          "jasmine",
	"karma":            "karma",
	"ava":              "ava",
	"cypress":          "cypress",
	"@playwright/test": "playwright",
}

// configPatterns classify test configuration files by base name.
var configPatterns = []struct {
	glob      string
	typ       project.ConfigType
	framework string
}{
	{"vitest.config.*", project.ConfigVitest, "vitest"},
	{"vitest.workspace.*", project.ConfigVitest, "vitest"},
	{"jest.config.*", project.ConfigJest, "jest"},
	{"karma.conf.*", project.ConfigCustom, "karma"},
	{".mocharc*", project.ConfigCustom, "mocha"},
	{"cypress.config.*", project.ConfigCustom, "cypress"},
	{"playwright.config.*", project.ConfigCustom, "playwright"},
}

// viteConfigGlob matches vite configs, which count as vitest configs only
// when they carry a test section.
const viteConfigGlob = "vite.config.*"

// inlineBlocks are manifest fields holding test runner configuration.
var inlineBlocks = []struct {
	field     string
	typ       project.ConfigType
	framework string
}{
	{"jest", project.ConfigJest, "jest"},
	{"mocha", project.ConfigCustom, "mocha"},
	{"ava", project.ConfigCustom, "ava"},
}

// testFilePatterns match test sources by slash-relative path.
var testFilePatterns = []string{
	"**/*.{test,spec}.{js,jsx,ts,tsx,mjs,cjs,mts,cts}",
	"**/__tests__/**/*.{js,jsx,ts,tsx}",
}

// DefaultSkipDirs are never descended into when looking for test files.
var DefaultSkipDirs = []string{
	"node_modules",
	".git",
	"dist",
	"build",
	"coverage",
	".next",
	".nuxt",
	".cache",
}

const (
	maxWalkEntries = 10000
	maxTestFiles   = 50
)

// ExistingTests is what the existing-tests detector found.
type ExistingTests struct {
	Frameworks []string
	Configs    []project.ExistingConfig
	TestFiles  []string // slash-relative to the current directory
}

// Found reports whether any test setup exists.
func (e ExistingTests) Found() bool {
	return len(e.Frameworks) > 0 || len(e.Configs) > 0 || len(e.TestFiles) > 0
}

// Tests scans the current package (and the workspace root for config
// files) for an existing test setup.
func Tests(m *manifest.Manifest, currentDir, rootDir string) ExistingTests {
	var out ExistingTests
	frameworks := make(map[string]bool)

	if m != nil {
		for dep := range m.AllDependencies() {
			if fw, ok := testFrameworkPackages[dep]; ok {
				frameworks[fw] = true
			}
		}

		for _, block := range inlineBlocks {
			var content map[string]any
			if !m.Fields().Get(block.field, &content) {
				continue
			}
			frameworks[block.framework] = true
			out.Configs = append(out.Configs, project.ExistingConfig{
				Type:     block.typ,
				FilePath: m.Path() + "#" + block.field,
				Content:  content,
			})
		}
	}

	for _, dir := range uniqueDirs(currentDir, rootDir) {
		for _, cfg := range configFiles(dir) {
			out.Configs = append(out.Configs, cfg.config)
			frameworks[cfg.framework] = true
		}
	}

	if currentDir != "" {
		out.TestFiles = testFiles(currentDir)
	}

	for fw := range frameworks {
		out.Frameworks = append(out.Frameworks, fw)
	}
	slices.Sort(out.Frameworks)
	return out
}

type foundConfig struct {
	config    project.ExistingConfig
	framework string
}

func configFiles(dir string) []foundConfig {
	var found []foundConfig

	for _, p := range configPatterns {
		matches, _ := filepath.Glob(filepath.Join(dir, p.glob))
		for _, path := range matches {
			content, ok := readHead(path)
			if !ok {
				continue
			}
			found = append(found, foundConfig{
				config:    project.ExistingConfig{Type: p.typ, FilePath: path, Content: content},
				framework: p.framework,
			})
		}
	}

	matches, _ := filepath.Glob(filepath.Join(dir, viteConfigGlob))
	for _, path := range matches {
		content, ok := readHead(path)
		if !ok || !HasTestSection(content) {
			continue
		}
		found = append(found, foundConfig{
			config:    project.ExistingConfig{Type: project.ConfigVitest, FilePath: path, Content: content},
			framework: "vitest",
		})
	}
	return found
}

// HasTestSection reports whether a vite/vitest config declares a test
// block.
func HasTestSection(content string) bool {
	return strings.Contains(content, "test:") || strings.Contains(content, "test :")
}

// testFiles walks dir for test sources, bounded by maxWalkEntries visited
// and maxTestFiles found.
func testFiles(dir string) []string {
	var files []string
	visited := 0

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}

		visited++
		if visited > maxWalkEntries || len(files) >= maxTestFiles {
			return fs.SkipAll
		}

		if d.IsDir() {
			if path != dir && slices.Contains(DefaultSkipDirs, d.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range testFilePatterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				files = append(files, rel)
				break
			}
		}
		return nil
	})

	return files
}
