package conflict

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchcg/testup/internal/backup"
	"github.com/launchcg/testup/internal/config"
	"github.com/launchcg/testup/internal/project"
)

const desiredViteConfig = `import { defineConfig } from 'vitest/config'
import react from '@vitejs/plugin-react'

export default defineConfig({
  plugins: [react()],
  test: {
    globals: true,
    environment: 'jsdom',
    setupFiles: './src/setupTests.ts',
  },
})
`

const existingViteConfig = `import { defineConfig } from 'vite'

export default defineConfig({
  build: {
    outDir: 'dist',
  },
})
`

const desiredSetup = `import '@testing-library/jest-dom/vitest'
import { cleanup } from '@testing-library/react'
import { afterEach } from 'vitest'

afterEach(() => {
  cleanup()
})
`

const desiredFragment = `{
  "scripts": {"test": "vitest", "test:ui": "vitest --ui"},
  "devDependencies": {"vitest": "^2.1.0", "jsdom": "^25.0.0"}
}`

func newSignature(dir string, stack project.Stack, deps map[string]string) *project.Signature {
	return project.NewSignature(project.Signature{
		RootDir:      dir,
		CurrentDir:   dir,
		TechStack:    stack,
		Architecture: project.ArchSingle,
	}, project.Collections{DependencyVersions: deps})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func ids(conflicts []ConfigConflict) []string {
	out := make([]string, len(conflicts))
	for i, c := range conflicts {
		out[i] = c.ID
	}
	return out
}

func TestDetectConflicts_MissingTargets(t *testing.T) {
	dir := t.TempDir()
	sig := newSignature(dir, project.StackReact, map[string]string{"react": "^18.2.0"})

	conflicts := NewDetector(nil).DetectConflicts(sig,
		[]string{"vite.config.ts", "src/setupTests.ts"},
		map[string]string{"vite.config.ts": desiredViteConfig, "src/setupTests.ts": desiredSetup})
	assert.Empty(t, conflicts)
}

func TestDetectConflicts_ViteConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vitest.config.ts", `import { defineConfig } from 'vitest/config'
export default defineConfig({
  plugins: [vue()],
  test: {
    environment: 'happy-dom',
  },
})
`)
	sig := newSignature(dir, project.StackVue3, nil)

	conflicts := NewDetector(nil).DetectConflicts(sig,
		[]string{"vitest.config.ts"},
		map[string]string{"vitest.config.ts": desiredViteConfig})

	require.Equal(t, []string{
		"vite-config:vitest.config.ts:test",
		"vite-config:vitest.config.ts:environment",
		"vite-config:vitest.config.ts:plugins",
	}, ids(conflicts))

	test := conflicts[0]
	assert.Equal(t, TypeConfigExists, test.Type)
	assert.Equal(t, SeverityWarning, test.Severity)
	assert.Equal(t, config.StrategyMerge, test.SuggestedStrategy)
	assert.Equal(t, filepath.Join(dir, "vitest.config.ts"), test.FilePath)
	assert.Contains(t, test.ExistingValue, "vitest")
	assert.Equal(t, desiredViteConfig, test.Desired)

	env := conflicts[1]
	assert.Equal(t, "happy-dom", env.ExistingValue)
	assert.Equal(t, "jsdom", env.NewValue)

	assert.Equal(t, SeverityInfo, conflicts[2].Severity)
}

func TestDetectConflicts_ViteConfigWithoutTestSection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vite.config.ts", existingViteConfig)
	sig := newSignature(dir, project.StackReact, nil)

	conflicts := NewDetector(nil).DetectConflicts(sig,
		[]string{"vite.config.ts"},
		map[string]string{"vite.config.ts": desiredViteConfig})
	require.Len(t, conflicts, 1)
	assert.Equal(t, SeverityInfo, conflicts[0].Severity)
	assert.Equal(t, config.StrategyMerge, conflicts[0].SuggestedStrategy)
}

func TestDetectConflicts_SetupFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/setupTests.ts", `import '@testing-library/jest-dom'
afterEach(() => vi.mock('./api'))
`)
	sig := newSignature(dir, project.StackReact, nil)

	conflicts := NewDetector(nil).DetectConflicts(sig,
		[]string{"src/setupTests.ts"},
		map[string]string{"src/setupTests.ts": desiredSetup})

	assert.Equal(t, []string{
		"setup-file:src/setupTests.ts:testing-library",
		"setup-file:src/setupTests.ts:cleanup",
		"setup-file:src/setupTests.ts:mocks",
	}, ids(conflicts))
	assert.Equal(t, TypeSetupConflict, conflicts[0].Type)
	assert.Equal(t, SeverityWarning, conflicts[0].Severity)
	assert.Equal(t, SeverityInfo, conflicts[1].Severity)
	assert.Equal(t, SeverityInfo, conflicts[2].Severity)
}

func TestDetectConflicts_PackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
  "name": "app",
  "scripts": {"test": "jest", "test:ui": "vitest --ui"},
  "devDependencies": {"vitest": "^0.34.0"},
  "dependencies": {"jsdom": "^25.0.0"}
}`)
	sig := newSignature(dir, project.StackReact, nil)

	conflicts := NewDetector(nil).DetectConflicts(sig,
		[]string{"package.json"},
		map[string]string{"package.json": desiredFragment})

	require.Equal(t, []string{
		"package-json:package.json:script:test",
		"package-json:package.json:devDependency:vitest",
	}, ids(conflicts))
	assert.Equal(t, TypeConfigExists, conflicts[0].Type)
	assert.Equal(t, "jest", conflicts[0].ExistingValue)
	assert.Equal(t, "vitest", conflicts[0].NewValue)
	assert.Equal(t, TypeDependencyMismatch, conflicts[1].Type)
	assert.Equal(t, SeverityWarning, conflicts[1].Severity)
	assert.NotContains(t, conflicts[1].AvailableStrategies, config.StrategyReplace)
}

func TestDetectConflicts_PackageJSONParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "app",`)
	sig := newSignature(dir, project.StackReact, nil)

	conflicts := NewDetector(nil).DetectConflicts(sig,
		[]string{"package.json"},
		map[string]string{"package.json": desiredFragment})

	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, "package-json:package.json", c.ID)
	assert.Equal(t, SeverityError, c.Severity)
	assert.Equal(t, config.StrategyManual, c.SuggestedStrategy)
	assert.Equal(t, []string{config.StrategyManual}, c.AvailableStrategies)
}

func TestDetectConflicts_FrameworkVersion(t *testing.T) {
	tests := []struct {
		name  string
		stack project.Stack
		deps  map[string]string
		want  string
	}{
		{"old react", project.StackReact, map[string]string{"react": "^15.6.0"}, "framework:react"},
		{"vue major mismatch", project.StackVue3, map[string]string{"vue": "^2.7.0"}, "framework:vue"},
		{"supported react", project.StackReact, map[string]string{"react": "^18.2.0"}, ""},
		{"undeclared", project.StackReact, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := newSignature(t.TempDir(), tt.stack, tt.deps)
			conflicts := NewDetector(nil).DetectConflicts(sig, nil, nil)
			if tt.want == "" {
				assert.Empty(t, conflicts)
				return
			}
			require.Len(t, conflicts, 1)
			assert.Equal(t, tt.want, conflicts[0].ID)
			assert.Equal(t, TypeVersionIncompatible, conflicts[0].Type)
			assert.Equal(t, SeverityError, conflicts[0].Severity)
			assert.Equal(t, []string{config.StrategyManual}, conflicts[0].AvailableStrategies)
		})
	}
}

func TestDetectConflicts_OpaqueFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".testing-rules.md", "# house rules\n")
	sig := newSignature(dir, project.StackReact, nil)

	conflicts := NewDetector(nil).DetectConflicts(sig,
		[]string{".testing-rules.md"},
		map[string]string{".testing-rules.md": "# generated rules\n"})
	require.Len(t, conflicts, 1)
	assert.Equal(t, "file:.testing-rules.md", conflicts[0].ID)
	assert.Equal(t, config.StrategyBackup, conflicts[0].SuggestedStrategy)
	assert.NotContains(t, conflicts[0].AvailableStrategies, config.StrategyMerge)
}

func detectOne(t *testing.T, dir, name, desired string) ConfigConflict {
	t.Helper()
	sig := newSignature(dir, project.StackReact, nil)
	conflicts := NewDetector(nil).DetectConflicts(sig, []string{name}, map[string]string{name: desired})
	require.NotEmpty(t, conflicts)
	return conflicts[0]
}

func TestResolve_SkipLeavesBytesIdentical(t *testing.T) {
	dir := t.TempDir()
	original := "export default defineConfig({ test: {} })\r\n// trailing\n"
	path := writeFile(t, dir, "vite.config.ts", original)
	c := detectOne(t, dir, "vite.config.ts", desiredViteConfig)

	res := NewResolver(nil).Resolve(context.Background(), c, Options{Strategy: config.StrategySkip, BackupOriginal: true})
	assert.True(t, res.Resolved)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.BackupPath)
	assert.Equal(t, original, readFile(t, path))
}

func TestResolve_MergeViteConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vite.config.ts", existingViteConfig)
	c := detectOne(t, dir, "vite.config.ts", desiredViteConfig)
	r := NewResolver(nil)

	res := r.Resolve(context.Background(), c, Options{Strategy: config.StrategyAuto})
	require.True(t, res.Resolved, res.Errors)
	assert.Equal(t, config.StrategyMerge, res.Strategy)

	merged := readFile(t, path)
	assert.Contains(t, merged, "  build: {\n    outDir: 'dist',\n  },\n")
	assert.Contains(t, merged, "  test: {\n    globals: true,\n    environment: 'jsdom',\n    setupFiles: './src/setupTests.ts',\n  },\n")
	assert.True(t, strings.HasPrefix(merged, "import { defineConfig } from 'vite'\n"))

	again := r.Resolve(context.Background(), c, Options{Strategy: config.StrategyMerge})
	assert.True(t, again.Resolved)
	assert.Empty(t, again.Errors)
	assert.Contains(t, again.Changes[0], "already present")
	assert.Equal(t, merged, readFile(t, path))
}

func TestResolve_MergeWithBackup(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vite.config.ts", existingViteConfig)
	c := detectOne(t, dir, "vite.config.ts", desiredViteConfig)

	res := NewResolver(nil).Resolve(context.Background(), c, Options{Strategy: config.StrategyMerge, BackupOriginal: true})
	require.True(t, res.Resolved)
	require.NotEmpty(t, res.BackupPath)
	assert.True(t, strings.HasPrefix(res.BackupPath, path+backup.Suffix))
	assert.Equal(t, existingViteConfig, readFile(t, res.BackupPath))
}

func TestResolve_ManualNeverMutates(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vite.config.ts", existingViteConfig)
	c := detectOne(t, dir, "vite.config.ts", desiredViteConfig)

	res := NewResolver(nil).Resolve(context.Background(), c, Options{Strategy: config.StrategyManual})
	assert.False(t, res.Resolved)
	assert.NotEmpty(t, res.Errors)
	assert.Equal(t, existingViteConfig, readFile(t, path))
}

func TestResolve_RefusesUnavailableStrategy(t *testing.T) {
	dir := t.TempDir()
	original := `{"name": "app",`
	path := writeFile(t, dir, "package.json", original)
	c := detectOne(t, dir, "package.json", desiredFragment)

	res := NewResolver(nil).Resolve(context.Background(), c, Options{Strategy: config.StrategyReplace})
	assert.False(t, res.Resolved)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "not available")
	assert.Equal(t, original, readFile(t, path))

	auto := NewResolver(nil).Resolve(context.Background(), c, Options{})
	assert.Equal(t, config.StrategyManual, auto.Strategy)
	assert.False(t, auto.Resolved)
}

func TestResolve_BackupStrategy(t *testing.T) {
	dir := t.TempDir()
	original := "// Copyright Shop Inc.\n// Internal\nexport default {}\n"
	path := writeFile(t, dir, "vite.config.ts", original)
	c := detectOne(t, dir, "vite.config.ts", desiredViteConfig)
	r := NewResolver(nil)

	res := r.Resolve(context.Background(), c, Options{Strategy: config.StrategyBackup, PreserveComments: true})
	require.True(t, res.Resolved)
	require.NotEmpty(t, res.BackupPath)
	assert.Equal(t, original, readFile(t, res.BackupPath))

	replaced := readFile(t, path)
	assert.Equal(t, "// Copyright Shop Inc.\n// Internal\n"+desiredViteConfig, replaced)

	again := r.Resolve(context.Background(), c, Options{Strategy: config.StrategyBackup, PreserveComments: true})
	assert.True(t, again.Resolved)
	assert.Equal(t, replaced, readFile(t, path))
}

func TestResolve_ReplaceWithoutBackup(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vite.config.ts", existingViteConfig)
	c := detectOne(t, dir, "vite.config.ts", desiredViteConfig)

	res := NewResolver(nil).Resolve(context.Background(), c, Options{Strategy: config.StrategyReplace})
	require.True(t, res.Resolved)
	assert.Empty(t, res.BackupPath)
	assert.Equal(t, desiredViteConfig, readFile(t, path))
}

func TestResolve_ReplaceWithoutDesiredContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vite.config.ts", existingViteConfig)
	c := detectOne(t, dir, "vite.config.ts", desiredViteConfig)
	c.Desired = ""

	for _, strategy := range []string{config.StrategyReplace, config.StrategyBackup} {
		res := NewResolver(nil).Resolve(context.Background(), c, Options{Strategy: strategy, BackupOriginal: true})
		assert.False(t, res.Resolved, strategy)
		require.Len(t, res.Errors, 1, strategy)
		assert.Contains(t, res.Errors[0], "no generated content", strategy)
		assert.Empty(t, res.BackupPath, strategy)
	}

	assert.Equal(t, existingViteConfig, readFile(t, path))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no backup written")
}

func TestResolve_MergeSetupFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "src/setupTests.ts", "import \"@testing-library/jest-dom/vitest\";\n\nglobalThis.fetch = vi.fn()\n")
	c := detectOne(t, dir, "src/setupTests.ts", desiredSetup)
	r := NewResolver(nil)

	res := r.Resolve(context.Background(), c, Options{Strategy: config.StrategyMerge})
	require.True(t, res.Resolved)
	assert.Equal(t, "import { cleanup } from '@testing-library/react'\nimport { afterEach } from 'vitest'\n"+
		"import \"@testing-library/jest-dom/vitest\";\n\nglobalThis.fetch = vi.fn()\n", readFile(t, path))

	again := r.Resolve(context.Background(), c, Options{Strategy: config.StrategyMerge})
	assert.True(t, again.Resolved)
	assert.Equal(t, []string{"required imports already present"}, again.Changes)
}

func TestResolve_MergePackageJSONKeepsUserScripts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package.json", "{\n    \"name\": \"app\",\n    \"scripts\": {\n        \"test\": \"jest\"\n    }\n}\n")
	c := detectOne(t, dir, "package.json", desiredFragment)
	assert.Equal(t, "package-json:package.json:script:test", c.ID)

	res := NewResolver(nil).Resolve(context.Background(), c, Options{})
	require.True(t, res.Resolved, res.Errors)

	got := readFile(t, path)
	assert.Contains(t, got, "\"test\": \"jest\"")
	assert.Contains(t, got, "\"test:ui\": \"vitest --ui\"")
	assert.Contains(t, got, "\"vitest\": \"^2.1.0\"")
	assert.Contains(t, got, "\n    \"scripts\": {\n        \"test\": \"jest\",\n")
}

func TestGroupByTarget(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vitest.config.ts", "export default defineConfig({\n  plugins: [],\n  test: { environment: 'node' },\n})\n")
	sig := newSignature(dir, project.StackVue3, map[string]string{"vue": "^2.7.0"})

	conflicts := NewDetector(nil).DetectConflicts(sig,
		[]string{"vitest.config.ts"},
		map[string]string{"vitest.config.ts": desiredViteConfig})
	groups := GroupByTarget(conflicts)

	require.Len(t, groups, 2)
	assert.Equal(t, "vite-config:vitest.config.ts", groups[0].Key)
	assert.Len(t, groups[0].Conflicts, 3)
	assert.Equal(t, SeverityWarning, groups[0].Severity())
	assert.Equal(t, config.StrategyMerge, groups[0].Suggested())

	assert.Equal(t, "framework:vue", groups[1].Key)
	assert.Equal(t, SeverityError, groups[1].Severity())
	assert.Equal(t, config.StrategyManual, groups[1].Suggested())
}

func TestAnnotate(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "vitest.config.ts")
	manifestPath := filepath.Join(dir, "package.json")
	configs := []project.ExistingConfig{
		{Type: project.ConfigVitest, FilePath: configPath},
		{Type: project.ConfigJest, FilePath: manifestPath + "#jest"},
		{Type: project.ConfigCustom, FilePath: filepath.Join(dir, ".mocharc.yml")},
	}
	conflicts := []ConfigConflict{
		{ID: "vite-config:vitest.config.ts:test", FilePath: configPath},
		{ID: "vite-config:vitest.config.ts:plugins", FilePath: configPath},
		{ID: "package-json:package.json:script:test", FilePath: manifestPath},
	}

	got := Annotate(configs, conflicts)
	assert.Equal(t, []string{"vite-config:vitest.config.ts:test", "vite-config:vitest.config.ts:plugins"}, got[0].Conflicts)
	assert.Equal(t, []string{"package-json:package.json:script:test"}, got[1].Conflicts)
	assert.Empty(t, got[2].Conflicts)
	assert.Nil(t, configs[0].Conflicts, "inputs are not modified")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindViteConfig, KindOf("/p/vite.config.mts"))
	assert.Equal(t, KindViteConfig, KindOf("vitest.config.js"))
	assert.Equal(t, KindSetupFile, KindOf("src/setupTests.ts"))
	assert.Equal(t, KindSetupFile, KindOf("vitest.setup.js"))
	assert.Equal(t, KindPackageJSON, KindOf("package.json"))
	assert.Equal(t, KindFile, KindOf("README.md"))
}
