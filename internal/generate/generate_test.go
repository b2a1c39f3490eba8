package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchcg/testup/internal/analyzer"
	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
)

func signature(dir string, stack project.Stack, ts bool) *project.Signature {
	return project.NewSignature(project.Signature{
		RootDir:      dir,
		CurrentDir:   dir,
		TechStack:    stack,
		IsTypeScript: ts,
	}, project.Collections{})
}

func byName(t *testing.T, artifacts []Artifact, name string) Artifact {
	t.Helper()
	for _, a := range artifacts {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("artifact %s not generated", name)
	return Artifact{}
}

func TestGenerate_React(t *testing.T) {
	sig := signature(t.TempDir(), project.StackReact, true)
	recs := analyzer.New(nil).Recommend(project.StackReact, "^18.2.0", true)

	artifacts, err := New(nil, nil).Generate(sig, recs)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	cfg := byName(t, artifacts, ArtifactVitestConfig)
	assert.Equal(t, "vitest.config.ts", cfg.Path)
	assert.Equal(t, `import { defineConfig } from 'vitest/config'
import react from '@vitejs/plugin-react'

export default defineConfig({
  plugins: [react()],
  test: {
    globals: true,
    environment: 'jsdom',
    setupFiles: './src/setupTests.ts',
  },
})
`, cfg.Content)

	setup := byName(t, artifacts, ArtifactSetup)
	assert.Equal(t, "src/setupTests.ts", setup.Path)
	assert.Contains(t, setup.Content, "from '@testing-library/react'")

	pkg := byName(t, artifacts, ArtifactPackageJSON)
	fragment, err := manifest.ParseObject([]byte(pkg.Content))
	require.NoError(t, err)
	scripts, ok := fragment.Object("scripts")
	require.True(t, ok)
	assert.Equal(t, []string{"test", "test:ui", "test:coverage"}, scripts.Keys())
	deps, ok := fragment.Object("devDependencies")
	require.True(t, ok)
	assert.Equal(t, "vitest", deps.Keys()[0])
	assert.True(t, deps.Has("@types/jsdom"))
}

func TestGenerate_VueStacks(t *testing.T) {
	tests := []struct {
		stack  project.Stack
		plugin string
	}{
		{project.StackVue2, "import vue from '@vitejs/plugin-vue2'\n"},
		{project.StackVue3, "import vue from '@vitejs/plugin-vue'\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.stack), func(t *testing.T) {
			artifacts, err := New(nil, nil).Generate(signature(t.TempDir(), tt.stack, false), nil)
			require.NoError(t, err)

			cfg := byName(t, artifacts, ArtifactVitestConfig)
			assert.Equal(t, "vitest.config.js", cfg.Path)
			assert.Contains(t, cfg.Content, tt.plugin)
			assert.Contains(t, cfg.Content, "plugins: [vue()],")
			assert.Contains(t, cfg.Content, "setupFiles: './src/setupTests.js',")

			setup := byName(t, artifacts, ArtifactSetup)
			assert.Contains(t, setup.Content, "from '@testing-library/vue'")
		})
	}
}

func TestPaths_ExistingConfig(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		ts       bool
		want     string
	}{
		{"none", nil, true, "vitest.config.ts"},
		{"none js", nil, false, "vitest.config.js"},
		{"vite config", []string{"vite.config.ts"}, true, "vite.config.ts"},
		{"vite mjs in ts project", []string{"vite.config.mjs"}, true, "vite.config.mjs"},
		{"vitest config wins", []string{"vite.config.ts", "vitest.config.mts"}, true, "vitest.config.mts"},
		{"ts before js", []string{"vite.config.js", "vite.config.ts"}, false, "vite.config.ts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, name := range tt.existing {
				require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("export default {}\n"), 0644))
			}
			paths := Paths(signature(dir, project.StackReact, tt.ts))
			assert.Equal(t, tt.want, paths[ArtifactVitestConfig])
		})
	}
}

func TestGenerate_TargetsExistingViteConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vite.config.ts"), []byte("export default {}\n"), 0644))

	artifacts, err := New(nil, nil).Generate(signature(dir, project.StackReact, true), nil)
	require.NoError(t, err)

	cfg := byName(t, artifacts, ArtifactVitestConfig)
	assert.Equal(t, "vite.config.ts", cfg.Path)
	assert.Contains(t, cfg.Content, "setupFiles: './src/setupTests.ts',")

	written, err := WriteMissing(dir, artifacts, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/setupTests.ts"}, written)
	assert.NoFileExists(t, filepath.Join(dir, "vitest.config.ts"))
}

func TestGenerate_Overrides(t *testing.T) {
	overrides := map[string]string{
		ArtifactSetup: "// {{ .team }} setup for {{ .Stack }}\n",
	}
	g := New(nil, overrides).WithVariables(map[string]string{"team": "payments"})

	artifacts, err := g.Generate(signature(t.TempDir(), project.StackVue3, true), nil)
	require.NoError(t, err)
	assert.Equal(t, "// payments setup for vue3\n", byName(t, artifacts, ArtifactSetup).Content)

	_, err = New(nil, map[string]string{ArtifactVitestConfig: "{{ .Stack"}).Generate(signature(t.TempDir(), project.StackReact, false), nil)
	assert.ErrorContains(t, err, "rendering vitest_config")
}

func TestTargets(t *testing.T) {
	artifacts := []Artifact{
		{Name: ArtifactVitestConfig, Path: "vitest.config.ts", Content: "a"},
		{Name: ArtifactSetup, Path: "src/setupTests.ts", Content: "b"},
	}
	targets, desired := Targets(artifacts)
	assert.Equal(t, []string{"vitest.config.ts", "src/setupTests.ts"}, targets)
	assert.Equal(t, "b", desired["src/setupTests.ts"])
}

func TestWriteMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vitest.config.ts"), []byte("existing"), 0644))

	artifacts := []Artifact{
		{Name: ArtifactVitestConfig, Path: "vitest.config.ts", Content: "generated"},
		{Name: ArtifactSetup, Path: "src/setupTests.ts", Content: "setup"},
		{Name: ArtifactPackageJSON, Path: "package.json", Content: "{}"},
	}

	dry, err := WriteMissing(dir, artifacts, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/setupTests.ts"}, dry)
	assert.NoFileExists(t, filepath.Join(dir, "src", "setupTests.ts"))

	written, err := WriteMissing(dir, artifacts, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/setupTests.ts"}, written)

	data, err := os.ReadFile(filepath.Join(dir, "src", "setupTests.ts"))
	require.NoError(t, err)
	assert.Equal(t, "setup", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "vitest.config.ts"))
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "package.json"))
}
