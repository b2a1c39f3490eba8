package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchcg/testup/internal/errors"
	"github.com/launchcg/testup/internal/project"
)

func TestDefaults(t *testing.T) {
	opts := Defaults()
	assert.True(t, opts.Incremental)
	assert.True(t, opts.Backup)
	assert.True(t, opts.PreserveComments)
	assert.Equal(t, StrategyAuto, opts.Strategy)
	assert.NoError(t, opts.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		opts  ModuleOptions
		field string
	}{
		{name: "unknown stack", opts: ModuleOptions{Stack: "svelte"}, field: "stack"},
		{name: "unknown arch", opts: ModuleOptions{Arch: "lerna"}, field: "arch"},
		{name: "unknown strategy", opts: ModuleOptions{Strategy: "overwrite"}, field: "strategy"},
		{name: "nameless dependency", opts: ModuleOptions{Dependencies: []project.DependencySpec{{VersionRange: "1"}}}, field: "dependency name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "setup.ts"), []byte("import './polyfills'\n"), 0644))
	t.Setenv("TESTUP_TEST_STRATEGY", "replace")

	writeConfig(t, dir, `
testup {
  stack       = "vue2"
  strategy    = env("TESTUP_TEST_STRATEGY", "merge")
  incremental = false
}

dependency "msw" {
  version = "^2.2.0"
}

dependency "vitest" {
  version = "^1.6.0"
  dev     = true
}

template "setup" {
  content = file("templates/setup.ts")
}
`)

	cfg, err := LoadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	opts := Defaults()
	cfg.Apply(&opts)

	assert.Equal(t, project.StackVue2, opts.Stack)
	assert.Equal(t, "replace", opts.Strategy)
	assert.False(t, opts.Incremental)
	assert.True(t, opts.Backup, "unset attributes keep defaults")
	require.Len(t, opts.Dependencies, 2)
	assert.Equal(t, project.DependencySpec{Name: "msw", VersionRange: "^2.2.0", Dev: true}, opts.Dependencies[0])
	assert.Equal(t, "import './polyfills'\n", opts.Templates["setup"])
}

func TestLoadFile_SyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "testup {\n  stack = \n}\n")

	_, err := LoadFile(filepath.Join(dir, FileName))
	var cerr *errors.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, filepath.Join(dir, FileName), cerr.File)
	assert.Positive(t, cerr.Line)
}

func TestLoader_Layering(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "apps", "web")
	require.NoError(t, os.MkdirAll(app, 0755))

	writeConfig(t, root, `
testup {
  stack    = "vue3"
  strategy = "skip"
  backup   = false
}
`)
	writeConfig(t, app, `
testup {
  strategy = "merge"
}
`)
	require.NoError(t, os.WriteFile(filepath.Join(app, ".env"), []byte("TESTUP_DRY_RUN=true\nTESTUP_STACK=react\nOTHER=ignored\n"), 0644))

	env := map[string]string{"TESTUP_STACK": "vue2"}
	loader := NewLoader(nil).WithLookupEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	opts, err := loader.Load(app)
	require.NoError(t, err)

	assert.Equal(t, app, opts.Cwd)
	assert.Equal(t, project.StackVue2, opts.Stack, "process env beats .env and files")
	assert.Equal(t, "merge", opts.Strategy, "inner testup.hcl beats outer")
	assert.False(t, opts.Backup, "outer testup.hcl beats defaults")
	assert.True(t, opts.DryRun, ".env applies")
}

func TestLoader_InvalidEnv(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(nil).WithLookupEnv(func(k string) (string, bool) {
		if k == "TESTUP_BACKUP" {
			return "maybe", true
		}
		return "", false
	})

	_, err := loader.Load(dir)
	var cerr *errors.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "TESTUP_BACKUP", cerr.File)
}

func TestLoader_RejectsUnknownStack(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "testup {\n  stack = \"angular\"\n}\n")

	_, err := NewLoader(nil).WithLookupEnv(noEnv).Load(dir)
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "angular", verr.Value)
}

// Helper function to write a testup.hcl fixture
func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))
}

func noEnv(string) (string, bool) { return "", false }
