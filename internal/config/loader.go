package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/launchcg/testup/internal/errors"
	"github.com/launchcg/testup/internal/project"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "TESTUP_"

// maxConfigDepth bounds the upward search for testup.hcl files.
const maxConfigDepth = 8

// Loader resolves ModuleOptions from files and the environment.
type Loader struct {
	logger    *slog.Logger
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a Loader reading the process environment.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, lookupEnv: os.LookupEnv}
}

// WithLookupEnv replaces the environment lookup, mainly for tests.
func (l *Loader) WithLookupEnv(fn func(string) (string, bool)) *Loader {
	l.lookupEnv = fn
	return l
}

// Load resolves options for a run started in cwd. Flags are not applied
// here; callers overlay them and call Validate again.
func (l *Loader) Load(cwd string) (ModuleOptions, error) {
	opts := Defaults()

	abs, err := filepath.Abs(cwd)
	if err != nil {
		return opts, errors.Wrap(err, "resolve working directory")
	}
	opts.Cwd = abs

	for _, path := range l.findConfigFiles(abs) {
		cfg, err := LoadFile(path)
		if err != nil {
			return opts, err
		}
		l.logger.Debug("Loaded project config", slog.String("path", path))
		cfg.Apply(&opts)
	}

	env, err := l.environment(abs)
	if err != nil {
		return opts, err
	}
	if err := applyEnv(&opts, env); err != nil {
		return opts, err
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// findConfigFiles returns testup.hcl paths from the outermost ancestor
// down to dir.
func (l *Loader) findConfigFiles(dir string) []string {
	var found []string
	for i := 0; i < maxConfigDepth; i++ {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			found = append([]string{path}, found...)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return found
}

// environment merges TESTUP_* values from dir/.env with the process
// environment; the process environment wins.
func (l *Loader) environment(dir string) (map[string]string, error) {
	env := make(map[string]string)

	dotenv := filepath.Join(dir, ".env")
	if values, err := godotenv.Read(dotenv); err == nil {
		l.logger.Debug("Loaded .env", slog.String("path", dotenv))
		for k, v := range values {
			if strings.HasPrefix(k, EnvPrefix) {
				env[k] = v
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.NewConfigError(dotenv, 0, 0, "failed to read", err)
	}

	for _, key := range envKeys {
		if v, ok := l.lookupEnv(key); ok {
			env[key] = v
		}
	}
	return env, nil
}

var envKeys = []string{
	EnvPrefix + "STACK",
	EnvPrefix + "ARCH",
	EnvPrefix + "STRATEGY",
	EnvPrefix + "DRY_RUN",
	EnvPrefix + "INCREMENTAL",
	EnvPrefix + "BACKUP",
	EnvPrefix + "WORKSPACE_ROOT",
	EnvPrefix + "PRESERVE_COMMENTS",
	EnvPrefix + "REQUIRE_CLEAN",
}

func applyEnv(opts *ModuleOptions, env map[string]string) error {
	if v := env[EnvPrefix+"STACK"]; v != "" {
		opts.Stack = project.Stack(strings.ToLower(v))
	}
	if v := env[EnvPrefix+"ARCH"]; v != "" {
		opts.Arch = project.Architecture(strings.ToLower(v))
	}
	if v := env[EnvPrefix+"STRATEGY"]; v != "" {
		opts.Strategy = strings.ToLower(v)
	}

	bools := map[string]*bool{
		EnvPrefix + "DRY_RUN":           &opts.DryRun,
		EnvPrefix + "INCREMENTAL":       &opts.Incremental,
		EnvPrefix + "BACKUP":            &opts.Backup,
		EnvPrefix + "WORKSPACE_ROOT":    &opts.WorkspaceRoot,
		EnvPrefix + "PRESERVE_COMMENTS": &opts.PreserveComments,
		EnvPrefix + "REQUIRE_CLEAN":     &opts.RequireClean,
	}
	for key, dst := range bools {
		raw, ok := env[key]
		if !ok || raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.NewConfigError(key, 0, 0, "expected a boolean", err)
		}
		*dst = b
	}
	return nil
}
