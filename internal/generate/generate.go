// Package generate renders the test configuration files for a project.
//
// The rendered content is opaque to the rest of the tool: missing files
// are written as-is, existing ones are handed to the conflict resolver.
package generate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/launchcg/testup/internal/backup"
	"github.com/launchcg/testup/internal/installer"
	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
	"github.com/launchcg/testup/internal/template"
)

// Artifact names, also used as template names in testup.hcl.
const (
	ArtifactVitestConfig = "vitest_config"
	ArtifactSetup        = "setup"
	ArtifactPackageJSON  = "package_json"
)

// Artifact is one generated file.
type Artifact struct {
	Name string

	// Path is slash separated and relative to the project directory.
	Path    string
	Content string
}

// Generator renders artifacts from templates.
type Generator struct {
	logger    *slog.Logger
	overrides map[string]string
	variables map[string]string
}

// New creates a Generator. overrides replace default templates by
// artifact name.
func New(logger *slog.Logger, overrides map[string]string) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{logger: logger, overrides: overrides}
}

// WithVariables exposes extra variables to every template.
func (g *Generator) WithVariables(vars map[string]string) *Generator {
	g.variables = vars
	return g
}

// configExts are the config extensions Vitest loads, in the order it
// tries them.
var configExts = []string{"ts", "mts", "cts", "js", "mjs", "cjs"}

// Paths returns the artifact paths for a signature. The config target is
// an existing vitest.config.* in sig.CurrentDir, then an existing
// vite.config.*, so the user's config is merged instead of shadowed.
// Otherwise it is a new vitest.config file.
func Paths(sig *project.Signature) map[string]string {
	ext := "js"
	if sig.IsTypeScript {
		ext = "ts"
	}
	return map[string]string{
		ArtifactVitestConfig: configPath(sig.CurrentDir, ext),
		ArtifactSetup:        "src/setupTests." + ext,
		ArtifactPackageJSON:  manifest.FileName,
	}
}

func configPath(dir, ext string) string {
	if dir != "" {
		for _, base := range []string{"vitest.config.", "vite.config."} {
			for _, e := range configExts {
				if info, err := os.Stat(filepath.Join(dir, base+e)); err == nil && !info.IsDir() {
					return base + e
				}
			}
		}
	}
	return "vitest.config." + ext
}

// Generate renders every artifact for sig. recs supplies the
// devDependencies of the package.json fragment.
func (g *Generator) Generate(sig *project.Signature, recs []project.DependencySpec) ([]Artifact, error) {
	paths := Paths(sig)

	ctx := template.NewContext(string(sig.TechStack), sig.TechStack.Framework(), sig.CurrentDir, sig.IsTypeScript)
	ctx.SetupFile = "./" + paths[ArtifactSetup]
	if g.variables != nil {
		ctx.WithVariables(g.variables)
	}

	scripts := manifest.NewObject()
	for _, s := range installer.TestScripts {
		if err := scripts.Set(s.Name, s.Command); err != nil {
			return nil, err
		}
	}
	devDeps := manifest.NewObject()
	for _, rec := range recs {
		if !rec.Dev {
			continue
		}
		if err := devDeps.Set(rec.Name, rec.VersionRange); err != nil {
			return nil, err
		}
	}
	ctx.Scripts = scripts
	ctx.DevDependencies = devDeps

	engine := template.NewEngine(ctx)

	var artifacts []Artifact
	for _, name := range []string{ArtifactVitestConfig, ArtifactSetup, ArtifactPackageJSON} {
		tmpl, overridden := g.overrides[name]
		if !overridden {
			tmpl = defaultTemplates[name]
		}
		content, err := engine.Render(tmpl)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}
		g.logger.Debug("Rendered artifact",
			slog.String("name", name),
			slog.String("path", paths[name]),
			slog.Bool("override", overridden))
		artifacts = append(artifacts, Artifact{Name: name, Path: paths[name], Content: content})
	}
	return artifacts, nil
}

// Targets returns the artifact paths and their content keyed by path, in
// the form the conflict detector takes.
func Targets(artifacts []Artifact) ([]string, map[string]string) {
	targets := make([]string, 0, len(artifacts))
	desired := make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		targets = append(targets, a.Path)
		desired[a.Path] = a.Content
	}
	return targets, desired
}

// WriteMissing writes the artifacts whose file does not exist under dir
// and returns their paths. The package.json fragment is never written on
// its own. With dryRun set nothing is written.
func WriteMissing(dir string, artifacts []Artifact, dryRun bool) ([]string, error) {
	var written []string
	for _, a := range artifacts {
		if a.Name == ArtifactPackageJSON {
			continue
		}
		path := filepath.Join(dir, filepath.FromSlash(a.Path))
		if _, err := os.Stat(path); err == nil {
			continue
		}
		written = append(written, a.Path)
		if dryRun {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return written, fmt.Errorf("creating directory for %s: %w", a.Path, err)
		}
		tx, err := backup.Begin(path, false)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(path, []byte(a.Content), 0644); err != nil {
			_ = tx.Rollback()
			return written, fmt.Errorf("writing %s: %w", a.Path, err)
		}
		if err := tx.Commit(false); err != nil {
			return written, err
		}
	}
	return written, nil
}
