package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/launchcg/testup/internal/errors"
	"github.com/launchcg/testup/internal/project"
)

// FileName is the project configuration file.
const FileName = "testup.hcl"

// FileConfig is the testup.hcl structure.
//
//	testup {
//	  stack    = "vue3"
//	  strategy = "merge"
//	  backup   = env("TESTUP_BACKUP", "true") == "true"
//	}
//
//	dependency "msw" {
//	  version = "^2.2.0"
//	}
//
//	template "setup" {
//	  content = file("templates/setup.ts")
//	}
type FileConfig struct {
	Settings     *SettingsBlock    `hcl:"testup,block"`
	Dependencies []DependencyBlock `hcl:"dependency,block"`
	Templates    []TemplateBlock   `hcl:"template,block"`
}

// SettingsBlock holds option overrides. Unset attributes leave the lower
// layer's value in place.
type SettingsBlock struct {
	Stack            *string `hcl:"stack,optional"`
	Architecture     *string `hcl:"architecture,optional"`
	Strategy         *string `hcl:"strategy,optional"`
	Incremental      *bool   `hcl:"incremental,optional"`
	Backup           *bool   `hcl:"backup,optional"`
	WorkspaceRoot    *bool   `hcl:"workspace_root,optional"`
	PreserveComments *bool   `hcl:"preserve_comments,optional"`
	RequireClean     *bool   `hcl:"require_clean,optional"`
}

// DependencyBlock pins or adds a package to install.
type DependencyBlock struct {
	Name     string `hcl:"name,label"`
	Version  string `hcl:"version,optional"`
	Dev      *bool  `hcl:"dev,optional"`
	Optional bool   `hcl:"optional,optional"`
}

// TemplateBlock replaces a generated artifact.
type TemplateBlock struct {
	Name    string `hcl:"name,label"`
	Content string `hcl:"content"`
}

// LoadFile parses and decodes a testup.hcl file. Relative paths given to
// file() resolve against the file's directory.
func LoadFile(path string) (*FileConfig, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diagError(path, "failed to parse", diags)
	}

	var cfg FileConfig
	if diags := gohcl.DecodeBody(file.Body, NewEvalContext(filepath.Dir(path)), &cfg); diags.HasErrors() {
		return nil, diagError(path, "failed to decode", diags)
	}
	return &cfg, nil
}

func diagError(path, msg string, diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity == hcl.DiagError && d.Subject != nil {
			return errors.NewConfigError(path, d.Subject.Start.Line, d.Subject.Start.Column, msg, diags)
		}
	}
	return errors.NewConfigError(path, 0, 0, msg, diags)
}

// Apply layers the file's settings onto opts.
func (c *FileConfig) Apply(opts *ModuleOptions) {
	if s := c.Settings; s != nil {
		setString(s.Stack, func(v string) { opts.Stack = project.Stack(v) })
		setString(s.Architecture, func(v string) { opts.Arch = project.Architecture(v) })
		setString(s.Strategy, func(v string) { opts.Strategy = v })
		setBool(s.Incremental, &opts.Incremental)
		setBool(s.Backup, &opts.Backup)
		setBool(s.WorkspaceRoot, &opts.WorkspaceRoot)
		setBool(s.PreserveComments, &opts.PreserveComments)
		setBool(s.RequireClean, &opts.RequireClean)
	}

	for _, d := range c.Dependencies {
		dev := true
		if d.Dev != nil {
			dev = *d.Dev
		}
		opts.Dependencies = upsertDependency(opts.Dependencies, project.DependencySpec{
			Name:         d.Name,
			VersionRange: d.Version,
			Dev:          dev,
			Optional:     d.Optional,
		})
	}

	if len(c.Templates) > 0 && opts.Templates == nil {
		opts.Templates = make(map[string]string)
	}
	for _, t := range c.Templates {
		opts.Templates[t.Name] = t.Content
	}
}

func upsertDependency(deps []project.DependencySpec, dep project.DependencySpec) []project.DependencySpec {
	for i := range deps {
		if deps[i].Name == dep.Name {
			deps[i] = dep
			return deps
		}
	}
	return append(deps, dep)
}

func setString(v *string, set func(string)) {
	if v != nil && *v != "" {
		set(*v)
	}
}

func setBool(v *bool, dst *bool) {
	if v != nil {
		*dst = *v
	}
}

// NewEvalContext provides env() and file() to testup.hcl expressions.
func NewEvalContext(baseDir string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env":  envFunction(),
			"file": fileFunction(baseDir),
		},
	}
}

// envFunction implements env("NAME") and env("NAME", "default").
func envFunction() function.Function {
	return function.New(&function.Spec{
		Description: "Reads an environment variable, with an optional default value",
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		VarParam: &function.Parameter{Name: "default", Type: cty.String},
		Type:     function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			value := os.Getenv(args[0].AsString())
			if value == "" && len(args) > 1 {
				value = args[1].AsString()
			}
			return cty.StringVal(value), nil
		},
	})
}

// fileFunction implements file("relative/path").
func fileFunction(baseDir string) function.Function {
	return function.New(&function.Spec{
		Description: "Reads a file relative to the configuration directory",
		Params: []function.Parameter{
			{Name: "path", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			rel := args[0].AsString()
			content, err := os.ReadFile(filepath.Join(baseDir, rel))
			if err != nil {
				return cty.StringVal(""), fmt.Errorf("failed to read file %s: %w", rel, err)
			}
			return cty.StringVal(string(content)), nil
		},
	})
}
