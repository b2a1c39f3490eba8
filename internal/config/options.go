// Package config resolves the options a testup run works with.
//
// Options are layered, later sources winning:
//  1. built-in defaults
//  2. testup.hcl files, outermost directory first
//  3. a .env file in the working directory and TESTUP_* environment variables
//  4. command-line flags (applied by the cli package)
package config

import (
	"slices"

	"github.com/launchcg/testup/internal/errors"
	"github.com/launchcg/testup/internal/project"
)

// Conflict resolution strategies.
const (
	StrategyAuto    = "auto"
	StrategyMerge   = "merge"
	StrategyReplace = "replace"
	StrategyBackup  = "backup"
	StrategySkip    = "skip"
	StrategyManual  = "manual"
)

// Strategies lists the values accepted for ModuleOptions.Strategy.
var Strategies = []string{StrategyAuto, StrategyMerge, StrategyReplace, StrategyBackup, StrategySkip, StrategyManual}

// ModuleOptions carries user overrides into detection, reconciliation and
// installation.
type ModuleOptions struct {
	// Cwd is the invocation directory.
	Cwd string

	// Stack and Arch override detection when non-empty.
	Stack project.Stack
	Arch  project.Architecture

	DryRun        bool
	Incremental   bool
	Backup        bool
	WorkspaceRoot bool
	SkipInstall   bool
	RequireClean  bool

	// Strategy applies to every conflict; "auto" uses each conflict's
	// suggested strategy.
	Strategy         string
	PreserveComments bool

	Verbose int

	// Dependencies pins or adds packages on top of the recommendations.
	Dependencies []project.DependencySpec

	// Templates overrides generated artifacts by name ("vitest_config",
	// "setup", ...).
	Templates map[string]string
}

// Defaults returns the options used when nothing is configured.
func Defaults() ModuleOptions {
	return ModuleOptions{
		Cwd:              ".",
		Incremental:      true,
		Backup:           true,
		Strategy:         StrategyAuto,
		PreserveComments: true,
		Templates:        map[string]string{},
	}
}

// Validate rejects override values outside their allowed sets.
func (o *ModuleOptions) Validate() error {
	if o.Stack != "" && !slices.Contains(project.Stacks, o.Stack) {
		return errors.NewValidationError("stack", string(o.Stack), stackNames())
	}
	if o.Arch != "" && !slices.Contains(project.Architectures, o.Arch) {
		return errors.NewValidationError("arch", string(o.Arch), archNames())
	}
	if o.Strategy != "" && !slices.Contains(Strategies, o.Strategy) {
		return errors.NewValidationError("strategy", o.Strategy, Strategies)
	}
	for _, dep := range o.Dependencies {
		if dep.Name == "" {
			return errors.NewValidationError("dependency name", "", nil)
		}
	}
	return nil
}

func stackNames() []string {
	names := make([]string, len(project.Stacks))
	for i, s := range project.Stacks {
		names[i] = string(s)
	}
	return names
}

func archNames() []string {
	names := make([]string, len(project.Architectures))
	for i, a := range project.Architectures {
		names[i] = string(a)
	}
	return names
}
