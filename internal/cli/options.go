package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/launchcg/testup/internal/config"
	"github.com/launchcg/testup/internal/detect"
	"github.com/launchcg/testup/internal/project"
)

// addDetectFlags registers the detection overrides.
func addDetectFlags(cmd *cobra.Command) {
	cmd.Flags().String("stack", "", "Override the detected stack (react, vue2, vue3)")
	cmd.Flags().String("arch", "", "Override the detected architecture (single, pnpm-workspace, yarn-workspace)")
}

// addInstallFlags registers the options the dependency installer reads.
func addInstallFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Report what would change without writing or installing")
	cmd.Flags().Bool("no-incremental", false, "Install every recommendation, even ones already declared")
	cmd.Flags().Bool("no-backup", false, "Don't keep a backup of package.json while installing")
	cmd.Flags().Bool("workspace-root", false, "Install into the workspace root instead of the current package")
	cmd.Flags().StringSlice("add", nil, "Extra dev dependency as name@range (repeatable)")
}

// loadOptions layers the project configuration, the environment and the
// flags that were set on cmd.
func loadOptions(cmd *cobra.Command) (config.ModuleOptions, error) {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return config.ModuleOptions{}, fmt.Errorf("failed to resolve path: %w", err)
	}

	opts, err := config.NewLoader(logger).Load(absPath)
	if err != nil {
		return opts, err
	}
	if err := applyFlags(cmd, &opts); err != nil {
		return opts, err
	}
	opts.Verbose = verbose

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// applyFlags overlays the flags set on cmd. Unset flags keep the loaded
// values.
func applyFlags(cmd *cobra.Command, opts *config.ModuleOptions) error {
	flags := cmd.Flags()

	if flags.Changed("stack") {
		v, _ := flags.GetString("stack")
		opts.Stack = project.Stack(v)
	}
	if flags.Changed("arch") {
		v, _ := flags.GetString("arch")
		opts.Arch = project.Architecture(v)
	}
	if flags.Changed("strategy") {
		opts.Strategy, _ = flags.GetString("strategy")
	}
	if flags.Changed("dry-run") {
		opts.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("no-incremental") {
		v, _ := flags.GetBool("no-incremental")
		opts.Incremental = !v
	}
	if flags.Changed("no-backup") {
		v, _ := flags.GetBool("no-backup")
		opts.Backup = !v
	}
	if flags.Changed("workspace-root") {
		opts.WorkspaceRoot, _ = flags.GetBool("workspace-root")
	}
	if flags.Changed("skip-install") {
		opts.SkipInstall, _ = flags.GetBool("skip-install")
	}
	if flags.Changed("require-clean") {
		opts.RequireClean, _ = flags.GetBool("require-clean")
	}
	if flags.Changed("add") {
		specs, _ := flags.GetStringSlice("add")
		for _, spec := range specs {
			dep, err := parseDependencySpec(spec)
			if err != nil {
				return err
			}
			opts.Dependencies = append(opts.Dependencies, dep)
		}
	}
	return nil
}

// parseDependencySpec parses name@range. A leading @ belongs to a scoped
// package name; a missing range means "latest".
func parseDependencySpec(spec string) (project.DependencySpec, error) {
	spec = strings.TrimSpace(spec)
	name, rng := spec, ""
	if i := strings.LastIndex(spec, "@"); i > 0 {
		name, rng = spec[:i], spec[i+1:]
	}
	if name == "" || name == "@" {
		return project.DependencySpec{}, fmt.Errorf("invalid dependency %q: expected name@range", spec)
	}
	if rng == "" {
		rng = "latest"
	}
	return project.DependencySpec{Name: name, VersionRange: rng, Dev: true}, nil
}

// assemble loads options for cmd and detects the project signature.
func assemble(ctx context.Context, cmd *cobra.Command) (config.ModuleOptions, *project.Signature, error) {
	opts, err := loadOptions(cmd)
	if err != nil {
		return opts, nil, err
	}
	sig, err := detect.NewAssembler(logger, newRunner(logger)).Assemble(ctx, opts)
	if err != nil {
		return opts, nil, err
	}
	return opts, sig, nil
}
