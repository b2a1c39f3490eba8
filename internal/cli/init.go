package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/launchcg/testup/internal/config"
	"github.com/launchcg/testup/internal/conflict"
	"github.com/launchcg/testup/internal/errors"
	"github.com/launchcg/testup/internal/generate"
	"github.com/launchcg/testup/internal/gitstate"
	"github.com/launchcg/testup/internal/installer"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up Vitest in the project",
	Long: `Detect the project, write the Vitest configuration and setup file, resolve
conflicts with existing files and install the test dependencies.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	addDetectFlags(initCmd)
	addInstallFlags(initCmd)
	initCmd.Flags().String("strategy", "", "Conflict strategy: auto, merge, replace, backup, skip or manual")
	initCmd.Flags().BoolP("interactive", "i", false, "Choose a strategy per conflict (terminal only)")
	initCmd.Flags().Bool("skip-install", false, "Don't run the package manager")
	initCmd.Flags().Bool("require-clean", false, "Abort when files to be changed have uncommitted changes")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	p, err := preparePlan(ctx, cmd)
	if err != nil {
		return err
	}
	opts, sig := p.opts, p.sig

	fmt.Fprintf(out, "%s Setting up Vitest for %s (%s, %s)\n", cyan("→"), sig.TechStack, sig.Architecture, sig.PackageManager)
	if opts.DryRun {
		fmt.Fprintf(out, "%s Dry run: nothing will be written\n", yellow("⚠"))
	}

	if err := checkWorktree(out, p); err != nil {
		return err
	}

	written, err := generate.WriteMissing(sig.CurrentDir, p.artifacts, opts.DryRun)
	for _, path := range written {
		if opts.DryRun {
			fmt.Fprintf(out, "%s Would create %s\n", cyan("→"), path)
		} else {
			fmt.Fprintf(out, "%s Created %s\n", green("✓"), path)
		}
	}
	if err != nil {
		return err
	}

	var chooser func(conflict.Group) (string, error)
	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		if pr := newPrompter(out); pr != nil {
			chooser = pr.choose
		} else {
			logger.Warn("Not a terminal, using the configured strategy")
		}
	}

	failed := 0
	resolver := conflict.NewResolver(logger)
	for _, g := range p.groups() {
		// package.json belongs to the installer unless installation is skipped.
		if g.Primary().Kind() == conflict.KindPackageJSON && !opts.SkipInstall {
			logger.Debug("Leaving package.json to the installer", slog.String("group", g.Key))
			continue
		}

		strategy, err := groupStrategy(g, opts.Strategy, chooser)
		if err != nil {
			return err
		}
		if strategy == config.StrategyManual {
			printManual(out, g)
			continue
		}
		if opts.DryRun {
			fmt.Fprintf(out, "%s Would %s %s\n", cyan("→"), strategy, g.Key)
			continue
		}

		res := resolver.Resolve(ctx, g.Primary(), conflict.Options{
			Strategy:         strategy,
			BackupOriginal:   opts.Backup,
			PreserveComments: opts.PreserveComments,
		})
		printResolution(out, res)
		if !res.Resolved {
			failed++
		}
	}

	if opts.SkipInstall {
		fmt.Fprintf(out, "%s Skipping dependency installation\n", cyan("→"))
	} else {
		res, err := installer.New(newRunner(logger)).WithLogger(logger).Install(ctx, sig, installer.Options{
			Incremental:   opts.Incremental,
			Backup:        opts.Backup,
			WorkspaceRoot: opts.WorkspaceRoot,
			DryRun:        opts.DryRun,
			Extra:         opts.Dependencies,
		})
		if err != nil {
			return err
		}
		printInstallResult(out, res)
		if !res.Success {
			return res.Error
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d conflicts could not be resolved", failed)
	}
	fmt.Fprintf(out, "%s Vitest setup complete\n", green("✓"))
	return nil
}

// groupStrategy picks the strategy for g: the chooser when interactive,
// the group's suggestion for auto, otherwise the configured strategy if
// the group allows it. Groups that only allow manual stay manual.
func groupStrategy(g conflict.Group, configured string, chooser func(conflict.Group) (string, error)) (string, error) {
	if g.Suggested() == config.StrategyManual {
		return config.StrategyManual, nil
	}
	if chooser != nil {
		return chooser(g)
	}
	if configured == "" || configured == config.StrategyAuto {
		return g.Suggested(), nil
	}
	for _, c := range g.Conflicts {
		if !c.Allows(configured) {
			logger.Warn("Strategy not allowed, using suggestion",
				slog.String("group", g.Key),
				slog.String("strategy", configured),
				slog.String("suggested", g.Suggested()))
			return g.Suggested(), nil
		}
	}
	return configured, nil
}

func printManual(w io.Writer, g conflict.Group) {
	fmt.Fprintf(w, "%s %s needs manual attention:\n", yellow("⚠"), g.Key)
	for _, c := range g.Conflicts {
		fmt.Fprintf(w, "    %s\n", c.Description)
	}
}

// checkWorktree warns about uncommitted changes on files init may touch,
// or fails with --require-clean.
func checkWorktree(w io.Writer, p *plan) error {
	var paths []string
	for _, a := range p.artifacts {
		paths = append(paths, filepath.Join(p.sig.CurrentDir, filepath.FromSlash(a.Path)))
	}

	report, err := gitstate.Check(p.sig.CurrentDir, paths)
	if err != nil {
		logger.Warn("Could not read git status", slog.Any("error", err))
		return nil
	}
	if report.Clean() {
		return nil
	}

	for _, f := range report.Dirty {
		fmt.Fprintf(w, "%s Uncommitted changes: %s\n", yellow("⚠"), f)
	}
	if p.opts.RequireClean {
		return errors.New("uncommitted changes on files to be modified (commit or stash them, or drop --require-clean)")
	}
	return nil
}
