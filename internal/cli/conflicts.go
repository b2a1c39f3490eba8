package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchcg/testup/internal/analyzer"
	"github.com/launchcg/testup/internal/config"
	"github.com/launchcg/testup/internal/conflict"
	"github.com/launchcg/testup/internal/generate"
	"github.com/launchcg/testup/internal/project"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List conflicts between generated and existing configuration",
	Long:  "Generate the Vitest artifacts for the project and report where they collide with files already on disk.",
	Args:  cobra.NoArgs,
	RunE:  runConflicts,
}

func init() {
	rootCmd.AddCommand(conflictsCmd)
	addDetectFlags(conflictsCmd)
}

// plan is everything init needs before it touches the project.
type plan struct {
	opts      config.ModuleOptions
	sig       *project.Signature
	recs      []project.DependencySpec
	artifacts []generate.Artifact
	conflicts []conflict.ConfigConflict
}

func (p *plan) groups() []conflict.Group {
	return conflict.GroupByTarget(p.conflicts)
}

// preparePlan detects the project, renders the artifacts and finds the
// conflicts they would cause.
func preparePlan(ctx context.Context, cmd *cobra.Command) (*plan, error) {
	opts, sig, err := assemble(ctx, cmd)
	if err != nil {
		return nil, err
	}

	recs := analyzer.New(nil).RecommendFor(sig, opts.Dependencies...)
	artifacts, err := generate.New(logger, opts.Templates).Generate(sig, recs)
	if err != nil {
		return nil, err
	}
	targets, desired := generate.Targets(artifacts)

	return &plan{
		opts:      opts,
		sig:       sig,
		recs:      recs,
		artifacts: artifacts,
		conflicts: conflict.NewDetector(logger).DetectConflicts(sig, targets, desired),
	}, nil
}

func runConflicts(cmd *cobra.Command, args []string) error {
	p, err := preparePlan(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	groups := p.groups()
	if len(groups) == 0 {
		fmt.Fprintf(out, "%s No conflicts\n", green("✓"))
		return nil
	}
	for _, g := range groups {
		printGroup(out, g)
	}
	fmt.Fprintf(out, "\n%d conflicts in %d targets\n", len(p.conflicts), len(groups))
	return nil
}
