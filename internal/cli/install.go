package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchcg/testup/internal/installer"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the recommended test dependencies",
	Long: `Install the test dependencies recommended for the detected stack with the project's
package manager. package.json is restored if any install command fails.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	addDetectFlags(installCmd)
	addInstallFlags(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	opts, sig, err := assemble(ctx, cmd)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Installing test dependencies for %s with %s\n", cyan("→"), sig.TechStack, sig.PackageManager)

	inst := installer.New(newRunner(logger)).WithLogger(logger)
	res, err := inst.Install(ctx, sig, installer.Options{
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
	fmt.Fprintf(out, "%s Installation complete\n", green("✓"))
	return nil
}
