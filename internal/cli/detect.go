package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show the detected project signature",
	Long:  "Detect the stack, architecture, package manager, TypeScript usage and existing test setup of the project.",
	Args:  cobra.NoArgs,
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	addDetectFlags(detectCmd)
	detectCmd.Flags().Bool("json", false, "Print the signature as JSON")
}

func runDetect(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	_, sig, err := assemble(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	view := newSignatureView(sig, sig.ExistingConfigs())

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	printSignature(cmd.OutOrStdout(), view)
	return nil
}
