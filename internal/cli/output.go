package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/launchcg/testup/internal/conflict"
	"github.com/launchcg/testup/internal/installer"
	"github.com/launchcg/testup/internal/project"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// signatureView is the printable form of a signature.
type signatureView struct {
	RootDir                string            `json:"rootDir"`
	CurrentDir             string            `json:"currentDir"`
	TechStack              project.Stack     `json:"techStack"`
	StackConfirmed         bool              `json:"stackConfirmed"`
	StackEvidence          string            `json:"stackEvidence,omitempty"`
	Architecture           string            `json:"architecture"`
	PackageManager         string            `json:"packageManager"`
	IsTypeScript           bool              `json:"isTypeScript"`
	NodeVersion            string            `json:"nodeVersion,omitempty"`
	HasExistingTests       bool              `json:"hasExistingTests"`
	ExistingTestFrameworks []string          `json:"existingTestFrameworks"`
	ExistingConfigs        []configView      `json:"existingConfigs"`
	DependencyVersions     map[string]string `json:"dependencyVersions"`
	Workspace              *workspaceView    `json:"workspace,omitempty"`
}

type configView struct {
	Type      string   `json:"type"`
	FilePath  string   `json:"filePath"`
	Conflicts []string `json:"conflicts,omitempty"`
}

type workspaceView struct {
	Type            string   `json:"type"`
	Packages        []string `json:"packages"`
	CurrentLocation string   `json:"currentLocation"`
	CurrentPackage  string   `json:"currentPackage,omitempty"`
}

func newSignatureView(sig *project.Signature, configs []project.ExistingConfig) signatureView {
	view := signatureView{
		RootDir:                sig.RootDir,
		CurrentDir:             sig.CurrentDir,
		TechStack:              sig.TechStack,
		StackConfirmed:         sig.StackConfirmed,
		StackEvidence:          sig.StackEvidence,
		Architecture:           string(sig.Architecture),
		PackageManager:         string(sig.PackageManager),
		IsTypeScript:           sig.IsTypeScript,
		NodeVersion:            sig.NodeVersion,
		HasExistingTests:       sig.HasExistingTests,
		ExistingTestFrameworks: sig.ExistingTestFrameworks(),
		ExistingConfigs:        []configView{},
		DependencyVersions:     sig.DependencyVersions(),
	}
	if view.ExistingTestFrameworks == nil {
		view.ExistingTestFrameworks = []string{}
	}
	for _, c := range configs {
		view.ExistingConfigs = append(view.ExistingConfigs, configView{
			Type:      string(c.Type),
			FilePath:  c.FilePath,
			Conflicts: c.Conflicts,
		})
	}

	if ws := sig.WorkspaceInfo; ws != nil {
		wv := &workspaceView{
			Type:            ws.Type,
			Packages:        []string{},
			CurrentLocation: string(ws.CurrentLocation),
		}
		for _, p := range ws.Packages {
			wv.Packages = append(wv.Packages, p.Path)
		}
		if ws.CurrentPackage != nil {
			wv.CurrentPackage = ws.CurrentPackage.Name
		}
		view.Workspace = wv
	}
	return view
}

func printSignature(w io.Writer, v signatureView) {
	stack := string(v.TechStack)
	if !v.StackConfirmed {
		stack += yellow(" (unconfirmed)")
	}
	if v.StackEvidence != "" {
		stack += fmt.Sprintf(" via %s", v.StackEvidence)
	}

	fmt.Fprintf(w, "%s %s\n", cyan("→"), bold(v.CurrentDir))
	fmt.Fprintf(w, "  Stack:           %s\n", stack)
	fmt.Fprintf(w, "  Architecture:    %s\n", v.Architecture)
	if v.RootDir != v.CurrentDir {
		fmt.Fprintf(w, "  Workspace root:  %s\n", v.RootDir)
	}
	fmt.Fprintf(w, "  Package manager: %s\n", v.PackageManager)
	fmt.Fprintf(w, "  TypeScript:      %t\n", v.IsTypeScript)
	if v.NodeVersion != "" {
		fmt.Fprintf(w, "  Node:            %s\n", v.NodeVersion)
	}

	if len(v.ExistingTestFrameworks) > 0 {
		fmt.Fprintf(w, "  Existing tests:  %s\n", strings.Join(v.ExistingTestFrameworks, ", "))
	} else if v.HasExistingTests {
		fmt.Fprintf(w, "  Existing tests:  yes\n")
	}
	for _, c := range v.ExistingConfigs {
		fmt.Fprintf(w, "    - %s (%s)\n", c.FilePath, c.Type)
	}

	if ws := v.Workspace; ws != nil {
		location := ws.CurrentLocation
		if ws.CurrentPackage != "" {
			location += ": " + ws.CurrentPackage
		}
		fmt.Fprintf(w, "  Workspace:       %s, %d packages, at %s\n", ws.Type, len(ws.Packages), location)
	}
}

// printGroup writes one conflict group with its conflicts.
func printGroup(w io.Writer, g conflict.Group) {
	fmt.Fprintf(w, "%s %s [%s] suggested: %s\n", severityMark(g.Severity()), bold(g.Key), g.Severity(), g.Suggested())
	for _, c := range g.Conflicts {
		fmt.Fprintf(w, "    %s: %s\n", c.ID, c.Description)
		if c.ExistingValue != "" || c.NewValue != "" {
			fmt.Fprintf(w, "      existing: %s  new: %s\n", display(c.ExistingValue), display(c.NewValue))
		}
	}
}

func severityMark(s conflict.Severity) string {
	switch s {
	case conflict.SeverityError:
		return red("✗")
	case conflict.SeverityWarning:
		return yellow("⚠")
	default:
		return cyan("→")
	}
}

func display(v string) string {
	if v == "" {
		return "-"
	}
	v = strings.ReplaceAll(v, "\n", " ")
	if len(v) > 60 {
		return v[:57] + "..."
	}
	return v
}

// printResolution reports what a resolution did.
func printResolution(w io.Writer, res conflict.Result) {
	if !res.Resolved {
		fmt.Fprintf(w, "%s %s not resolved (%s)\n", red("✗"), res.ConflictID, res.Strategy)
		for _, e := range res.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
		return
	}
	fmt.Fprintf(w, "%s %s resolved with %s\n", green("✓"), res.ConflictID, res.Strategy)
	for _, change := range res.Changes {
		fmt.Fprintf(w, "    %s\n", change)
	}
	if res.BackupPath != "" {
		fmt.Fprintf(w, "    backup: %s%s\n", res.BackupPath, fileSize(res.BackupPath))
	}
}

// printInstallResult reports an install, run or planned.
func printInstallResult(w io.Writer, res *installer.InstallResult) {
	verb := "Installed"
	if res.DryRun {
		verb = "Would install"
	}
	for _, c := range res.Commands {
		fmt.Fprintf(w, "  %s %s\n", cyan("$"), c)
	}
	if len(res.Installed) > 0 {
		fmt.Fprintf(w, "%s %s %s\n", green("✓"), verb, strings.Join(res.Installed, ", "))
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(w, "%s Already declared: %s\n", cyan("→"), strings.Join(res.Skipped, ", "))
	}
	for _, c := range res.Conflicts {
		fmt.Fprintf(w, "%s %s\n", yellow("⚠"), c)
	}
	if len(res.ScriptsAdded) > 0 {
		fmt.Fprintf(w, "%s Added scripts: %s\n", green("✓"), strings.Join(res.ScriptsAdded, ", "))
	}
	if len(res.Failed) > 0 {
		fmt.Fprintf(w, "%s Failed: %s\n", red("✗"), strings.Join(res.Failed, ", "))
	}
	if res.BackupPath != "" {
		fmt.Fprintf(w, "%s Backup kept at %s%s\n", yellow("⚠"), res.BackupPath, fileSize(res.BackupPath))
	}
}

// fileSize renders " (1.2 kB)" for an existing file, or nothing.
func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", humanize.Bytes(uint64(info.Size())))
}
