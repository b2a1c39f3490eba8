// Package installer adds the recommended test tooling to a project.
//
// An install is one transaction on the effective package.json:
//   - Analyze the manifest against the compatibility matrix
//   - Partition recommendations into install and skip sets
//   - Snapshot the manifest (optionally to <manifest>.backup.<epoch-ms>)
//   - Run the package manager once per dependency partition, production first
//   - Add the standard test scripts without touching existing ones
//
// Any failure restores the manifest to its exact original bytes. Files the
// package manager wrote elsewhere (node_modules, lockfiles) are not rolled
// back.
package installer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/launchcg/testup/internal/analyzer"
	"github.com/launchcg/testup/internal/backup"
	"github.com/launchcg/testup/internal/errors"
	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
	"github.com/launchcg/testup/internal/runner"
)

// TestScripts are added to the manifest after a successful install, in
// this order, when their key is absent.
var TestScripts = []struct{ Name, Command string }{
	{"test", "vitest"},
	{"test:ui", "vitest --ui"},
	{"test:coverage", "vitest run --coverage"},
}

// Options controls an install.
type Options struct {
	// Incremental skips recommendations already declared in the manifest.
	Incremental bool

	// Backup writes the manifest to <manifest>.backup.<epoch-ms> before
	// the package manager runs.
	Backup bool

	// WorkspaceRoot installs into the workspace root manifest even when
	// invoked inside a member package.
	WorkspaceRoot bool

	// DryRun reports what would be installed without running anything or
	// writing any file.
	DryRun bool

	// Extra pins or adds packages on top of the recommendations.
	Extra []project.DependencySpec
}

// InstallResult reports the outcome of an install.
type InstallResult struct {
	Success bool

	// Installed, Skipped and Failed hold name@range entries.
	Installed []string
	Skipped   []string
	Failed    []string

	// Commands are the package manager invocations, run or planned.
	Commands []string

	ManifestPath string
	BackupPath   string
	ScriptsAdded []string

	// Conflicts are declared versions whose major disagrees with the
	// recommendation. They are reported, not changed.
	Conflicts []analyzer.DependencyConflict

	DryRun bool
	Error  error
}

// Installer runs package manager commands for a signature.
type Installer struct {
	logger   *slog.Logger
	runner   runner.Runner
	analyzer *analyzer.Analyzer
}

// New creates an Installer using r to run package manager commands.
func New(r runner.Runner) *Installer {
	return &Installer{
		logger:   slog.Default(),
		runner:   r,
		analyzer: analyzer.New(nil),
	}
}

// WithLogger sets the logger.
func (i *Installer) WithLogger(logger *slog.Logger) *Installer {
	if logger != nil {
		i.logger = logger
	}
	return i
}

// WithAnalyzer replaces the analyzer, e.g. to use a custom matrix.
func (i *Installer) WithAnalyzer(a *analyzer.Analyzer) *Installer {
	if a != nil {
		i.analyzer = a
	}
	return i
}

// ManifestDir returns the directory whose package.json the install edits:
// the workspace root when requested, else the current workspace member,
// else the project root.
func ManifestDir(sig *project.Signature, workspaceRoot bool) string {
	if !workspaceRoot && sig.InWorkspacePackage() {
		return filepath.Join(sig.RootDir, filepath.FromSlash(sig.WorkspaceInfo.CurrentPackage.Path))
	}
	return sig.RootDir
}

// Install adds the recommended dependencies for sig. A manifest that
// cannot be read or parsed is returned as an error; every other failure
// is reported in the result with the manifest restored.
func (i *Installer) Install(ctx context.Context, sig *project.Signature, opts Options) (*InstallResult, error) {
	dir := ManifestDir(sig, opts.WorkspaceRoot)
	path := filepath.Join(dir, manifest.FileName)

	m, err := manifest.LoadFile(path)
	if err != nil {
		return nil, err
	}

	recs := i.analyzer.RecommendFor(sig, opts.Extra...)
	analysis := i.analyzer.Analyze(m, recs)

	result := &InstallResult{
		ManifestPath: path,
		Conflicts:    analysis.Conflicts,
		DryRun:       opts.DryRun,
	}

	var toInstall []project.DependencySpec
	for _, rec := range analysis.Recommendations {
		if _, exists := analysis.ExistingDependencies[rec.Name]; opts.Incremental && exists {
			result.Skipped = append(result.Skipped, specString(rec))
			continue
		}
		toInstall = append(toInstall, rec)
	}

	if len(toInstall) == 0 {
		i.logger.Info("Nothing to install", slog.Int("skipped", len(result.Skipped)))
		result.Success = true
		return result, nil
	}

	atRoot := dir == sig.RootDir && sig.Architecture == project.ArchPnpmWorkspace
	batches := partition(sig.PackageManager, atRoot, toInstall)
	for _, b := range batches {
		result.Commands = append(result.Commands, b.String())
	}

	if opts.DryRun {
		for _, b := range batches {
			result.Installed = append(result.Installed, b.packages...)
		}
		result.Success = true
		return result, nil
	}

	tx, err := backup.Begin(path, opts.Backup)
	if err != nil {
		result.Error = errors.NewInstallError(nil, errors.PhaseBackup, err)
		return result, nil
	}
	result.BackupPath = tx.BackupPath()

	i.logger.Info("Installing dependencies",
		slog.String("manager", string(sig.PackageManager)),
		slog.String("dir", dir),
		slog.Int("packages", len(toInstall)))

	for _, b := range batches {
		i.logger.Debug("Running package manager", slog.String("command", b.String()))
		if _, err := i.runner.Run(ctx, dir, b.name, b.args...); err != nil {
			result.Failed = append(result.Failed, b.packages...)
			return i.abort(tx, result, errors.NewInstallError(b.packages, errors.PhaseInstall, err)), nil
		}
		result.Installed = append(result.Installed, b.packages...)
	}

	added, err := addScripts(path)
	if err != nil {
		return i.abort(tx, result, errors.NewInstallError(nil, errors.PhaseScripts, err)), nil
	}
	result.ScriptsAdded = added

	if err := tx.Commit(false); err != nil {
		i.logger.Warn("Could not remove manifest backup", slog.String("path", tx.BackupPath()), slog.Any("error", err))
	} else {
		result.BackupPath = ""
	}

	result.Success = true
	i.logger.Info("Dependencies installed",
		slog.Int("installed", len(result.Installed)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("scripts_added", len(added)))
	return result, nil
}

// abort restores the manifest and records cause. The backup path stays in
// the result only when the restore failed and the file was kept.
func (i *Installer) abort(tx *backup.Tx, result *InstallResult, cause error) *InstallResult {
	result.Success = false
	result.Error = cause

	if err := tx.Rollback(); err != nil {
		result.Error = errors.Join(cause, errors.NewInstallError(nil, errors.PhaseRollback, err))
		i.logger.Error("Manifest rollback failed", slog.String("backup", tx.BackupPath()), slog.Any("error", err))
	} else {
		i.logger.Warn("Install failed, manifest restored", slog.Any("error", cause))
	}
	result.BackupPath = tx.BackupPath()
	return result
}

// addScripts re-reads the manifest, since the package manager has
// rewritten it, and adds missing test scripts.
func addScripts(path string) ([]string, error) {
	m, err := manifest.LoadFile(path)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, s := range TestScripts {
		changed, err := m.SetEntry("scripts", s.Name, s.Command)
		if err != nil {
			return nil, fmt.Errorf("add script %q: %w", s.Name, err)
		}
		if changed {
			added = append(added, s.Name)
		}
	}
	if len(added) == 0 {
		return nil, nil
	}
	return added, m.Save()
}

func specString(d project.DependencySpec) string {
	if d.VersionRange == "" {
		return d.Name
	}
	return d.Name + "@" + d.VersionRange
}
