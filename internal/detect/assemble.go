package detect

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/launchcg/testup/internal/config"
	"github.com/launchcg/testup/internal/errors"
	"github.com/launchcg/testup/internal/lockfile"
	"github.com/launchcg/testup/internal/manifest"
	"github.com/launchcg/testup/internal/project"
	"github.com/launchcg/testup/internal/runner"
)

// Assembler builds the project signature by running every detector.
type Assembler struct {
	logger *slog.Logger
	cache  *manifest.Cache
	runner runner.Runner
}

// NewAssembler creates an Assembler. A nil logger uses slog.Default; a
// nil runner skips querying the node binary.
func NewAssembler(logger *slog.Logger, r runner.Runner) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		logger: logger,
		cache:  manifest.NewCache(manifest.DefaultCacheSize),
		runner: r,
	}
}

// Assemble detects everything about the project at opts.Cwd.
//
// Independent detectors run concurrently and are joined before workspace
// members are enumerated, since that step needs the architecture. The
// only error is a missing or malformed package.json in the invocation
// directory.
func (a *Assembler) Assemble(ctx context.Context, opts config.ModuleOptions) (*project.Signature, error) {
	cwd := opts.Cwd
	if cwd == "" {
		cwd = "."
	}
	currentDir, err := filepath.Abs(cwd)
	if err != nil {
		return nil, errors.Wrap(err, "resolve current directory")
	}

	current, err := a.cache.Load(currentDir)
	if err != nil {
		return nil, err
	}

	rootDir, arch := Architecture(currentDir, a.cache)
	var root *manifest.Manifest
	if rootDir != currentDir {
		root, _ = a.cache.Load(rootDir)
	}

	a.logger.Debug("Assembling signature",
		slog.String("current", currentDir),
		slog.String("root", rootDir),
		slog.String("architecture", string(arch)))

	in := FrameworkInput{
		Manifest:     current,
		RootManifest: root,
		CurrentDir:   currentDir,
		RootDir:      rootDir,
	}

	var (
		pm          lockfile.Result
		isTS        bool
		tsEvidence  string
		tests       ExistingTests
		framework   Detection
		deps        map[string]string
		nodeVersion string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		field := current.PackageManager()
		if field == "" && root != nil {
			field = root.PackageManager()
		}
		pm = lockfile.Detect(field, currentDir, rootDir)
		return nil
	})
	g.Go(func() error {
		isTS, tsEvidence = TypeScript(current, currentDir, rootDir)
		return nil
	})
	g.Go(func() error {
		tests = Tests(current, currentDir, rootDir)
		return nil
	})
	g.Go(func() error {
		if opts.Stack != "" {
			framework = Detection{Stack: opts.Stack, Layer: LayerOverride, Evidence: "--stack"}
			return nil
		}
		framework = Framework(in)
		return nil
	})
	g.Go(func() error {
		deps = MergedDependencies(in)
		return nil
	})
	g.Go(func() error {
		nodeVersion = NodeVersion(gctx, a.runner, currentDir, current)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Arch != "" && opts.Arch != arch {
		a.logger.Debug("Architecture overridden",
			slog.String("detected", string(arch)),
			slog.String("override", string(opts.Arch)))
		arch = opts.Arch
	}
	workspace := Workspace(rootDir, currentDir, arch, a.cache)

	a.logger.Info("Project detected",
		slog.String("stack", string(framework.Stack)),
		slog.String("stack_layer", string(framework.Layer)),
		slog.String("architecture", string(arch)),
		slog.String("package_manager", string(pm.Manager)),
		slog.Bool("typescript", isTS),
		slog.String("typescript_evidence", tsEvidence))

	return project.NewSignature(project.Signature{
		RootDir:          rootDir,
		CurrentDir:       currentDir,
		TechStack:        framework.Stack,
		StackConfirmed:   framework.Confirmed(),
		StackEvidence:    framework.Evidence,
		Architecture:     arch,
		PackageManager:   pm.Manager,
		IsTypeScript:     isTS,
		NodeVersion:      nodeVersion,
		HasExistingTests: tests.Found(),
		WorkspaceInfo:    workspace,
	}, project.Collections{
		DependencyVersions:     deps,
		ExistingTestFrameworks: tests.Frameworks,
		ExistingConfigs:        tests.Configs,
	}), nil
}
