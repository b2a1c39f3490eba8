package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/launchcg/testup/internal/backup"
	"github.com/launchcg/testup/internal/config"
	"github.com/launchcg/testup/internal/errors"
	"github.com/launchcg/testup/internal/jsconfig"
	"github.com/launchcg/testup/internal/manifest"
)

// Options controls a single resolution.
type Options struct {
	// Strategy to apply; "auto" or empty uses the conflict's suggestion.
	Strategy string

	// BackupOriginal writes <file>.backup.<epoch-ms> before mutating.
	// The backup strategy always does.
	BackupOriginal bool

	// PreserveComments carries the leading comment block of the original
	// file into replaced content.
	PreserveComments bool
}

// Result reports what a resolution did.
type Result struct {
	ConflictID string
	Resolved   bool
	Strategy   string
	FilePath   string
	Changes    []string
	Errors     []string
	BackupPath string
}

func (r *Result) fail(err error) Result {
	r.Resolved = false
	r.Errors = append(r.Errors, err.Error())
	return *r
}

// Resolver applies strategies to conflicts.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger uses slog.Default.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve applies opts.Strategy to c. Every strategy except manual is
// safe to repeat against the file it produced.
func (r *Resolver) Resolve(ctx context.Context, c ConfigConflict, opts Options) Result {
	strategy := opts.Strategy
	if strategy == "" || strategy == config.StrategyAuto {
		strategy = c.SuggestedStrategy
	}

	res := Result{ConflictID: c.ID, Strategy: strategy, FilePath: c.FilePath}

	if !c.Allows(strategy) {
		return res.fail(errors.NewResolveError(c.ID, strategy,
			fmt.Sprintf("strategy not available (allowed: %s)", strings.Join(c.AvailableStrategies, ", ")), nil))
	}

	var out Result
	switch strategy {
	case config.StrategyManual:
		out = res.fail(errors.NewResolveError(c.ID, strategy, "manual resolution required: "+c.Description, nil))
	case config.StrategySkip:
		res.Resolved = true
		res.Changes = append(res.Changes, fmt.Sprintf("skipped %s, file left untouched", filepath.Base(c.FilePath)))
		out = res
	case config.StrategyReplace:
		out = r.replace(c, res, opts.BackupOriginal, opts.PreserveComments)
	case config.StrategyBackup:
		out = r.replace(c, res, true, opts.PreserveComments)
	case config.StrategyMerge:
		out = r.merge(ctx, c, res, opts.BackupOriginal)
	default:
		out = res.fail(errors.NewResolveError(c.ID, strategy, "unknown strategy", nil))
	}

	r.logger.Debug("Conflict resolution",
		slog.String("id", c.ID),
		slog.String("strategy", strategy),
		slog.Bool("resolved", out.Resolved),
		slog.Int("changes", len(out.Changes)))
	return out
}

func (r *Resolver) replace(c ConfigConflict, res Result, backupOriginal, preserveComments bool) Result {
	if c.Desired == "" {
		return res.fail(errors.NewResolveError(c.ID, res.Strategy, "no generated content to write", nil))
	}

	original, err := os.ReadFile(c.FilePath)
	if err != nil && !os.IsNotExist(err) {
		return res.fail(errors.NewResolveError(c.ID, res.Strategy, "read original", err))
	}

	content := c.Desired
	if preserveComments {
		content = withLeadingComment(string(original), content)
	}

	backupPath, err := writeGuarded(c.FilePath, []byte(content), backupOriginal)
	res.BackupPath = backupPath
	if err != nil {
		return res.fail(errors.NewResolveError(c.ID, res.Strategy, "write", err))
	}

	res.Resolved = true
	res.Changes = append(res.Changes, fmt.Sprintf("replaced %s (%s)", filepath.Base(c.FilePath), humanize.Bytes(uint64(len(content)))))
	if backupPath != "" {
		res.Changes = append(res.Changes, "original saved to "+filepath.Base(backupPath))
	}
	return res
}

func (r *Resolver) merge(ctx context.Context, c ConfigConflict, res Result, backupOriginal bool) Result {
	original, err := os.ReadFile(c.FilePath)
	if err != nil {
		return res.fail(errors.NewResolveError(c.ID, res.Strategy, "read original", err))
	}

	var (
		merged  []byte
		changes []string
	)
	switch c.Kind() {
	case KindViteConfig:
		merged, changes, err = mergeViteConfig(ctx, c, original)
	case KindSetupFile:
		merged, changes = mergeSetupFile(original, c.Desired)
	case KindPackageJSON:
		merged, changes, err = mergeManifest(c.FilePath, original, c.Desired)
	default:
		err = fmt.Errorf("no merge for %s files", c.Kind())
	}
	if err != nil {
		return res.fail(errors.NewResolveError(c.ID, res.Strategy, "merge", err))
	}

	res.Resolved = true
	if merged == nil {
		res.Changes = append(res.Changes, changes...)
		return res
	}

	backupPath, err := writeGuarded(c.FilePath, merged, backupOriginal)
	res.BackupPath = backupPath
	if err != nil {
		return res.fail(errors.NewResolveError(c.ID, res.Strategy, "write", err))
	}
	res.Changes = append(res.Changes, changes...)
	return res
}

// writeGuarded writes data to path inside a backup transaction. Backups
// taken during conflict resolution are kept; a failed write restores the
// original.
func writeGuarded(path string, data []byte, keepBackup bool) (string, error) {
	tx, err := backup.Begin(path, keepBackup)
	if err != nil {
		return "", err
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		backupPath := tx.BackupPath()
		if rbErr := tx.Rollback(); rbErr != nil {
			return backupPath, errors.Join(err, rbErr)
		}
		return "", err
	}
	return tx.BackupPath(), tx.Commit(true)
}

// mergeViteConfig splices the desired test member into the existing
// config object. A nil result means the file already has one.
func mergeViteConfig(ctx context.Context, c ConfigConflict, original []byte) ([]byte, []string, error) {
	name := filepath.Base(c.FilePath)
	obj, err := jsconfig.Locate(ctx, name, original)
	if err != nil {
		return nil, nil, err
	}
	if obj.HasTest {
		return nil, []string{fmt.Sprintf("test section already present in %s, not re-inserted", name)}, nil
	}

	member, ok := jsconfig.Member(ctx, name, []byte(c.Desired), "test")
	if !ok {
		return nil, nil, fmt.Errorf("generated config for %s has no test section", name)
	}
	merged := jsconfig.Insert(original, obj, member)
	return merged, []string{fmt.Sprintf("added test section to %s (located by %s)", name, obj.Via)}, nil
}

// mergeSetupFile prepends the desired import lines that the file lacks.
func mergeSetupFile(original []byte, desired string) ([]byte, []string) {
	present := make(map[string]bool)
	for _, line := range strings.Split(string(original), "\n") {
		present[normalizeImport(line)] = true
	}

	var missing []string
	for _, line := range strings.Split(desired, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "import ") || present[normalizeImport(line)] {
			continue
		}
		missing = append(missing, line)
	}
	if len(missing) == 0 {
		return nil, []string{"required imports already present"}
	}

	merged := strings.Join(missing, "\n") + "\n" + string(original)
	changes := make([]string, len(missing))
	for i, line := range missing {
		changes[i] = "added " + line
	}
	return []byte(merged), changes
}

func normalizeImport(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ";")
	return strings.ReplaceAll(line, `"`, `'`)
}

// mergeManifest adds the fragment's scripts and devDependencies without
// overwriting existing entries. Dependencies declared in any section are
// left alone.
func mergeManifest(path string, original []byte, desired string) ([]byte, []string, error) {
	m, err := manifest.Parse(path, original)
	if err != nil {
		return nil, nil, err
	}
	fragment, err := manifest.ParseObject([]byte(desired))
	if err != nil {
		return nil, nil, fmt.Errorf("generated package.json fragment: %w", err)
	}

	var changes []string
	for _, section := range packageSections {
		entries, ok := fragment.Object(section.name)
		if !ok {
			continue
		}
		for _, name := range entries.Keys() {
			var value string
			if !entries.Get(name, &value) {
				continue
			}
			if section.name == manifest.SectionDevDependencies {
				if _, declared := m.DeclaredVersion(name); declared {
					continue
				}
			}
			added, err := m.SetEntry(section.name, name, value)
			if err != nil {
				return nil, nil, err
			}
			if added {
				changes = append(changes, fmt.Sprintf("added %s.%s = %q", section.name, name, value))
			}
		}
	}
	if len(changes) == 0 {
		return nil, []string{"package.json already has every entry"}, nil
	}

	data, err := m.Marshal()
	if err != nil {
		return nil, nil, err
	}
	return data, changes, nil
}

// leadingComment returns the comment block at the top of a JS source.
func leadingComment(src string) string {
	trimmed := strings.TrimLeft(src, " \t\r\n")
	if strings.HasPrefix(trimmed, "/*") {
		if end := strings.Index(trimmed, "*/"); end >= 0 {
			return trimmed[:end+2]
		}
		return ""
	}

	var lines []string
	for _, line := range strings.Split(trimmed, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "//") {
			break
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	return strings.Join(lines, "\n")
}

func withLeadingComment(original, content string) string {
	comment := leadingComment(original)
	if comment == "" || strings.HasPrefix(strings.TrimLeft(content, " \t\r\n"), comment) {
		return content
	}
	return comment + "\n" + content
}
