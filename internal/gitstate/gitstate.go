// Package gitstate reports uncommitted changes on files that are about to
// be modified, so a run can warn or refuse before touching them.
package gitstate

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"

	"github.com/launchcg/testup/internal/errors"
)

// FileState is the git status of one file.
type FileState struct {
	// Path is relative to the repository root, slash separated.
	Path     string
	Staging  git.StatusCode
	Worktree git.StatusCode
}

// Untracked reports whether git does not know the file.
func (f FileState) Untracked() bool {
	return f.Worktree == git.Untracked
}

func (f FileState) String() string {
	return fmt.Sprintf("%c%c %s", f.Staging, f.Worktree, f.Path)
}

// Report lists the target files with uncommitted changes.
type Report struct {
	RepoRoot string
	Dirty    []FileState
}

// Clean reports whether none of the checked files has changes.
func (r *Report) Clean() bool {
	return r == nil || len(r.Dirty) == 0
}

// Check opens the repository containing dir and returns the status of
// each path that is modified, staged or untracked. Paths may be absolute
// or relative to dir. A dir outside any repository gives a nil report.
func Check(dir string, paths []string) (*Report, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open git repository")
	}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no worktree to protect.
		return nil, nil
	}
	status, err := wt.Status()
	if err != nil {
		return nil, errors.Wrap(err, "read git status")
	}

	root := canonical(wt.Filesystem.Root())
	report := &Report{RepoRoot: root}

	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		rel, err := filepath.Rel(root, canonical(p))
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		st, ok := status[rel]
		if !ok || (st.Staging == git.Unmodified && st.Worktree == git.Unmodified) {
			continue
		}
		report.Dirty = append(report.Dirty, FileState{Path: rel, Staging: st.Staging, Worktree: st.Worktree})
	}

	sort.Slice(report.Dirty, func(i, j int) bool { return report.Dirty[i].Path < report.Dirty[j].Path })
	return report, nil
}

// canonical resolves symlinks so repository and target paths compare
// equal. The parent is resolved when the file itself does not exist.
func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	dir, base := filepath.Split(filepath.Clean(path))
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(resolved, base)
	}
	return path
}
