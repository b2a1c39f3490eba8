// Package backup guards a file edit with a copy taken beforehand.
//
// A Tx is opened on a file, the caller mutates the file, then ends the
// Tx with Commit (keep the new content) or Rollback (restore the exact
// original bytes). Either way the file is left in the new state or the
// original state.
package backup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/launchcg/testup/internal/errors"
)

// Suffix separates the original file name from the backup timestamp.
const Suffix = ".backup."

// now is replaced in tests.
var now = time.Now

// Tx is a backup transaction on a single file.
type Tx struct {
	path       string
	backupPath string
	original   []byte
	mode       os.FileMode
	existed    bool
	done       bool
}

// Begin snapshots path into memory and, when persist is set, onto disk as
// <path>.backup.<epoch-ms>. A file that does not exist yet is recorded as
// absent and rolls back to absent.
func Begin(path string, persist bool) (*Tx, error) {
	tx := &Tx{path: path, mode: 0644}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("backup %s: is a directory", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "backup read "+path)
		}
		tx.original = data
		tx.mode = info.Mode().Perm()
		tx.existed = true
	case os.IsNotExist(err):
		return tx, nil
	default:
		return nil, errors.Wrap(err, "backup stat "+path)
	}

	if persist {
		backupPath, err := writeBackup(path, tx.original, tx.mode)
		if err != nil {
			return nil, err
		}
		tx.backupPath = backupPath
	}
	return tx, nil
}

// writeBackup writes data next to path under a millisecond timestamp,
// bumping the timestamp until the name is free.
func writeBackup(path string, data []byte, mode os.FileMode) (string, error) {
	ms := now().UnixMilli()
	for attempt := 0; attempt < 1000; attempt++ {
		candidate := path + Suffix + strconv.FormatInt(ms+int64(attempt), 10)
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, "create backup")
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(candidate)
			return "", errors.Wrap(err, "write backup")
		}
		if err := f.Close(); err != nil {
			os.Remove(candidate)
			return "", errors.Wrap(err, "write backup")
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free backup name for %s", path)
}

// Path returns the guarded file.
func (tx *Tx) Path() string { return tx.path }

// BackupPath returns the on-disk backup, or "" when none was written.
func (tx *Tx) BackupPath() string { return tx.backupPath }

// Original returns the bytes captured by Begin.
func (tx *Tx) Original() []byte { return tx.original }

// Existed reports whether the file existed when the Tx began.
func (tx *Tx) Existed() bool { return tx.existed }

// Commit ends the Tx keeping the current file content. With keepBackup
// unset the on-disk backup is deleted.
func (tx *Tx) Commit(keepBackup bool) error {
	if tx.done {
		return nil
	}
	tx.done = true
	if keepBackup || tx.backupPath == "" {
		return nil
	}
	if err := os.Remove(tx.backupPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove backup")
	}
	tx.backupPath = ""
	return nil
}

// Rollback restores the original bytes (or removes a file that did not
// exist). After a successful restore the on-disk backup is deleted; if
// the restore fails the backup is kept and the error names it.
func (tx *Tx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true

	var err error
	if tx.existed {
		err = os.WriteFile(tx.path, tx.original, tx.mode)
	} else if rmErr := os.Remove(tx.path); rmErr != nil && !os.IsNotExist(rmErr) {
		err = rmErr
	}
	if err != nil {
		if tx.backupPath != "" {
			return fmt.Errorf("restore %s failed, original kept at %s: %w", tx.path, tx.backupPath, err)
		}
		return fmt.Errorf("restore %s failed: %w", tx.path, err)
	}

	if tx.backupPath != "" {
		if err := os.Remove(tx.backupPath); err == nil {
			tx.backupPath = ""
		}
	}
	return nil
}
