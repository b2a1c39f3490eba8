// Package detect works out what kind of frontend project lives in a
// directory: its UI framework, workspace topology, package manager,
// language and existing test setup.
//
// Detectors never fail. A missing or unreadable file is simply the
// absence of a signal, and each detector falls back to a documented
// default. Only Assemble returns an error, when the invocation directory
// has no usable package.json.
package detect

import (
	"io"
	"os"

	"github.com/dustin/go-humanize"
)

// maxSourceBytes caps how much of a source file static analysis reads.
const maxSourceBytes = 500 * humanize.KiByte

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// readHead returns up to maxSourceBytes of the file at path.
func readHead(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSourceBytes))
	if err != nil {
		return "", false
	}
	return string(data), true
}
