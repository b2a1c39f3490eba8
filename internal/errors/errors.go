// Package errors defines the typed errors returned by testup operations.
//
// Detection never fails; these types cover the hard failures around it:
//   - ConfigError: tool configuration (testup.hcl, flags) with location info
//   - ManifestError: package.json missing, unreadable or malformed
//   - InstallError: dependency installation failure with the failing phase
//   - ResolveError: a conflict resolution strategy could not be applied
//   - ValidationError: an option value outside its allowed set
//   - NotFoundError: a required file or tool is absent
//
// Every type wrapping a cause implements Unwrap for use with Is and As.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports a problem in a configuration source.
type ConfigError struct {
	File    string
	Line    int // 0 if unknown
	Column  int // 0 if unknown
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	location := e.File
	switch {
	case e.Line > 0 && e.Column > 0:
		location = fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	case e.Line > 0:
		location = fmt.Sprintf("%s:%d", e.File, e.Line)
	}

	if e.Err != nil {
		return fmt.Sprintf("config error at %s: %s: %v", location, e.Message, e.Err)
	}
	return fmt.Sprintf("config error at %s: %s", location, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ManifestError reports a package.json that could not be used.
type ManifestError struct {
	Path string
	Op   string // "read", "parse", "write"
	Err  error
}

func (e *ManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest error: %s failed for %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("manifest error: %s failed for %s", e.Op, e.Path)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// Install phases.
const (
	PhaseResolve  = "resolve"
	PhaseBackup   = "backup"
	PhaseInstall  = "install"
	PhaseScripts  = "scripts"
	PhaseRollback = "rollback"
)

// InstallError reports a failed dependency installation step.
type InstallError struct {
	Packages []string
	Phase    string
	Err      error
}

func (e *InstallError) Error() string {
	target := "dependencies"
	if len(e.Packages) > 0 {
		target = strings.Join(e.Packages, ", ")
	}
	if e.Err != nil {
		return fmt.Sprintf("install error for %s during %s: %v", target, e.Phase, e.Err)
	}
	return fmt.Sprintf("install error for %s during %s", target, e.Phase)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// ResolveError reports a conflict that a strategy could not resolve.
type ResolveError struct {
	ConflictID string
	Strategy   string
	Message    string
	Err        error
}

func (e *ResolveError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "resolve error for %s", e.ConflictID)
	if e.Strategy != "" {
		fmt.Fprintf(&sb, " (strategy %s)", e.Strategy)
	}
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// ValidationError reports an option value that is not allowed.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("invalid %s %q (allowed: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// NotFoundError reports a missing file, directory or executable.
type NotFoundError struct {
	What string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Name)
}

// NewConfigError creates a ConfigError. Use line=0 and col=0 if the
// location is unknown.
func NewConfigError(file string, line, col int, msg string, err error) *ConfigError {
	return &ConfigError{File: file, Line: line, Column: col, Message: msg, Err: err}
}

// NewManifestError creates a ManifestError.
func NewManifestError(path, op string, err error) *ManifestError {
	return &ManifestError{Path: path, Op: op, Err: err}
}

// NewInstallError creates an InstallError for the given phase.
func NewInstallError(packages []string, phase string, err error) *InstallError {
	return &InstallError{Packages: packages, Phase: phase, Err: err}
}

// NewResolveError creates a ResolveError.
func NewResolveError(conflictID, strategy, msg string, err error) *ResolveError {
	return &ResolveError{ConflictID: conflictID, Strategy: strategy, Message: msg, Err: err}
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, allowed []string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Allowed: allowed}
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(what, name string) *NotFoundError {
	return &NotFoundError{What: what, Name: name}
}

// Re-exports so callers need a single errors import.
var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// Wrap annotates err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
