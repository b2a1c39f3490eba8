// Package runner executes external commands such as package managers and
// the node binary.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/launchcg/testup/internal/errors"
)

// Runner executes a command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// Exec runs commands with os/exec.
type Exec struct {
	logger *slog.Logger
}

// NewExec creates an Exec runner.
func NewExec(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exec{logger: logger}
}

// Run starts name with args in dir. A missing executable returns a
// *errors.NotFoundError; a failing command folds its trimmed output into
// the error.
func (e *Exec) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, errors.NewNotFoundError("executable", name)
	}

	e.logger.Debug("Running command",
		slog.String("dir", dir),
		slog.String("cmd", name+" "+strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Call records one invocation made against a Fake.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// String renders the call as a shell-like command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Fake is a scripted Runner for tests. Responses are consumed in order;
// once exhausted every call succeeds with empty output.
type Fake struct {
	Calls     []Call
	Responses []Response

	// Effect, when set, runs for every call before its response is
	// returned, e.g. to edit files the way the real command would.
	Effect func(Call)
}

// Response is one scripted result for a Fake.
type Response struct {
	Output []byte
	Err    error
}

// Run records the call and returns the next scripted response.
func (f *Fake) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	f.Calls = append(f.Calls, call)
	if f.Effect != nil {
		f.Effect(call)
	}
	if len(f.Responses) == 0 {
		return nil, nil
	}
	r := f.Responses[0]
	f.Responses = f.Responses[1:]
	return r.Output, r.Err
}
