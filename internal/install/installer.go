// Package install hands verified, extracted packages to the Python
// interpreter's package manager and cleans up working files afterwards.
//
// The subprocess is always invoked with an explicit argument vector; no
// shell is involved, so package paths containing spaces or metacharacters
// are passed through verbatim.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// DefaultInterpreter is used when Options.Interpreter is empty.
const DefaultInterpreter = "python3"

// Options configures a single installation run.
type Options struct {
	Interpreter string   // Python interpreter to invoke (default: python3)
	Upgrade     bool     // Pass --upgrade to replace an existing installation
	ExtraArgs   []string // Additional arguments inserted before the package paths
}

// Outcome reports what an installation run did.
type Outcome struct {
	ExitCode       int
	InstalledPaths []string
	CleanupActions []string
}

// Installer runs pip against extracted package directories.
type Installer struct {
	opts Options

	// lookPath is swapped in tests to avoid depending on an
	// interpreter being present on the test host.
	lookPath func(string) (string, error)
}

// New creates an Installer with the given options.
func New(opts Options) *Installer {
	if opts.Interpreter == "" {
		opts.Interpreter = DefaultInterpreter
	}
	return &Installer{
		opts:     opts,
		lookPath: exec.LookPath,
	}
}

// Install installs the given package paths with pip. All paths are passed
// in a single invocation so pip can resolve them together.
func (i *Installer) Install(ctx context.Context, paths []string) (*Outcome, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no package paths to install")
	}

	interpreter, err := i.lookPath(i.opts.Interpreter)
	if err != nil {
		return nil, fmt.Errorf("locate interpreter %s: %w", i.opts.Interpreter, err)
	}

	args := []string{"-m", "pip", "install"}
	if i.opts.Upgrade {
		args = append(args, "--upgrade")
	}
	args = append(args, i.opts.ExtraArgs...)
	args = append(args, paths...)

	cmd := exec.CommandContext(ctx, interpreter, args...)

	// Scrub environment: only pass through what the interpreter needs.
	// PYTHON* and PIP_* variables from the caller must not steer the
	// installation.
	cmd.Env = []string{
		"HOME=" + os.Getenv("HOME"),
		"PATH=" + os.Getenv("PATH"),
		"USER=" + os.Getenv("USER"),
		"LANG=" + os.Getenv("LANG"),
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("installation interrupted: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &InstallationFailedError{
				ExitCode: exitErr.ExitCode(),
				Output:   string(out),
			}
		}
		return nil, fmt.Errorf("run installer: %w", err)
	}

	return &Outcome{
		ExitCode:       0,
		InstalledPaths: append([]string(nil), paths...),
	}, nil
}

// Cleanup removes working files left over from a completed run. Failures
// are collected rather than aborting: a missing file is not an error, and
// a file that cannot be removed never undoes a successful installation.
func Cleanup(outcome *Outcome, targets ...string) []error {
	var errs []error
	for _, target := range targets {
		if target == "" {
			continue
		}
		if _, err := os.Stat(target); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", target, err))
			continue
		}
		if outcome != nil {
			outcome.CleanupActions = append(outcome.CleanupActions, "removed "+target)
		}
	}
	return errs
}
