package install

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeInterpreter writes a shell script that records its arguments and
// exits with the given code, standing in for python3.
func fakeInterpreter(t *testing.T, exitCode int) (script, argsFile string) {
	t.Helper()

	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	script = filepath.Join(dir, "python3")

	content := "#!/bin/sh\necho \"$@\" > " + argsFile + "\nexit 0\n"
	if exitCode != 0 {
		content = "#!/bin/sh\necho \"$@\" > " + argsFile + "\necho 'resolution failed' >&2\nexit 1\n"
	}
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatalf("write fake interpreter: %v", err)
	}
	return script, argsFile
}

func TestInstall(t *testing.T) {
	script, argsFile := fakeInterpreter(t, 0)

	installer := New(Options{Upgrade: true, ExtraArgs: []string{"--no-deps"}})
	installer.lookPath = func(string) (string, error) { return script, nil }

	outcome, err := installer.Install(context.Background(), []string{"/tmp/pkg one", "/tmp/pkg2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", outcome.ExitCode)
	}
	if len(outcome.InstalledPaths) != 2 {
		t.Errorf("installed paths = %v", outcome.InstalledPaths)
	}

	recorded, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	args := strings.TrimSpace(string(recorded))
	if !strings.HasPrefix(args, "-m pip install --upgrade --no-deps") {
		t.Errorf("argument order wrong: %q", args)
	}
	// A path with a space arrives as one argument, not two
	if !strings.Contains(args, "/tmp/pkg one") {
		t.Errorf("path with space mangled: %q", args)
	}
}

func TestInstallFailure(t *testing.T) {
	script, _ := fakeInterpreter(t, 1)

	installer := New(Options{})
	installer.lookPath = func(string) (string, error) { return script, nil }

	_, err := installer.Install(context.Background(), []string{"/tmp/pkg"})

	var failed *InstallationFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected InstallationFailedError, got %T: %v", err, err)
	}
	if failed.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", failed.ExitCode)
	}
	if !strings.Contains(failed.Output, "resolution failed") {
		t.Errorf("output not captured: %q", failed.Output)
	}
}

func TestInstallNoPaths(t *testing.T) {
	installer := New(Options{})
	if _, err := installer.Install(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty path list")
	}
}

func TestInstallMissingInterpreter(t *testing.T) {
	installer := New(Options{Interpreter: "definitely-not-a-real-interpreter"})
	installer.lookPath = func(name string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	}
	if _, err := installer.Install(context.Background(), []string{"/tmp/pkg"}); err == nil {
		t.Fatal("expected error for missing interpreter")
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	extracted := filepath.Join(dir, "extracted")
	if err := os.MkdirAll(filepath.Join(extracted, "pkg"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	archive := filepath.Join(dir, "release.tar.gz")
	if err := os.WriteFile(archive, []byte("data"), 0644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	outcome := &Outcome{}
	errs := Cleanup(outcome, extracted, archive, filepath.Join(dir, "never-existed"), "")
	if len(errs) != 0 {
		t.Fatalf("unexpected cleanup errors: %v", errs)
	}

	if _, err := os.Stat(extracted); !os.IsNotExist(err) {
		t.Error("extracted directory not removed")
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("archive not removed")
	}
	if len(outcome.CleanupActions) != 2 {
		t.Errorf("cleanup actions = %v", outcome.CleanupActions)
	}
}
