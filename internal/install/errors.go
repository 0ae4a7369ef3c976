package install

import "fmt"

// InstallationFailedError indicates the installer subprocess exited non-zero.
// Output carries the combined stdout/stderr of the failed invocation.
type InstallationFailedError struct {
	ExitCode int
	Output   string
}

func (e *InstallationFailedError) Error() string {
	return fmt.Sprintf("installation failed with exit code %d", e.ExitCode)
}
