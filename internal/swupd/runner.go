// Package swupd wraps the native software update tooling behind narrow
// interfaces, so the refresh engine can be driven by fakes and never
// parses human-oriented command output.
package swupd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/thebrandnation/appleupdates/internal/models"
)

// Native tool locations.
const (
	softwareUpdateTool = "/usr/sbin/softwareupdate"
	pkgutilTool        = "/usr/sbin/pkgutil"
	swVersTool         = "/usr/bin/sw_vers"
)

// Runner executes one external command, returning its standard output
// and exit status. err is reserved for failing to run the command at
// all; a non-zero exit comes back through code.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) (out []byte, code int, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Output implements Runner.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logrus.Debugf("%s exited with status %d: %s",
				name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
			return stdout.Bytes(), exitErr.ExitCode(), nil
		}
		return nil, 0, models.NewError(models.ErrExec, name, err)
	}
	return stdout.Bytes(), 0, nil
}

// OSVersion probes the product version of the running system.
func OSVersion(ctx context.Context, runner Runner) (string, error) {
	out, code, err := runner.Output(ctx, swVersTool, "-productVersion")
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", models.NewError(models.ErrExec, swVersTool,
			fmt.Errorf("exit status %d", code))
	}
	version := strings.TrimSpace(string(out))
	if version == "" {
		return "", models.NewError(models.ErrExec, swVersTool,
			errors.New("empty product version"))
	}
	return version, nil
}
