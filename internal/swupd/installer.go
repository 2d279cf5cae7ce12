package swupd

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// RunResult is the structured outcome of one native updater run.
type RunResult struct {
	ExitCode        int
	Installed       []string // display names reported installed
	MissingPackages []string // display names that failed on a missing payload
}

// Installer drives the native updater against a catalog URL.
type Installer interface {
	DownloadUpdates(ctx context.Context, catalogURL string) (*RunResult, error)
	InstallUpdates(ctx context.Context, catalogURL string) (*RunResult, error)
}

// SoftwareUpdateInstaller shells out to the native tool. It reports the
// exit status; the per-update outcome sets stay empty here because the
// tool announces those only on its progress stream, which is not parsed.
type SoftwareUpdateInstaller struct {
	runner Runner
}

// NewSoftwareUpdateInstaller returns an installer backed by the native
// tool.
func NewSoftwareUpdateInstaller(runner Runner) *SoftwareUpdateInstaller {
	return &SoftwareUpdateInstaller{runner: runner}
}

// DownloadUpdates has the native updater download every applicable
// update into its own staging area.
func (s *SoftwareUpdateInstaller) DownloadUpdates(ctx context.Context, catalogURL string) (*RunResult, error) {
	return s.run(ctx, catalogURL, "-d", "-a")
}

// InstallUpdates has the native updater install every applicable update.
func (s *SoftwareUpdateInstaller) InstallUpdates(ctx context.Context, catalogURL string) (*RunResult, error) {
	return s.run(ctx, catalogURL, "-i", "-a")
}

func (s *SoftwareUpdateInstaller) run(ctx context.Context, catalogURL string, args ...string) (*RunResult, error) {
	full := append([]string{"--CatalogURL", catalogURL}, args...)
	logrus.Debugf("Running %s %s", softwareUpdateTool, strings.Join(full, " "))

	_, code, err := s.runner.Output(ctx, softwareUpdateTool, full...)
	if err != nil {
		return nil, err
	}
	return &RunResult{ExitCode: code}, nil
}
