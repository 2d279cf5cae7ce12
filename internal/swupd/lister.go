package swupd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/thebrandnation/appleupdates/internal/models"
)

// Lister reports the updates applicable to this machine against a given
// catalog.
type Lister interface {
	ListApplicable(ctx context.Context, catalogURL string) ([]UpdateInfo, error)
}

// SoftwareUpdateLister runs the native updater in list mode, which
// writes a structured result plist that gets parsed here. The download
// flag makes the updater resolve each update fully, so the result names
// concrete products.
type SoftwareUpdateLister struct {
	fs         afero.Fs
	runner     Runner
	resultPath string
}

// NewSoftwareUpdateLister returns a lister writing its result plist to
// resultPath.
func NewSoftwareUpdateLister(fs afero.Fs, runner Runner, resultPath string) *SoftwareUpdateLister {
	return &SoftwareUpdateLister{fs: fs, runner: runner, resultPath: resultPath}
}

// ListApplicable implements Lister.
func (l *SoftwareUpdateLister) ListApplicable(ctx context.Context, catalogURL string) ([]UpdateInfo, error) {
	// A result left over from an earlier run must not satisfy this one.
	if err := l.fs.Remove(l.resultPath); err != nil && !os.IsNotExist(err) {
		return nil, models.NewError(models.ErrExec, l.resultPath, err)
	}

	logrus.Info("Checking for available Apple Software Updates")
	_, code, err := l.runner.Output(ctx, softwareUpdateTool,
		"--CatalogURL", catalogURL, "-l", "-f", l.resultPath)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, models.NewError(models.ErrExec, softwareUpdateTool,
			fmt.Errorf("list run exited with status %d", code))
	}

	data, err := afero.ReadFile(l.fs, l.resultPath)
	if err != nil {
		if os.IsNotExist(err) {
			// The updater writes no result when nothing applies.
			return nil, nil
		}
		return nil, models.NewError(models.ErrExec, l.resultPath, err)
	}

	updates, err := parsePhaseResults(data)
	if err != nil {
		logrus.Warnf("Applicable updates result is unreadable: %v", err)
		return nil, nil
	}
	logrus.Infof("Found %d applicable update(s)", len(updates))
	return updates, nil
}
