package appleupdates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/thebrandnation/appleupdates/internal/mirror"
	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/swupd"
)

// DownloadUpdates hands the download variant to the native updater so
// it stages every applicable payload locally. A failed pass resets the
// last-check mark, so the next scheduled run checks again rather than
// trusting an incomplete download.
func (e *Engine) DownloadUpdates(ctx context.Context) error {
	path := e.layout.LocalDownloadCatalogPath()
	exists, err := afero.Exists(e.fs, path)
	if err != nil {
		return models.NewError(models.ErrReplication, path, err)
	}
	if !exists {
		return models.NewError(models.ErrReplication, path,
			errors.New("missing local download catalog, run a check first"))
	}

	logrus.Info("Downloading available Apple Software Updates")
	result, err := e.installer.DownloadUpdates(ctx, mirror.LocalFileURL(path))
	if err != nil {
		e.resetLastCheck()
		return err
	}
	if result.ExitCode != 0 {
		e.resetLastCheck()
		return models.NewError(models.ErrExec, path,
			fmt.Errorf("updater download run exited with status %d", result.ExitCode))
	}
	return nil
}

// InstallUpdates runs the native updater against the fully local
// variant and reports whether a restart is needed. A completed install
// invalidates the mirror, so afterwards the temp tree is purged, the
// pending report is cleared, and the last-check mark is reset; the
// installed updates may be prerequisites for others, so the next run
// checks again soon.
func (e *Engine) InstallUpdates(ctx context.Context) (bool, error) {
	pending, err := e.PendingUpdates()
	restart := swupd.RestartNeeded(pending)
	if err != nil {
		logrus.Warnf("Pending updates are unreadable, assuming a restart will be needed: %v", err)
		restart = true
	}

	path := e.layout.LocalInstallCatalogPath()
	exists, statErr := afero.Exists(e.fs, path)
	if statErr != nil {
		return false, models.NewError(models.ErrReplication, path, statErr)
	}
	if !exists {
		return false, models.NewError(models.ErrReplication, path,
			errors.New("missing local install catalog"))
	}

	logrus.Info("Installing available Apple Software Updates")
	result, err := e.installer.InstallUpdates(ctx, mirror.LocalFileURL(path))
	if err != nil {
		return false, err
	}

	logInstallResults(classifyInstallResults(pending, result, time.Now()))
	if result.ExitCode != 0 {
		logrus.Errorf("softwareupdate error: %d", result.ExitCode)
	}

	if err := e.replicator.Purge(); err != nil {
		logrus.Warnf("Could not clear the mirror cache: %v", err)
	}
	e.clearPendingUpdates()
	e.resetLastCheck()

	return restart, nil
}

// resetLastCheck clears the recorded check time so the next scheduled
// run performs a full check.
func (e *Engine) resetLastCheck() {
	st, err := e.store.Load()
	if err != nil {
		logrus.Warnf("Could not load state: %v", err)
		return
	}
	st.LastCheckDate = time.Time{}
	st.LastCheckFoundUpdates = false
	if err := e.store.Save(st); err != nil {
		logrus.Warnf("Could not reset check state: %v", err)
	}
}
