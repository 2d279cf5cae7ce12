package appleupdates

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/swupd"
	"github.com/thebrandnation/appleupdates/internal/utils"
)

// Per-update install statuses.
const (
	InstallStatusSuccessful     = 0
	InstallStatusMissingPackage = -1
	InstallStatusUnknown        = -2
)

// InstallResult records the outcome of one update install attempt.
type InstallResult struct {
	DisplayName string
	Version     string
	ProductKey  string
	Status      int
	Time        time.Time
}

// classifyInstallResults matches each pending update against the
// updater's structured outcome sets. An update in neither set failed
// with no record of success or failure.
func classifyInstallResults(pending []swupd.UpdateInfo, result *swupd.RunResult, now time.Time) []InstallResult {
	installed := toSet(result.Installed)
	missing := toSet(result.MissingPackages)

	results := make([]InstallResult, 0, len(pending))
	for _, update := range pending {
		r := InstallResult{
			DisplayName: update.DisplayName,
			Version:     update.Version,
			ProductKey:  update.ProductKey,
			Time:        now,
		}
		switch {
		case installed[update.DisplayName]:
			r.Status = InstallStatusSuccessful
		case missing[update.DisplayName]:
			r.Status = InstallStatusMissingPackage
		default:
			r.Status = InstallStatusUnknown
		}
		results = append(results, r)
	}
	return results
}

// logInstallResults writes one report line per update and a warning for
// each failure.
func logInstallResults(results []InstallResult) {
	for _, r := range results {
		var status string
		switch r.Status {
		case InstallStatusSuccessful:
			status = "SUCCESSFUL"
		case InstallStatusMissingPackage:
			status = "FAILED due to missing package."
			logrus.Warnf("Apple update %s, %s failed. A sub-package was missing on disk at time of install.",
				r.DisplayName, r.ProductKey)
		default:
			status = "FAILED for unknown reason"
			logrus.Warnf("Apple update %s, %s failed to install. No record of success or failure.",
				r.DisplayName, r.ProductKey)
		}
		logrus.Infof("Apple Software Update install of %s-%s: %s",
			r.DisplayName, r.Version, status)
	}
}

// PendingUpdates reads the recorded pending-updates report. A missing
// file means none are pending.
func (e *Engine) PendingUpdates() ([]swupd.UpdateInfo, error) {
	path := e.layout.PendingUpdatesPath()
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, models.NewError(models.ErrInvalidConfig, path, err)
	}
	updates, err := swupd.UnmarshalPendingUpdates(data)
	if err != nil {
		return nil, models.NewError(models.ErrCatalogParse, path, err)
	}
	return updates, nil
}

func (e *Engine) writePendingUpdates(updates []swupd.UpdateInfo) error {
	path := e.layout.PendingUpdatesPath()
	data, err := swupd.MarshalPendingUpdates(updates)
	if err != nil {
		return models.NewError(models.ErrCatalogParse, path, err)
	}
	if err := utils.AtomicWriteFile(e.fs, path, data, 0644); err != nil {
		return models.NewError(models.ErrReplication, path, err)
	}
	return nil
}

// clearPendingUpdates removes the pending report; already absent is
// fine.
func (e *Engine) clearPendingUpdates() {
	if err := e.fs.Remove(e.layout.PendingUpdatesPath()); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Could not remove the pending updates file: %v", err)
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
