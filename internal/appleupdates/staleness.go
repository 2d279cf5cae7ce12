package appleupdates

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"
	"howett.net/plist"

	"github.com/thebrandnation/appleupdates/internal/prefs"
	"github.com/thebrandnation/appleupdates/internal/swupd"
)

// downloadIndexName is the native updater's download index, kept in the
// updates staging directory.
const downloadIndexName = "index.plist"

// installedPackagesChanged compares the installed-packages digest with
// the stored one, recording the new digest when they differ.
func (e *Engine) installedPackagesChanged(ctx context.Context, st *prefs.State) (bool, error) {
	digest, err := e.inventory.InstalledPackagesDigest(ctx)
	if err != nil {
		return false, err
	}
	if digest == st.InstalledPackagesDigest {
		return false, nil
	}
	st.InstalledPackagesDigest = digest
	return true, nil
}

// downloadsComplete verifies that every pending update is staged in the
// native updater's download area according to its index. No pending
// updates counts as complete.
func (e *Engine) downloadsComplete(pending []swupd.UpdateInfo) bool {
	if len(pending) == 0 {
		return true
	}

	indexPath := filepath.Join(e.cfg.UpdatesDir, downloadIndexName)
	data, err := afero.ReadFile(e.fs, indexPath)
	if err != nil {
		e.log.Debugf("No download index at %s", indexPath)
		return false
	}
	var index struct {
		ProductPaths map[string]string `plist:"ProductPaths"`
	}
	if _, err := plist.Unmarshal(data, &index); err != nil {
		e.log.Warnf("Downloaded update index is invalid: %v", err)
		return false
	}

	for _, update := range pending {
		if update.ProductKey == "" {
			continue
		}
		dir, ok := index.ProductPaths[update.ProductKey]
		if !ok {
			e.log.Debugf("Update product not downloaded: %s", update.Name)
			return false
		}
		exists, err := afero.DirExists(e.fs, filepath.Join(e.cfg.UpdatesDir, dir))
		if err != nil || !exists {
			e.log.Debugf("Update product directory missing: %s", update.Name)
			return false
		}
	}
	return true
}
