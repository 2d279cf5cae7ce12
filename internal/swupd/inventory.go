package swupd

import (
	"context"

	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/utils"
)

// Inventory fingerprints the vendor packages installed on this machine.
type Inventory interface {
	InstalledPackagesDigest(ctx context.Context) (string, error)
}

// PkgutilInventory digests the receipt database for vendor packages. The
// digest covers pkgutil's full plist dump, so any install or removal
// produces a new value. The exit status is ignored: an empty receipt
// set still digests to a stable value.
type PkgutilInventory struct {
	runner Runner
}

// NewPkgutilInventory returns an inventory backed by pkgutil.
func NewPkgutilInventory(runner Runner) *PkgutilInventory {
	return &PkgutilInventory{runner: runner}
}

// InstalledPackagesDigest implements Inventory.
func (p *PkgutilInventory) InstalledPackagesDigest(ctx context.Context) (string, error) {
	out, _, err := p.runner.Output(ctx, pkgutilTool,
		"--regexp", "--pkg-info-plist", `com\.apple\.*`)
	if err != nil {
		return "", models.NewError(models.ErrExec, pkgutilTool, err)
	}
	return utils.SHA256Bytes(out), nil
}
