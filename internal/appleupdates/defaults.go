package appleupdates

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/swupd"
)

// Default software update catalogs by OS release.
var defaultCatalogURLs = map[string]string{
	"10.5": "http://swscan.apple.com/content/catalogs/others/index-leopard.merged-1.sucatalog",
	"10.6": "http://swscan.apple.com/content/catalogs/others/index-leopard-snowleopard.merged-1.sucatalog",
	"10.7": "http://swscan.apple.com/content/catalogs/others/index-lion-snowleopard-leopard.merged-1.sucatalog.gz",
}

// DefaultCatalogURL picks the catalog for an OS version, tolerating a
// patch component: "10.6.8" selects the 10.6 catalog.
func DefaultCatalogURL(osVersion string) (string, error) {
	version, err := semver.NewVersion(osVersion)
	if err != nil {
		return "", models.NewError(models.ErrInvalidConfig, osVersion, err)
	}
	release := fmt.Sprintf("%d.%d", version.Major(), version.Minor())
	catalogURL, ok := defaultCatalogURLs[release]
	if !ok {
		return "", models.NewError(models.ErrInvalidConfig, osVersion,
			fmt.Errorf("no default software update catalog for this OS version"))
	}
	return catalogURL, nil
}

// catalogURL resolves the catalog to mirror: an explicit configured URL
// wins, otherwise the default for the configured or probed OS version.
func (e *Engine) catalogURL(ctx context.Context) (string, error) {
	if e.cfg.CatalogURL != "" {
		return e.cfg.CatalogURL, nil
	}
	osVersion := e.cfg.OSVersion
	if osVersion == "" {
		probed, err := swupd.OSVersion(ctx, e.runner)
		if err != nil {
			return "", err
		}
		osVersion = probed
	}
	return DefaultCatalogURL(osVersion)
}
