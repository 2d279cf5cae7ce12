package mirror

import (
	"context"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/thebrandnation/appleupdates/internal/catalog"
	"github.com/thebrandnation/appleupdates/internal/fetch"
	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/utils"
)

// Replicator places remote resources into the mirror tree.
type Replicator struct {
	fs      afero.Fs
	fetcher fetch.Fetcher
	layout  *Layout
	log     *logrus.Entry
}

// NewReplicator wires a replicator over fs and fetcher.
func NewReplicator(fs afero.Fs, fetcher fetch.Fetcher, layout *Layout) *Replicator {
	return &Replicator{
		fs:      fs,
		fetcher: fetcher,
		layout:  layout,
		log:     logrus.WithField("component", "replicator"),
	}
}

// Replicate downloads one resource into the mirror tree and returns its
// local path. With onlyIfMissing set, an existing copy short-circuits
// without touching the network; metadata files never change for a given
// URL, so that is the normal mode for them.
func (r *Replicator) Replicate(ctx context.Context, rawURL string, onlyIfMissing bool) (string, error) {
	local, err := r.layout.LocalPath(rawURL)
	if err != nil {
		return "", err
	}

	if onlyIfMissing {
		exists, err := afero.Exists(r.fs, local)
		if err != nil {
			return "", models.NewError(models.ErrReplication, rawURL, err)
		}
		if exists {
			r.log.Debugf("%s already replicated", rawURL)
			return local, nil
		}
	}

	if err := utils.EnsureDir(r.fs, filepath.Dir(local)); err != nil {
		return "", models.NewError(models.ErrReplication, rawURL, err)
	}
	if _, err := r.fetcher.Fetch(ctx, rawURL, local, true); err != nil {
		return "", models.NewError(models.ErrReplication, rawURL, err)
	}
	return local, nil
}

// CacheMetadata replicates the server metadata, package metadata, and
// distribution files for every product in the catalog, skipping anything
// the mirror already holds. Package payloads are not fetched here; the
// native updater downloads those itself.
func (r *Replicator) CacheMetadata(ctx context.Context, cat *catalog.Catalog) error {
	for _, key := range cat.ProductKeys() {
		product, ok := cat.Product(key)
		if !ok {
			continue
		}
		log := r.log.WithField("product", key)
		log.Info("Caching metadata")

		if u, ok := product.ServerMetadataURL(); ok {
			if _, err := r.Replicate(ctx, u, true); err != nil {
				return err
			}
		}
		for _, pkg := range product.Packages() {
			if u, ok := pkg.MetadataURL(); ok {
				if _, err := r.Replicate(ctx, u, true); err != nil {
					return err
				}
			}
		}
		for lang, u := range product.Distributions() {
			log.Debugf("Caching %s distribution", lang)
			if _, err := r.Replicate(ctx, u, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// Purge removes the temp mirror tree, keeping the durable root. Callers
// only purge once no refresh or install is in flight.
func (r *Replicator) Purge() error {
	r.log.Info("Clearing mirror cache")
	return r.fs.RemoveAll(r.layout.MirrorRoot())
}
