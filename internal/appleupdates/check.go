package appleupdates

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/thebrandnation/appleupdates/internal/catalog"
	"github.com/thebrandnation/appleupdates/internal/mirror"
	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/swupd"
	"github.com/thebrandnation/appleupdates/internal/utils"
)

// CheckAndRefresh runs one refresh cycle. The catalog is always
// refetched; the expensive applicable-updates check and the mirror
// rebuild only run when force is set or something changed since the
// last cycle (catalog content, installed packages, or staged
// downloads). A short-circuited cycle reports the previous outcome.
func (e *Engine) CheckAndRefresh(ctx context.Context, force bool) (*Outcome, error) {
	outcome := &Outcome{CycleID: e.beginCycle()}

	st, err := e.store.Load()
	if err != nil {
		e.fail(err)
		return nil, err
	}

	prevDigest, err := utils.SHA256File(e.fs, e.layout.DownloadCatalogPath())
	if err != nil {
		err = models.NewError(models.ErrReplication, e.layout.DownloadCatalogPath(), err)
		e.fail(err)
		return nil, err
	}

	e.transition(stateFetchingCatalog)
	fetched, err := e.fetchCatalog(ctx)
	if err != nil {
		e.fail(err)
		return nil, err
	}

	e.transition(stateExtractingCatalog)
	if err := e.extractCatalog(); err != nil {
		e.fail(err)
		return nil, err
	}

	refresh := force
	if force {
		e.log.Info("Forced software update check")
	}
	newDigest, err := utils.SHA256File(e.fs, e.layout.DownloadCatalogPath())
	if err != nil {
		err = models.NewError(models.ErrReplication, e.layout.DownloadCatalogPath(), err)
		e.fail(err)
		return nil, err
	}
	if fetched && newDigest != prevDigest {
		e.log.Info("Apple update catalog has changed")
		refresh = true
	}
	changed, err := e.installedPackagesChanged(ctx, st)
	if err != nil {
		e.log.Warnf("Could not fingerprint installed packages: %v", err)
	} else if changed {
		e.log.Info("Installed Apple packages have changed")
		refresh = true
	}
	pending, err := e.PendingUpdates()
	if err != nil {
		e.log.Warnf("Pending updates are unreadable: %v", err)
		pending = nil
	}
	if !e.downloadsComplete(pending) {
		e.log.Info("Downloaded updates do not match the list of available updates")
		refresh = true
	}

	if !refresh {
		e.log.Info("Skipping Apple Software Update check because the catalog, " +
			"installed packages, and staged downloads are unchanged")
		outcome.UpdatesAvailable = st.LastCheckFoundUpdates
		e.transition(stateDone)
		return outcome, nil
	}

	e.transition(stateDeterminingApplicable)
	updates, err := e.applicableUpdates(ctx)
	if err != nil {
		e.fail(err)
		return nil, err
	}
	outcome.Checked = true
	outcome.CheckedAt = time.Now()

	if len(updates) == 0 {
		e.log.Info("No applicable Apple Software Updates")
		st.LastCheckDate = outcome.CheckedAt
		st.LastCheckFoundUpdates = false
		if err := e.store.Save(st); err != nil {
			e.fail(err)
			return nil, err
		}
		e.clearPendingUpdates()
		e.transition(stateDone)
		return outcome, nil
	}

	e.transition(stateFiltering)
	extracted, err := catalog.ReadFile(e.fs, e.layout.ExtractedCatalogPath())
	if err != nil {
		e.fail(err)
		return nil, err
	}
	filtered, err := catalog.Filter(extracted, swupd.ProductKeys(updates))
	if err != nil {
		e.fail(err)
		return nil, err
	}
	if err := catalog.WriteFile(e.fs, e.layout.FilteredCatalogPath(), filtered); err != nil {
		e.fail(err)
		return nil, err
	}

	e.transition(stateCachingMetadata)
	if err := e.replicator.CacheMetadata(ctx, filtered); err != nil {
		e.fail(err)
		return nil, err
	}

	e.transition(stateRewritingVariants)
	if err := e.writeVariants(filtered); err != nil {
		e.fail(err)
		return nil, err
	}

	if err := e.writePendingUpdates(updates); err != nil {
		e.fail(err)
		return nil, err
	}

	st.LastCheckDate = outcome.CheckedAt
	st.LastCheckFoundUpdates = true
	if err := e.store.Save(st); err != nil {
		e.fail(err)
		return nil, err
	}

	e.transition(stateDone)
	outcome.UpdatesAvailable = true
	e.log.Infof("Software update mirror refreshed, %d update(s) available", len(updates))
	return outcome, nil
}

// UpdatesAvailable reports whether Apple updates are pending. With
// suppressCheck only the recorded pending list is consulted. Otherwise
// a cycle runs first: forced when asked or when the last successful
// check is older than the configured interval, staleness-guarded when
// newer. A failed cycle degrades to the recorded pending list.
func (e *Engine) UpdatesAvailable(ctx context.Context, force, suppressCheck bool) (bool, error) {
	if !suppressCheck {
		st, err := e.store.Load()
		if err != nil {
			return false, err
		}
		if !force {
			if st.LastCheckDate.IsZero() || time.Since(st.LastCheckDate) >= e.cfg.CheckInterval {
				force = true
			}
		}
		if _, err := e.CheckAndRefresh(ctx, force); err != nil {
			logrus.Warnf("Apple Software Update check failed: %v", err)
		}
	}

	pending, err := e.PendingUpdates()
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}

// fetchCatalog downloads the configured catalog into the durable root,
// reporting whether the fetch brought new content.
func (e *Engine) fetchCatalog(ctx context.Context) (bool, error) {
	catalogURL, err := e.catalogURL(ctx)
	if err != nil {
		return false, err
	}
	e.log.WithField("url", catalogURL).Info("Caching Apple Software Update catalog")

	changed, err := e.fetcher.Fetch(ctx, catalogURL, e.layout.DownloadCatalogPath(), true)
	if err != nil {
		return false, models.NewError(models.ErrReplication, catalogURL, err)
	}
	return changed, nil
}

// extractCatalog decompresses the raw catalog download into the
// extracted variant, copying it verbatim when it is not gzipped.
func (e *Engine) extractCatalog() error {
	src := e.layout.DownloadCatalogPath()
	data, err := afero.ReadFile(e.fs, src)
	if err != nil {
		return models.NewError(models.ErrReplication, src, err)
	}
	if utils.IsGzip(data) {
		e.log.Debug("Extracting gzipped catalog")
		if data, err = utils.GzipDecompress(data); err != nil {
			return models.NewError(models.ErrReplication, src, err)
		}
	}
	dest := e.layout.ExtractedCatalogPath()
	if err := utils.AtomicWriteFile(e.fs, dest, data, 0644); err != nil {
		return models.NewError(models.ErrReplication, dest, err)
	}
	return nil
}

func (e *Engine) applicableUpdates(ctx context.Context) ([]swupd.UpdateInfo, error) {
	if e.applicableValid {
		return e.applicable, nil
	}
	catalogURL := mirror.LocalFileURL(e.layout.ExtractedCatalogPath())
	updates, err := e.lister.ListApplicable(ctx, catalogURL)
	if err != nil {
		return nil, err
	}
	e.applicable = updates
	e.applicableValid = true
	return updates, nil
}

// writeVariants derives the two local catalogs from the filtered one:
// the download variant keeps payload URLs remote, the install variant
// maps everything local. Each variant is rewritten on its own copy.
func (e *Engine) writeVariants(filtered *catalog.Catalog) error {
	base := e.layout.LocalBaseURL()

	download := filtered.Copy()
	download.RewriteURLs(base, false)
	if err := catalog.WriteFile(e.fs, e.layout.LocalDownloadCatalogPath(), download); err != nil {
		return err
	}

	install := filtered.Copy()
	install.RewriteURLs(base, true)
	return catalog.WriteFile(e.fs, e.layout.LocalInstallCatalogPath(), install)
}
