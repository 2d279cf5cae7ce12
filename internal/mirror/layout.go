// Package mirror owns the on-disk layout of the local software update
// mirror and the replication of remote resources into it.
package mirror

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/thebrandnation/appleupdates/internal/models"
)

// Names under the managed cache root. The durable root survives install
// cycles; the mirror root is the temp tree purged after a completed
// install.
const (
	durableDirName = "swupd"
	mirrorDirName  = "mirror"

	catalogsSubdir = "content/catalogs"

	downloadCatalogName      = "apple.sucatalog"
	extractedCatalogName     = "apple_index.sucatalog"
	filteredCatalogName      = "filtered_index.sucatalog"
	localDownloadCatalogName = "local_download.sucatalog"
	localInstallCatalogName  = "local_install.sucatalog"

	applicableUpdatesName = "ApplicableUpdates.plist"
	pendingUpdatesName    = "AppleUpdates.plist"
	stateFileName         = "state.plist"
)

// Layout derives every path the engine persists from the managed cache
// root.
type Layout struct {
	cacheDir string
}

// NewLayout returns the layout rooted at cacheDir.
func NewLayout(cacheDir string) *Layout {
	return &Layout{cacheDir: filepath.Clean(cacheDir)}
}

// CacheDir returns the managed cache root.
func (l *Layout) CacheDir() string { return l.cacheDir }

// DurableRoot returns the directory that survives install cycles.
func (l *Layout) DurableRoot() string {
	return filepath.Join(l.cacheDir, durableDirName)
}

// MirrorRoot returns the temp mirror tree that local catalog URLs point
// into.
func (l *Layout) MirrorRoot() string {
	return filepath.Join(l.DurableRoot(), mirrorDirName)
}

// CatalogsDir returns the directory holding the catalog variants.
func (l *Layout) CatalogsDir() string {
	return filepath.Join(l.MirrorRoot(), filepath.FromSlash(catalogsSubdir))
}

// DownloadCatalogPath returns the raw, possibly gzipped, catalog download.
func (l *Layout) DownloadCatalogPath() string {
	return filepath.Join(l.DurableRoot(), downloadCatalogName)
}

// ExtractedCatalogPath returns the decompressed full catalog.
func (l *Layout) ExtractedCatalogPath() string {
	return filepath.Join(l.CatalogsDir(), extractedCatalogName)
}

// FilteredCatalogPath returns the catalog reduced to applicable products.
func (l *Layout) FilteredCatalogPath() string {
	return filepath.Join(l.CatalogsDir(), filteredCatalogName)
}

// LocalDownloadCatalogPath returns the variant with metadata URLs local
// and payload URLs remote.
func (l *Layout) LocalDownloadCatalogPath() string {
	return filepath.Join(l.CatalogsDir(), localDownloadCatalogName)
}

// LocalInstallCatalogPath returns the fully localized variant.
func (l *Layout) LocalInstallCatalogPath() string {
	return filepath.Join(l.CatalogsDir(), localInstallCatalogName)
}

// ApplicableUpdatesPath returns where the native updater's structured
// list result is written.
func (l *Layout) ApplicableUpdatesPath() string {
	return filepath.Join(l.MirrorRoot(), applicableUpdatesName)
}

// PendingUpdatesPath returns the recorded pending-updates report.
func (l *Layout) PendingUpdatesPath() string {
	return filepath.Join(l.DurableRoot(), pendingUpdatesName)
}

// StatePath returns the engine's durable state file.
func (l *Layout) StatePath() string {
	return filepath.Join(l.DurableRoot(), stateFileName)
}

// LocalBaseURL returns the file://localhost URL for the mirror root.
// Rewritten catalog URLs are this base plus the resource's URL path.
func (l *Layout) LocalBaseURL() string {
	return LocalFileURL(l.MirrorRoot())
}

// LocalFileURL returns the file://localhost URL for an absolute path,
// percent-escaping where the path needs it.
func LocalFileURL(p string) string {
	u := url.URL{Scheme: "file", Host: "localhost", Path: filepath.ToSlash(p)}
	return u.String()
}

// LocalPath maps a resource URL to its location under the mirror root.
// The mapping is a pure function of the URL's path component, so it can
// always be recomputed and never needs an index. A path that would
// escape the mirror root is refused.
func (l *Layout) LocalPath(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", models.NewError(models.ErrReplication, rawURL, err)
	}
	rel := path.Clean(strings.TrimLeft(parsed.Path, "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", models.NewError(models.ErrReplication, rawURL,
			fmt.Errorf("url path escapes the mirror root"))
	}
	return filepath.Join(l.MirrorRoot(), filepath.FromSlash(rel)), nil
}
