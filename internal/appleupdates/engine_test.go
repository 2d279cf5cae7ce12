package appleupdates

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/prefs"
	"github.com/thebrandnation/appleupdates/internal/swupd"
	"github.com/thebrandnation/appleupdates/internal/utils"
)

// Catalog and content URLs the fixture serves.
const (
	testCatalogURL = "https://swscan.example.com/content/catalogs/others/index-leopard-snowleopard.merged-1.sucatalog.gz"

	secUpdSMDURL  = "https://swscan.example.com/content/meta/041-5487.smd"
	secUpdPkgURL  = "https://swcdn.example.com/content/downloads/SecUpd2011-006.pkg"
	secUpdPkmURL  = "https://swscan.example.com/content/downloads/SecUpd2011-006.pkm"
	secUpdDistURL = "https://swscan.example.com/content/distributions/041-5487.English.dist"

	otherSMDURL  = "https://swscan.example.com/content/meta/041-9999.smd"
	otherPkgURL  = "https://swcdn.example.com/content/downloads/iTunesX.pkg"
	otherPkmURL  = "https://swscan.example.com/content/downloads/iTunesX.pkm"
	otherDistURL = "https://swscan.example.com/content/distributions/041-9999.English.dist"
)

const testCatalog = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict>
<key>CatalogVersion</key><integer>2</integer>
<key>Products</key><dict>
<key>041-5487</key><dict>
	<key>ServerMetadataURL</key>
	<string>` + secUpdSMDURL + `</string>
	<key>Packages</key>
	<array><dict>
		<key>URL</key>
		<string>` + secUpdPkgURL + `</string>
		<key>MetadataURL</key>
		<string>` + secUpdPkmURL + `</string>
		<key>Size</key>
		<integer>8232960</integer>
	</dict></array>
	<key>Distributions</key>
	<dict>
		<key>English</key>
		<string>` + secUpdDistURL + `</string>
	</dict>
</dict>
<key>041-9999</key><dict>
	<key>ServerMetadataURL</key>
	<string>` + otherSMDURL + `</string>
	<key>Packages</key>
	<array><dict>
		<key>URL</key>
		<string>` + otherPkgURL + `</string>
		<key>MetadataURL</key>
		<string>` + otherPkmURL + `</string>
	</dict></array>
	<key>Distributions</key>
	<dict>
		<key>English</key>
		<string>` + otherDistURL + `</string>
	</dict>
</dict>
</dict>
</dict></plist>`

// fakeFetcher serves canned bodies and reports changed the way an
// If-Modified-Since fetch would: false when the destination already
// holds the body.
type fakeFetcher struct {
	fs     afero.Fs
	bodies map[string][]byte
	fail   map[string]bool
	calls  map[string]int
}

func newFakeFetcher(fs afero.Fs) *fakeFetcher {
	return &fakeFetcher{
		fs:     fs,
		bodies: map[string][]byte{},
		fail:   map[string]bool{},
		calls:  map[string]int{},
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, dest string, resume bool) (bool, error) {
	f.calls[url]++
	if f.fail[url] {
		return false, models.NewError(models.ErrFetch, url, errors.New("connection reset"))
	}
	body, ok := f.bodies[url]
	if !ok {
		body = []byte("contents of " + url)
	}
	if existing, err := afero.ReadFile(f.fs, dest); err == nil && bytes.Equal(existing, body) {
		return false, nil
	}
	return true, afero.WriteFile(f.fs, dest, body, 0644)
}

type fakeLister struct {
	updates []swupd.UpdateInfo
	err     error
	calls   int
	lastURL string
}

func (l *fakeLister) ListApplicable(ctx context.Context, catalogURL string) ([]swupd.UpdateInfo, error) {
	l.calls++
	l.lastURL = catalogURL
	return l.updates, l.err
}

type fakeInstaller struct {
	result       *swupd.RunResult
	err          error
	downloadURLs []string
	installURLs  []string
}

func (i *fakeInstaller) DownloadUpdates(ctx context.Context, catalogURL string) (*swupd.RunResult, error) {
	i.downloadURLs = append(i.downloadURLs, catalogURL)
	return i.result, i.err
}

func (i *fakeInstaller) InstallUpdates(ctx context.Context, catalogURL string) (*swupd.RunResult, error) {
	i.installURLs = append(i.installURLs, catalogURL)
	return i.result, i.err
}

type fakeInventory struct {
	digest string
	err    error
}

func (v *fakeInventory) InstalledPackagesDigest(ctx context.Context) (string, error) {
	return v.digest, v.err
}

type stubRunner struct {
	out   []byte
	code  int
	err   error
	calls int
}

func (r *stubRunner) Output(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	r.calls++
	return r.out, r.code, r.err
}

// engineFixture wires an engine over fakes and a memory filesystem,
// serving the gzipped test catalog.
type engineFixture struct {
	fs        afero.Fs
	cfg       *models.Config
	engine    *Engine
	fetcher   *fakeFetcher
	lister    *fakeLister
	installer *fakeInstaller
	inventory *fakeInventory
	runner    *stubRunner
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	fs := afero.NewMemMapFs()

	gz, err := utils.GzipCompress([]byte(testCatalog))
	require.NoError(t, err)
	fetcher := newFakeFetcher(fs)
	fetcher.bodies[testCatalogURL] = gz

	fx := &engineFixture{
		fs: fs,
		cfg: &models.Config{
			CacheDir:      "/cache",
			UpdatesDir:    "/Library/Updates",
			CatalogURL:    testCatalogURL,
			CheckInterval: 24 * time.Hour,
			FetchTimeout:  time.Minute,
		},
		fetcher:   fetcher,
		lister:    &fakeLister{},
		installer: &fakeInstaller{result: &swupd.RunResult{}},
		inventory: &fakeInventory{digest: "digest-1"},
		runner:    &stubRunner{},
	}
	fx.engine = newEngine(fx.cfg, fs, fx.fetcher, fx.lister, fx.installer, fx.inventory, fx.runner)
	return fx
}

// applicableUpdates is what the lister reports for the fixture catalog:
// one keyed security update that wants a restart and one legacy keyless
// update.
func applicableUpdates() []swupd.UpdateInfo {
	return []swupd.UpdateInfo{
		{
			ProductKey:    "041-5487",
			Name:          "SecUpd2011-006",
			DisplayName:   "Security Update 2011-006",
			Version:       "1.0",
			SizeKB:        8040,
			RestartAction: swupd.RestartActionRequired,
		},
		{
			Name:        "iTunesX",
			DisplayName: "iTunes",
			Version:     "10.5",
			SizeKB:      152244,
		},
	}
}

func (fx *engineFixture) loadState(t *testing.T) *prefs.State {
	t.Helper()
	st, err := prefs.NewStore(fx.fs, fx.engine.Layout().StatePath()).Load()
	require.NoError(t, err)
	return st
}

func (fx *engineFixture) saveState(t *testing.T, st *prefs.State) {
	t.Helper()
	require.NoError(t, prefs.NewStore(fx.fs, fx.engine.Layout().StatePath()).Save(st))
}

func (fx *engineFixture) refresh(t *testing.T) *Outcome {
	t.Helper()
	outcome, err := fx.engine.CheckAndRefresh(context.Background(), true)
	require.NoError(t, err)
	return outcome
}
