// Package appleupdates implements the engine that maintains a local,
// filtered mirror of the Apple Software Update catalog and drives the
// native updater against it.
package appleupdates

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/thebrandnation/appleupdates/internal/fetch"
	"github.com/thebrandnation/appleupdates/internal/mirror"
	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/prefs"
	"github.com/thebrandnation/appleupdates/internal/swupd"
)

// cycleState names the phases of a refresh cycle.
type cycleState int

const (
	stateIdle cycleState = iota
	stateFetchingCatalog
	stateExtractingCatalog
	stateDeterminingApplicable
	stateFiltering
	stateCachingMetadata
	stateRewritingVariants
	stateDone
	stateFailed
)

// String returns the state name for logging
func (s cycleState) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateFetchingCatalog:
		return "FetchingCatalog"
	case stateExtractingCatalog:
		return "ExtractingCatalog"
	case stateDeterminingApplicable:
		return "DeterminingApplicable"
	case stateFiltering:
		return "Filtering"
	case stateCachingMetadata:
		return "CachingMetadata"
	case stateRewritingVariants:
		return "RewritingVariants"
	case stateDone:
		return "Done"
	case stateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Outcome reports what one refresh cycle concluded.
type Outcome struct {
	CycleID          uuid.UUID
	UpdatesAvailable bool
	Checked          bool // whether a full applicable check ran, not a short circuit
	CheckedAt        time.Time
}

// Engine sequences catalog replication: fetch, extract, determine
// applicable updates, filter, metadata caching, and the URL rewrite
// passes. An Engine runs one cycle at a time; its methods are not safe
// for concurrent use.
type Engine struct {
	cfg        *models.Config
	fs         afero.Fs
	layout     *mirror.Layout
	fetcher    fetch.Fetcher
	replicator *mirror.Replicator
	lister     swupd.Lister
	installer  swupd.Installer
	inventory  swupd.Inventory
	runner     swupd.Runner
	store      *prefs.Store

	state cycleState
	log   *logrus.Entry

	// Determining applicable updates shells out to the native updater,
	// so a cycle asks at most once and memoizes the answer.
	applicable      []swupd.UpdateInfo
	applicableValid bool
}

// New wires an engine over the real filesystem and native tools.
func New(cfg *models.Config) *Engine {
	fs := afero.NewOsFs()
	runner := swupd.ExecRunner{}
	layout := mirror.NewLayout(cfg.CacheDir)
	fetcher := fetch.NewHTTPFetcher(fs, cfg.FetchTimeout)
	lister := swupd.NewSoftwareUpdateLister(fs, runner, layout.ApplicableUpdatesPath())
	return newEngine(cfg, fs, fetcher, lister,
		swupd.NewSoftwareUpdateInstaller(runner),
		swupd.NewPkgutilInventory(runner),
		runner)
}

// newEngine is the seam tests use to inject fakes.
func newEngine(cfg *models.Config, fs afero.Fs, fetcher fetch.Fetcher,
	lister swupd.Lister, installer swupd.Installer,
	inventory swupd.Inventory, runner swupd.Runner) *Engine {
	layout := mirror.NewLayout(cfg.CacheDir)
	return &Engine{
		cfg:        cfg,
		fs:         fs,
		layout:     layout,
		fetcher:    fetcher,
		replicator: mirror.NewReplicator(fs, fetcher, layout),
		lister:     lister,
		installer:  installer,
		inventory:  inventory,
		runner:     runner,
		store:      prefs.NewStore(fs, layout.StatePath()),
		state:      stateIdle,
		log:        logrus.WithField("component", "appleupdates"),
	}
}

// Layout exposes the path layout, for status display and tooling.
func (e *Engine) Layout() *mirror.Layout {
	return e.layout
}

// LastCheck reports when the last successful check completed; zero when
// none is recorded.
func (e *Engine) LastCheck() (time.Time, error) {
	st, err := e.store.Load()
	if err != nil {
		return time.Time{}, err
	}
	return st.LastCheckDate, nil
}

// Reset discards the mirror, the pending report, and the recorded check
// time, so the next run starts from nothing.
func (e *Engine) Reset() error {
	if err := e.replicator.Purge(); err != nil {
		return err
	}
	e.clearPendingUpdates()
	e.resetLastCheck()
	return nil
}

func (e *Engine) transition(next cycleState) {
	e.log.WithFields(logrus.Fields{
		"from": e.state.String(),
		"to":   next.String(),
	}).Debug("State transition")
	e.state = next
}

func (e *Engine) fail(err error) {
	e.transition(stateFailed)
	e.log.Errorf("Update cycle failed: %v", err)
}

// beginCycle stamps a fresh cycle id into the log context and drops the
// previous cycle's applicable-updates memo.
func (e *Engine) beginCycle() uuid.UUID {
	id := uuid.New()
	e.log = logrus.WithFields(logrus.Fields{
		"component": "appleupdates",
		"cycle":     id.String(),
	})
	e.applicable = nil
	e.applicableValid = false
	e.state = stateIdle
	return id
}
