package prefs

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"howett.net/plist"

	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/utils"
)

// State is the engine's durable memory between runs. The plist keys are
// the ones the classic client kept in its preferences domain.
type State struct {
	LastCheckDate           time.Time `plist:"LastAppleSoftwareUpdateCheck"`
	InstalledPackagesDigest string    `plist:"InstalledApplePackagesChecksum"`
	LastCheckFoundUpdates   bool      `plist:"LastCheckFoundUpdates"`
}

// Store reads and writes State as a property list file.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a store persisting at path.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Load returns the recorded state. A missing file reads as a fresh zero
// state; an unreadable one does too, so a corrupt file heals itself on
// the next save.
func (s *Store) Load() (*State, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, models.NewError(models.ErrInvalidConfig, s.path, err)
	}

	var st State
	if _, err := plist.Unmarshal(data, &st); err != nil {
		logrus.Warnf("State file %s is unreadable, starting fresh: %v", s.path, err)
		return &State{}, nil
	}
	return &st, nil
}

// Save persists the state atomically.
func (s *Store) Save(st *State) error {
	data, err := plist.MarshalIndent(st, plist.XMLFormat, "\t")
	if err != nil {
		return models.NewError(models.ErrInvalidConfig, s.path, err)
	}
	if err := utils.AtomicWriteFile(s.fs, s.path, data, 0644); err != nil {
		return models.NewError(models.ErrInvalidConfig, s.path, err)
	}
	return nil
}
