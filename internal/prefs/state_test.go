package prefs

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateLoadMissing(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/cache/swupd/state.plist")

	st, err := store.Load()
	require.NoError(t, err)
	assert.True(t, st.LastCheckDate.IsZero())
	assert.Empty(t, st.InstalledPackagesDigest)
	assert.False(t, st.LastCheckFoundUpdates)
}

func TestStateRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/cache/swupd/state.plist")

	want := &State{
		LastCheckDate:           time.Date(2011, 10, 26, 6, 11, 7, 0, time.UTC),
		InstalledPackagesDigest: "0f343b0931126a20f133d67c2b018a3b",
		LastCheckFoundUpdates:   true,
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStateCorruptFileStartsFresh(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cache/swupd/state.plist", []byte("<plist><d"), 0644))
	store := NewStore(fs, "/cache/swupd/state.plist")

	st, err := store.Load()
	require.NoError(t, err)
	assert.True(t, st.LastCheckDate.IsZero())

	// The next save repairs the file
	require.NoError(t, store.Save(&State{LastCheckFoundUpdates: true}))
	again, err := store.Load()
	require.NoError(t, err)
	assert.True(t, again.LastCheckFoundUpdates)
}

func TestStateSaveOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/cache/swupd/state.plist")

	require.NoError(t, store.Save(&State{InstalledPackagesDigest: "first"}))
	require.NoError(t, store.Save(&State{InstalledPackagesDigest: "second"}))

	st, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", st.InstalledPackagesDigest)
}
