package swupd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner scripts command responses and records every invocation.
type fakeRunner struct {
	calls   [][]string
	handler func(name string, args []string) ([]byte, int, error)
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.handler != nil {
		return f.handler(name, args)
	}
	return nil, 0, nil
}

func (f *fakeRunner) lastCall() []string {
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func TestOSVersion(t *testing.T) {
	runner := &fakeRunner{handler: func(name string, args []string) ([]byte, int, error) {
		return []byte("10.6.8\n"), 0, nil
	}}

	version, err := OSVersion(context.Background(), runner)
	require.NoError(t, err)
	assert.Equal(t, "10.6.8", version)
	assert.Equal(t, []string{swVersTool, "-productVersion"}, runner.lastCall())
}

func TestOSVersionFailures(t *testing.T) {
	runner := &fakeRunner{handler: func(name string, args []string) ([]byte, int, error) {
		return nil, 1, nil
	}}
	_, err := OSVersion(context.Background(), runner)
	assert.Error(t, err)

	runner = &fakeRunner{handler: func(name string, args []string) ([]byte, int, error) {
		return nil, 0, errors.New("no such file")
	}}
	_, err = OSVersion(context.Background(), runner)
	assert.Error(t, err)

	runner = &fakeRunner{handler: func(name string, args []string) ([]byte, int, error) {
		return []byte("  \n"), 0, nil
	}}
	_, err = OSVersion(context.Background(), runner)
	assert.Error(t, err, "blank version output should be rejected")
}
