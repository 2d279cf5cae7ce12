// Package fetch provides the change-detecting, resumable HTTP fetch the
// mirror replicator is built on.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/thebrandnation/appleupdates/internal/models"
)

// partialSuffix marks an interrupted transfer kept for resuming.
const partialSuffix = ".download"

// Fetcher downloads url into dest atomically. changed reports whether the
// destination's content differs from what was already there, so callers
// can use the result as a change signal. When resume is set an
// implementation continues a previously interrupted transfer instead of
// restarting it.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, resume bool) (changed bool, err error)
}

// HTTPFetcher fetches over HTTP(S). An existing destination turns the
// request conditional via If-Modified-Since; an interrupted transfer
// leaves a partial file beside the destination that a resumed fetch
// continues with a Range request.
type HTTPFetcher struct {
	fs     afero.Fs
	client *http.Client
}

// NewHTTPFetcher returns a fetcher writing through fs. A zero timeout
// means no per-request limit beyond the caller's context.
func NewHTTPFetcher(fs afero.Fs, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		fs:     fs,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, dest string, resume bool) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, models.NewError(models.ErrFetch, url, err)
	}

	partial := dest + partialSuffix
	var offset int64
	if resume {
		if info, err := f.fs.Stat(partial); err == nil && info.Size() > 0 {
			offset = info.Size()
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
			logrus.Debugf("Resuming download of %s at byte %d", url, offset)
		}
	}
	if offset == 0 {
		if info, err := f.fs.Stat(dest); err == nil {
			req.Header.Set("If-Modified-Since", info.ModTime().UTC().Format(http.TimeFormat))
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return false, models.NewError(models.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		logrus.Debugf("%s not modified", url)
		return false, nil
	case http.StatusOK:
		// Server ignored the range request, start over.
		offset = 0
	case http.StatusPartialContent:
	default:
		return false, models.NewError(models.ErrFetch, url,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	if err := f.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, models.NewError(models.ErrFetch, url, err)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := f.fs.OpenFile(partial, flags, 0644)
	if err != nil {
		return false, models.NewError(models.ErrFetch, url, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		// Keep the partial file so a later fetch can resume it.
		out.Close()
		return false, models.NewError(models.ErrFetch, url, err)
	}
	if err := out.Close(); err != nil {
		return false, models.NewError(models.ErrFetch, url, err)
	}

	if err := f.fs.Rename(partial, dest); err != nil {
		return false, models.NewError(models.ErrFetch, url, err)
	}
	if t, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		// Carry the server's timestamp so the next conditional request
		// asks the right question.
		_ = f.fs.Chtimes(dest, time.Now(), t)
	}
	return true, nil
}
