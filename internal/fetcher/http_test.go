package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
)

func testFetcher() *HTTPFetcher {
	return NewHTTPFetcher(config.FetchConfig{
		TimeoutSecs:    5,
		MaxRetries:     3,
		RequestsPerSec: 100, // keep tests fast
		UserAgent:      "sbir-analytics-test/1.0",
	})
}

func TestDownload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sbir-analytics-test/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("piid,vendor\n"))
	}))
	defer srv.Close()

	body, err := testFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "piid,vendor\n", string(data))
}

func TestDownloadRetriesServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownloadExhaustsRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
}

func TestDownloadHalvesRateOn429(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := testFetcher()
	before := f.limiterFor(srv.URL).Limit()

	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = body.Close()

	assert.Equal(t, before/2, f.limiterFor(srv.URL).Limit(), "a 429 halves the host's rate")
}

func TestDownloadNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	// 4xx other than 429 is terminal, not retried.
	_, err := testFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestDownloadToFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("file contents"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "extract.csv")
	n, err := testFetcher().DownloadToFile(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, int64(len("file contents")), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file contents", string(data))
}

func TestDownloadIfChanged(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	f := testFetcher()

	body, etag, changed, err := f.DownloadIfChanged(context.Background(), srv.URL, "")
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, `"v1"`, etag)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, "fresh", string(data))

	body, etag, changed, err = f.DownloadIfChanged(context.Background(), srv.URL, `"v1"`)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, body)
	assert.Equal(t, `"v1"`, etag, "unchanged response keeps the caller's etag")
}

func TestLimiterForConcurrent(t *testing.T) {
	t.Parallel()
	f := testFetcher()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				f.limiterFor(fmt.Sprintf("https://host-%d.example.gov/data/%d.csv", j, i))
			}
		}(i)
	}
	wg.Wait()

	// Same host keeps resolving to the same limiter.
	assert.Same(t,
		f.limiterFor("https://host-0.example.gov/a"),
		f.limiterFor("https://host-0.example.gov/b"),
	)
}
