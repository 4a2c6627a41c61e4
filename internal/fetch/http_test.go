package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTitleFetcherFetchesAndCaches(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<title num=\"15\"></title>"))
	}))
	defer server.Close()

	cache, err := NewLocalCache(t.TempDir(), nil, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	fetcher := NewHTTPTitleFetcher(server.URL, 5*time.Second, cache)

	data, ok, err := fetcher.FetchTitleXML(t.Context(), 15, "113-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(data), "title")
	assert.Equal(t, 1, requests)

	// second call should be served from cache, not a new request.
	_, ok, err = fetcher.FetchTitleXML(t.Context(), 15, "113-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, requests)
}

func TestHTTPTitleFetcherNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cache, err := NewLocalCache(t.TempDir(), nil, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	fetcher := NewHTTPTitleFetcher(server.URL, 5*time.Second, cache)

	_, ok, err := fetcher.FetchTitleXML(t.Context(), 99, "113-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTPLawFetcherFetchesXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<law>amending text</law>"))
	}))
	defer server.Close()

	cache, err := NewLocalCache(t.TempDir(), nil, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	fetcher := NewHTTPLawFetcher(server.URL, 5*time.Second, cache)

	text, ok, err := fetcher.FetchLawText(t.Context(), 118, 47, FormatXML)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, text, "amending text")
}

func TestHTTPLawFetcherNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cache, err := NewLocalCache(t.TempDir(), nil, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	fetcher := NewHTTPLawFetcher(server.URL, 5*time.Second, cache)

	_, ok, err := fetcher.FetchLawText(t.Context(), 118, 999, FormatHTM)
	require.NoError(t, err)
	assert.False(t, ok)
}
