package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTitleFetcher downloads title XML from a government legal-markup
// archive through a LocalCache read-through layer.
type HTTPTitleFetcher struct {
	baseURL string
	client  *http.Client
	cache   *LocalCache
}

func NewHTTPTitleFetcher(baseURL string, timeout time.Duration, cache *LocalCache) *HTTPTitleFetcher {
	return &HTTPTitleFetcher{baseURL: baseURL, client: &http.Client{Timeout: timeout}, cache: cache}
}

// FetchTitleXML implements TitleFetcher. A 404 from the archive is reported
// as ok=false, never as an error (spec.md §7).
func (f *HTTPTitleFetcher) FetchTitleXML(ctx context.Context, title int, releaseTag string) ([]byte, bool, error) {
	key := fmt.Sprintf("usc-release/%s/usc%02d.xml", releaseTag, title)

	if data, ok, err := f.cache.Get(ctx, key); err != nil {
		return nil, false, err
	} else if ok {
		return data, true, nil
	}

	url := fmt.Sprintf("%s/release-points/%s/xml_uscAll@%s/usc%02d.xml", f.baseURL, releaseTag, releaseTag, title)
	data, ok, err := f.httpGet(ctx, url)
	if err != nil || !ok {
		return nil, ok, err
	}

	if err := f.cache.Put(ctx, key, data); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (f *HTTPTitleFetcher) httpGet(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response body: %w", err)
	}
	return data, true, nil
}

// HTTPLawFetcher downloads enacted-law text from a government archive.
type HTTPLawFetcher struct {
	baseURL string
	client  *http.Client
	cache   *LocalCache
}

func NewHTTPLawFetcher(baseURL string, timeout time.Duration, cache *LocalCache) *HTTPLawFetcher {
	return &HTTPLawFetcher{baseURL: baseURL, client: &http.Client{Timeout: timeout}, cache: cache}
}

// FetchLawText implements LawFetcher. A 404 here is surfaced as ok=false
// but callers treat it as event-fatal per spec.md §7, unlike title fetches.
func (f *HTTPLawFetcher) FetchLawText(ctx context.Context, congress, lawNumber int, format LawFormat) (string, bool, error) {
	key := fmt.Sprintf("enacted-law/%d/publ%d.%s", congress, lawNumber, format)

	if data, ok, err := f.cache.Get(ctx, key); err != nil {
		return "", false, err
	} else if ok {
		return string(data), true, nil
	}

	url := fmt.Sprintf("%s/plaw/%d/publ%d.%s", f.baseURL, congress, lawNumber, format)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read response body: %w", err)
	}

	if err := f.cache.Put(ctx, key, data); err != nil {
		return "", false, err
	}
	return string(data), true, nil
}
