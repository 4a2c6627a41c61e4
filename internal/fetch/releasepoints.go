package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/uscchron/chronicle/internal/registry"
	"github.com/uscchron/chronicle/internal/timeline"
)

// HTTPReleasePointSource implements registry.Source by listing published
// release points from a government directory endpoint (spec.md §6).
type HTTPReleasePointSource struct {
	url    string
	client *http.Client
}

func NewHTTPReleasePointSource(url string, timeout time.Duration) *HTTPReleasePointSource {
	return &HTTPReleasePointSource{url: url, client: &http.Client{Timeout: timeout}}
}

type releasePointEntry struct {
	Tag             string    `json:"tag"`
	PublicationDate time.Time `json:"publication_date"`
}

// ListReleasePoints satisfies registry.Source.
func (s *HTTPReleasePointSource) ListReleasePoints() ([]registry.RawEntry, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch release points: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch release points: unexpected status %d", resp.StatusCode)
	}

	var entries []releasePointEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode release points: %w", err)
	}

	out := make([]registry.RawEntry, len(entries))
	for i, e := range entries {
		out[i] = registry.RawEntry{Tag: e.Tag, PublicationDate: e.PublicationDate}
	}
	return out, nil
}

// HTTPEnactedLawSource implements playforward.EnactedLawSource by listing
// enacted laws from a government directory endpoint, the "external store"
// spec.md §4.8 treats as a collaborator.
type HTTPEnactedLawSource struct {
	url    string
	client *http.Client
}

func NewHTTPEnactedLawSource(url string, timeout time.Duration) *HTTPEnactedLawSource {
	return &HTTPEnactedLawSource{url: url, client: &http.Client{Timeout: timeout}}
}

type enactedLawEntry struct {
	Congress  int       `json:"congress"`
	LawNumber int       `json:"law_number"`
	Date      time.Time `json:"date"`
}

// EnactedLaws satisfies playforward.EnactedLawSource.
func (s *HTTPEnactedLawSource) EnactedLaws(ctx context.Context) ([]timeline.EnactedLaw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch enacted laws: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch enacted laws: unexpected status %d", resp.StatusCode)
	}

	var entries []enactedLawEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode enacted laws: %w", err)
	}

	out := make([]timeline.EnactedLaw, len(entries))
	for i, e := range entries {
		out[i] = timeline.EnactedLaw{Congress: e.Congress, LawNumber: e.LawNumber, Date: e.Date}
	}
	return out, nil
}
