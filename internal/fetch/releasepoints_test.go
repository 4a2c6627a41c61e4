package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPReleasePointSourceListsEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"tag":"113-21","publication_date":"2013-09-18T00:00:00Z"}]`))
	}))
	defer server.Close()

	source := NewHTTPReleasePointSource(server.URL, 5*time.Second)
	entries, err := source.ListReleasePoints()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "113-21", entries[0].Tag)
}

func TestHTTPEnactedLawSourceListsLaws(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"congress":118,"law_number":47,"date":"2024-03-01T00:00:00Z"}]`))
	}))
	defer server.Close()

	source := NewHTTPEnactedLawSource(server.URL, 5*time.Second)
	laws, err := source.EnactedLaws(t.Context())
	require.NoError(t, err)
	require.Len(t, laws, 1)
	assert.Equal(t, 118, laws[0].Congress)
	assert.Equal(t, 47, laws[0].LawNumber)
}
