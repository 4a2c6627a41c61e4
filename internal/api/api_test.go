package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uscchron/chronicle/internal/logging"
	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/store/postgres"
)

func ptr[T any](v T) *T { return &v }

func TestServerHandlesHealthzHeadAndSection(t *testing.T) {
	db, teardown := postgres.SetupTestContainer(t)
	defer teardown()

	store := postgres.NewStore(db)
	ctx := context.Background()

	rev := &model.Revision{
		RevisionID:      uuid.NewString(),
		Variant:         model.GroundTruth,
		SequenceNumber:  0,
		EffectiveDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IsGroundTruth:   true,
		Status:          model.StatusIngested,
		ReleasePointRef: ptr("113-1"),
	}
	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, store.CreateRevision(ctx, tx, rev))

	snap := &model.SectionSnapshot{
		SnapshotID:    uuid.NewString(),
		RevisionID:    rev.RevisionID,
		TitleNumber:   15,
		SectionNumber: "78a",
		Heading:       "Definitions",
		TextContent:   ptr("securities text"),
		FullCitation:  "15 U.S.C. § 78a",
	}
	snap.ComputeTextHash()
	snap.ComputeNotesHash()
	require.NoError(t, store.WriteSnapshot(ctx, tx, snap))
	require.NoError(t, tx.Commit(ctx))

	logger := logging.New(&logging.Config{Level: logging.InfoLevel, Format: logging.TextFormat})
	server := NewServer(store, logger)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	resp, err := http.Get(httpServer.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(httpServer.URL + "/head")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var gotHead model.Revision
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&gotHead))
	resp.Body.Close()
	assert.Equal(t, rev.RevisionID, gotHead.RevisionID)

	resp, err = http.Get(httpServer.URL + "/section/15/78a")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var gotSnap model.SectionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&gotSnap))
	resp.Body.Close()
	require.NotNil(t, gotSnap.TextContent)
	assert.Equal(t, "securities text", *gotSnap.TextContent)

	resp, err = http.Get(httpServer.URL + "/section/15/nonexistent")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
