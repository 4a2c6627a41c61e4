package revision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/store/postgres"
)

func ptr[T any](v T) *T { return &v }

func TestGraphBeginCommitTransitionsToIngested(t *testing.T) {
	db, teardown := postgres.SetupTestContainer(t)
	defer teardown()

	store := postgres.NewStore(db)
	graph := New(db, store)
	ctx := context.Background()

	rev, tx, err := graph.Begin(ctx, Spec{
		Variant:         model.GroundTruth,
		EffectiveDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IsGroundTruth:   true,
		ReleasePointRef: ptr("113-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusIngesting, rev.Status)
	assert.Equal(t, int64(0), rev.SequenceNumber)

	require.NoError(t, graph.Commit(ctx, tx, rev.RevisionID))

	head, err := graph.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, rev.RevisionID, head.RevisionID)
	assert.Equal(t, model.StatusIngested, head.Status)
}

func TestGraphAbortMarksFailed(t *testing.T) {
	db, teardown := postgres.SetupTestContainer(t)
	defer teardown()

	store := postgres.NewStore(db)
	graph := New(db, store)
	ctx := context.Background()

	rev, tx, err := graph.Begin(ctx, Spec{
		Variant:         model.GroundTruth,
		EffectiveDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IsGroundTruth:   true,
		ReleasePointRef: ptr("113-1"),
	})
	require.NoError(t, err)

	require.NoError(t, graph.Abort(ctx, tx, rev.RevisionID))

	stored, err := graph.ByReleasePoint(ctx, "113-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, stored.Status)
}

func TestGraphSequenceNumbersIncrement(t *testing.T) {
	db, teardown := postgres.SetupTestContainer(t)
	defer teardown()

	store := postgres.NewStore(db)
	graph := New(db, store)
	ctx := context.Background()

	rootRev, tx, err := graph.Begin(ctx, Spec{
		Variant:         model.GroundTruth,
		EffectiveDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IsGroundTruth:   true,
		ReleasePointRef: ptr("113-1"),
	})
	require.NoError(t, err)
	require.NoError(t, graph.Commit(ctx, tx, rootRev.RevisionID))

	childRev, tx2, err := graph.Begin(ctx, Spec{
		Variant:          model.Derived,
		ParentRevisionID: ptr(rootRev.RevisionID),
		EffectiveDate:    time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		LawRef:           ptr("118-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), childRev.SequenceNumber)
	require.NoError(t, graph.Commit(ctx, tx2, childRev.RevisionID))

	byLaw, err := graph.ByLawRef(ctx, "118-1")
	require.NoError(t, err)
	assert.Equal(t, childRev.RevisionID, byLaw.RevisionID)
}
