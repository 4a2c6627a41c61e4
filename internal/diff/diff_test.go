package diff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/store/postgres"
)

func ptr[T any](v T) *T { return &v }

func writeRevision(t *testing.T, ctx context.Context, db *postgres.Database, store *postgres.Store, rev *model.Revision, snaps []*model.SectionSnapshot) {
	t.Helper()
	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, store.CreateRevision(ctx, tx, rev))
	for _, s := range snaps {
		s.ComputeTextHash()
		s.ComputeNotesHash()
		require.NoError(t, store.WriteSnapshot(ctx, tx, s))
	}
	require.NoError(t, tx.Commit(ctx))
}

func TestDiffClassifiesAddedModifiedDeletedUnchanged(t *testing.T) {
	db, teardown := postgres.SetupTestContainer(t)
	defer teardown()

	store := postgres.NewStore(db)
	ctx := context.Background()

	revA := &model.Revision{
		RevisionID:      uuid.NewString(),
		Variant:         model.GroundTruth,
		SequenceNumber:  0,
		EffectiveDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IsGroundTruth:   true,
		Status:          model.StatusIngested,
		ReleasePointRef: ptr("113-1"),
	}
	writeRevision(t, ctx, db, store, revA, []*model.SectionSnapshot{
		{SnapshotID: uuid.NewString(), RevisionID: revA.RevisionID, TitleNumber: 15, SectionNumber: "1", Heading: "Stable", TextContent: ptr("unchanged text")},
		{SnapshotID: uuid.NewString(), RevisionID: revA.RevisionID, TitleNumber: 15, SectionNumber: "2", Heading: "Old", TextContent: ptr("will be modified")},
		{SnapshotID: uuid.NewString(), RevisionID: revA.RevisionID, TitleNumber: 15, SectionNumber: "3", Heading: "Gone", TextContent: ptr("will be deleted")},
	})

	revB := &model.Revision{
		RevisionID:       uuid.NewString(),
		Variant:          model.Derived,
		SequenceNumber:   1,
		ParentRevisionID: ptr(revA.RevisionID),
		EffectiveDate:    time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:           model.StatusIngested,
		LawRef:           ptr("118-1"),
	}
	writeRevision(t, ctx, db, store, revB, []*model.SectionSnapshot{
		{SnapshotID: uuid.NewString(), RevisionID: revB.RevisionID, TitleNumber: 15, SectionNumber: "1", Heading: "Stable", TextContent: ptr("unchanged text")},
		{SnapshotID: uuid.NewString(), RevisionID: revB.RevisionID, TitleNumber: 15, SectionNumber: "2", Heading: "Old", TextContent: ptr("was modified")},
		{SnapshotID: uuid.NewString(), RevisionID: revB.RevisionID, TitleNumber: 15, SectionNumber: "3", Heading: "Gone", IsDeleted: true},
		{SnapshotID: uuid.NewString(), RevisionID: revB.RevisionID, TitleNumber: 15, SectionNumber: "4", Heading: "New", TextContent: ptr("brand new section")},
	})

	results, err := Diff(ctx, store, revA.RevisionID, revB.RevisionID)
	require.NoError(t, err)

	byKey := make(map[model.SectionKey]SectionDiff)
	for _, r := range results {
		byKey[r.Key] = r
	}

	assert.Equal(t, Unchanged, byKey[model.SectionKey{TitleNumber: 15, SectionNumber: "1"}].Classification)
	assert.Equal(t, Modified, byKey[model.SectionKey{TitleNumber: 15, SectionNumber: "2"}].Classification)
	assert.Equal(t, Deleted, byKey[model.SectionKey{TitleNumber: 15, SectionNumber: "3"}].Classification)
	assert.Equal(t, Added, byKey[model.SectionKey{TitleNumber: 15, SectionNumber: "4"}].Classification)
}
