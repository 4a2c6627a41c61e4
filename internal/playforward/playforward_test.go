package playforward

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uscchron/chronicle/internal/build"
	"github.com/uscchron/chronicle/internal/checkpoint"
	"github.com/uscchron/chronicle/internal/ingest"
	"github.com/uscchron/chronicle/internal/logging"
	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/registry"
	"github.com/uscchron/chronicle/internal/revision"
	"github.com/uscchron/chronicle/internal/store/postgres"
	"github.com/uscchron/chronicle/internal/timeline"
	"github.com/uscchron/chronicle/internal/workers"
)

func ptrS(s string) *string { return &s }

type fakeReleasePointSource struct {
	entries []registry.RawEntry
}

func (f *fakeReleasePointSource) ListReleasePoints() ([]registry.RawEntry, error) {
	return f.entries, nil
}

type fakeEnactedLawSource struct {
	laws []timeline.EnactedLaw
}

func (f *fakeEnactedLawSource) EnactedLaws(ctx context.Context) ([]timeline.EnactedLaw, error) {
	return f.laws, nil
}

type fakeChangeSource struct {
	changes map[string][]*model.LawChange
}

func (f *fakeChangeSource) EnsureLawChanges(ctx context.Context, congress, lawNumber int, effectiveDate time.Time) ([]*model.LawChange, error) {
	return f.changes[fmt.Sprintf("%d-%d", congress, lawNumber)], nil
}

type fakeTitleFetcher struct {
	data map[string][]byte
}

func (f *fakeTitleFetcher) FetchTitleXML(ctx context.Context, title int, releaseTag string) ([]byte, bool, error) {
	data, ok := f.data[releaseTag]
	return data, ok, nil
}

func TestAdvanceProcessesEnactedLawThenReleasePoint(t *testing.T) {
	db, teardown := postgres.SetupTestContainer(t)
	defer teardown()

	store := postgres.NewStore(db)
	graph := revision.New(db, store)
	logger := logging.New(&logging.Config{Level: logging.InfoLevel, Format: logging.TextFormat})

	root, tx, err := graph.Begin(context.Background(), revision.Spec{
		Variant:         model.GroundTruth,
		EffectiveDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IsGroundTruth:   true,
		ReleasePointRef: ptrS("113-0"),
	})
	require.NoError(t, err)
	require.NoError(t, graph.Commit(context.Background(), tx, root.RevisionID))

	builder := build.New(store, graph, logger)

	reg, err := registry.Load(&fakeReleasePointSource{entries: []registry.RawEntry{
		{Tag: "113-1", PublicationDate: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)},
	}})
	require.NoError(t, err)

	laws := &fakeEnactedLawSource{laws: []timeline.EnactedLaw{
		{Congress: 118, LawNumber: 1, Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
	}}

	changes := &fakeChangeSource{changes: map[string][]*model.LawChange{
		"118-1": {{
			ChangeID: 0, LawRef: "118-1", TitleNumber: 15, SectionNumber: "1",
			ChangeType: model.ChangeAdd, NewText: ptrS("a newly enacted section"),
			EffectiveDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		}},
	}}

	titleFetcher := &fakeTitleFetcher{data: map[string][]byte{
		"113-1": []byte(`<title num="15"><section num="1"><heading>H</heading>ground truth text</section></title>`),
	}}
	pool := workers.New(2)
	ingestor := ingest.New(titleFetcher, store, graph, pool, logger)
	checker := checkpoint.New(store, 20, logger)

	engine := New(graph, reg, changes, laws, builder, ingestor, checker, []int{15}, logger)

	result, err := engine.Advance(context.Background(), Options{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.EventsProcessed)
	assert.Equal(t, 1, result.SectionsApplied)
	assert.Empty(t, result.Failures)

	head, err := graph.Head(context.Background())
	require.NoError(t, err)
	require.NotNil(t, head.ReleasePointRef)
	assert.Equal(t, "113-1", *head.ReleasePointRef)
}

func TestAdvanceSkipsDeferredLaw(t *testing.T) {
	db, teardown := postgres.SetupTestContainer(t)
	defer teardown()

	store := postgres.NewStore(db)
	graph := revision.New(db, store)
	logger := logging.New(&logging.Config{Level: logging.InfoLevel, Format: logging.TextFormat})

	root, tx, err := graph.Begin(context.Background(), revision.Spec{
		Variant:         model.GroundTruth,
		EffectiveDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IsGroundTruth:   true,
		ReleasePointRef: ptrS("113-0"),
	})
	require.NoError(t, err)
	require.NoError(t, graph.Commit(context.Background(), tx, root.RevisionID))

	builder := build.New(store, graph, logger)

	reg, err := registry.Load(&fakeReleasePointSource{entries: []registry.RawEntry{
		{Tag: "118-2not1", PublicationDate: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)},
	}})
	require.NoError(t, err)

	laws := &fakeEnactedLawSource{laws: []timeline.EnactedLaw{
		{Congress: 118, LawNumber: 1, Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
	}}
	changes := &fakeChangeSource{changes: map[string][]*model.LawChange{}}

	titleFetcher := &fakeTitleFetcher{data: map[string][]byte{
		"118-2not1": []byte(`<title num="15"><section num="1"><heading>H</heading>unaffected</section></title>`),
	}}
	pool := workers.New(2)
	ingestor := ingest.New(titleFetcher, store, graph, pool, logger)
	checker := checkpoint.New(store, 20, logger)

	engine := New(graph, reg, changes, laws, builder, ingestor, checker, []int{15}, logger)

	result, err := engine.Advance(context.Background(), Options{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, result.LawsDeferred)
}
