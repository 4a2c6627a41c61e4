package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/uscchron/chronicle/internal/fetch"
	"github.com/uscchron/chronicle/internal/logging"
	"github.com/uscchron/chronicle/internal/markup"
	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/registry"
	"github.com/uscchron/chronicle/internal/revision"
	"github.com/uscchron/chronicle/internal/store/postgres"
	"github.com/uscchron/chronicle/internal/workers"
)

// Ingestor is C9.
type Ingestor struct {
	titles  fetch.TitleFetcher
	store   *postgres.Store
	graph   *revision.Graph
	workers *workers.Pool
	logger  *logging.Logger
}

func New(titles fetch.TitleFetcher, store *postgres.Store, graph *revision.Graph, pool *workers.Pool, logger *logging.Logger) *Ingestor {
	return &Ingestor{titles: titles, store: store, graph: graph, workers: pool, logger: logger.With("ingest")}
}

// Stats summarizes one IngestReleasePoint call.
type Stats struct {
	TitlesFetched int
	TitlesSkipped int
	SectionsWritten int
}

type titleResult struct {
	title    int
	sections []markup.CodifiedSection
	skipped  bool
}

// IngestReleasePoint runs C9's four-step procedure for one release point.
func (ing *Ingestor) IngestReleasePoint(ctx context.Context, rp registry.ReleasePoint, parentRevisionID string, titleNumbers []int) (*model.Revision, *Stats, error) {
	if existing, err := ing.graph.ByReleasePoint(ctx, rp.FullIdentifier); err == nil {
		ing.logger.Info("release point already ingested, idempotent return", logging.Fields{"tag": rp.FullIdentifier})
		return existing, &Stats{}, nil
	} else if !errors.Is(err, postgres.ErrNotFound) {
		return nil, nil, fmt.Errorf("idempotency check: %w", err)
	}

	parent := parentRevisionID
	spec := revision.Spec{
		Variant:          model.GroundTruth,
		ParentRevisionID: &parent,
		EffectiveDate:    rp.PublicationDate,
		IsGroundTruth:    true,
		Summary:          fmt.Sprintf("Release point %s", rp.FullIdentifier),
		ReleasePointRef:  &rp.FullIdentifier,
	}

	rev, tx, err := ing.graph.Begin(ctx, spec)
	if err != nil {
		return nil, nil, fmt.Errorf("begin ground-truth revision: %w", err)
	}

	results, err := ing.fetchAndParseTitles(ctx, rp.FullIdentifier, titleNumbers)
	if err != nil {
		ing.graph.Abort(ctx, tx, rev.RevisionID)
		return nil, nil, fmt.Errorf("fetch titles: %w", err)
	}

	stats := &Stats{}
	for _, r := range results {
		if r.skipped {
			stats.TitlesSkipped++
			continue
		}
		stats.TitlesFetched++
		for _, sec := range r.sections {
			if err := ing.writeSection(ctx, tx, rev.RevisionID, r.title, sec); err != nil {
				ing.graph.Abort(ctx, tx, rev.RevisionID)
				return nil, nil, fmt.Errorf("write section %d:%s: %w", r.title, sec.SectionNumber, err)
			}
			stats.SectionsWritten++
		}
	}

	if err := ing.emitIngestedEvent(ctx, tx, rev, stats); err != nil {
		ing.graph.Abort(ctx, tx, rev.RevisionID)
		return nil, nil, err
	}

	if err := ing.graph.Commit(ctx, tx, rev.RevisionID); err != nil {
		return nil, nil, err
	}

	return rev, stats, nil
}

// fetchAndParseTitles downloads and parses each title concurrently, bounded
// by ing.workers, since fetches have no ordering dependency on each other
// within one release-point event (spec.md §5).
func (ing *Ingestor) fetchAndParseTitles(ctx context.Context, tag string, titleNumbers []int) ([]titleResult, error) {
	results := make([]titleResult, len(titleNumbers))
	var mu sync.Mutex

	err := ing.workers.Run(ctx, len(titleNumbers), func(ctx context.Context, i int) error {
		title := titleNumbers[i]
		data, ok, err := ing.titles.FetchTitleXML(ctx, title, tag)
		if err != nil {
			return fmt.Errorf("fetch title %d: %w", title, err)
		}
		if !ok {
			mu.Lock()
			results[i] = titleResult{title: title, skipped: true}
			mu.Unlock()
			ing.logger.Debug("title not published at this tag", logging.Fields{"title": title, "tag": tag})
			return nil
		}

		parsed, err := markup.ParseCodifiedTitle(data)
		if err != nil {
			return fmt.Errorf("parse title %d: %w", title, err)
		}

		mu.Lock()
		results[i] = titleResult{title: title, sections: parsed.Sections}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// writeSection snapshots one section, overriding any parent state, per
// spec.md §4.9 step 3c: ground-truth revisions snapshot every section, not
// a diff.
func (ing *Ingestor) writeSection(ctx context.Context, tx pgx.Tx, revisionID string, title int, sec markup.CodifiedSection) error {
	text := sec.TextContent
	snap := &model.SectionSnapshot{
		RevisionID:           revisionID,
		TitleNumber:          title,
		SectionNumber:        sec.SectionNumber,
		Heading:              sec.Heading,
		TextContent:          &text,
		NormalizedProvisions: sec.NormalizedProvisions,
		Notes:                sec.Notes,
		NormalizedNotes:      sec.NormalizedNotes,
		FullCitation:         sec.FullCitation,
		IsDeleted:            false,
	}
	snap.ComputeTextHash()
	snap.ComputeNotesHash()
	return ing.store.WriteSnapshot(ctx, tx, snap)
}

func (ing *Ingestor) emitIngestedEvent(ctx context.Context, tx pgx.Tx, rev *model.Revision, stats *Stats) error {
	event := &postgres.OutboxEvent{
		EventID:     rev.RevisionID,
		EventType:   "revision.ingested",
		AggregateID: rev.RevisionID,
		Payload: map[string]interface{}{
			"revision_id":      rev.RevisionID,
			"release_point":    rev.ReleasePointRef,
			"titles_fetched":   stats.TitlesFetched,
			"titles_skipped":   stats.TitlesSkipped,
			"sections_written": stats.SectionsWritten,
		},
		Status:    "pending",
		CreatedAt: rev.EffectiveDate,
	}
	return postgres.CreateOutboxEventTx(ctx, tx, event)
}
