// Package playforward implements C10, the orchestration engine that walks
// the merged timeline from the current head, dispatching each event to the
// revision builder (C7) or the snapshot ingestor (C9).
package playforward

import (
	"context"
	"fmt"
	"time"

	"github.com/uscchron/chronicle/internal/build"
	"github.com/uscchron/chronicle/internal/checkpoint"
	"github.com/uscchron/chronicle/internal/ingest"
	"github.com/uscchron/chronicle/internal/logging"
	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/registry"
	"github.com/uscchron/chronicle/internal/revision"
	"github.com/uscchron/chronicle/internal/timeline"
)

// ChangeSource ensures LawChange records exist for one enacted law,
// triggering the external classification pipeline if absent (spec.md §4.10
// step 3: "tolerate failure — continue with whatever LawChanges exist").
type ChangeSource interface {
	EnsureLawChanges(ctx context.Context, congress, lawNumber int, effectiveDate time.Time) ([]*model.LawChange, error)
}

// EnactedLawSource lists the enacted-law half of the timeline, the
// "external store" spec.md §4.8 treats as a collaborator.
type EnactedLawSource interface {
	EnactedLaws(ctx context.Context) ([]timeline.EnactedLaw, error)
}

// Engine is C10.
type Engine struct {
	graph    *revision.Graph
	registry *registry.Registry
	changes  ChangeSource
	laws     EnactedLawSource
	builder  *build.Builder
	ingestor *ingest.Ingestor
	checker  *checkpoint.Validator
	titles   []int
	logger   *logging.Logger
}

func New(graph *revision.Graph, reg *registry.Registry, changes ChangeSource, laws EnactedLawSource,
	builder *build.Builder, ingestor *ingest.Ingestor, checker *checkpoint.Validator, titles []int, logger *logging.Logger) *Engine {
	return &Engine{
		graph: graph, registry: reg, changes: changes, laws: laws,
		builder: builder, ingestor: ingestor, checker: checker, titles: titles,
		logger: logger.With("playforward"),
	}
}

// Options controls one Advance call: either a fixed Count of events, or
// walk through UntilTag inclusive.
type Options struct {
	Count    int
	UntilTag string
}

// FailureDescription records one event that could not be processed,
// surfaced through AdvanceResult per spec.md §7.
type FailureDescription struct {
	EventRef string
	Kind     string
	Message  string
}

// Result is spec.md's AdvanceResult, with the per-category detail
// SPEC_FULL.md §4 adds.
type Result struct {
	EventsProcessed   int
	SectionsApplied   int
	SectionsFailed    int
	StructuralSkipped int
	LawsDeferred      int
	Failures          []FailureDescription
}

// Advance drives the play-forward engine, per spec.md §4.10.
func (e *Engine) Advance(ctx context.Context, opts Options) (*Result, error) {
	laws, err := e.laws.EnactedLaws(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enacted laws: %w", err)
	}
	events := timeline.Build(e.registry.All(), laws)

	head, err := e.graph.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("read head: %w", err)
	}

	cursor := locateCursor(events, head)
	result := &Result{}

	for cursor+1 < len(events) {
		if opts.Count > 0 && result.EventsProcessed >= opts.Count {
			break
		}

		event := events[cursor+1]
		remaining := events[cursor+1:]

		done, err := e.processEvent(ctx, event, remaining, result, head.RevisionID)
		if err != nil {
			result.Failures = append(result.Failures, FailureDescription{
				EventRef: eventRef(event), Kind: string(event.Kind), Message: err.Error(),
			})
			e.logger.Error("event failed, cursor not advanced", logging.Fields{
				"event": eventRef(event), "error": err.Error(),
			})
			break // cursor does not advance past a failed event (spec.md §4.10).
		}

		cursor++
		result.EventsProcessed++
		if done != nil {
			head = done
		}

		if opts.UntilTag != "" && event.Kind == timeline.GroundTruth && event.Tag == opts.UntilTag {
			break
		}
	}

	return result, nil
}

// processEvent dispatches one event and returns the new head revision, if
// any (nil for a skipped/deferred event).
func (e *Engine) processEvent(ctx context.Context, event timeline.Event, remaining []timeline.Event, result *Result, currentHeadID string) (*model.Revision, error) {
	switch event.Kind {
	case timeline.Enacted:
		if ingest.NewDeferredSet(deferredPairs(remaining)).Contains(event.Congress, event.LawNumber) {
			result.LawsDeferred++
			return nil, nil
		}

		changes, err := e.changes.EnsureLawChanges(ctx, event.Congress, event.LawNumber, event.Date)
		if err != nil {
			e.logger.Warn("law-change pipeline failed, continuing with partial set", logging.Fields{
				"congress": event.Congress, "law_number": event.LawNumber, "error": err.Error(),
			})
		}

		law := build.LawRef{
			Congress:      event.Congress,
			LawNumber:     event.LawNumber,
			Identifier:    fmt.Sprintf("%d-%d", event.Congress, event.LawNumber),
			EffectiveDate: event.Date,
		}
		rev, stats, err := e.builder.Build(ctx, law, currentHeadID, changes)
		if err != nil {
			return nil, err
		}
		result.SectionsApplied += stats.SectionsApplied
		result.SectionsFailed += stats.SectionsFailed
		result.StructuralSkipped += stats.StructuralSkipped
		return rev, nil

	case timeline.GroundTruth:
		rp, err := registry.ParseTag(event.Tag)
		if err != nil {
			return nil, fmt.Errorf("parse release-point tag %q: %w", event.Tag, err)
		}
		rp.PublicationDate = event.Date

		rev, _, err := e.ingestor.IngestReleasePoint(ctx, rp, currentHeadID, e.titles)
		if err != nil {
			return nil, err
		}

		if priorDerived, err := e.graph.LatestDerivedBefore(ctx, rev.RevisionID); err == nil {
			if _, err := e.checker.Validate(ctx, rev.RevisionID, priorDerived.RevisionID); err != nil {
				e.logger.Warn("checkpoint validation failed to run", logging.Fields{
					"ground_truth": rev.RevisionID, "error": err.Error(),
				})
			}
		}
		return rev, nil

	default:
		return nil, fmt.Errorf("unrecognized event kind %q", event.Kind)
	}
}

// locateCursor finds head's position in events by matching its underlying
// tag (ground truth) or law reference (derived). A bootstrap head with
// neither matches nothing and play-forward starts from the beginning.
func locateCursor(events []timeline.Event, head *model.Revision) int {
	for i, e := range events {
		if e.Kind == timeline.GroundTruth && head.ReleasePointRef != nil && e.Tag == *head.ReleasePointRef {
			return i
		}
		if e.Kind == timeline.Enacted && head.LawRef != nil && fmt.Sprintf("%d-%d", e.Congress, e.LawNumber) == *head.LawRef {
			return i
		}
	}
	return -1
}

func eventRef(e timeline.Event) string {
	if e.Kind == timeline.GroundTruth {
		return e.Tag
	}
	return fmt.Sprintf("%d-%d", e.Congress, e.LawNumber)
}

// deferredPairs flattens every upcoming release point's deferred_laws into
// (congress, lawNumber) pairs for ingest.DeferredSet, per spec.md §4.8.
func deferredPairs(upcoming []timeline.Event) [][2]int {
	var pairs [][2]int
	for _, e := range upcoming {
		if e.Kind != timeline.GroundTruth {
			continue
		}
		for _, n := range e.DeferredLaws {
			pairs = append(pairs, [2]int{e.Congress, n})
		}
	}
	return pairs
}
