// Package build implements C7, the revision builder: for one enacted law
// and its classified amendment operations, it assembles one new derived
// revision with one snapshot per section the law actually changed.
package build

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/uscchron/chronicle/internal/apply"
	"github.com/uscchron/chronicle/internal/logging"
	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/revision"
	"github.com/uscchron/chronicle/internal/store/postgres"
)

// Builder is C7.
type Builder struct {
	store  *postgres.Store
	graph  *revision.Graph
	logger *logging.Logger
}

func New(store *postgres.Store, graph *revision.Graph, logger *logging.Logger) *Builder {
	return &Builder{store: store, graph: graph, logger: logger.With("build")}
}

// LawRef identifies the enacted law driving one call to Build.
type LawRef struct {
	Congress   int
	LawNumber  int
	Identifier string // "<congress>-<law_number>", spec.md §6's law_ref form
	EffectiveDate time.Time
}

// Stats summarizes one Build call, folded into AdvanceResult by C10.
type Stats struct {
	SectionsApplied   int
	SectionsFailed    int
	StructuralSkipped int
}

// Build assembles one derived revision from law against parentRevisionID,
// per spec.md §4.7's five-step procedure.
func (b *Builder) Build(ctx context.Context, law LawRef, parentRevisionID string, changes []*model.LawChange) (*model.Revision, *Stats, error) {
	if existing, err := b.graph.ByLawRef(ctx, law.Identifier); err == nil {
		b.logger.Info("law already ingested, idempotent return", logging.Fields{"law_ref": law.Identifier})
		return existing, &Stats{}, nil
	} else if !errors.Is(err, postgres.ErrNotFound) {
		return nil, nil, fmt.Errorf("idempotency check: %w", err)
	}

	parent := parentRevisionID
	spec := revision.Spec{
		Variant:          model.Derived,
		ParentRevisionID: &parent,
		EffectiveDate:    law.EffectiveDate,
		IsGroundTruth:    false,
		Summary:          fmt.Sprintf("Pub. L. %d-%d", law.Congress, law.LawNumber),
		LawRef:           &law.Identifier,
	}

	rev, tx, err := b.graph.Begin(ctx, spec)
	if err != nil {
		return nil, nil, fmt.Errorf("begin derived revision: %w", err)
	}

	stats := &Stats{}
	groups := groupBySection(changes)

	for key, group := range groups {
		if err := b.applyGroup(ctx, tx, rev.RevisionID, parentRevisionID, law, key, group, stats); err != nil {
			b.graph.Abort(ctx, tx, rev.RevisionID)
			return nil, nil, fmt.Errorf("section %d:%s: %w", key.TitleNumber, key.SectionNumber, err)
		}
	}

	if err := b.emitIngestedEvent(ctx, tx, rev, stats); err != nil {
		b.graph.Abort(ctx, tx, rev.RevisionID)
		return nil, nil, err
	}

	if err := b.graph.Commit(ctx, tx, rev.RevisionID); err != nil {
		return nil, nil, err
	}

	return rev, stats, nil
}

// groupBySection groups LawChanges by (title_number, section_number),
// preserving stable change_id order within each group (spec.md §5).
func groupBySection(changes []*model.LawChange) map[model.SectionKey][]*model.LawChange {
	out := make(map[model.SectionKey][]*model.LawChange)
	for _, c := range changes {
		key := model.SectionKey{TitleNumber: c.TitleNumber, SectionNumber: c.SectionNumber}
		out[key] = append(out[key], c)
	}
	for _, group := range out {
		sort.Slice(group, func(i, j int) bool { return group[i].ChangeID < group[j].ChangeID })
	}
	return out
}

// applyGroup folds one section's changes through C6, patches its provision
// tree, and writes a snapshot if anything actually changed (spec.md §4.7
// step 4).
func (b *Builder) applyGroup(ctx context.Context, tx pgx.Tx, revisionID, parentRevisionID string, law LawRef, key model.SectionKey, changes []*model.LawChange, stats *Stats) error {
	parent, err := b.store.GetSectionAt(ctx, parentRevisionID, key)
	if err != nil && !errors.Is(err, postgres.ErrNotFound) {
		return fmt.Errorf("read parent section: %w", err)
	}

	currentText := (*string)(nil)
	var parentProvisions []model.ProvisionLine
	heading, citation := "", apply.SectionCitation(key.TitleNumber, key.SectionNumber)
	notes, normalizedNotes := "", []model.NoteEntry(nil)

	if parent != nil {
		currentText = parent.TextContent
		parentProvisions = parent.NormalizedProvisions
		heading = parent.Heading
		citation = parent.FullCitation
		notes = parent.Notes
		normalizedNotes = parent.NormalizedNotes
	}

	anyApplied := false
	isDeleted := parent != nil && parent.IsDeleted
	structuralApplied := false

	for _, change := range changes {
		result := apply.Apply(currentText, change)
		switch result.Status {
		case apply.Applied:
			currentText = result.Text
			anyApplied = true
			if change.ChangeType == model.ChangeRepeal {
				isDeleted = true
			}
		case apply.Skipped:
			structuralApplied = true
			stats.StructuralSkipped++
		case apply.NoChange:
			// target state already matched; not a failure, not a content change.
		case apply.Failed:
			stats.SectionsFailed++
			b.logger.Warn("apply failed", logging.Fields{
				"title": key.TitleNumber, "section": key.SectionNumber, "reason": result.Reason,
			})
		}
		if change.ChangeType == model.ChangeRepeal && result.Status == apply.Applied {
			break // repeal short-circuits the fold, per spec.md §4.7 step 4b.
		}
	}

	patchedProvisions := apply.PatchProvisions(parentProvisions, changes)
	provisionsChanged := !provisionsEqual(parentProvisions, patchedProvisions)

	if !anyApplied && !structuralApplied && !provisionsChanged {
		return nil // only Failed operations and no structural effect: leave unchanged.
	}

	if structuralApplied || provisionsChanged {
		rebuilt := model.RenderProvisions(patchedProvisions)
		currentText = &rebuilt
	}

	notes, normalizedNotes = appendAmendmentNotes(notes, normalizedNotes, law, changes)

	snap := &model.SectionSnapshot{
		RevisionID:           revisionID,
		TitleNumber:          key.TitleNumber,
		SectionNumber:        key.SectionNumber,
		Heading:              heading,
		TextContent:          currentText,
		NormalizedProvisions: patchedProvisions,
		Notes:                notes,
		NormalizedNotes:      normalizedNotes,
		FullCitation:         citation,
		IsDeleted:            isDeleted,
	}
	snap.ComputeTextHash()
	snap.ComputeNotesHash()

	if err := b.store.WriteSnapshot(ctx, tx, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	stats.SectionsApplied++
	return nil
}

// appendAmendmentNotes implements C7.1: every substantive change to a
// section appends a citation, an amendment entry, and a textual notes line,
// so notes_hash reliably diverges for C11's change-detection query.
func appendAmendmentNotes(notes string, entries []model.NoteEntry, law LawRef, changes []*model.LawChange) (string, []model.NoteEntry) {
	desc := describeChanges(changes)
	year := law.EffectiveDate.Year()

	entries = append(entries, model.NoteEntry{
		Category:     "citation",
		Year:         year,
		LawRef:       law.Identifier,
		Relationship: "Amendment",
	})
	entries = append(entries, model.NoteEntry{
		Category: "amendment",
		Year:     year,
		LawRef:   law.Identifier,
		Text:     desc,
	})

	line := fmt.Sprintf("%d—Pub. L. %d-%d %s\n", year, law.Congress, law.LawNumber, desc)
	notes = notes + line

	for _, c := range changes {
		if c.ChangeType != model.ChangeAddNote || c.NewText == nil {
			continue
		}
		entries = append(entries, model.NoteEntry{
			Category: "Statutory",
			Year:     year,
			LawRef:   law.Identifier,
			Text:     *c.NewText,
		})
	}

	return notes, entries
}

// describeChanges joins the descriptions attached to a section's operations
// for the single notes line appended by C7.1.
func describeChanges(changes []*model.LawChange) string {
	var parts []string
	for _, c := range changes {
		if c.Description != nil && *c.Description != "" {
			parts = append(parts, *c.Description)
		}
	}
	if len(parts) == 0 {
		return "amended"
	}
	return strings.Join(parts, "; ")
}

func provisionsEqual(a, b []model.ProvisionLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Marker != b[i].Marker || a[i].Content != b[i].Content {
			return false
		}
	}
	return true
}

// emitIngestedEvent records a revision.ingested outbox event inside the
// same transaction as the revision's snapshots, so the event is durable iff
// the revision commits (spec.md §9's "break the cycle" via the outbox).
func (b *Builder) emitIngestedEvent(ctx context.Context, tx pgx.Tx, rev *model.Revision, stats *Stats) error {
	event := &postgres.OutboxEvent{
		EventID:     rev.RevisionID,
		EventType:   "revision.ingested",
		AggregateID: rev.RevisionID,
		Payload: map[string]interface{}{
			"revision_id":        rev.RevisionID,
			"law_ref":            rev.LawRef,
			"sections_applied":   stats.SectionsApplied,
			"sections_failed":    stats.SectionsFailed,
			"structural_skipped": stats.StructuralSkipped,
		},
		Status:    "pending",
		CreatedAt: rev.EffectiveDate,
	}
	return postgres.CreateOutboxEventTx(ctx, tx, event)
}
