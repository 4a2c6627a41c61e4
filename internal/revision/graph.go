// Package revision implements C5, the append-only revision graph: sequence
// number allocation, the Ingesting -> Ingested lifecycle transition, and
// head/chain lookups. It is a thin layer over internal/store/postgres that
// gives C7 and C9 one place to open a revision, populate it, and commit.
package revision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/store/postgres"
)

// Graph is C5.
type Graph struct {
	db    *postgres.Database
	store *postgres.Store
}

func New(db *postgres.Database, store *postgres.Store) *Graph {
	return &Graph{db: db, store: store}
}

// Spec describes a revision to open.
type Spec struct {
	Variant          model.RevisionVariant
	ParentRevisionID *string
	EffectiveDate    time.Time
	IsGroundTruth    bool
	Summary          string
	ReleasePointRef  *string
	LawRef           *string
}

// Begin allocates the next sequence number and inserts a new Ingesting
// revision inside a serializable transaction, retrying on conflict (spec.md
// §5: "a unique constraint on sequence_number enforces this; collisions
// retry with the next value"). The caller writes snapshots into the
// returned transaction, then calls Commit or Abort.
func (g *Graph) Begin(ctx context.Context, spec Spec) (*model.Revision, pgx.Tx, error) {
	var rev *model.Revision
	var tx pgx.Tx

	err := g.db.WithRetry(ctx, func(ctx context.Context) error {
		t, err := g.db.BeginTxSerializable(ctx)
		if err != nil {
			return fmt.Errorf("begin revision: %w", err)
		}

		seq, err := g.store.NextSequenceNumber(ctx, t)
		if err != nil {
			t.Rollback(ctx)
			return err
		}

		r := &model.Revision{
			RevisionID:       uuid.NewString(),
			Variant:          spec.Variant,
			SequenceNumber:   seq,
			ParentRevisionID: spec.ParentRevisionID,
			EffectiveDate:    spec.EffectiveDate,
			IsGroundTruth:    spec.IsGroundTruth,
			Status:           model.StatusIngesting,
			Summary:          spec.Summary,
			ReleasePointRef:  spec.ReleasePointRef,
			LawRef:           spec.LawRef,
		}

		if err := g.store.CreateRevision(ctx, t, r); err != nil {
			t.Rollback(ctx)
			return err
		}

		rev = r
		tx = t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return rev, tx, nil
}

// Commit transitions the revision to Ingested and commits the transaction
// opened by Begin, in one atomic step (spec.md §4.5).
func (g *Graph) Commit(ctx context.Context, tx pgx.Tx, revisionID string) error {
	if err := g.store.UpdateRevisionStatus(ctx, tx, revisionID, model.StatusIngested); err != nil {
		tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit revision %s: %w", revisionID, err)
	}
	return nil
}

// Abort rolls back the transaction and marks the revision Failed, per
// spec.md §7's Fatal policy ("abort current event, mark revision Failed").
// It leaves the revision retrievable for a later retry attempt.
func (g *Graph) Abort(ctx context.Context, tx pgx.Tx, revisionID string) error {
	tx.Rollback(ctx)
	return g.store.SetRevisionStatus(ctx, revisionID, model.StatusFailed)
}

// Cancel leaves the revision Ingesting for a cancellation signal mid-event
// (spec.md §5 "Cancellation"): the in-progress revision is not marked
// Failed, only rolled back, so a sweeper or retry can pick it up later.
func (g *Graph) Cancel(ctx context.Context, tx pgx.Tx) {
	tx.Rollback(ctx)
}

// Head returns the most recent Ingested revision.
func (g *Graph) Head(ctx context.Context) (*model.Revision, error) {
	return g.store.Head(ctx)
}

// Chain returns the ordered list of revisions from root to revisionID
// inclusive.
func (g *Graph) Chain(ctx context.Context, revisionID string) ([]*model.Revision, error) {
	return g.store.Chain(ctx, revisionID)
}

// ByReleasePoint looks up an existing ground-truth revision for tag, for
// C9's idempotency check. Returns postgres.ErrNotFound if none exists.
func (g *Graph) ByReleasePoint(ctx context.Context, tag string) (*model.Revision, error) {
	return g.store.GetRevisionByReleasePoint(ctx, tag)
}

// ByLawRef looks up an existing derived revision for lawRef, for C7's
// idempotency check. Returns postgres.ErrNotFound if none exists.
func (g *Graph) ByLawRef(ctx context.Context, lawRef string) (*model.Revision, error) {
	return g.store.GetRevisionByLawRef(ctx, lawRef)
}

// LatestDerivedBefore returns the most recent Ingested derived revision
// preceding revisionID, for C11's checkpoint pairing.
func (g *Graph) LatestDerivedBefore(ctx context.Context, revisionID string) (*model.Revision, error) {
	return g.store.LatestDerivedBefore(ctx, revisionID)
}
