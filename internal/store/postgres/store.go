package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/uscchron/chronicle/internal/model"
)

// ErrNotFound is returned when a revision or section lookup finds nothing.
var ErrNotFound = errors.New("postgres: not found")

// Store is C4, the snapshot store: point-in-time section reads resolved by
// walking the revision's parent chain until a snapshot for that section is
// found, and snapshot writes scoped to one revision.
type Store struct {
	db *Database
}

func NewStore(db *Database) *Store {
	return &Store{db: db}
}

// CreateRevision inserts a new revision node. Sequence number allocation is
// the caller's responsibility (C5 serializes it under BeginTxSerializable
// to satisfy invariant R1 — exactly one revision per sequence number).
func (s *Store) CreateRevision(ctx context.Context, tx pgx.Tx, r *model.Revision) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO code_revision (
			revision_id, variant, sequence_number, parent_revision_id,
			effective_date, is_ground_truth, status, summary,
			release_point_ref, law_ref
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.RevisionID, r.Variant, r.SequenceNumber, r.ParentRevisionID,
		r.EffectiveDate, r.IsGroundTruth, r.Status, r.Summary,
		r.ReleasePointRef, r.LawRef,
	)
	if err != nil {
		return fmt.Errorf("create revision: %w", err)
	}
	return nil
}

// UpdateRevisionStatus transitions a revision's ingest status (e.g.
// Ingesting -> Ingested or -> Failed).
func (s *Store) UpdateRevisionStatus(ctx context.Context, tx pgx.Tx, revisionID string, status model.RevisionStatus) error {
	ct, err := tx.Exec(ctx, `UPDATE code_revision SET status = $2 WHERE revision_id = $1`, revisionID, status)
	if err != nil {
		return fmt.Errorf("update revision status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: revision %s", ErrNotFound, revisionID)
	}
	return nil
}

// SetRevisionStatus transitions a revision's status outside any caller
// transaction — used to mark a revision Failed after its populating
// transaction has already been rolled back (spec.md §7 Fatal policy).
func (s *Store) SetRevisionStatus(ctx context.Context, revisionID string, status model.RevisionStatus) error {
	ct, err := s.db.pool.Exec(ctx, `UPDATE code_revision SET status = $2 WHERE revision_id = $1`, revisionID, status)
	if err != nil {
		return fmt.Errorf("set revision status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: revision %s", ErrNotFound, revisionID)
	}
	return nil
}

// GetRevision fetches one revision by ID.
func (s *Store) GetRevision(ctx context.Context, revisionID string) (*model.Revision, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT revision_id, variant, sequence_number, parent_revision_id,
		       effective_date, is_ground_truth, status, summary,
		       release_point_ref, law_ref
		FROM code_revision WHERE revision_id = $1`, revisionID)
	return scanRevision(row)
}

// NextSequenceNumber returns the next free sequence number. Callers must
// hold a serializable transaction (Database.BeginTxSerializable) across the
// read and the subsequent CreateRevision insert so concurrent allocators
// conflict and retry rather than collide on the unique constraint (spec.md
// §5 "sequence_number assignment must be serialisable across revisions").
func (s *Store) NextSequenceNumber(ctx context.Context, tx pgx.Tx) (int64, error) {
	var next int64
	err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(sequence_number), -1) + 1 FROM code_revision`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next sequence number: %w", err)
	}
	return next, nil
}

// GetRevisionByReleasePoint looks up the (at most one) revision for a
// ground-truth release-point tag, for C9's idempotency check.
func (s *Store) GetRevisionByReleasePoint(ctx context.Context, tag string) (*model.Revision, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT revision_id, variant, sequence_number, parent_revision_id,
		       effective_date, is_ground_truth, status, summary,
		       release_point_ref, law_ref
		FROM code_revision WHERE release_point_ref = $1`, tag)
	return scanRevision(row)
}

// GetRevisionByLawRef looks up the (at most one) revision for an enacted
// law, for C7's idempotency check.
func (s *Store) GetRevisionByLawRef(ctx context.Context, lawRef string) (*model.Revision, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT revision_id, variant, sequence_number, parent_revision_id,
		       effective_date, is_ground_truth, status, summary,
		       release_point_ref, law_ref
		FROM code_revision WHERE law_ref = $1`, lawRef)
	return scanRevision(row)
}

// LatestDerivedBefore returns the most recent Derived, Ingested revision
// with sequence_number strictly less than the given revision's, for C11's
// "most recent preceding derived revision" lookup.
func (s *Store) LatestDerivedBefore(ctx context.Context, beforeRevisionID string) (*model.Revision, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT r2.revision_id, r2.variant, r2.sequence_number, r2.parent_revision_id,
		       r2.effective_date, r2.is_ground_truth, r2.status, r2.summary,
		       r2.release_point_ref, r2.law_ref
		FROM code_revision r1
		JOIN code_revision r2 ON r2.sequence_number < r1.sequence_number
		WHERE r1.revision_id = $1 AND r2.variant = $2 AND r2.status = $3
		ORDER BY r2.sequence_number DESC LIMIT 1`,
		beforeRevisionID, model.Derived, model.StatusIngested)
	return scanRevision(row)
}

// Head returns the most recent Ingested revision (spec.md §4.5) — a
// revision still Ingesting or left Failed by a crash is never exposed as
// head, since its snapshots may be partially written.
func (s *Store) Head(ctx context.Context) (*model.Revision, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT revision_id, variant, sequence_number, parent_revision_id,
		       effective_date, is_ground_truth, status, summary,
		       release_point_ref, law_ref
		FROM code_revision
		WHERE status = $1
		ORDER BY sequence_number DESC LIMIT 1`, model.StatusIngested)
	return scanRevision(row)
}

// Chain returns every revision from the root to r inclusive, root first.
func (s *Store) Chain(ctx context.Context, revisionID string) ([]*model.Revision, error) {
	rows, err := s.db.pool.Query(ctx, `
		WITH RECURSIVE ancestry AS (
			SELECT revision_id, variant, sequence_number, parent_revision_id,
			       effective_date, is_ground_truth, status, summary,
			       release_point_ref, law_ref
			FROM code_revision WHERE revision_id = $1
			UNION ALL
			SELECT p.revision_id, p.variant, p.sequence_number, p.parent_revision_id,
			       p.effective_date, p.is_ground_truth, p.status, p.summary,
			       p.release_point_ref, p.law_ref
			FROM code_revision p
			JOIN ancestry a ON p.revision_id = a.parent_revision_id
		)
		SELECT * FROM ancestry ORDER BY sequence_number ASC`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}
	defer rows.Close()

	var chain []*model.Revision
	for rows.Next() {
		r, err := scanRevisionRows(rows)
		if err != nil {
			return nil, err
		}
		chain = append(chain, r)
	}
	return chain, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRevision(row rowScanner) (*model.Revision, error) {
	r := &model.Revision{}
	err := row.Scan(&r.RevisionID, &r.Variant, &r.SequenceNumber, &r.ParentRevisionID,
		&r.EffectiveDate, &r.IsGroundTruth, &r.Status, &r.Summary,
		&r.ReleasePointRef, &r.LawRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan revision: %w", err)
	}
	return r, nil
}

func scanRevisionRows(rows pgx.Rows) (*model.Revision, error) {
	return scanRevision(rows)
}

// WriteSnapshot upserts a section's content at a revision. Only sections
// that actually changed are written at a given revision (spec.md §3) — the
// caller decides that; this just persists whatever it is handed.
func (s *Store) WriteSnapshot(ctx context.Context, tx pgx.Tx, snap *model.SectionSnapshot) error {
	provisions, err := json.Marshal(snap.NormalizedProvisions)
	if err != nil {
		return fmt.Errorf("marshal provisions: %w", err)
	}
	notes, err := json.Marshal(snap.NormalizedNotes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO section_snapshot (
			snapshot_id, revision_id, title_number, section_number,
			heading, text_content, normalized_provisions, notes,
			normalized_notes, text_hash, notes_hash, full_citation, is_deleted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (revision_id, title_number, section_number)
		DO UPDATE SET
			heading = EXCLUDED.heading,
			text_content = EXCLUDED.text_content,
			normalized_provisions = EXCLUDED.normalized_provisions,
			notes = EXCLUDED.notes,
			normalized_notes = EXCLUDED.normalized_notes,
			text_hash = EXCLUDED.text_hash,
			notes_hash = EXCLUDED.notes_hash,
			full_citation = EXCLUDED.full_citation,
			is_deleted = EXCLUDED.is_deleted`,
		snap.SnapshotID, snap.RevisionID, snap.TitleNumber, snap.SectionNumber,
		snap.Heading, snap.TextContent, provisions, snap.Notes,
		notes, snap.TextHash, snap.NotesHash, snap.FullCitation, snap.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// GetSectionAt resolves one section's content as of revisionID, by walking
// the parent chain until a snapshot for that section is found. The walk
// does not consult compaction_snapshot rows.
func (s *Store) GetSectionAt(ctx context.Context, revisionID string, key model.SectionKey) (*model.SectionSnapshot, error) {
	row := s.db.pool.QueryRow(ctx, `
		WITH RECURSIVE ancestry AS (
			SELECT revision_id, parent_revision_id, sequence_number
			FROM code_revision WHERE revision_id = $1
			UNION ALL
			SELECT p.revision_id, p.parent_revision_id, p.sequence_number
			FROM code_revision p
			JOIN ancestry a ON p.revision_id = a.parent_revision_id
		)
		SELECT s.snapshot_id, s.revision_id, s.title_number, s.section_number,
		       s.heading, s.text_content, s.normalized_provisions, s.notes,
		       s.normalized_notes, s.text_hash, s.notes_hash, s.full_citation, s.is_deleted
		FROM section_snapshot s
		JOIN ancestry a ON s.revision_id = a.revision_id
		WHERE s.title_number = $2 AND s.section_number = $3
		ORDER BY a.sequence_number DESC
		LIMIT 1`, revisionID, key.TitleNumber, key.SectionNumber)

	snap, err := scanSnapshot(row)
	if err != nil {
		return nil, err
	}
	if snap.IsDeleted {
		return nil, ErrNotFound
	}
	return snap, nil
}

// GetAllSectionsAt returns the live section set as of revisionID: the most
// recent, non-deleted snapshot for every section touched anywhere in the
// chain.
func (s *Store) GetAllSectionsAt(ctx context.Context, revisionID string) ([]*model.SectionSnapshot, error) {
	rows, err := s.db.pool.Query(ctx, `
		WITH RECURSIVE ancestry AS (
			SELECT revision_id, parent_revision_id, sequence_number
			FROM code_revision WHERE revision_id = $1
			UNION ALL
			SELECT p.revision_id, p.parent_revision_id, p.sequence_number
			FROM code_revision p
			JOIN ancestry a ON p.revision_id = a.parent_revision_id
		),
		ranked AS (
			SELECT s.*, a.sequence_number,
			       ROW_NUMBER() OVER (
			           PARTITION BY s.title_number, s.section_number
			           ORDER BY a.sequence_number DESC
			       ) AS rnk
			FROM section_snapshot s
			JOIN ancestry a ON s.revision_id = a.revision_id
		)
		SELECT snapshot_id, revision_id, title_number, section_number,
		       heading, text_content, normalized_provisions, notes,
		       normalized_notes, text_hash, notes_hash, full_citation, is_deleted
		FROM ranked WHERE rnk = 1 AND is_deleted = false`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("get all sections at: %w", err)
	}
	defer rows.Close()

	var out []*model.SectionSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// GetChangedSectionsAt returns only the sections with a snapshot row written
// directly at revisionID (the sections that actually changed there), per
// spec.md §4 "changed sections index".
func (s *Store) GetChangedSectionsAt(ctx context.Context, revisionID string) ([]*model.SectionSnapshot, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT snapshot_id, revision_id, title_number, section_number,
		       heading, text_content, normalized_provisions, notes,
		       normalized_notes, text_hash, notes_hash, full_citation, is_deleted
		FROM section_snapshot WHERE revision_id = $1`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("get changed sections at: %w", err)
	}
	defer rows.Close()

	var out []*model.SectionSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// SectionHistory returns every snapshot ever written for (title, section),
// across all revisions, newest first (spec.md §6 "section_history").
func (s *Store) SectionHistory(ctx context.Context, key model.SectionKey) ([]*model.SectionSnapshot, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT s.snapshot_id, s.revision_id, s.title_number, s.section_number,
		       s.heading, s.text_content, s.normalized_provisions, s.notes,
		       s.normalized_notes, s.text_hash, s.notes_hash, s.full_citation, s.is_deleted
		FROM section_snapshot s
		JOIN code_revision r ON r.revision_id = s.revision_id
		WHERE s.title_number = $1 AND s.section_number = $2
		ORDER BY r.sequence_number DESC`, key.TitleNumber, key.SectionNumber)
	if err != nil {
		return nil, fmt.Errorf("section history: %w", err)
	}
	defer rows.Close()

	var out []*model.SectionSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row rowScanner) (*model.SectionSnapshot, error) {
	snap := &model.SectionSnapshot{}
	var provisions, notes []byte
	err := row.Scan(&snap.SnapshotID, &snap.RevisionID, &snap.TitleNumber, &snap.SectionNumber,
		&snap.Heading, &snap.TextContent, &provisions, &snap.Notes,
		&notes, &snap.TextHash, &snap.NotesHash, &snap.FullCitation, &snap.IsDeleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	if len(provisions) > 0 {
		if err := json.Unmarshal(provisions, &snap.NormalizedProvisions); err != nil {
			return nil, fmt.Errorf("unmarshal provisions: %w", err)
		}
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &snap.NormalizedNotes); err != nil {
			return nil, fmt.Errorf("unmarshal notes: %w", err)
		}
	}
	return snap, nil
}

// WriteCompactionSnapshot records a compaction marker at a revision with
// its live section count. The section contents are not copied into it.
func (s *Store) WriteCompactionSnapshot(ctx context.Context, tx pgx.Tx, revisionID string, sectionCount int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO compaction_snapshot (revision_id, section_count, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (revision_id) DO UPDATE SET section_count = EXCLUDED.section_count`,
		revisionID, sectionCount)
	if err != nil {
		return fmt.Errorf("write compaction snapshot: %w", err)
	}
	return nil
}

// NearestCompactionAncestor returns the revision ID of the closest ancestor
// (including revisionID itself) that has a compaction snapshot, so chain
// walks can stop there instead of reaching the root.
func (s *Store) NearestCompactionAncestor(ctx context.Context, revisionID string) (string, bool, error) {
	row := s.db.pool.QueryRow(ctx, `
		WITH RECURSIVE ancestry AS (
			SELECT revision_id, parent_revision_id, sequence_number
			FROM code_revision WHERE revision_id = $1
			UNION ALL
			SELECT p.revision_id, p.parent_revision_id, p.sequence_number
			FROM code_revision p
			JOIN ancestry a ON p.revision_id = a.parent_revision_id
		)
		SELECT a.revision_id FROM ancestry a
		JOIN compaction_snapshot c ON c.revision_id = a.revision_id
		ORDER BY a.sequence_number DESC
		LIMIT 1`, revisionID)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("nearest compaction ancestor: %w", err)
	}
	return id, true, nil
}
