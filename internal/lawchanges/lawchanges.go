// Package lawchanges wires the enacted-law fetcher, the markup parser (C2),
// and the classifier (C3) into the playforward.ChangeSource the play-forward
// engine (C10) calls to "ensure LawChange records exist for this law"
// (spec.md §4.10 step 3). LawChanges are not persisted separately — they
// are reproduced on demand from the enacted law's own text, which is itself
// durable, so a failed run can simply re-derive them.
package lawchanges

import (
	"context"
	"fmt"
	"time"

	"github.com/uscchron/chronicle/internal/classify"
	"github.com/uscchron/chronicle/internal/fetch"
	"github.com/uscchron/chronicle/internal/markup"
	"github.com/uscchron/chronicle/internal/model"
)

// Source implements playforward.ChangeSource.
type Source struct {
	laws fetch.LawFetcher
}

func New(laws fetch.LawFetcher) *Source {
	return &Source{laws: laws}
}

// EnsureLawChanges fetches the enacted law's markup (falling back to plain
// text), parses it, and classifies every candidate into a LawChange.
// ParseErrors on individual candidates are skipped, not fatal, per spec.md
// §7's ParseError policy ("the core continues with whatever LawChanges were
// produced").
func (s *Source) EnsureLawChanges(ctx context.Context, congress, lawNumber int, effectiveDate time.Time) ([]*model.LawChange, error) {
	lawRef := fmt.Sprintf("%d-%d", congress, lawNumber)

	candidates, err := s.parseLaw(ctx, congress, lawNumber)
	if err != nil {
		return nil, err
	}

	var changes []*model.LawChange
	for _, c := range candidates {
		change, ok := classify.Classify(c, lawRef, effectiveDate)
		if !ok {
			continue
		}
		changes = append(changes, change)
	}

	for i, c := range changes {
		c.ChangeID = int64(i)
	}

	return changes, nil
}

func (s *Source) parseLaw(ctx context.Context, congress, lawNumber int) ([]markup.Candidate, error) {
	text, ok, err := s.laws.FetchLawText(ctx, congress, lawNumber, fetch.FormatXML)
	if err != nil {
		return nil, fmt.Errorf("fetch law xml: %w", err)
	}
	if ok {
		candidates, err := markup.ParseEnactedLaw([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("parse law xml: %w", err)
		}
		return candidates, nil
	}

	text, ok, err = s.laws.FetchLawText(ctx, congress, lawNumber, fetch.FormatHTM)
	if err != nil {
		return nil, fmt.Errorf("fetch law htm: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("enacted law %d-%d not found in any format", congress, lawNumber)
	}

	candidates, err := markup.ScanPlainText(text)
	if err != nil {
		return nil, fmt.Errorf("scan law plain text: %w", err)
	}
	return candidates, nil
}
