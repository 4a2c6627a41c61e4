// Package registry implements the release-point registry (C1): the list of
// known ground-truth snapshot tags, their publication dates, and their
// deferred-law exclusions.
package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ReleasePoint is one known ground-truth snapshot tag.
type ReleasePoint struct {
	FullIdentifier    string // "<congress>-<primary_law>", e.g. "113-21"
	Congress          int
	PrimaryLawNumber  int
	PublicationDate   time.Time
	DeferredLaws      []int
}

// Source is the external directory listing this package treats as opaque
// ground truth (spec.md §6 "Release-point directory").
type Source interface {
	ListReleasePoints() ([]RawEntry, error)
}

// RawEntry is one row as published by the external directory, before tag
// parsing.
type RawEntry struct {
	Tag             string
	PublicationDate time.Time
}

// Registry holds release points fetched from a Source, ordered by
// publication date.
type Registry struct {
	points []ReleasePoint
}

// Load fetches all release points from src and parses their tags.
func Load(src Source) (*Registry, error) {
	entries, err := src.ListReleasePoints()
	if err != nil {
		return nil, fmt.Errorf("failed to list release points: %w", err)
	}

	points := make([]ReleasePoint, 0, len(entries))
	for _, e := range entries {
		rp, err := ParseTag(e.Tag)
		if err != nil {
			return nil, fmt.Errorf("release point %q: %w", e.Tag, err)
		}
		rp.PublicationDate = e.PublicationDate
		points = append(points, rp)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].PublicationDate.Before(points[j].PublicationDate)
	})

	return &Registry{points: points}, nil
}

// All returns every known release point in publication order.
func (r *Registry) All() []ReleasePoint {
	out := make([]ReleasePoint, len(r.points))
	copy(out, r.points)
	return out
}

// ParseTag parses a release-point tag of the form "<congress>-<primary_law>"
// or "<congress>-<primary_law>not<law1>,<law2>,..." (spec.md §6), the latter
// listing laws deferred from this release point.
func ParseTag(tag string) (ReleasePoint, error) {
	base := tag
	var deferredLaws []int

	if idx := strings.Index(tag, "not"); idx >= 0 {
		base = tag[:idx]
		deferredPart := tag[idx+len("not"):]
		for _, field := range strings.Split(deferredPart, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			n, err := strconv.Atoi(field)
			if err != nil {
				return ReleasePoint{}, fmt.Errorf("invalid deferred law number %q in tag %q: %w", field, tag, err)
			}
			deferredLaws = append(deferredLaws, n)
		}
	}

	parts := strings.SplitN(base, "-", 2)
	if len(parts) != 2 {
		return ReleasePoint{}, fmt.Errorf("malformed release-point tag %q: expected <congress>-<primary_law>", tag)
	}

	congress, err := strconv.Atoi(parts[0])
	if err != nil {
		return ReleasePoint{}, fmt.Errorf("invalid congress number in tag %q: %w", tag, err)
	}
	primaryLaw, err := strconv.Atoi(parts[1])
	if err != nil {
		return ReleasePoint{}, fmt.Errorf("invalid primary law number in tag %q: %w", tag, err)
	}

	return ReleasePoint{
		FullIdentifier:   tag,
		Congress:         congress,
		PrimaryLawNumber: primaryLaw,
		DeferredLaws:     deferredLaws,
	}, nil
}

// HasDeferred reports whether lawNumber is deferred at this release point.
func (rp ReleasePoint) HasDeferred(lawNumber int) bool {
	for _, n := range rp.DeferredLaws {
		if n == lawNumber {
			return true
		}
	}
	return false
}
