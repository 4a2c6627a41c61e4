// Package timeline implements C8: merging release points and enacted laws
// into one chronological event stream, respecting deferrals.
package timeline

import (
	"sort"
	"time"

	"github.com/uscchron/chronicle/internal/registry"
)

// Kind distinguishes the two event sources merged into one stream.
type Kind string

const (
	Enacted     Kind = "enacted"
	GroundTruth Kind = "ground_truth"
)

// typeOrder fixes same-day sort precedence: an enacted law sorts before a
// release point dated the same day, per spec.md §4.8 ("a release point that
// incorporates laws enacted the same day sorts after those laws").
var typeOrder = map[Kind]int{Enacted: 0, GroundTruth: 1}

// Event is one entry in the merged timeline.
type Event struct {
	Kind         Kind
	Date         time.Time
	Congress     int
	LawNumber    int // enacted: the law's own number; ground truth: primary_law_number
	Tag          string
	DeferredLaws []int // ground truth only
}

// EnactedLaw is one row from the external enacted-law store (spec.md §4.8
// "enacted-law events (from external store)").
type EnactedLaw struct {
	Congress  int
	LawNumber int
	Date      time.Time
}

// Build merges release points and enacted laws into one sorted stream.
func Build(points []registry.ReleasePoint, laws []EnactedLaw) []Event {
	events := make([]Event, 0, len(points)+len(laws))

	for _, rp := range points {
		events = append(events, Event{
			Kind:         GroundTruth,
			Date:         rp.PublicationDate,
			Congress:     rp.Congress,
			LawNumber:    rp.PrimaryLawNumber,
			Tag:          rp.FullIdentifier,
			DeferredLaws: rp.DeferredLaws,
		})
	}
	for _, l := range laws {
		events = append(events, Event{
			Kind:      Enacted,
			Date:      l.Date,
			Congress:  l.Congress,
			LawNumber: l.LawNumber,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if typeOrder[a.Kind] != typeOrder[b.Kind] {
			return typeOrder[a.Kind] < typeOrder[b.Kind]
		}
		if a.Congress != b.Congress {
			return a.Congress < b.Congress
		}
		return a.LawNumber < b.LawNumber
	})

	return events
}

// Between returns events from tagA inclusive through tagB inclusive, tags
// matching ground-truth events' Tag field.
func Between(events []Event, tagA, tagB string) []Event {
	startIdx, endIdx := -1, -1
	for i, e := range events {
		if e.Kind != GroundTruth {
			continue
		}
		if e.Tag == tagA && startIdx == -1 {
			startIdx = i
		}
		if e.Tag == tagB {
			endIdx = i
		}
	}
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return nil
	}
	out := make([]Event, endIdx-startIdx+1)
	copy(out, events[startIdx:endIdx+1])
	return out
}
