package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uscchron/chronicle/internal/registry"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildSortsByDate(t *testing.T) {
	points := []registry.ReleasePoint{
		{FullIdentifier: "118-2", Congress: 118, PrimaryLawNumber: 2, PublicationDate: date(2024, 3, 1)},
		{FullIdentifier: "118-1", Congress: 118, PrimaryLawNumber: 1, PublicationDate: date(2024, 1, 1)},
	}
	events := Build(points, nil)
	require.Len(t, events, 2)
	assert.Equal(t, "118-1", events[0].Tag)
	assert.Equal(t, "118-2", events[1].Tag)
}

func TestBuildEnactedLawSortsBeforeSameDayReleasePoint(t *testing.T) {
	points := []registry.ReleasePoint{
		{FullIdentifier: "118-1", Congress: 118, PrimaryLawNumber: 1, PublicationDate: date(2024, 3, 1)},
	}
	laws := []EnactedLaw{
		{Congress: 118, LawNumber: 1, Date: date(2024, 3, 1)},
	}

	events := Build(points, laws)
	require.Len(t, events, 2)
	assert.Equal(t, Enacted, events[0].Kind)
	assert.Equal(t, GroundTruth, events[1].Kind)
}

func TestBuildSameDaySortsByCongressThenLawNumber(t *testing.T) {
	laws := []EnactedLaw{
		{Congress: 118, LawNumber: 2, Date: date(2024, 1, 1)},
		{Congress: 118, LawNumber: 1, Date: date(2024, 1, 1)},
		{Congress: 117, LawNumber: 9, Date: date(2024, 1, 1)},
	}
	events := Build(nil, laws)
	require.Len(t, events, 3)
	assert.Equal(t, 117, events[0].Congress)
	assert.Equal(t, 118, events[1].Congress)
	assert.Equal(t, 1, events[1].LawNumber)
	assert.Equal(t, 2, events[2].LawNumber)
}

func TestBetweenInclusiveRange(t *testing.T) {
	points := []registry.ReleasePoint{
		{FullIdentifier: "118-1", Congress: 118, PrimaryLawNumber: 1, PublicationDate: date(2024, 1, 1)},
		{FullIdentifier: "118-2", Congress: 118, PrimaryLawNumber: 2, PublicationDate: date(2024, 2, 1)},
		{FullIdentifier: "118-3", Congress: 118, PrimaryLawNumber: 3, PublicationDate: date(2024, 3, 1)},
	}
	events := Build(points, nil)

	out := Between(events, "118-1", "118-2")
	require.Len(t, out, 2)
	assert.Equal(t, "118-1", out[0].Tag)
	assert.Equal(t, "118-2", out[1].Tag)
}

func TestBetweenUnknownTagReturnsNil(t *testing.T) {
	points := []registry.ReleasePoint{
		{FullIdentifier: "118-1", Congress: 118, PrimaryLawNumber: 1, PublicationDate: date(2024, 1, 1)},
	}
	events := Build(points, nil)

	assert.Nil(t, Between(events, "118-1", "999-9"))
}
