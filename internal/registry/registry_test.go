package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTagSimple(t *testing.T) {
	rp, err := ParseTag("113-21")
	require.NoError(t, err)
	assert.Equal(t, 113, rp.Congress)
	assert.Equal(t, 21, rp.PrimaryLawNumber)
	assert.Empty(t, rp.DeferredLaws)
	assert.Equal(t, "113-21", rp.FullIdentifier)
}

func TestParseTagDeferred(t *testing.T) {
	rp, err := ParseTag("118-47not60")
	require.NoError(t, err)
	assert.Equal(t, 118, rp.Congress)
	assert.Equal(t, 47, rp.PrimaryLawNumber)
	assert.Equal(t, []int{60}, rp.DeferredLaws)
	assert.True(t, rp.HasDeferred(60))
	assert.False(t, rp.HasDeferred(61))
}

func TestParseTagDeferredMultiple(t *testing.T) {
	rp, err := ParseTag("118-47not60,61,62")
	require.NoError(t, err)
	assert.Equal(t, []int{60, 61, 62}, rp.DeferredLaws)
}

func TestParseTagMalformed(t *testing.T) {
	_, err := ParseTag("not-a-tag-at-all")
	assert.Error(t, err)
}

type fakeSource struct {
	entries []RawEntry
}

func (f fakeSource) ListReleasePoints() ([]RawEntry, error) {
	return f.entries, nil
}

func TestLoadOrdersByPublicationDate(t *testing.T) {
	src := fakeSource{entries: []RawEntry{
		{Tag: "113-22", PublicationDate: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Tag: "113-21", PublicationDate: time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}

	reg, err := Load(src)
	require.NoError(t, err)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "113-21", all[0].FullIdentifier)
	assert.Equal(t, "113-22", all[1].FullIdentifier)
}
