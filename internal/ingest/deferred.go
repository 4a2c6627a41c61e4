// Package ingest implements C9, the snapshot ingestor: for one release
// point, it fetches and parses every title's XML and stores the result as
// a new ground-truth revision.
package ingest

import (
	"fmt"

	"github.com/bits-and-blooms/bloom/v3"
)

// DeferredSet tracks (congress, law_number) pairs excluded from a release
// point. A Bloom filter front-ends the exact map the way the teacher's
// BloomExchanger front-ends block membership checks, avoiding a map probe
// on the hot single-threaded play-forward loop for large congresses; the
// exact map confirms every filter hit before anything is skipped.
type DeferredSet struct {
	filter *bloom.BloomFilter
	exact  map[string]bool
}

// NewDeferredSet builds a set from deferred (congress, lawNumber) pairs.
func NewDeferredSet(pairs [][2]int) *DeferredSet {
	filter := bloom.NewWithEstimates(uint(len(pairs)+1), 0.01)
	exact := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		key := deferredKey(p[0], p[1])
		filter.AddString(key)
		exact[key] = true
	}
	return &DeferredSet{filter: filter, exact: exact}
}

// Contains reports whether (congress, lawNumber) is deferred.
func (d *DeferredSet) Contains(congress, lawNumber int) bool {
	key := deferredKey(congress, lawNumber)
	if !d.filter.TestString(key) {
		return false
	}
	return d.exact[key]
}

func deferredKey(congress, lawNumber int) string {
	return fmt.Sprintf("%d-%d", congress, lawNumber)
}
