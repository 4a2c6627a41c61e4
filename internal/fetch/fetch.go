// Package fetch provides the downstream collaborator interfaces C9 and C10
// consume (spec.md §6 "Downstream"), plus a local file cache implementation
// backing them: a read-through cache over an optional remote blob store, as
// spec.md §5 describes ("misses fetch, store both locally and remotely").
package fetch

import (
	"context"
)

// TitleFetcher downloads one title's authoritative legal-markup XML at a
// release-point tag. A false ok means "not published at this tag" — a 404,
// not an error (spec.md §6, §7 FetchError policy for title downloads).
type TitleFetcher interface {
	FetchTitleXML(ctx context.Context, title int, releaseTag string) (data []byte, ok bool, err error)
}

// LawFormat selects which representation of an enacted law's text to fetch.
type LawFormat string

const (
	FormatXML LawFormat = "xml"
	FormatHTM LawFormat = "htm"
)

// LawFetcher downloads the text of one enacted law. A false ok here is
// fatal to the event (spec.md §7: "for enacted-law text, [a 404] aborts
// that event with Failed status").
type LawFetcher interface {
	FetchLawText(ctx context.Context, congress, lawNumber int, format LawFormat) (text string, ok bool, err error)
}

// BlobStore is the optional remote backing store a local cache miss falls
// through to, per spec.md §5.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}
