package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// ProvisionLine is one line of a section's structured provision tree: a
// marker such as "(a)", "(1)", "(A)", an indentation depth, a header/body
// flag, and its content.
type ProvisionLine struct {
	LineNumber int    `json:"line_number"`
	Marker     string `json:"marker,omitempty"`
	Depth      int    `json:"depth"`
	IsHeader   bool   `json:"is_header"`
	Content    string `json:"content"`
}

// NoteEntry is one structured entry in a section's normalized notes:
// amendment history, citations, or statutory notes.
type NoteEntry struct {
	Category    string `json:"category"` // "amendment", "citation", "statutory"
	Year        int    `json:"year,omitempty"`
	LawRef      string `json:"law_ref,omitempty"`
	Relationship string `json:"relationship,omitempty"` // e.g. "Amendment"
	Text        string `json:"text"`
}

// SectionSnapshot is the content of one section at one revision (spec.md §3).
// Snapshots are written only for sections that changed at the owning
// revision; unchanged sections are resolved by walking parents (C4).
type SectionSnapshot struct {
	SnapshotID    string
	RevisionID    string
	TitleNumber   int
	SectionNumber string

	Heading              string
	TextContent          *string
	NormalizedProvisions []ProvisionLine
	Notes                string
	NormalizedNotes      []NoteEntry
	TextHash             *string
	NotesHash            *string
	FullCitation         string
	IsDeleted            bool
}

// Key identifies a section independent of revision.
type SectionKey struct {
	TitleNumber   int
	SectionNumber string
}

func (s *SectionSnapshot) Key() SectionKey {
	return SectionKey{TitleNumber: s.TitleNumber, SectionNumber: s.SectionNumber}
}

// HashText returns the lowercase hex SHA-256 of the UTF-8 bytes of s, per
// spec.md §6's hash format.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ComputeTextHash sets TextHash from TextContent, matching invariant R3:
// TextHash is non-nil iff TextContent is non-nil.
func (s *SectionSnapshot) ComputeTextHash() {
	if s.TextContent == nil {
		s.TextHash = nil
		return
	}
	h := HashText(*s.TextContent)
	s.TextHash = &h
}

// ComputeNotesHash sets NotesHash from Notes. Unlike TextHash, notes are
// always present (possibly empty), so NotesHash is always computed.
func (s *SectionSnapshot) ComputeNotesHash() {
	h := HashText(s.Notes)
	s.NotesHash = &h
}

// RenderProvisions concatenates provision line contents with newlines, the
// round-trip encoding spec.md P8 describes: when no structural amendment has
// intervened, this matches TextContent.
func RenderProvisions(lines []ProvisionLine) string {
	out := make([]byte, 0, 64*len(lines))
	for i, l := range lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, l.Content...)
	}
	return string(out)
}
