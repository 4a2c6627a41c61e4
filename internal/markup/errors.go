package markup

import "errors"

// Error kinds per spec.md §4.2 "Fails with" / §7 ParseError taxonomy.
var (
	ErrMalformed    = errors.New("markup: malformed XML")
	ErrMissingTitle = errors.New("markup: missing resolvable title number")
)
