package domain

// SearchOutcomeKind discriminates the result of a web search call. The parsing
// boundary in the search adapter produces exactly one of these, so downstream
// workflow logic never re-checks the raw payload shape.
type SearchOutcomeKind string

const (
	// SearchSuccess: at least one well-formed result with text content.
	SearchSuccess SearchOutcomeKind = "success"
	// SearchMalformed: the call succeeded but the payload held no usable text.
	SearchMalformed SearchOutcomeKind = "malformed"
	// SearchFailure: the call itself failed (transport, status, timeout).
	SearchFailure SearchOutcomeKind = "failure"
)

type SearchOutcome struct {
	Kind  SearchOutcomeKind
	Texts []string
}
