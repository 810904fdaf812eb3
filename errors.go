package fosk

import "errors"

// Collection-mutation sentinels, independent of query errors (spec
// §7's policy), grounded on docdb/internal/errors/errors.go's flat
// sentinel-variable style.
var (
	ErrDocNotFound        = errors.New("document not found")
	ErrDocExists          = errors.New("document already exists")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCollectionExists   = errors.New("collection already exists")
)

// LexError reports a tokenizer failure at a source offset (spec §7).
type LexError struct {
	Offset int
	Msg    string
}

func (e *LexError) Error() string { return "lex error: " + e.Msg }

// ParseError reports a grammar violation at a source offset.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string { return "parse error: " + e.Msg }

// BindError reports an identifier-resolution or shape violation caught
// by the analyzer.
type BindError struct{ Msg string }

func (e *BindError) Error() string { return "bind error: " + e.Msg }

// TypeError reports a value coerced to an incompatible type where spec
// §4.6 requires a hard failure rather than a null/unknown fallback
// (reserved for §6.1 document-validation failures; predicate/arithmetic
// evaluation itself never raises one, per spec §4.6's null-propagating
// design).
type TypeError struct{ Msg string }

func (e *TypeError) Error() string { return "type error: " + e.Msg }

// RuntimeError reports a failure surfaced while pulling rows through
// the executor pipeline.
type RuntimeError struct{ Msg string }

func (e *RuntimeError) Error() string { return "runtime error: " + e.Msg }
