// Package glossa provides an incremental translation engine for live,
// mutating document trees: it discovers translatable text and attribute
// units, translates them asynchronously through a pluggable translator,
// and keeps translations consistent under concurrent edits, removals,
// lazy viewport gating, and session restarts.
package glossa

import "errors"

// Construction errors
var (
	// ErrNilDocument indicates that New was called without a document.
	ErrNilDocument = errors.New("no document provided")

	// ErrNilTranslator indicates that New was called without a translator.
	ErrNilTranslator = errors.New("no translator provided")
)

// Observation errors
var (
	// ErrNilRoot indicates that a nil root element was passed.
	ErrNilRoot = errors.New("no root element provided")

	// ErrAlreadyObserved indicates that the root already has an active watch.
	ErrAlreadyObserved = errors.New("root already observed")

	// ErrNotObserved indicates that the root has no active watch.
	ErrNotObserved = errors.New("root not observed")

	// ErrClosed indicates that the engine has been closed.
	ErrClosed = errors.New("engine closed")
)

// Document errors
var (
	// ErrForeignNode indicates that a node belongs to a different document.
	ErrForeignNode = errors.New("node belongs to a different document")
)

// Session errors
var (
	// ErrAlreadyStarted indicates that the session is already running.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrNotStarted indicates that the session is not running.
	ErrNotStarted = errors.New("session not started")

	// ErrTimeout indicates that a blocking wait operation timed out.
	ErrTimeout = errors.New("operation timed out")
)
