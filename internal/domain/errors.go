package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the pipelines can surface.
// Adapters translate provider-specific failures into one of these before
// returning; pipelines decide retry behaviour by class, never by
// provider detail.
var (
	// ErrInvalidInput indicates malformed input (bad config, oversized
	// text, empty query). Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientCapacity indicates rate limiting, timeouts or other
	// transient provider failures. Retried with bounded backoff before
	// being surfaced.
	ErrTransientCapacity = errors.New("transient capacity")

	// ErrIndexNotReady indicates the vector index exists but is not yet
	// serving. Not retried; surfaced with the resource identifier.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrNotFound indicates a referenced resource (index, collection,
	// document location) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch indicates configuration drift between the
	// embedding model and the index. Fatal, never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ItemError reports a failure for one element of a batch, identified by
// its position in the input. Batches with mixed outcomes surface one
// ItemError per offending element instead of failing opaquely.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Stage names the ingestion pipeline stage a document was in when a
// failure occurred.
type Stage string

const (
	StageFetch Stage = "fetch"
	StageChunk Stage = "chunk"
	StageEmbed Stage = "embed"
	StageIndex Stage = "index"
)

// StageError reports which stage failed for a document and which chunks
// were already durably indexed, so the caller can re-ingest safely.
type StageError struct {
	Stage    Stage
	Location string
	Indexed  []string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed for %s (%d chunks already indexed): %v",
		e.Stage, e.Location, len(e.Indexed), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
