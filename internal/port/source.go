package port

import "context"

// DocumentSource is a read-only text store keyed by location. The core
// never implements the store itself; it only lists and reads.
type DocumentSource interface {
	// List resolves location patterns to concrete locations, sorted and
	// de-duplicated.
	List(ctx context.Context, patterns []string) ([]string, error)

	// Read returns the text at a location.
	Read(ctx context.Context, location string) (string, error)
}
