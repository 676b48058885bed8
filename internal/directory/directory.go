// Package directory defines the remote contact directory port.
package directory

import "context"

// BatchSize is the maximum number of IDs per LookupAll call. The
// backing remote directory caps membership queries at 10 IDs, so
// larger lists must go through BatchLookup.
const BatchSize = 10

// Entry is a directory record for one contact. A nil Token means the
// contact has no registered device.
type Entry struct {
	ID     string
	Token  *string
	Status *string
}

// Directory is the remote contact lookup port. Implementations may be
// slow; callers must treat any error as an unavailable record.
type Directory interface {
	// Token returns the push token registered for id. Absence of a
	// token is an error.
	Token(ctx context.Context, id string) (string, error)

	// Lookup returns the full directory entry for id.
	Lookup(ctx context.Context, id string) (*Entry, error)

	// LookupAll returns entries for up to BatchSize IDs. IDs without a
	// directory record are simply missing from the result.
	LookupAll(ctx context.Context, ids []string) ([]Entry, error)
}

// BatchLookup splits ids into BatchSize chunks, queries each and merges
// the results.
func BatchLookup(ctx context.Context, dir Directory, ids []string) ([]Entry, error) {
	var entries []Entry
	for start := 0; start < len(ids); start += BatchSize {
		end := start + BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := dir.LookupAll(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		entries = append(entries, batch...)
	}
	return entries, nil
}
