package backend

import "context"

// Lister enumerates the remote repository tree. Prefixes are relative to the
// repository base ("" is the base itself, "web01/system" a category level).
type Lister interface {
	// List returns the sorted names of the immediate child prefixes
	// ("directories") below prefix. A prefix that does not exist yields an
	// empty result, not an error.
	List(ctx context.Context, prefix string) ([]string, error)
}
