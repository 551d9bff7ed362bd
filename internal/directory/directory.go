// Package directory is the cache-through view of the identity provider.
// Read-only: the engine never writes user records.
package directory

import (
	"context"
	"sort"
	"strings"

	"github.com/seamlabs/weave/internal/types"
)

// Lookup fetches user snapshots from the external identity provider.
type Lookup func(ctx context.Context, ids []string) ([]types.UserSummary, error)

// Directory caches user summaries and serves mention resolution.
type Directory struct {
	lookup Lookup
	cache  map[string]types.UserSummary
}

// New creates a directory over the given lookup.
func New(lookup Lookup) *Directory {
	return &Directory{
		lookup: lookup,
		cache:  make(map[string]types.UserSummary),
	}
}

// GetUsers resolves ids, hitting the provider only for cache misses.
// Unknown ids are simply absent from the result.
func (d *Directory) GetUsers(ctx context.Context, ids []string) ([]types.UserSummary, error) {
	var missing []string
	for _, id := range ids {
		if _, ok := d.cache[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 && d.lookup != nil {
		fetched, err := d.lookup(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, user := range fetched {
			d.cache[user.ID] = user
		}
	}

	out := make([]types.UserSummary, 0, len(ids))
	for _, id := range ids {
		if user, ok := d.cache[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

// Prime seeds the cache, used with directory snapshots delivered at
// session start.
func (d *Directory) Prime(users []types.UserSummary) {
	for _, user := range users {
		d.cache[user.ID] = user
	}
}

// ByName maps lowercased display names to user ids for mention extraction.
func (d *Directory) ByName() map[string]string {
	out := make(map[string]string, len(d.cache))
	for id, user := range d.cache {
		out[strings.ToLower(user.Name)] = id
	}
	return out
}

// CanonicalNames maps lowercased display names to their canonical
// spelling, used to normalize mention text before send.
func (d *Directory) CanonicalNames() map[string]string {
	out := make(map[string]string, len(d.cache))
	for _, user := range d.cache {
		out[strings.ToLower(user.Name)] = user.Name
	}
	return out
}

// Autocomplete returns cached users whose name matches the mention query
// prefix, case-insensitively, sorted by name.
func (d *Directory) Autocomplete(query string) []types.UserSummary {
	query = strings.ToLower(query)
	var out []types.UserSummary
	for _, user := range d.cache {
		if strings.HasPrefix(strings.ToLower(user.Name), query) {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
