package index

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ghindex/ghindex/pkg/cache"
	"github.com/ghindex/ghindex/pkg/github"
)

// listingKey is the fixed cache key the repository snapshot lives under.
const listingKey = "repositories"

// DefaultTTL is the default expiry of the repository listing snapshot.
const DefaultTTL = 15 * time.Minute

// Listing serves the repository mapping through a time-bounded cache so the
// upstream API is not re-queried on every request.
//
// The cache stores plain repository records, never live client-bound
// handles: a snapshot written by one request cannot carry that request's
// credential forward. On a hit the records are rehydrated into a mapping
// used with the current request's client; on a miss the resolver's live
// mapping is returned directly and the snapshot written behind it.
type Listing struct {
	store      cache.Store
	ttl        time.Duration
	identities []Identity
}

// NewListing creates a listing cache over store with the given TTL.
// A ttl of 0 falls back to [DefaultTTL].
func NewListing(store cache.Store, ttl time.Duration, identities []Identity) *Listing {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Listing{store: store, ttl: ttl, identities: identities}
}

// Purge evicts the snapshot, forcing the next Get to resolve fresh.
func (l *Listing) Purge(ctx context.Context) error {
	return l.store.Delete(ctx, listingKey)
}

// Get returns the repository mapping for the current request.
//
// If purge is set the snapshot is evicted first. Cache read failures are
// treated as misses; cache write failures are ignored, since the resolved
// mapping is already in hand and the next request will simply resolve
// again. Overlapping populate-on-miss calls may each resolve and write;
// last writer wins.
func (l *Listing) Get(ctx context.Context, client *github.Client, purge bool) (*Mapping, error) {
	if purge {
		_ = l.Purge(ctx)
	}

	if data, hit, err := l.store.Get(ctx, listingKey); err == nil && hit {
		var repos []github.Repo
		if err := json.Unmarshal(data, &repos); err == nil {
			return newMapping(repos), nil
		}
		// Unreadable snapshot: drop it and resolve fresh.
		_ = l.store.Delete(ctx, listingKey)
	}

	mapping, err := NewResolver(client, l.identities).Resolve(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(mapping.Repos()); err == nil {
		_ = l.store.Set(ctx, listingKey, data, l.ttl)
	}
	return mapping, nil
}
