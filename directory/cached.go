package directory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
)

// CachedDirectory wraps another directory with in-process TTL caches for
// profiles and group memberships. Profile data changes slowly relative to how
// often scans re-read it, so short TTLs cut most of the upstream traffic.
type CachedDirectory struct {
	Inner automod.ProfileDirectory

	profileCache *expirable.LRU[string, *automod.Candidate]
	groupsCache  *expirable.LRU[string, []string]
}

var _ automod.ProfileDirectory = (*CachedDirectory)(nil)

func NewCachedDirectory(inner automod.ProfileDirectory, size int, ttl time.Duration) *CachedDirectory {
	if size <= 0 {
		size = 5000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedDirectory{
		Inner:        inner,
		profileCache: expirable.NewLRU[string, *automod.Candidate](size, nil, ttl),
		groupsCache:  expirable.NewLRU[string, []string](size, nil, ttl),
	}
}

func (cd *CachedDirectory) LookupProfile(ctx context.Context, id string) (*automod.Candidate, error) {
	if c, ok := cd.profileCache.Get(id); ok {
		profileCacheHits.Inc()
		return c, nil
	}
	profileCacheMisses.Inc()
	c, err := cd.Inner.LookupProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	cd.profileCache.Add(id, c)
	return c, nil
}

func (cd *CachedDirectory) LookupGroups(ctx context.Context, id string) ([]string, error) {
	if g, ok := cd.groupsCache.Get(id); ok {
		groupsCacheHits.Inc()
		return g, nil
	}
	groupsCacheMisses.Inc()
	g, err := cd.Inner.LookupGroups(ctx, id)
	if err != nil {
		return nil, err
	}
	cd.groupsCache.Add(id, g)
	return g, nil
}

// Purge drops a single id from both caches, eg after a moderation action that
// is expected to change upstream state.
func (cd *CachedDirectory) Purge(id string) {
	cd.profileCache.Remove(id)
	cd.groupsCache.Remove(id)
}
