package directory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var profileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_directory_profile_cache_hits",
	Help: "Number of profile lookups served from cache",
})

var profileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_directory_profile_cache_misses",
	Help: "Number of profile lookups that went upstream",
})

var groupsCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_directory_groups_cache_hits",
	Help: "Number of group membership lookups served from cache",
})

var groupsCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_directory_groups_cache_misses",
	Help: "Number of group membership lookups that went upstream",
})
