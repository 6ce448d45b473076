package automod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisionsAllowed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_decisions_allowed",
	Help: "Number of candidate evaluations that resulted in allow",
})

var decisionsRejected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_decisions_rejected",
	Help: "Number of candidate evaluations that resulted in reject",
})

var scanFetchesFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_scan_fetches_failed",
	Help: "Number of directory enrichment fetches that failed during batch scans",
})
