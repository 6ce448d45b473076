package logwatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_logwatch_events_received",
	Help: "Number of events decoded from the log relay stream",
})

var eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_logwatch_events_dropped",
	Help: "Number of undecodable relay messages skipped",
})

var reconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_logwatch_reconnects",
	Help: "Number of times the relay stream was re-dialed after a disconnect",
})
