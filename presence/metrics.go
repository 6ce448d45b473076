package presence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsApplied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_presence_events_applied",
	Help: "Number of presence events applied by the tracker",
})

var orderingAnomalies = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_presence_ordering_anomalies",
	Help: "Number of events referencing occupants never seen before",
})

var sessionResets = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_presence_session_resets",
	Help: "Number of session boundary resets (instance change or session end)",
})

var activeOccupants = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "groupguard_presence_active_occupants",
	Help: "Current number of occupants in active state",
})
