package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("groupguard")

var interceptionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_interceptions_recorded",
	Help: "Number of rejecting decisions recorded to the interception log",
})

var scansRequested = promauto.NewCounter(prometheus.CounterOpts{
	Name: "groupguard_scans_requested",
	Help: "Number of batch member scans requested over the API",
})
