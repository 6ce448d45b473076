package presence

import "time"

// DefaultHistoryCapacity is how many occupancy samples the bounded time
// series retains.
const DefaultHistoryCapacity = 2000

// Sample is one occupancy measurement.
type Sample struct {
	Timestamp   time.Time `json:"timestamp"`
	ActiveCount int       `json:"activeCount"`
}

// History is a bounded time series of active occupant counts, derived from
// the entity set at each applied event. Bursts within the same second
// coalesce into the latest sample; past capacity the oldest samples are
// dropped, never the newest write.
type History struct {
	capacity int
	samples  []Sample
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity}
}

// Record appends a sample, coalescing into the previous one when both fall in
// the same second.
func (h *History) Record(ts time.Time, active int) {
	ts = ts.Truncate(time.Second)
	if n := len(h.samples); n > 0 && h.samples[n-1].Timestamp.Equal(ts) {
		h.samples[n-1].ActiveCount = active
		return
	}
	h.samples = append(h.samples, Sample{Timestamp: ts, ActiveCount: active})
	if len(h.samples) > h.capacity {
		h.samples = append(h.samples[:0], h.samples[len(h.samples)-h.capacity:]...)
	}
}

// Samples returns a copy of the retained series, oldest first.
func (h *History) Samples() []Sample {
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

func (h *History) Len() int {
	return len(h.samples)
}

// Reset drops all samples, eg at a session boundary.
func (h *History) Reset() {
	h.samples = h.samples[:0]
}

// Restore replaces the series with a persisted one, trimming to capacity.
func (h *History) Restore(samples []Sample) {
	if len(samples) > h.capacity {
		samples = samples[len(samples)-h.capacity:]
	}
	h.samples = append(h.samples[:0], samples...)
}
