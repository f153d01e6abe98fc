package tcpool

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional set of Prometheus instruments a Pool reports
// against. A nil *Metrics (the default) disables all reporting; the
// hot allocate/deallocate paths pay for it only when it is wired in.
type Metrics struct {
	allocations    prometheus.Counter
	deallocations  prometheus.Counter
	bytesAllocated prometheus.Counter
	outOfMemory    prometheus.Counter
	largeObjects   prometheus.Counter
}

// NewMetrics builds a Metrics instance and, if reg is non-nil,
// registers its instruments against it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tcpool",
			Name:      "allocations_total",
			Help:      "Total number of successful Allocate calls.",
		}),
		deallocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tcpool",
			Name:      "deallocations_total",
			Help:      "Total number of Deallocate calls.",
		}),
		bytesAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tcpool",
			Name:      "bytes_allocated_total",
			Help:      "Total requested bytes across all successful Allocate calls.",
		}),
		outOfMemory: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tcpool",
			Name:      "out_of_memory_total",
			Help:      "Total number of Allocate calls that returned nil.",
		}),
		largeObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tcpool",
			Name:      "large_object_allocations_total",
			Help:      "Total number of allocations routed to the direct mmap path.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.allocations, m.deallocations, m.bytesAllocated, m.outOfMemory, m.largeObjects)
	}
	return m
}

func (m *Metrics) observeAllocate(size int) {
	if m == nil {
		return
	}
	m.allocations.Inc()
	m.bytesAllocated.Add(float64(size))
}

func (m *Metrics) observeDeallocate() {
	if m == nil {
		return
	}
	m.deallocations.Inc()
}

func (m *Metrics) observeOOM() {
	if m == nil {
		return
	}
	m.outOfMemory.Inc()
}

func (m *Metrics) observeLargeObject() {
	if m == nil {
		return
	}
	m.largeObjects.Inc()
}
