package node

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/VictoriaMetrics/metrics"
)

const (
	opSet    = "set"
	opGet    = "get"
	opRemove = "remove"

	routeLocal  = "local"
	routeRemote = "remote"
)

// serviceMetrics holds the metrics of one node service. Every service gets
// its own set, so several services can live in one process (tests, tools).
type serviceMetrics struct {
	set       *metrics.Set
	requests  map[string]map[string]*metrics.Counter
	errors    map[string]*metrics.Counter
	durations map[string]*metrics.Histogram
}

func newServiceMetrics(local store.IStore) *serviceMetrics {
	m := &serviceMetrics{
		set:       metrics.NewSet(),
		requests:  make(map[string]map[string]*metrics.Counter),
		errors:    make(map[string]*metrics.Counter),
		durations: make(map[string]*metrics.Histogram),
	}

	for _, op := range []string{opSet, opGet, opRemove} {
		m.requests[op] = map[string]*metrics.Counter{
			routeLocal:  m.set.NewCounter(fmt.Sprintf(`sdcs_requests_total{op=%q,route=%q}`, op, routeLocal)),
			routeRemote: m.set.NewCounter(fmt.Sprintf(`sdcs_requests_total{op=%q,route=%q}`, op, routeRemote)),
		}
		m.errors[op] = m.set.NewCounter(fmt.Sprintf(`sdcs_forward_errors_total{op=%q}`, op))
		m.durations[op] = m.set.NewHistogram(fmt.Sprintf(`sdcs_forward_duration_seconds{op=%q}`, op))
	}

	// the entry count is only available if the local store can report it
	if sized, ok := local.(interface{ Size() int }); ok {
		m.set.NewGauge(`sdcs_local_keys`, func() float64 {
			return float64(sized.Size())
		})
	}

	return m
}

func (m *serviceMetrics) request(op, route string) {
	m.requests[op][route].Inc()
}

func (m *serviceMetrics) forwardError(op string) {
	m.errors[op].Inc()
}

func (m *serviceMetrics) forwardDuration(op string, start time.Time) {
	m.durations[op].UpdateDuration(start)
}
