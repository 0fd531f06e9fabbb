// Package metrics holds the Prometheus collectors for the recharge engine:
// import and allocation counters, sale outcomes, reminder dispatch counters
// and the sweep-duration histogram. Files declare their collectors and
// enqueue them via register() from init(); main calls MustRegister() once
// after config is loaded.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers every enqueued collector with the default registry,
// exactly once no matter how often it is called.
func MustRegister() {
	once.Do(func() {
		if len(collectors) > 0 {
			prometheus.MustRegister(collectors...)
		}
	})
}
