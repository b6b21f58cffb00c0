// Package metrics abstracts the counters and latency histograms the
// webhook flow and signing handlers emit.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
