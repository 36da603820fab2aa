package metrics

import "github.com/prometheus/client_golang/prometheus"

// promFactory backs Factory with real prometheus/client_golang instruments,
// registered once at construction so repeated NewPrometheusFactory calls
// against the same Registry with the same namespace would panic on
// duplicate registration, exactly as client_golang intends.
type promFactory struct {
	mutations      prometheus.Counter
	sequence       prometheus.Gauge
	fastForward    prometheus.Histogram
	fullRejections prometheus.Counter
}

// NewPrometheusFactory registers a Roll's instruments against reg under
// the "gummyroll" namespace.
func NewPrometheusFactory(reg *prometheus.Registry) Factory {
	f := &promFactory{
		mutations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gummyroll",
			Name:      "mutations_total",
			Help:      "Number of successful append/set_leaf/subtree-append operations.",
		}),
		sequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gummyroll",
			Name:      "sequence_number",
			Help:      "Current sequence number of the roll.",
		}),
		fastForward: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gummyroll",
			Name:      "fast_forward_steps",
			Help:      "Number of changelog entries walked to repair a proof.",
			Buckets:   prometheus.LinearBuckets(0, 8, 16),
		}),
		fullRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gummyroll",
			Name:      "tree_full_rejections_total",
			Help:      "Number of appends rejected because the tree is at capacity.",
		}),
	}
	reg.MustRegister(f.mutations, f.sequence, f.fastForward, f.fullRejections)
	return f
}

func (f *promFactory) Mutations() Counter          { return f.mutations }
func (f *promFactory) SequenceNumber() Gauge       { return f.sequence }
func (f *promFactory) FastForwardSteps() Histogram { return f.fastForward }
func (f *promFactory) TreeFullRejections() Counter { return f.fullRejections }
