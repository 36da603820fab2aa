// Package metrics defines a small Counter/Gauge/Histogram instrumentation
// surface modeled on trillian's monitoring.MetricFactory, so the roll and
// preappend packages can be instrumented without depending on any one
// metrics backend. Factory defaults to Inert, a no-op implementation;
// NewPrometheusFactory backs it with prometheus/client_golang.
package metrics

// Counter is a monotonically increasing instrument.
type Counter interface {
	Inc()
	Add(delta float64)
}

// Gauge is a point-in-time instrument that can move in either direction.
type Gauge interface {
	Set(value float64)
}

// Histogram records a distribution of observed values.
type Histogram interface {
	Observe(value float64)
}

// Factory creates the instruments a Roll or PreAppend instance reports
// through. Implementations must be safe to call once at construction time;
// the returned instruments must be safe for concurrent use per their own
// contract (single-threaded-per-Roll still holds for the Roll itself).
type Factory interface {
	// Mutations counts every successful append/set_leaf/subtree-append.
	Mutations() Counter
	// SequenceNumber tracks the roll's current sequence number.
	SequenceNumber() Gauge
	// FastForwardSteps records how many changelog entries a fast-forward
	// walked to repair a proof.
	FastForwardSteps() Histogram
	// TreeFullRejections counts appends rejected because the tree is at
	// capacity.
	TreeFullRejections() Counter
}

type inertCounter struct{}

func (inertCounter) Inc()        {}
func (inertCounter) Add(float64) {}

type inertGauge struct{}

func (inertGauge) Set(float64) {}

type inertHistogram struct{}

func (inertHistogram) Observe(float64) {}

// Inert is a Factory whose instruments discard every observation; it is
// the default when a caller does not wire in a real metrics backend,
// mirroring trillian's monitoring.InertMetricFactory.
type Inert struct{}

func (Inert) Mutations() Counter          { return inertCounter{} }
func (Inert) SequenceNumber() Gauge       { return inertGauge{} }
func (Inert) FastForwardSteps() Histogram { return inertHistogram{} }
func (Inert) TreeFullRejections() Counter { return inertCounter{} }
