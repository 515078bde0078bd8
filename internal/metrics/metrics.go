// metrics.go - In-process metrics for proving, verification and signing.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Type represents the type of metric
type Type string

const (
	Counter   Type = "counter"
	Gauge     Type = "gauge"
	Histogram Type = "histogram"
)

// histogramWindow bounds the samples kept per histogram.
const histogramWindow = 1000

// Metric represents a single metric
type Metric struct {
	Name      string            `json:"name"`
	Type      Type              `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// HistogramSummary aggregates the retained samples of one histogram.
type HistogramSummary struct {
	Count float64 `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
}

// Summary is a point-in-time view of every metric.
type Summary struct {
	Counters   map[string]int64            `json:"counters"`
	Gauges     map[string]float64          `json:"gauges"`
	Histograms map[string]HistogramSummary `json:"histograms"`
}

// Collector is safe for concurrent use. The zero value is not usable; call New.
type Collector struct {
	mu         sync.RWMutex
	metrics    map[string]*Metric
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// New creates an empty collector.
func New() *Collector {
	c := &Collector{}
	c.Reset()
	return c
}

// IncrementCounter increments a counter metric
func (c *Collector) IncrementCounter(name string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeKey(name, labels)
	c.counters[key]++
	c.update(key, name, Counter, float64(c.counters[key]), labels)
}

// SetGauge sets a gauge metric value
func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeKey(name, labels)
	c.gauges[key] = value
	c.update(key, name, Gauge, value, labels)
}

// RecordHistogram records a value in a histogram
func (c *Collector) RecordHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeKey(name, labels)
	h := append(c.histograms[key], value)
	if len(h) > histogramWindow {
		h = h[len(h)-histogramWindow:]
	}
	c.histograms[key] = h
	c.update(key, name, Histogram, value, labels)
}

// Get retrieves a metric by name and labels
func (c *Collector) Get(name string, labels map[string]string) *Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.metrics[makeKey(name, labels)]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

// Counter returns the current value of a counter.
func (c *Collector) Counter(name string, labels map[string]string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[makeKey(name, labels)]
}

// Summary returns a summary of all metrics
func (c *Collector) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Summary{
		Counters:   make(map[string]int64, len(c.counters)),
		Gauges:     make(map[string]float64, len(c.gauges)),
		Histograms: make(map[string]HistogramSummary, len(c.histograms)),
	}
	for k, v := range c.counters {
		s.Counters[k] = v
	}
	for k, v := range c.gauges {
		s.Gauges[k] = v
	}
	for k, values := range c.histograms {
		if len(values) == 0 {
			continue
		}
		h := HistogramSummary{Count: float64(len(values)), Min: values[0], Max: values[0]}
		for _, v := range values {
			if v < h.Min {
				h.Min = v
			}
			if v > h.Max {
				h.Max = v
			}
			h.Sum += v
		}
		h.Avg = h.Sum / h.Count
		s.Histograms[k] = h
	}
	return s
}

// Reset resets all metrics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics = make(map[string]*Metric)
	c.counters = make(map[string]int64)
	c.gauges = make(map[string]float64)
	c.histograms = make(map[string][]float64)
}

// makeKey joins name and labels sorted by label name.
func makeKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range names {
		b.WriteString("_")
		b.WriteString(k)
		b.WriteString("_")
		b.WriteString(labels[k])
	}
	return b.String()
}

func (c *Collector) update(key, name string, t Type, value float64, labels map[string]string) {
	c.metrics[key] = &Metric{
		Name:      name,
		Type:      t,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Predefined metric names
const (
	MetricProofsGenerated     = "proofs_generated"
	MetricProofGenerationTime = "proof_generation_time"
	MetricVerifications       = "verifications"
	MetricVerificationTime    = "verification_time"
	MetricSignatures          = "signatures"
	MetricSetupTime           = "setup_time"
	MetricCircuitCompileTime  = "circuit_compile_time"
	MetricProverBusy          = "prover_busy"
	MetricProversInFlight     = "provers_in_flight"
	MetricErrorCount          = "error_count"
)

// Convenience methods for common metrics

func (c *Collector) RecordProof(d time.Duration) {
	c.IncrementCounter(MetricProofsGenerated, nil)
	c.RecordHistogram(MetricProofGenerationTime, d.Seconds(), nil)
}

func (c *Collector) RecordVerification(ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	c.IncrementCounter(MetricVerifications, map[string]string{"result": result})
	c.RecordHistogram(MetricVerificationTime, d.Seconds(), nil)
}

func (c *Collector) RecordSignature(op string) {
	c.IncrementCounter(MetricSignatures, map[string]string{"op": op})
}

func (c *Collector) RecordSetup(d time.Duration) {
	c.RecordHistogram(MetricSetupTime, d.Seconds(), nil)
}

func (c *Collector) RecordCircuitCompile(d time.Duration) {
	c.RecordHistogram(MetricCircuitCompileTime, d.Seconds(), nil)
}

func (c *Collector) RecordBusy() {
	c.IncrementCounter(MetricProverBusy, nil)
}

func (c *Collector) RecordError(kind string) {
	c.IncrementCounter(MetricErrorCount, map[string]string{"type": kind})
}
