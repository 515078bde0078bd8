package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollector(t *testing.T) {
	t.Run("counters", func(t *testing.T) {
		c := New()
		c.IncrementCounter("ops", nil)
		c.IncrementCounter("ops", nil)
		c.IncrementCounter("ops", map[string]string{"op": "sign"})
		if got := c.Counter("ops", nil); got != 2 {
			t.Errorf("ops = %d", got)
		}
		if got := c.Counter("ops", map[string]string{"op": "sign"}); got != 1 {
			t.Errorf("ops{op=sign} = %d", got)
		}
		m := c.Get("ops", nil)
		if m == nil || m.Type != Counter || m.Value != 2 {
			t.Errorf("Get returned %+v", m)
		}
		if c.Get("missing", nil) != nil {
			t.Error("Get of an unknown metric should be nil")
		}
	})

	t.Run("label order does not matter", func(t *testing.T) {
		a := makeKey("m", map[string]string{"a": "1", "b": "2"})
		b := makeKey("m", map[string]string{"b": "2", "a": "1"})
		if a != b {
			t.Errorf("%q != %q", a, b)
		}
	})

	t.Run("histogram summary", func(t *testing.T) {
		c := New()
		for _, v := range []float64{3, 1, 2} {
			c.RecordHistogram("lat", v, nil)
		}
		h := c.Summary().Histograms["lat"]
		if h.Count != 3 || h.Min != 1 || h.Max != 3 || h.Sum != 6 || h.Avg != 2 {
			t.Errorf("summary = %+v", h)
		}
	})

	t.Run("histogram window", func(t *testing.T) {
		c := New()
		for i := 0; i < histogramWindow+10; i++ {
			c.RecordHistogram("lat", float64(i), nil)
		}
		h := c.Summary().Histograms["lat"]
		if h.Count != histogramWindow || h.Min != 10 {
			t.Errorf("window not applied: %+v", h)
		}
	})

	t.Run("gauges and reset", func(t *testing.T) {
		c := New()
		c.SetGauge("g", 4, nil)
		c.SetGauge("g", 5, nil)
		if got := c.Summary().Gauges["g"]; got != 5 {
			t.Errorf("g = %v", got)
		}
		c.Reset()
		if len(c.Summary().Gauges) != 0 {
			t.Error("Reset kept gauges")
		}
	})

	t.Run("concurrent use", func(t *testing.T) {
		c := New()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					c.RecordProof(time.Millisecond)
					c.RecordVerification(j%2 == 0, time.Millisecond)
				}
			}()
		}
		wg.Wait()
		if got := c.Counter(MetricProofsGenerated, nil); got != 800 {
			t.Errorf("proofs = %d", got)
		}
		if got := c.Counter(MetricVerifications, map[string]string{"result": "rejected"}); got != 400 {
			t.Errorf("rejected = %d", got)
		}
	})
}
