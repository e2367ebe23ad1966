// Package monitoring counts verification outcomes and alerts when the
// degraded or timeout rate crosses configured thresholds.
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/model"
)

// Event describes one finished verification call.
type Event struct {
	Passed     bool
	CacheHit   bool
	Timeout    bool
	InputError bool
	Degraded   []model.Dimension
	Combined   float64
	Duration   time.Duration
}

// MetricsSnapshot holds a point-in-time view of verification health.
type MetricsSnapshot struct {
	Total           int            `json:"total"`
	Passed          int            `json:"passed"`
	Failed          int            `json:"failed"`
	CacheHits       int            `json:"cache_hits"`
	Timeouts        int            `json:"timeouts"`
	InputErrors     int            `json:"input_errors"`
	DegradedResults int            `json:"degraded_results"`
	DegradedBy      map[string]int `json:"degraded_by_dimension"`

	PassRate     float64 `json:"pass_rate"`
	DegradedRate float64 `json:"degraded_rate"`
	TimeoutRate  float64 `json:"timeout_rate"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	AvgCombined  float64 `json:"avg_combined"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`

	// CacheEntries is -1 when no cache is attached or it cannot be sized.
	CacheEntries int       `json:"cache_entries"`
	Since        time.Time `json:"since"`
	CollectedAt  time.Time `json:"collected_at"`

	combinedSum float64
	latencySum  time.Duration
}

// Scored returns the number of calls that produced a result.
func (s *MetricsSnapshot) Scored() int { return s.Passed + s.Failed }

// Delta returns the activity between prev and s. prev may be nil.
func (s *MetricsSnapshot) Delta(prev *MetricsSnapshot) *MetricsSnapshot {
	if prev == nil {
		return s
	}
	d := &MetricsSnapshot{
		Total:           s.Total - prev.Total,
		Passed:          s.Passed - prev.Passed,
		Failed:          s.Failed - prev.Failed,
		CacheHits:       s.CacheHits - prev.CacheHits,
		Timeouts:        s.Timeouts - prev.Timeouts,
		InputErrors:     s.InputErrors - prev.InputErrors,
		DegradedResults: s.DegradedResults - prev.DegradedResults,
		DegradedBy:      make(map[string]int, len(s.DegradedBy)),
		CacheEntries:    s.CacheEntries,
		Since:           prev.CollectedAt,
		CollectedAt:     s.CollectedAt,
		combinedSum:     s.combinedSum - prev.combinedSum,
		latencySum:      s.latencySum - prev.latencySum,
	}
	for dim, n := range s.DegradedBy {
		if n -= prev.DegradedBy[dim]; n > 0 {
			d.DegradedBy[dim] = n
		}
	}
	d.derive()
	return d
}

func (s *MetricsSnapshot) derive() {
	scored := s.Scored()
	if scored > 0 {
		s.PassRate = float64(s.Passed) / float64(scored)
		s.DegradedRate = float64(s.DegradedResults) / float64(scored)
		s.AvgCombined = s.combinedSum / float64(scored)
		s.CacheHitRate = float64(s.CacheHits) / float64(scored)
	}
	if attempted := scored + s.Timeouts; attempted > 0 {
		s.TimeoutRate = float64(s.Timeouts) / float64(attempted)
	}
	if s.Total > 0 {
		s.AvgLatencyMs = float64(s.latencySum.Milliseconds()) / float64(s.Total)
	}
}

// Sizer reports how many entries a cache holds.
type Sizer interface {
	Len(ctx context.Context) (int, error)
}

// Collector accumulates verification events. It is safe for concurrent use.
type Collector struct {
	cache Sizer
	now   func() time.Time

	mu      sync.Mutex
	current MetricsSnapshot
}

// NewCollector creates a collector. cache may be nil.
func NewCollector(cache Sizer) *Collector {
	c := &Collector{cache: cache, now: time.Now}
	c.current.Since = c.now().UTC()
	c.current.DegradedBy = make(map[string]int)
	return c
}

// Record adds one event.
func (c *Collector) Record(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.current
	s.Total++
	s.latencySum += e.Duration
	switch {
	case e.InputError:
		s.InputErrors++
		return
	case e.Timeout:
		s.Timeouts++
		return
	}

	if e.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
	if e.CacheHit {
		s.CacheHits++
	}
	s.combinedSum += e.Combined
	if len(e.Degraded) > 0 {
		s.DegradedResults++
		for _, d := range e.Degraded {
			s.DegradedBy[string(d)]++
		}
	}
}

// Collect returns a snapshot of everything recorded so far.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	c.mu.Lock()
	snap := c.current
	snap.DegradedBy = make(map[string]int, len(c.current.DegradedBy))
	for k, v := range c.current.DegradedBy {
		snap.DegradedBy[k] = v
	}
	c.mu.Unlock()

	snap.CollectedAt = c.now().UTC()
	snap.CacheEntries = -1
	if c.cache != nil {
		n, err := c.cache.Len(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: size cache")
		}
		snap.CacheEntries = n
	}
	snap.derive()
	return &snap, nil
}
