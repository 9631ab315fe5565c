package server

import (
	"sort"
	"sync"
	"time"
)

// Outcome classifies how a request ended.
type Outcome int

const (
	OutcomeOK        Outcome = iota
	OutcomeFailed            // fail$..., login-failed, register-failed
	OutcomeError             // store unavailable
	OutcomeMalformed         // frame did not decode
)

// unknownCategory labels frames whose category could not be determined.
const unknownCategory = "unknown"

// CategoryStats tracks request counts and latency for one category
type CategoryStats struct {
	mu        sync.RWMutex
	requests  int
	failed    int
	errors    int
	malformed int
	total     time.Duration
	max       time.Duration
}

// Record incorporates one finished request
func (c *CategoryStats) Record(outcome Outcome, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests++
	switch outcome {
	case OutcomeFailed:
		c.failed++
	case OutcomeError:
		c.errors++
	case OutcomeMalformed:
		c.malformed++
	}
	c.total += elapsed
	if elapsed > c.max {
		c.max = elapsed
	}
}

// Requests returns the total number of requests
func (c *CategoryStats) Requests() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requests
}

// Mean returns the mean handling latency
func (c *CategoryStats) Mean() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.requests == 0 {
		return 0
	}
	return c.total / time.Duration(c.requests)
}

// CategorySnapshot is the JSON form of CategoryStats.
type CategorySnapshot struct {
	Category  string  `json:"category"`
	Requests  int     `json:"requests"`
	Failed    int     `json:"failed"`
	Errors    int     `json:"errors"`
	Malformed int     `json:"malformed"`
	MeanMS    float64 `json:"mean_ms"`
	MaxMS     float64 `json:"max_ms"`
}

func (c *CategoryStats) snapshot(name string) CategorySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := CategorySnapshot{
		Category:  name,
		Requests:  c.requests,
		Failed:    c.failed,
		Errors:    c.errors,
		Malformed: c.malformed,
		MaxMS:     float64(c.max) / float64(time.Millisecond),
	}
	if c.requests > 0 {
		s.MeanMS = float64(c.total) / float64(c.requests) / float64(time.Millisecond)
	}
	return s
}

// RequestStats aggregates CategoryStats per request category.
type RequestStats struct {
	mu         sync.RWMutex
	categories map[string]*CategoryStats
}

func NewRequestStats() *RequestStats {
	return &RequestStats{categories: make(map[string]*CategoryStats)}
}

// Category returns the stats for a category, creating them on first use.
func (r *RequestStats) Category(name string) *CategoryStats {
	if name == "" {
		name = unknownCategory
	}

	r.mu.RLock()
	c, ok := r.categories[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.categories[name]; ok {
		return c
	}
	c = &CategoryStats{}
	r.categories[name] = c
	return c
}

// Record adds one finished request to its category.
func (r *RequestStats) Record(category string, outcome Outcome, elapsed time.Duration) {
	r.Category(category).Record(outcome, elapsed)
}

// Total returns the number of requests across all categories.
func (r *RequestStats) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, c := range r.categories {
		total += c.Requests()
	}
	return total
}

// Snapshot returns per-category stats sorted by category name.
func (r *RequestStats) Snapshot() []CategorySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CategorySnapshot, 0, len(r.categories))
	for name, c := range r.categories {
		out = append(out, c.snapshot(name))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Category < out[j].Category
	})
	return out
}
