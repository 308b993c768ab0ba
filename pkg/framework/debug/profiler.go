package debug

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// Profiler collects call durations by name. It locks, so time audio-thread
// work from the caller's side of the call, never from inside it.
type Profiler struct {
	mu           sync.Mutex
	measurements map[string]*measurement
	maxSamples   int
}

type measurement struct {
	count   uint64
	total   time.Duration
	min     time.Duration
	max     time.Duration
	last    time.Duration
	samples []time.Duration
	next    int
}

// Stats is a snapshot of one measurement.
type Stats struct {
	Name  string
	Count uint64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration
	P99   time.Duration
}

// Average returns the mean duration.
func (s Stats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// NewProfiler keeps the last maxSamples durations per name for percentiles.
func NewProfiler(maxSamples int) *Profiler {
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &Profiler{
		measurements: make(map[string]*measurement),
		maxSamples:   maxSamples,
	}
}

// Start begins timing name; call the returned func to stop.
func (p *Profiler) Start(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one duration.
func (p *Profiler) Record(name string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.measurements[name]
	if !ok {
		m = &measurement{min: elapsed, max: elapsed, samples: make([]time.Duration, 0, p.maxSamples)}
		p.measurements[name] = m
	}

	m.count++
	m.total += elapsed
	m.last = elapsed
	m.min = min(m.min, elapsed)
	m.max = max(m.max, elapsed)

	if len(m.samples) < p.maxSamples {
		m.samples = append(m.samples, elapsed)
	} else {
		m.samples[m.next] = elapsed
		m.next = (m.next + 1) % p.maxSamples
	}
}

// Stats returns the snapshot for name.
func (p *Profiler) Stats(name string) (Stats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.measurements[name]
	if !ok {
		return Stats{}, false
	}
	return m.snapshot(name), true
}

// All returns every measurement sorted by name.
func (p *Profiler) All() []Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Stats, 0, len(p.measurements))
	for name, m := range p.measurements {
		out = append(out, m.snapshot(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears all measurements.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measurements = make(map[string]*measurement)
}

func (m *measurement) snapshot(name string) Stats {
	return Stats{
		Name:  name,
		Count: m.count,
		Total: m.total,
		Min:   m.min,
		Max:   m.max,
		Last:  m.last,
		P99:   percentile(m.samples, 0.99),
	}
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
