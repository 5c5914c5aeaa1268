package perfstats

import (
	"sync"
	"time"
)

// Accumulate samples of how long something took
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
}

func (a TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}

// TimeRegistry is a set of named TimeAccumulators.
// It is safe for concurrent use, and the zero value is ready to use.
type TimeRegistry struct {
	lock  sync.Mutex
	items map[string]*TimeAccumulator
}

func (r *TimeRegistry) AddSample(name string, v time.Duration) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.items == nil {
		r.items = map[string]*TimeAccumulator{}
	}
	a := r.items[name]
	if a == nil {
		a = &TimeAccumulator{}
		r.items[name] = a
	}
	a.AddSample(v)
}

// Get returns a copy of the named accumulator, which is zero if there are no samples
func (r *TimeRegistry) Get(name string) TimeAccumulator {
	r.lock.Lock()
	defer r.lock.Unlock()
	if a := r.items[name]; a != nil {
		return *a
	}
	return TimeAccumulator{}
}
