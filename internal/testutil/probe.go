package testutil

import "sync"

// ConcurrencyProbe measures how many callers are inside a section at once.
// Tasks call Enter when they start and the returned func when they finish.
type ConcurrencyProbe struct {
	mu      sync.Mutex
	current int
	max     int
	total   int
}

// Enter marks one more task in flight and returns the matching exit func.
func (p *ConcurrencyProbe) Enter() (exit func()) {
	p.mu.Lock()
	p.current++
	p.total++
	if p.current > p.max {
		p.max = p.current
	}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		p.current--
		p.mu.Unlock()
	}
}

// Max returns the highest number of tasks observed in flight at once.
func (p *ConcurrencyProbe) Max() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max
}

// Current returns the number of tasks in flight now.
func (p *ConcurrencyProbe) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Total returns how many times Enter was called.
func (p *ConcurrencyProbe) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}
