package model

import (
	"sync"
	"time"
)

// Scheduler polls the evaluation at a fixed interval while async calls are
// in flight and stops itself once none is left
type Scheduler struct {
	interval time.Duration
	tick     func() (outstanding int)

	mu      sync.Mutex
	running bool
	kicked  bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a stopped scheduler. a zero interval never starts.
func NewScheduler(interval time.Duration, tick func() int) *Scheduler {
	return &Scheduler{
		interval: interval,
		tick:     tick,
		stop:     make(chan struct{}),
	}
}

// Start runs the polling loop unless it already runs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval <= 0 || s.closed {
		return
	}
	if s.running {
		s.kicked = true
		return
	}
	s.running = true
	s.wg.Add(1)
	go s.run()
}

// Running reports whether the polling loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		s.kicked = false
		s.mu.Unlock()

		outstanding := s.tick()

		s.mu.Lock()
		// a Start during the tick may have launched new work
		if outstanding == 0 && !s.kicked {
			s.running = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// Close stops the loop and waits for it to exit
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
}
