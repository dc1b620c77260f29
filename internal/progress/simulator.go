// Package progress runs the cosmetic progress indicator shown while a process
// request is outstanding. The percentage it reports is not tied to server work.
package progress

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrRunning is returned by Start while a previous run has not been stopped.
var ErrRunning = errors.New("progress simulation already running")

// Options configures a Simulator. Zero fields take the defaults below.
type Options struct {
	Interval time.Duration  // tick period, default 500ms
	MaxStep  float64        // increments are drawn from [0, MaxStep), default 15
	Cap      float64        // percentage is never advanced past Cap, default 90
	Rand     func() float64 // uniform source in [0,1), default math/rand
}

// Simulator hands out at most one active Run at a time.
type Simulator struct {
	opts Options

	mu      sync.Mutex
	current *Run
}

// Run is one started simulation. Its Stop belongs to whoever started it, so a
// late caller can never stop a newer run.
type Run struct {
	sim     *Simulator
	cancel  context.CancelFunc
	done    chan struct{}
	percent float64 // guarded by sim.mu
}

func New(opts Options) *Simulator {
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	if opts.MaxStep <= 0 {
		opts.MaxStep = 15
	}
	if opts.Cap <= 0 || opts.Cap > 100 {
		opts.Cap = 90
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Simulator{opts: opts}
}

// Start begins ticking from zero. onTick receives the new percentage after
// every tick; it runs on the ticker goroutine and must not call Stop.
func (s *Simulator) Start(onTick func(percent float64)) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return nil, ErrRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Run{sim: s, cancel: cancel, done: make(chan struct{})}
	s.current = r
	go r.loop(ctx, onTick)
	return r, nil
}

func (r *Run) loop(ctx context.Context, onTick func(float64)) {
	defer close(r.done)
	s := r.sim
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if ctx.Err() != nil {
				s.mu.Unlock()
				return
			}
			r.percent += s.opts.Rand() * s.opts.MaxStep
			if r.percent > s.opts.Cap {
				r.percent = s.opts.Cap
			}
			p := r.percent
			s.mu.Unlock()
			log.Debug().Float64("percent", p).Msg("progress tick")
			if onTick != nil {
				onTick(p)
			}
		}
	}
}

// Stop cancels the run and returns its last percentage. After Stop returns no
// further onTick call is made for this run. Stop is idempotent.
func (r *Run) Stop() float64 {
	s := r.sim
	s.mu.Lock()
	r.cancel()
	if s.current == r {
		s.current = nil
	}
	p := r.percent
	s.mu.Unlock()
	<-r.done
	return p
}

// Stop cancels whichever run is active. It is a no-op when nothing runs.
func (s *Simulator) Stop() float64 {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return 0
	}
	return r.Stop()
}

func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Percent is the percentage of the active run, or zero when idle.
func (s *Simulator) Percent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.percent
}
