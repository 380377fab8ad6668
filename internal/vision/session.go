package vision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Session owns the host's current snapshot and the latest published result.
// Recomputations may overlap; only the newest one is ever published, so a
// slow pass started before a later edit can never overwrite the later result.
type Session struct {
	engine *Engine
	log    zerolog.Logger

	mu     sync.Mutex
	snap   Snapshot
	gen    uint64
	cancel context.CancelFunc

	published atomic.Pointer[published]
}

type published struct {
	gen uint64
	res *Result
}

// NewSession wraps engine with an initial snapshot. No pass runs until
// Update or Recompute is called.
func NewSession(engine *Engine, snap Snapshot, log zerolog.Logger) *Session {
	return &Session{
		engine: engine,
		snap:   snap.Clone(),
		log:    log,
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Result returns the latest published result, or nil before the first pass.
func (s *Session) Result() *Result {
	p := s.published.Load()
	if p == nil {
		return nil
	}
	return p.res
}

// Recompute runs a pass over the current snapshot without editing it.
func (s *Session) Recompute(ctx context.Context) (*Result, error) {
	return s.Update(ctx, nil)
}

// Update applies fn to the snapshot and recomputes. Any pass still running
// for an older generation is cancelled. The returned result is the one this
// call computed; it may already be superseded by the time the caller sees it.
// A superseded pass returns context.Canceled.
func (s *Session) Update(ctx context.Context, fn func(*Snapshot)) (*Result, error) {
	s.mu.Lock()
	if fn != nil {
		fn(&s.snap)
	}
	s.gen++
	gen := s.gen
	snap := s.snap.Clone()
	if s.cancel != nil {
		s.cancel()
	}
	passCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	res, err := s.engine.Compute(passCtx, snap)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.log.Debug().Uint64("gen", gen).Msg("vision pass superseded")
		}
		return nil, err
	}

	s.mu.Lock()
	if gen == s.gen {
		// Carry recomputed disablement forward so the next pass logs only
		// real transitions.
		s.snap.Sensors = res.Sensors
	}
	s.mu.Unlock()

	s.publish(gen, res)
	return res, nil
}

// publish stores res unless a newer generation is already visible.
func (s *Session) publish(gen uint64, res *Result) {
	next := &published{gen: gen, res: res}
	for {
		cur := s.published.Load()
		if cur != nil && cur.gen >= gen {
			return
		}
		if s.published.CompareAndSwap(cur, next) {
			return
		}
	}
}

// RunDecay polls every interval and advances long-range sensors through
// their decay. A pass is recomputed only when a sensor transitioned. It
// blocks until ctx is done. A nil clock means time.Now.
func (s *Session) RunDecay(ctx context.Context, interval time.Duration, clock func() time.Time) error {
	if interval <= 0 {
		interval = s.engine.params.DecayPollInterval
	}
	if interval <= 0 {
		return fmt.Errorf("decay poll interval must be positive, got %s", interval)
	}
	if clock == nil {
		clock = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.TickDecay(ctx, clock()); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn().Err(err).Msg("decay recompute failed")
			}
		}
	}
}

// TickDecay applies decay at now and recomputes if anything changed. It
// returns the IDs of sensors that transitioned.
func (s *Session) TickDecay(ctx context.Context, now time.Time) ([]string, error) {
	var changed []string
	s.mu.Lock()
	s.snap.Sensors, changed = ApplyDecay(s.snap.Sensors, now, s.engine.params)
	s.mu.Unlock()
	if len(changed) == 0 {
		return nil, nil
	}

	s.engine.metrics.decays.Add(ctx, int64(len(changed)))
	for _, id := range changed {
		s.engine.events.Add(0, id, "--", "decay", "reduced",
			fmt.Sprintf("range=%.3f", s.engine.params.LongRangeReduced), s.engine.params.LongRangeReduced)
		s.log.Info().Str("sensor", id).Msg("long-range sensor decayed")
	}
	_, err := s.Recompute(ctx)
	return changed, err
}
