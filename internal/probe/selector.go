package probe

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

const DefaultThreshold = 60 * time.Second

// Selector memoizes the last speed test for a time window. The cache is not
// keyed by the candidate set: any call inside the window gets the previous
// result. Concurrent calls outside the window share one probe pass. A pass
// whose ctx ended is discarded and the previous result is returned.
type Selector struct {
	tester    SpeedTester
	threshold time.Duration
	clock     clock.Clock

	mu         sync.Mutex
	lastSelect time.Time
	hasResult  bool
	lastResult []domain.ProbeResult

	flight singleflight.Group
}

func NewSelector(tester SpeedTester, threshold time.Duration, clk clock.Clock) *Selector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Selector{tester: tester, threshold: threshold, clock: clk}
}

func (s *Selector) Select(ctx context.Context, candidates []domain.DomainCandidate) []domain.ProbeResult {
	if r, ok := s.cached(); ok {
		return r
	}
	v, _, _ := s.flight.Do("select", func() (any, error) {
		if r, ok := s.cached(); ok {
			return r, nil
		}
		started := s.clock.Now()
		res := s.tester.TestDomainSpeed(ctx, candidates)

		s.mu.Lock()
		defer s.mu.Unlock()
		if ctx.Err() != nil {
			// an interrupted pass is not stored; the previous one still stands
			if s.hasResult {
				return s.lastResult, nil
			}
			return res, nil
		}
		s.lastSelect = started
		s.lastResult = res
		s.hasResult = true
		return res, nil
	})
	return v.([]domain.ProbeResult)
}

func (s *Selector) cached() ([]domain.ProbeResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasResult && s.clock.Now().Sub(s.lastSelect) < s.threshold {
		return s.lastResult, true
	}
	return nil, false
}
