package probe

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/endpointresolver/internal/domain"
	"github.com/hamed0406/endpointresolver/internal/logging"
	"github.com/hamed0406/endpointresolver/internal/metrics"
)

// SpeedTester produces a latency-sorted list for a candidate set.
type SpeedTester interface {
	TestDomainSpeed(ctx context.Context, candidates []domain.DomainCandidate) []domain.ProbeResult
}

type Prober struct {
	Logger      *zap.Logger
	Transport   Transport
	Metrics     *metrics.Metrics
	Concurrency int

	// Diagnose, when set, classifies the DNS state of hosts whose probe failed.
	Diagnose func(ctx context.Context, host string) DNSStatus
}

func NewProber(logger *zap.Logger, t Transport, m *metrics.Metrics, concurrency int) *Prober {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Prober{
		Logger:      logging.OrNop(logger),
		Transport:   t,
		Metrics:     m,
		Concurrency: concurrency,
	}
}

// TestDomainSpeed probes every candidate and returns the ones that produced a
// timing, sorted ascending. A single candidate is returned with ms=1 and is
// not probed.
func (p *Prober) TestDomainSpeed(ctx context.Context, candidates []domain.DomainCandidate) []domain.ProbeResult {
	if len(candidates) == 1 {
		return []domain.ProbeResult{{DomainCandidate: candidates[0], MS: 1}}
	}

	timed := make([]*domain.ProbeResult, len(candidates))
	var g errgroup.Group
	g.SetLimit(p.Concurrency)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			ms, err := p.Transport.Probe(ctx, c.Domain, c.CertType)
			if err != nil {
				p.Metrics.ObserveProbe(c.Domain, 0, false)
				p.logFailure(ctx, c, err)
				return nil
			}
			p.Metrics.ObserveProbe(c.Domain, time.Duration(ms)*time.Millisecond, true)
			timed[i] = &domain.ProbeResult{DomainCandidate: c, MS: ms}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.ProbeResult, 0, len(candidates))
	for _, r := range timed {
		if r != nil {
			out = append(out, *r)
		}
	}
	SortResults(out)
	return out
}

func (p *Prober) logFailure(ctx context.Context, c domain.DomainCandidate, err error) {
	fields := []zap.Field{
		zap.String("domain", c.Domain),
		zap.String("label", c.Label),
		zap.Error(err),
	}
	if p.Diagnose != nil {
		dns := p.Diagnose(ctx, c.Domain)
		fields = append(fields,
			zap.String("dns_class", string(dns.Class)),
			zap.Strings("nameservers", dns.Nameservers),
			zap.String("cname", dns.CNAME),
		)
	}
	p.Logger.Info("probe_failed", fields...)
}

// SortResults orders rs ascending by ms in place. Unusable entries (ms=-1)
// go last; equal timings keep their relative order.
func SortResults(rs []domain.ProbeResult) {
	slices.SortStableFunc(rs, func(a, b domain.ProbeResult) int {
		switch {
		case a.MS == b.MS:
			return 0
		case !a.Usable():
			return 1
		case !b.Usable():
			return -1
		case a.MS < b.MS:
			return -1
		default:
			return 1
		}
	})
}
