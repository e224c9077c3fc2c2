package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// StatusError is returned by a Pinger when the server answered with a
// non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("ping: http status %d", e.Code) }

// Reachable reports whether the status still proves the server answered.
func (e *StatusError) Reachable() bool { return e.Code >= 100 && e.Code <= 499 }

// Pinger issues one request against url.
type Pinger interface {
	Ping(ctx context.Context, url string, allowSelfSigned bool) error
}

// Transport times one reachability check against a candidate domain.
// A returned error means the domain is unusable for this pass.
type Transport interface {
	Probe(ctx context.Context, host string, cert domain.CertType) (ms int, err error)
}

type HTTPPinger struct {
	Strict   *http.Client
	Insecure *http.Client
}

func NewHTTPPinger(timeout time.Duration) *HTTPPinger {
	insecure := http.DefaultTransport.(*http.Transport).Clone()
	insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed candidates
	return &HTTPPinger{
		Strict:   &http.Client{Timeout: timeout},
		Insecure: &http.Client{Timeout: timeout, Transport: insecure},
	}
}

func (p *HTTPPinger) Ping(ctx context.Context, url string, allowSelfSigned bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c := p.Strict
	if allowSelfSigned {
		c = p.Insecure
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// HTTPTransport probes https://<host>?t=<unix ms> and measures elapsed time.
type HTTPTransport struct {
	Pinger  Pinger
	Clock   clock.Clock
	Timeout time.Duration
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		Pinger:  NewHTTPPinger(timeout),
		Clock:   clock.New(),
		Timeout: timeout,
	}
}

func (t *HTTPTransport) Probe(ctx context.Context, host string, cert domain.CertType) (int, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := t.Clock.Now()
	url := fmt.Sprintf("https://%s?t=%d", host, start.UnixMilli())
	err := t.Pinger.Ping(ctx, url, cert == domain.CertSelf)
	ms := int(t.Clock.Since(start).Milliseconds())
	if err == nil {
		return ms, nil
	}

	var se *StatusError
	if errors.As(err, &se) && se.Reachable() {
		return ms, nil
	}
	return 0, err
}
