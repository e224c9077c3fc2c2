package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// HostSink forwards the map to the privileged host process over HTTP.
type HostSink struct {
	URL    string
	Client *http.Client
}

// NewHostSink returns nil when url is empty.
func NewHostSink(url string) *HostSink {
	if url == "" {
		return nil
	}
	return &HostSink{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// HostPayload is the body posted to the host. Revision is derived from the
// services content, so the same map always carries the same revision.
type HostPayload struct {
	Revision string                  `json:"revision"`
	Services domain.ServiceConfigMap `json:"services"`
}

func Revision(m domain.ServiceConfigMap) (string, error) {
	// encoding/json sorts map keys, so the encoding is stable
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, b).String(), nil
}

func (h *HostSink) Publish(ctx context.Context, m domain.ServiceConfigMap) error {
	if h == nil || h.URL == "" {
		return nil
	}
	rev, err := Revision(m)
	if err != nil {
		return fmt.Errorf("revision: %w", err)
	}
	body, err := json.Marshal(HostPayload{Revision: rev, Services: m})
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("host publish: status %d", resp.StatusCode)
	}
	return nil
}
