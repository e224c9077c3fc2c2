package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodDoc = `{"code":0,"data":{"domains":[{"domain":"a.com","certType":"self","label":"L1"}],"services":[{"name":"chat","path":"/api","domains":["L1"]}]}}`

func serve(t *testing.T, status int, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func TestFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantDomain string
	}{
		{name: "success", status: http.StatusOK, body: goodDoc, wantDomain: "a.com"},
		{name: "non_zero_code", status: http.StatusOK, body: `{"code":3,"data":{"domains":[]}}`, wantErr: true},
		{name: "missing_data", status: http.StatusOK, body: `{"code":0}`, wantErr: true},
		{name: "null_data", status: http.StatusOK, body: `{"code":0,"data":null}`, wantErr: true},
		{name: "http_500", status: http.StatusInternalServerError, body: goodDoc, wantErr: true},
		{name: "bad_json", status: http.StatusOK, body: `{"code":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := serve(t, tt.status, tt.body, nil)
			f := NewFetcher(s.Client(), time.Second, nil, nil)

			cfg, err := f.Fetch(context.Background(), []string{s.URL})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoConfig))
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.Len(t, cfg.Domains, 1)
			assert.Equal(t, tt.wantDomain, cfg.Domains[0].Domain)
		})
	}
}

func TestFetcher_SequentialFirstSuccessWins(t *testing.T) {
	var badHits, goodHits, laterHits atomic.Int32
	bad := serve(t, http.StatusOK, `{"code":1}`, &badHits)
	good := serve(t, http.StatusOK, goodDoc, &goodHits)
	later := serve(t, http.StatusOK, goodDoc, &laterHits)

	f := NewFetcher(nil, time.Second, nil, nil)
	cfg, err := f.Fetch(context.Background(), []string{bad.URL, good.URL, later.URL})
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, int32(1), badHits.Load())
	assert.Equal(t, int32(1), goodHits.Load())
	assert.Equal(t, int32(0), laterHits.Load(), "urls after the first success must not be tried")
}

func TestFetcher_AllFailReturnsErrNoConfig(t *testing.T) {
	a := serve(t, http.StatusOK, `{"code":7}`, nil)
	b := serve(t, http.StatusBadGateway, ``, nil)

	f := NewFetcher(nil, time.Second, nil, nil)
	cfg, err := f.Fetch(context.Background(), []string{a.URL, b.URL, "http://127.0.0.1:0/unreachable"})
	assert.Nil(t, cfg)
	require.ErrorIs(t, err, ErrNoConfig)
	assert.Contains(t, err.Error(), a.URL)
	assert.Contains(t, err.Error(), b.URL)
}

func TestFetcher_NoURLs(t *testing.T) {
	_, err := NewFetcher(nil, 0, nil, nil).Fetch(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoConfig)
}

func TestFetcher_PerURLTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer slow.Close()
	good := serve(t, http.StatusOK, goodDoc, nil)

	f := NewFetcher(nil, 50*time.Millisecond, nil, nil)
	cfg, err := f.Fetch(context.Background(), []string{slow.URL, good.URL})
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
