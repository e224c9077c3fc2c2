package publish

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

type recordingSink struct {
	got []domain.ServiceConfigMap
	err error
}

func (r *recordingSink) Publish(_ context.Context, m domain.ServiceConfigMap) error {
	r.got = append(r.got, m)
	return r.err
}

func sample() domain.ServiceConfigMap {
	return domain.ServiceConfigMap{
		"chat": {{URL: "https://a.com/api", MS: 12, CertType: domain.CertSelf}},
		"call": {},
	}
}

func TestMulti_SameSnapshotToAllSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("pipe closed")}
	c := &recordingSink{}

	err := Multi{a, nil, b, c}.Publish(context.Background(), sample())
	if err == nil {
		t.Fatalf("want the failing sink's error")
	}
	if len(a.got) != 1 || len(c.got) != 1 {
		t.Fatalf("every sink should be called once: a=%d c=%d", len(a.got), len(c.got))
	}
	// identical snapshot: same backing array handed to each sink
	if &a.got[0]["chat"][0] != &c.got[0]["chat"][0] {
		t.Fatalf("sinks received different snapshots")
	}
}

func TestLocalCache(t *testing.T) {
	lc := NewLocalCache()
	if lc.Ready() || lc.Snapshot() != nil {
		t.Fatalf("fresh cache should be empty")
	}

	src := sample()
	if err := lc.Publish(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	src["chat"][0].URL = "mutated"

	eps, ok := lc.Service("chat")
	if !ok || len(eps) != 1 || eps[0].URL != "https://a.com/api" {
		t.Fatalf("unexpected chat endpoints: %+v ok=%v", eps, ok)
	}
	if eps, ok := lc.Service("call"); !ok || len(eps) != 0 {
		t.Fatalf("known empty service should be present: %+v ok=%v", eps, ok)
	}
	if _, ok := lc.Service("video"); ok {
		t.Fatalf("unknown service should be absent")
	}
	if !lc.Ready() {
		t.Fatalf("cache should be ready after publish")
	}
}

func TestHostSink_PostsPayload(t *testing.T) {
	var mu sync.Mutex
	var revs []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p HostPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(400)
			return
		}
		if len(p.Services["chat"]) != 1 {
			w.WriteHeader(422)
			return
		}
		mu.Lock()
		revs = append(revs, p.Revision)
		mu.Unlock()
		w.WriteHeader(204)
	}))
	defer ts.Close()

	h := NewHostSink(ts.URL)
	for i := 0; i < 2; i++ {
		if err := h.Publish(context.Background(), sample()); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(revs) != 2 || revs[0] == "" || revs[0] != revs[1] {
		t.Fatalf("same map should carry the same revision: %v", revs)
	}
}

func TestHostSink_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	if err := NewHostSink(ts.URL).Publish(context.Background(), sample()); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestHostSink_DisabledWhenURLEmpty(t *testing.T) {
	h := NewHostSink("")
	if h != nil {
		t.Fatalf("want nil sink")
	}
	if err := h.Publish(context.Background(), sample()); err != nil {
		t.Fatalf("nil sink should be a no-op: %v", err)
	}
}
