package domain

import (
	"encoding/json"
	"testing"
)

func TestGlobalConfig_DecodesBootstrapDocument(t *testing.T) {
	raw := `{
		"domains":[{"domain":"a.com","certType":"self","label":"L1"}],
		"services":[{"name":"chat","path":"/api","domains":["L1","L2"]}]
	}`
	var got GlobalConfig
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Domains) != 1 || got.Domains[0].CertType != CertSelf || got.Domains[0].Label != "L1" {
		t.Fatalf("unexpected domains: %+v", got.Domains)
	}
	if len(got.Services) != 1 || !got.Services[0].AllowsLabel("L2") || got.Services[0].AllowsLabel("L3") {
		t.Fatalf("unexpected services: %+v", got.Services)
	}
}

func TestServiceConfigMap_CloneIsDeep(t *testing.T) {
	m := ServiceConfigMap{
		"chat":  {{URL: "https://a.com/api", MS: 3, CertType: CertSelf}},
		"video": {},
	}
	cp := m.Clone()
	cp["chat"][0].URL = "changed"

	if m["chat"][0].URL != "https://a.com/api" {
		t.Fatalf("clone shares backing array with original")
	}
	if eps, ok := cp["video"]; !ok || eps == nil || len(eps) != 0 {
		t.Fatalf("empty endpoint list should survive clone as non-nil, got %#v", eps)
	}
}

func TestServiceConfigMap_URLs(t *testing.T) {
	m := ServiceConfigMap{"call": {{URL: "https://x/c"}, {URL: "https://y/c"}}}
	got := m.URLs("call")
	if len(got) != 2 || got[0] != "https://x/c" || got[1] != "https://y/c" {
		t.Fatalf("unexpected urls: %v", got)
	}
	if u := m.URLs("missing"); len(u) != 0 {
		t.Fatalf("want empty for unknown service, got %v", u)
	}
}

func TestProbeResult_Usable(t *testing.T) {
	if (ProbeResult{MS: UnusableMS}).Usable() {
		t.Fatal("sentinel should be unusable")
	}
	if !(ProbeResult{MS: 0}).Usable() {
		t.Fatal("zero ms is a real timing")
	}
}
