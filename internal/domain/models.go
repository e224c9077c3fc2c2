package domain

// CertType controls whether a probe accepts a self-signed certificate.
type CertType string

const (
	CertSelf      CertType = "self"
	CertAuthority CertType = "authority"
)

// UnusableMS marks a probe result that produced no timing.
const UnusableMS = -1

type DomainCandidate struct {
	Domain   string   `json:"domain" yaml:"domain"`
	CertType CertType `json:"certType" yaml:"cert_type"`
	Label    string   `json:"label" yaml:"label"`
}

type ProbeResult struct {
	DomainCandidate
	MS int `json:"ms"`
}

// Usable reports whether the result carries a real timing.
func (r ProbeResult) Usable() bool { return r.MS != UnusableMS }

// ServiceDefinition declares which domain labels a service may use.
type ServiceDefinition struct {
	Name    string   `json:"name" yaml:"name"`
	Path    string   `json:"path" yaml:"path"`
	Domains []string `json:"domains" yaml:"domains"`
}

// AllowsLabel reports whether label is listed in the definition.
func (s ServiceDefinition) AllowsLabel(label string) bool {
	for _, l := range s.Domains {
		if l == label {
			return true
		}
	}
	return false
}

type ResolvedEndpoint struct {
	URL      string   `json:"url"`
	MS       int      `json:"ms"`
	CertType CertType `json:"certType"`
}

// GlobalConfig is the bootstrap document.
type GlobalConfig struct {
	Domains  []DomainCandidate   `json:"domains"`
	Services []ServiceDefinition `json:"services"`
}

// ServiceConfigMap maps a registered service name to its latency-ordered endpoints.
type ServiceConfigMap map[string][]ResolvedEndpoint

// Clone returns a deep copy so that every sink sees the same snapshot.
func (m ServiceConfigMap) Clone() ServiceConfigMap {
	if m == nil {
		return nil
	}
	out := make(ServiceConfigMap, len(m))
	for name, eps := range m {
		cp := make([]ResolvedEndpoint, len(eps))
		copy(cp, eps)
		out[name] = cp
	}
	return out
}

// URLs returns the endpoint URLs of one service in order.
func (m ServiceConfigMap) URLs(name string) []string {
	eps := m[name]
	out := make([]string, 0, len(eps))
	for _, ep := range eps {
		out = append(out, ep.URL)
	}
	return out
}
