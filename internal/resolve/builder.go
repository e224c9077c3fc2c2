package resolve

import "github.com/hamed0406/endpointresolver/internal/domain"

// Combine builds the per-service endpoint lists. Only names in known are
// emitted, and only when a definition with that name exists. A known service
// with no matching domain gets an empty, non-nil list. Input order of
// domains is kept.
func Combine(domains []domain.ProbeResult, services []domain.ServiceDefinition, known []string) domain.ServiceConfigMap {
	defs := make(map[string]domain.ServiceDefinition, len(services))
	for _, s := range services {
		if _, dup := defs[s.Name]; !dup {
			defs[s.Name] = s
		}
	}

	out := make(domain.ServiceConfigMap, len(known))
	for _, name := range known {
		def, ok := defs[name]
		if !ok {
			continue
		}
		eps := make([]domain.ResolvedEndpoint, 0, len(domains))
		for _, d := range domains {
			if !def.AllowsLabel(d.Label) {
				continue
			}
			eps = append(eps, domain.ResolvedEndpoint{
				URL:      "https://" + d.Domain + def.Path,
				MS:       d.MS,
				CertType: d.CertType,
			})
		}
		out[name] = eps
	}
	return out
}

// Unprobed lifts raw candidates into results with ms=0.
func Unprobed(cs []domain.DomainCandidate) []domain.ProbeResult {
	out := make([]domain.ProbeResult, 0, len(cs))
	for _, c := range cs {
		out = append(out, domain.ProbeResult{DomainCandidate: c})
	}
	return out
}
