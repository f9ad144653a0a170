package phrase

import "strings"

// Table maps a lower-case keyword to curated alternate forms (abbreviations
// and synonyms) that count as evidence for that keyword.
type Table map[string][]string

// DefaultTable returns a fresh copy of the curated abbreviation table.
func DefaultTable() Table {
	return Table{
		"kubernetes":             {"k8s", "kube"},
		"continuous integration": {"ci", "ci/cd"},
		"load balancer":          {"lb", "load balancing"},
		"database":               {"db", "data store"},
		"availability":           {"uptime", "high availability", "ha"},
		"latency":                {"response time", "delay"},
		"throughput":             {"bandwidth", "capacity"},
		"microservices":          {"micro services", "microservice"},
		"authentication":         {"auth", "authn"},
		"authorization":          {"authz", "permissions"},
	}
}

// Merge returns a new table holding every entry of t overlaid with extra.
// Alternates for a keyword present in both are concatenated, t's first.
// Keys and alternates are lower-cased.
func (t Table) Merge(extra Table) Table {
	out := make(Table, len(t)+len(extra))
	for _, src := range []Table{t, extra} {
		for k, alts := range src {
			key := strings.ToLower(strings.TrimSpace(k))
			if key == "" {
				continue
			}
			for _, a := range alts {
				out[key] = append(out[key], strings.ToLower(strings.TrimSpace(a)))
			}
		}
	}
	return out
}
