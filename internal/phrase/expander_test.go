package phrase_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/voxdrill/internal/phrase"
)

func sorted(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

func TestExpand_DefaultTable(t *testing.T) {
	t.Parallel()

	e := phrase.New(phrase.DefaultTable())

	tests := []struct {
		name     string
		keywords []string
		want     []string
	}{
		{
			name:     "load balancer and latency",
			keywords: []string{"load balancer", "latency"},
			want:     []string{"load balancers", "lb", "load balancing", "latencys", "response time", "delay"},
		},
		{
			name:     "plural keyword is singularised",
			keywords: []string{"microservices"},
			want:     []string{"microservice", "micro services"},
		},
		{
			name:     "mixed case is lower-cased before lookup",
			keywords: []string{"Kubernetes"},
			want:     []string{"kubernete", "k8s", "kube"},
		},
		{
			name:     "unknown keyword only flips plural",
			keywords: []string{"sharding"},
			want:     []string{"shardings"},
		},
		{
			name:     "duplicates across keywords collapse",
			keywords: []string{"cache", "caches"},
			want:     []string{"caches", "cache"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := e.Expand(tc.keywords)
			if !slices.Equal(sorted(got), sorted(tc.want)) {
				t.Errorf("Expand(%q) = %q, want %q", tc.keywords, got, tc.want)
			}
		})
	}
}

func TestExpand_EmptyInput(t *testing.T) {
	t.Parallel()

	e := phrase.New(phrase.DefaultTable())
	got := e.Expand(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Expand(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestExpand_NoDuplicates(t *testing.T) {
	t.Parallel()

	e := phrase.New(phrase.DefaultTable())
	got := e.Expand([]string{"availability", "availability", "database", "databases"})
	seen := make(map[string]bool, len(got))
	for _, p := range got {
		if seen[p] {
			t.Fatalf("Expand returned duplicate %q in %q", p, got)
		}
		seen[p] = true
	}
}

func TestNew_CopiesTable(t *testing.T) {
	t.Parallel()

	table := phrase.Table{"queue": {"mq"}}
	e := phrase.New(table)
	table["queue"] = append(table["queue"], "broker")

	got := e.Expand([]string{"queue"})
	if slices.Contains(got, "broker") {
		t.Errorf("Expand saw mutation made after New: %q", got)
	}
}

func TestTable_Merge(t *testing.T) {
	t.Parallel()

	merged := phrase.DefaultTable().Merge(phrase.Table{
		"Latency": {"Lag"},
		"cdn":     {"content delivery network"},
	})

	if got := merged["latency"]; !slices.Equal(got, []string{"response time", "delay", "lag"}) {
		t.Errorf("merged[latency] = %q", got)
	}
	if got := merged["cdn"]; !slices.Equal(got, []string{"content delivery network"}) {
		t.Errorf("merged[cdn] = %q", got)
	}
	if _, ok := phrase.DefaultTable()["cdn"]; ok {
		t.Error("Merge mutated the receiver")
	}
}
