package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/Sternrassler/ad-asset-client/pkg/cache"
	_ "github.com/Sternrassler/ad-asset-client/pkg/client"
	_ "github.com/Sternrassler/ad-asset-client/pkg/prefetch"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestNames(t *testing.T) {
	seen := make(map[string]bool, len(Names))
	for _, name := range Names {
		if !strings.HasPrefix(name, "adcache_") {
			t.Errorf("metric %q lacks adcache_ prefix", name)
		}
		if seen[name] {
			t.Errorf("metric %q listed twice", name)
		}
		seen[name] = true
	}
}

func TestUnlabelledMetricsRegistered(t *testing.T) {
	families, err := Gatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	registered := make(map[string]bool, len(families))
	for _, f := range families {
		registered[f.GetName()] = true
	}

	for _, name := range []string{
		"adcache_store_bytes_written_total",
		"adcache_janitor_failures_total",
		"adcache_prefetch_bytes_total",
		"adcache_prefetch_download_duration_seconds",
	} {
		if !registered[name] {
			t.Errorf("metric %q not registered", name)
		}
	}

	for name := range registered {
		if strings.HasPrefix(name, "adcache_") && !contains(Names, name) {
			t.Errorf("registered metric %q missing from Names", name)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
