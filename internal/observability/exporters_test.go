package observability

import (
	"encoding/json"
	"expvar"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"traitcore/pkg/trait"
)

type identRecord struct {
	ID     string `json:"id"`
	IDType string `json:"id_type"`
}

func seedEngine(t *testing.T) (*trait.Registry, *trait.Composer) {
	t.Helper()
	reg := trait.NewRegistry()
	if _, err := reg.Register(identRecord{}, trait.Identifiable); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !reg.HasTrait(identRecord{}, trait.Identifiable, trait.ModeRegistered) {
		t.Fatalf("expected identRecord to hold IDENTIFIABLE")
	}
	comp := trait.NewComposer(reg, nil)
	c := trait.NewComposition(trait.Identifiable)
	if _, err := comp.GenerateModel(c); err != nil {
		t.Fatalf("GenerateModel: %v", err)
	}
	if _, err := comp.GenerateModel(c); err != nil {
		t.Fatalf("GenerateModel: %v", err)
	}
	return reg, comp
}

func TestExpvarExporterSnapshot(t *testing.T) {
	reg, comp := seedEngine(t)
	e := NewExpvarExporter("test_exporter_snapshot", reg, comp)
	if e.Name() != "test_exporter_snapshot" {
		t.Fatalf("unexpected name %q", e.Name())
	}

	v := expvar.Get(e.Name())
	if v == nil {
		t.Fatalf("exporter not published under %q", e.Name())
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(v.String()), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.Registrations != 1 || snap.Lookups != 1 {
		t.Fatalf("unexpected ledger counters: %+v", snap)
	}
	if snap.ActiveImplementations != 1 || snap.RegisteredTraits != 1 {
		t.Fatalf("unexpected ledger gauges: %+v", snap)
	}
	if snap.CacheHits != 1 || snap.CacheMisses != 1 || snap.CacheSize != 1 {
		t.Fatalf("unexpected cache counters: %+v", snap)
	}
	if snap.CacheHitRatio != 0.5 {
		t.Fatalf("unexpected hit ratio %v", snap.CacheHitRatio)
	}
	if snap.RecordedAt.IsZero() {
		t.Fatalf("expected snapshot timestamp")
	}
}

func TestExpvarExporterGeneratesUniqueNames(t *testing.T) {
	a := NewExpvarExporter("", nil, nil)
	b := NewExpvarExporter("", nil, nil)
	if a.Name() == b.Name() {
		t.Fatalf("expected distinct generated names, both %q", a.Name())
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(expvar.Get(a.Name()).String()), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.Registrations != 0 || snap.CacheSize != 0 {
		t.Fatalf("expected zero counters without sources, got %+v", snap)
	}
}

func TestCollectorExposesConstMetrics(t *testing.T) {
	reg, comp := seedEngine(t)
	c := NewCollector(reg, comp)

	expected := `# HELP traitcore_composer_cache_hit_ratio Fraction of descriptor lookups served from the cache.
# TYPE traitcore_composer_cache_hit_ratio gauge
traitcore_composer_cache_hit_ratio 0.5
# HELP traitcore_composer_cache_hits_total Descriptor cache hits.
# TYPE traitcore_composer_cache_hits_total counter
traitcore_composer_cache_hits_total 1
# HELP traitcore_registry_active_implementations Implementing types currently alive in the ledger.
# TYPE traitcore_registry_active_implementations gauge
traitcore_registry_active_implementations 1
# HELP traitcore_registry_registrations_total Successful trait registrations since process start.
# TYPE traitcore_registry_registrations_total counter
traitcore_registry_registrations_total 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"traitcore_composer_cache_hit_ratio",
		"traitcore_composer_cache_hits_total",
		"traitcore_registry_active_implementations",
		"traitcore_registry_registrations_total",
	)
	if err != nil {
		t.Fatalf("CollectAndCompare: %v", err)
	}

	if got := testutil.CollectAndCount(c); got != 11 {
		t.Fatalf("expected 11 metrics, got %d", got)
	}
}

func TestCollectorSkipsNilSources(t *testing.T) {
	if got := testutil.CollectAndCount(NewCollector(nil, nil)); got != 0 {
		t.Fatalf("expected no metrics without sources, got %d", got)
	}
	reg, _ := seedEngine(t)
	if got := testutil.CollectAndCount(NewCollector(reg, nil)); got != 6 {
		t.Fatalf("expected 6 ledger metrics, got %d", got)
	}
}
