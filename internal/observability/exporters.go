// Package observability exports registry and composer counters to expvar and
// Prometheus. The engine itself stays I/O-free; exporters pull point-in-time
// snapshots from the stats accessors instead of instrumenting the hot path.
package observability

import (
	"expvar"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"traitcore/pkg/trait"
)

var expvarSeq uint64

// RegistryStatser is the slice of the registry the exporters consume.
type RegistryStatser interface {
	Stats() trait.RegistryStats
}

// CacheStatser is the slice of the composer the exporters consume.
type CacheStatser interface {
	CacheStats() trait.CacheStats
}

// Snapshot is one read-only view of the ledger and cache counters.
type Snapshot struct {
	Registrations         uint64    `json:"registrations_total"`
	Lookups               uint64    `json:"lookups_total"`
	ActiveImplementations int       `json:"active_implementations"`
	RegisteredTraits      int       `json:"registered_traits"`
	SealedTraits          int       `json:"sealed_traits"`
	CollectedEntries      uint64    `json:"collected_entries_total"`
	CacheHits             uint64    `json:"cache_hits_total"`
	CacheMisses           uint64    `json:"cache_misses_total"`
	CacheGenerations      uint64    `json:"cache_generations"`
	CacheSize             int       `json:"cache_size"`
	CacheHitRatio         float64   `json:"cache_hit_ratio"`
	RecordedAt            time.Time `json:"recorded_at"`
}

// ExpvarExporter publishes snapshots under a single expvar name for
// deployments that prefer process-local metrics without external scrape
// infrastructure.
type ExpvarExporter struct {
	name string
	reg  RegistryStatser
	comp CacheStatser
}

// NewExpvarExporter publishes the exporter under the supplied name. When name
// is empty, a unique identifier is generated. Either source may be nil; its
// counters then stay zero.
func NewExpvarExporter(name string, reg RegistryStatser, comp CacheStatser) *ExpvarExporter {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("traitcore_metrics_%d", id)
	}
	e := &ExpvarExporter{name: name, reg: reg, comp: comp}
	expvar.Publish(name, expvar.Func(func() any {
		return e.Snapshot()
	}))
	return e
}

// Name returns the expvar export name associated with the exporter.
func (e *ExpvarExporter) Name() string {
	return e.name
}

// Snapshot reads both sources and stamps the result.
func (e *ExpvarExporter) Snapshot() Snapshot {
	snap := Snapshot{RecordedAt: time.Now().UTC()}
	if e.reg != nil {
		rs := e.reg.Stats()
		snap.Registrations = rs.Registrations
		snap.Lookups = rs.Lookups
		snap.ActiveImplementations = rs.ActiveImplementations
		snap.RegisteredTraits = rs.TotalTraits
		snap.SealedTraits = rs.SealedTraits
		snap.CollectedEntries = rs.CollectedEntries
	}
	if e.comp != nil {
		cs := e.comp.CacheStats()
		snap.CacheHits = cs.Hits
		snap.CacheMisses = cs.Misses
		snap.CacheGenerations = cs.Generations
		snap.CacheSize = cs.Size
		snap.CacheHitRatio = cs.HitRatio
	}
	return snap
}

// Collector exposes the same counters as const metrics for a Prometheus
// scrape. Register it with prometheus.MustRegister; every scrape pulls a
// fresh snapshot.
type Collector struct {
	reg  RegistryStatser
	comp CacheStatser

	registrations    *prometheus.Desc
	lookups          *prometheus.Desc
	activeImpls      *prometheus.Desc
	registeredTraits *prometheus.Desc
	sealedTraits     *prometheus.Desc
	collected        *prometheus.Desc

	cacheHits        *prometheus.Desc
	cacheMisses      *prometheus.Desc
	cacheGenerations *prometheus.Desc
	cacheSize        *prometheus.Desc
	cacheHitRatio    *prometheus.Desc
}

// NewCollector builds a collector over the given sources. Either source may
// be nil; its metrics are then omitted from the scrape.
func NewCollector(reg RegistryStatser, comp CacheStatser) *Collector {
	return &Collector{
		reg:  reg,
		comp: comp,
		registrations: prometheus.NewDesc("traitcore_registry_registrations_total",
			"Successful trait registrations since process start.", nil, nil),
		lookups: prometheus.NewDesc("traitcore_registry_lookups_total",
			"Trait lookups served by the ledger.", nil, nil),
		activeImpls: prometheus.NewDesc("traitcore_registry_active_implementations",
			"Implementing types currently alive in the ledger.", nil, nil),
		registeredTraits: prometheus.NewDesc("traitcore_registry_traits",
			"Distinct traits with at least one live implementation.", nil, nil),
		sealedTraits: prometheus.NewDesc("traitcore_registry_sealed_traits",
			"Traits closed to registration from external modules.", nil, nil),
		collected: prometheus.NewDesc("traitcore_registry_collected_entries_total",
			"Ledger entries swept after their implementations were collected.", nil, nil),
		cacheHits: prometheus.NewDesc("traitcore_composer_cache_hits_total",
			"Descriptor cache hits.", nil, nil),
		cacheMisses: prometheus.NewDesc("traitcore_composer_cache_misses_total",
			"Descriptor cache misses.", nil, nil),
		cacheGenerations: prometheus.NewDesc("traitcore_composer_cache_generations",
			"Descriptors built since the last cache clear.", nil, nil),
		cacheSize: prometheus.NewDesc("traitcore_composer_cache_size",
			"Descriptors currently held by the cache.", nil, nil),
		cacheHitRatio: prometheus.NewDesc("traitcore_composer_cache_hit_ratio",
			"Fraction of descriptor lookups served from the cache.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.registrations
	ch <- c.lookups
	ch <- c.activeImpls
	ch <- c.registeredTraits
	ch <- c.sealedTraits
	ch <- c.collected
	ch <- c.cacheHits
	ch <- c.cacheMisses
	ch <- c.cacheGenerations
	ch <- c.cacheSize
	ch <- c.cacheHitRatio
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.reg != nil {
		rs := c.reg.Stats()
		ch <- prometheus.MustNewConstMetric(c.registrations, prometheus.CounterValue, float64(rs.Registrations))
		ch <- prometheus.MustNewConstMetric(c.lookups, prometheus.CounterValue, float64(rs.Lookups))
		ch <- prometheus.MustNewConstMetric(c.activeImpls, prometheus.GaugeValue, float64(rs.ActiveImplementations))
		ch <- prometheus.MustNewConstMetric(c.registeredTraits, prometheus.GaugeValue, float64(rs.TotalTraits))
		ch <- prometheus.MustNewConstMetric(c.sealedTraits, prometheus.GaugeValue, float64(rs.SealedTraits))
		ch <- prometheus.MustNewConstMetric(c.collected, prometheus.CounterValue, float64(rs.CollectedEntries))
	}
	if c.comp != nil {
		cs := c.comp.CacheStats()
		ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue, float64(cs.Hits))
		ch <- prometheus.MustNewConstMetric(c.cacheMisses, prometheus.CounterValue, float64(cs.Misses))
		ch <- prometheus.MustNewConstMetric(c.cacheGenerations, prometheus.GaugeValue, float64(cs.Generations))
		ch <- prometheus.MustNewConstMetric(c.cacheSize, prometheus.GaugeValue, float64(cs.Size))
		ch <- prometheus.MustNewConstMetric(c.cacheHitRatio, prometheus.GaugeValue, cs.HitRatio)
	}
}
