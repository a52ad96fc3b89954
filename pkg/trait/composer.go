package trait

import (
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"traitcore/internal/modelgen"
	"traitcore/pkg/modelapi"
)

// Compose normalizes a mix of Trait, Composition, *Composition and []Trait
// values into one composition. Any other part reports *CompositionError;
// identifiers outside the catalog report ErrUnknownTrait.
func Compose(parts ...any) (Composition, error) {
	var out Composition
	for i, p := range parts {
		switch v := p.(type) {
		case Trait:
			if !v.Valid() {
				return Composition{}, fmt.Errorf("compose: %s: %w", v, ErrUnknownTrait)
			}
			out = out.UnionTrait(v)
		case Composition:
			out = out.Union(v)
		case *Composition:
			if v == nil {
				return Composition{}, &CompositionError{Index: i, Part: p}
			}
			out = out.Union(*v)
		case []Trait:
			for _, t := range v {
				if !t.Valid() {
					return Composition{}, fmt.Errorf("compose: %s: %w", t, ErrUnknownTrait)
				}
			}
			out = out.Union(NewComposition(v...))
		default:
			return Composition{}, &CompositionError{Index: i, Part: p}
		}
	}
	return out, nil
}

// Composer turns compositions into generated model descriptors, memoized by
// composition ID. Safe for concurrent use; at most one build per key runs at
// a time and concurrent callers share the winner's descriptor.
type Composer struct {
	reg     *Registry
	builder modelapi.Builder
	logger  Logger

	cache *lru.Cache[string, *modelapi.Type]
	group singleflight.Group

	hits        atomic.Uint64
	misses      atomic.Uint64
	generations atomic.Uint64
}

// CacheStats is a point-in-time snapshot of the composer cache counters.
// Hits and misses are cumulative across ClearCache; size and generations
// reset with it.
type CacheStats struct {
	Hits        uint64
	Misses      uint64
	Generations uint64
	Size        int
	HitRatio    float64
}

// NewComposer builds a composer over the given registry and builder. A nil
// registry means the package default; a nil builder means the standard
// descriptor generator.
func NewComposer(reg *Registry, b modelapi.Builder, opts ...ComposerOption) *Composer {
	o := defaultComposerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if reg == nil {
		reg = DefaultRegistry()
	}
	if b == nil {
		b = modelgen.New()
	}
	cache, err := lru.New[string, *modelapi.Type](o.cacheSize)
	if err != nil {
		panic(fmt.Sprintf("trait: composer cache: %v", err))
	}
	return &Composer{reg: reg, builder: b, logger: o.logger, cache: cache}
}

// Registry returns the ledger this composer consults.
func (c *Composer) Registry() *Registry { return c.reg }

// Compose is the method form of the package-level Compose.
func (c *Composer) Compose(parts ...any) (Composition, error) {
	return Compose(parts...)
}

// GenerateModel returns the generated descriptor for the composition,
// building it at most once per composition ID. Two calls with the same
// member set return the pointer-identical descriptor regardless of how the
// compositions were assembled.
func (c *Composer) GenerateModel(comp Composition) (*modelapi.Type, error) {
	key := comp.ID()
	if m, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return m, nil
	}
	c.misses.Add(1)
	v, err, _ := c.group.Do(key, func() (any, error) {
		if m, ok := c.cache.Get(key); ok {
			return m, nil
		}
		m, err := c.build(comp)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, m)
		c.generations.Add(1)
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate model %s: %w", comp, err)
	}
	return v.(*modelapi.Type), nil
}

func (c *Composer) build(comp Composition) (*modelapi.Type, error) {
	spec := modelapi.Spec{
		Name:          modelNameFor(comp),
		CompositionID: comp.ID(),
		Traits:        comp.Names(),
	}
	fields := make(map[string]modelapi.Field)
	ops := make(map[string]modelapi.Operation)
	for _, t := range comp.Traits() {
		frag := catalog[t].fragment()
		for _, f := range frag.fields {
			if _, ok := fields[f.Name]; !ok {
				fields[f.Name] = f
			}
		}
		for _, op := range frag.ops {
			if _, ok := ops[op.Name]; !ok {
				ops[op.Name] = op
			}
		}
	}
	for _, f := range fields {
		spec.Fields = append(spec.Fields, f)
	}
	for _, op := range ops {
		spec.Operations = append(spec.Operations, op)
	}
	c.logger.Debug("generating model", "composition", comp.ID(), "fields", len(spec.Fields), "operations", len(spec.Operations))
	return c.builder.Build(spec)
}

// modelNameFor derives the deterministic generated type name from the
// composition members: IDENTIFIABLE+TEMPORAL -> IdentifiableTemporalModel.
func modelNameFor(comp Composition) string {
	if comp.IsEmpty() {
		return "EmptyModel"
	}
	var b strings.Builder
	for _, name := range comp.Names() {
		for _, part := range strings.Split(name, "_") {
			if part == "" {
				continue
			}
			b.WriteString(part[:1])
			b.WriteString(strings.ToLower(part[1:]))
		}
	}
	b.WriteString("Model")
	return b.String()
}

// CacheStats snapshots the cache counters.
func (c *Composer) CacheStats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	stats := CacheStats{
		Hits:        hits,
		Misses:      misses,
		Generations: c.generations.Load(),
		Size:        c.cache.Len(),
	}
	if total := hits + misses; total > 0 {
		stats.HitRatio = float64(hits) / float64(total)
	}
	return stats
}

// ClearCache drops every cached descriptor and resets size and generation
// counters. Hit and miss totals are cumulative and survive the clear.
func (c *Composer) ClearCache() {
	c.cache.Purge()
	c.generations.Store(0)
	c.logger.Debug("composer cache cleared")
}
