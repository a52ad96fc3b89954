package trait

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"traitcore/pkg/modelapi"
)

// modulePath is the path prefix of this module. It is always local to the
// orphan rule, mirroring the view of an in-tree caller.
const modulePath = "traitcore"

// descriptorModule is the owning module recorded for generated descriptors.
const descriptorModule = "traitcore/pkg/modelapi"

// implKey identifies an implementing value in the ledger. Static Go types
// key on their reflect.Type, which the runtime keeps alive; generated
// descriptors key on their serial so two same-named descriptors stay
// distinct.
type implKey struct {
	rt     reflect.Type
	serial string
}

// implRef is a resolved implementing value for the duration of one call.
// The model pointer is strong here and must never be retained by ledger
// entries.
type implRef struct {
	key       implKey
	label     string
	module    string
	rt        reflect.Type
	model     *modelapi.Type
	collected bool
}

func resolveImpl(impl any) (implRef, error) {
	switch v := impl.(type) {
	case nil:
		return implRef{}, fmt.Errorf("resolve implementation: %w", ErrNilImplementation)
	case *modelapi.Type:
		if v == nil {
			return implRef{}, fmt.Errorf("resolve implementation: %w", ErrNilImplementation)
		}
		return descriptorRef(v), nil
	case weak.Pointer[modelapi.Type]:
		m := v.Value()
		if m == nil {
			return implRef{label: "(collected descriptor)", collected: true}, nil
		}
		return descriptorRef(m), nil
	case reflect.Type:
		if v == nil {
			return implRef{}, fmt.Errorf("resolve implementation: %w", ErrNilImplementation)
		}
		return staticRef(v), nil
	default:
		return staticRef(reflect.TypeOf(impl)), nil
	}
}

func descriptorRef(m *modelapi.Type) implRef {
	return implRef{
		key:    implKey{serial: m.Serial()},
		label:  m.Name(),
		module: descriptorModule,
		model:  m,
	}
}

func staticRef(rt reflect.Type) implRef {
	base := rt
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	return implRef{
		key:    implKey{rt: base},
		label:  base.String(),
		module: base.PkgPath(),
		rt:     base,
	}
}

// regRecord is one (type, trait) ledger entry.
type regRecord struct {
	at     time.Time
	checks atomic.Uint64
}

// regEntry groups all trait records of one implementing value. Generated
// descriptors are held weakly; the strong pointer lives with the caller.
type regEntry struct {
	key       implKey
	label     string
	module    string
	generated bool
	wref      weak.Pointer[modelapi.Type]
	records   map[Trait]*regRecord
	declared  Composition
}

func (e *regEntry) alive() bool {
	return !e.generated || e.wref.Value() != nil
}

func (e *regEntry) traits() Composition {
	var c Composition
	for t := range e.records {
		c = c.UnionTrait(t)
	}
	return c
}

// RegistryStats is a point-in-time snapshot of ledger counters.
type RegistryStats struct {
	Registrations         uint64
	Lookups               uint64
	ActiveImplementations int
	TotalTraits           int
	SealedTraits          int
	CollectedEntries      uint64
}

// Registry is the coherence-enforcing ledger associating implementing types
// with catalog traits. Safe for concurrent use. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	opts      registryOptions
	ownModule string

	mu      sync.RWMutex
	entries map[implKey]*regEntry
	sealed  map[Trait]bool

	deadMu sync.Mutex
	dead   map[implKey]struct{}

	registrations atomic.Uint64
	lookups       atomic.Uint64
	collected     atomic.Uint64
}

// NewRegistry builds an empty ledger. The engine's own module path is always
// local to the orphan rule; WithLocalModules extends the set.
func NewRegistry(opts ...Option) *Registry {
	o := defaultRegistryOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		opts:      o,
		ownModule: modulePath,
		entries:   make(map[implKey]*regEntry),
		sealed:    make(map[Trait]bool),
		dead:      make(map[implKey]struct{}),
	}
}

func hasModulePrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func (r *Registry) isLocalLocked(module string) bool {
	if module == "" {
		return false
	}
	if hasModulePrefix(module, r.ownModule) {
		return true
	}
	for _, p := range r.opts.localModules {
		if hasModulePrefix(module, p) {
			return true
		}
	}
	return false
}

// AddLocalModule extends the module path prefixes the orphan rule treats as
// local. Empty prefixes are ignored.
func (r *Registry) AddLocalModule(prefix string) {
	if prefix == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts.localModules = append(r.opts.localModules, prefix)
}

// Register associates impl with trait t. Expected failures (structural,
// dependency, orphan, sealed, collected) come back inside the
// ValidationResult with a nil error; only an unknown trait or a nil
// implementation returns a non-nil error. Re-registration is idempotent
// success and still counts toward the registration total.
func (r *Registry) Register(impl any, t Trait) (ValidationResult, error) {
	results, err := r.registerBatch(impl, []Trait{t}, false)
	if err != nil {
		return ValidationResult{}, err
	}
	return results[0], nil
}

// registerBatch validates every requested trait against impl and applies the
// whole batch only when every validation passed. Dependencies satisfiable by
// sibling traits in the same batch count as satisfied.
func (r *Registry) registerBatch(impl any, traits []Trait, markDeclared bool) ([]ValidationResult, error) {
	ref, err := resolveImpl(impl)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	for _, t := range traits {
		if !t.Valid() {
			return nil, fmt.Errorf("register %s: %w", t, ErrUnknownTrait)
		}
	}
	siblings := NewComposition(traits...)

	r.mu.Lock()
	defer r.mu.Unlock()

	var registered Composition
	if e := r.entries[ref.key]; e != nil {
		registered = e.traits()
	}
	available := registered.Union(siblings)

	results := make([]ValidationResult, len(traits))
	ok := true
	for i, t := range traits {
		start := r.opts.clock.Now()
		res := r.validateLocked(ref, t, registered, available)
		res.Elapsed = r.opts.clock.Now().Sub(start)
		if res.Elapsed > r.opts.latencyBudget {
			res.PerformanceWarning = fmt.Sprintf("trait validation took %s, exceeding %s budget", res.Elapsed, r.opts.latencyBudget)
			r.opts.logger.Warn("trait validation budget exceeded",
				"trait", t.String(), "type", ref.label, "elapsed", res.Elapsed.String())
		}
		if !res.OK() {
			ok = false
			r.opts.logger.Debug("trait registration rejected",
				"trait", t.String(), "type", ref.label, "kind", res.Kind.String(), "reason", res.Message)
		}
		results[i] = res
	}
	if !ok {
		return results, nil
	}

	now := r.opts.clock.Now()
	entry := r.entries[ref.key]
	if entry == nil {
		entry = &regEntry{
			key:       ref.key,
			label:     ref.label,
			module:    ref.module,
			generated: ref.model != nil,
			records:   make(map[Trait]*regRecord),
		}
		if ref.model != nil {
			entry.wref = weak.Make(ref.model)
			runtime.AddCleanup(ref.model, func(k implKey) {
				r.deadMu.Lock()
				r.dead[k] = struct{}{}
				r.deadMu.Unlock()
			}, ref.key)
		}
		r.entries[ref.key] = entry
	}
	for _, t := range traits {
		if rec := entry.records[t]; rec != nil {
			rec.checks.Add(1)
		} else {
			rec := &regRecord{at: now}
			rec.checks.Add(1)
			entry.records[t] = rec
		}
		r.registrations.Add(1)
		r.opts.logger.Debug("trait registered", "trait", t.String(), "type", ref.label, "module", ref.module)
	}
	if markDeclared {
		entry.declared = siblings
	}
	return results, nil
}

// validateLocked runs every coherence check for one (impl, trait) pair and
// reports everything it found, not just the first problem. Kind carries the
// most severe failure: orphan, then sealed, then dependency, then
// structural.
func (r *Registry) validateLocked(ref implRef, t Trait, registered, available Composition) ValidationResult {
	res := ValidationResult{Trait: t, Type: ref.label}
	if ref.collected {
		res.Kind = FailureCollected
		res.Message = "implementing type was collected before registration completed"
		return res
	}
	if registered.Has(t) {
		if rec := r.entries[ref.key].records[t]; rec != nil {
			rec.checks.Add(1)
		}
		return res
	}

	def := catalog[t].def
	traitLocal := r.isLocalLocked(def.Owner)
	implLocal := r.isLocalLocked(ref.module)
	if !traitLocal && !implLocal {
		res.Kind = FailureOrphan
		res.Message = fmt.Sprintf("cannot implement external trait %s (module %s) for external type %s (module %s)",
			t, def.Owner, ref.label, moduleLabel(ref.module))
		return res
	}
	if r.sealed[t] && !implLocal {
		res.Kind = FailureSealed
		res.Message = fmt.Sprintf("cannot implement sealed trait %s from module %s", t, moduleLabel(ref.module))
		return res
	}

	var parts []string
	if missing := (Composition{bits: DependenciesOf(t).bits &^ available.bits}); !missing.IsEmpty() {
		res.Kind = FailureDependency
		res.MissingDependencies = missing
		parts = append(parts, fmt.Sprintf("missing dependencies %s", strings.Join(missing.Names(), ", ")))
	}
	var missingAttrs []string
	if ref.model != nil {
		missingAttrs = missingOnModel(ref.model, def.Required)
	} else {
		missingAttrs = missingOnType(ref.rt, def.Required)
	}
	if len(missingAttrs) > 0 {
		if res.Kind == FailureNone {
			res.Kind = FailureStructural
		}
		res.MissingAttributes = missingAttrs
		parts = append(parts, fmt.Sprintf("missing attributes %s", strings.Join(missingAttrs, ", ")))
	}
	res.Message = strings.Join(parts, "; ")
	return res
}

func moduleLabel(module string) string {
	if module == "" {
		return "(none)"
	}
	return module
}

// HasTrait reports trait membership for impl. ModeRegistered consults the
// ledger; ModeProtocol checks the implementing type structurally against the
// trait's full contract. Malformed inputs read as false.
func (r *Registry) HasTrait(impl any, t Trait, mode Mode) bool {
	r.lookups.Add(1)
	if !t.Valid() {
		return false
	}
	ref, err := resolveImpl(impl)
	if err != nil || ref.collected {
		return false
	}
	if mode == ModeProtocol {
		def := catalog[t].def
		if ref.model != nil {
			return satisfiesProtocolModel(ref.model, def)
		}
		return satisfiesProtocol(ref.rt, def)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.entries[ref.key]
	if e == nil || !e.alive() {
		return false
	}
	rec := e.records[t]
	if rec == nil {
		return false
	}
	rec.checks.Add(1)
	return true
}

// TraitsOf returns the registered trait set of impl. Entries whose
// implementing descriptor was collected read as empty.
func (r *Registry) TraitsOf(impl any) Composition {
	ref, err := resolveImpl(impl)
	if err != nil || ref.collected {
		return Composition{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.entries[ref.key]
	if e == nil || !e.alive() {
		return Composition{}
	}
	return e.traits()
}

// DependencyClosure returns the registered trait set of impl closed under
// the declared dependency edges.
func (r *Registry) DependencyClosure(impl any) Composition {
	return r.TraitsOf(impl).WithDependencies()
}

// ValidateDependencies reports whether every registered trait of impl has
// its declared dependencies satisfied by impl's registered set or by the
// supplied extra composition, and returns the unmet remainder.
func (r *Registry) ValidateDependencies(impl any, available Composition) (bool, Composition) {
	registered := r.TraitsOf(impl)
	have := registered.Union(available)
	var wanted Composition
	for _, t := range registered.Traits() {
		wanted = wanted.Union(DependenciesOf(t))
	}
	missing := Composition{bits: wanted.bits &^ have.bits}
	return missing.IsEmpty(), missing
}

// DeclaredTraits returns the marker set recorded by the declaration gate:
// exactly what was declared, independent of later single registrations.
func (r *Registry) DeclaredTraits(impl any) Composition {
	ref, err := resolveImpl(impl)
	if err != nil || ref.collected {
		return Composition{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.entries[ref.key]
	if e == nil || !e.alive() {
		return Composition{}
	}
	return e.declared
}

// Definition returns the catalog definition of t.
func (r *Registry) Definition(t Trait) (Definition, error) {
	return DefinitionFor(t)
}

// ImplementationDefinition returns the catalog definition stamped with the
// registration instant and validation check count of the (impl, t) entry.
func (r *Registry) ImplementationDefinition(impl any, t Trait) (Definition, bool) {
	if !t.Valid() {
		return Definition{}, false
	}
	ref, err := resolveImpl(impl)
	if err != nil || ref.collected {
		return Definition{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.entries[ref.key]
	if e == nil || !e.alive() {
		return Definition{}, false
	}
	rec := e.records[t]
	if rec == nil {
		return Definition{}, false
	}
	def := catalog[t].def.clone()
	def.RegistrationTime = rec.at
	def.ValidationChecks = rec.checks.Load()
	return def, true
}

// Seal blocks new out-of-module implementers of t. Existing entries and
// in-module registrations are unaffected. Sealing is idempotent.
func (r *Registry) Seal(t Trait) error {
	if !t.Valid() {
		return fmt.Errorf("seal %s: %w", t, ErrUnknownTrait)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed[t] = true
	r.opts.logger.Info("trait sealed", "trait", t.String())
	return nil
}

// Sealed reports whether t is sealed.
func (r *Registry) Sealed(t Trait) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed[t]
}

// CleanupOrphanedReferences removes ledger entries whose implementing
// descriptor was collected, returning how many implementations were swept.
// Safe to call concurrently with registration.
func (r *Registry) CleanupOrphanedReferences() int {
	r.deadMu.Lock()
	dead := r.dead
	r.dead = make(map[implKey]struct{})
	r.deadMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for k := range dead {
		if _, ok := r.entries[k]; ok {
			delete(r.entries, k)
			removed++
		}
	}
	for k, e := range r.entries {
		if e.generated && e.wref.Value() == nil {
			delete(r.entries, k)
			removed++
		}
	}
	if removed > 0 {
		r.collected.Add(uint64(removed))
		r.opts.logger.Debug("collected implementations swept", "count", removed)
	}
	return removed
}

// Stats returns a snapshot of the ledger counters. Entries whose descriptor
// died but has not been swept yet do not count as active.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := RegistryStats{
		Registrations:    r.registrations.Load(),
		Lookups:          r.lookups.Load(),
		SealedTraits:     len(r.sealed),
		CollectedEntries: r.collected.Load(),
	}
	var seen Composition
	for _, e := range r.entries {
		if !e.alive() {
			continue
		}
		stats.ActiveImplementations++
		seen = seen.Union(e.traits())
	}
	stats.TotalTraits = seen.Len()
	return stats
}

// DependencyGraph returns a snapshot of the declared dependency edges for
// every catalog trait, dependencies sorted by name.
func (r *Registry) DependencyGraph() map[Trait][]Trait {
	out := make(map[Trait][]Trait, traitCount)
	for _, t := range Traits() {
		deps := append([]Trait(nil), catalog[t].def.Dependencies...)
		sort.Slice(deps, func(i, j int) bool { return deps[i].String() < deps[j].String() })
		out[t] = deps
	}
	return out
}
