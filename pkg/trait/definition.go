package trait

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"weak"

	"traitcore/pkg/modelapi"
)

// catalogOwner is the module path that owns every catalog trait. The orphan
// rule compares it against a registry's local module set.
const catalogOwner = "traitcore/pkg/trait"

// defaultVersion is the catalog contract version stamped on every trait
// definition until a trait revs independently.
const defaultVersion = "1.0.0"

// Attribute names one required model attribute and its storage kind.
type Attribute struct {
	Name string
	Kind modelapi.FieldKind
}

// Definition is the immutable per-trait record: contract, dependencies,
// ownership and versioning. Catalog definitions carry a zero
// RegistrationTime and ValidationChecks; per-implementation snapshots
// returned by Registry.ImplementationDefinition stamp both.
type Definition struct {
	Trait            Trait
	Version          string
	Description      string
	Owner            string
	Dependencies     []Trait
	Required         []string
	Attributes       []Attribute
	Operations       []string
	RegistrationTime time.Time
	ValidationChecks uint64
}

func (d Definition) clone() Definition {
	d.Dependencies = append([]Trait(nil), d.Dependencies...)
	d.Required = append([]string(nil), d.Required...)
	d.Attributes = append([]Attribute(nil), d.Attributes...)
	d.Operations = append([]string(nil), d.Operations...)
	return d
}

// prototype is the per-trait reference fragment the composer unions into a
// model spec. Held weakly by the catalog and rebuilt on demand so unused
// fragments do not stay resident.
type prototype struct {
	fields []modelapi.Field
	ops    []modelapi.Operation
}

type catalogEntry struct {
	def Definition

	mu    sync.Mutex
	proto weak.Pointer[prototype]
}

// fragment returns a strong reference to the trait's generation prototype,
// rebuilding it when the previous one was collected.
func (e *catalogEntry) fragment() *prototype {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p := e.proto.Value(); p != nil {
		return p
	}
	p := buildPrototype(e.def)
	e.proto = weak.Make(p)
	return p
}

func buildPrototype(def Definition) *prototype {
	p := &prototype{}
	seen := make(map[string]bool, len(def.Attributes)+len(def.Required))
	add := func(name string, kind modelapi.FieldKind) {
		if seen[name] {
			return
		}
		seen[name] = true
		p.fields = append(p.fields, modelapi.Field{
			Name:     name,
			Kind:     kind,
			Required: true,
			Doc:      fmt.Sprintf("%s contract attribute", def.Trait.Key()),
		})
	}
	for _, a := range def.Attributes {
		add(a.Name, a.Kind)
	}
	for _, name := range def.Required {
		if kind, ok := requiredAttrKinds[name]; ok {
			add(name, kind)
		}
	}
	sort.Slice(p.fields, func(i, j int) bool { return p.fields[i].Name < p.fields[j].Name })
	for _, op := range def.Operations {
		p.ops = append(p.ops, modelapi.Operation{
			Name: op,
			Doc:  fmt.Sprintf("%s contract operation", def.Trait.Key()),
		})
	}
	return p
}

// requiredAttrKinds maps the registry's required-attribute names to storage
// kinds for prototype construction. Required names that are operations
// (compute_hash) have no entry.
var requiredAttrKinds = map[string]modelapi.FieldKind{
	"id":         modelapi.KindString,
	"id_type":    modelapi.KindString,
	"created_by": modelapi.KindString,
	"updated_by": modelapi.KindString,
	"created_at": modelapi.KindTime,
	"updated_at": modelapi.KindTime,
}

type contractSpec struct {
	desc     string
	deps     []Trait
	required []string
	attrs    []Attribute
	ops      []string
}

var catalogSpecs = [traitCount]contractSpec{
	Identifiable: {
		desc:     "identifiable entities expose a stable identity value and identity scheme",
		required: []string{"id", "id_type"},
		attrs:    []Attribute{{"id", modelapi.KindString}, {"id_type", modelapi.KindString}},
		ops:      []string{"same_identity"},
	},
	Temporal: {
		desc:     "temporal entities record creation and modification instants",
		required: []string{"created_at", "updated_at"},
		attrs:    []Attribute{{"created_at", modelapi.KindTime}, {"updated_at", modelapi.KindTime}},
		ops:      []string{"age_seconds", "is_modified"},
	},
	Auditable: {
		desc:     "auditable entities track actors and versions behind every change",
		deps:     []Trait{Identifiable, Temporal},
		required: []string{"id", "created_by", "updated_by"},
		attrs:    []Attribute{{"version", modelapi.KindInt}, {"audit_log", modelapi.KindAny}},
		ops:      []string{"emit_audit_event"},
	},
	Hashable: {
		desc:     "hashable entities derive a stable content hash from declared fields",
		required: []string{"compute_hash"},
		attrs:    []Attribute{{"hash_fields", modelapi.KindStringList}},
		ops:      []string{"compute_hash", "verify_hash_stability"},
	},
	Operable: {
		desc: "operable entities accept named operations with capability discovery",
		ops:  []string{"apply_operation", "get_supported_operations", "supports_operation"},
	},
	Observable: {
		desc: "observable entities publish change events to subscribers",
		ops:  []string{"subscribe", "unsubscribe", "emit_event"},
	},
	Validatable: {
		desc: "validatable entities self-check against declared constraints",
		ops:  []string{"is_valid", "validate", "get_validation_constraints"},
	},
	Serializable: {
		desc:  "serializable entities round-trip through record form",
		attrs: []Attribute{{"serialization_version", modelapi.KindInt}},
		ops:   []string{"to_record", "from_record"},
	},
	Composable: {
		desc:  "composable entities merge with peers under a priority order",
		attrs: []Attribute{{"composition_priority", modelapi.KindInt}},
		ops:   []string{"compose_with", "get_composition_conflicts"},
	},
	Extensible: {
		desc: "extensible entities carry named extension payloads",
		ops:  []string{"add_extension", "get_extension", "list_extensions"},
	},
	Cacheable: {
		desc:  "cacheable entities advertise a cache key and time to live",
		attrs: []Attribute{{"cache_ttl", modelapi.KindInt}},
		ops:   []string{"get_cache_key", "invalidate_cache"},
	},
	Indexable: {
		desc:  "indexable entities expose search fields and query matching",
		attrs: []Attribute{{"search_priority", modelapi.KindInt}},
		ops:   []string{"get_search_fields", "matches_query"},
	},
	Lazy: {
		desc:  "lazy entities defer loading of declared attribute sets",
		attrs: []Attribute{{"lazy_fields", modelapi.KindStringList}},
		ops:   []string{"load_lazy_attributes", "is_fully_loaded"},
	},
	Streaming: {
		desc:  "streaming entities apply incremental updates from a feed",
		attrs: []Attribute{{"supports_streaming", modelapi.KindBool}},
		ops:   []string{"stream_updates", "apply_stream_update"},
	},
	Partial: {
		desc: "partial entities may be incomplete until finalized",
		ops:  []string{"is_complete", "get_missing_fields", "finalize"},
	},
	Secured: {
		desc:  "secured entities gate access behind a security policy and level",
		attrs: []Attribute{{"security_level", modelapi.KindString}},
		ops:   []string{"check_access", "get_security_policy"},
	},
	CapabilityAware: {
		desc:  "capability_aware entities hold grantable capability sets on top of secured identity",
		deps:  []Trait{Secured, Identifiable},
		attrs: []Attribute{{"granted_capabilities", modelapi.KindStringList}},
		ops:   []string{"grant_capability", "revoke_capability", "has_capability"},
	},
}

var catalog = buildCatalog()

func buildCatalog() [traitCount]*catalogEntry {
	var table [traitCount]*catalogEntry
	edges := make(map[Trait][]Trait, traitCount)
	for i := range catalogSpecs {
		t := Trait(i)
		spec := catalogSpecs[i]
		if spec.desc == "" || !strings.Contains(spec.desc, t.Key()) {
			panic(fmt.Sprintf("trait catalog: %s description must mention %q", t, t.Key()))
		}
		for _, dep := range spec.deps {
			if !dep.Valid() {
				panic(fmt.Sprintf("trait catalog: %s depends on unknown trait %d", t, uint8(dep)))
			}
			if dep == t {
				panic(fmt.Sprintf("trait catalog: %s depends on itself", t))
			}
		}
		edges[t] = spec.deps
		table[i] = &catalogEntry{def: Definition{
			Trait:        t,
			Version:      defaultVersion,
			Description:  spec.desc,
			Owner:        catalogOwner,
			Dependencies: append([]Trait(nil), spec.deps...),
			Required:     append([]string(nil), spec.required...),
			Attributes:   append([]Attribute(nil), spec.attrs...),
			Operations:   append([]string(nil), spec.ops...),
		}}
	}
	if err := checkDependencyCycles(edges); err != nil {
		panic(fmt.Sprintf("trait catalog: %v", err))
	}
	return table
}

// checkDependencyCycles walks the declared edges and reports the first cycle
// found, including the full path. Run once at catalog construction so a bad
// edge fails the process instead of surfacing as an unsatisfiable dependency
// at every registration.
func checkDependencyCycles(edges map[Trait][]Trait) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[Trait]int, len(edges))
	var path []Trait

	var visit func(t Trait) error
	visit = func(t Trait) error {
		switch state[t] {
		case done:
			return nil
		case visiting:
			names := make([]string, 0, len(path)+1)
			start := 0
			for i, p := range path {
				if p == t {
					start = i
					break
				}
			}
			for _, p := range path[start:] {
				names = append(names, p.String())
			}
			names = append(names, t.String())
			return fmt.Errorf("dependency cycle: %s", strings.Join(names, " -> "))
		}
		state[t] = visiting
		path = append(path, t)
		for _, dep := range edges[t] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[t] = done
		return nil
	}

	for t := Trait(0); t < traitCount; t++ {
		if err := visit(t); err != nil {
			return err
		}
	}
	return nil
}

// DefinitionFor returns the catalog definition of t. The only failure is an
// identifier outside the closed catalog.
func DefinitionFor(t Trait) (Definition, error) {
	if !t.Valid() {
		return Definition{}, fmt.Errorf("definition for %s: %w", t, ErrUnknownTrait)
	}
	return catalog[t].def.clone(), nil
}

// DependenciesOf returns the declared one-hop dependency set of t, not the
// transitive closure. Unknown traits have no dependencies.
func DependenciesOf(t Trait) Composition {
	if !t.Valid() {
		return Composition{}
	}
	return NewComposition(catalog[t].def.Dependencies...)
}
