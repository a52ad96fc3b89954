package trait

// Declare registers impl for every requested trait against the default
// registry in one all-or-nothing batch. Dependencies satisfiable by sibling
// traits in the same call count as satisfied, so
// Declare(w, Auditable, Identifiable, Temporal) works in any order. If any
// trait is rejected the whole batch leaves no trace and the returned
// *DeclarationError aggregates every missing attribute and unmet dependency
// across all requested traits.
func Declare(impl any, traits ...Trait) error {
	return DeclareOn(DefaultRegistry(), impl, traits...)
}

// DeclareOn is Declare against an injected registry.
func DeclareOn(reg *Registry, impl any, traits ...Trait) error {
	if reg == nil {
		reg = DefaultRegistry()
	}
	results, err := reg.registerBatch(impl, traits, true)
	if err != nil {
		return err
	}
	for _, res := range results {
		if !res.OK() {
			return &DeclarationError{Type: res.Type, Results: results}
		}
	}
	return nil
}

// MustDeclare is Declare for construction-time wiring; it panics on any
// declaration failure.
func MustDeclare(impl any, traits ...Trait) {
	if err := Declare(impl, traits...); err != nil {
		panic(err)
	}
}
