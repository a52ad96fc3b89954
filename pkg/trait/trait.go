// Package trait implements a runtime capability composition engine:
// a closed catalog of capability tags (traits), a coherence-enforcing
// registry associating traits with concrete Go types, an immutable
// composition algebra over trait sets, and a memoizing composer that turns
// compositions into generated model descriptors.
//
// The engine performs no I/O. Storage adapters and exporters consume its
// outputs but are never called from this package.
package trait

import (
	"fmt"
	"strings"
)

// Trait is an opaque identifier over the closed capability catalog. The
// catalog is fixed at process start; there is no dynamic trait creation.
type Trait uint8

const (
	Identifiable Trait = iota
	Temporal
	Auditable
	Hashable
	Operable
	Observable
	Validatable
	Serializable
	Composable
	Extensible
	Cacheable
	Indexable
	Lazy
	Streaming
	Partial
	Secured
	CapabilityAware

	traitCount = 17
)

var traitNames = [traitCount]string{
	Identifiable:    "IDENTIFIABLE",
	Temporal:        "TEMPORAL",
	Auditable:       "AUDITABLE",
	Hashable:        "HASHABLE",
	Operable:        "OPERABLE",
	Observable:      "OBSERVABLE",
	Validatable:     "VALIDATABLE",
	Serializable:    "SERIALIZABLE",
	Composable:      "COMPOSABLE",
	Extensible:      "EXTENSIBLE",
	Cacheable:       "CACHEABLE",
	Indexable:       "INDEXABLE",
	Lazy:            "LAZY",
	Streaming:       "STREAMING",
	Partial:         "PARTIAL",
	Secured:         "SECURED",
	CapabilityAware: "CAPABILITY_AWARE",
}

// Valid reports whether t names a catalog trait.
func (t Trait) Valid() bool { return t < traitCount }

// String returns the canonical upper-snake name (IDENTIFIABLE, ...,
// CAPABILITY_AWARE).
func (t Trait) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TRAIT(%d)", uint8(t))
	}
	return traitNames[t]
}

// Key returns the lowercase form used in serialized catalog documents.
func (t Trait) Key() string { return strings.ToLower(t.String()) }

// ParseTrait resolves either the canonical upper-snake name or the lowercase
// document form back to a Trait. Unknown names report ErrUnknownTrait.
func ParseTrait(s string) (Trait, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range traitNames {
		if name == want {
			return Trait(i), nil
		}
	}
	return 0, fmt.Errorf("parse trait %q: %w", s, ErrUnknownTrait)
}

// Traits returns every catalog trait in stable numeric order.
func Traits() []Trait {
	out := make([]Trait, traitCount)
	for i := range out {
		out[i] = Trait(i)
	}
	return out
}
