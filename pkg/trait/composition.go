package trait

import (
	"sort"
	"strings"
)

// Composition is an immutable set of catalog traits. The zero value is the
// empty composition. Compositions are comparable and usable as map keys;
// equality and hashing are independent of construction order by
// construction. All operations are pure and return new values.
type Composition struct {
	bits uint32
}

func traitBit(t Trait) uint32 {
	if !t.Valid() {
		return 0
	}
	return 1 << uint32(t)
}

// NewComposition builds a composition from the given traits. Identifiers
// outside the catalog are ignored.
func NewComposition(traits ...Trait) Composition {
	var c Composition
	for _, t := range traits {
		c.bits |= traitBit(t)
	}
	return c
}

// Has reports whether t is a member.
func (c Composition) Has(t Trait) bool { return c.bits&traitBit(t) != 0 }

// IsEmpty reports whether the composition has no members.
func (c Composition) IsEmpty() bool { return c.bits == 0 }

// Len returns the member count.
func (c Composition) Len() int {
	n := 0
	for b := c.bits; b != 0; b &= b - 1 {
		n++
	}
	return n
}

// Union returns the members of either composition.
func (c Composition) Union(other Composition) Composition {
	return Composition{bits: c.bits | other.bits}
}

// UnionTrait returns the composition extended with t.
func (c Composition) UnionTrait(t Trait) Composition {
	return Composition{bits: c.bits | traitBit(t)}
}

// Intersect returns the members common to both compositions. Intersecting
// disjoint compositions yields the empty composition.
func (c Composition) Intersect(other Composition) Composition {
	return Composition{bits: c.bits & other.bits}
}

// WithDependencies returns the closure of the composition under the declared
// dependency edges: every member's dependencies, transitively, become
// members. The catalog is acyclic so the closure always terminates.
func (c Composition) WithDependencies() Composition {
	out := c
	for {
		next := out
		for _, t := range out.Traits() {
			next = next.Union(DependenciesOf(t))
		}
		if next == out {
			return out
		}
		out = next
	}
}

// MissingDependencies returns the declared dependencies of the members that
// are not themselves members.
func (c Composition) MissingDependencies() Composition {
	var missing Composition
	for _, t := range c.Traits() {
		missing = missing.Union(DependenciesOf(t))
	}
	return Composition{bits: missing.bits &^ c.bits}
}

// IsValid reports whether every member's declared dependencies are also
// members. The empty composition is trivially valid.
func (c Composition) IsValid() bool { return c.MissingDependencies().IsEmpty() }

// Traits returns the members sorted by canonical name, matching the order
// used by ID.
func (c Composition) Traits() []Trait {
	out := make([]Trait, 0, c.Len())
	for t := Trait(0); t < traitCount; t++ {
		if c.Has(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Names returns the canonical member names sorted alphabetically.
func (c Composition) Names() []string {
	traits := c.Traits()
	out := make([]string, len(traits))
	for i, t := range traits {
		out[i] = t.String()
	}
	return out
}

// ID returns the deterministic composition key: member names sorted
// alphabetically, joined with "+". The empty composition yields "".
func (c Composition) ID() string { return strings.Join(c.Names(), "+") }

// String renders the composition for logs and errors.
func (c Composition) String() string {
	if c.IsEmpty() {
		return "Composition()"
	}
	return "Composition(" + c.ID() + ")"
}
