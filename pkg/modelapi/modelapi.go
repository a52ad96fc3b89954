// Package modelapi defines the descriptor contract between the capability
// engine and model builders. A Builder assembles an immutable Type from a
// Spec; the engine never inspects how the builder works, only the resulting
// descriptor.
package modelapi

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// FieldKind enumerates the storage-level kinds a generated model field can
// carry. Kinds are deliberately coarse; dialect mapping happens in the DDL
// layer.
type FieldKind string

const (
	KindString     FieldKind = "string"
	KindInt        FieldKind = "int"
	KindFloat      FieldKind = "float"
	KindBool       FieldKind = "bool"
	KindTime       FieldKind = "time"
	KindStringList FieldKind = "string_list"
	KindMap        FieldKind = "map"
	KindAny        FieldKind = "any"
)

// Field describes one named attribute of a generated model.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
	Doc      string
}

// Operation describes one named behavior a generated model advertises.
// Operations carry no callable body; they are contract markers consumed by
// adapters and tooling.
type Operation struct {
	Name string
	Doc  string
}

// Spec is the input contract for a Builder: the union of attributes and
// operations a composed model must expose, plus the capability markers the
// composer stamps on the result.
type Spec struct {
	Name          string
	CompositionID string
	Traits        []string
	Fields        []Field
	Operations    []Operation
}

// Type is an immutable generated model descriptor. All accessors return
// copies; two descriptors are distinct identities even when structurally
// equal (Serial disambiguates).
type Type struct {
	serial        string
	name          string
	compositionID string
	traits        []string
	fields        []Field
	ops           []Operation
	fieldIndex    map[string]int
	opIndex       map[string]int
}

// Builder assembles a descriptor from a spec. Implementations must be safe
// for concurrent use; the composer calls Build at most once per cache key.
type Builder interface {
	Build(spec Spec) (*Type, error)
}

// NewType validates and freezes a spec into a descriptor. Field and
// operation names must be unique; listings are sorted by name so output is
// deterministic regardless of spec order.
func NewType(spec Spec) (*Type, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("modelapi: type name required")
	}
	t := &Type{
		serial:        uuid.NewString(),
		name:          spec.Name,
		compositionID: spec.CompositionID,
		traits:        append([]string(nil), spec.Traits...),
		fields:        append([]Field(nil), spec.Fields...),
		ops:           append([]Operation(nil), spec.Operations...),
		fieldIndex:    make(map[string]int, len(spec.Fields)),
		opIndex:       make(map[string]int, len(spec.Operations)),
	}
	sort.Strings(t.traits)
	sort.Slice(t.fields, func(i, j int) bool { return t.fields[i].Name < t.fields[j].Name })
	sort.Slice(t.ops, func(i, j int) bool { return t.ops[i].Name < t.ops[j].Name })
	for i, f := range t.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("modelapi: type %s: field name required", spec.Name)
		}
		if _, dup := t.fieldIndex[f.Name]; dup {
			return nil, fmt.Errorf("modelapi: type %s: duplicate field %s", spec.Name, f.Name)
		}
		t.fieldIndex[f.Name] = i
	}
	for i, op := range t.ops {
		if op.Name == "" {
			return nil, fmt.Errorf("modelapi: type %s: operation name required", spec.Name)
		}
		if _, dup := t.opIndex[op.Name]; dup {
			return nil, fmt.Errorf("modelapi: type %s: duplicate operation %s", spec.Name, op.Name)
		}
		t.opIndex[op.Name] = i
	}
	return t, nil
}

// Serial returns the unique identity of this descriptor instance.
func (t *Type) Serial() string { return t.serial }

// Name returns the generated type name.
func (t *Type) Name() string { return t.name }

// CompositionID returns the deterministic key of the composition this
// descriptor was generated from; empty for hand-built descriptors.
func (t *Type) CompositionID() string { return t.compositionID }

// Traits returns the canonical capability names stamped on the descriptor,
// sorted alphabetically.
func (t *Type) Traits() []string { return append([]string(nil), t.traits...) }

// HasTraitName reports whether the descriptor carries the named capability
// marker. Callers pass the canonical upper-snake form.
func (t *Type) HasTraitName(name string) bool {
	for _, n := range t.traits {
		if n == name {
			return true
		}
	}
	return false
}

// Fields returns the descriptor's attribute table sorted by name.
func (t *Type) Fields() []Field { return append([]Field(nil), t.fields...) }

// Operations returns the descriptor's operation table sorted by name.
func (t *Type) Operations() []Operation { return append([]Operation(nil), t.ops...) }

// Field looks up one attribute by name.
func (t *Type) Field(name string) (Field, bool) {
	i, ok := t.fieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return t.fields[i], true
}

// HasField reports whether the descriptor exposes the named attribute.
func (t *Type) HasField(name string) bool {
	_, ok := t.fieldIndex[name]
	return ok
}

// HasOperation reports whether the descriptor exposes the named operation.
func (t *Type) HasOperation(name string) bool {
	_, ok := t.opIndex[name]
	return ok
}

func (t *Type) String() string {
	return fmt.Sprintf("%s(fields=%d, ops=%d)", t.name, len(t.fields), len(t.ops))
}
