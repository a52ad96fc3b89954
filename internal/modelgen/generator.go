// Package modelgen provides the standard descriptor builder the composer
// uses: it normalizes a union spec and freezes it into an immutable
// modelapi.Type.
package modelgen

import (
	"fmt"

	"traitcore/pkg/modelapi"
)

var knownKinds = map[modelapi.FieldKind]bool{
	modelapi.KindString:     true,
	modelapi.KindInt:        true,
	modelapi.KindFloat:      true,
	modelapi.KindBool:       true,
	modelapi.KindTime:       true,
	modelapi.KindStringList: true,
	modelapi.KindMap:        true,
	modelapi.KindAny:        true,
}

// Generator is the standard modelapi.Builder. Stateless and safe for
// concurrent use.
type Generator struct{}

// New returns the standard builder.
func New() *Generator { return &Generator{} }

// Build validates the spec's field kinds, defaulting empty kinds to
// KindAny, and freezes the descriptor.
func (g *Generator) Build(spec modelapi.Spec) (*modelapi.Type, error) {
	fields := make([]modelapi.Field, len(spec.Fields))
	copy(fields, spec.Fields)
	for i, f := range fields {
		if f.Kind == "" {
			fields[i].Kind = modelapi.KindAny
			continue
		}
		if !knownKinds[f.Kind] {
			return nil, fmt.Errorf("modelgen: build %s: field %s: unknown kind %q", spec.Name, f.Name, f.Kind)
		}
	}
	spec.Fields = fields
	typ, err := modelapi.NewType(spec)
	if err != nil {
		return nil, fmt.Errorf("modelgen: %w", err)
	}
	return typ, nil
}
