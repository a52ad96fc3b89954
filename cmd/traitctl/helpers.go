package main

import (
	"encoding/json"
	"fmt"
	"io"

	catalogdoc "traitcore/docs/catalog"
	"traitcore/pkg/trait"
)

// documentTrait renders a compiled definition in canonical document form.
// Slices come back non-nil so JSON output uses [] rather than null.
func documentTrait(def trait.Definition) catalogdoc.TraitDoc {
	deps := make([]string, len(def.Dependencies))
	for i, dep := range def.Dependencies {
		deps[i] = dep.Key()
	}
	required := make([]string, len(def.Required))
	copy(required, def.Required)
	attrs := make([]catalogdoc.Attribute, len(def.Attributes))
	for i, attr := range def.Attributes {
		attrs[i] = catalogdoc.Attribute{Name: attr.Name, Kind: string(attr.Kind)}
	}
	operations := make([]string, len(def.Operations))
	copy(operations, def.Operations)
	return catalogdoc.TraitDoc{
		Name:         def.Trait.String(),
		Key:          def.Trait.Key(),
		Version:      def.Version,
		Description:  def.Description,
		Owner:        def.Owner,
		Dependencies: deps,
		Required:     required,
		Attributes:   attrs,
		Operations:   operations,
	}
}

func parseTraits(args []string) ([]trait.Trait, error) {
	out := make([]trait.Trait, 0, len(args))
	for _, arg := range args {
		t, err := trait.ParseTrait(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return &systemError{err: err}
	}
	return nil
}
