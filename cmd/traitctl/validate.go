package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	catalogdoc "traitcore/docs/catalog"
	"traitcore/pkg/trait"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the canonical catalog document against the compiled catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := catalogdoc.Load()
			if err != nil {
				return &systemError{err: fmt.Errorf("load catalog document: %w", err)}
			}
			findings := diffDocument(doc)
			opts.logger.Debug("catalog document validated", "findings", len(findings))
			w := cmd.OutOrStdout()
			if len(findings) > 0 {
				for _, finding := range findings {
					if _, err := fmt.Fprintln(w, finding); err != nil {
						return &systemError{err: err}
					}
				}
				return fmt.Errorf("catalog document drift: %d findings", len(findings))
			}
			_, err = fmt.Fprintf(w, "catalog document coherent: %d traits, version %s, fingerprint %s\n",
				len(doc.Traits), doc.Metadata.Version, catalogdoc.Fingerprint())
			if err != nil {
				return &systemError{err: err}
			}
			return nil
		},
	}
}

// diffDocument compares the canonical document against the compiled catalog
// and describes every divergence. An empty result means the two agree.
func diffDocument(doc catalogdoc.Document) []string {
	var findings []string
	byKey := make(map[string]catalogdoc.TraitDoc, len(doc.Traits))
	for _, td := range doc.Traits {
		byKey[td.Key] = td
	}
	if len(doc.Traits) != len(trait.Traits()) {
		findings = append(findings, fmt.Sprintf("document lists %d traits, catalog compiles %d", len(doc.Traits), len(trait.Traits())))
	}
	for _, t := range trait.Traits() {
		def, err := trait.DefinitionFor(t)
		if err != nil {
			findings = append(findings, fmt.Sprintf("%s: %v", t.Key(), err))
			continue
		}
		got, ok := byKey[t.Key()]
		if !ok {
			findings = append(findings, fmt.Sprintf("%s: missing from document", t.Key()))
			continue
		}
		delete(byKey, t.Key())
		want := documentTrait(def)
		findings = append(findings, diffTrait(got, want)...)
	}
	for key := range byKey {
		findings = append(findings, fmt.Sprintf("%s: documented but not compiled", key))
	}
	slices.Sort(findings)
	return findings
}

func diffTrait(got, want catalogdoc.TraitDoc) []string {
	var findings []string
	mismatch := func(field string, gotVal, wantVal any) {
		findings = append(findings, fmt.Sprintf("%s: %s is %v, catalog compiles %v", want.Key, field, gotVal, wantVal))
	}
	if got.Name != want.Name {
		mismatch("name", got.Name, want.Name)
	}
	if got.Version != want.Version {
		mismatch("version", got.Version, want.Version)
	}
	if got.Description != want.Description {
		mismatch("description", got.Description, want.Description)
	}
	if got.Owner != want.Owner {
		mismatch("owner", got.Owner, want.Owner)
	}
	if !slices.Equal(got.Dependencies, want.Dependencies) {
		mismatch("dependencies", got.Dependencies, want.Dependencies)
	}
	if !slices.Equal(got.Required, want.Required) {
		mismatch("required", got.Required, want.Required)
	}
	if !slices.Equal(got.Attributes, want.Attributes) {
		mismatch("attributes", got.Attributes, want.Attributes)
	}
	if !slices.Equal(got.Operations, want.Operations) {
		mismatch("operations", got.Operations, want.Operations)
	}
	return findings
}
