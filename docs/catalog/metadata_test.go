package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"traitcore/pkg/trait"
)

func TestDocumentMatchesCompiledCatalog(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	traits := trait.Traits()
	if len(doc.Traits) != len(traits) {
		t.Fatalf("document has %d traits, compiled catalog has %d", len(doc.Traits), len(traits))
	}
	byKey := make(map[string]TraitDoc, len(doc.Traits))
	for _, td := range doc.Traits {
		byKey[td.Key] = td
	}
	for _, tr := range traits {
		def, err := trait.DefinitionFor(tr)
		if err != nil {
			t.Fatalf("DefinitionFor(%s): %v", tr, err)
		}
		td, ok := byKey[tr.Key()]
		if !ok {
			t.Fatalf("document missing trait %s", tr.Key())
		}
		if td.Name != tr.String() {
			t.Fatalf("%s: document name %q", tr, td.Name)
		}
		if td.Version != def.Version {
			t.Fatalf("%s: document version %q, compiled %q", tr, td.Version, def.Version)
		}
		if td.Description != def.Description {
			t.Fatalf("%s: document description %q, compiled %q", tr, td.Description, def.Description)
		}
		if td.Owner != def.Owner {
			t.Fatalf("%s: document owner %q, compiled %q", tr, td.Owner, def.Owner)
		}
		if len(td.Dependencies) != len(def.Dependencies) {
			t.Fatalf("%s: document has %d dependencies, compiled %d", tr, len(td.Dependencies), len(def.Dependencies))
		}
		for i, dep := range def.Dependencies {
			if td.Dependencies[i] != dep.Key() {
				t.Fatalf("%s: dependency %d is %q, compiled %q", tr, i, td.Dependencies[i], dep.Key())
			}
		}
		if len(td.Required) != len(def.Required) {
			t.Fatalf("%s: document has %d required names, compiled %d", tr, len(td.Required), len(def.Required))
		}
		for i, name := range def.Required {
			if td.Required[i] != name {
				t.Fatalf("%s: required %d is %q, compiled %q", tr, i, td.Required[i], name)
			}
		}
		if len(td.Attributes) != len(def.Attributes) {
			t.Fatalf("%s: document has %d attributes, compiled %d", tr, len(td.Attributes), len(def.Attributes))
		}
		for i, attr := range def.Attributes {
			if td.Attributes[i].Name != attr.Name || td.Attributes[i].Kind != string(attr.Kind) {
				t.Fatalf("%s: attribute %d is %+v, compiled %s/%s", tr, i, td.Attributes[i], attr.Name, attr.Kind)
			}
		}
		if len(td.Operations) != len(def.Operations) {
			t.Fatalf("%s: document has %d operations, compiled %d", tr, len(td.Operations), len(def.Operations))
		}
		for i, op := range def.Operations {
			if td.Operations[i] != op {
				t.Fatalf("%s: operation %d is %q, compiled %q", tr, i, td.Operations[i], op)
			}
		}
	}
}

func TestDocumentKeysParse(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, td := range doc.Traits {
		tr, err := trait.ParseTrait(td.Key)
		if err != nil {
			t.Fatalf("ParseTrait(%q): %v", td.Key, err)
		}
		if tr.String() != td.Name {
			t.Fatalf("key %q parsed to %s, document name %s", td.Key, tr, td.Name)
		}
	}
}

func TestVersionMatchesMetadata(t *testing.T) {
	ver, err := Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if ver == "" {
		t.Fatal("expected non-empty catalog version")
	}
	doc, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ver != doc.Metadata.Version {
		t.Fatalf("version mismatch: got %q want %q", ver, doc.Metadata.Version)
	}
	if doc.Metadata.Source == "" || doc.Metadata.Status == "" {
		t.Fatalf("expected source and status, got %+v", doc.Metadata)
	}
}

func TestFingerprintStable(t *testing.T) {
	sum := sha256.Sum256(Raw())
	want := hex.EncodeToString(sum[:])
	if got := Fingerprint(); got != want {
		t.Fatalf("fingerprint mismatch: got %q want %q", got, want)
	}
	if Fingerprint() != want {
		t.Fatal("fingerprint not stable across calls")
	}
}

func TestLoadIsolatesCallers(t *testing.T) {
	first, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	first.Traits[0].Operations[0] = "mutated"
	first.Traits[0].Name = "MUTATED"
	second, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if second.Traits[0].Name == "MUTATED" || second.Traits[0].Operations[0] == "mutated" {
		t.Fatal("mutation leaked into cached document")
	}
}
