package modelapi

import "testing"

func TestNewTypeValidatesSpec(t *testing.T) {
	if _, err := NewType(Spec{}); err == nil {
		t.Fatalf("expected error for missing type name")
	}
	if _, err := NewType(Spec{Name: "Widget", Fields: []Field{{Name: ""}}}); err == nil {
		t.Fatalf("expected error for unnamed field")
	}
	if _, err := NewType(Spec{Name: "Widget", Fields: []Field{{Name: "id"}, {Name: "id"}}}); err == nil {
		t.Fatalf("expected error for duplicate field")
	}
	if _, err := NewType(Spec{Name: "Widget", Operations: []Operation{{Name: "finalize"}, {Name: "finalize"}}}); err == nil {
		t.Fatalf("expected error for duplicate operation")
	}
}

func TestTypeAccessorsAreDefensive(t *testing.T) {
	spec := Spec{
		Name:          "Widget",
		CompositionID: "IDENTIFIABLE+TEMPORAL",
		Traits:        []string{"TEMPORAL", "IDENTIFIABLE"},
		Fields: []Field{
			{Name: "updated_at", Kind: KindTime, Required: true},
			{Name: "id", Kind: KindString, Required: true},
			{Name: "created_at", Kind: KindTime, Required: true},
		},
		Operations: []Operation{{Name: "same_identity"}, {Name: "age_seconds"}},
	}
	typ, err := NewType(spec)
	if err != nil {
		t.Fatalf("NewType: %v", err)
	}
	if typ.Serial() == "" {
		t.Fatalf("expected non-empty serial")
	}
	if typ.Name() != "Widget" || typ.CompositionID() != "IDENTIFIABLE+TEMPORAL" {
		t.Fatalf("unexpected identity: %s %s", typ.Name(), typ.CompositionID())
	}

	traits := typ.Traits()
	if len(traits) != 2 || traits[0] != "IDENTIFIABLE" || traits[1] != "TEMPORAL" {
		t.Fatalf("expected sorted trait markers, got %v", traits)
	}
	traits[0] = "MUTATED"
	if typ.Traits()[0] != "IDENTIFIABLE" {
		t.Fatalf("trait markers should be defensively copied")
	}
	if !typ.HasTraitName("TEMPORAL") || typ.HasTraitName("HASHABLE") {
		t.Fatalf("unexpected trait marker membership")
	}

	fields := typ.Fields()
	if len(fields) != 3 || fields[0].Name != "created_at" || fields[2].Name != "updated_at" {
		t.Fatalf("expected name-sorted fields, got %v", fields)
	}
	fields[0].Name = "mutated"
	if typ.Fields()[0].Name != "created_at" {
		t.Fatalf("fields should be defensively copied")
	}

	ops := typ.Operations()
	if len(ops) != 2 || ops[0].Name != "age_seconds" {
		t.Fatalf("expected name-sorted operations, got %v", ops)
	}

	if !typ.HasField("id") || typ.HasField("missing") {
		t.Fatalf("unexpected field membership")
	}
	f, ok := typ.Field("id")
	if !ok || f.Kind != KindString || !f.Required {
		t.Fatalf("unexpected field lookup result: %+v", f)
	}
	if !typ.HasOperation("same_identity") || typ.HasOperation("finalize") {
		t.Fatalf("unexpected operation membership")
	}
}

func TestTypeSerialsAreDistinct(t *testing.T) {
	spec := Spec{Name: "Widget"}
	a, err := NewType(spec)
	if err != nil {
		t.Fatalf("NewType: %v", err)
	}
	b, err := NewType(spec)
	if err != nil {
		t.Fatalf("NewType: %v", err)
	}
	if a.Serial() == b.Serial() {
		t.Fatalf("expected distinct serials for distinct descriptor instances")
	}
}
