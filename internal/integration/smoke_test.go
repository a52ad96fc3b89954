package integration

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"traitcore/internal/adapters/sqliterec"
	"traitcore/internal/archive"
	"traitcore/internal/modelgen"
	"traitcore/internal/observability"
	"traitcore/pkg/adapt"
	"traitcore/pkg/trait"
)

// auditEntry satisfies the structural contracts of IDENTIFIABLE, TEMPORAL and
// AUDITABLE so the smoke test can declare one real implementation.
type auditEntry struct {
	ID        string
	IDType    string
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// TestIntegrationSmoke exercises a minimal declare, compose, decode and
// persist cycle plus one write/read/delete round trip per in-process archive
// driver. It intentionally keeps scope tiny so it can act as a fast CI
// health check.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	reg := trait.NewRegistry()
	composer := trait.NewComposer(reg, modelgen.New())
	exporter := observability.NewExpvarExporter("", reg, composer)

	if err := trait.DeclareOn(reg, auditEntry{}, trait.Auditable, trait.Identifiable, trait.Temporal); err != nil {
		t.Fatalf("declare audit entry: %v", err)
	}
	if !reg.HasTrait(auditEntry{}, trait.Auditable, trait.ModeRegistered) {
		t.Fatalf("expected declared traits in the ledger")
	}

	comp, err := composer.Compose(trait.Auditable, trait.Identifiable, trait.Temporal)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !comp.IsValid() {
		t.Fatalf("expected dependency-complete composition, missing %s", comp.MissingDependencies())
	}
	model, err := composer.GenerateModel(comp)
	if err != nil {
		t.Fatalf("generate model: %v", err)
	}
	for _, name := range []string{"id", "id_type", "created_at", "updated_at", "created_by", "updated_by", "version", "audit_log"} {
		if !model.HasField(name) {
			t.Fatalf("expected generated attribute %s on %s", name, model.Name())
		}
	}

	codecs := adapt.NewRegistry()
	if err := codecs.Register(adapt.JSONAdapter{}); err != nil {
		t.Fatalf("register json adapter: %v", err)
	}
	src := []byte(`[{"created_by":"ada","updated_by":"ada","created_at":"2026-03-01T10:00:00Z","updated_at":"2026-03-01T10:00:00Z","version":1,"audit_log":["created"]}]`)
	records, err := codecs.DecodeVia(ctx, "json", src, model)
	if err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	id, _ := records[0]["id"].(string)
	if id == "" || records[0]["id_type"] != "uuid" {
		t.Fatalf("expected filled identity attributes, got %#v", records[0])
	}

	store, err := sqliterec.Open(filepath.Join(t.TempDir(), "smoke.db"))
	if err != nil {
		t.Fatalf("open record store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.EnsureModel(ctx, model); err != nil {
		t.Fatalf("ensure model: %v", err)
	}
	if err := store.Upsert(ctx, model, records); err != nil {
		t.Fatalf("upsert records: %v", err)
	}
	got, err := store.Select(ctx, model)
	if err != nil {
		t.Fatalf("select records: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != id {
		t.Fatalf("expected stored record %s back, got %#v", id, got)
	}
	if got[0]["created_by"] != "ada" || got[0]["version"] != int64(1) {
		t.Fatalf("unexpected stored attributes %#v", got[0])
	}

	// Validate the exporters observed the ledger and cache activity.
	if _, err := composer.GenerateModel(comp); err != nil {
		t.Fatalf("regenerate model: %v", err)
	}
	snap := exporter.Snapshot()
	if snap.Registrations != 3 || snap.RegisteredTraits != 3 || snap.ActiveImplementations != 1 {
		t.Fatalf("unexpected registry snapshot %+v", snap)
	}
	if snap.CacheHits == 0 || snap.CacheMisses == 0 {
		t.Fatalf("expected descriptor cache activity, got %+v", snap)
	}
	prom := prometheus.NewPedanticRegistry()
	if err := prom.Register(observability.NewCollector(reg, composer)); err != nil {
		t.Fatalf("register collector: %v", err)
	}
	families, err := prom.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if len(families) != 11 {
		t.Fatalf("expected 11 metric families, got %d", len(families))
	}

	payload, err := codecs.EncodeVia(ctx, "json", records, model)
	if err != nil {
		t.Fatalf("encode archive payload: %v", err)
	}

	archiveVariants := []struct {
		name string
		open func(t *testing.T) archive.Store
	}{
		{
			name: "memory-archive",
			open: func(_ *testing.T) archive.Store { return archive.NewMemory() },
		},
		{
			name: "filesystem-archive",
			open: func(t *testing.T) archive.Store {
				fs, err := archive.NewFilesystem(t.TempDir())
				if err != nil {
					t.Fatalf("new filesystem archive: %v", err)
				}
				return fs
			},
		},
	}

	for _, av := range archiveVariants {
		t.Run(av.name, func(t *testing.T) {
			as := av.open(t)
			key := "smoke/" + model.Name() + ".json"
			info, err := as.Put(ctx, key, bytes.NewReader(payload), archive.PutOptions{ContentType: "application/json"})
			if err != nil {
				t.Fatalf("archive put: %v", err)
			}
			if info.Key != key || info.Size != int64(len(payload)) {
				t.Fatalf("unexpected object info %+v", info)
			}
			_, rc, err := as.Get(ctx, key)
			if err != nil {
				t.Fatalf("archive get: %v", err)
			}
			stored, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				t.Fatalf("read payload: %v", err)
			}
			if !bytes.Equal(stored, payload) {
				t.Fatalf("payload mismatch got=%q want=%q", stored, payload)
			}
			listed, err := as.List(ctx, "smoke/")
			if err != nil {
				t.Fatalf("archive list: %v", err)
			}
			if len(listed) != 1 || listed[0].Key != key {
				t.Fatalf("expected one listed object for %s, got %+v", key, listed)
			}
			if ok, err := as.Delete(ctx, key); err != nil || !ok {
				t.Fatalf("archive delete: %v ok=%v", err, ok)
			}
		})
	}

	// Sanity: ensure no environment leakage (none set here, but guard for
	// future edits).
	if os.Getenv("TRAITCORE_ARCHIVE_DRIVER") != "" || os.Getenv("TRAITCORE_ARCHIVE_FS_ROOT") != "" {
		t.Fatalf("expected no test-induced env leakage")
	}
}
