package archive

import (
	"context"
	"os"
	"testing"
)

func TestOpen_MemoryDriver(t *testing.T) {
	t.Setenv("TRAITCORE_ARCHIVE_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory driver")
	}
}

func TestOpen_DefaultFilesystem(t *testing.T) {
	ctx := context.Background()
	_ = os.Unsetenv("TRAITCORE_ARCHIVE_DRIVER")
	t.Setenv("TRAITCORE_ARCHIVE_FS_ROOT", t.TempDir())
	store, err := Open(ctx)
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("expected filesystem driver: %v %v", store, err)
	}
	if _, err := store.Head(ctx, "does-not-exist"); err == nil {
		t.Fatalf("expected head error")
	}
}

func TestOpen_InvalidDriver(t *testing.T) {
	t.Setenv("TRAITCORE_ARCHIVE_DRIVER", "invalid")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error for invalid driver")
	}
}

func TestOpen_S3RequiresBucket(t *testing.T) {
	t.Setenv("TRAITCORE_ARCHIVE_DRIVER", "s3")
	_ = os.Unsetenv("TRAITCORE_ARCHIVE_S3_BUCKET")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error without bucket")
	}
}
