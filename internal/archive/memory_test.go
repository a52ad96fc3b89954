package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"
)

func TestMemory_Basic(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	meta := map[string]string{"m": "1"}
	info, err := store.Put(ctx, "k1", bytes.NewReader([]byte("data")), PutOptions{ContentType: "text/plain", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "k1" || info.Size != 4 {
		t.Fatalf("unexpected info %#v", info)
	}
	// duplicate
	if _, err := store.Put(ctx, "k1", bytes.NewReader([]byte("x")), PutOptions{}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	h, err := store.Head(ctx, "k1")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	// mutating the returned metadata must not leak into the store
	h.Metadata["m"] = "changed"
	h2, _ := store.Head(ctx, "k1")
	if h2.Metadata["m"] != "1" {
		t.Fatalf("metadata mutation leaked into store")
	}
	g, rc, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "data" || g.Size != 4 {
		t.Fatalf("bad payload")
	}
	list, err := store.List(ctx, "k")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if list2, err := store.List(ctx, "zzz"); err != nil || len(list2) != 0 {
		t.Fatalf("expected empty list for unmatched prefix")
	}
	ok, err := store.Delete(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("delete expected true")
	}
	ok, _ = store.Delete(ctx, "k1")
	if ok {
		t.Fatalf("second delete should be false")
	}
}

func TestMemory_ListOrder(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	for _, key := range []string{"c", "a", "b"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "")
	if err != nil || len(list) != 3 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if list[0].Key != "a" || list[1].Key != "b" || list[2].Key != "c" {
		t.Fatalf("expected sorted keys: %+v", list)
	}
}

func TestMemory_MissingHeadGet(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist from get, got %v", err)
	}
}

func TestMemory_PresignUnsupported(t *testing.T) {
	store := NewMemory()
	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
