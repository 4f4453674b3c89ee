package storage

import (
	"context"
	"encoding/json"
	"testing"
)

func TestSqlitePutAndLoad(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "invoice1.json", json.RawMessage(`{"total": 100}`)); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := store.Put(ctx, "invoice2.json", json.RawMessage(`{"total": 250}`)); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	docs, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents, got %d", len(docs))
	}
	if string(docs["invoice1.json"]) != `{"total": 100}` {
		t.Errorf("unexpected content: %s", docs["invoice1.json"])
	}
}

func TestSqlitePutReplaces(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "doc", json.RawMessage(`{"v": 1}`)); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := store.Put(ctx, "doc", json.RawMessage(`{"v": 2}`)); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	docs, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 1 || string(docs["doc"]) != `{"v": 2}` {
		t.Errorf("expected replaced document, got %v", docs)
	}
}

func TestSqlitePutRejectsInvalidJSON(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.Put(context.Background(), "bad", json.RawMessage(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSqliteDelete(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "doc", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := store.Delete(ctx, "doc"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("deleting a missing document must not fail: %v", err)
	}

	docs, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected empty store, got %d documents", len(docs))
	}
}

func TestMarshalDatasetStable(t *testing.T) {
	docs := map[string]json.RawMessage{
		"b.json": json.RawMessage(`{"v": 2}`),
		"a.json": json.RawMessage(`{"v": 1}`),
	}
	first, err := MarshalDataset(docs)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	second, err := MarshalDataset(docs)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if first != second {
		t.Error("expected stable rendering across calls")
	}
}
