package memory

import (
	"context"
	"sync"
	"testing"
)

func TestStore_SetAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Set(ctx, map[string][]byte{
		"assetSourceRegistry": []byte(`{"a":{}}`),
		"cache/easylist":      []byte("||ads.example^"),
	})
	if err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, err := store.Get(ctx, []string{"cache/easylist", "cache/missing"})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Get returned %d keys, want 1", len(got))
	}
	if string(got["cache/easylist"]) != "||ads.example^" {
		t.Errorf("Get value = %q", got["cache/easylist"])
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestStore_ValuesAreCopied(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	value := []byte("original")
	_ = store.Set(ctx, map[string][]byte{"k": value})
	value[0] = 'X'

	got, _ := store.Get(ctx, []string{"k"})
	if string(got["k"]) != "original" {
		t.Errorf("stored value changed through caller slice: %q", got["k"])
	}

	got["k"][0] = 'Y'
	again, _ := store.Get(ctx, []string{"k"})
	if string(again["k"]) != "original" {
		t.Errorf("stored value changed through returned slice: %q", again["k"])
	}
}

func TestStore_Remove(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_ = store.Set(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	if err := store.Remove(ctx, []string{"a", "never-set"}); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	got, _ := store.Get(ctx, []string{"a", "b"})
	if _, ok := got["a"]; ok {
		t.Error("removed key still present")
	}
	if string(got["b"]) != "2" {
		t.Errorf("unrelated key = %q", got["b"])
	}
}

func TestStore_ContextCancellation(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Get(ctx, []string{"a"}); err == nil {
		t.Error("Get should fail with cancelled context")
	}
	if err := store.Set(ctx, map[string][]byte{"a": nil}); err == nil {
		t.Error("Set should fail with cancelled context")
	}
	if err := store.Remove(ctx, []string{"a"}); err == nil {
		t.Error("Remove should fail with cancelled context")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.Set(ctx, map[string][]byte{"shared": []byte("v")})
				_, _ = store.Get(ctx, []string{"shared"})
			}
		}()
	}
	wg.Wait()
}
