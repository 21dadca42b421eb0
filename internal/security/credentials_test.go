package security

import (
	"fmt"
	"sync"
	"testing"
)

func TestCredentialStore_SetGetHas(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.Set("openai", "sk-test123")

	if v, ok := store.Get("openai"); !ok || v != "sk-test123" {
		t.Fatalf("Get(openai) = %q, %v", v, ok)
	}
	if !store.Has("openai") || store.Has("gemini") {
		t.Fatal("Has() mismatch")
	}

	store.Set("openai", "sk-other")
	if v, _ := store.Get("openai"); v != "sk-other" || store.Len() != 1 {
		t.Fatalf("overwrite failed: %q len=%d", v, store.Len())
	}

	store.Delete("openai")
	if store.Has("openai") {
		t.Fatal("Delete() left the credential")
	}
}

func TestCredentialStore_SetIfPresent(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	if store.SetIfPresent("gemini", "") {
		t.Fatal("empty value must not be stored")
	}
	if !store.SetIfPresent("gemini", "AIza-key") || !store.Has("gemini") {
		t.Fatal("non-empty value should be stored")
	}
}

func TestCredentialStore_NamesAndValues(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.Set("openai", "a")
	store.Set("gemini", "b")
	store.Set("ollama", "")

	names := store.Names()
	if len(names) != 3 || names[0] != "gemini" || names[2] != "openai" {
		t.Fatalf("Names() = %v, want sorted", names)
	}
	if vals := store.Values(); len(vals) != 2 {
		t.Fatalf("Values() = %v, want the two non-empty values", vals)
	}
}

func TestCredentialStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Set(fmt.Sprintf("p%d", i%5), "v")
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Get("p0")
			_ = store.Names()
		}()
	}
	wg.Wait()

	if store.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", store.Len())
	}
}
