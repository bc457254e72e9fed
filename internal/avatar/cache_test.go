package avatar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbourn/k-kitchen/internal/domain"
)

type fakeGen struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (g *fakeGen) GenerateAvatar(ctx context.Context, a domain.Author) (string, error) {
	g.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.fail[a.ID] {
		return "", errors.New("model unavailable")
	}
	return "img-" + a.ID, nil
}

func author(id string) domain.Author { return domain.Author{ID: id, Name: "Chef " + id} }

func TestGet_SecondCallHitsMemory(t *testing.T) {
	store := NewMemoryStore()
	gen := &fakeGen{}
	c := New(store, gen, Options{})
	ctx := context.Background()

	if got := c.Get(ctx, author("a1")); got != "img-a1" {
		t.Fatalf("first Get = %q", got)
	}
	if got := c.Get(ctx, author("a1")); got != "img-a1" {
		t.Fatalf("second Get = %q", got)
	}
	if n := gen.calls.Load(); n != 1 {
		t.Fatalf("generator called %d times; want 1", n)
	}
	if v, err := store.Get(ctx, DefaultKeyPrefix+"a1"); err != nil || v != "img-a1" {
		t.Fatalf("durable entry = %q, %v", v, err)
	}
	if diff := cmp.Diff([]string{"a1"}, c.Index(ctx)); diff != "" {
		t.Fatalf("index (-want +got):\n%s", diff)
	}
}

func TestGet_DurableHitAcrossProcesses(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	first := New(store, &fakeGen{}, Options{})
	first.Get(ctx, author("a1"))
	first.Get(ctx, author("a2"))

	gen := &fakeGen{}
	second := New(store, gen, Options{})
	if got := second.Get(ctx, author("a1")); got != "img-a1" {
		t.Fatalf("Get = %q", got)
	}
	if gen.calls.Load() != 0 {
		t.Fatalf("durable hit should not generate")
	}
	if diff := cmp.Diff([]string{"a2", "a1"}, second.Index(ctx)); diff != "" {
		t.Fatalf("durable hit must move id to the end (-want +got):\n%s", diff)
	}
}

func TestGet_EvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	c := New(store, &fakeGen{}, Options{})
	for i := 0; i < DefaultCapacity; i++ {
		c.Get(ctx, author(fmt.Sprintf("a%02d", i)))
	}
	if store.Len() != DefaultCapacity+1 {
		t.Fatalf("store holds %d keys; want %d entries plus index", store.Len(), DefaultCapacity)
	}

	// A fresh process reads a00 from the durable tier, making a01 the oldest.
	c2 := New(store, &fakeGen{}, Options{})
	c2.Get(ctx, author("a00"))
	c2.Get(ctx, author("a50"))

	idx := c2.Index(ctx)
	if len(idx) != DefaultCapacity {
		t.Fatalf("index len = %d", len(idx))
	}
	if slices.Contains(idx, "a01") {
		t.Fatalf("evicted id still indexed")
	}
	if _, err := store.Get(ctx, DefaultKeyPrefix+"a01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("evicted entry still stored: %v", err)
	}
	if _, err := store.Get(ctx, DefaultKeyPrefix+"a00"); err != nil {
		t.Fatalf("recently read entry was evicted: %v", err)
	}
	if idx[len(idx)-1] != "a50" || idx[len(idx)-2] != "a00" {
		t.Fatalf("unexpected index tail: %v", idx[len(idx)-2:])
	}
	if store.Len() != DefaultCapacity+1 {
		t.Fatalf("store holds %d keys after eviction", store.Len())
	}
}

func TestGet_FailureUsesFallbackWithoutPersisting(t *testing.T) {
	store := NewMemoryStore()
	gen := &fakeGen{fail: map[string]bool{"a1": true}}
	c := New(store, gen, Options{})
	ctx := context.Background()

	if got := c.Get(ctx, author("a1")); got != FallbackImage {
		t.Fatalf("Get = %q; want fallback", got)
	}
	if got := c.Get(ctx, author("a1")); got != FallbackImage {
		t.Fatalf("second Get = %q; want fallback", got)
	}
	if n := gen.calls.Load(); n != 1 {
		t.Fatalf("generator called %d times; want 1", n)
	}
	if _, err := store.Get(ctx, DefaultKeyPrefix+"a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("fallback must not be persisted: %v", err)
	}
	if len(c.Index(ctx)) != 0 {
		t.Fatalf("fallback must not be indexed")
	}

	// A new process retries generation.
	gen2 := &fakeGen{}
	if got := New(store, gen2, Options{}).Get(ctx, author("a1")); got != "img-a1" || gen2.calls.Load() != 1 {
		t.Fatalf("new process did not regenerate: %q", got)
	}
}

func TestGet_CancelledLookupDoesNotPinFallback(t *testing.T) {
	store := NewMemoryStore()
	gen := &fakeGen{}
	c := New(store, gen, Options{})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if got := c.Get(cancelled, author("mina")); got != FallbackImage {
		t.Fatalf("cancelled Get = %q; want fallback", got)
	}
	if len(c.Index(context.Background())) != 0 {
		t.Fatalf("cancelled lookup must not be indexed")
	}

	if got := c.Get(context.Background(), author("mina")); got != "img-mina" {
		t.Fatalf("Get after cancel = %q; want generated avatar", got)
	}
	if n := gen.calls.Load(); n != 2 {
		t.Fatalf("generator called %d times; want 2", n)
	}
}

func TestGet_CorruptIndexIsReset(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Set(ctx, DefaultIndexKey, "{not json")

	c := New(store, &fakeGen{}, Options{})
	if got := c.Get(ctx, author("a1")); got != "img-a1" {
		t.Fatalf("Get = %q", got)
	}
	if diff := cmp.Diff([]string{"a1"}, c.Index(ctx)); diff != "" {
		t.Fatalf("index (-want +got):\n%s", diff)
	}
}

func TestGet_ConcurrentCallsGenerateOnce(t *testing.T) {
	gen := &fakeGen{}
	c := New(NewMemoryStore(), gen, Options{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := c.Get(context.Background(), author("a1")); got != "img-a1" {
				t.Errorf("Get = %q", got)
			}
		}()
	}
	wg.Wait()
	if n := gen.calls.Load(); n != 1 {
		t.Fatalf("generator called %d times; want 1", n)
	}
}

func TestPrune(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Set(ctx, DefaultKeyPrefix+"a1", "img-a1")
	_ = store.Set(ctx, DefaultKeyPrefix+"a2", "img-a2")
	_ = store.Set(ctx, DefaultKeyPrefix+"a3", "img-a3")
	_ = store.Set(ctx, DefaultKeyPrefix+"orphan", "img-o")
	_ = store.Set(ctx, "unrelated", "x")
	_ = store.Set(ctx, DefaultIndexKey, `["a1","ghost","a2","a3","a2"]`)

	c := New(store, &fakeGen{}, Options{Capacity: 2})
	removed, err := c.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	// a1 trimmed for capacity, orphan deleted.
	if removed != 2 {
		t.Fatalf("removed = %d; want 2", removed)
	}
	if diff := cmp.Diff([]string{"a2", "a3"}, c.Index(ctx)); diff != "" {
		t.Fatalf("index (-want +got):\n%s", diff)
	}
	keys, _ := store.Keys(ctx, DefaultKeyPrefix)
	want := []string{DefaultKeyPrefix + "a2", DefaultKeyPrefix + "a3", DefaultIndexKey}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
	if _, err := store.Get(ctx, "unrelated"); err != nil {
		t.Fatalf("Prune touched a key outside the prefix")
	}
}
