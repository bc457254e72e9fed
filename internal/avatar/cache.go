package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/tbourn/k-kitchen/internal/domain"
)

const (
	DefaultCapacity  = 50
	DefaultKeyPrefix = "k-kitchen-avatar-"
	DefaultIndexKey  = "k-kitchen-avatar-lru-index"

	// FallbackImage is a 1x1 transparent GIF, base64 encoded.
	FallbackImage = "R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"
)

// Generator produces an avatar image (base64 payload) for a persona.
type Generator interface {
	GenerateAvatar(ctx context.Context, author domain.Author) (string, error)
}

// Options tunes a Cache. Zero values select the defaults above.
type Options struct {
	Capacity  int
	KeyPrefix string
	IndexKey  string
	Fallback  string
}

// Cache returns a stable avatar per persona, generating it at most once per
// durable-cache lifetime.
//
// The durable tier holds at most Capacity entries. The LRU index (a JSON
// array of author ids, oldest first) lives under IndexKey in the same store;
// every durable entry appears in it exactly once. Index read-modify-write
// cycles are serialized by the Cache, and concurrent lookups for the same
// persona share one generation.
type Cache struct {
	store Store
	gen   Generator
	opts  Options

	memMu sync.RWMutex
	mem   map[string]string

	idxMu sync.Mutex
	group singleflight.Group
}

// New builds a Cache over store using gen for misses.
func New(store Store, gen Generator, opts Options) *Cache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.IndexKey == "" {
		opts.IndexKey = DefaultIndexKey
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackImage
	}
	return &Cache{store: store, gen: gen, opts: opts, mem: make(map[string]string)}
}

// Get returns the avatar for author. It never fails: generation errors
// degrade to the fallback image, which is remembered in memory for the rest
// of the process but never written to the durable tier. A lookup whose
// context ends during generation also gets the fallback, without caching it.
func (c *Cache) Get(ctx context.Context, author domain.Author) string {
	if v, ok := c.memGet(author.ID); ok {
		lookups.WithLabelValues(tierMemory).Inc()
		return v
	}

	tr := otel.Tracer("avatar/Cache")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("author.id", author.ID)),
	)
	defer span.End()

	v, _, _ := c.group.Do(author.ID, func() (any, error) {
		return c.load(ctx, author), nil
	})
	return v.(string)
}

func (c *Cache) load(ctx context.Context, author domain.Author) string {
	if v, ok := c.memGet(author.ID); ok {
		lookups.WithLabelValues(tierMemory).Inc()
		return v
	}

	v, err := c.store.Get(ctx, c.key(author.ID))
	switch {
	case err == nil:
		c.memSet(author.ID, v)
		if err := c.record(ctx, author.ID, ""); err != nil {
			log.Warn().Err(err).Str("author_id", author.ID).Msg("avatar lru touch failed")
		}
		lookups.WithLabelValues(tierDurable).Inc()
		return v
	case !errors.Is(err, ErrNotFound):
		log.Warn().Err(err).Str("author_id", author.ID).Msg("avatar store read failed; regenerating")
	}

	img, err := c.gen.GenerateAvatar(ctx, author)
	if err == nil && img == "" {
		err = errors.New("empty avatar payload")
	}
	if err != nil && ctx.Err() != nil {
		// The caller went away; the next lookup retries generation.
		log.Debug().Err(err).Str("author_id", author.ID).Msg("avatar generation cancelled")
		lookups.WithLabelValues(tierFallback).Inc()
		return c.opts.Fallback
	}
	if err != nil {
		log.Error().Err(err).Str("author_id", author.ID).Msg("avatar generation failed; using fallback")
		c.memSet(author.ID, c.opts.Fallback)
		lookups.WithLabelValues(tierFallback).Inc()
		return c.opts.Fallback
	}

	if err := c.record(ctx, author.ID, img); err != nil {
		log.Warn().Err(err).Str("author_id", author.ID).Msg("avatar persist failed")
	}
	c.memSet(author.ID, img)
	lookups.WithLabelValues(tierGenerated).Inc()
	return img
}

// record moves id to the most-recent end of the LRU index, evicting from the
// oldest end while the index is full and id is not in it. A non-empty value
// is written to the durable tier first.
func (c *Cache) record(ctx context.Context, id, value string) error {
	c.idxMu.Lock()
	defer c.idxMu.Unlock()

	idx := c.readIndex(ctx)
	if pos := slices.Index(idx, id); pos >= 0 {
		idx = slices.Delete(idx, pos, pos+1)
	} else {
		for len(idx) >= c.opts.Capacity {
			victim := idx[0]
			if err := c.store.Delete(ctx, c.key(victim)); err != nil {
				return err
			}
			idx = idx[1:]
			evictions.Inc()
			log.Debug().Str("author_id", victim).Msg("avatar evicted")
		}
	}

	if value != "" {
		if err := c.store.Set(ctx, c.key(id), value); err != nil {
			return err
		}
	}
	return c.writeIndex(ctx, append(idx, id))
}

// Index returns the persisted LRU order, oldest first.
func (c *Cache) Index(ctx context.Context) []string {
	c.idxMu.Lock()
	defer c.idxMu.Unlock()
	return c.readIndex(ctx)
}

// Prune reconciles the durable tier with the index: entries missing from the
// index are deleted, index ids without an entry are dropped, and the index is
// trimmed to capacity from the oldest end. It returns how many durable
// entries were removed.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	c.idxMu.Lock()
	defer c.idxMu.Unlock()

	keys, err := c.store.Keys(ctx, c.opts.KeyPrefix)
	if err != nil {
		return 0, err
	}
	stored := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == c.opts.IndexKey {
			continue
		}
		stored[strings.TrimPrefix(k, c.opts.KeyPrefix)] = true
	}

	var idx []string
	keep := make(map[string]bool)
	for _, id := range c.readIndex(ctx) {
		if stored[id] && !keep[id] {
			idx = append(idx, id)
			keep[id] = true
		}
	}

	removed := 0
	for len(idx) > c.opts.Capacity {
		victim := idx[0]
		if err := c.store.Delete(ctx, c.key(victim)); err != nil {
			return removed, err
		}
		delete(keep, victim)
		delete(stored, victim)
		idx = idx[1:]
		removed++
	}
	for id := range stored {
		if keep[id] {
			continue
		}
		if err := c.store.Delete(ctx, c.key(id)); err != nil {
			return removed, err
		}
		removed++
	}
	if idx == nil {
		idx = []string{}
	}
	return removed, c.writeIndex(ctx, idx)
}

func (c *Cache) readIndex(ctx context.Context) []string {
	raw, err := c.store.Get(ctx, c.opts.IndexKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Msg("avatar lru index unreadable; starting empty")
		}
		return []string{}
	}
	var idx []string
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		log.Warn().Err(err).Msg("avatar lru index corrupt; resetting")
		return []string{}
	}
	return idx
}

func (c *Cache) writeIndex(ctx context.Context, idx []string) error {
	b, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.opts.IndexKey, string(b))
}

func (c *Cache) key(id string) string { return c.opts.KeyPrefix + id }

func (c *Cache) memGet(id string) (string, bool) {
	c.memMu.RLock()
	defer c.memMu.RUnlock()
	v, ok := c.mem[id]
	return v, ok
}

func (c *Cache) memSet(id, v string) {
	c.memMu.Lock()
	defer c.memMu.Unlock()
	c.mem[id] = v
}
