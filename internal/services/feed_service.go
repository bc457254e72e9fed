package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/repo"
)

// IdempotencyScope namespaces generation requests in the idempotency table.
const IdempotencyScope = "generate"

// TickRunner runs one generation tick. *SchedulerService satisfies it.
type TickRunner interface {
	RunTick(
		ctx context.Context,
		getAuthors func() []domain.Author,
		onNewPost func(ctx context.Context, p *domain.Post) error,
		getRecentlyPosted func() []string,
	) error
}

// Broadcaster pushes freshly generated posts to live subscribers.
type Broadcaster interface {
	Publish(p *domain.Post)
}

// FeedService is the caller of the generation pipeline: it persists and
// broadcasts emitted posts, and serves the feed.
type FeedService struct {
	DB      *gorm.DB
	Ticks   TickRunner
	Catalog *catalog.Catalog
	// Live is optional.
	Live Broadcaster
	// Tagger tags user photos in CreateUserPost. Optional.
	Tagger PhotoTagger

	// RecentWindow is how many of the newest posts count as "recent" when
	// biasing persona selection.
	RecentWindow int
	// MaxBatch caps GenerateBatch. Zero means no cap.
	MaxBatch int
	// IdempotencyTTL is how long a generate request can be replayed.
	IdempotencyTTL time.Duration

	mu sync.Mutex
}

// GenerateBatch runs n ticks one after another. It stops at the first
// failing tick and returns the posts emitted before it together with the
// error; those posts stay persisted. Concurrent batches are serialized so
// recency always reflects the previous tick.
func (s *FeedService) GenerateBatch(ctx context.Context, n int) ([]domain.Post, error) {
	tr := otel.Tracer("services/FeedService")
	ctx, span := tr.Start(ctx, "GenerateBatch", trace.WithAttributes(attribute.Int("count", n)))
	defer span.End()

	if n < 1 || (s.MaxBatch > 0 && n > s.MaxBatch) {
		return nil, ErrInvalidCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	emitted := make([]domain.Post, 0, n)
	onNewPost := func(ctx context.Context, p *domain.Post) error {
		if err := repo.CreatePost(ctx, s.DB, p); err != nil {
			return err
		}
		emitted = append(emitted, *p)
		if s.Live != nil {
			s.Live.Publish(p)
		}
		return nil
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return emitted, err
		}
		recent := s.recentAuthors(ctx)
		err := s.Ticks.RunTick(ctx, s.Catalog.Authors, onNewPost, func() []string { return recent })
		if err != nil {
			span.RecordError(err)
			log.Error().Err(err).Int("tick", i+1).Int("kept", len(emitted)).Msg("batch generation stopped")
			return emitted, err
		}
	}
	return emitted, nil
}

// GenerateIdempotent is GenerateBatch keyed by (userID, key). A repeated key
// returns the posts of the first successful request without generating.
// replayed reports whether that happened. An empty key disables replay.
func (s *FeedService) GenerateIdempotent(ctx context.Context, userID, key string, n int) (posts []domain.Post, replayed bool, err error) {
	if key != "" {
		rec, err := repo.GetIdempotency(ctx, s.DB, userID, IdempotencyScope, key, time.Now().UTC())
		switch {
		case err == nil:
			posts, err := s.loadPosts(ctx, rec.PostIDList())
			return posts, true, err
		case !isNotFound(err):
			return nil, false, err
		}
	}

	posts, err = s.GenerateBatch(ctx, n)
	if err != nil || key == "" {
		return posts, false, err
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if _, err := repo.CreateIdempotency(ctx, s.DB, userID, IdempotencyScope, key, ids, 201, ttl); err != nil && !isDuplicate(err) {
		log.Warn().Err(err).Str("key", key).Msg("idempotency record not saved")
	}
	return posts, false, nil
}

// HasIdempotencyKey reports whether a live record exists for (userID, key).
func (s *FeedService) HasIdempotencyKey(ctx context.Context, userID, key string) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.DB, userID, IdempotencyScope, key, time.Now().UTC())
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Seed stores the catalog's curated posts when the feed is empty and
// returns how many were inserted.
func (s *FeedService) Seed(ctx context.Context) (int, error) {
	total, err := repo.CountPosts(ctx, s.DB, "")
	if err != nil || total > 0 {
		return 0, err
	}
	seeds := s.Catalog.SeedFeed(time.Now().UTC())
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range seeds {
			if err := repo.CreatePost(ctx, tx, &seeds[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(seeds), nil
}

// ListPage returns one page of the feed, newest first, optionally filtered
// by q.
func (s *FeedService) ListPage(ctx context.Context, q string, page, pageSize int) ([]domain.Post, int64, error) {
	tr := otel.Tracer("services/FeedService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("q", q),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountPosts(ctx, s.DB, q)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	items, err := repo.ListPostsPage(ctx, s.DB, q, offset, pageSize)
	return items, total, err
}

// Get returns a single post.
func (s *FeedService) Get(ctx context.Context, id string) (*domain.Post, error) {
	p, err := repo.GetPost(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *FeedService) recentAuthors(ctx context.Context) []string {
	ids, err := repo.RecentAuthorIDs(ctx, s.DB, s.RecentWindow)
	if err != nil {
		log.Warn().Err(err).Msg("recent authors unavailable; selecting from full pool")
		return nil
	}
	return ids
}

func (s *FeedService) loadPosts(ctx context.Context, ids []string) ([]domain.Post, error) {
	out := make([]domain.Post, 0, len(ids))
	for _, id := range ids {
		p, err := repo.GetPost(ctx, s.DB, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
