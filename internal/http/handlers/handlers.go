package handlers

import (
	"context"

	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/services"
)

// FeedService generates and serves posts.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type FeedService interface {
	// GenerateIdempotent runs n generation ticks for userID. A repeated key
	// returns the earlier posts with replayed set.
	GenerateIdempotent(ctx context.Context, userID, key string, n int) (posts []domain.Post, replayed bool, err error)
	// ListPage returns a page of the feed, newest first, and the total count.
	ListPage(ctx context.Context, q string, page, pageSize int) ([]domain.Post, int64, error)
	// Get returns one post.
	Get(ctx context.Context, id string) (*domain.Post, error)
	// CreateUserPost publishes a user's photo as a tagged post.
	CreateUserPost(ctx context.Context, userID string, in services.UserPostInput) (*domain.Post, error)
	// Boost marks a post as promoted.
	Boost(ctx context.Context, id string) (*domain.Post, error)
}

// LikeService flips a user's like on a post.
type LikeService interface {
	Toggle(ctx context.Context, userID, postID string) (liked bool, likes int, err error)
}

// AnalyzeService tags a user-supplied photo.
type AnalyzeService interface {
	Analyze(ctx context.Context, image string) ([]domain.Tag, error)
}

// PersonaService serves persona profile stories.
type PersonaService interface {
	Story(ctx context.Context, id string) (string, error)
}

// Handlers groups the feed, like, analysis and catalog endpoints.
type Handlers struct {
	feed     FeedService
	likes    LikeService
	analyze  AnalyzeService
	personas PersonaService
	catalog  *catalog.Catalog
}

// New constructs Handlers bound to the given services.
func New(feed FeedService, likes LikeService, analyze AnalyzeService, personas PersonaService, cat *catalog.Catalog) *Handlers {
	return &Handlers{feed: feed, likes: likes, analyze: analyze, personas: personas, catalog: cat}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
