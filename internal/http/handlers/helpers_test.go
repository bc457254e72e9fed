package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/http/middleware"
	"github.com/tbourn/k-kitchen/internal/repo"
	"github.com/tbourn/k-kitchen/internal/services"
)

// ---------- test plumbing ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:handlers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type stubFeed struct {
	generate func(ctx context.Context, userID, key string, n int) ([]domain.Post, bool, error)
	list     func(ctx context.Context, q string, page, pageSize int) ([]domain.Post, int64, error)
	get      func(ctx context.Context, id string) (*domain.Post, error)
	create   func(ctx context.Context, userID string, in services.UserPostInput) (*domain.Post, error)
	boost    func(ctx context.Context, id string) (*domain.Post, error)
}

func (s stubFeed) GenerateIdempotent(ctx context.Context, userID, key string, n int) ([]domain.Post, bool, error) {
	return s.generate(ctx, userID, key, n)
}

func (s stubFeed) ListPage(ctx context.Context, q string, page, pageSize int) ([]domain.Post, int64, error) {
	return s.list(ctx, q, page, pageSize)
}

func (s stubFeed) Get(ctx context.Context, id string) (*domain.Post, error) {
	return s.get(ctx, id)
}

func (s stubFeed) CreateUserPost(ctx context.Context, userID string, in services.UserPostInput) (*domain.Post, error) {
	return s.create(ctx, userID, in)
}

func (s stubFeed) Boost(ctx context.Context, id string) (*domain.Post, error) {
	return s.boost(ctx, id)
}

type stubPersonas func(ctx context.Context, id string) (string, error)

func (f stubPersonas) Story(ctx context.Context, id string) (string, error) { return f(ctx, id) }

type stubLikes func(ctx context.Context, userID, postID string) (bool, int, error)

func (f stubLikes) Toggle(ctx context.Context, userID, postID string) (bool, int, error) {
	return f(ctx, userID, postID)
}

type stubAnalyze func(ctx context.Context, image string) ([]domain.Tag, error)

func (f stubAnalyze) Analyze(ctx context.Context, image string) ([]domain.Tag, error) {
	return f(ctx, image)
}

// newEngine mounts h the way the router does, minus rate limiting.
func newEngine(t *testing.T, h *Handlers) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.UserID())
	r.POST("/posts/generate", middleware.Idempotency(middleware.IdempotencyOptions{}, nil), h.GeneratePosts)
	r.GET("/posts", h.ListPosts)
	r.GET("/posts/:id", h.GetPost)
	r.POST("/posts", h.CreatePost)
	r.POST("/posts/:id/like", h.LikePost)
	r.POST("/posts/:id/boost", h.BoostPost)
	r.POST("/analyze", h.AnalyzePhoto)
	r.GET("/personas", h.ListPersonas)
	r.GET("/personas/:id/story", h.PersonaStory)
	r.GET("/scenarios", h.ListScenarios)
	return r
}

func do(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return v
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}
