// Post HTTP handlers.
//
// This file exposes REST endpoints for the feed:
//   - POST /posts/generate    (run generation ticks, idempotent)
//   - POST /posts             (share a user photo as a tagged post)
//   - GET  /posts             (list, paginated, ETag support)
//   - GET  /posts/{id}        (single post)
//   - POST /posts/{id}/like   (toggle the caller's like)
//   - POST /posts/{id}/boost  (promote a post)
package handlers

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/http/middleware"
	"github.com/tbourn/k-kitchen/internal/repo"
	"github.com/tbourn/k-kitchen/internal/services"
	"github.com/tbourn/k-kitchen/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// GeneratePostsRequest is the JSON payload of POST /posts/generate. An
// absent body or count generates one post.
type GeneratePostsRequest struct {
	Count *int `json:"count"`
}

// PostsResponse wraps generated posts.
type PostsResponse struct {
	Posts []domain.Post `json:"posts"`
}

// ListPostsResponse wraps a page of the feed and pagination information.
type ListPostsResponse struct {
	Posts      []domain.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// CreatePostRequest is the JSON payload of POST /posts. Blank text fields
// get defaults.
type CreatePostRequest struct {
	Image       string `json:"image"       binding:"required"`
	AuthorName  string `json:"author_name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LikeResponse reports the caller's like state after a toggle.
type LikeResponse struct {
	PostID string `json:"post_id"`
	Liked  bool   `json:"liked"`
	Likes  int    `json:"likes"`
}

// GeneratePosts runs count generation ticks and returns the emitted posts.
// A replayed Idempotency-Key returns the original posts with 200 and
// Idempotency-Replayed: true; fresh generation answers 201. When a tick
// aborts, the posts emitted before it stay in the feed and the response is
// 502 generate_failed.
func (h *Handlers) GeneratePosts(c *gin.Context) {
	var req GeneratePostsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	count := 1
	if req.Count != nil {
		count = *req.Count
	}

	key, _ := middleware.GetIdempotencyKey(c)
	posts, replayed, err := h.feed.GenerateIdempotent(c.Request.Context(), middleware.UserIDFrom(c), key, count)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCount):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "count out of range")
		case errors.Is(err, context.Canceled):
			fail(c, http.StatusServiceUnavailable, ErrCodeGenerateFailed,
				fmt.Sprintf("request cancelled after %d post(s)", len(posts)))
		default:
			fail(c, http.StatusBadGateway, ErrCodeGenerateFailed,
				fmt.Sprintf("generation stopped after %d post(s): %v", len(posts), err))
		}
		return
	}

	if replayed {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, PostsResponse{Posts: posts})
		return
	}
	ok(c, http.StatusCreated, PostsResponse{Posts: posts})
}

// ListPosts returns a page of the feed, newest first. q filters on title,
// description and scenario name. A weak ETag derived from the matching row
// count and newest update lets clients revalidate with If-None-Match.
func (h *Handlers) ListPosts(c *gin.Context) {
	ctx := c.Request.Context()
	q := strings.TrimSpace(c.Query("q"))
	page, pageSize := utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), defaultPageSize),
		maxPageSize,
	)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.feed.(*services.FeedService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.PostsStats(ctx, db, q)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"posts:%x:%d:%d:%d:%d"`, queryHash(q), page, pageSize, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.feed.ListPage(ctx, q, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListPostsResponse{
		Posts: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetPost returns a single post.
func (h *Handlers) GetPost(c *gin.Context) {
	p, err := h.feed.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// LikePost toggles the caller's like on a post.
func (h *Handlers) LikePost(c *gin.Context) {
	postID := c.Param("id")
	liked, likes, err := h.likes.Toggle(c.Request.Context(), middleware.UserIDFrom(c), postID)
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLikeFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, LikeResponse{PostID: postID, Liked: liked, Likes: likes})
}

// CreatePost publishes the caller's photo as a post tagged against the
// catalog.
func (h *Handlers) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image required")
		return
	}
	p, err := h.feed.CreateUserPost(c.Request.Context(), middleware.UserIDFrom(c), services.UserPostInput{
		Image:       req.Image,
		AuthorName:  req.AuthorName,
		Title:       req.Title,
		Description: req.Description,
	})
	switch {
	case err == nil:
		ok(c, http.StatusCreated, p)
	case errors.Is(err, services.ErrEmptyImageInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image required")
	case errors.Is(err, context.Canceled):
		fail(c, http.StatusServiceUnavailable, ErrCodeCreateFailed, "request cancelled")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
	}
}

// BoostPost marks a post as promoted and returns it.
func (h *Handlers) BoostPost(c *gin.Context) {
	p, err := h.feed.Boost(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeBoostFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

func queryHash(q string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(q)))
	return h.Sum32()
}
