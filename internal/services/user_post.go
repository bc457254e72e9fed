package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/repo"
)

// PhotoTagger tags a user photo. *AnalyzeService satisfies it.
type PhotoTagger interface {
	Analyze(ctx context.Context, image string) ([]domain.Tag, error)
}

const (
	defaultUserPostTitle = "My K-Kitchen Discovery"
	defaultUserAuthor    = "Guest Chef"
	userAuthorPrefix     = "user-"
)

// UserPostInput is a photo a user shares to the feed. Blank text fields get
// defaults.
type UserPostInput struct {
	Image       string
	AuthorName  string
	Title       string
	Description string
}

// CreateUserPost tags a user's photo against the catalog and publishes it
// as a post authored by that user. Tagging is an enhancement: when it fails
// or is not configured the post is created without tags.
func (s *FeedService) CreateUserPost(ctx context.Context, userID string, in UserPostInput) (*domain.Post, error) {
	ctx, span := otel.Tracer("services/FeedService").Start(ctx, "CreateUserPost",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	image := strings.TrimSpace(in.Image)
	if image == "" {
		return nil, ErrEmptyImageInput
	}

	tags := []domain.Tag{}
	if s.Tagger != nil {
		found, err := s.Tagger.Analyze(ctx, image)
		switch {
		case err == nil:
			tags = append(tags, found...)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, ErrAnalyzeUnavailable):
		default:
			span.RecordError(err)
			log.Warn().Err(err).Str("user_id", userID).Msg("user photo tagging failed; posting without tags")
		}
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = defaultUserPostTitle
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = fmt.Sprintf("Look at these authentic Korean items! I found %d treasures.", len(tags))
	}
	name := strings.TrimSpace(in.AuthorName)
	if name == "" {
		name = defaultUserAuthor
	}

	now := time.Now().UTC()
	author := domain.Author{ID: userAuthorPrefix + userID, Name: name}
	p := &domain.Post{
		ID:          uuid.NewString(),
		Title:       title,
		Description: desc,
		AuthorID:    author.ID,
		Author:      author,
		ImageURL:    dataURI(image),
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.CreatePost(ctx, s.DB, p); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if s.Live != nil {
		s.Live.Publish(p)
	}
	return p, nil
}

// Boost marks a post as promoted and returns it.
func (s *FeedService) Boost(ctx context.Context, id string) (*domain.Post, error) {
	ctx, span := otel.Tracer("services/FeedService").Start(ctx, "Boost",
		trace.WithAttributes(attribute.String("post.id", id)),
	)
	defer span.End()

	if err := repo.SetBoosted(ctx, s.DB, id, true); err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	return s.Get(ctx, id)
}

// dataURI wraps a bare base64 payload; data URIs pass through.
func dataURI(image string) string {
	if strings.HasPrefix(image, "data:") {
		return image
	}
	return "data:image/jpeg;base64," + image
}
