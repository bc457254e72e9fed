package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/k-kitchen/internal/ai/prompts"
	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/domain"
)

// StoryWriter writes a persona's profile story.
type StoryWriter interface {
	GenerateAuthorStory(ctx context.Context, a domain.Author) (string, error)
}

// PersonaService serves persona profile stories. Generated stories are
// kept for the life of the process; failures fall back to a canned story
// that is not kept, so the next request retries.
type PersonaService struct {
	Catalog *catalog.Catalog
	// Stories is optional; without it every persona gets the canned story.
	Stories StoryWriter

	mu    sync.Mutex
	cache map[string]string
}

// Story returns the profile story of persona id.
func (s *PersonaService) Story(ctx context.Context, id string) (string, error) {
	ctx, span := otel.Tracer("services/PersonaService").Start(ctx, "Story",
		trace.WithAttributes(attribute.String("author.id", id)),
	)
	defer span.End()

	a, ok := s.Catalog.Persona(id)
	if !ok {
		return "", ErrPersonaNotFound
	}

	s.mu.Lock()
	story, hit := s.cache[id]
	s.mu.Unlock()
	if hit {
		return story, nil
	}
	if s.Stories == nil {
		return prompts.FallbackStory(a), nil
	}

	story, err := s.Stories.GenerateAuthorStory(ctx, a)
	if err != nil || story == "" {
		if err != nil {
			span.RecordError(err)
		}
		log.Warn().Err(err).Str("author_id", id).Msg("persona story unavailable; using canned story")
		return prompts.FallbackStory(a), nil
	}

	s.mu.Lock()
	if s.cache == nil {
		s.cache = make(map[string]string)
	}
	s.cache[id] = story
	s.mu.Unlock()
	return story, nil
}
