package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/tagging"
)

// AnalyzeService tags a user's own photo against the catalog.
type AnalyzeService struct {
	Vision        VisionAnalyzer
	Tags          *tagging.Builder
	MinConfidence float64
}

// Analyze runs unguided vision on image and returns the resulting tags.
// Items at or below MinConfidence are dropped.
func (s *AnalyzeService) Analyze(ctx context.Context, image string) ([]domain.Tag, error) {
	ctx, span := otel.Tracer("services/AnalyzeService").Start(ctx, "Analyze")
	defer span.End()

	if strings.TrimSpace(image) == "" {
		return nil, ErrEmptyImageInput
	}
	if s.Vision == nil {
		return nil, ErrAnalyzeUnavailable
	}
	items, err := s.Vision.AnalyzeImage(ctx, image, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.Tags.Build(filterConfident(items, s.MinConfidence)), nil
}
