package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/tagging"
	"github.com/tbourn/k-kitchen/internal/utils"
)

// AvatarSource returns a persona's avatar. It never fails; failures are
// substituted with a fallback image.
type AvatarSource interface {
	Get(ctx context.Context, author domain.Author) string
}

// SceneGenerator renders the post photo.
type SceneGenerator interface {
	GenerateScene(ctx context.Context, req domain.SceneRequest) (string, error)
}

// VisionAnalyzer detects items in an image, optionally guided by products
// expected to be in it.
type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, image string, hints []*domain.Product) ([]domain.DetectedItem, error)
}

// Localizer translates a product's display fields for a persona. A nil
// result means "keep the original".
type Localizer interface {
	LocalizeProduct(ctx context.Context, p *domain.Product, author domain.Author) (*domain.Localization, error)
}

// EssentialsGenerator lists the products needed to cook a pictured dish.
type EssentialsGenerator interface {
	GenerateEssentials(ctx context.Context, image, dish string) ([]domain.RecipeEssential, error)
}

// CopyGenerator writes a post's title and description.
type CopyGenerator interface {
	GenerateCopy(ctx context.Context, req domain.CopyRequest) (domain.PostCopy, error)
}

const (
	imageDataPrefix = "data:image/png;base64,"

	likesSpread     = 800
	likesBaseRecipe = 200
	likesBaseMoment = 50
)

// SchedulerService assembles one synthetic post per tick.
//
// Stages run strictly in order; only tag localization fans out. Vision,
// Localizer and Essentials may be nil, in which case their stages are
// skipped. A SchedulerService is safe for concurrent ticks as long as its
// collaborators are.
type SchedulerService struct {
	Catalog    *catalog.Catalog
	Avatars    AvatarSource
	Scenes     SceneGenerator
	Vision     VisionAnalyzer
	Localizer  Localizer
	Essentials EssentialsGenerator
	Copy       CopyGenerator
	Tags       *tagging.Builder
	Rand       utils.Rand

	// HomeCountry personas are not localized.
	HomeCountry string
	// CinemagraphChance is the probability of a cinemagraph draw succeeding.
	CinemagraphChance float64
	// MinConfidence drops vision items at or below it when > 0.
	MinConfidence float64

	Now   func() time.Time
	NewID func() string
}

// RunTick runs one generation: select a persona and scenario, render the
// scene, tag it, write the copy and hand the post to onNewPost.
//
// It returns nil without emitting when the chosen scenario matches no
// primary product. Scene, copy and emit failures abort the tick with a
// *StageError; vision, localization and essentials failures are logged and
// skipped. getRecentlyPosted may be nil.
func (s *SchedulerService) RunTick(
	ctx context.Context,
	getAuthors func() []domain.Author,
	onNewPost func(ctx context.Context, p *domain.Post) error,
	getRecentlyPosted func() []string,
) (err error) {
	tr := otel.Tracer("services/SchedulerService")
	ctx, span := tr.Start(ctx, "RunTick")
	defer span.End()

	outcome := outcomeFailed
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		ticksTotal.WithLabelValues(outcome).Inc()
	}()

	// 1) Persona
	var recent []string
	if getRecentlyPosted != nil {
		recent = getRecentlyPosted()
	}
	author, ok := s.pickAuthor(getAuthors(), recent)
	if !ok {
		return &StageError{Stage: StageSelectAuthor, Err: ErrNoAuthors}
	}
	logger := log.With().Str("author_id", author.ID).Logger()

	// 2) Scenario
	if len(s.Catalog.Scenarios) == 0 {
		return &StageError{Stage: StageSelectScenario, Err: ErrNoScenarios}
	}
	sc := utils.Pick(s.Rand, s.Catalog.Scenarios)
	logger = logger.With().Str("scenario", sc.Name).Logger()
	span.SetAttributes(
		attribute.String("author.id", author.ID),
		attribute.String("scenario", sc.Name),
	)

	// 3) Products
	primaries := s.Catalog.Filter(sc.Primary, nil)
	if len(primaries) == 0 {
		logger.Info().Str("stage", string(StageResolveProducts)).Msg("no primary products for scenario; skipping tick")
		outcome = outcomeNoop
		return nil
	}
	primary := utils.Pick(s.Rand, primaries)
	products := append([]*domain.Product{primary}, s.secondaries(sc, primary)...)
	food, setting := s.Catalog.Prompt(sc, products, s.Rand)

	// 4) Avatar
	var avatar string
	s.timed(StageAvatar, func() { avatar = s.Avatars.Get(ctx, author) })

	// 5) Scene
	var scene string
	if err := s.call(ctx, StageScene, func(ctx context.Context) (err error) {
		scene, err = s.Scenes.GenerateScene(ctx, domain.SceneRequest{
			ReferenceAvatar: avatar,
			Food:            food,
			Setting:         setting,
			Style:           sc.ImageStyle,
		})
		if err == nil && scene == "" {
			err = ErrEmptyImage
		}
		return err
	}); err != nil {
		return err
	}

	// 6) Guided vision
	tags := []domain.Tag{}
	if s.Vision != nil {
		var items []domain.DetectedItem
		if err := s.call(ctx, StageVision, func(ctx context.Context) (err error) {
			items, err = s.Vision.AnalyzeImage(ctx, scene, products)
			return err
		}); err != nil {
			return err
		}
		tags = s.Tags.Build(filterConfident(items, s.MinConfidence))
		if len(tags) == 0 {
			logger.Warn().Str("stage", string(StageVision)).Msg("guided analysis located no items; post has no tags")
		}
	}

	// 7) Localization
	if s.Localizer != nil && len(tags) > 0 && author.Country != s.HomeCountry {
		s.timed(StageLocalize, func() { s.localize(ctx, tags, author) })
	}

	// 8) Essentials
	var essentials []domain.RecipeEssential
	if sc.GeneratesEssentials && s.Essentials != nil {
		if err := s.call(ctx, StageEssentials, func(ctx context.Context) (err error) {
			essentials, err = s.Essentials.GenerateEssentials(ctx, scene, sc.Name)
			return err
		}); err != nil {
			return err
		}
	}

	// 9) Copy
	var text domain.PostCopy
	if err := s.call(ctx, StageCopy, func(ctx context.Context) (err error) {
		text, err = s.Copy.GenerateCopy(ctx, domain.CopyRequest{
			Author:   author,
			Product:  primary,
			IsRecipe: sc.IsRecipe,
			Food:     food,
		})
		return err
	}); err != nil {
		return err
	}

	// 10) Assemble
	post := s.assemble(author, sc, primary, scene, tags, essentials, text)

	// 11) Emit
	if err := s.call(ctx, StageEmit, func(ctx context.Context) error {
		return onNewPost(ctx, post)
	}); err != nil {
		return err
	}

	outcome = outcomeEmitted
	logger.Info().
		Str("post_id", post.ID).
		Int("tags", len(post.Tags)).
		Int("essentials", len(post.RecipeEssentials)).
		Bool("cinemagraph", post.IsCinemagraph).
		Msg("post generated")
	return nil
}

// pickAuthor prefers personas that did not post recently and falls back to
// the whole pool.
func (s *SchedulerService) pickAuthor(pool []domain.Author, recent []string) (domain.Author, bool) {
	if len(pool) == 0 {
		return domain.Author{}, false
	}
	seen := make(map[string]struct{}, len(recent))
	for _, id := range recent {
		seen[id] = struct{}{}
	}
	fresh := make([]domain.Author, 0, len(pool))
	for _, a := range pool {
		if _, ok := seen[a.ID]; !ok {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) > 0 {
		return utils.Pick(s.Rand, fresh), true
	}
	return utils.Pick(s.Rand, pool), true
}

func (s *SchedulerService) secondaries(sc catalog.Scenario, primary *domain.Product) []*domain.Product {
	if sc.SecondaryCount == 0 || sc.Secondary.Empty() {
		return nil
	}
	pool := s.Catalog.Filter(sc.Secondary, primary)
	s.Rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > sc.SecondaryCount {
		pool = pool[:sc.SecondaryCount]
	}
	return pool
}

// localize rewrites tag products in place. Each tag whose localization
// succeeds gets a copy of its product with only the display name and
// description replaced; catalog entries are never mutated.
func (s *SchedulerService) localize(ctx context.Context, tags []domain.Tag, author domain.Author) {
	results := make([]*domain.Localization, len(tags))
	var g errgroup.Group
	for i := range tags {
		g.Go(func() error {
			loc, err := s.Localizer.LocalizeProduct(ctx, tags[i].Product, author)
			if err != nil {
				stageFailures.WithLabelValues(string(StageLocalize), Skip.String()).Inc()
				log.Warn().Err(err).
					Str("stage", string(StageLocalize)).
					Str("product_id", tags[i].Product.ID).
					Msg("localization failed; keeping original")
				return nil
			}
			results[i] = loc
			return nil
		})
	}
	_ = g.Wait()

	for i, loc := range results {
		if loc == nil {
			continue
		}
		p := tags[i].Product.Clone()
		p.NameEn = loc.Name
		p.Description = loc.Description
		tags[i].Product = p
	}
}

func (s *SchedulerService) assemble(
	author domain.Author,
	sc catalog.Scenario,
	primary *domain.Product,
	scene string,
	tags []domain.Tag,
	essentials []domain.RecipeEssential,
	text domain.PostCopy,
) *domain.Post {
	// The draw always happens so the random stream does not depend on
	// eligibility.
	draw := s.Rand.Float64()
	sound, hasSound := catalog.SoundFor(primary)
	cinemagraph := draw < s.CinemagraphChance && hasSound && sc.ImageStyle == domain.ImageStylePerson

	base, difficulty := likesBaseMoment, domain.DifficultyEasy
	if sc.IsRecipe {
		base, difficulty = likesBaseRecipe, domain.DifficultyMedium
	}
	likes := s.Rand.IntN(likesSpread) + base

	post := &domain.Post{
		ID:               s.newID(),
		Title:            text.Title,
		Description:      text.Description,
		AuthorID:         author.ID,
		Author:           author,
		ImageURL:         imageDataPrefix + scene,
		Tags:             tags,
		RecipeEssentials: essentials,
		Difficulty:       difficulty,
		Likes:            likes,
		IsRecipe:         sc.IsRecipe,
		IsCinemagraph:    cinemagraph,
		ScenarioName:     sc.Name,
		CreatedAt:        s.now(),
	}
	if cinemagraph {
		post.AudioURL = sound.AudioURL
		post.CinemagraphEffect = sound.Effect
	}
	return post
}

// call runs fn as stage, timing it and applying the stage's failure policy
// to any error. A nil return means the tick continues.
func (s *SchedulerService) call(ctx context.Context, stage Stage, fn func(ctx context.Context) error) error {
	tr := otel.Tracer("services/SchedulerService")
	ctx, span := tr.Start(ctx, string(stage), trace.WithAttributes(attribute.String("stage", string(stage))))
	defer span.End()

	var err error
	s.timed(stage, func() { err = fn(ctx) })
	if err == nil {
		return nil
	}
	span.RecordError(err)

	policy := PolicyFor(stage)
	stageFailures.WithLabelValues(string(stage), policy.String()).Inc()
	if policy == Abort {
		log.Error().Err(err).Str("stage", string(stage)).Msg("generation aborted")
		return &StageError{Stage: stage, Err: err}
	}
	log.Warn().Err(err).Str("stage", string(stage)).Str("policy", policy.String()).Msg("enhancement skipped")
	return nil
}

func (s *SchedulerService) timed(stage Stage, fn func()) {
	start := time.Now()
	fn()
	stageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}

func (s *SchedulerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *SchedulerService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// filterConfident drops items whose confidence is at or below min. A
// non-positive min keeps everything.
func filterConfident(items []domain.DetectedItem, min float64) []domain.DetectedItem {
	if min <= 0 {
		return items
	}
	out := make([]domain.DetectedItem, 0, len(items))
	for _, it := range items {
		if it.Confidence > min {
			out = append(out, it)
		}
	}
	return out
}

// IsAbort reports whether err aborted a tick at stage.
func IsAbort(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
