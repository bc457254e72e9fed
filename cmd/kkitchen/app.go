package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/k-kitchen/internal/ai/copywriter"
	"github.com/tbourn/k-kitchen/internal/ai/gemini"
	"github.com/tbourn/k-kitchen/internal/ai/offline"
	"github.com/tbourn/k-kitchen/internal/avatar"
	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/config"
	httpapi "github.com/tbourn/k-kitchen/internal/http"
	"github.com/tbourn/k-kitchen/internal/live"
	"github.com/tbourn/k-kitchen/internal/repo"
	"github.com/tbourn/k-kitchen/internal/services"
	"github.com/tbourn/k-kitchen/internal/tagging"
	"github.com/tbourn/k-kitchen/internal/utils"
)

// app holds the wired collaborators shared by the commands.
type app struct {
	db       *gorm.DB
	catalog  *catalog.Catalog
	avatars  *avatar.Cache
	feed     *services.FeedService
	likes    *services.LikeService
	analyze  *services.AnalyzeService
	personas *services.PersonaService
	hub      *live.Hub

	closers []func() error
}

// providers is the set of AI collaborators behind one tick.
type providers struct {
	avatars    avatar.Generator
	scenes     services.SceneGenerator
	vision     services.VisionAnalyzer
	localizer  services.Localizer
	essentials services.EssentialsGenerator
	copy       services.CopyGenerator
	stories    services.StoryWriter
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a := &app{db: db}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if err := repo.AutoMigrate(db); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if a.catalog, err = catalog.Load(cfg.CatalogPath); err != nil {
		a.Close()
		return nil, err
	}

	seed := cfg.Scheduler.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := utils.NewRand(seed)
	tags := tagging.NewBuilder(tagging.NewMatcher(a.catalog.Products), rnd)

	p, err := buildProviders(ctx, cfg, a.catalog, tags)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.avatarStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.avatars = avatar.New(store, p.avatars, avatar.Options{
		Capacity:  cfg.Avatar.Capacity,
		KeyPrefix: cfg.Avatar.KeyPrefix,
	})

	sched := &services.SchedulerService{
		Catalog:           a.catalog,
		Avatars:           a.avatars,
		Scenes:            p.scenes,
		Vision:            p.vision,
		Localizer:         p.localizer,
		Essentials:        p.essentials,
		Copy:              p.copy,
		Tags:              tags,
		Rand:              rnd,
		HomeCountry:       cfg.Scheduler.HomeCountry,
		CinemagraphChance: cfg.Scheduler.CinemagraphChance,
		MinConfidence:     cfg.Scheduler.MinConfidence,
		Now:               func() time.Time { return time.Now().UTC() },
		NewID:             uuid.NewString,
	}

	a.hub = live.NewHub(httpapi.AllowOrigin(cfg.CORS.AllowedOrigins))
	a.feed = &services.FeedService{
		DB:             db,
		Ticks:          sched,
		Catalog:        a.catalog,
		Live:           a.hub,
		RecentWindow:   cfg.Scheduler.RecentWindow,
		MaxBatch:       cfg.Scheduler.MaxBatch,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	a.likes = &services.LikeService{DB: db}
	a.analyze = &services.AnalyzeService{
		Vision:        p.vision,
		Tags:          tags,
		MinConfidence: cfg.Scheduler.MinConfidence,
	}
	a.feed.Tagger = a.analyze
	a.personas = &services.PersonaService{Catalog: a.catalog, Stories: p.stories}
	return a, nil
}

func buildProviders(ctx context.Context, cfg config.Config, cat *catalog.Catalog, tags *tagging.Builder) (providers, error) {
	var p providers
	switch cfg.AI.Provider {
	case "gemini":
		g, err := gemini.New(ctx, gemini.Config{
			APIKey:     cfg.AI.GeminiAPIKey,
			TextModel:  cfg.AI.GeminiTextModel,
			ImageModel: cfg.AI.GeminiImageModel,
		}, tags)
		if err != nil {
			return p, err
		}
		p = providers{avatars: g, scenes: g, vision: g, localizer: g, essentials: g, copy: g, stories: g}
	default:
		s := offline.New(cat)
		p = providers{avatars: s, scenes: s, vision: s, localizer: s, essentials: s, copy: s, stories: s}
	}

	if cfg.AI.CopyProvider == "openai" {
		w, err := copywriter.New(copywriter.Config{
			APIKey:  cfg.AI.OpenAIAPIKey,
			Model:   cfg.AI.OpenAIModel,
			BaseURL: cfg.AI.OpenAIBaseURL,
		})
		if err != nil {
			return p, err
		}
		p.copy, p.localizer, p.stories = w, w, w
	}
	log.Info().
		Str("provider", cfg.AI.Provider).
		Str("copy_provider", cfg.AI.CopyProvider).
		Msg("ai collaborators ready")
	return p, nil
}

func (a *app) avatarStore(ctx context.Context, cfg config.Config) (avatar.Store, error) {
	switch cfg.Avatar.Store {
	case "sqlite":
		return &avatar.SQLStore{DB: a.db}, nil
	case "redis":
		rs, err := avatar.NewRedisStore(ctx, avatar.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	default:
		return avatar.NewMemoryStore(), nil
	}
}

// deps exposes the services to the router.
func (a *app) deps() httpapi.Deps {
	return httpapi.Deps{
		Feed:     a.feed,
		Likes:    a.likes,
		Analyze:  a.analyze,
		Personas: a.personas,
		Catalog:  a.catalog,
		Live:     a.hub,
	}
}

// Close releases everything in reverse acquisition order.
func (a *app) Close() error {
	if a.hub != nil {
		a.hub.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
