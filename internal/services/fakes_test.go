package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/tagging"
)

// installRecorder routes global spans into an in-memory recorder for the
// duration of the test.
func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Post{}, &domain.Like{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

const testCatalogYAML = `
products:
  - id: pot
    nameEn: "Earthenware Pot"
    nameKr: "뚝배기"
    description: "Keeps stew bubbling"
    category: tool
    priceUsd: 22.5
    priceKrw: 19800
    links: {global: "https://example.com/pot", kr: "https://example.kr/pot"}
  - id: gochujang
    nameEn: "Gochujang Paste"
    description: "Sweet heat"
    category: sauce
    priceUsd: 9.5
    priceKrw: 8900
  - id: grill
    nameEn: "Grill Pan"
    category: tool
    priceUsd: 39
    priceKrw: 45000
scenarios:
  - name: "Hearty Stew"
    primary: {ids: [pot]}
    secondary: {categories: [sauce], excludePrimary: true}
    secondaryCount: 1
    food: "kimchi stew in a {{primary}}"
    setting: "cozy kitchen"
    imageStyle: person
    isRecipe: true
    generatesEssentials: true
personas:
  - {id: mina, name: "Mina", country: Korea}
  - {id: emily, name: "Emily", country: USA}
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalogYAML))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return c
}

// scriptedRand picks index 0, never reorders, and returns draw from Float64.
type scriptedRand struct{ draw float64 }

func (r scriptedRand) IntN(int) int                { return 0 }
func (r scriptedRand) Float64() float64            { return r.draw }
func (r scriptedRand) Shuffle(int, func(i, j int)) {}

type fakeAvatars struct{}

func (fakeAvatars) Get(_ context.Context, a domain.Author) string { return "avatar-" + a.ID }

type fakeScenes struct {
	err  error
	reqs []domain.SceneRequest
}

func (f *fakeScenes) GenerateScene(_ context.Context, req domain.SceneRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	return "c2NlbmU=", nil
}

type fakeVision struct {
	items []domain.DetectedItem
	err   error
	hints []*domain.Product
}

func (f *fakeVision) AnalyzeImage(_ context.Context, _ string, hints []*domain.Product) ([]domain.DetectedItem, error) {
	f.hints = hints
	return f.items, f.err
}

type fakeLocalizer struct {
	mu    sync.Mutex
	byID  map[string]*domain.Localization
	fail  map[string]bool
	calls int
}

func (f *fakeLocalizer) LocalizeProduct(_ context.Context, p *domain.Product, _ domain.Author) (*domain.Localization, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail[p.ID] {
		return nil, fmt.Errorf("translate %s: quota", p.ID)
	}
	return f.byID[p.ID], nil
}

type fakeEssentials struct {
	out  []domain.RecipeEssential
	err  error
	dish string
}

func (f *fakeEssentials) GenerateEssentials(_ context.Context, _ string, dish string) ([]domain.RecipeEssential, error) {
	f.dish = dish
	return f.out, f.err
}

type fakeCopy struct {
	err error
	req domain.CopyRequest
}

func (f *fakeCopy) GenerateCopy(_ context.Context, req domain.CopyRequest) (domain.PostCopy, error) {
	f.req = req
	if f.err != nil {
		return domain.PostCopy{}, f.err
	}
	return domain.PostCopy{Title: "Stew night", Description: "So cozy"}, nil
}

type harness struct {
	svc        *SchedulerService
	cat        *catalog.Catalog
	scenes     *fakeScenes
	vision     *fakeVision
	localizer  *fakeLocalizer
	essentials *fakeEssentials
	copy       *fakeCopy
}

var fixedNow = time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat := testCatalog(t)
	h := &harness{
		cat:        cat,
		scenes:     &fakeScenes{},
		vision:     &fakeVision{},
		localizer:  &fakeLocalizer{byID: map[string]*domain.Localization{}, fail: map[string]bool{}},
		essentials: &fakeEssentials{},
		copy:       &fakeCopy{},
	}
	rng := scriptedRand{draw: 0.1}
	h.svc = &SchedulerService{
		Catalog:           cat,
		Avatars:           fakeAvatars{},
		Scenes:            h.scenes,
		Vision:            h.vision,
		Localizer:         h.localizer,
		Essentials:        h.essentials,
		Copy:              h.copy,
		Tags:              &tagging.Builder{Matcher: tagging.NewMatcher(cat.Products), Rand: rng, Now: func() time.Time { return fixedNow }},
		Rand:              rng,
		HomeCountry:       "Korea",
		CinemagraphChance: 0.5,
		MinConfidence:     0.6,
		Now:               func() time.Time { return fixedNow },
		NewID:             func() string { return "post-1" },
	}
	return h
}

// collector records emitted posts.
type collector struct{ posts []*domain.Post }

func (c *collector) emit(_ context.Context, p *domain.Post) error {
	c.posts = append(c.posts, p)
	return nil
}

func authors(c *catalog.Catalog, ids ...string) func() []domain.Author {
	return func() []domain.Author {
		var out []domain.Author
		for _, id := range ids {
			a, _ := c.Persona(id)
			out = append(out, a)
		}
		return out
	}
}

func none() []string { return nil }
