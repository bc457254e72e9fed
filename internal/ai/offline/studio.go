// Package offline provides deterministic stand-ins for every AI
// collaborator. It needs no network or keys and is the default provider for
// local development, demos and tests.
package offline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/k-kitchen/internal/ai/prompts"
	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/domain"
)

const (
	imageSize       = 64
	maxEssentials   = 3
	hintConfidence  = 0.9
	mockItemName    = "Mock Ttukbaegi"
	mockItemKorean  = "뚝배기"
	mockDescription = "Offline mode: mock identification of an earthenware pot."
)

// Studio answers every collaborator call from the catalog and the request
// text alone. Equal inputs always produce equal outputs.
type Studio struct {
	Catalog *catalog.Catalog
}

// New returns a Studio over c.
func New(c *catalog.Catalog) *Studio { return &Studio{Catalog: c} }

// GenerateAvatar renders a flat colour tile seeded by the persona id.
func (s *Studio) GenerateAvatar(_ context.Context, a domain.Author) (string, error) {
	return tile("avatar:" + a.ID)
}

// GenerateScene renders a flat colour tile seeded by the scene text.
func (s *Studio) GenerateScene(_ context.Context, req domain.SceneRequest) (string, error) {
	return tile(fmt.Sprintf("scene:%s|%s|%s", req.Food, req.Setting, req.Style))
}

// AnalyzeImage reports every hinted product, laid out left to right across
// the middle band of the image. Without hints it reports a single mock pot.
func (s *Studio) AnalyzeImage(_ context.Context, _ string, hints []*domain.Product) ([]domain.DetectedItem, error) {
	var items []domain.DetectedItem
	for _, p := range hints {
		if p != nil {
			items = append(items, domain.DetectedItem{
				Name:              p.NameEn,
				KoreanName:        p.NameKr,
				SearchKeyword:     p.SearchKeyword,
				Description:       p.Description,
				SuggestedCategory: p.Category,
				Confidence:        hintConfidence,
			})
		}
	}
	if len(items) == 0 {
		return []domain.DetectedItem{{
			Name:              mockItemName,
			KoreanName:        mockItemKorean,
			Description:       mockDescription,
			SuggestedCategory: domain.CategoryTool,
			Confidence:        hintConfidence,
			BoundingBox:       []float64{40, 40, 60, 60},
		}}, nil
	}
	step := 80.0 / float64(len(items))
	for i := range items {
		xmin := 10 + float64(i)*step
		items[i].BoundingBox = []float64{40, xmin, 60, xmin + step}
	}
	return items, nil
}

// LocalizeProduct tags the display fields with the reader's language name.
// English readers get nil.
func (s *Studio) LocalizeProduct(_ context.Context, p *domain.Product, a domain.Author) (*domain.Localization, error) {
	lang := prompts.LanguageFor(a.Country)
	if p == nil || prompts.IsEnglish(lang) {
		return nil, nil
	}
	name := prompts.LanguageName(lang)
	return &domain.Localization{
		Name:        fmt.Sprintf("%s (%s)", p.NameEn, name),
		Description: fmt.Sprintf("[%s] %s", name, p.Description),
	}, nil
}

// GenerateEssentials picks sauces and ingredients from the catalog, rotated
// by the dish name.
func (s *Studio) GenerateEssentials(_ context.Context, _ string, dish string) ([]domain.RecipeEssential, error) {
	if s.Catalog == nil {
		return []domain.RecipeEssential{}, nil
	}
	var pool []*domain.Product
	for _, p := range s.Catalog.Products {
		if p.Category == domain.CategorySauce || p.Category == domain.CategoryIngredient {
			pool = append(pool, p)
		}
	}
	out := []domain.RecipeEssential{}
	if len(pool) == 0 {
		return out, nil
	}
	start := int(hash(dish) % uint32(len(pool)))
	for i := 0; i < maxEssentials && i < len(pool); i++ {
		p := pool[(start+i)%len(pool)]
		out = append(out, domain.RecipeEssential{
			Product: p,
			Reason:  fmt.Sprintf("%s is a pantry staple for %s.", p.NameEn, dish),
		})
	}
	return out, nil
}

// GenerateCopy writes a title from the food text and a caption in the
// persona's voice.
func (s *Studio) GenerateCopy(_ context.Context, req domain.CopyRequest) (domain.PostCopy, error) {
	title := cases.Title(language.English).String(shorten(req.Food, 6))
	if title == "" {
		title = "Today's Table"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s here! ", firstName(req.Author.Name))
	if req.IsRecipe {
		b.WriteString("Recipe time: 1) prep everything 2) cook low and slow 3) plate and enjoy.")
	} else {
		b.WriteString("Just a little moment from my kitchen today.")
	}
	if req.Product != nil {
		fmt.Fprintf(&b, " Made with my %s.", req.Product.NameEn)
	}
	b.WriteString(" #kfood #homecooking")
	return domain.PostCopy{Title: title, Description: b.String()}, nil
}

// GenerateAuthorStory returns the canned profile story.
func (s *Studio) GenerateAuthorStory(_ context.Context, a domain.Author) (string, error) {
	return prompts.FallbackStory(a), nil
}

func hash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// tile encodes a square PNG whose colour derives from seed.
func tile(seed string) (string, error) {
	h := hash(seed)
	c := color.RGBA{R: uint8(h >> 16), G: uint8(h >> 8), B: uint8(h), A: 0xff}
	img := image.NewRGBA(image.Rect(0, 0, imageSize, imageSize))
	for y := 0; y < imageSize; y++ {
		for x := 0; x < imageSize; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func shorten(s string, words int) string {
	f := strings.Fields(s)
	if len(f) > words {
		f = f[:words]
	}
	return strings.TrimRight(strings.Join(f, " "), ",.;:")
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "Chef"
}
