package tagging

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/utils"
)

const (
	fallbackMin  = 30.0
	fallbackSpan = 40.0

	basePriceUSD = 25.0
	stepPriceUSD = 5.0
	basePriceKRW = 29000
	stepPriceKRW = 5000

	globalSearchURL = "https://amazon.com/s?k="
	krSearchURL     = "https://coupang.com/np/search?q="
)

// Builder converts detected items into tags.
type Builder struct {
	Matcher *Matcher
	Rand    utils.Rand
	Now     func() time.Time
}

// NewBuilder returns a Builder using the wall clock.
func NewBuilder(m *Matcher, r utils.Rand) *Builder {
	return &Builder{Matcher: m, Rand: r, Now: time.Now}
}

// Build returns one tag per item, in input order. Catalog matches carry the
// catalog product itself; everything else gets a synthesized product priced
// by the item's index. Confidence filtering is the caller's job.
func (b *Builder) Build(items []domain.DetectedItem) []domain.Tag {
	if len(items) == 0 {
		return []domain.Tag{}
	}
	ms := b.now().UnixMilli()
	tags := make([]domain.Tag, 0, len(items))
	for i, item := range items {
		x, y := b.position(item)
		if p, _, ok := b.Matcher.Match(item); ok {
			tags = append(tags, domain.Tag{ID: fmt.Sprintf("tag-match-%d-%d", ms, i), X: x, Y: y, Product: p})
			continue
		}
		tags = append(tags, domain.Tag{ID: fmt.Sprintf("tag-gen-%d-%d", ms, i), X: x, Y: y, Product: synthesize(item, i, ms)})
	}
	return tags
}

// Resolve returns the catalog product for item, or a synthesized one.
// Used for recipe essentials, which are matched the same way as tags.
func (b *Builder) Resolve(item domain.DetectedItem, index int) *domain.Product {
	if p, _, ok := b.Matcher.Match(item); ok {
		return p
	}
	return synthesize(item, index, b.now().UnixMilli())
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// position centres the tag on the bounding box [ymin, xmin, ymax, xmax], or
// scatters it inside the central region when no box is present.
func (b *Builder) position(item domain.DetectedItem) (x, y float64) {
	if bb := item.BoundingBox; len(bb) == 4 {
		y = clamp((bb[0]+bb[2])/2, 0, 100)
		x = clamp((bb[1]+bb[3])/2, 0, 100)
		return x, y
	}
	x = fallbackMin + b.Rand.Float64()*fallbackSpan
	y = fallbackMin + b.Rand.Float64()*fallbackSpan
	return x, y
}

func synthesize(item domain.DetectedItem, index int, ms int64) *domain.Product {
	term := item.SearchKeyword
	if term == "" {
		term = item.Name
	}
	krName := item.KoreanName
	if krName == "" {
		krName = item.Name
	}
	return &domain.Product{
		ID:            fmt.Sprintf("prod-gen-%d-%d", ms, index),
		NameEn:        item.Name,
		NameKr:        krName,
		SearchKeyword: term,
		Description:   item.Description,
		Category:      domain.ParseCategory(string(item.SuggestedCategory)),
		PriceUSD:      basePriceUSD + float64(index)*stepPriceUSD,
		PriceKRW:      basePriceKRW + index*stepPriceKRW,
		Links: domain.Links{
			Global: globalSearchURL + encodeComponent(term),
			KR:     krSearchURL + encodeComponent(krName),
		},
		Image: "",
	}
}

// encodeComponent percent-encodes s for a query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
