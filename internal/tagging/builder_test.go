package tagging

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/utils"
)

func newTestBuilder(seed int64) *Builder {
	b := NewBuilder(NewMatcher(testCatalog()), utils.NewRand(seed))
	b.Now = func() time.Time { return time.UnixMilli(1700000000000) }
	return b
}

func TestBuild_Empty(t *testing.T) {
	tags := newTestBuilder(1).Build(nil)
	if tags == nil || len(tags) != 0 {
		t.Fatalf("Build(nil) = %#v; want empty non-nil slice", tags)
	}
}

func TestBuild_BoundingBoxMidpoint(t *testing.T) {
	b := newTestBuilder(1)
	cases := []struct {
		bbox  []float64
		wantX float64
		wantY float64
	}{
		{[]float64{40, 40, 60, 60}, 50, 50},
		{[]float64{10, 20, 30, 80}, 50, 20},
		{[]float64{-40, 90, -20, 130}, 100, 0},
	}
	for _, tc := range cases {
		tags := b.Build([]domain.DetectedItem{{Name: "thing", BoundingBox: tc.bbox}})
		if tags[0].X != tc.wantX || tags[0].Y != tc.wantY {
			t.Fatalf("bbox %v -> (%v,%v); want (%v,%v)", tc.bbox, tags[0].X, tags[0].Y, tc.wantX, tc.wantY)
		}
	}
}

func TestBuild_FallbackPositionInCentralRegion(t *testing.T) {
	b := newTestBuilder(99)
	items := make([]domain.DetectedItem, 200)
	for i := range items {
		items[i] = domain.DetectedItem{Name: "mystery", BoundingBox: []float64{1, 2, 3}}
	}
	for _, tag := range b.Build(items) {
		if tag.X < 30 || tag.X > 70 || tag.Y < 30 || tag.Y > 70 {
			t.Fatalf("fallback position out of range: (%v,%v)", tag.X, tag.Y)
		}
	}
}

func TestBuild_CatalogMatchIsSameProduct(t *testing.T) {
	cat := testCatalog()
	b := newTestBuilder(1)
	b.Matcher = NewMatcher(cat)

	tags := b.Build([]domain.DetectedItem{{Name: "Earthenware Pot", BoundingBox: []float64{40, 40, 60, 60}}})
	if len(tags) != 1 {
		t.Fatalf("tags = %d", len(tags))
	}
	if tags[0].Product != cat[0] {
		t.Fatalf("tag product is not the catalog entry")
	}
	if !strings.HasPrefix(tags[0].ID, "tag-match-1700000000000-0") {
		t.Fatalf("tag id = %q", tags[0].ID)
	}
}

func TestBuild_SynthesizedProduct(t *testing.T) {
	b := newTestBuilder(1)
	items := []domain.DetectedItem{
		{Name: "Earthenware Pot"},
		{Name: "Bamboo Steamer", KoreanName: "대나무 찜기", SearchKeyword: "bamboo steamer basket",
			Description: "Stacked steamer", SuggestedCategory: domain.CategoryTool},
		{Name: "Spicy Sauce"},
	}
	tags := b.Build(items)
	if len(tags) != 3 {
		t.Fatalf("tags = %d", len(tags))
	}

	want := &domain.Product{
		ID:            "prod-gen-1700000000000-1",
		NameEn:        "Bamboo Steamer",
		NameKr:        "대나무 찜기",
		SearchKeyword: "bamboo steamer basket",
		Description:   "Stacked steamer",
		Category:      domain.CategoryTool,
		PriceUSD:      30,
		PriceKRW:      34000,
		Links: domain.Links{
			Global: "https://amazon.com/s?k=bamboo%20steamer%20basket",
			KR:     "https://coupang.com/np/search?q=%EB%8C%80%EB%82%98%EB%AC%B4%20%EC%B0%9C%EA%B8%B0",
		},
	}
	if diff := cmp.Diff(want, tags[1].Product); diff != "" {
		t.Fatalf("synthesized product mismatch (-want +got):\n%s", diff)
	}
	if tags[1].ID != "tag-gen-1700000000000-1" {
		t.Fatalf("tag id = %q", tags[1].ID)
	}

	third := tags[2].Product
	if third.PriceUSD != 35 || third.PriceKRW != 39000 {
		t.Fatalf("index 2 pricing = %v / %v", third.PriceUSD, third.PriceKRW)
	}
	if !strings.Contains(third.Links.Global, "Spicy%20Sauce") || third.NameKr != "Spicy Sauce" {
		t.Fatalf("fallback search term not used: %+v", third)
	}
	if third.Category != domain.CategoryIngredient {
		t.Fatalf("missing category should default to ingredient, got %q", third.Category)
	}
}

func TestResolve(t *testing.T) {
	cat := testCatalog()
	b := newTestBuilder(1)
	b.Matcher = NewMatcher(cat)
	if p := b.Resolve(domain.DetectedItem{Name: "gochujang red pepper paste"}, 0); p != cat[2] {
		t.Fatalf("Resolve did not return catalog entry: %+v", p)
	}
	if p := b.Resolve(domain.DetectedItem{Name: "Perilla Leaves"}, 2); p.PriceUSD != 35 || !strings.HasPrefix(p.ID, "prod-gen-") {
		t.Fatalf("Resolve synthesized = %+v", p)
	}
}
