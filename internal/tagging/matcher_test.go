package tagging

import (
	"testing"

	"github.com/tbourn/k-kitchen/internal/domain"
)

func testCatalog() []*domain.Product {
	return []*domain.Product{
		{ID: "pot", NameEn: "Earthenware Pot", Category: domain.CategoryTool, PriceUSD: 22.5, PriceKRW: 19800,
			Links: domain.Links{Global: "https://amazon.com/s?k=earthenware+pot", KR: "https://coupang.com/np/search?q=ttukbaegi"}},
		{ID: "egg", NameEn: "Egg", Category: domain.CategoryIngredient, PriceUSD: 6},
		{ID: "paste", NameEn: "Gochujang Red Pepper Paste", Category: domain.CategorySauce, PriceUSD: 9.5},
	}
}

func TestMatcher_NameSubstringBothDirections(t *testing.T) {
	m := NewMatcher(testCatalog())

	p, rule, ok := m.Match(domain.DetectedItem{Name: "Large earthenware pot with stew"})
	if !ok || p.ID != "pot" || rule != RuleNameSubstring {
		t.Fatalf("detected contains catalog name: got %v %q %v", p, rule, ok)
	}
	p, _, ok = m.Match(domain.DetectedItem{Name: "earthenware"})
	if !ok || p.ID != "pot" {
		t.Fatalf("catalog name contains detected: got %v %v", p, ok)
	}
}

func TestMatcher_ShortNameFalsePositiveIsPreserved(t *testing.T) {
	m := NewMatcher(testCatalog())
	p, _, ok := m.Match(domain.DetectedItem{Name: "Eggplant Side Dish"})
	if !ok || p.ID != "egg" {
		t.Fatalf("expected short catalog name to match by substring, got %v %v", p, ok)
	}
}

func TestMatcher_KeywordToken(t *testing.T) {
	m := NewMatcher(testCatalog())
	p, rule, ok := m.Match(domain.DetectedItem{Name: "Red sauce", SearchKeyword: "korean gochujang tub"})
	if !ok || p.ID != "paste" || rule != RuleKeywordToken {
		t.Fatalf("got %v %q %v", p, rule, ok)
	}
	// "red" is only three characters and must not match on its own.
	if p, _, ok := m.Match(domain.DetectedItem{Name: "Chili sauce", SearchKeyword: "red"}); ok {
		t.Fatalf("short token matched: %v", p)
	}
}

func TestMatcher_EmptyNameNeverNameMatches(t *testing.T) {
	m := NewMatcher(testCatalog())
	if p, _, ok := m.Match(domain.DetectedItem{Name: "  "}); ok {
		t.Fatalf("empty name matched %v", p)
	}
}

func TestMatcher_CatalogOrderWins(t *testing.T) {
	// Matches "pot" by keyword and "egg" by name; "pot" comes first in the catalog.
	m := NewMatcher(testCatalog())
	p, rule, ok := m.Match(domain.DetectedItem{Name: "egg", SearchKeyword: "earthenware bowl"})
	if !ok || p.ID != "pot" || rule != RuleKeywordToken {
		t.Fatalf("got %v %q %v; want pot via keyword", p, rule, ok)
	}
}

func TestMatcher_CustomRulesSortedByPriority(t *testing.T) {
	var calls []string
	rec := func(name string, result bool) Predicate {
		return func(*domain.Product, domain.DetectedItem) bool {
			calls = append(calls, name)
			return result
		}
	}
	m := NewMatcher([]*domain.Product{{ID: "only"}},
		Rule{Name: "late", Priority: 5, Match: rec("late", true)},
		Rule{Name: "early", Priority: 1, Match: rec("early", false)},
	)
	_, rule, ok := m.Match(domain.DetectedItem{Name: "x"})
	if !ok || rule != "late" {
		t.Fatalf("got rule %q ok=%v", rule, ok)
	}
	if len(calls) != 2 || calls[0] != "early" || calls[1] != "late" {
		t.Fatalf("rules evaluated out of priority order: %v", calls)
	}
}
