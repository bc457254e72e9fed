// Package tagging turns vision output into shoppable tags. Detected items
// are matched against the static catalog with an explicit ranked rule list;
// items that match nothing get a synthesized one-off product.
package tagging

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/k-kitchen/internal/domain"
)

// Predicate decides whether catalog product p corresponds to item.
type Predicate func(p *domain.Product, item domain.DetectedItem) bool

// Rule is a named predicate with a priority. Lower priorities are tried first.
type Rule struct {
	Name     string
	Priority int
	Match    Predicate
}

const (
	RuleNameSubstring = "name-substring"
	RuleKeywordToken  = "keyword-token"
)

// minKeywordTokenLen is the length a catalog name token must exceed before it
// may match inside a search keyword.
const minKeywordTokenLen = 3

// DefaultRules returns the catalog matching rules:
//
//   - name-substring: the lower-cased detected name contains the catalog
//     English name, or the catalog name contains the detected name. Short
//     catalog names can produce false positives (e.g. "Egg").
//   - keyword-token: a space-separated token of the catalog English name,
//     longer than three characters, occurs inside the detected search keyword.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleNameSubstring, Priority: 0, Match: nameSubstring},
		{Name: RuleKeywordToken, Priority: 1, Match: keywordToken},
	}
}

func nameSubstring(p *domain.Product, item domain.DetectedItem) bool {
	detected := strings.ToLower(strings.TrimSpace(item.Name))
	if detected == "" {
		return false
	}
	cat := strings.ToLower(p.NameEn)
	return strings.Contains(detected, cat) || strings.Contains(cat, detected)
}

func keywordToken(p *domain.Product, item domain.DetectedItem) bool {
	kw := strings.ToLower(item.SearchKeyword)
	if kw == "" {
		return false
	}
	for _, w := range strings.Split(strings.ToLower(p.NameEn), " ") {
		if utf8.RuneCountInString(w) > minKeywordTokenLen && strings.Contains(kw, w) {
			return true
		}
	}
	return false
}

// Matcher resolves detected items to catalog products. Products are scanned
// in catalog order; for each product the rules are tried in priority order.
// The first satisfying (product, rule) pair wins. There is no scoring.
type Matcher struct {
	products []*domain.Product
	rules    []Rule
}

// NewMatcher builds a Matcher over products. Rules are sorted by priority,
// keeping the given order among equal priorities. No rules means
// DefaultRules.
func NewMatcher(products []*domain.Product, rules ...Rule) *Matcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	rs := append([]Rule(nil), rules...)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Priority < rs[j].Priority })
	return &Matcher{products: products, rules: rs}
}

// Match returns the first catalog product satisfying a rule and the name of
// that rule.
func (m *Matcher) Match(item domain.DetectedItem) (*domain.Product, string, bool) {
	for _, p := range m.products {
		for _, r := range m.rules {
			if r.Match(p, item) {
				return p, r.Name, true
			}
		}
	}
	return nil, "", false
}
