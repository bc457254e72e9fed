package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/utils"
)

// Rule is a declarative product predicate. A product satisfies the rule when
// its id is listed in IDs, its lower-cased English name contains one of
// NameContains, or its category is listed in Categories. An empty rule
// matches nothing. ExcludePrimary rejects the primary product itself.
type Rule struct {
	IDs            []string          `yaml:"ids"`
	NameContains   []string          `yaml:"nameContains"`
	Categories     []domain.Category `yaml:"categories"`
	ExcludePrimary bool              `yaml:"excludePrimary"`
}

// Empty reports whether the rule can never match.
func (r Rule) Empty() bool {
	return len(r.IDs) == 0 && len(r.NameContains) == 0 && len(r.Categories) == 0
}

// Matches evaluates the rule for p given the chosen primary product.
func (r Rule) Matches(p, primary *domain.Product) bool {
	if p == nil {
		return false
	}
	if r.ExcludePrimary && primary != nil && p.ID == primary.ID {
		return false
	}
	if slices.Contains(r.IDs, p.ID) {
		return true
	}
	if len(r.NameContains) > 0 {
		name := strings.ToLower(p.NameEn)
		for _, sub := range r.NameContains {
			if sub != "" && strings.Contains(name, strings.ToLower(sub)) {
				return true
			}
		}
	}
	return slices.Contains(r.Categories, p.Category)
}

// Scenario describes one kind of meal post: which products feature in it,
// how the scene is prompted, and which enhancements it receives.
type Scenario struct {
	Name                string            `yaml:"name"                json:"name"`
	Primary             Rule              `yaml:"primary"             json:"-"`
	Secondary           Rule              `yaml:"secondary"           json:"-"`
	SecondaryCount      int               `yaml:"secondaryCount"      json:"secondary_count"`
	Food                string            `yaml:"food"                json:"food"`
	Setting             string            `yaml:"setting"             json:"setting"`
	ImageStyle          domain.ImageStyle `yaml:"imageStyle"          json:"image_style"`
	IsRecipe            bool              `yaml:"isRecipe"            json:"is_recipe"`
	GeneratesEssentials bool              `yaml:"generatesEssentials" json:"generates_essentials"`
}

func (s Scenario) validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("scenario: missing name")
	case s.Primary.Empty():
		return fmt.Errorf("scenario %q: primary rule is empty", s.Name)
	case s.SecondaryCount < 0:
		return fmt.Errorf("scenario %q: secondaryCount must be >= 0", s.Name)
	case s.ImageStyle != domain.ImageStylePerson && s.ImageStyle != domain.ImageStyleFoodOnly:
		return fmt.Errorf("scenario %q: unknown imageStyle %q", s.Name, s.ImageStyle)
	case strings.TrimSpace(s.Food) == "":
		return fmt.Errorf("scenario %q: missing food prompt", s.Name)
	}
	return nil
}

const (
	phPrimary = "{{primary}}"
	phVariety = "{{variety}}"
	phHack    = "{{hack}}"
)

// Prompt renders the scenario's food and setting text for the chosen
// products (primary first). Random draws happen only for placeholders that
// are present.
func (c *Catalog) Prompt(s Scenario, products []*domain.Product, r utils.Rand) (food, setting string) {
	var primary *domain.Product
	if len(products) > 0 {
		primary = products[0]
	}
	render := func(tpl string) string {
		if !strings.Contains(tpl, "{{") {
			return tpl
		}
		if primary != nil {
			tpl = strings.ReplaceAll(tpl, phPrimary, primary.NameEn)
		}
		if strings.Contains(tpl, phVariety) && len(c.VarietySettings) > 0 {
			tpl = strings.ReplaceAll(tpl, phVariety, utils.Pick(r, c.VarietySettings))
		}
		if strings.Contains(tpl, phHack) {
			hack := "with a secret twist"
			if primary != nil {
				if hs := c.Hacks[primary.ID]; len(hs) > 0 {
					hack = utils.Pick(r, hs)
				}
			}
			tpl = strings.ReplaceAll(tpl, phHack, hack)
		}
		return tpl
	}
	return render(s.Food), render(s.Setting)
}
