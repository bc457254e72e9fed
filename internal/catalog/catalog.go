// Package catalog holds the static configuration the feed generator works
// from: shoppable products, meal scenarios, personas, prompt variety tables,
// and curated seed posts. The default data set is embedded YAML; a file on
// disk can replace it at start-up.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/k-kitchen/internal/domain"
)

//go:embed data/catalog.yaml
var defaultData []byte

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	Products        []*domain.Product
	Scenarios       []Scenario
	Personas        []domain.Author
	VarietySettings []string
	Hacks           map[string][]string
	SeedPosts       []SeedPost

	byID map[string]*domain.Product
}

type file struct {
	Products        []*domain.Product   `yaml:"products"`
	Scenarios       []Scenario          `yaml:"scenarios"`
	Personas        []domain.Author     `yaml:"personas"`
	VarietySettings []string            `yaml:"varietySettings"`
	Hacks           map[string][]string `yaml:"hacks"`
	SeedPosts       []SeedPost          `yaml:"seedPosts"`
}

// Default parses the embedded data set.
func Default() (*Catalog, error) {
	return Parse(defaultData)
}

// Load reads a catalog from path. An empty path selects the embedded data.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c := &Catalog{
		Products:        f.Products,
		Scenarios:       f.Scenarios,
		Personas:        f.Personas,
		VarietySettings: f.VarietySettings,
		Hacks:           f.Hacks,
		SeedPosts:       f.SeedPosts,
		byID:            make(map[string]*domain.Product, len(f.Products)),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	var errs []error
	for i, p := range c.Products {
		switch {
		case p == nil || strings.TrimSpace(p.ID) == "":
			errs = append(errs, fmt.Errorf("product #%d: missing id", i))
			continue
		case strings.TrimSpace(p.NameEn) == "":
			errs = append(errs, fmt.Errorf("product %q: missing nameEn", p.ID))
		case !p.Category.Valid():
			errs = append(errs, fmt.Errorf("product %q: unknown category %q", p.ID, p.Category))
		}
		if _, dup := c.byID[p.ID]; dup {
			errs = append(errs, fmt.Errorf("product %q: duplicate id", p.ID))
		}
		c.byID[p.ID] = p
	}

	if len(c.Scenarios) == 0 {
		errs = append(errs, errors.New("catalog has no scenarios"))
	}
	for _, s := range c.Scenarios {
		if err := s.validate(); err != nil {
			errs = append(errs, err)
		}
	}

	seen := make(map[string]struct{}, len(c.Personas))
	for i, a := range c.Personas {
		if strings.TrimSpace(a.ID) == "" {
			errs = append(errs, fmt.Errorf("persona #%d: missing id", i))
			continue
		}
		if _, dup := seen[a.ID]; dup {
			errs = append(errs, fmt.Errorf("persona %q: duplicate id", a.ID))
		}
		seen[a.ID] = struct{}{}
	}

	for _, sp := range c.SeedPosts {
		if _, ok := seen[sp.AuthorID]; !ok {
			errs = append(errs, fmt.Errorf("seed post %q: unknown author %q", sp.ID, sp.AuthorID))
		}
		for _, t := range sp.Tags {
			if _, ok := c.byID[t.ProductID]; !ok {
				errs = append(errs, fmt.Errorf("seed post %q: unknown product %q", sp.ID, t.ProductID))
			}
		}
		for _, e := range sp.Essentials {
			if _, ok := c.byID[e.ProductID]; !ok {
				errs = append(errs, fmt.Errorf("seed post %q: unknown product %q", sp.ID, e.ProductID))
			}
		}
	}
	return errors.Join(errs...)
}

// Product returns the catalog entry with the given id.
func (c *Catalog) Product(id string) (*domain.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Persona returns the persona with the given id.
func (c *Catalog) Persona(id string) (domain.Author, bool) {
	for _, a := range c.Personas {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Author{}, false
}

// Authors returns a copy of the persona pool.
func (c *Catalog) Authors() []domain.Author {
	return append([]domain.Author(nil), c.Personas...)
}

// Filter returns the products satisfying rule, in catalog order. primary is
// the already chosen primary product (nil while resolving the primary).
func (c *Catalog) Filter(rule Rule, primary *domain.Product) []*domain.Product {
	var out []*domain.Product
	for _, p := range c.Products {
		if rule.Matches(p, primary) {
			out = append(out, p)
		}
	}
	return out
}
