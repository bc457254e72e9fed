package catalog

import (
	"time"

	"github.com/tbourn/k-kitchen/internal/domain"
)

// SeedTag places a catalog product on a seed post.
type SeedTag struct {
	ID        string  `yaml:"id"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	ProductID string  `yaml:"productId"`
}

// SeedEssential recommends a catalog product for a seed post's recipe.
type SeedEssential struct {
	ProductID string `yaml:"productId"`
	Reason    string `yaml:"reason"`
}

// SeedPost is a curated post used to populate an empty feed.
type SeedPost struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	AuthorID    string            `yaml:"authorId"`
	ImageURL    string            `yaml:"imageUrl"`
	VideoURL    string            `yaml:"videoUrl"`
	AudioURL    string            `yaml:"audioUrl"`
	Description string            `yaml:"description"`
	Likes       int               `yaml:"likes"`
	IsRecipe    bool              `yaml:"isRecipe"`
	Difficulty  domain.Difficulty `yaml:"difficulty"`
	Tags        []SeedTag         `yaml:"tags"`
	Essentials  []SeedEssential   `yaml:"essentials"`
}

// SeedFeed resolves the curated seed posts into domain posts. Posts are
// stamped one minute apart, newest first, ending at now.
func (c *Catalog) SeedFeed(now time.Time) []domain.Post {
	out := make([]domain.Post, 0, len(c.SeedPosts))
	for i, sp := range c.SeedPosts {
		author, _ := c.Persona(sp.AuthorID)
		p := domain.Post{
			ID:          sp.ID,
			Title:       sp.Title,
			Description: sp.Description,
			AuthorID:    author.ID,
			Author:      author,
			ImageURL:    sp.ImageURL,
			VideoURL:    sp.VideoURL,
			AudioURL:    sp.AudioURL,
			Likes:       sp.Likes,
			IsRecipe:    sp.IsRecipe,
			Difficulty:  sp.Difficulty,
			CreatedAt:   now.Add(-time.Duration(i) * time.Minute),
		}
		for _, t := range sp.Tags {
			prod, _ := c.Product(t.ProductID)
			p.Tags = append(p.Tags, domain.Tag{ID: t.ID, X: t.X, Y: t.Y, Product: prod})
		}
		for _, e := range sp.Essentials {
			prod, _ := c.Product(e.ProductID)
			p.RecipeEssentials = append(p.RecipeEssentials, domain.RecipeEssential{Product: prod, Reason: e.Reason})
		}
		out = append(out, p)
	}
	return out
}
