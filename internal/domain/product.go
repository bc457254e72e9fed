package domain

import "strings"

// Category classifies catalog products.
type Category string

const (
	CategoryTool       Category = "tool"
	CategoryIngredient Category = "ingredient"
	CategoryTableware  Category = "tableware"
	CategorySnack      Category = "snack"
	CategorySauce      Category = "sauce"
	CategoryKit        Category = "kit"
	CategoryDrink      Category = "drink"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTool, CategoryIngredient, CategoryTableware, CategorySnack,
		CategorySauce, CategoryKit, CategoryDrink:
		return true
	}
	return false
}

// ParseCategory normalizes a free-form category string (as returned by AI
// collaborators). Unknown values map to CategoryIngredient.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryIngredient
}

// Links holds the two purchase links of a product: a global storefront and
// the home-market (Korean) storefront.
type Links struct {
	Global string `json:"global" yaml:"global"`
	KR     string `json:"kr"     yaml:"kr"`
}

// Product is a shoppable item. Catalog products are static configuration;
// synthesized products are built per tag from vision output.
type Product struct {
	ID            string   `json:"id"                       yaml:"id"`
	NameEn        string   `json:"name_en"                  yaml:"nameEn"`
	NameKr        string   `json:"name_kr"                  yaml:"nameKr"`
	SearchKeyword string   `json:"search_keyword,omitempty" yaml:"searchKeyword,omitempty"`
	Description   string   `json:"description"              yaml:"description"`
	Category      Category `json:"category"                 yaml:"category"`
	PriceUSD      float64  `json:"price_usd"                yaml:"priceUsd"`
	PriceKRW      int      `json:"price_krw"                yaml:"priceKrw"`
	Links         Links    `json:"links"                    yaml:"links"`
	Image         string   `json:"image"                    yaml:"image"`
	IsBestseller  bool     `json:"is_bestseller,omitempty"  yaml:"isBestseller,omitempty"`
	BestVideoURL  string   `json:"best_video_url,omitempty" yaml:"bestVideoUrl,omitempty"`
	ProductTags   []string `json:"product_tags,omitempty"   yaml:"tags,omitempty"`
}

// Clone returns a copy of p that shares no slices with it.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	if p.ProductTags != nil {
		cp.ProductTags = append([]string(nil), p.ProductTags...)
	}
	return &cp
}

// Author is an AI persona. The pool is fixed configuration.
type Author struct {
	ID        string `json:"id"                 yaml:"id"`
	Name      string `json:"name"               yaml:"name"`
	Title     string `json:"title,omitempty"    yaml:"title,omitempty"`
	Badge     string `json:"badge,omitempty"    yaml:"badge,omitempty"`
	Country   string `json:"country,omitempty"  yaml:"country,omitempty"`
	Timezone  string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Followers int    `json:"followers"          yaml:"followers"`
	Avatar    string `json:"avatar,omitempty"   yaml:"avatar,omitempty"`
	Bio       string `json:"bio,omitempty"      yaml:"bio,omitempty"`
}

// DetectedItem is one object reported by a vision analyzer.
// BoundingBox, when present, is [ymin, xmin, ymax, xmax] on a 0-100 scale.
type DetectedItem struct {
	Name              string    `json:"name"`
	KoreanName        string    `json:"korean_name,omitempty"`
	SearchKeyword     string    `json:"search_keyword,omitempty"`
	Description       string    `json:"description"`
	SuggestedCategory Category  `json:"suggested_category"`
	Confidence        float64   `json:"confidence"`
	BoundingBox       []float64 `json:"bounding_box,omitempty"`
}

// Tag pins a product onto a post image. X and Y are percentages in [0,100].
type Tag struct {
	ID      string   `json:"id"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Product *Product `json:"product"`
}

// RecipeEssential is a product recommended for cooking the pictured dish.
type RecipeEssential struct {
	Product *Product `json:"product"`
	Reason  string   `json:"reason"`
}

// Localization carries translated display fields for a product.
type Localization struct {
	Name        string `json:"localized_name"`
	Description string `json:"localized_description"`
}

// PostCopy is the generated text of a post.
type PostCopy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ImageStyle tells the scene generator whether a person appears in the shot.
type ImageStyle string

const (
	ImageStylePerson   ImageStyle = "person"
	ImageStyleFoodOnly ImageStyle = "food_only"
)

// SceneRequest is the input of a scene image generation call.
type SceneRequest struct {
	ReferenceAvatar string
	Food            string
	Setting         string
	Style           ImageStyle
}

// CopyRequest is the input of a copy generation call.
type CopyRequest struct {
	Author   Author
	Product  *Product
	IsRecipe bool
	Food     string
}
