// Package prompts builds the instructions sent to generative models and
// parses their structured replies. It is shared by every provider adapter.
package prompts

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/tbourn/k-kitchen/internal/domain"
)

var countryLanguages = map[string]language.Tag{
	"korea":          language.Korean,
	"south korea":    language.Korean,
	"usa":            language.AmericanEnglish,
	"united states":  language.AmericanEnglish,
	"uk":             language.BritishEnglish,
	"united kingdom": language.BritishEnglish,
	"japan":          language.Japanese,
	"china":          language.SimplifiedChinese,
	"brazil":         language.BrazilianPortuguese,
	"france":         language.French,
	"germany":        language.German,
	"spain":          language.Spanish,
	"mexico":         language.LatinAmericanSpanish,
	"italy":          language.Italian,
	"thailand":       language.Thai,
	"vietnam":        language.Vietnamese,
}

// LanguageFor maps a persona's country to the language its posts use.
// Unknown countries read English.
func LanguageFor(country string) language.Tag {
	if t, ok := countryLanguages[strings.ToLower(strings.TrimSpace(country))]; ok {
		return t
	}
	return language.English
}

// LanguageName is the English name of t, e.g. "Brazilian Portuguese".
func LanguageName(t language.Tag) string {
	if n := display.English.Tags().Name(t); n != "" {
		return n
	}
	return t.String()
}

// IsEnglish reports whether t is any English variant.
func IsEnglish(t language.Tag) bool {
	base, _ := t.Base()
	en, _ := language.English.Base()
	return base == en
}

// Avatar asks for a square portrait of the persona.
func Avatar(a domain.Author) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a warm, photorealistic square profile portrait of %s", a.Name)
	if a.Title != "" {
		fmt.Fprintf(&b, ", %s", a.Title)
	}
	if a.Country != "" {
		fmt.Fprintf(&b, ", a home cook from %s", a.Country)
	}
	b.WriteString(". Soft kitchen lighting, friendly expression, social media avatar framing.")
	if a.Bio != "" {
		fmt.Fprintf(&b, " Personality: %s", a.Bio)
	}
	return b.String()
}

// Scene asks for the post photo. The reference avatar is attached separately.
func Scene(req domain.SceneRequest) string {
	var b strings.Builder
	b.WriteString("Generate a vertical social media food photo.\n")
	fmt.Fprintf(&b, "FOOD: %s\n", req.Food)
	if req.Setting != "" {
		fmt.Fprintf(&b, "SETTING: %s\n", req.Setting)
	}
	if req.Style == domain.ImageStyleFoodOnly {
		b.WriteString("STYLE: food only, no people or hands in frame, overhead or 45 degree angle.\n")
	} else {
		b.WriteString("STYLE: the person from the reference image is enjoying or cooking the food, candid and natural.\n")
	}
	b.WriteString("Every product mentioned must be clearly visible. No text, logos or watermarks.")
	return b.String()
}

// Vision asks for detected items, optionally guided by the products that
// were requested in the scene.
func Vision(hints []*domain.Product) string {
	var b strings.Builder
	b.WriteString("You are an expert Korean chef and kitchenware specialist.\n")
	b.WriteString("Analyze this cooking image. Detect distinct food items and kitchen tools.\n\n")
	if len(hints) > 0 {
		b.WriteString("The image was created to feature these products; locate each of them if visible:\n")
		for _, p := range hints {
			if p == nil {
				continue
			}
			fmt.Fprintf(&b, "- %s (%s)\n", p.NameEn, p.Category)
		}
		b.WriteString("Also locate the main dish.\n\n")
	}
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. For each item estimate its bounding box as [ymin, xmin, ymax, xmax], integers 0-100.\n")
	b.WriteString("2. Do not duplicate items; group repeated pieces into one item.\n")
	b.WriteString("3. Give a confidence score between 0.0 and 1.0.\n")
	b.WriteString("4. Give a short shopping search keyword and the Korean name.\n")
	b.WriteString("Return a strict JSON array matching the schema.")
	return b.String()
}

// Essentials asks for the products needed to cook the pictured dish.
func Essentials(dish string) string {
	return fmt.Sprintf("This image shows %q. List up to 4 Korean ingredients or tools a viewer must buy to cook it at home. "+
		"For each give name, koreanName, searchKeyword, suggestedCategory and a one sentence reason. "+
		"Return a strict JSON array.", dish)
}

// Copy asks for the post title and caption in the persona's voice.
func Copy(req domain.CopyRequest) string {
	lang := LanguageFor(req.Author.Country)
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", req.Author.Name)
	if req.Author.Title != "" {
		fmt.Fprintf(&b, " (%s)", req.Author.Title)
	}
	fmt.Fprintf(&b, ", posting on a Korean food social app. Write in %s.\n", LanguageName(lang))
	fmt.Fprintf(&b, "The photo shows: %s.\n", req.Food)
	if req.Product != nil {
		fmt.Fprintf(&b, "Naturally mention %s.\n", req.Product.NameEn)
	}
	if req.IsRecipe {
		b.WriteString("This is a recipe post: include 3 short numbered steps in the description.\n")
	} else {
		b.WriteString("This is a casual moment post: 2-3 sentences, a few emojis and hashtags.\n")
	}
	b.WriteString(`Return JSON: {"title": "...", "description": "..."}. Title under 60 characters.`)
	return b.String()
}

// Localize asks for the product's display fields in the persona's language.
func Localize(p *domain.Product, a domain.Author) string {
	lang := LanguageFor(a.Country)
	return fmt.Sprintf("Translate this Korean kitchen product for a shopper in %s, writing in %s.\n"+
		"Name: %s\nDescription: %s\n"+
		`Return JSON: {"localizedName": "...", "localizedDescription": "..."}. Keep brand names.`,
		a.Country, LanguageName(lang), p.NameEn, p.Description)
}

// Story asks for a short first-person origin story for a persona's profile.
func Story(a domain.Author) string {
	lang := LanguageFor(a.Country)
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", a.Name)
	if a.Country != "" {
		fmt.Fprintf(&b, " from %s", a.Country)
	}
	fmt.Fprintf(&b, ". Write in %s, first person, 2-3 sentences, ", LanguageName(lang))
	b.WriteString("about how you fell in love with Korean home cooking.")
	if a.Bio != "" {
		fmt.Fprintf(&b, " Stay true to this bio: %s.", a.Bio)
	}
	b.WriteString(` Return JSON: {"story": "..."}.`)
	return b.String()
}

// FallbackStory is the canned persona story used when no model answers.
func FallbackStory(a domain.Author) string {
	from := a.Country
	if from == "" {
		from = "around the world"
	}
	return fmt.Sprintf("I'm %s from %s! I started my journey with a simple love for Kimchi "+
		"and now I'm here to share the joy of K-Kitchen with everyone.", a.Name, from)
}
