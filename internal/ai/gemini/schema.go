package gemini

import (
	"encoding/base64"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/tbourn/k-kitchen/internal/domain"
)

var categoryEnum = []string{
	string(domain.CategoryTool), string(domain.CategoryIngredient), string(domain.CategoryTableware),
	string(domain.CategorySnack), string(domain.CategorySauce), string(domain.CategoryKit), string(domain.CategoryDrink),
}

func imageConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}}
}

func jsonConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func itemsSchema(withReason bool) *genai.Schema {
	props := map[string]*genai.Schema{
		"name":              str(),
		"koreanName":        str(),
		"searchKeyword":     str(),
		"description":       str(),
		"suggestedCategory": {Type: genai.TypeString, Enum: categoryEnum},
		"confidence":        {Type: genai.TypeNumber},
		"boundingBox": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeNumber},
			Description: "ymin, xmin, ymax, xmax (0-100)",
		},
	}
	required := []string{"name", "suggestedCategory"}
	if withReason {
		props["reason"] = str()
		required = append(required, "reason")
	}
	return &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required},
	}
}

func copySchema() *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"title": str(), "description": str()},
		Required:   []string{"title", "description"},
	}
}

func localizationSchema() *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"localizedName": str(), "localizedDescription": str()},
		Required:   []string{"localizedName"},
	}
}

// decodeImage accepts raw base64 or a data URI.
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty image")
	}
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data uri")
		}
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}

func storySchema() *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"story": str()},
		Required:   []string{"story"},
	}
}
