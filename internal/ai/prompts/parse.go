package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/k-kitchen/internal/domain"
)

// ErrEmptyReply is returned when a model answered with no usable text.
var ErrEmptyReply = errors.New("empty model reply")

// StripJSONFence removes a surrounding ```json fence, if any.
func StripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Item is a detected item as models return it.
type Item struct {
	Name              string    `json:"name"`
	KoreanName        string    `json:"koreanName"`
	SearchKeyword     string    `json:"searchKeyword"`
	Description       string    `json:"description"`
	SuggestedCategory string    `json:"suggestedCategory"`
	Confidence        float64   `json:"confidence"`
	BoundingBox       []float64 `json:"boundingBox"`
	Reason            string    `json:"reason,omitempty"`
}

// Detected converts the wire item to the domain type.
func (it Item) Detected() domain.DetectedItem {
	return domain.DetectedItem{
		Name:              strings.TrimSpace(it.Name),
		KoreanName:        strings.TrimSpace(it.KoreanName),
		SearchKeyword:     strings.TrimSpace(it.SearchKeyword),
		Description:       it.Description,
		SuggestedCategory: domain.ParseCategory(it.SuggestedCategory),
		Confidence:        it.Confidence,
		BoundingBox:       it.BoundingBox,
	}
}

// ParseItems decodes a JSON array of items. Items without a name are
// dropped.
func ParseItems(text string) ([]Item, error) {
	text = StripJSONFence(text)
	if text == "" {
		return nil, ErrEmptyReply
	}
	var raw []Item
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	out := raw[:0]
	for _, it := range raw {
		if strings.TrimSpace(it.Name) != "" {
			out = append(out, it)
		}
	}
	return out, nil
}

// ParseDetected decodes a vision reply.
func ParseDetected(text string) ([]domain.DetectedItem, error) {
	items, err := ParseItems(text)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DetectedItem, len(items))
	for i, it := range items {
		out[i] = it.Detected()
	}
	return out, nil
}

// ParseCopy decodes a {title, description} reply.
func ParseCopy(text string) (domain.PostCopy, error) {
	text = StripJSONFence(text)
	if text == "" {
		return domain.PostCopy{}, ErrEmptyReply
	}
	var c domain.PostCopy
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return domain.PostCopy{}, fmt.Errorf("decode copy: %w", err)
	}
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	if c.Title == "" {
		return domain.PostCopy{}, errors.New("copy reply has no title")
	}
	return c, nil
}

// ParseLocalization decodes a localization reply. A reply without a
// localized name yields nil, meaning "keep the original".
func ParseLocalization(text string) (*domain.Localization, error) {
	text = StripJSONFence(text)
	if text == "" || text == "null" {
		return nil, nil
	}
	var wire struct {
		Name        string `json:"localizedName"`
		Description string `json:"localizedDescription"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("decode localization: %w", err)
	}
	if strings.TrimSpace(wire.Name) == "" {
		return nil, nil
	}
	return &domain.Localization{Name: strings.TrimSpace(wire.Name), Description: strings.TrimSpace(wire.Description)}, nil
}

// ParseStory decodes a {story} reply.
func ParseStory(text string) (string, error) {
	text = StripJSONFence(text)
	if text == "" {
		return "", ErrEmptyReply
	}
	var r struct {
		Story string `json:"story"`
	}
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return "", fmt.Errorf("decode story: %w", err)
	}
	if s := strings.TrimSpace(r.Story); s != "" {
		return s, nil
	}
	return "", ErrEmptyReply
}
