// Package gemini implements the AI collaborators on Google's Gemini API via
// google.golang.org/genai: avatar and scene images, guided vision analysis,
// recipe essentials, post copy, and product localization.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/tbourn/k-kitchen/internal/ai/prompts"
	"github.com/tbourn/k-kitchen/internal/domain"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"
)

// Resolver turns a detected essential into a product, matching the catalog
// first. *tagging.Builder satisfies it.
type Resolver interface {
	Resolve(item domain.DetectedItem, index int) *domain.Product
}

// Config holds client settings.
type Config struct {
	APIKey     string
	TextModel  string
	ImageModel string
}

// Client talks to Gemini. It is safe for concurrent use.
type Client struct {
	models     *genai.Models
	textModel  string
	imageModel string
	resolver   Resolver
}

// New creates a Client. resolver is required for GenerateEssentials.
func New(ctx context.Context, cfg Config, resolver Resolver) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c := &Client{
		models:     gc.Models,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		resolver:   resolver,
	}
	if c.textModel == "" {
		c.textModel = DefaultTextModel
	}
	if c.imageModel == "" {
		c.imageModel = DefaultImageModel
	}
	return c, nil
}

func span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("ai/gemini").Start(ctx, name, trace.WithAttributes(attrs...))
}

// GenerateAvatar renders a portrait for the persona.
func (c *Client) GenerateAvatar(ctx context.Context, a domain.Author) (string, error) {
	ctx, sp := span(ctx, "GenerateAvatar", attribute.String("author.id", a.ID))
	defer sp.End()

	contents := []*genai.Content{genai.NewContentFromText(prompts.Avatar(a), genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, c.imageModel, contents, imageConfig())
	if err != nil {
		sp.RecordError(err)
		return "", fmt.Errorf("gemini avatar: %w", err)
	}
	return firstImage(resp)
}

// GenerateScene renders the post photo using the avatar as identity
// reference.
func (c *Client) GenerateScene(ctx context.Context, req domain.SceneRequest) (string, error) {
	ctx, sp := span(ctx, "GenerateScene", attribute.String("style", string(req.Style)))
	defer sp.End()

	parts := []*genai.Part{}
	if ref, err := decodeImage(req.ReferenceAvatar); err == nil && len(ref) > 0 && req.Style == domain.ImageStylePerson {
		parts = append(parts, genai.NewPartFromBytes(ref, http.DetectContentType(ref)))
	}
	parts = append(parts, genai.NewPartFromText(prompts.Scene(req)))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, c.imageModel, contents, imageConfig())
	if err != nil {
		sp.RecordError(err)
		return "", fmt.Errorf("gemini scene: %w", err)
	}
	return firstImage(resp)
}

// AnalyzeImage detects food and kitchenware in image, guided by hints.
func (c *Client) AnalyzeImage(ctx context.Context, image string, hints []*domain.Product) ([]domain.DetectedItem, error) {
	ctx, sp := span(ctx, "AnalyzeImage", attribute.Int("hints", len(hints)))
	defer sp.End()

	text, err := c.askAboutImage(ctx, image, prompts.Vision(hints), itemsSchema(false))
	if err != nil {
		sp.RecordError(err)
		return nil, fmt.Errorf("gemini vision: %w", err)
	}
	return prompts.ParseDetected(text)
}

// GenerateEssentials lists the products needed to cook the pictured dish.
func (c *Client) GenerateEssentials(ctx context.Context, image, dish string) ([]domain.RecipeEssential, error) {
	ctx, sp := span(ctx, "GenerateEssentials", attribute.String("dish", dish))
	defer sp.End()

	if c.resolver == nil {
		return nil, errors.New("gemini essentials: no product resolver")
	}
	text, err := c.askAboutImage(ctx, image, prompts.Essentials(dish), itemsSchema(true))
	if err != nil {
		sp.RecordError(err)
		return nil, fmt.Errorf("gemini essentials: %w", err)
	}
	items, err := prompts.ParseItems(text)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RecipeEssential, 0, len(items))
	for i, it := range items {
		out = append(out, domain.RecipeEssential{Product: c.resolver.Resolve(it.Detected(), i), Reason: it.Reason})
	}
	return out, nil
}

// GenerateCopy writes the post title and description.
func (c *Client) GenerateCopy(ctx context.Context, req domain.CopyRequest) (domain.PostCopy, error) {
	ctx, sp := span(ctx, "GenerateCopy", attribute.String("author.id", req.Author.ID))
	defer sp.End()

	text, err := c.askText(ctx, prompts.Copy(req), copySchema())
	if err != nil {
		sp.RecordError(err)
		return domain.PostCopy{}, fmt.Errorf("gemini copy: %w", err)
	}
	return prompts.ParseCopy(text)
}

// LocalizeProduct translates p's display fields for a. English-reading
// personas get nil, meaning the product stays as is.
func (c *Client) LocalizeProduct(ctx context.Context, p *domain.Product, a domain.Author) (*domain.Localization, error) {
	if p == nil || prompts.IsEnglish(prompts.LanguageFor(a.Country)) {
		return nil, nil
	}
	ctx, sp := span(ctx, "LocalizeProduct", attribute.String("product.id", p.ID))
	defer sp.End()

	text, err := c.askText(ctx, prompts.Localize(p, a), localizationSchema())
	if err != nil {
		sp.RecordError(err)
		return nil, fmt.Errorf("gemini localize: %w", err)
	}
	return prompts.ParseLocalization(text)
}

// GenerateAuthorStory writes a short first-person profile story.
func (c *Client) GenerateAuthorStory(ctx context.Context, a domain.Author) (string, error) {
	ctx, sp := span(ctx, "GenerateAuthorStory", attribute.String("author.id", a.ID))
	defer sp.End()

	text, err := c.askText(ctx, prompts.Story(a), storySchema())
	if err != nil {
		sp.RecordError(err)
		return "", fmt.Errorf("gemini story: %w", err)
	}
	return prompts.ParseStory(text)
}

func (c *Client) askText(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, c.textModel, contents, jsonConfig(schema))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (c *Client) askAboutImage(ctx context.Context, image, prompt string, schema *genai.Schema) (string, error) {
	img, err := decodeImage(image)
	if err != nil {
		return "", err
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(img, http.DetectContentType(img)),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, c.textModel, contents, jsonConfig(schema))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// firstImage returns the first inline image of resp, base64 encoded.
func firstImage(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", prompts.ErrEmptyReply
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
			}
		}
	}
	return "", errors.New("gemini reply contains no image")
}
