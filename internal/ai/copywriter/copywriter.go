// Package copywriter writes post copy and product localizations through an
// OpenAI-compatible chat completions endpoint.
package copywriter

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/k-kitchen/internal/ai/prompts"
	"github.com/tbourn/k-kitchen/internal/domain"
)

const systemPrompt = "You write short, upbeat social media food content. Reply with JSON only."

// Config holds endpoint settings. BaseURL is optional.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Completer sends one system+user exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Writer implements copy generation and localization on a Completer.
type Writer struct {
	LLM Completer
}

// New builds a Writer backed by the OpenAI SDK.
func New(cfg Config) (*Writer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Writer{LLM: &openAIChat{client: openai.NewClient(opts...), model: cfg.Model}}, nil
}

type openAIChat struct {
	client openai.Client
	model  string
}

func (o *openAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("ai/copywriter").Start(ctx, name, trace.WithAttributes(attrs...))
}

// GenerateCopy writes the post title and description.
func (w *Writer) GenerateCopy(ctx context.Context, req domain.CopyRequest) (domain.PostCopy, error) {
	ctx, sp := span(ctx, "GenerateCopy", attribute.String("author.id", req.Author.ID))
	defer sp.End()

	text, err := w.LLM.Complete(ctx, systemPrompt, prompts.Copy(req))
	if err != nil {
		sp.RecordError(err)
		return domain.PostCopy{}, fmt.Errorf("copywriter: %w", err)
	}
	return prompts.ParseCopy(text)
}

// LocalizeProduct translates p's display fields. English-reading personas
// get nil.
func (w *Writer) LocalizeProduct(ctx context.Context, p *domain.Product, a domain.Author) (*domain.Localization, error) {
	if p == nil || prompts.IsEnglish(prompts.LanguageFor(a.Country)) {
		return nil, nil
	}
	ctx, sp := span(ctx, "LocalizeProduct", attribute.String("product.id", p.ID))
	defer sp.End()

	text, err := w.LLM.Complete(ctx, systemPrompt, prompts.Localize(p, a))
	if err != nil {
		sp.RecordError(err)
		return nil, fmt.Errorf("copywriter localize: %w", err)
	}
	return prompts.ParseLocalization(text)
}

// GenerateAuthorStory writes a short first-person profile story.
func (w *Writer) GenerateAuthorStory(ctx context.Context, a domain.Author) (string, error) {
	ctx, sp := span(ctx, "GenerateAuthorStory", attribute.String("author.id", a.ID))
	defer sp.End()

	text, err := w.LLM.Complete(ctx, systemPrompt, prompts.Story(a))
	if err != nil {
		sp.RecordError(err)
		return "", fmt.Errorf("copywriter story: %w", err)
	}
	return prompts.ParseStory(text)
}
