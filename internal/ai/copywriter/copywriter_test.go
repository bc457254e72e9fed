package copywriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/k-kitchen/internal/domain"
)

type stubLLM struct {
	reply string
	err   error
	user  string
	calls int
}

func (s *stubLLM) Complete(_ context.Context, _, user string) (string, error) {
	s.calls++
	s.user = user
	return s.reply, s.err
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Model: "gpt-4o-mini"}); err == nil {
		t.Fatalf("expected error without key")
	}
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected error without model")
	}
	w, err := New(Config{APIKey: "k", Model: "gpt-4o-mini", BaseURL: "http://localhost:1234/v1"})
	if err != nil || w.LLM == nil {
		t.Fatalf("New = %v, %v", w, err)
	}
}

func TestGenerateCopy(t *testing.T) {
	llm := &stubLLM{reply: "```json\n{\"title\":\"Sunday jjigae\",\"description\":\"Warm and spicy\"}\n```"}
	w := &Writer{LLM: llm}
	req := domain.CopyRequest{
		Author:  domain.Author{Name: "Mina", Country: "Korea"},
		Product: &domain.Product{NameEn: "Earthenware Pot"},
		Food:    "kimchi jjigae",
	}
	got, err := w.GenerateCopy(context.Background(), req)
	if err != nil || got.Title != "Sunday jjigae" {
		t.Fatalf("GenerateCopy = %+v, %v", got, err)
	}
	if !strings.Contains(llm.user, "Earthenware Pot") || !strings.Contains(llm.user, "Korean") {
		t.Fatalf("prompt missing inputs:\n%s", llm.user)
	}

	llm.err = errors.New("rate limited")
	if _, err := w.GenerateCopy(context.Background(), req); err == nil || !errors.Is(err, llm.err) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestLocalizeProduct(t *testing.T) {
	llm := &stubLLM{reply: `{"localizedName":"Tigela de pedra","localizedDescription":"Mantém o calor"}`}
	w := &Writer{LLM: llm}
	p := &domain.Product{ID: "bowl", NameEn: "Stone Bowl"}

	loc, err := w.LocalizeProduct(context.Background(), p, domain.Author{Country: "Brazil"})
	if err != nil || loc == nil || loc.Name != "Tigela de pedra" {
		t.Fatalf("LocalizeProduct = %+v, %v", loc, err)
	}

	llm.calls = 0
	loc, err = w.LocalizeProduct(context.Background(), p, domain.Author{Country: "USA"})
	if loc != nil || err != nil || llm.calls != 0 {
		t.Fatalf("english reader: %+v, %v, calls=%d", loc, err, llm.calls)
	}
}

func TestGenerateAuthorStory(t *testing.T) {
	llm := &stubLLM{reply: `{"story":"I found gochujang in a Paris market."}`}
	w := &Writer{LLM: llm}
	a := domain.Author{ID: "camille", Name: "Camille", Country: "France"}

	got, err := w.GenerateAuthorStory(context.Background(), a)
	if err != nil || got != "I found gochujang in a Paris market." {
		t.Fatalf("GenerateAuthorStory = %q, %v", got, err)
	}
	if !strings.Contains(llm.user, "Camille") {
		t.Fatalf("prompt missing persona:\n%s", llm.user)
	}

	llm.err = errors.New("timeout")
	if _, err := w.GenerateAuthorStory(context.Background(), a); !errors.Is(err, llm.err) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
