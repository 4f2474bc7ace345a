package jaat

import (
	"context"
	"fmt"
	"strings"
)

// Prompt is everything a generation backend needs for one turn.
type Prompt struct {
	PersonaID    string
	PersonaName  string
	SystemPrompt string
	RequestType  string
	Tag          string
	Input        string
	History      []Turn
	Draft        string // templated response, used as guidance or returned as-is
}

// Generator is the single extension point to a language-generation backend.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, p Prompt) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, p Prompt) (string, error) { return f(ctx, p) }

// DraftGenerator returns the templated draft unchanged. It is the default
// when no backend is configured.
type DraftGenerator struct{}

func (DraftGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(p.Draft) == "" {
		return "", fmt.Errorf("no template for request type %q", p.RequestType)
	}
	return p.Draft, nil
}

// Instruction renders the per-turn guidance sent alongside the user input.
func (p Prompt) Instruction() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request type: %s\n", p.RequestType)
	if p.Tag != "" {
		fmt.Fprintf(&b, "Focus: %s\n", p.Tag)
	}
	if p.Draft != "" {
		b.WriteString("Reference reply (match its tone and structure, improve freely):\n")
		b.WriteString(p.Draft)
	}
	return b.String()
}

var (
	_ Generator = DraftGenerator{}
	_ Generator = GeneratorFunc(nil)
)
