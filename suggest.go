package jaat

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxSuggestions is the number of follow-up suggestions returned per turn.
const MaxSuggestions = 3

// Suggestion is one follow-up candidate. WithTag, when set, replaces Text
// whenever a secondary tag is present and may reference it as {tag}.
type Suggestion struct {
	Text    string `yaml:"text" json:"text"`
	WithTag string `yaml:"with_tag,omitempty" json:"withTag,omitempty"`
}

// UnmarshalYAML accepts either a plain string or a {text, with_tag} mapping.
func (s *Suggestion) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Text = node.Value
		return nil
	}
	type plain Suggestion
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("suggestion: %w", err)
	}
	*s = Suggestion(p)
	return nil
}

// Render picks the text for tag.
func (s Suggestion) Render(tag string) string {
	if tag != "" && s.WithTag != "" {
		return strings.ReplaceAll(s.WithTag, "{tag}", tag)
	}
	return s.Text
}

// Texts builds plain suggestions from strings.
func Texts(items ...string) []Suggestion {
	out := make([]Suggestion, len(items))
	for i, t := range items {
		out[i] = Suggestion{Text: t}
	}
	return out
}

// SuggestionPool holds follow-up candidates by request type, by secondary
// tag, and a general pool.
type SuggestionPool struct {
	ByType  map[string][]Suggestion `yaml:"by_type"`
	ByTag   map[string][]Suggestion `yaml:"by_tag"`
	General []string                `yaml:"general"`
}

// Suggest returns up to MaxSuggestions unique suggestions: request-type
// candidates first, then tag candidates, then random draws from the
// general pool without replacement. When the union holds fewer unique
// entries, fewer are returned; duplicates are never padded in.
func (p *SuggestionPool) Suggest(requestType, tag string, r Rand) []string {
	if p == nil {
		return []string{}
	}
	out := make([]string, 0, MaxSuggestions)
	seen := make(map[string]bool)
	add := func(s string) {
		if s == "" || seen[s] || len(out) >= MaxSuggestions {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range p.ByType[requestType] {
		add(s.Render(tag))
	}
	if tag != "" {
		for _, s := range p.ByTag[tag] {
			add(s.Render(tag))
		}
	}
	if len(out) < MaxSuggestions {
		for _, s := range Sample(r, p.General, len(p.General)) {
			add(s)
			if len(out) >= MaxSuggestions {
				break
			}
		}
	}
	return out
}
