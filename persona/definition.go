// Package persona loads persona definitions from YAML and compiles them
// into jaat.PersonaConfig values.
package persona

import (
	"crypto/sha256"
	"fmt"

	"gopkg.in/yaml.v3"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

// Definition is the YAML form of a persona. Rule tables, tag extraction,
// templates and suggestion pools are data; persona specific behavior that
// cannot be expressed here is attached in Go through Compiler options.
type Definition struct {
	ID          string `yaml:"id" json:"id"`
	Key         string `yaml:"key,omitempty" json:"key,omitempty"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Icon        string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Color       string `yaml:"color,omitempty" json:"color,omitempty"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`

	MaxMemoryItems int      `yaml:"max_memory_items,omitempty" json:"maxMemoryItems,omitempty"`
	SystemPrompt   string   `yaml:"system_prompt,omitempty" json:"systemPrompt,omitempty"`
	Disclaimer     string   `yaml:"disclaimer,omitempty" json:"disclaimer,omitempty"`
	EmptyInputText string   `yaml:"empty_input_text,omitempty" json:"emptyInputText,omitempty"`
	Greetings      []string `yaml:"greetings,omitempty" json:"greetings,omitempty"`
	Starters       []string `yaml:"starters,omitempty" json:"starters,omitempty"`
	Features       []string `yaml:"features,omitempty" json:"features,omitempty"`

	TagName          string `yaml:"tag_name,omitempty" json:"tagName,omitempty"`
	ExcludedTagsPref string `yaml:"excluded_tags_pref,omitempty" json:"excludedTagsPref,omitempty"`

	RequestTypes RuleTableSpec       `yaml:"request_types" json:"requestTypes"`
	Tags         TagSpec             `yaml:"tags,omitempty" json:"tags,omitempty"`
	Templates    []TemplateSpec      `yaml:"templates,omitempty" json:"templates,omitempty"`
	Fallback     string              `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	Suggestions  jaat.SuggestionPool `yaml:"suggestions,omitempty" json:"suggestions,omitempty"`

	Settings    map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
	Preferences map[string]any `yaml:"preferences,omitempty" json:"preferences,omitempty"`
	State       map[string]any `yaml:"state,omitempty" json:"state,omitempty"`

	// Extra holds persona specific tables decoded by Go code (DecodeExtra).
	Extra yaml.Node `yaml:"extra,omitempty" json:"-"`
}

// RuleTableSpec is an ordered rule list with a default tag.
type RuleTableSpec struct {
	Default string     `yaml:"default" json:"default"`
	Rules   []RuleSpec `yaml:"rules" json:"rules"`
}

// RuleSpec names the tag produced when its predicate matches.
type RuleSpec struct {
	Tag           string `yaml:"tag" json:"tag"`
	PredicateSpec `yaml:",inline" json:",inline"`
}

// PredicateSpec describes a predicate. When several fields are set they
// must all match.
type PredicateSpec struct {
	Regex    string          `yaml:"regex,omitempty" json:"regex,omitempty"`
	Contains []string        `yaml:"contains,omitempty" json:"contains,omitempty"`
	Words    []string        `yaml:"words,omitempty" json:"words,omitempty"`
	TagIn    []string        `yaml:"tag_in,omitempty" json:"tagIn,omitempty"`
	All      []PredicateSpec `yaml:"all,omitempty" json:"all,omitempty"`
	Any      []PredicateSpec `yaml:"any,omitempty" json:"any,omitempty"`
	Not      *PredicateSpec  `yaml:"not,omitempty" json:"not,omitempty"`
	Lua      string          `yaml:"lua,omitempty" json:"lua,omitempty"`
	Ref      string          `yaml:"ref,omitempty" json:"ref,omitempty"` // predicate registered with WithPredicate
}

// IsZero reports whether no field is set.
func (p PredicateSpec) IsZero() bool {
	return p.Regex == "" && len(p.Contains) == 0 && len(p.Words) == 0 &&
		len(p.TagIn) == 0 && len(p.All) == 0 && len(p.Any) == 0 &&
		p.Not == nil && p.Lua == "" && p.Ref == ""
}

// TagSpec configures secondary tag extraction. Extractors run in the order
// rules, lookup, capture; the first non-empty tag wins.
type TagSpec struct {
	Rules      []RuleSpec      `yaml:"rules,omitempty" json:"rules,omitempty"`
	Lookup     *LookupSpec     `yaml:"lookup,omitempty" json:"lookup,omitempty"`
	Capture    *CaptureSpec    `yaml:"capture,omitempty" json:"capture,omitempty"`
	Vocabulary *VocabularySpec `yaml:"vocabulary,omitempty" json:"vocabulary,omitempty"`
}

// LookupSpec maps the last capture of Pattern through Table.
type LookupSpec struct {
	Pattern string            `yaml:"pattern" json:"pattern"`
	Table   map[string]string `yaml:"table" json:"table"`
}

// CaptureSpec lists capture patterns resolved through the vocabulary.
type CaptureSpec struct {
	Patterns      []string `yaml:"patterns" json:"patterns"`
	DirectMention bool     `yaml:"direct_mention,omitempty" json:"directMention,omitempty"`
}

// VocabularySpec is the YAML form of jaat.Vocabulary.
type VocabularySpec struct {
	Terms         []string `yaml:"terms" json:"terms"`
	StopWords     []string `yaml:"stop_words,omitempty" json:"stopWords,omitempty"`
	MinLength     int      `yaml:"min_length,omitempty" json:"minLength,omitempty"`
	AllowFreeText *bool    `yaml:"allow_free_text,omitempty" json:"allowFreeText,omitempty"`
}

// TemplateSpec binds a text/template source or a pool of alternatives to a
// request type and optional tag.
type TemplateSpec struct {
	RequestType string   `yaml:"request_type" json:"requestType"`
	Tag         string   `yaml:"tag,omitempty" json:"tag,omitempty"`
	Text        string   `yaml:"text,omitempty" json:"text,omitempty"`
	Pool        []string `yaml:"pool,omitempty" json:"pool,omitempty"`
}

// DecodeExtra decodes the extra section into v. An absent section leaves v
// untouched.
func (d *Definition) DecodeExtra(v any) error {
	if d.Extra.Kind == 0 {
		return nil
	}
	if err := d.Extra.Decode(v); err != nil {
		return fmt.Errorf("persona %s: decode extra: %w", d.ID, err)
	}
	return nil
}

// Hash returns a content hash of the definition, used to detect re-uploads
// of an identical definition.
func (d *Definition) Hash() string {
	data, err := yaml.Marshal(d)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
