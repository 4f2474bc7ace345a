package persona

import (
	"fmt"
	"regexp"
	"strings"
)

// NormalizationWarning is a non-fatal issue found during normalization.
type NormalizationWarning struct {
	Field   string
	Message string
}

func (w NormalizationWarning) String() string { return w.Field + ": " + w.Message }

const maxMemoryItemsCap = 500

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Normalize validates a Definition and fills defaults. The input is not
// modified.
func Normalize(def *Definition) (*Definition, []NormalizationWarning, error) {
	var warnings []NormalizationWarning
	warn := func(field, format string, args ...any) {
		warnings = append(warnings, NormalizationWarning{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Required fields
	if def.ID == "" {
		return nil, nil, fmt.Errorf("id is required")
	}
	if !idPattern.MatchString(def.ID) {
		return nil, nil, fmt.Errorf("id %q must be lower-case letters, digits, '-' or '_'", def.ID)
	}
	if def.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}

	normalized := *def

	// Defaults
	if normalized.Key == "" {
		normalized.Key = "jaat-mode" + normalized.ID
	}
	if normalized.Version == "" {
		normalized.Version = "1.0.0"
	}
	if normalized.MaxMemoryItems <= 0 {
		normalized.MaxMemoryItems = 50
	}
	if normalized.MaxMemoryItems > maxMemoryItemsCap {
		warn("max_memory_items", "capped at %d, got %d", maxMemoryItemsCap, normalized.MaxMemoryItems)
		normalized.MaxMemoryItems = maxMemoryItemsCap
	}
	if normalized.RequestTypes.Default == "" {
		warn("request_types.default", "no default request type; using general_conversation")
		normalized.RequestTypes.Default = "general_conversation"
	}
	if strings.TrimSpace(normalized.EmptyInputText) == "" {
		normalized.EmptyInputText = fmt.Sprintf("I'm %s. What would you like to talk about?", normalized.Name)
	}
	if len(normalized.Greetings) == 0 {
		warn("greetings", "no greetings; using the empty input text")
		normalized.Greetings = []string{normalized.EmptyInputText}
	}
	if normalized.Disclaimer == "" {
		warn("disclaimer", "no disclaimer configured")
	}

	// Rules
	declared := map[string]bool{normalized.RequestTypes.Default: true}
	for i, r := range normalized.RequestTypes.Rules {
		if r.Tag == "" {
			return nil, nil, fmt.Errorf("request_types.rules[%d]: tag is required", i)
		}
		if r.PredicateSpec.IsZero() {
			return nil, nil, fmt.Errorf("request_types.rules[%d] (%s): no predicate", i, r.Tag)
		}
		declared[r.Tag] = true
	}
	for i, r := range normalized.Tags.Rules {
		if r.Tag == "" {
			return nil, nil, fmt.Errorf("tags.rules[%d]: tag is required", i)
		}
		if r.PredicateSpec.IsZero() {
			return nil, nil, fmt.Errorf("tags.rules[%d] (%s): no predicate", i, r.Tag)
		}
	}
	if normalized.Tags.Capture != nil && normalized.Tags.Vocabulary == nil {
		warn("tags.capture", "no vocabulary; captures are used verbatim")
	}
	if normalized.TagName == "" && hasTagging(normalized.Tags) {
		normalized.TagName = "tag"
	}

	// Templates
	for i, t := range normalized.Templates {
		if t.RequestType == "" {
			return nil, nil, fmt.Errorf("templates[%d]: request_type is required", i)
		}
		if t.Text != "" && len(t.Pool) > 0 {
			return nil, nil, fmt.Errorf("templates[%d] (%s): text and pool are exclusive", i, t.RequestType)
		}
		if t.Text == "" && len(t.Pool) == 0 {
			return nil, nil, fmt.Errorf("templates[%d] (%s): text or pool is required", i, t.RequestType)
		}
		if !declared[t.RequestType] {
			warn(fmt.Sprintf("templates[%d]", i), "request type %q is never classified", t.RequestType)
		}
	}

	// Suggestions
	if len(normalized.Suggestions.General) < 3 {
		warn("suggestions.general", "fewer than 3 general suggestions; turns may return fewer")
	}
	normalized.Suggestions.General = dedupe(normalized.Suggestions.General)

	return &normalized, warnings, nil
}

func hasTagging(t TagSpec) bool {
	return len(t.Rules) > 0 || t.Lookup != nil || t.Capture != nil
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
