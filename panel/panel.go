// Package panel models feature settings UIs without a DOM: a static field
// list over an observable Model, rendered into a tree of controls and fed
// raw control values back through Change.
package panel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the control type of a field.
type Kind string

const (
	KindCheckbox Kind = "checkbox"
	KindSelect   Kind = "select"
	KindRange    Kind = "range"
	KindText     Kind = "text"
	KindList     Kind = "list"
	KindAction   Kind = "action"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidOption = errors.New("value is not one of the field options")
	ErrInvalidValue  = errors.New("invalid value for field")
)

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field declares one control bound to a model key.
type Field struct {
	Key     string
	Label   string
	Kind    Kind
	Options []Option
	Min     float64
	Max     float64
	Step    float64

	// Apply replaces the default model merge for this field, e.g. to clamp
	// or to trigger a side effect. It receives the parsed value.
	Apply func(v any) error
	// Action runs for KindAction fields.
	Action func() error
}

// Condition decides section visibility from the current values.
type Condition func(values map[string]any) bool

// Enabled is visible while the boolean at key is true.
func Enabled(key string) Condition {
	return func(values map[string]any) bool {
		b, _ := values[key].(bool)
		return b
	}
}

// Section groups fields. A nil VisibleWhen is always visible.
type Section struct {
	ID          string
	Title       string
	Fields      []Field
	VisibleWhen Condition
}

// Panel is a declarative settings form over a Model.
type Panel struct {
	Title    string
	Model    *Model
	Toggle   *Field // optional header switch, usually "enabled"
	Sections []Section
}

// ──────────────────────────────────────────────
// Render
// ──────────────────────────────────────────────

type View struct {
	Title    string        `json:"title"`
	Toggle   *Control      `json:"toggle,omitempty"`
	Sections []SectionView `json:"sections"`
}

type SectionView struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Hidden   bool      `json:"hidden"`
	Controls []Control `json:"controls"`
}

type Control struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Kind    Kind     `json:"kind"`
	Value   any      `json:"value,omitempty"`
	Options []Option `json:"options,omitempty"`
	Min     float64  `json:"min,omitempty"`
	Max     float64  `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
}

// Render builds the control tree from the current values. Hidden sections
// are still rendered with their values so nothing is lost when they return.
func (p *Panel) Render() View {
	values := p.Model.Snapshot()
	v := View{Title: p.Title, Sections: make([]SectionView, 0, len(p.Sections))}
	if p.Toggle != nil {
		c := control(*p.Toggle, values)
		v.Toggle = &c
	}
	for _, s := range p.Sections {
		sv := SectionView{ID: s.ID, Title: s.Title}
		if s.VisibleWhen != nil {
			sv.Hidden = !s.VisibleWhen(values)
		}
		for _, f := range s.Fields {
			sv.Controls = append(sv.Controls, control(f, values))
		}
		v.Sections = append(v.Sections, sv)
	}
	return v
}

func control(f Field, values map[string]any) Control {
	c := Control{Key: f.Key, Label: f.Label, Kind: f.Kind, Options: f.Options, Min: f.Min, Max: f.Max, Step: f.Step}
	if f.Kind != KindAction {
		c.Value = values[f.Key]
	}
	return c
}

// Section returns the rendered section with id, if any.
func (v View) Section(id string) (SectionView, bool) {
	for _, s := range v.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return SectionView{}, false
}

// ──────────────────────────────────────────────
// Change
// ──────────────────────────────────────────────

// Field looks up a field (the toggle included) by key.
func (p *Panel) Field(key string) (Field, bool) {
	if p.Toggle != nil && p.Toggle.Key == key {
		return *p.Toggle, true
	}
	for _, s := range p.Sections {
		for _, f := range s.Fields {
			if f.Key == key {
				return f, true
			}
		}
	}
	return Field{}, false
}

// Change parses a raw control value by the field's kind and applies it.
//
// List fields accept "+item" to add, "-item" to remove, or a comma
// separated replacement list.
func (p *Panel) Change(key, raw string) error {
	f, ok := p.Field(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if f.Kind == KindAction {
		if f.Action == nil {
			return nil
		}
		return f.Action()
	}
	v, err := p.parse(f, raw)
	if err != nil {
		return err
	}
	return p.apply(f, v)
}

// ChangeValue applies an already typed value (e.g. from a JSON body).
func (p *Panel) ChangeValue(key string, v any) error {
	f, ok := p.Field(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	switch f.Kind {
	case KindAction:
		if f.Action == nil {
			return nil
		}
		return f.Action()
	case KindCheckbox:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%w: %s expects a boolean", ErrInvalidValue, key)
		}
	case KindRange:
		n, ok := v.(float64)
		if !ok {
			return fmt.Errorf("%w: %s expects a number", ErrInvalidValue, key)
		}
		v = clamp(n, f.Min, f.Max)
	case KindList:
		list := anyStrings(v)
		if list == nil {
			return fmt.Errorf("%w: %s expects a list", ErrInvalidValue, key)
		}
		v = list
	default:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s expects a string", ErrInvalidValue, key)
		}
		if f.Kind == KindSelect && !hasOption(f.Options, s) {
			return fmt.Errorf("%w: %s=%q", ErrInvalidOption, key, s)
		}
	}
	return p.apply(f, v)
}

func (p *Panel) apply(f Field, v any) error {
	if f.Apply != nil {
		return f.Apply(v)
	}
	return p.Model.Set(f.Key, v)
}

func (p *Panel) parse(f Field, raw string) (any, error) {
	switch f.Kind {
	case KindCheckbox:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidValue, f.Key, raw)
		}
		return b, nil
	case KindRange:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidValue, f.Key, raw)
		}
		return clamp(n, f.Min, f.Max), nil
	case KindSelect:
		if !hasOption(f.Options, raw) {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidOption, f.Key, raw)
		}
		return raw, nil
	case KindList:
		return editList(p.Model.Strings(f.Key), raw), nil
	default:
		return raw, nil
	}
}

func editList(current []string, raw string) []string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "+"):
		item := strings.TrimSpace(raw[1:])
		if item == "" || containsString(current, item) {
			return current
		}
		return append(current, item)
	case strings.HasPrefix(raw, "-"):
		item := strings.TrimSpace(raw[1:])
		out := current[:0]
		for _, s := range current {
			if s != item {
				out = append(out, s)
			}
		}
		return out
	}
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" && !containsString(out, part) {
			out = append(out, part)
		}
	}
	return out
}

func clamp(n, lo, hi float64) float64 {
	if lo == 0 && hi == 0 {
		return n
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func hasOption(opts []Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func anyStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	return nil
}
