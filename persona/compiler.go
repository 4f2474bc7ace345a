package persona

import (
	"fmt"
	"log"
	"regexp"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

// Persona is a compiled Definition. Close releases the Lua states owned by
// scripted rules.
type Persona struct {
	Definition *Definition
	Config     *jaat.PersonaConfig
	Warnings   []NormalizationWarning
	Hash       string

	lua []*jaat.LuaRule
}

// Close releases scripted rules.
func (p *Persona) Close() {
	for _, r := range p.lua {
		r.Close()
	}
	p.lua = nil
}

// Option customizes a Compiler.
type Option func(*Compiler)

// WithPredicate registers a Go predicate that rules can name with `ref`.
func WithPredicate(name string, p jaat.Predicate) Option {
	return func(c *Compiler) { c.predicates[name] = p }
}

// WithTemplate registers a Go template. It replaces any YAML template for
// the same request type and tag.
func WithTemplate(requestType, tag string, fn jaat.TemplateFunc) Option {
	return func(c *Compiler) {
		c.templates = append(c.templates, goTemplate{requestType: requestType, tag: tag, fn: fn})
	}
}

// WithFallback sets the fallback template, replacing the YAML fallback.
func WithFallback(fn jaat.TemplateFunc) Option {
	return func(c *Compiler) { c.fallback = fn }
}

// WithExtractor appends a tag extractor after the YAML extractors.
func WithExtractor(e jaat.TagExtractor) Option {
	return func(c *Compiler) { c.extractors = append(c.extractors, e) }
}

// WithHooks attaches lifecycle hooks.
func WithHooks(h jaat.Hooks) Option {
	return func(c *Compiler) { c.hooks = h }
}

type goTemplate struct {
	requestType, tag string
	fn               jaat.TemplateFunc
}

// Compiler turns Definitions into PersonaConfigs.
type Compiler struct {
	predicates map[string]jaat.Predicate
	templates  []goTemplate
	fallback   jaat.TemplateFunc
	extractors []jaat.TagExtractor
	hooks      jaat.Hooks
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{predicates: make(map[string]jaat.Predicate)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile runs the pipeline:
// 1. Normalize → 2. Request type rules → 3. Tag extractors →
// 4. Templates → 5. Config assembly
func (c *Compiler) Compile(def *Definition) (_ *Persona, err error) {
	// 1. Normalize
	normalized, warnings, err := Normalize(def)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", def.ID, err)
	}
	for _, w := range warnings {
		log.Printf("[Persona] %s: %s", normalized.ID, w)
	}

	p := &Persona{Definition: normalized, Warnings: warnings, Hash: normalized.Hash()}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	// 2. Request type rules
	table := jaat.NewRuleTable(normalized.RequestTypes.Default)
	for i, r := range normalized.RequestTypes.Rules {
		pred, err := c.predicate(p, fmt.Sprintf("request_types.rules[%d]", i), r.PredicateSpec)
		if err != nil {
			return nil, err
		}
		table.Add(r.Tag, pred)
	}

	// 3. Tag extractors
	tagger, err := c.tagger(p, normalized.Tags)
	if err != nil {
		return nil, err
	}

	// 4. Templates
	templates := jaat.NewTemplateSet()
	for i, t := range normalized.Templates {
		fn, err := compileTemplate(fmt.Sprintf("%s/%s/%s", normalized.ID, t.RequestType, t.Tag), t)
		if err != nil {
			return nil, fmt.Errorf("templates[%d]: %w", i, err)
		}
		templates.Handle(t.RequestType, t.Tag, fn)
	}
	for _, t := range c.templates {
		templates.Handle(t.requestType, t.tag, t.fn)
	}
	switch {
	case c.fallback != nil:
		templates.Fallback(c.fallback)
	case normalized.Fallback != "":
		fn, err := jaat.CompileTemplate(normalized.ID+"/fallback", normalized.Fallback)
		if err != nil {
			return nil, err
		}
		templates.Fallback(fn)
	}

	// 5. Config assembly
	suggestions := normalized.Suggestions
	p.Config = &jaat.PersonaConfig{
		ID:                 normalized.ID,
		Key:                normalized.Key,
		Name:               normalized.Name,
		Description:        normalized.Description,
		Icon:               normalized.Icon,
		Color:              normalized.Color,
		Category:           normalized.Category,
		Version:            normalized.Version,
		SystemPrompt:       normalized.SystemPrompt,
		MaxMemoryItems:     normalized.MaxMemoryItems,
		Disclaimer:         normalized.Disclaimer,
		EmptyInputText:     normalized.EmptyInputText,
		Greetings:          normalized.Greetings,
		Starters:           normalized.Starters,
		Features:           normalized.Features,
		RequestTypes:       table,
		Tagger:             tagger,
		TagName:            normalized.TagName,
		ExcludedTagsPref:   normalized.ExcludedTagsPref,
		Templates:          templates,
		Suggestions:        &suggestions,
		DefaultSettings:    normalized.Settings,
		DefaultPreferences: normalized.Preferences,
		DefaultState:       normalized.State,
		Hooks:              c.hooks,
	}
	return p, nil
}

func compileTemplate(name string, t TemplateSpec) (jaat.TemplateFunc, error) {
	if len(t.Pool) > 0 {
		return jaat.Pool(t.Pool...), nil
	}
	return jaat.CompileTemplate(name, t.Text)
}

func (c *Compiler) tagger(p *Persona, spec TagSpec) (jaat.TagExtractor, error) {
	var chain jaat.ChainExtractor
	if len(spec.Rules) > 0 {
		tt := &jaat.TagTable{}
		for i, r := range spec.Rules {
			pred, err := c.predicate(p, fmt.Sprintf("tags.rules[%d]", i), r.PredicateSpec)
			if err != nil {
				return nil, err
			}
			tt.Rules = append(tt.Rules, jaat.Rule{Tag: r.Tag, Match: pred})
		}
		chain = append(chain, tt)
	}
	if spec.Lookup != nil {
		re, err := compileRegexp("tags.lookup", spec.Lookup.Pattern)
		if err != nil {
			return nil, err
		}
		chain = append(chain, &jaat.LookupExtractor{Pattern: re, Table: spec.Lookup.Table})
	}
	if spec.Capture != nil {
		ce := &jaat.CaptureExtractor{DirectMention: spec.Capture.DirectMention}
		for i, pat := range spec.Capture.Patterns {
			re, err := compileRegexp(fmt.Sprintf("tags.capture.patterns[%d]", i), pat)
			if err != nil {
				return nil, err
			}
			ce.Patterns = append(ce.Patterns, re)
		}
		if v := spec.Vocabulary; v != nil {
			ce.Vocabulary = jaat.NewVocabulary(v.Terms, v.StopWords...)
			if v.MinLength > 0 {
				ce.Vocabulary.MinLength = v.MinLength
			}
			if v.AllowFreeText != nil {
				ce.Vocabulary.AllowFreeText = *v.AllowFreeText
			}
		}
		chain = append(chain, ce)
	}
	chain = append(chain, c.extractors...)
	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	}
	return chain, nil
}

// predicate compiles one PredicateSpec; set fields are ANDed.
func (c *Compiler) predicate(p *Persona, where string, spec PredicateSpec) (jaat.Predicate, error) {
	var parts []jaat.Predicate
	if spec.Regex != "" {
		re, err := compileRegexp(where, spec.Regex)
		if err != nil {
			return nil, err
		}
		parts = append(parts, func(in jaat.Input) bool { return re.MatchString(in.Text) })
	}
	if len(spec.Contains) > 0 {
		parts = append(parts, jaat.ContainsAny(spec.Contains...))
	}
	if len(spec.Words) > 0 {
		parts = append(parts, jaat.WordsAny(spec.Words...))
	}
	if len(spec.TagIn) > 0 {
		parts = append(parts, jaat.TagIn(spec.TagIn...))
	}
	if len(spec.All) > 0 {
		sub, err := c.predicateList(p, where+".all", spec.All)
		if err != nil {
			return nil, err
		}
		parts = append(parts, jaat.AllOf(sub...))
	}
	if len(spec.Any) > 0 {
		sub, err := c.predicateList(p, where+".any", spec.Any)
		if err != nil {
			return nil, err
		}
		parts = append(parts, jaat.AnyOf(sub...))
	}
	if spec.Not != nil {
		sub, err := c.predicate(p, where+".not", *spec.Not)
		if err != nil {
			return nil, err
		}
		parts = append(parts, jaat.Not(sub))
	}
	if spec.Lua != "" {
		rule, err := jaat.NewLuaRule(p.Definition.ID+"/"+where, spec.Lua)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		p.lua = append(p.lua, rule)
		parts = append(parts, rule.Predicate())
	}
	if spec.Ref != "" {
		pred, ok := c.predicates[spec.Ref]
		if !ok {
			return nil, fmt.Errorf("%s: unknown predicate ref %q", where, spec.Ref)
		}
		parts = append(parts, pred)
	}
	switch len(parts) {
	case 0:
		return nil, fmt.Errorf("%s: empty predicate", where)
	case 1:
		return parts[0], nil
	}
	return jaat.AllOf(parts...), nil
}

func (c *Compiler) predicateList(p *Persona, where string, specs []PredicateSpec) ([]jaat.Predicate, error) {
	out := make([]jaat.Predicate, 0, len(specs))
	for i, s := range specs {
		pred, err := c.predicate(p, fmt.Sprintf("%s[%d]", where, i), s)
		if err != nil {
			return nil, err
		}
		out = append(out, pred)
	}
	return out, nil
}

func compileRegexp(where, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	return re, nil
}
