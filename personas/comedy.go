package personas

import (
	"fmt"
	"strings"
	"time"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/persona"
)

// ──────────────────────────────────────────────
// Standup comic (mode 12)
// ──────────────────────────────────────────────

// ComicID is the persona id of the standup comic.
const ComicID = "12"

type comicStyle struct {
	Key           string   `yaml:"key"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Examples      []string `yaml:"examples"`
	Structure     string   `yaml:"structure"`
	Techniques    []string `yaml:"techniques"`
	JokeStructure string   `yaml:"joke_structure"`
}

type sampleJoke struct {
	Joke      string `yaml:"joke"`
	Setup     string `yaml:"setup"`
	Midpoint  string `yaml:"midpoint"`
	Punchline string `yaml:"punchline"`
}

type namedEntry struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type comicTables struct {
	Styles      []comicStyle            `yaml:"styles"`
	SampleJokes map[string][]sampleJoke `yaml:"sample_jokes"`
	Techniques  []namedEntry            `yaml:"techniques"`
	Structures  []namedEntry            `yaml:"structures"`
}

// Comic holds the comedy tables and the Go behavior of the standup comic.
type Comic struct {
	tables comicTables
	styles map[string]*comicStyle
}

// NewComic decodes the comedy tables from the definition's extra section.
func NewComic(def *persona.Definition) (*Comic, error) {
	c := &Comic{styles: make(map[string]*comicStyle)}
	if err := def.DecodeExtra(&c.tables); err != nil {
		return nil, fmt.Errorf("comic tables: %w", err)
	}
	if len(c.tables.Styles) == 0 {
		return nil, fmt.Errorf("comic tables: no styles")
	}
	for i := range c.tables.Styles {
		s := &c.tables.Styles[i]
		c.styles[s.Key] = s
	}
	return c, nil
}

// Options wires the comic into a persona.Compiler.
func (c *Comic) Options() []persona.Option {
	return []persona.Option{
		persona.WithPredicate("mentions_style", func(in jaat.Input) bool { return c.MentionedStyle(in.Text) != "" }),
		persona.WithTemplate("joke_request", "", c.jokeTemplate),
		persona.WithTemplate("style_specific_request", "", c.styleTemplate),
		persona.WithFallback(c.jokeTemplate),
		persona.WithHooks(jaat.Hooks{
			OnClassify: c.onClassify,
			OnRespond:  c.onRespond,
			Info:       c.info,
		}),
	}
}

// MentionedStyle returns the first style whose key (underscores read as
// spaces) or display name appears in text.
func (c *Comic) MentionedStyle(text string) string {
	text = strings.ToLower(text)
	for _, s := range c.tables.Styles {
		if strings.Contains(text, strings.Replace(s.Key, "_", " ", 1)) ||
			strings.Contains(text, strings.ToLower(s.Name)) {
			return s.Key
		}
	}
	return ""
}

// Style returns the style for key, falling back to the first style.
func (c *Comic) Style(key string) *comicStyle {
	if s, ok := c.styles[key]; ok {
		return s
	}
	return &c.tables.Styles[0]
}

// jokeStyle applies the one-liner, story and self-deprecating overrides on
// top of the preferred style.
func jokeStyle(text, preferred string) string {
	switch {
	case strings.Contains(text, "one-liner"), strings.Contains(text, "one liner"):
		return "one_liner"
	case strings.Contains(text, "story"), strings.Contains(text, "tell me about"):
		return "storytelling"
	case strings.Contains(text, "self deprecating"), strings.Contains(text, "self-deprecating"):
		return "self_deprecating"
	}
	return preferred
}

// ── hooks ──

func (c *Comic) onClassify(tc *jaat.TurnContext) {
	if tc.Tag != "" {
		topics := tc.PrefStrings("comedyTopics")
		if !containsFold(topics, tc.Tag) {
			tc.SetPref("comedyTopics", append(append([]string(nil), topics...), tc.Tag))
		}
	}

	preferred := c.Style(tc.PrefString("comedyStyle")).Key
	style := preferred
	switch tc.RequestType {
	case "style_specific_request":
		if s := c.MentionedStyle(tc.Input.Text); s != "" {
			style = s
		}
		if style != tc.PrefString("comedyStyle") {
			tc.SetPref("comedyStyle", style)
		}
	case "routine_development":
		if s := c.MentionedStyle(tc.Input.Text); s != "" {
			style = s
		}
	default:
		style = jokeStyle(tc.Input.Text, preferred)
		tc.Vars["callback"] = tc.Setting("callbacksEnabled") &&
			tc.StateString("lastPunchline") != "" &&
			tc.ResponseCount > 2 &&
			tc.Rand.Float64() > 0.7
	}
	s := c.Style(style)
	tc.Vars["style"] = s.Key
	tc.Vars["styleName"] = s.Name
}

func (c *Comic) onRespond(tc *jaat.TurnContext, resp *jaat.Response) {
	resp.Meta["comedyStyle"] = c.Style(tc.PrefString("comedyStyle")).Key
}

func (c *Comic) info(tc *jaat.TurnContext, details map[string]any) {
	details["comedyStyle"] = c.Style(tc.PrefString("comedyStyle")).Key
	details["tonePreference"] = tc.PrefString("tonePreference")
	details["jokeCount"] = len(asList(tc.Pref("jokes")))
	details["comedyTopics"] = tc.PrefStrings("comedyTopics")
}

// ── templates ──

func (c *Comic) jokeTemplate(tc *jaat.TurnContext) string {
	s := c.Style(varString(tc, "style"))
	callback, _ := tc.Vars["callback"].(bool)
	heading := "Joke"
	if tc.Tag != "" {
		heading = jaat.Title(tc.Tag) + " Joke"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Comedy Creation: %s in %s Style\n\n", heading, s.Name)
	fmt.Fprintf(&b, "Here is %s in the %s style, built on the structure and techniques that style relies on.\n\n", aboutTopic(tc, "a joke"), s.Name)
	fmt.Fprintf(&b, "## %s\n\n%s\n\n", heading, c.styleExample(tc, s, callback))
	b.WriteString("## About This Joke\n\nThis joke utilizes:\n\n")
	fmt.Fprintf(&b, "- **Style**: %s\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(&b, "  (%s)\n", s.Description)
	}
	fmt.Fprintf(&b, "- **Structure**: %s\n", structureOf(s))
	b.WriteString("- **Comedic Techniques**:\n")
	for _, t := range c.randomTechniques(tc, 2) {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	if tc.Tag != "" {
		fmt.Fprintf(&b, "  - Topical focus on %s\n", tc.Tag)
	}
	if callback {
		b.WriteString("  - Callback to previous joke/conversation\n")
	}
	b.WriteString("\nWould you like me to:\n- Generate another joke in this style?\n- Try a different comedy style?\n- Create a joke about a specific topic?\n- Explain how this type of joke works?")
	return b.String()
}

func (c *Comic) styleTemplate(tc *jaat.TurnContext) string {
	s := c.Style(varString(tc, "style"))
	on := ""
	if tc.Tag != "" {
		on = " on " + jaat.Title(tc.Tag)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Comedy\n\n", s.Name)
	fmt.Fprintf(&b, "Here is original %s comedy%s, using the distinctive elements and techniques of this style.\n\n", s.Name, aboutSuffix(tc))
	fmt.Fprintf(&b, "## About %s\n\n%s\n\n", s.Name, s.Description)
	fmt.Fprintf(&b, "**Notable Practitioners**: %s\n\n", strings.Join(s.Examples, ", "))
	fmt.Fprintf(&b, "**Typical Structure**: %s\n\n", s.Structure)
	fmt.Fprintf(&b, "## Original %s Material%s\n\nThe material uses these key techniques:\n", s.Name, on)
	for _, t := range s.Techniques {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	fmt.Fprintf(&b, "\n## Example of the Style\n\n%s\n\n", c.styleExample(tc, s, false))
	fmt.Fprintf(&b, "## How to Develop This Style\n\nIf you want to create your own %s:\n\n", s.Name)
	fmt.Fprintf(&b, "1. **Study the masters**: Watch or read %s\n", strings.Join(s.Examples, ", "))
	fmt.Fprintf(&b, "2. **Focus on structure**: %s\n", strings.Join(strings.Split(s.Structure, "→"), " leading to "))
	fmt.Fprintf(&b, "3. **Practice the techniques**: %s\n", strings.Join(firstN(s.Techniques, 2), ", "))
	b.WriteString("4. **Find your unique angle**: Develop your personal take on this style\n\n")
	fmt.Fprintf(&b, "Would you like to:\n- See another example in this style?\n- Learn about a different comedy style?\n- Get tips on developing your own %s routine?\n- Create comedy about a specific topic in this style?", s.Name)
	return b.String()
}

// styleExample renders a sample joke for s, recording its punchline for
// later callbacks.
func (c *Comic) styleExample(tc *jaat.TurnContext, s *comicStyle, callback bool) string {
	samples := c.tables.SampleJokes[s.Key]
	if len(samples) == 0 {
		switch s.Key {
		case "observational", "satirical":
			out := fmt.Sprintf("An original %s joke%s, following a pattern like:\n\n\"Have you ever noticed [observation about %s]? It's like [humorous insight that reveals absurdity].\"",
				s.Name, aboutSuffix(tc), orDefault(tc.Tag, "everyday life"))
			if callback {
				out += "\n\n[Callback]: \"Kind of like that thing we talked about earlier with [reference to previous conversation].\""
			}
			return out
		case "character":
			out := fmt.Sprintf("A comedic character bit%s with a distinctive voice and perspective, following a pattern like:\n\n\"[Character introduction and voice] When I [character-specific action related to %s], I always [funny character behavior or perspective].\"",
				aboutSuffix(tc), orDefault(tc.Tag, "topic"))
			if callback {
				out += "\n\n[Callback as character]: \"[Character's take on the previous conversation]\""
			}
			return out
		}
		techniques := c.randomTechniques(tc, 2)
		out := fmt.Sprintf("An original %s joke%s, following the typical structure for this style and incorporating %s.",
			s.Name, aboutSuffix(tc), strings.Join(techniques, " and "))
		if callback {
			out += "\n\nIt also calls back to our previous conversation about [reference to previous joke or topic]."
		}
		return out
	}

	sample := jaat.Pick(tc.Rand, samples)
	switch s.Key {
	case "one_liner":
		tc.State["lastPunchline"] = sample.Joke
		return fmt.Sprintf("An original one-liner%s.\n\nExample of the style: \"%s\"", aboutSuffix(tc), sample.Joke)
	case "storytelling":
		tc.State["lastPunchline"] = sample.Punchline
		return fmt.Sprintf("An original funny story%s with multiple beats and a strong punchline.\n\nA storytelling joke follows this pattern:\n\n**Setup:** %s\n\n**Midpoint:** %s\n\n**Punchline:** %s",
			aboutSuffix(tc), sample.Setup, sample.Midpoint, sample.Punchline)
	}
	out := fmt.Sprintf("An original %s joke%s.", s.Name, aboutSuffix(tc))
	if sample.Setup != "" && sample.Punchline != "" {
		out += fmt.Sprintf("\n\nExample of the style:\n\n\"%s\n\n%s\"", sample.Setup, sample.Punchline)
		tc.State["lastPunchline"] = sample.Punchline
	}
	if callback {
		out += "\n\n[Tag/Callback]: \"And that reminds me of what we were talking about earlier... [reference to previous conversation]\""
	}
	return out
}

func (c *Comic) randomTechniques(tc *jaat.TurnContext, n int) []string {
	names := make([]string, len(c.tables.Techniques))
	for i, t := range c.tables.Techniques {
		names[i] = t.Name
	}
	return jaat.Sample(tc.Rand, names, n)
}

// ── setters ──

// SavedJoke is one joke the user kept.
type SavedJoke struct {
	Text    string    `json:"text"`
	Style   string    `json:"style,omitempty"`
	Topic   string    `json:"topic,omitempty"`
	SavedAt time.Time `json:"savedAt"`
}

// SaveJoke appends a joke to the saved list.
func SaveJoke(m *jaat.Mode, joke SavedJoke) bool {
	if strings.TrimSpace(joke.Text) == "" {
		return false
	}
	if joke.SavedAt.IsZero() {
		joke.SavedAt = time.Now()
	}
	return m.UpdatePreferences(func(p map[string]any) map[string]any {
		return map[string]any{"jokes": append(asList(p["jokes"]), joke)}
	})
}

// SetComedyStyle sets the preferred comedy style.
func SetComedyStyle(m *jaat.Mode, style string) bool {
	if style == "" {
		return false
	}
	return m.SavePreferences(map[string]any{"comedyStyle": style})
}

// SetTonePreference sets the preferred tone ("clean", "edgy", ...).
func SetTonePreference(m *jaat.Mode, tone string) bool {
	if tone == "" {
		return false
	}
	return m.SavePreferences(map[string]any{"tonePreference": tone})
}

// AddAvoidedTopic excludes a topic from tag extraction. It reports false
// when the topic is empty or already avoided.
func AddAvoidedTopic(m *jaat.Mode, topic string) bool {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" || containsFold(jaat.AsStrings(m.Preference("avoidedTopics")), topic) {
		return false
	}
	return m.UpdatePreferences(func(p map[string]any) map[string]any {
		return map[string]any{"avoidedTopics": append(jaat.AsStrings(p["avoidedTopics"]), topic)}
	})
}

func structureOf(s *comicStyle) string {
	if s.JokeStructure != "" {
		return s.JokeStructure
	}
	return "Setup and punchline structure"
}

func aboutTopic(tc *jaat.TurnContext, noun string) string {
	if tc.Tag == "" {
		return noun
	}
	return noun + " about " + tc.Tag
}

func aboutSuffix(tc *jaat.TurnContext) string {
	if tc.Tag == "" {
		return ""
	}
	return " about " + tc.Tag
}
