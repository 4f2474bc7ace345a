package personas

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/persona"
)

// ──────────────────────────────────────────────
// Companions (mode 16 girlfriend, mode 17 boyfriend)
// ──────────────────────────────────────────────

// Companion persona ids.
const (
	GirlfriendID = "16"
	BoyfriendID  = "17"
)

// MaxSharedMemories bounds the shared memory list; older entries drop first.
const MaxSharedMemories = 50

const memoryPreviewLen = 100

type conversationTopic struct {
	Key     string   `yaml:"key"`
	Name    string   `yaml:"name"`
	Prompts []string `yaml:"prompts"`
}

type activity struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

type activityCategory struct {
	Category string     `yaml:"category"`
	Intro    string     `yaml:"intro"`
	Items    []activity `yaml:"items"`
}

type replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type companionTables struct {
	ConversationTopics []conversationTopic `yaml:"conversation_topics"`
	Support            map[string][]string `yaml:"support"`
	SupportDefault     string              `yaml:"support_default"`
	SupportFollowUps   []string            `yaml:"support_follow_ups"`
	CheckIn            []string            `yaml:"check_in"`
	AboutMe            []string            `yaml:"about_me"`
	AboutMeEnjoyed     string              `yaml:"about_me_enjoyed"`
	Activities         []activityCategory  `yaml:"activities"`
	Sharing            struct {
		PositivePattern string   `yaml:"positive_pattern"`
		NegativePattern string   `yaml:"negative_pattern"`
		Positive        []string `yaml:"positive"`
		Negative        []string `yaml:"negative"`
		Neutral         []string `yaml:"neutral"`
	} `yaml:"sharing"`
	Affirmations         []string      `yaml:"affirmations"`
	AffirmationNicknames []replacement `yaml:"affirmation_nicknames"`
	AffirmationFollowUps []string      `yaml:"affirmation_follow_ups"`
	Affection            []string      `yaml:"affection"`
	AffectionMonth       string        `yaml:"affection_month"`
	AffectionWeek        string        `yaml:"affection_week"`
	AffectionNickname    string        `yaml:"affection_nickname"`
	ExcitementFollowUps  []string      `yaml:"excitement_follow_ups"`
	EmotionDefault       string        `yaml:"emotion_default"`
	InterestResponses    []string      `yaml:"interest_responses"`
	Interests            struct {
		Patterns  []string `yaml:"patterns"`
		StopWords []string `yaml:"stop_words"`
	} `yaml:"interests"`
}

// Companion holds the tables and Go behavior shared by both companions;
// the variants differ only in their data.
type Companion struct {
	tables     companionTables
	greetings  []string
	positive   *regexp.Regexp
	negative   *regexp.Regexp
	interestRe []*regexp.Regexp
}

var (
	leadingArticle    = regexp.MustCompile(`^(?:the|a|an)\s+`)
	trailingIntensity = regexp.MustCompile(`\s+(?:a\s+lot|very\s+much|quite|really|so\s+much)$`)
)

// NewCompanion decodes the companion tables from the definition's extra
// section and compiles its patterns.
func NewCompanion(def *persona.Definition) (*Companion, error) {
	c := &Companion{greetings: def.Greetings}
	if err := def.DecodeExtra(&c.tables); err != nil {
		return nil, fmt.Errorf("companion tables: %w", err)
	}
	var err error
	if c.positive, err = regexp.Compile("(?i)" + c.tables.Sharing.PositivePattern); err != nil {
		return nil, fmt.Errorf("companion positive pattern: %w", err)
	}
	if c.negative, err = regexp.Compile("(?i)" + c.tables.Sharing.NegativePattern); err != nil {
		return nil, fmt.Errorf("companion negative pattern: %w", err)
	}
	for i, p := range c.tables.Interests.Patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("companion interests.patterns[%d]: %w", i, err)
		}
		c.interestRe = append(c.interestRe, re)
	}
	return c, nil
}

// Options wires the companion into a persona.Compiler.
func (c *Companion) Options() []persona.Option {
	return []persona.Option{
		persona.WithTemplate("emotional_support", "", c.support),
		persona.WithTemplate("companion_check_in", "", c.checkIn),
		persona.WithTemplate("companion_information", "", c.aboutMe),
		persona.WithTemplate("activity_request", "", c.activity),
		persona.WithTemplate("user_sharing", "", c.sharing),
		persona.WithTemplate("affirmation_request", "", c.affirmation),
		persona.WithTemplate("affection_expression", "", c.affection),
		persona.WithTemplate("emotional_response", "", c.emotionResponse),
		persona.WithFallback(c.casual),
		persona.WithHooks(jaat.Hooks{
			OnInit:     c.onInit,
			OnClassify: c.onClassify,
			Greeting:   c.greeting,
			Info:       c.info,
		}),
	}
}

// ExtractInterests returns the cleaned interests mentioned in text.
func (c *Companion) ExtractInterests(text string) []string {
	var out []string
	for _, re := range c.interestRe {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		interest := strings.ToLower(strings.TrimSpace(m[1]))
		interest = leadingArticle.ReplaceAllString(interest, "")
		interest = trailingIntensity.ReplaceAllString(interest, "")
		if len(interest) > 2 && !containsFold(c.tables.Interests.StopWords, interest) {
			out = append(out, interest)
		}
	}
	return out
}

// ── hooks ──

// onInit counts relationship days from the first session, day one
// included. Profiles saved before the start date existed are backdated
// from their stored duration.
func (c *Companion) onInit(tc *jaat.TurnContext) {
	today, _ := time.Parse(time.DateOnly, tc.Now.Format(time.DateOnly))
	start, err := time.Parse(time.DateOnly, tc.PrefString("relationshipStart"))
	if err != nil {
		days := toInt(tc.Pref("relationshipDuration"))
		if days < 1 {
			days = 1
		}
		start = today.AddDate(0, 0, -(days - 1))
		tc.SetPref("relationshipStart", start.Format(time.DateOnly))
	}
	days := int(today.Sub(start).Hours()/24) + 1
	if days != toInt(tc.Pref("relationshipDuration")) {
		tc.SetPref("relationshipDuration", days)
	}
}

func (c *Companion) onClassify(tc *jaat.TurnContext) {
	found := c.ExtractInterests(tc.Input.Text)
	if len(found) == 0 {
		return
	}
	interests := append([]string(nil), tc.PrefStrings("userInterests")...)
	for _, in := range found {
		if !containsFold(interests, in) {
			interests = append(interests, in)
		}
	}
	tc.SetPref("userInterests", interests)
}

// greeting personalizes a greeting with the nickname; without one the
// default pick applies.
func (c *Companion) greeting(tc *jaat.TurnContext) string {
	nick := tc.PrefString("userNickname")
	if nick == "" || len(c.greetings) == 0 {
		return ""
	}
	g := tc.Pick(c.greetings...)
	g = strings.Replace(g, "there", nick, 1)
	return strings.Replace(g, "you!", nick+"!", 1)
}

func (c *Companion) info(tc *jaat.TurnContext, details map[string]any) {
	details["userNickname"] = tc.PrefString("userNickname")
	details["relationshipDuration"] = toInt(tc.Pref("relationshipDuration"))
	details["userInterests"] = tc.PrefStrings("userInterests")
	details["moodCurrent"] = tc.StateString("moodCurrent")
	details["sharedMemoriesCount"] = len(asList(tc.Pref("sharedMemories")))
}

// ── templates ──

func (c *Companion) support(tc *jaat.TurnContext) string {
	text := c.tables.SupportDefault
	if pool := c.tables.Support[tc.Tag]; len(pool) > 0 {
		text = tc.Pick(pool...)
	}
	if nick := tc.PrefString("userNickname"); nick != "" && !strings.Contains(text, nick) {
		text = nick + ", " + jaat.LowerFirst(text)
	}
	return text + " " + tc.Pick(c.tables.SupportFollowUps...)
}

func (c *Companion) checkIn(tc *jaat.TurnContext) string {
	text := tc.Pick(c.tables.CheckIn...)
	if nick := tc.PrefString("userNickname"); nick != "" {
		text = strings.Replace(text, "you!", "you, "+nick+"!", 1)
	}
	return strings.Replace(text, "[current season]", Season(tc.Now), 1)
}

func (c *Companion) aboutMe(tc *jaat.TurnContext) string {
	text := tc.Pick(c.tables.AboutMe...)
	if len(tc.History) >= 5 {
		text += " " + c.tables.AboutMeEnjoyed
	}
	return text
}

func (c *Companion) activity(tc *jaat.TurnContext) string {
	if len(c.tables.Activities) == 0 {
		return ""
	}
	cat := jaat.Pick(tc.Rand, c.tables.Activities)
	act := jaat.Pick(tc.Rand, cat.Items)
	text := strings.NewReplacer(
		"{activity}", act.Name,
		"{activity_lower}", strings.ToLower(act.Name),
	).Replace(cat.Intro) + act.Text
	if nick := tc.PrefString("userNickname"); nick != "" && tc.Rand.Float64() > 0.5 {
		text = nick + ", " + jaat.LowerFirst(text)
	}
	return text
}

func (c *Companion) sharing(tc *jaat.TurnContext) string {
	positive := tc.Tag == "excitement" || c.positive.MatchString(tc.Input.Text)
	negative := tc.Tag == "sadness" || tc.Tag == "disappointment" || tc.Tag == "stress" || tc.Tag == "anxiety" ||
		c.negative.MatchString(tc.Input.Text)

	var text string
	switch {
	case positive:
		text = tc.Pick(c.tables.Sharing.Positive...)
		addSharedMemory(tc, "achievement")
	case negative:
		text = tc.Pick(c.tables.Sharing.Negative...)
	default:
		text = tc.Pick(c.tables.Sharing.Neutral...)
		addSharedMemory(tc, "information")
	}
	if nick := tc.PrefString("userNickname"); nick != "" && tc.Rand.Float64() > 0.7 {
		text = strings.Replace(text, "!", ", "+nick+"!", 1)
	}
	return text
}

func (c *Companion) affirmation(tc *jaat.TurnContext) string {
	text := tc.Pick(c.tables.Affirmations...)
	if nick := tc.PrefString("userNickname"); nick != "" {
		for _, r := range c.tables.AffirmationNicknames {
			text = strings.Replace(text, r.From, strings.ReplaceAll(r.To, "{nickname}", nick), 1)
		}
	}
	return text + " " + tc.Pick(c.tables.AffirmationFollowUps...)
}

func (c *Companion) affection(tc *jaat.TurnContext) string {
	text := tc.Pick(c.tables.Affection...)
	switch days := toInt(tc.Pref("relationshipDuration")); {
	case days > 30:
		text += " " + c.tables.AffectionMonth
	case days > 7:
		text += " " + c.tables.AffectionWeek
	}
	if nick := tc.PrefString("userNickname"); nick != "" {
		text += " " + strings.ReplaceAll(c.tables.AffectionNickname, "{nickname}", nick)
	}
	return text
}

func (c *Companion) emotionResponse(tc *jaat.TurnContext) string {
	text := c.tables.EmotionDefault
	if tc.Tag == "excitement" {
		text = tc.Pick(c.tables.Support["excitement"]...) + " " + tc.Pick(c.tables.ExcitementFollowUps...)
	}
	if nick := tc.PrefString("userNickname"); nick != "" && tc.Rand.Float64() > 0.5 {
		text = strings.Replace(text, "!", ", "+nick+"!", 1)
	}
	return text
}

func (c *Companion) casual(tc *jaat.TurnContext) string {
	if interests := tc.PrefStrings("userInterests"); len(interests) > 0 && tc.Rand.Float64() > 0.7 {
		interest := tc.Pick(interests...)
		return strings.ReplaceAll(tc.Pick(c.tables.InterestResponses...), "{interest}", interest)
	}
	if len(c.tables.ConversationTopics) == 0 {
		return ""
	}
	topic := jaat.Pick(tc.Rand, c.tables.ConversationTopics)
	prompt := tc.Pick(topic.Prompts...)
	if nick := tc.PrefString("userNickname"); nick != "" && tc.Rand.Float64() > 0.6 {
		return nick + ", " + prompt
	}
	return prompt
}

// SharedMemory is one thing the user told the companion.
type SharedMemory struct {
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func addSharedMemory(tc *jaat.TurnContext, kind string) {
	content := tc.Input.Raw
	if len(content) > memoryPreviewLen {
		content = content[:memoryPreviewLen] + "..."
	}
	memories := append(asList(tc.Pref("sharedMemories")), SharedMemory{Content: content, Type: kind, Timestamp: tc.Now})
	if len(memories) > MaxSharedMemories {
		memories = memories[len(memories)-MaxSharedMemories:]
	}
	tc.SetPref("sharedMemories", memories)
}

// Season returns the northern-hemisphere season for t.
func Season(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "fall"
	}
	return "winter"
}

// ── setters ──

// SetUserNickname stores the name the companion uses for the user.
func SetUserNickname(m *jaat.Mode, nickname string) bool {
	if strings.TrimSpace(nickname) == "" {
		return false
	}
	return m.SavePreferences(map[string]any{"userNickname": nickname})
}

// SetUserBirthday stores the user's birthday (YYYY-MM-DD).
func SetUserBirthday(m *jaat.Mode, birthday string) bool {
	if _, err := time.Parse(time.DateOnly, birthday); err != nil {
		return false
	}
	return m.SavePreferences(map[string]any{"userBirthday": birthday})
}

// SpecialDate is a milestone or an important date of the user.
type SpecialDate struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Type        string `json:"type"` // "milestone" or "user"
}

// AddSpecialDate files d under relationship milestones or the user's
// important dates. Incomplete dates and unknown types are rejected.
func AddSpecialDate(m *jaat.Mode, d SpecialDate) bool {
	if d.Date == "" || d.Description == "" {
		return false
	}
	var bucket string
	switch d.Type {
	case "milestone":
		bucket = "relationship_milestones"
	case "user":
		bucket = "user_important_dates"
	default:
		return false
	}
	return m.UpdatePreferences(func(p map[string]any) map[string]any {
		dates := map[string]any{}
		if existing, ok := p["specialDates"].(map[string]any); ok {
			for k, v := range existing {
				dates[k] = v
			}
		}
		dates[bucket] = append(asList(dates[bucket]), d)
		return map[string]any{"specialDates": dates}
	})
}

// UpdateMood sets the companion's session mood.
func UpdateMood(m *jaat.Mode, mood string) bool {
	if mood == "" {
		return false
	}
	m.SetState("moodCurrent", mood)
	return true
}
