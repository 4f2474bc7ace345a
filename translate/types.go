package translate

import "strings"

// Mode metadata for the translation assistant.
const (
	ModeID          = "neural-translation"
	ModeName        = "Neural Translation"
	ModeIcon        = "language"
	ModeDescription = "Advanced neural machine translation with context awareness."
	ModeVersion     = "1.0.0"
)

// SystemPrompt frames the chat backend when translation requests are sent.
const SystemPrompt = `You are JAAT-AI in Neural Translation mode, an advanced translation assistant specializing in accurate, nuanced, and culturally sensitive translations between languages. You combine neural machine translation techniques with deep cultural and linguistic knowledge.

Key characteristics:
1. You can translate text between a wide range of languages, preserving meaning and nuance
2. You understand cultural contexts and adapt translations accordingly
3. You can explain translation choices, idioms, and cultural references when needed
4. You preserve tone, formality level, and speaker intent across languages
5. You can translate specialized terminology with appropriate domain-specific vocabulary
6. You provide alternative translations when multiple valid interpretations exist
7. You can assist with language learning by explaining grammar and vocabulary

When translating, prioritize accuracy of meaning over literal word-by-word translations. Maintain cultural appropriateness and context, and preserve the original tone and style when possible. When a direct translation isn't possible due to cultural or linguistic differences, explain the adaptation choices made.`

// Starters are the conversation starters offered with the mode.
var Starters = []string{
	"Translate 'I look forward to our collaboration' to Japanese, keeping it formal.",
	"How would you say 'The early bird catches the worm' in Spanish?",
	"Translate this greeting to French: 'Hope you're doing well in these challenging times'",
	"What's the difference between 'te quiero' and 'te amo' in Spanish?",
	"Translate this German text to English: 'Ich habe morgen einen wichtigen Termin'",
	"How do I politely ask for directions in Italian?",
	"Translate this business email to Mandarin Chinese: 'We would like to schedule a meeting next week'",
	"What are some common greeting phrases in Arabic?",
	"Translate this sentence to Russian, maintaining a casual tone: 'Let's meet up for coffee sometime'",
	"How do you express 'thank you very much' in different levels of formality in Japanese?",
}

// Example is a reference translation shown in the guide.
type Example struct {
	Source         string `json:"source"`
	Target         string `json:"target"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	Notes          string `json:"notes,omitempty"`
}

// Type is a translation register that shapes the prompt.
type Type struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Examples    []Example `json:"examples"`
}

// DefaultType adds nothing to the prompt.
const DefaultType = "general"

// Types lists the translation registers.
var Types = []Type{
	{
		ID: "general", Name: "General Text",
		Description: "Everyday language for common communication",
		Examples: []Example{
			{Source: "I need to buy groceries.", Target: "Necesito comprar comestibles.", SourceLanguage: "English", TargetLanguage: "Spanish"},
			{Source: "The weather is nice today.", Target: "Il fait beau aujourd'hui.", SourceLanguage: "English", TargetLanguage: "French"},
		},
	},
	{
		ID: "business", Name: "Business & Professional",
		Description: "Formal language for workplace and professional settings",
		Examples: []Example{
			{Source: "We look forward to our future collaboration.", Target: "我々は今後の協力を楽しみにしております。", SourceLanguage: "English", TargetLanguage: "Japanese"},
			{Source: "Please find attached the quarterly report.", Target: "Anbei finden Sie den Quartalsbericht.", SourceLanguage: "English", TargetLanguage: "German"},
		},
	},
	{
		ID: "technical", Name: "Technical & Scientific",
		Description: "Specialized terminology for technical fields",
		Examples: []Example{
			{Source: "The algorithm optimizes computing resources through parallel processing.", Target: "Алгоритм оптимизирует вычислительные ресурсы с помощью параллельной обработки.", SourceLanguage: "English", TargetLanguage: "Russian"},
			{Source: "Quantum entanglement occurs when particles interact in ways that their quantum states cannot be described independently.", Target: "量子纠缠发生在粒子以其量子态无法独立描述的方式相互作用时。", SourceLanguage: "English", TargetLanguage: "Chinese"},
		},
	},
	{
		ID: "literary", Name: "Literary & Creative",
		Description: "Expressive language for creative works",
		Examples: []Example{
			{Source: "The morning dew glistened like diamonds on the grass.", Target: "La rosée du matin brillait comme des diamants sur l'herbe.", SourceLanguage: "English", TargetLanguage: "French"},
			{Source: "Her laughter echoed through the empty hallways of her memories.", Target: "La sua risata echeggiava nei corridoi vuoti dei suoi ricordi.", SourceLanguage: "English", TargetLanguage: "Italian"},
		},
	},
	{
		ID: "idioms", Name: "Idioms & Expressions",
		Description: "Cultural sayings and expressions that often don't translate literally",
		Examples: []Example{
			{Source: "It's raining cats and dogs.", Target: "Está lloviendo a cántaros.", SourceLanguage: "English", TargetLanguage: "Spanish", Notes: `Literal translation would be nonsensical; Spanish uses "It's raining pitchers" instead`},
			{Source: "Break a leg!", Target: "Toi toi toi!", SourceLanguage: "English", TargetLanguage: "German", Notes: "Different expression used to wish good luck in German theater tradition"},
		},
	},
	{
		ID: "cultural", Name: "Cultural References",
		Description: "Content with cultural nuances that require adaptation",
		Examples: []Example{
			{Source: "She graduated with honors from an Ivy League school.", Target: "Elle est diplômée avec mention d'une université prestigieuse américaine.", SourceLanguage: "English", TargetLanguage: "French", Notes: `The concept of "Ivy League" doesn't translate directly and is explained instead`},
			{Source: "We will have a tailgate party before the football game.", Target: "私たちはアメリカンフットボールの試合前に駐車場で食事会をします。", SourceLanguage: "English", TargetLanguage: "Japanese", Notes: `The concept of "tailgate party" needed explanation in Japanese`},
		},
	},
}

// LookupType finds a translation type by id.
func LookupType(id string) (Type, bool) {
	for _, t := range Types {
		if t.ID == id {
			return t, true
		}
	}
	return Type{}, false
}

// Formality levels. Auto leaves the tone to the backend.
const (
	FormalityAuto     = "auto"
	FormalityFormal   = "formal"
	FormalityNeutral  = "neutral"
	FormalityInformal = "informal"
)

// Formalities lists the formality levels in picker order.
var Formalities = []string{FormalityAuto, FormalityFormal, FormalityNeutral, FormalityInformal}

func validFormality(f string) bool {
	for _, x := range Formalities {
		if x == f {
			return true
		}
	}
	return false
}

// Factor is one reason a language pair is hard to translate.
type Factor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

// Factors backs the translation guide.
var Factors = []Factor{
	{ID: "syntaxDiff", Name: "Syntactical Differences", Description: "Variations in sentence structure between languages",
		Example: "English follows Subject-Verb-Object order while Japanese uses Subject-Object-Verb: 'I eat sushi' becomes 私は寿司を食べます."},
	{ID: "culturalConcepts", Name: "Cultural Concepts", Description: "Ideas that exist in one culture but not another",
		Example: "Hygge (Danish) is often kept as \"hygge\" in English with an explanation."},
	{ID: "idiomaticExpressions", Name: "Idiomatic Expressions", Description: "Phrases whose meanings cannot be derived from the individual words",
		Example: "'to kick the bucket' becomes the Spanish 'estirar la pata' (to stretch the leg)."},
	{ID: "genderGrammar", Name: "Grammatical Gender", Description: "Languages that assign genders to nouns and require agreement",
		Example: "German uses three genders: 'The book is new' becomes 'Das Buch ist neu' (neuter)."},
	{ID: "formalityLevels", Name: "Formality Levels", Description: "Languages with distinct formal and informal speech forms",
		Example: "Korean 'Thank you': 고마워 (casual), 감사합니다 (polite), 대단히 감사드립니다 (formal)."},
}

// Tips are the translation guide's usage hints.
var Tips = []string{
	"Provide context: Mention the purpose and audience of your text for more accurate translations",
	"Specify formality level: Languages like Japanese, Korean, and German have different politeness levels",
	"Use complete sentences: Partial phrases may be ambiguous and lead to incorrect translations",
	"Review specialized terminology: Technical fields often have specific vocabulary that may need verification",
	"Consider cultural adaptation: Some concepts may need explanation or adaptation for the target culture",
}

func typePhrase(id string) string {
	if id == DefaultType {
		return ""
	}
	t, ok := LookupType(id)
	if !ok {
		return ""
	}
	return "This is " + strings.ToLower(t.Name) + " text. "
}
