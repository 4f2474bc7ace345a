package translate

import (
	"strings"

	"golang.org/x/text/language"
)

// Auto is the source language code for "detect language".
const Auto = "auto"

// Language is one supported translation language.
type Language struct {
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	NativeName string       `json:"nativeName"`
	Tag        language.Tag `json:"-"`
}

// Label is the option text shown in language pickers.
func (l Language) Label() string { return l.Name + " (" + l.NativeName + ")" }

func lang(code, name, native string) Language {
	return Language{Code: code, Name: name, NativeName: native, Tag: language.MustParse(code)}
}

// Languages lists the supported languages in picker order.
var Languages = []Language{
	lang("en", "English", "English"),
	lang("es", "Spanish", "Español"),
	lang("fr", "French", "Français"),
	lang("de", "German", "Deutsch"),
	lang("it", "Italian", "Italiano"),
	lang("pt", "Portuguese", "Português"),
	lang("nl", "Dutch", "Nederlands"),
	lang("ru", "Russian", "Русский"),
	lang("zh", "Chinese", "中文"),
	lang("ja", "Japanese", "日本語"),
	lang("ko", "Korean", "한국어"),
	lang("ar", "Arabic", "العربية"),
	lang("hi", "Hindi", "हिन्दी"),
	lang("bn", "Bengali", "বাংলা"),
	lang("tr", "Turkish", "Türkçe"),
	lang("pl", "Polish", "Polski"),
	lang("sv", "Swedish", "Svenska"),
	lang("fi", "Finnish", "Suomi"),
	lang("da", "Danish", "Dansk"),
	lang("no", "Norwegian", "Norsk"),
	lang("cs", "Czech", "Čeština"),
	lang("el", "Greek", "Ελληνικά"),
	lang("he", "Hebrew", "עברית"),
	lang("th", "Thai", "ไทย"),
	lang("vi", "Vietnamese", "Tiếng Việt"),
	lang("id", "Indonesian", "Bahasa Indonesia"),
	lang("ms", "Malay", "Bahasa Melayu"),
	lang("fa", "Persian", "فارسی"),
	lang("uk", "Ukrainian", "Українська"),
	lang("ro", "Romanian", "Română"),
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, len(Languages))
	for i, l := range Languages {
		tags[i] = l.Tag
	}
	return language.NewMatcher(tags)
}()

// LookupLanguage resolves a code to a supported language. Exact codes match
// directly; regional or script variants ("pt-BR", "zh-Hant") resolve to
// their base language.
func LookupLanguage(code string) (Language, bool) {
	code = strings.TrimSpace(code)
	for _, l := range Languages {
		if strings.EqualFold(l.Code, code) {
			return l, true
		}
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Language{}, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return Language{}, false
	}
	return Languages[idx], true
}

// LanguageName returns the English name for code. "auto" reads as the
// auto-detected language; unknown codes are returned unchanged.
func LanguageName(code string) string {
	if code == Auto {
		return "Auto-detected language"
	}
	if l, ok := LookupLanguage(code); ok {
		return l.Name
	}
	return code
}
