package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"time"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

// ──────────────────────────────────────────────
// Markdown
// ──────────────────────────────────────────────

func (e *Exporter) markdown(msgs []Message, meta Metadata) string {
	var b strings.Builder
	if e.cfg.IncludeChatTitle && meta.Title != "" {
		b.WriteString("# " + meta.Title + "\n\n")
	}
	if e.cfg.IncludeMetadata {
		b.WriteString("## Conversation Info\n\n")
		for _, kv := range e.metaLines(meta) {
			b.WriteString("- **" + kv[0] + ":** " + kv[1] + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Conversation\n\n")
	for _, m := range msgs {
		switch r := role(m); r {
		case jaat.RoleUser:
			b.WriteString("### 👤 User\n\n")
		case jaat.RoleAssistant:
			b.WriteString("### 🤖 AI\n\n")
		default:
			b.WriteString("### " + jaat.Capitalize(r) + "\n\n")
		}
		if e.cfg.IncludeTimestamps && !m.Timestamp.IsZero() {
			b.WriteString("*" + e.cfg.formatTime(m.Timestamp) + "*\n\n")
		}
		if len(m.Parts) == 0 {
			b.WriteString(fenceRe.ReplaceAllStringFunc(m.Content, func(block string) string {
				sub := fenceRe.FindStringSubmatch(block)
				return "```" + sub[1] + "\n" + strings.TrimSpace(sub[2]) + "\n```"
			}) + "\n\n")
		}
		for _, p := range m.Parts {
			switch p.Type {
			case "image":
				if p.URL != "" {
					b.WriteString("![image](" + p.URL + ")\n\n")
				}
			case "code":
				if p.Text != "" {
					b.WriteString("```" + p.Language + "\n" + p.Text + "\n```\n\n")
				}
			default:
				b.WriteString(p.Text + "\n\n")
			}
		}
		b.WriteString("\n")
	}

	if e.cfg.Watermark != "" {
		b.WriteString("\n---\n\n*" + e.cfg.Watermark + "*\n")
	}
	return b.String()
}

// metaLines returns the label/value pairs of the conversation info block.
func (e *Exporter) metaLines(meta Metadata) [][2]string {
	var out [][2]string
	if !meta.Date.IsZero() {
		out = append(out, [2]string{"Date", e.cfg.formatTime(meta.Date)})
	}
	if meta.AIMode != "" {
		out = append(out, [2]string{"AI Mode", meta.AIMode})
	}
	for _, k := range meta.extraKeys() {
		out = append(out, [2]string{jaat.Capitalize(k), meta.Extra[k]})
	}
	return out
}

// ──────────────────────────────────────────────
// Plain text
// ──────────────────────────────────────────────

func (e *Exporter) text(msgs []Message, meta Metadata) string {
	var b strings.Builder
	if e.cfg.IncludeChatTitle && meta.Title != "" {
		b.WriteString(meta.Title + "\n")
		b.WriteString(strings.Repeat("=", len([]rune(meta.Title))) + "\n\n")
	}
	if e.cfg.IncludeMetadata {
		b.WriteString("Conversation Info:\n-----------------\n")
		for _, kv := range e.metaLines(meta) {
			b.WriteString(kv[0] + ": " + kv[1] + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Conversation:\n-------------\n\n")
	for _, m := range msgs {
		switch r := role(m); r {
		case jaat.RoleUser:
			b.WriteString("User: ")
		case jaat.RoleAssistant:
			b.WriteString("AI: ")
		default:
			b.WriteString(jaat.Capitalize(r) + ": ")
		}
		if len(m.Parts) == 0 {
			b.WriteString(fenceRe.ReplaceAllStringFunc(m.Content, func(block string) string {
				sub := fenceRe.FindStringSubmatch(block)
				lang := orCode(sub[1])
				return "--- " + lang + " Start ---\n" + strings.TrimSpace(sub[2]) + "\n--- " + lang + " End ---"
			}))
		}
		for _, p := range m.Parts {
			switch p.Type {
			case "image":
				if p.URL != "" {
					b.WriteString("[Image: " + p.URL + "]")
				}
			case "code":
				if p.Text != "" {
					lang := orCode(p.Language)
					b.WriteString("\n--- " + lang + " Start ---\n" + p.Text + "\n--- " + lang + " End ---\n")
				}
			default:
				b.WriteString(p.Text)
			}
		}
		if e.cfg.IncludeTimestamps && !m.Timestamp.IsZero() {
			b.WriteString(" (" + e.cfg.formatTime(m.Timestamp) + ")")
		}
		b.WriteString("\n\n")
	}

	if e.cfg.Watermark != "" {
		b.WriteString("\n" + strings.Repeat("-", 50) + "\n" + e.cfg.Watermark + "\n")
	}
	return b.String()
}

func orCode(lang string) string {
	if lang == "" {
		return "Code"
	}
	return lang
}

// ──────────────────────────────────────────────
// CSV
// ──────────────────────────────────────────────

func (e *Exporter) csv(msgs []Message) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Role", "Content", "Timestamp"}); err != nil {
		return nil, err
	}
	for _, m := range msgs {
		ts := ""
		if !m.Timestamp.IsZero() {
			ts = e.cfg.formatTime(m.Timestamp)
		}
		if err := w.Write([]string{role(m), flatten(m), ts}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ──────────────────────────────────────────────
// JSON
// ──────────────────────────────────────────────

func (e *Exporter) json(msgs []Message, meta Metadata) ([]byte, error) {
	info := map[string]any{"exportDate": e.now().UTC().Format(time.RFC3339)}
	if meta.Title != "" {
		info["title"] = meta.Title
	}
	if !meta.Date.IsZero() {
		info["date"] = meta.Date.UTC().Format(time.RFC3339)
	}
	if meta.AIMode != "" {
		info["aiMode"] = meta.AIMode
	}
	for k, v := range meta.Extra {
		if _, taken := info[k]; !taken {
			info[k] = v
		}
	}

	clean := make([]Message, len(msgs))
	for i, m := range msgs {
		m.Role = role(m)
		if m.Content == "" && len(m.Parts) > 0 {
			m.Content = flatten(m)
		}
		clean[i] = m
	}
	return json.MarshalIndent(map[string]any{"metadata": info, "messages": clean}, "", "  ")
}
