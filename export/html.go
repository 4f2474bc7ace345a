package export

import (
	"bytes"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// sanitizer strips anything a message could smuggle into the page beyond
// ordinary formatting.
var sanitizer = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#-]+$`)).OnElements("code")
	return p
}()

type htmlMessage struct {
	Class     string
	Body      template.HTML
	Timestamp string
}

type htmlPage struct {
	Title        string
	Heading      string
	Meta         [][2]string
	Theme        Theme
	FontFamily   template.CSS
	FontSize     int
	MaxImageSize int
	Messages     []htmlMessage
	Watermark    string
	ShowHeader   bool
	IncludeMeta  bool
}

var pageTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: {{.FontFamily}}; font-size: {{.FontSize}}px; line-height: 1.6; color: {{.Theme.Text}}; background-color: {{.Theme.Background}}; margin: 0; padding: 20px; }
.chat-container { max-width: 800px; margin: 0 auto; border-radius: 8px; background-color: {{.Theme.CardBackground}}; box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1); overflow: hidden; }
.chat-header { padding: 20px; background-color: {{.Theme.Border}}; border-bottom: 1px solid {{.Theme.Border}}; }
.chat-title { margin: 0; font-size: 1.5em; color: {{.Theme.Text}}; }
.chat-metadata { margin-top: 10px; font-size: 0.9em; color: {{.Theme.Timestamp}}; }
.chat-body { padding: 20px; }
.message { margin-bottom: 20px; max-width: 80%; clear: both; }
.message-user { float: right; background-color: {{.Theme.UserBubble}}; color: {{.Theme.UserText}}; border-radius: 15px 15px 0 15px; padding: 12px 18px; }
.message-ai { float: left; background-color: {{.Theme.AIBubble}}; color: {{.Theme.AIText}}; border-radius: 15px 15px 15px 0; padding: 12px 18px; }
.message-content { word-wrap: break-word; }
.timestamp { font-size: 0.8em; color: {{.Theme.Timestamp}}; margin-top: 5px; text-align: right; }
.clearfix::after { content: ""; clear: both; display: table; }
pre { white-space: pre-wrap; word-wrap: break-word; padding: 10px; background-color: rgba(0, 0, 0, 0.1); border-radius: 4px; overflow-x: auto; }
code { font-family: monospace; padding: 2px 4px; background-color: rgba(0, 0, 0, 0.05); border-radius: 2px; }
pre code { padding: 0; background-color: transparent; }
img { max-width: 100%; max-height: {{.MaxImageSize}}px; border-radius: 4px; }
.footer { text-align: center; padding: 20px; font-size: 0.8em; color: {{.Theme.Timestamp}}; border-top: 1px solid {{.Theme.Border}}; }
</style>
</head>
<body>
<div class="chat-container">
{{- if .ShowHeader}}
<div class="chat-header">
<h1 class="chat-title">{{.Heading}}</h1>
{{- if .IncludeMeta}}
<div class="chat-metadata">
{{- range .Meta}}
<div>{{index . 0}}: {{index . 1}}</div>
{{- end}}
</div>
{{- end}}
</div>
{{- end}}
<div class="chat-body">
{{- range .Messages}}
<div class="clearfix">
<div class="message {{.Class}}">
<div class="message-content">{{.Body}}</div>
{{- if .Timestamp}}
<div class="timestamp">{{.Timestamp}}</div>
{{- end}}
</div>
</div>
{{- end}}
</div>
{{- if .Watermark}}
<div class="footer">{{.Watermark}}</div>
{{- end}}
</div>
</body>
</html>
`))

func (e *Exporter) html(msgs []Message, meta Metadata) ([]byte, error) {
	page := htmlPage{
		Title:        meta.Title,
		Heading:      meta.Title,
		Meta:         e.metaLines(meta),
		Theme:        e.cfg.theme(),
		FontFamily:   template.CSS(cssFontFamily(e.cfg.FontFamily)),
		FontSize:     e.cfg.FontSize,
		MaxImageSize: e.cfg.MaxImageSize,
		Watermark:    e.cfg.Watermark,
		ShowHeader:   e.cfg.IncludeChatTitle && meta.Title != "",
		IncludeMeta:  e.cfg.IncludeMetadata,
	}
	if page.Title == "" {
		page.Title = "Chat Conversation"
	}
	for _, m := range msgs {
		body, err := e.htmlBody(m)
		if err != nil {
			return nil, err
		}
		hm := htmlMessage{Class: "message-ai", Body: body}
		if role(m) == jaat.RoleUser {
			hm.Class = "message-user"
		}
		if e.cfg.IncludeTimestamps && !m.Timestamp.IsZero() {
			hm.Timestamp = e.cfg.formatTime(m.Timestamp)
		}
		page.Messages = append(page.Messages, hm)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// htmlBody renders message content. With code formatting on, content is
// treated as markdown; otherwise it is escaped text with line breaks.
func (e *Exporter) htmlBody(m Message) (template.HTML, error) {
	var out strings.Builder
	if len(m.Parts) == 0 {
		frag, err := e.renderText(m.Content)
		if err != nil {
			return "", err
		}
		out.WriteString(frag)
	}
	for _, p := range m.Parts {
		switch p.Type {
		case "image":
			if p.URL != "" && e.cfg.ExportImages {
				out.WriteString(`<img src="` + html.EscapeString(p.URL) + `" alt="Image">`)
			}
		case "code":
			if p.Text != "" {
				out.WriteString(`<pre><code class="language-` + html.EscapeString(p.Language) + `">` + html.EscapeString(p.Text) + `</code></pre>`)
			}
		default:
			frag, err := e.renderText(p.Text)
			if err != nil {
				return "", err
			}
			out.WriteString(frag)
		}
	}
	return template.HTML(sanitizer.Sanitize(out.String())), nil
}

func (e *Exporter) renderText(s string) (string, error) {
	if !e.cfg.FormatCodeBlocks {
		return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>"), nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var fontFamilyRe = regexp.MustCompile(`^[\w\s,'"-]+$`)

func cssFontFamily(s string) string {
	if s == "" || !fontFamilyRe.MatchString(s) {
		return DefaultConfig().FontFamily
	}
	return s
}
