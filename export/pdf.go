package export

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// PageSize is a named page in points.
type PageSize struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var PageSizes = []PageSize{
	{ID: "a4", Name: "A4", Width: 595.28, Height: 841.89},
	{ID: "letter", Name: "Letter", Width: 612, Height: 792},
	{ID: "legal", Name: "Legal", Width: 612, Height: 1008},
	{ID: "a3", Name: "A3", Width: 841.89, Height: 1190.55},
	{ID: "a5", Name: "A5", Width: 419.53, Height: 595.28},
}

// LookupPageSize falls back to A4 for unknown ids.
func LookupPageSize(id string) PageSize {
	for _, p := range PageSizes {
		if p.ID == id {
			return p
		}
	}
	return PageSizes[0]
}

// Colors is a PDF color scheme.
type Colors struct {
	Background       string `json:"background"`
	HeaderBackground string `json:"headerBackground"`
	HeaderText       string `json:"headerText"`
	UserMessage      string `json:"userMessage"`
	UserMessageText  string `json:"userMessageText"`
	AIMessage        string `json:"aiMessage"`
	AIMessageText    string `json:"aiMessageText"`
	TimestampText    string `json:"timestampText"`
}

var ColorSchemes = map[string]Colors{
	"default": {
		Background: "#ffffff", HeaderBackground: "#f3f4f6", HeaderText: "#111827",
		UserMessage: "#e9f5fe", UserMessageText: "#1e3a8a", AIMessage: "#f1f5f9", AIMessageText: "#0f172a", TimestampText: "#6b7280",
	},
	"dark": {
		Background: "#1f2937", HeaderBackground: "#111827", HeaderText: "#f9fafb",
		UserMessage: "#374151", UserMessageText: "#e5e7eb", AIMessage: "#2a374b", AIMessageText: "#e5e7eb", TimestampText: "#9ca3af",
	},
	"light": {
		Background: "#ffffff", HeaderBackground: "#f9fafb", HeaderText: "#1f2937",
		UserMessage: "#f3f4f6", UserMessageText: "#1f2937", AIMessage: "#f9fafb", AIMessageText: "#1f2937", TimestampText: "#6b7280",
	},
	"professional": {
		Background: "#ffffff", HeaderBackground: "#0f4c81", HeaderText: "#ffffff",
		UserMessage: "#e6f2ff", UserMessageText: "#0f4c81", AIMessage: "#f0f4f8", AIMessageText: "#2c3e50", TimestampText: "#5a6b7b",
	},
	"contrast": {
		Background: "#ffffff", HeaderBackground: "#000000", HeaderText: "#ffffff",
		UserMessage: "#000000", UserMessageText: "#ffffff", AIMessage: "#ffffff", AIMessageText: "#000000", TimestampText: "#555555",
	},
}

// Margins in points.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// FontSizes in points per text role.
type FontSizes struct {
	Header    float64 `json:"header"`
	Subheader float64 `json:"subheader"`
	Message   float64 `json:"message"`
	Timestamp float64 `json:"timestamp"`
	Footer    float64 `json:"footer"`
}

// PDFOptions are the PDF export settings. They persist as the panel model.
type PDFOptions struct {
	PageSize           string    `json:"pageSize"`
	PageOrientation    string    `json:"pageOrientation"`
	DefaultFileName    string    `json:"defaultFileName"`
	IncludeTimestamps  bool      `json:"includeTimestamps"`
	IncludeSenderInfo  bool      `json:"includeSenderInfo"`
	IncludeMetadata    bool      `json:"includeMetadata"`
	ColorScheme        string    `json:"colorScheme"`
	CustomColors       Colors    `json:"customColors"`
	Margins            Margins   `json:"margins"`
	FontFamily         string    `json:"fontFamily"`
	FontSize           FontSizes `json:"fontSize"`
	LogoURL            string    `json:"logoUrl,omitempty"`
	HeaderText         string    `json:"headerText"`
	FooterText         string    `json:"footerText"`
	IncludePageNumbers bool      `json:"includePageNumbers"`
	TableOfContents    bool      `json:"tableOfContents"`
	SplitByDate        bool      `json:"splitByDate"`
}

// DefaultPDFOptions returns the stock PDF settings.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:           "a4",
		PageOrientation:    "portrait",
		DefaultFileName:    "jaat-ai-export",
		IncludeTimestamps:  true,
		IncludeSenderInfo:  true,
		IncludeMetadata:    true,
		ColorScheme:        "default",
		CustomColors:       ColorSchemes["default"],
		Margins:            Margins{Top: 40, Right: 40, Bottom: 40, Left: 40},
		FontFamily:         "Helvetica",
		FontSize:           FontSizes{Header: 18, Subheader: 14, Message: 12, Timestamp: 10, Footer: 10},
		HeaderText:         "JAAT-AI Chat Export",
		FooterText:         "Exported from JAAT-AI",
		IncludePageNumbers: true,
	}
}

// Colors resolves the color scheme; unknown schemes use default.
func (o PDFOptions) Colors() Colors {
	if o.ColorScheme == "custom" {
		return o.CustomColors
	}
	if c, ok := ColorSchemes[o.ColorScheme]; ok {
		return c
	}
	return ColorSchemes["default"]
}

// merge overlays patch (a partial options object) onto o. Nested objects
// merge field by field.
func (o PDFOptions) merge(patch map[string]any) (PDFOptions, error) {
	if len(patch) == 0 {
		return o, nil
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return o, fmt.Errorf("invalid pdf options: %w", err)
	}
	return o, nil
}

// ──────────────────────────────────────────────
// Document definition
// ──────────────────────────────────────────────

// Node is one block of the document: text, a stack of nodes, or an image.
type Node struct {
	Text      string    `json:"text,omitempty"`
	Style     string    `json:"style,omitempty"`
	Stack     []Node    `json:"stack,omitempty"`
	Image     string    `json:"image,omitempty"`
	Width     float64   `json:"width,omitempty"`
	Bold      bool      `json:"bold,omitempty"`
	FontSize  float64   `json:"fontSize,omitempty"`
	Alignment string    `json:"alignment,omitempty"`
	Margin    []float64 `json:"margin,omitempty"`
	PageBreak string    `json:"pageBreak,omitempty"` // before | after
	TocItem   bool      `json:"tocItem,omitempty"`
}

// Style is a named text style.
type Style struct {
	FontSize   float64   `json:"fontSize,omitempty"`
	Bold       bool      `json:"bold,omitempty"`
	Italic     bool      `json:"italic,omitempty"`
	Color      string    `json:"color,omitempty"`
	Background string    `json:"background,omitempty"`
	Alignment  string    `json:"alignment,omitempty"`
	Margin     []float64 `json:"margin,omitempty"`
	Padding    []float64 `json:"padding,omitempty"`
}

// DocDefinition is the layout-independent description of a PDF.
type DocDefinition struct {
	PageSize        PageSize         `json:"pageSize"`
	PageOrientation string           `json:"pageOrientation"`
	PageMargins     [4]float64       `json:"pageMargins"` // left, top, right, bottom
	Content         []Node           `json:"content"`
	Styles          map[string]Style `json:"styles"`
	DefaultFont     string           `json:"defaultFont"`
	DefaultSize     float64          `json:"defaultFontSize"`
	Background      string           `json:"background"`
	Header          *Node            `json:"header,omitempty"`
	FooterText      string           `json:"footerText"`
	FooterSize      float64          `json:"footerFontSize"`
	PageNumbers     bool             `json:"pageNumbers"`
}

// Footer renders the footer line of one page.
func (d *DocDefinition) Footer(page, count int) string {
	return d.footer(page, strconv.Itoa(count))
}

func (d *DocDefinition) footer(page int, count string) string {
	if d.PageNumbers {
		return fmt.Sprintf("%s | Page %d of %s", d.FooterText, page, count)
	}
	return d.FooterText
}

// DateGroup is the messages of one calendar day.
type DateGroup struct {
	Date     string
	Day      time.Time
	Messages []Message
}

const dateLayout = "Mon Jan 02 2006"

// GroupByDate buckets messages per calendar day in loc, oldest day first.
// Messages without a timestamp land in a trailing "Undated" group.
func GroupByDate(msgs []Message, loc *time.Location) []DateGroup {
	if loc == nil {
		loc = time.Local
	}
	index := map[string]int{}
	var groups []DateGroup
	var undated []Message
	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			undated = append(undated, m)
			continue
		}
		t := m.Timestamp.In(loc)
		key := t.Format(dateLayout)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DateGroup{Date: key, Day: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Day.Before(groups[j].Day) })
	if len(undated) > 0 {
		groups = append(groups, DateGroup{Date: "Undated", Messages: undated})
	}
	return groups
}

// ──────────────────────────────────────────────
// PDF exporter
// ──────────────────────────────────────────────

// PDF builds document definitions and renders them.
type PDF struct {
	opts     PDFOptions
	now      func() time.Time
	location *time.Location
}

// NewPDF starts from DefaultPDFOptions with patch applied. An invalid patch
// is ignored.
func NewPDF(patch map[string]any) *PDF {
	p := &PDF{opts: DefaultPDFOptions(), now: time.Now, location: time.Local}
	if merged, err := p.opts.merge(patch); err == nil {
		p.opts = merged
	}
	return p
}

// Options returns the base options.
func (p *PDF) Options() PDFOptions { return p.opts }

// Definition builds the document for msgs with per-export overrides.
func (p *PDF) Definition(msgs []Message, overrides map[string]any) (*DocDefinition, error) {
	opts, err := p.opts.merge(overrides)
	if err != nil {
		return nil, err
	}
	return p.definition(msgs, opts), nil
}

func (p *PDF) definition(msgs []Message, o PDFOptions) *DocDefinition {
	colors := o.Colors()
	fs := o.FontSize
	var content []Node

	content = append(content, Node{Text: o.HeaderText, Style: "header", Margin: []float64{0, 0, 0, 20}})
	if o.IncludeMetadata {
		content = append(content, Node{Text: "Exported on: " + p.formatTime(p.now()), Style: "metadata", Margin: []float64{0, 0, 0, 10}})
		if len(msgs) > 0 {
			first, last := msgs[0].Timestamp, msgs[len(msgs)-1].Timestamp
			if !first.IsZero() && !last.IsZero() {
				content = append(content, Node{
					Text:   fmt.Sprintf("Conversation from %s to %s", p.formatTime(first), p.formatTime(last)),
					Style:  "metadata",
					Margin: []float64{0, 0, 0, 20},
				})
			}
			content = append(content, Node{Text: fmt.Sprintf("Total messages: %d", len(msgs)), Style: "metadata", Margin: []float64{0, 0, 0, 20}})
		}
	}

	var groups []DateGroup
	if o.SplitByDate {
		groups = GroupByDate(msgs, p.location)
	}
	if o.TableOfContents && len(msgs) > 0 {
		content = append(content, Node{Text: "Table of Contents", Style: "subheader", Margin: []float64{0, 0, 0, 10}})
		if o.SplitByDate {
			items := make([]Node, len(groups))
			for i, g := range groups {
				items[i] = Node{Text: g.Date, Style: "tocItem", TocItem: true, Margin: []float64{0, 5, 0, 0}}
			}
			content = append(content, Node{Stack: items, Margin: []float64{0, 0, 0, 20}})
		}
		content = append(content, Node{PageBreak: "after"})
	}

	if o.SplitByDate {
		for i, g := range groups {
			h := Node{Text: g.Date, Style: "subheader", Margin: []float64{0, 0, 0, 10}}
			if i > 0 {
				h.Margin[1] = 20
				h.PageBreak = "before"
			}
			content = append(content, h)
			for _, m := range g.Messages {
				content = append(content, p.messageNode(m, o))
			}
		}
	} else {
		for _, m := range msgs {
			content = append(content, p.messageNode(m, o))
		}
	}

	doc := &DocDefinition{
		PageSize:        LookupPageSize(o.PageSize),
		PageOrientation: o.PageOrientation,
		PageMargins:     [4]float64{o.Margins.Left, o.Margins.Top, o.Margins.Right, o.Margins.Bottom},
		Content:         content,
		Styles: map[string]Style{
			"header":      {FontSize: fs.Header, Bold: true, Color: colors.HeaderText, Alignment: "center", Background: colors.HeaderBackground},
			"subheader":   {FontSize: fs.Subheader, Bold: true, Margin: []float64{0, 10, 0, 5}},
			"metadata":    {FontSize: fs.Timestamp, Color: colors.TimestampText, Italic: true},
			"userMessage": {Background: colors.UserMessage, Color: colors.UserMessageText, Margin: []float64{0, 5, 0, 5}, Padding: []float64{10, 10, 10, 10}},
			"aiMessage":   {Background: colors.AIMessage, Color: colors.AIMessageText, Margin: []float64{0, 5, 0, 5}, Padding: []float64{10, 10, 10, 10}},
			"timestamp":   {FontSize: fs.Timestamp, Color: colors.TimestampText, Alignment: "right", Margin: []float64{0, 2, 0, 10}, Italic: true},
			"tocItem":     {FontSize: fs.Message, Color: colors.HeaderText, Margin: []float64{0, 3, 0, 3}},
		},
		DefaultFont: o.FontFamily,
		DefaultSize: fs.Message,
		Background:  colors.Background,
		FooterText:  o.FooterText,
		FooterSize:  fs.Footer,
		PageNumbers: o.IncludePageNumbers,
	}
	if o.LogoURL != "" {
		doc.Header = &Node{Image: o.LogoURL, Width: 100, Alignment: "center", Margin: []float64{0, 10, 0, 10}}
	}
	return doc
}

func (p *PDF) messageNode(m Message, o PDFOptions) Node {
	user := role(m) == "user"
	style := "aiMessage"
	sender := "AI Assistant"
	if user {
		style, sender = "userMessage", "You"
	}
	var items []Node
	if o.IncludeSenderInfo {
		items = append(items, Node{Text: sender, Bold: true, FontSize: o.FontSize.Message + 1, Margin: []float64{0, 0, 0, 3}})
	}
	items = append(items, Node{Text: flatten(m), FontSize: o.FontSize.Message})

	container := []Node{{Stack: items, Style: style}}
	if o.IncludeTimestamps && !m.Timestamp.IsZero() {
		container = append(container, Node{Text: p.formatTime(m.Timestamp), Style: "timestamp"})
	}
	return Node{Stack: container, Margin: []float64{0, 5, 0, 5}}
}

func (p *PDF) formatTime(t time.Time) string {
	return Config{Location: p.location, TimeLayout: DefaultConfig().TimeLayout}.formatTime(t)
}

// Render builds and lays out the document.
func (p *PDF) Render(ctx context.Context, msgs []Message, overrides map[string]any) ([]byte, error) {
	doc, err := p.Definition(msgs, overrides)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return layout(doc)
}
