// Package export renders a conversation into downloadable files: a PDF laid
// out from a document definition, plus markdown, html, json, plain text, csv
// and xlsx.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/notifier"
)

// Format identifies an export format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
)

// FormatInfo describes one supported format.
type FormatInfo struct {
	ID   Format `json:"id"`
	Name string `json:"name"`
	Ext  string `json:"ext"`
	MIME string `json:"mime"`
}

// Formats lists the supported formats in menu order.
var Formats = []FormatInfo{
	{ID: FormatPDF, Name: "PDF Document", Ext: "pdf", MIME: "application/pdf"},
	{ID: FormatMarkdown, Name: "Markdown", Ext: "md", MIME: "text/markdown"},
	{ID: FormatHTML, Name: "HTML Document", Ext: "html", MIME: "text/html"},
	{ID: FormatJSON, Name: "JSON Data", Ext: "json", MIME: "application/json"},
	{ID: FormatText, Name: "Plain Text", Ext: "txt", MIME: "text/plain"},
	{ID: FormatCSV, Name: "CSV Data", Ext: "csv", MIME: "text/csv"},
	{ID: FormatXLSX, Name: "Excel Workbook", Ext: "xlsx", MIME: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
}

// ErrUnsupportedFormat is returned for a format outside Formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Lookup finds a format by id.
func Lookup(id Format) (FormatInfo, bool) {
	for _, f := range Formats {
		if f.ID == id {
			return f, true
		}
	}
	return FormatInfo{}, false
}

// ──────────────────────────────────────────────
// Input
// ──────────────────────────────────────────────

// Part is one piece of a multi-part message: text, image or code.
type Part struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
	Language string `json:"language,omitempty"`
}

// Message is one exported chat message. Parts, when present, replace
// Content.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content,omitempty"`
	Parts     []Part         `json:"parts,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FromHistory converts a mode's conversation history.
func FromHistory(turns []jaat.Turn) []Message {
	out := make([]Message, len(turns))
	for i, t := range turns {
		out[i] = Message{Role: t.Role, Content: t.Content, Timestamp: t.Timestamp}
		if t.RequestType != "" {
			out[i].Metadata = map[string]any{"requestType": t.RequestType}
		}
	}
	return out
}

// Metadata describes the conversation being exported.
type Metadata struct {
	Title  string            `json:"title,omitempty"`
	Date   time.Time         `json:"date"`
	AIMode string            `json:"aiMode,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}

func (m Metadata) extraKeys() []string {
	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ──────────────────────────────────────────────
// Config
// ──────────────────────────────────────────────

// Theme colors the html export.
type Theme struct {
	Background     string `json:"background"`
	CardBackground string `json:"cardBackground"`
	Text           string `json:"text"`
	Border         string `json:"border"`
	UserBubble     string `json:"userBubble"`
	AIBubble       string `json:"aiBubble"`
	UserText       string `json:"userText"`
	AIText         string `json:"aiText"`
	Timestamp      string `json:"timestamp"`
}

var Themes = map[string]Theme{
	"light": {
		Background: "#ffffff", CardBackground: "#f8f9fa", Text: "#212529", Border: "#e9ecef",
		UserBubble: "#e3f2fd", AIBubble: "#e8f5e9", UserText: "#0d47a1", AIText: "#1b5e20", Timestamp: "#6c757d",
	},
	"dark": {
		Background: "#121212", CardBackground: "#1e1e1e", Text: "#e0e0e0", Border: "#333333",
		UserBubble: "#0d47a1", AIBubble: "#1b5e20", UserText: "#e3f2fd", AIText: "#e8f5e9", Timestamp: "#9e9e9e",
	},
	"colorful": {
		Background: "#f5f5f5", CardBackground: "#ffffff", Text: "#333333", Border: "#dddddd",
		UserBubble: "#6200ea", AIBubble: "#00c853", UserText: "#ffffff", AIText: "#ffffff", Timestamp: "#757575",
	},
}

// Config controls the text-based exporters.
type Config struct {
	Theme             string
	IncludeTimestamps bool
	IncludeMetadata   bool
	IncludeChatTitle  bool
	FormatCodeBlocks  bool
	ExportImages      bool
	FontFamily        string
	FontSize          int
	MaxImageSize      int
	Watermark         string
	TimeLayout        string
	Location          *time.Location
	DefaultFileName   string
}

// DefaultConfig returns the stock export settings.
func DefaultConfig() Config {
	return Config{
		Theme:             "light",
		IncludeTimestamps: true,
		IncludeChatTitle:  true,
		FormatCodeBlocks:  true,
		ExportImages:      true,
		FontFamily:        "Arial, sans-serif",
		FontSize:          12,
		MaxImageSize:      800,
		TimeLayout:        "1/2/2006, 3:04:05 PM",
		DefaultFileName:   "chat-export",
	}
}

func (c Config) theme() Theme {
	if t, ok := Themes[c.Theme]; ok {
		return t
	}
	return Themes["light"]
}

func (c Config) formatTime(t time.Time) string {
	if c.Location != nil {
		t = t.In(c.Location)
	}
	layout := c.TimeLayout
	if layout == "" {
		layout = DefaultConfig().TimeLayout
	}
	return t.Format(layout)
}

// ──────────────────────────────────────────────
// Exporter
// ──────────────────────────────────────────────

// File is a rendered export ready for download.
type File struct {
	Name   string `json:"name"`
	Format Format `json:"format"`
	MIME   string `json:"mime"`
	Data   []byte `json:"-"`
}

// CompletionNotifier is told about every finished export.
type CompletionNotifier interface {
	NotifyExportComplete(e notifier.ExportInfo) string
}

// Exporter renders conversations. It is safe for concurrent use.
type Exporter struct {
	cfg    Config
	pdf    *PDF
	notify CompletionNotifier
	now    func() time.Time
}

type Option func(*Exporter)

// WithPDF uses p for the pdf format instead of default PDF options.
func WithPDF(p *PDF) Option { return func(e *Exporter) { e.pdf = p } }

// WithNotifier reports finished exports to n.
func WithNotifier(n CompletionNotifier) Option { return func(e *Exporter) { e.notify = n } }

// WithClock overrides time.Now for filenames and export dates.
func WithClock(now func() time.Time) Option { return func(e *Exporter) { e.now = now } }

func New(cfg Config, opts ...Option) *Exporter {
	e := &Exporter{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.pdf == nil {
		e.pdf = NewPDF(nil)
	}
	return e
}

// Config returns the exporter settings.
func (e *Exporter) Config() Config { return e.cfg }

// PDF returns the pdf exporter.
func (e *Exporter) PDF() *PDF { return e.pdf }

// Render produces the bytes of one format.
func (e *Exporter) Render(ctx context.Context, msgs []Message, format Format, meta Metadata) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch format {
	case FormatPDF:
		return e.pdf.Render(ctx, msgs, nil)
	case FormatMarkdown:
		return []byte(e.markdown(msgs, meta)), nil
	case FormatHTML:
		return e.html(msgs, meta)
	case FormatJSON:
		return e.json(msgs, meta)
	case FormatText:
		return []byte(e.text(msgs, meta)), nil
	case FormatCSV:
		return e.csv(msgs)
	case FormatXLSX:
		return e.xlsx(msgs, meta)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Export renders msgs and names the file "<base>-<unix ms>.<ext>". An empty
// base uses the configured default file name.
func (e *Exporter) Export(ctx context.Context, msgs []Message, format Format, meta Metadata, base string) (*File, error) {
	if _, ok := Lookup(format); !ok {
		recordExport(string(format), "unsupported")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	data, err := e.Render(ctx, msgs, format, meta)
	if err != nil {
		return nil, e.failed(format, err)
	}
	if base == "" {
		base = e.cfg.DefaultFileName
	}
	return e.finish(format, data, base), nil
}

// ExportPDF renders a PDF with per-export option overrides. The file is
// named after the effective defaultFileName.
func (e *Exporter) ExportPDF(ctx context.Context, msgs []Message, overrides map[string]any) (*File, error) {
	opts, err := e.pdf.opts.merge(overrides)
	if err != nil {
		return nil, e.failed(FormatPDF, err)
	}
	data, err := e.pdf.Render(ctx, msgs, overrides)
	if err != nil {
		return nil, e.failed(FormatPDF, err)
	}
	return e.finish(FormatPDF, data, opts.DefaultFileName), nil
}

func (e *Exporter) failed(format Format, err error) error {
	recordExport(string(format), "error")
	log.Printf("[Export] %s failed: %v", format, err)
	return err
}

func (e *Exporter) finish(format Format, data []byte, base string) *File {
	info, _ := Lookup(format)
	f := &File{Name: Filename(base, format, e.now()), Format: format, MIME: info.MIME, Data: data}
	recordExport(string(format), "ok")
	if e.notify != nil {
		e.notify.NotifyExportComplete(notifier.ExportInfo{Type: string(format), Filename: f.Name})
	}
	return f
}

// Filename builds "<base>-<unix ms>.<ext>".
func Filename(base string, format Format, at time.Time) string {
	ext := string(format)
	if info, ok := Lookup(format); ok {
		ext = info.Ext
	}
	return fmt.Sprintf("%s-%d.%s", base, at.UnixMilli(), ext)
}

// ──────────────────────────────────────────────
// Message helpers
// ──────────────────────────────────────────────

var fenceRe = regexp.MustCompile("```(\\w*)([\\s\\S]*?)```")

func role(m Message) string {
	switch strings.ToLower(m.Role) {
	case "", "assistant", "ai", "bot":
		return jaat.RoleAssistant
	case "user":
		return jaat.RoleUser
	}
	return strings.ToLower(m.Role)
}

// flatten joins a message into one line-friendly string, as csv and xlsx
// cells need.
func flatten(m Message) string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	out := make([]string, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case "image":
			if p.URL != "" {
				out = append(out, "[Image: "+p.URL+"]")
			}
		case "code":
			if p.Text != "" {
				out = append(out, "[Code: "+p.Language+"] "+p.Text)
			}
		default:
			out = append(out, p.Text)
		}
	}
	return strings.Join(out, " ")
}

var metricExports = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jaat",
	Subsystem: "export",
	Name:      "exports_total",
	Help:      "Exports by format and outcome.",
}, []string{"format", "outcome"})

func recordExport(format, outcome string) {
	metricExports.WithLabelValues(format, outcome).Inc()
}
