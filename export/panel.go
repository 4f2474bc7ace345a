package export

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/panel"
)

// PDFSettingsKey is the preference key the PDF options persist under.
const PDFSettingsKey = "jaat-pdf-export-settings"

// PDFSettings keeps the PDF options of one session in a persisted panel
// model and exports the session's conversation with them.
type PDFSettings struct {
	model    *panel.Model
	exporter *Exporter
	source   func() []Message

	mu   sync.Mutex
	last *File
}

// NewPDFSettings loads persisted options over the exporter's PDF options.
// source supplies the messages the panel's export button exports.
func NewPDFSettings(store *jaat.PreferenceStore, exporter *Exporter, source func() []Message) *PDFSettings {
	return &PDFSettings{
		model:    panel.NewModel(store, PDFSettingsKey, optionsMap(exporter.PDF().Options())),
		exporter: exporter,
		source:   source,
	}
}

func optionsMap(o PDFOptions) map[string]any {
	out := map[string]any{}
	data, _ := json.Marshal(o)
	_ = json.Unmarshal(data, &out)
	return out
}

// Model exposes the settings model.
func (s *PDFSettings) Model() *panel.Model { return s.model }

// Options decodes the current options.
func (s *PDFSettings) Options() PDFOptions {
	o := s.exporter.PDF().Options()
	_ = s.model.Decode(&o)
	return o
}

// Export renders the source conversation with the current options.
func (s *PDFSettings) Export(ctx context.Context) (*File, error) {
	var msgs []Message
	if s.source != nil {
		msgs = s.source()
	}
	f, err := s.exporter.ExportPDF(ctx, msgs, s.model.Snapshot())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = f
	s.mu.Unlock()
	return f, nil
}

// Last returns the most recent export made through the panel.
func (s *PDFSettings) Last() *File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Panel builds the PDF export options form.
func (s *PDFSettings) Panel() *panel.Panel {
	check := func(key, label string) panel.Field {
		return panel.Field{Key: key, Label: label, Kind: panel.KindCheckbox}
	}
	sizes := make([]panel.Option, len(PageSizes))
	for i, p := range PageSizes {
		sizes[i] = panel.Option{Value: p.ID, Label: p.Name}
	}
	orientations := []panel.Option{}
	for _, o := range []string{"portrait", "landscape"} {
		orientations = append(orientations, panel.Option{Value: o, Label: strings.ToUpper(o[:1]) + o[1:]})
	}

	return &panel.Panel{
		Title: "PDF Export Options",
		Model: s.model,
		Sections: []panel.Section{
			{
				ID:    "page",
				Title: "Page Settings",
				Fields: []panel.Field{
					{Key: "pageSize", Label: "Page Size", Kind: panel.KindSelect, Options: sizes},
					{Key: "pageOrientation", Label: "Orientation", Kind: panel.KindSelect, Options: orientations},
				},
			},
			{
				ID:    "content",
				Title: "Content Settings",
				Fields: []panel.Field{
					check("includeTimestamps", "Include timestamps"),
					check("includeSenderInfo", "Include sender information"),
					check("includeMetadata", "Include metadata"),
					check("includePageNumbers", "Include page numbers"),
					check("tableOfContents", "Include table of contents"),
					check("splitByDate", "Group messages by date"),
				},
			},
			{
				ID:    "appearance",
				Title: "Appearance",
				Fields: []panel.Field{
					{Key: "colorScheme", Label: "Color Scheme", Kind: panel.KindSelect, Options: []panel.Option{
						{Value: "default", Label: "Default"},
						{Value: "light", Label: "Light"},
						{Value: "dark", Label: "Dark"},
						{Value: "professional", Label: "Professional"},
						{Value: "contrast", Label: "High Contrast"},
						{Value: "custom", Label: "Custom"},
					}},
					{Key: "fontFamily", Label: "Font", Kind: panel.KindSelect, Options: []panel.Option{
						{Value: "Helvetica", Label: "Helvetica"},
						{Value: "Times", Label: "Times"},
						{Value: "Courier", Label: "Courier"},
					}},
					{Key: "headerText", Label: "Header Text", Kind: panel.KindText},
					{Key: "footerText", Label: "Footer Text", Kind: panel.KindText},
				},
			},
			{
				ID:    "export",
				Title: "Export",
				Fields: []panel.Field{
					{Key: "defaultFileName", Label: "Filename", Kind: panel.KindText},
					{Key: "export", Label: "Export to PDF", Kind: panel.KindAction, Action: func() error {
						_, err := s.Export(context.Background())
						return err
					}},
				},
			},
		},
	}
}
