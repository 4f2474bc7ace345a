package translate

import (
	"context"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/panel"
)

// Panel builds the language and option pickers over the session's model.
func (s *Session) Panel() *panel.Panel {
	source := []panel.Option{{Value: Auto, Label: "Detect Language"}}
	target := make([]panel.Option, 0, len(Languages))
	for _, l := range Languages {
		source = append(source, panel.Option{Value: l.Code, Label: l.Label()})
		target = append(target, panel.Option{Value: l.Code, Label: l.Label()})
	}
	types := make([]panel.Option, len(Types))
	for i, t := range Types {
		types[i] = panel.Option{Value: t.ID, Label: t.Name}
	}
	formality := make([]panel.Option, len(Formalities))
	for i, f := range Formalities {
		formality[i] = panel.Option{Value: f, Label: jaat.Capitalize(f)}
	}

	return &panel.Panel{
		Title: ModeName,
		Model: s.model,
		Sections: []panel.Section{
			{
				ID:    "languages",
				Title: "Languages",
				Fields: []panel.Field{
					{Key: "sourceLanguage", Label: "Translate from", Kind: panel.KindSelect, Options: source},
					{Key: "swap", Label: "Swap languages", Kind: panel.KindAction, Action: func() error {
						s.Swap()
						return nil
					}},
					{Key: "targetLanguage", Label: "Translate to", Kind: panel.KindSelect, Options: target},
				},
			},
			{
				ID:    "options",
				Title: "Options",
				Fields: []panel.Field{
					{Key: "translationType", Label: "Type", Kind: panel.KindSelect, Options: types},
					{Key: "formalityLevel", Label: "Formality", Kind: panel.KindSelect, Options: formality},
				},
			},
			{
				ID:    "actions",
				Title: "Actions",
				Fields: []panel.Field{
					{Key: "translate", Label: "Translate", Kind: panel.KindAction, Action: func() error {
						_, err := s.Translate(context.Background())
						return err
					}},
					{Key: "save", Label: "Save", Kind: panel.KindAction, Action: func() error {
						_, err := s.Save()
						return err
					}},
					{Key: "clearSaved", Label: "Clear saved translations", Kind: panel.KindAction, Action: func() error {
						s.ClearSaved()
						return nil
					}},
				},
			},
		},
	}
}
