package notifier

import (
	"context"

	"github.com/cyberFlowTech/jaat-agents-sdk-go/panel"
)

// Panel builds the notifier settings form over the notifier's model.
func (n *Notifier) Panel() *panel.Panel {
	check := func(key, label string) panel.Field {
		return panel.Field{Key: key, Label: label, Kind: panel.KindCheckbox}
	}
	desktop := check("desktop", "Desktop notifications")
	desktop.Apply = func(v any) error {
		on, _ := v.(bool)
		n.UpdateSettings(map[string]any{"desktop": on})
		if on && n.Permission() != PermissionGranted {
			_, err := n.RequestPermission(context.Background())
			return err
		}
		return nil
	}

	sounds := make([]panel.Option, len(Sounds))
	for i, s := range Sounds {
		sounds[i] = panel.Option{Value: s.ID, Label: s.Name}
	}

	return &panel.Panel{
		Title:  "Notification Settings",
		Model:  n.model,
		Toggle: &panel.Field{Key: "enabled", Label: "Enabled", Kind: panel.KindCheckbox},
		Sections: []panel.Section{
			{
				ID:    "permission",
				Title: "Desktop notifications are not enabled for this site.",
				VisibleWhen: func(map[string]any) bool {
					p := n.Permission()
					return p != PermissionGranted && p != PermissionUnsupported
				},
				Fields: []panel.Field{{
					Key: "requestPermission", Label: "Enable Desktop Notifications", Kind: panel.KindAction,
					Action: func() error {
						_, err := n.RequestPermission(context.Background())
						return err
					},
				}},
			},
			{
				ID:    "types",
				Title: "Notification Types",
				Fields: []panel.Field{
					check("notifyOnNewMessages", "New messages"),
					check("notifyOnMentions", "Mentions (@username)"),
					check("notifyOnKeywords", "Keywords"),
					check("notifyOnExport", "Export complete"),
					check("notifyOnProcessComplete", "Process complete"),
				},
			},
			{
				ID:          "keywords",
				Title:       "Notification Keywords",
				VisibleWhen: panel.Enabled("notifyOnKeywords"),
				Fields:      []panel.Field{{Key: "keywords", Label: "Add a keyword...", Kind: panel.KindList}},
			},
			{
				ID:    "delivery",
				Title: "Notification Delivery",
				Fields: []panel.Field{
					desktop,
					check("inApp", "In-app notifications"),
					check("sound", "Play sound"),
					check("showPreview", "Show message preview"),
					check("requireInteraction", "Require interaction to dismiss"),
					check("muteChatTab", "Silent when tab is active"),
					check("muteWhenDnd", "Respect Do Not Disturb mode"),
					check("groupNotifications", "Group similar notifications"),
				},
			},
			{
				ID:          "sound",
				Title:       "Sound Settings",
				VisibleWhen: panel.Enabled("sound"),
				Fields: []panel.Field{
					{
						Key: "currentSound", Label: "Notification Sound:", Kind: panel.KindSelect, Options: sounds,
						Apply: func(v any) error {
							id, _ := v.(string)
							n.SetSound(id)
							return nil
						},
					},
					{
						Key: "soundVolume", Label: "Volume:", Kind: panel.KindRange, Min: 0, Max: 1, Step: 0.05,
						Apply: func(v any) error {
							f, _ := v.(float64)
							n.SetSoundVolume(f)
							return nil
						},
					},
				},
			},
		},
	}
}
