package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/translate"
)

var (
	translateFrom      string
	translateTo        string
	translateType      string
	translateFormality string
	translateSend      bool
	translateSave      bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Build a translation prompt, or send it with --send",
	Long: `Build the translation prompt for the given text. With --send the
prompt goes to the configured OpenAI backend and the reply is printed.
Language, type and formality choices are remembered per --user.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rt, err := openRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		var sender translate.Sender
		if rt.generator != nil {
			sender = translate.GeneratorSender{Generator: rt.generator}
		}
		t := translate.New(jaat.NewPreferenceStore(rt.kv, userID), sender)
		if err := applyTranslateFlags(t); err != nil {
			return err
		}
		t.SetSourceText(strings.Join(args, " "))

		out := cmd.OutOrStdout()
		if !translateSend {
			prompt, err := t.Request().Prompt()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, prompt)
			return nil
		}

		res, err := t.Translate(cmd.Context())
		if errors.Is(err, translate.ErrNoSender) {
			return errors.New("--send needs an OpenAI API key (OPENAI_API_KEY)")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Reply)
		if translateSave {
			item, err := t.Save()
			if err != nil {
				return err
			}
			printSuccess(out, "saved as #%d", item.ID)
		}
		return nil
	},
}

// applyTranslateFlags moves the flags that were set into the session.
func applyTranslateFlags(t *translate.Session) error {
	st := t.Settings()
	from, to := st.SourceLanguage, st.TargetLanguage
	if translateFrom != "" {
		from = translateFrom
	}
	if translateTo != "" {
		to = translateTo
	}
	if err := t.SetLanguages(from, to); err != nil {
		return err
	}
	if translateType != "" {
		if err := t.SetType(translateType); err != nil {
			return err
		}
	}
	if translateFormality != "" {
		if err := t.SetFormality(translateFormality); err != nil {
			return err
		}
	}
	return nil
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the supported languages and translation types",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, styles.bold.Render("CODE")+"\t"+styles.bold.Render("LANGUAGE"))
		for _, l := range translate.Languages {
			fmt.Fprintf(tw, "%s\t%s\n", l.Code, l.Label())
		}
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, styles.bold.Render("TYPE")+"\t"+styles.bold.Render("DESCRIPTION"))
		for _, ty := range translate.Types {
			fmt.Fprintf(tw, "%s\t%s\n", ty.ID, styles.dim.Render(ty.Description))
		}
		return tw.Flush()
	},
}

func init() {
	f := translateCmd.Flags()
	f.StringVarP(&translateFrom, "from", "f", "", `source language code or "auto"`)
	f.StringVarP(&translateTo, "to", "t", "", "target language code")
	f.StringVar(&translateType, "type", "", "translation type (general, business, technical, literary, idioms, cultural)")
	f.StringVar(&translateFormality, "formality", "", "auto, formal, neutral or informal")
	f.BoolVarP(&translateSend, "send", "s", false, "send the prompt and print the reply")
	f.BoolVar(&translateSave, "save", false, "keep the pair in the saved translations (with --send)")
	translateCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(translateCmd)
}
