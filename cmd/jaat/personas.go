package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cyberFlowTech/jaat-agents-sdk-go/persona"
)

var personasCmd = &cobra.Command{
	Use:     "personas",
	Aliases: []string{"ls"},
	Short:   "List the registered personas",
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

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, styles.bold.Render("ID")+"\t"+styles.bold.Render("NAME")+"\t"+styles.bold.Render("CATEGORY")+"\t"+styles.bold.Render("VERSION"))
		for _, info := range rt.registry.Infos(userID) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.ID, personaStyle(info.Color).Render(info.Icon+" "+info.Name), info.Category, info.Version)
		}
		return tw.Flush()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a persona definition and print normalization warnings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		def, err := persona.LoadFile(args[0])
		if err != nil {
			return err
		}
		normalized, warnings, err := persona.Normalize(def)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			printWarn(out, "warning: %s", w)
		}
		p, err := persona.NewCompiler().Compile(normalized)
		if err != nil {
			return err
		}
		p.Close()
		printSuccess(out, "%s@%s is valid (%s)", normalized.ID, normalized.Version, normalized.Hash())
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Store a persona definition as a new version in the upload dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Personas.UploadDir == "" {
			return errors.New("personas.upload_dir is not configured")
		}
		def, err := persona.LoadFile(args[0])
		if err != nil {
			return err
		}
		normalized, warnings, err := persona.Normalize(def)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, w := range warnings {
			printWarn(out, "warning: %s", w)
		}
		if err := persona.NewFileStore(cfg.Personas.UploadDir).Save(normalized); err != nil {
			return err
		}
		printSuccess(out, "stored %s@%s", normalized.ID, normalized.Version)
		return nil
	},
}

func init() {
	personasCmd.AddCommand(validateCmd, uploadCmd)
	rootCmd.AddCommand(personasCmd)
}
