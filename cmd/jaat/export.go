package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberFlowTech/jaat-agents-sdk-go/export"
)

var (
	exportFormat string
	exportInput  string
	exportOutDir string
	exportTitle  string
	exportName   string
)

var exportCmd = &cobra.Command{
	Use:   "export [persona]",
	Short: "Export a conversation to pdf, markdown, html, json, txt, csv or xlsx",
	Long: `Export the stored conversation with a persona, or the messages in
a JSON file given with --input (an array of messages, or an object with a
"messages" array such as a json export).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := export.Format(exportFormat)
		if _, ok := export.Lookup(format); !ok {
			return fmt.Errorf("%w: %s", export.ErrUnsupportedFormat, exportFormat)
		}
		if len(args) == 0 && exportInput == "" {
			return errors.New("give a persona or --input")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rt, err := openRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		meta := export.Metadata{Title: exportTitle, Date: time.Now()}
		var msgs []export.Message
		if len(args) == 1 {
			id, err := rt.resolvePersona(args[0])
			if err != nil {
				return err
			}
			m, err := rt.registry.Mode(userID, id)
			if err != nil {
				return err
			}
			meta.AIMode = m.Config().Name
			if meta.Title == "" {
				meta.Title = "Conversation with " + meta.AIMode
			}
			msgs = export.FromHistory(m.History())
		}
		if exportInput != "" {
			msgs, err = readMessages(exportInput)
			if err != nil {
				return err
			}
		}
		if len(msgs) == 0 {
			return errors.New("nothing to export")
		}

		exp := export.New(exportConfig(cfg.Export))
		var f *export.File
		if format == export.FormatPDF {
			overrides := map[string]any{}
			if exportName != "" {
				overrides["defaultFileName"] = exportName
			}
			f, err = exp.ExportPDF(cmd.Context(), msgs, overrides)
		} else {
			f, err = exp.Export(cmd.Context(), msgs, format, meta, exportName)
		}
		if err != nil {
			return err
		}

		if err := os.MkdirAll(exportOutDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(exportOutDir, f.Name)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return err
		}
		printSuccess(cmd.OutOrStdout(), "wrote %s (%d messages, %d bytes)", path, len(msgs), len(f.Data))
		return nil
	},
}

func readMessages(path string) ([]export.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var msgs []export.Message
	if err := json.Unmarshal(data, &msgs); err == nil {
		return msgs, nil
	}
	var doc struct {
		Messages []export.Message `json:"messages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc.Messages, nil
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportFormat, "format", "f", string(export.FormatMarkdown), "pdf, markdown, html, json, txt, csv or xlsx")
	f.StringVarP(&exportInput, "input", "i", "", "JSON file of messages to export")
	f.StringVarP(&exportOutDir, "out", "o", ".", "output directory")
	f.StringVar(&exportTitle, "title", "", "document title")
	f.StringVar(&exportName, "name", "", "file name prefix (default from config)")
	rootCmd.AddCommand(exportCmd)
}
