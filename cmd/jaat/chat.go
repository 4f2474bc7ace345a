package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

var chatCmd = &cobra.Command{
	Use:   "chat <persona>",
	Short: "Talk to a persona in the terminal",
	Long: `Start a conversation with a persona, given by id or name.
Lines starting with / are commands: /history, /clear, /prefs, /info,
/greeting and /quit.`,
	Args: cobra.ExactArgs(1),
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

		id, err := rt.resolvePersona(args[0])
		if err != nil {
			return err
		}
		m, err := rt.registry.Mode(userID, id)
		if err != nil {
			return err
		}
		return chat(cmd, m, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chat(cmd *cobra.Command, m *jaat.Mode, in io.Reader, out io.Writer) error {
	info := m.ModeInfo()
	name := personaStyle(m.Config().Color).Render(info.Icon + " " + info.Name)

	fmt.Fprintln(out, styles.header.Render(info.Name))
	fmt.Fprintln(out, styles.dim.Render(info.Description))
	if len(info.Suggestions) > 0 {
		fmt.Fprintln(out, styles.dim.Render("Try: "+strings.Join(info.Suggestions, " | ")))
	}
	fmt.Fprintf(out, "\n%s %s\n\n", name, m.GetGreeting())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, styles.user.Render("you › "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "/") {
			if quit := chatCommand(out, m, line); quit {
				return nil
			}
			continue
		}

		resp := m.ProcessInput(cmd.Context(), line, nil)
		fmt.Fprintf(out, "%s %s\n", name, resp.Text)
		if len(resp.Suggestions) > 0 {
			fmt.Fprintln(out, styles.dim.Render("  ↳ "+strings.Join(resp.Suggestions, " | ")))
		}
		fmt.Fprintln(out)
	}
}

// chatCommand runs a slash command and reports whether to leave.
func chatCommand(out io.Writer, m *jaat.Mode, line string) bool {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit":
		return true
	case "/clear":
		if m.ClearHistory() {
			printSuccess(out, "History cleared.")
		} else {
			printWarn(out, "History could not be cleared.")
		}
	case "/history":
		history := m.History()
		if len(history) == 0 {
			fmt.Fprintln(out, styles.dim.Render("No messages yet."))
		}
		for _, t := range history {
			label := styles.user.Render("you")
			if t.Role != jaat.RoleUser {
				label = personaStyle(m.Config().Color).Render(m.Config().Name)
			}
			fmt.Fprintf(out, "%s %s %s\n", styles.dim.Render(t.Timestamp.Format("15:04")), label, t.Content)
		}
	case "/prefs":
		printJSON(out, m.Preferences())
	case "/info":
		printJSON(out, m.ModeInfo())
	case "/greeting":
		fmt.Fprintln(out, m.GetGreeting())
	default:
		printWarn(out, "Unknown command %s", line)
	}
	return false
}

func printJSON(out io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printWarn(out, "%v", err)
		return
	}
	fmt.Fprintln(out, string(data))
}
