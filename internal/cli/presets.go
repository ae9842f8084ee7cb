package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// presetsCommand creates the presets command.
func (c *CLI) presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List available presets",
		Long: `List the built-in presets and any defined in the config file.

Columns show what a preset overrides; "·" means the value comes from the
defaults or explicit flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			presets := cfg.Presets()
			rows := make([][]string, len(presets))
			for i, p := range presets {
				rows[i] = presetColumns(p)
				if !p.Builtin {
					rows[i][0] += "*"
				}
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
				Headers(presetHeaders...).
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					switch {
					case row == table.HeaderRow:
						return listHeaderStyle
					case col == 1 || col == 2:
						return StyleNumber
					case col == len(presetHeaders)-1:
						return listDimStyle
					}
					return StyleValue
				})
			fmt.Println(t.Render())

			if cfg.Path != "" {
				printDetail("* from %s", cfg.Path)
			}
			printNextStep("Use one with", "polargraph convert IMAGE --preset NAME")
			return nil
		},
	}
}
