package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand generates shell completion scripts. Preset and format
// flags complete dynamically through the config file.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for polargraph and print it to stdout.

  bash        source <(polargraph completion bash)
  zsh         polargraph completion zsh > "${fpath[1]}/_polargraph"
  fish        polargraph completion fish > ~/.config/fish/completions/polargraph.fish
  powershell  polargraph completion powershell | Out-String | Invoke-Expression

Completing --preset lists the built-in presets plus those in the config file.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
