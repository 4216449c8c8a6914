package main

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Print shell completion scripts",
	Long: `Print a completion script for the given shell on stdout.

  bash        appcheck completion bash > ~/.local/share/bash-completion/completions/appcheck
  zsh         appcheck completion zsh > "${fpath[1]}/_appcheck"   (needs compinit)
  fish        appcheck completion fish > ~/.config/fish/completions/appcheck.fish
  powershell  appcheck completion powershell | Out-String | Invoke-Expression

Open a new shell afterwards for the completions to load.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		default:
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
