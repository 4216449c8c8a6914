package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/obentoo/appcheck/internal/common/logger"
	"github.com/obentoo/appcheck/internal/common/output"
	"github.com/obentoo/appcheck/internal/common/version"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	quiet      bool
	noColor    bool
	logFile    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "appcheck",
	Short: "Track Android app updates on the storefront",
	Long: `Track the "Updated on" date of Android apps listed on the storefront and
report which apps received an update since the last check.

Examples:
  appcheck -p org.telegram.messenger   Start tracking an app
  appcheck -d org.telegram.messenger   Stop tracking an app
  appcheck -l                          List tracked apps
  appcheck -i apps.toml                Track every app listed in a watchlist
  appcheck                             Check all tracked apps for updates`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Configure logging based on flags
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
		if logFile {
			if err := logger.EnableFileLogging(""); err != nil {
				logger.Warn("file logging disabled: %v", err)
			}
		}
		if showBanner(cmd) {
			output.Banner(version.Banner())
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
	Run: runTrack,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Also write a detailed log file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default $XDG_CONFIG_HOME/appcheck/config.yaml)")
}

// showBanner reports whether the banner goes in front of cmd's output.
// Completion scripts are consumed by shells and must stay clean.
func showBanner(cmd *cobra.Command) bool {
	if quiet {
		return false
	}
	name := cmd.Name()
	return name != "completion" && !strings.HasPrefix(name, "__")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
