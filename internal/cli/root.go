// Package cli wires the adreview commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sprite-ai/adreview/internal/backend"
	"github.com/sprite-ai/adreview/internal/config"
	"github.com/sprite-ai/adreview/internal/review"
)

var (
	cfgFile string
	envFile string
	vcfg    = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "adreview",
	Short: "Review console for advertising materials",
	Long: `adreview moderates advertising creatives against the material review
backend: trigger AI review, approve or reject by hand, and read the
classifier's verdict.

Settings come from flags, ADREVIEW_* environment variables (also read
from a .env file), or a YAML file passed with --config.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file with ADREVIEW_* variables, ignored when missing")
	pf.String("base-url", backend.DefaultBaseURL, "backend API base URL")
	pf.Duration("timeout", backend.DefaultTimeout, "backend request timeout")
	pf.String("token", "", "bearer token for the backend")
	pf.String("token-file", "", "file holding the bearer token, reloaded on change")
	pf.Int("page-size", review.DefaultListParams.PageSize, "materials to load")
	pf.String("type", string(review.DefaultListParams.Type), "material type to review: image, video")
	pf.Duration("refresh-delay", review.DefaultRefreshDelay, "delay before reloading after an AI trigger")
	pf.Int("refresh-attempts", review.DefaultRefreshAttempts, "reloads while an AI verdict is outstanding")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.String("log-file", "", "write logs to this file")

	bindFlags(vcfg, rootCmd, map[string]string{
		"base_url":         "base-url",
		"timeout":          "timeout",
		"token":            "token",
		"token_file":       "token-file",
		"page_size":        "page-size",
		"review_type":      "type",
		"refresh_delay":    "refresh-delay",
		"refresh_attempts": "refresh-attempts",
		"log_level":        "log-level",
		"log_format":       "log-format",
		"log_file":         "log-file",
	})

	rootCmd.AddCommand(
		reviewCmd,
		listCmd,
		showCmd,
		triggerCmd,
		approveCmd,
		rejectCmd,
		editCmd,
		deleteCmd,
		serveCmd,
		versionCmd,
	)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
