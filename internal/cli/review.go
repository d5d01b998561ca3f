package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/adreview/internal/tui"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Open the interactive review console",
	Long: `Open a terminal console over the material list. Materials can be
filtered by status, searched by title, sent to AI review, or approved and
rejected by hand. A summary of the session's decisions is printed on exit.

Logs go to --log-file when set and are discarded otherwise.`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().Bool("quiet", false, "do not print the session summary on exit")
}

func runReview(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := tui.Run(cmd.Context(), a.ctrl, a.client, a.notices)
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	if quiet || session == nil || session.Empty() {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), session.Summary())
	return nil
}
