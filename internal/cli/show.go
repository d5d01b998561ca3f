package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/adreview/internal/model"
	"github.com/sprite-ai/adreview/internal/review"
	"github.com/sprite-ai/adreview/internal/verdict"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one material with its review verdict",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Bool("raw", false, "print only the verdict JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.load(cmd.Context()); err != nil {
		return err
	}

	e, ok := a.ctrl.Get(id)
	if !ok {
		return fmt.Errorf("material %d: %w", id, review.ErrNotFound)
	}

	raw, _ := cmd.Flags().GetBool("raw")
	if raw {
		fmt.Fprintln(cmd.OutOrStdout(), verdict.RawJSON(e.ReviewResult))
		return nil
	}
	printDetail(cmd.OutOrStdout(), e)
	return nil
}

func printDetail(w io.Writer, e review.Entry) {
	ds := model.Classify(e.ReviewStatus)
	fmt.Fprintf(w, "#%d %s\n\n", e.ID, e.Title)
	fmt.Fprintf(w, "  Type:     %s\n", e.Type)
	fmt.Fprintf(w, "  Status:   %s (%s)\n", ds.Text, e.ReviewStatus)
	fmt.Fprintf(w, "  Preview:  %s\n", e.Preview())
	if !e.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "  Updated:  %s\n", e.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if e.ReviewStatus == model.StatusRejected {
		fmt.Fprintf(w, "  Reason:   %s\n", verdict.RejectionReason(e.Material))
	}

	fmt.Fprintf(w, "\nVerdict:\n")
	for _, line := range strings.Split(verdict.RawJSON(e.ReviewResult), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
