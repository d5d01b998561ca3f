package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sprite-ai/adreview/internal/model"
	"github.com/sprite-ai/adreview/internal/review"
	"github.com/sprite-ai/adreview/internal/verdict"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List materials and their review status (non-interactive)",
	Long: `Load the material list and print it. Useful for scripts and for
checking the queue without opening the console.

Examples:
  adreview list                        # everything
  adreview list --status rejected      # rejected only, with reasons
  adreview list -q banner -f json      # title search, JSON output`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringP("status", "s", review.FilterAll, "status filter: all, pending, reviewing, review, approved, rejected")
	listCmd.Flags().StringP("search", "q", "", "case-insensitive title search")
	listCmd.Flags().StringP("format", "f", "text", "output format: text, json, markdown, yaml")
}

func runList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	if status != review.FilterAll {
		if _, err := model.ParseReviewStatus(status); err != nil {
			return err
		}
	}
	format, _ := cmd.Flags().GetString("format")
	if !validFormat(format) {
		return fmt.Errorf("unknown format %q", format)
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.load(cmd.Context()); err != nil {
		return err
	}

	search, _ := cmd.Flags().GetString("search")
	entries := a.ctrl.View(review.Filter{Status: status, Search: search})
	return writeList(cmd.OutOrStdout(), format, entries, a.ctrl.Stats())
}

func validFormat(f string) bool {
	switch f {
	case "text", "json", "markdown", "yaml":
		return true
	}
	return false
}

func writeList(w io.Writer, format string, entries []review.Entry, stats review.Stats) error {
	switch format {
	case "json":
		return outputJSON(w, entries, stats)
	case "markdown":
		return outputMarkdown(w, entries, stats)
	case "yaml":
		return outputYAML(w, entries, stats)
	default:
		return outputText(w, entries, stats)
	}
}

// listItem is the machine-readable form of an entry.
type listItem struct {
	ID              int64     `json:"id" yaml:"id"`
	Title           string    `json:"title" yaml:"title"`
	Type            string    `json:"type" yaml:"type"`
	Status          string    `json:"status" yaml:"status"`
	Display         string    `json:"display" yaml:"display"`
	Speculative     bool      `json:"speculative,omitempty" yaml:"speculative,omitempty"`
	RejectionReason string    `json:"rejectionReason,omitempty" yaml:"rejectionReason,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt" yaml:"updatedAt"`
}

type listOutput struct {
	Total     int            `json:"total" yaml:"total"`
	Shown     int            `json:"shown" yaml:"shown"`
	ByStatus  map[string]int `json:"byStatus" yaml:"byStatus"`
	Materials []listItem     `json:"materials" yaml:"materials"`
}

func newListOutput(entries []review.Entry, stats review.Stats) listOutput {
	out := listOutput{
		Total:     stats.Total,
		Shown:     len(entries),
		ByStatus:  make(map[string]int, len(stats.ByStatus)),
		Materials: make([]listItem, 0, len(entries)),
	}
	for s, n := range stats.ByStatus {
		out.ByStatus[string(s)] = n
	}
	for _, e := range entries {
		item := listItem{
			ID:          e.ID,
			Title:       e.Title,
			Type:        string(e.Type),
			Status:      string(e.ReviewStatus),
			Display:     model.Classify(e.ReviewStatus).Text,
			Speculative: e.Speculative,
			UpdatedAt:   e.UpdatedAt,
		}
		if e.ReviewStatus == model.StatusRejected {
			item.RejectionReason = verdict.RejectionReason(e.Material)
		}
		out.Materials = append(out.Materials, item)
	}
	return out
}

func outputText(w io.Writer, entries []review.Entry, stats review.Stats) error {
	fmt.Fprintf(w, "%d material(s), %d shown\n\n", stats.Total, len(entries))

	if len(entries) == 0 {
		fmt.Fprintln(w, "No materials match.")
		return nil
	}

	for _, e := range entries {
		ds := model.Classify(e.ReviewStatus)
		fmt.Fprintf(w, "  %s #%-6d %-14s %s\n", statusIcon(ds.Severity), e.ID, ds.Text, e.Title)
		if e.ReviewStatus == model.StatusRejected {
			fmt.Fprintf(w, "             reason: %s\n", verdict.RejectionReason(e.Material))
		}
	}
	return nil
}

func outputJSON(w io.Writer, entries []review.Entry, stats review.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newListOutput(entries, stats))
}

func outputYAML(w io.Writer, entries []review.Entry, stats review.Stats) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newListOutput(entries, stats)); err != nil {
		return err
	}
	return enc.Close()
}

func outputMarkdown(w io.Writer, entries []review.Entry, stats review.Stats) error {
	fmt.Fprintf(w, "## Material Review\n\n")
	fmt.Fprintf(w, "**%d material(s)**, **%d** shown\n\n", stats.Total, len(entries))

	if len(entries) == 0 {
		fmt.Fprintln(w, "No materials match.")
		return nil
	}

	fmt.Fprintln(w, "| ID | Title | Status | Reason |")
	fmt.Fprintln(w, "|----|-------|--------|--------|")
	for _, e := range entries {
		reason := verdict.RejectionReason(e.Material)
		fmt.Fprintf(w, "| %d | %s | %s | %s |\n", e.ID, mdEscape(e.Title), model.Classify(e.ReviewStatus).Text, mdEscape(reason))
	}
	return nil
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func statusIcon(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return "x"
	case model.SeveritySuccess:
		return "+"
	case model.SeverityWarning:
		return "~"
	case model.SeverityInfo:
		return "*"
	default:
		return "."
	}
}
