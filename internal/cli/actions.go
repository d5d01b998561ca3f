package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/adreview/internal/model"
	"github.com/sprite-ai/adreview/internal/review"
	"github.com/sprite-ai/adreview/internal/verdict"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <id>",
	Short: "Send a material to AI review",
	Long: `Ask the backend to run AI review on a material. Only materials that are
pending, rejected, or flagged for another look can be sent.

With --wait the command keeps reloading every --refresh-delay until the
verdict arrives or --wait-timeout passes.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger,
}

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a material by hand",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a material by hand",
	Args:  cobra.ExactArgs(1),
	RunE:  runReject,
}

func init() {
	triggerCmd.Flags().BoolP("wait", "w", false, "wait for the AI verdict")
	triggerCmd.Flags().Duration("wait-timeout", 30*time.Second, "how long --wait waits")
	rejectCmd.Flags().StringP("reason", "r", "", "rejection reason (required)")
}

func runTrigger(cmd *cobra.Command, args []string) error {
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

	changes, cancel := a.ctrl.Subscribe()
	defer cancel()

	msg, err := a.client.TriggerAI(cmd.Context(), id)
	if err != nil {
		return triggerError(a.ctrl, id, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "#%d: %s\n", id, msg)

	wait, _ := cmd.Flags().GetBool("wait")
	if !wait {
		return nil
	}

	timeout, _ := cmd.Flags().GetDuration("wait-timeout")
	ctx, stop := context.WithTimeout(cmd.Context(), timeout)
	defer stop()

	e, err := waitForVerdict(ctx, a.ctrl, changes, id, a.cfg.RefreshDelay)
	if err != nil {
		return err
	}
	printVerdict(out, e)
	return nil
}

func triggerError(ctrl *review.Controller, id int64, err error) error {
	if errors.Is(err, review.ErrNotEligible) {
		if e, ok := ctrl.Get(id); ok {
			return fmt.Errorf("material %d is %s: %w", id, model.Classify(e.ReviewStatus).Text, err)
		}
	}
	return fmt.Errorf("material %d: %w", id, err)
}

// settled reports whether the server has finished reviewing e.
func settled(e review.Entry) bool {
	if e.Speculative {
		return false
	}
	return e.ReviewStatus != model.StatusPending && e.ReviewStatus != model.StatusReviewing
}

// waitForVerdict blocks until id settles, reloading every interval. The
// client's scheduled refreshes are bounded, so they cannot be relied on to
// last until the deadline.
func waitForVerdict(ctx context.Context, ctrl *review.Controller, changes <-chan struct{}, id int64, every time.Duration) (review.Entry, error) {
	if every <= 0 {
		every = review.DefaultRefreshDelay
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		if e, ok := ctrl.Get(id); ok && settled(e) {
			return e, nil
		}
		select {
		case _, ok := <-changes:
			if !ok {
				return review.Entry{}, review.ErrClosed
			}
		case <-tick.C:
			// failures are reported through the notifier; keep polling
			_ = ctrl.Refresh(ctx)
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return review.Entry{}, fmt.Errorf("material %d: still under review", id)
			}
			return review.Entry{}, ctx.Err()
		}
	}
}

func printVerdict(w io.Writer, e review.Entry) {
	fmt.Fprintf(w, "#%d: %s\n", e.ID, model.Classify(e.ReviewStatus).Text)
	if e.ReviewStatus == model.StatusRejected {
		fmt.Fprintf(w, "  reason: %s\n", verdict.RejectionReason(e.Material))
	}
}

func runApprove(cmd *cobra.Command, args []string) error {
	return runManual(cmd, args[0], review.Approve{})
}

func runReject(cmd *cobra.Command, args []string) error {
	reason, _ := cmd.Flags().GetString("reason")
	intent := review.Reject{Reason: reason}
	// Fail before touching the network.
	if err := review.Validate(intent); err != nil {
		return err
	}
	return runManual(cmd, args[0], intent)
}

func runManual(cmd *cobra.Command, arg string, intent review.Intent) error {
	id, err := parseID(arg)
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

	if err := a.client.SubmitManual(cmd.Context(), id, intent); err != nil {
		return fmt.Errorf("material %d: %w", id, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "#%d: %s\n", id, model.Classify(intent.Decision()).Text)
	return nil
}
