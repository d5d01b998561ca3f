package verdict

import (
	"fmt"
	"strconv"

	"github.com/sprite-ai/adreview/internal/model"
)

// NoDetails is returned when a material has no review result.
const NoDetails = "No detailed review information."

// NoReason is shown in place of a reason for materials that are not rejected.
const NoReason = "-"

// FormatRejection renders a review result as a single sentence. It does not
// look at the material's status; callers gate on that themselves.
func FormatRejection(r *model.ReviewResult) string {
	if r == nil {
		return NoDetails
	}

	d := r.Details
	label := ParseLabel(d.Label).Text()
	advice := ParseSuggestion(d.Suggestion).Text()

	return fmt.Sprintf("Material matched sensitive content [%s] (sub-label: %s) with a confidence score of %s; suggested action: [%s].",
		label, d.SubLabel, FormatScore(d.Score), advice)
}

// FormatScore prints a score in its shortest form, so 87 stays "87".
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// RejectionReason returns the formatted reason for rejected materials and
// NoReason for everything else.
func RejectionReason(m model.Material) string {
	if m.ReviewStatus != model.StatusRejected {
		return NoReason
	}
	return FormatRejection(m.ReviewResult)
}
