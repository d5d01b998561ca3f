// Package model defines the core data types shared across adreview.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReviewStatus is the moderation lifecycle stage of a material.
type ReviewStatus string

const (
	StatusPending   ReviewStatus = "pending"
	StatusReviewing ReviewStatus = "reviewing"
	StatusApproved  ReviewStatus = "approved"
	StatusRejected  ReviewStatus = "rejected"
	StatusReview    ReviewStatus = "review" // classifier asks for a human look
)

// Statuses lists every valid status in workflow order.
var Statuses = []ReviewStatus{
	StatusPending,
	StatusReviewing,
	StatusApproved,
	StatusRejected,
	StatusReview,
}

// IsValid reports whether s is one of the five known statuses.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusReviewing, StatusApproved, StatusRejected, StatusReview:
		return true
	}
	return false
}

func (s ReviewStatus) String() string {
	return string(s)
}

// ParseReviewStatus converts a raw string into a ReviewStatus.
func ParseReviewStatus(raw string) (ReviewStatus, error) {
	s := ReviewStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown review status %q", raw)
	}
	return s, nil
}

// CanTriggerAI reports whether an AI review may be started for a material
// in status s. Approved materials are final and reviewing ones are in flight.
func CanTriggerAI(s ReviewStatus) bool {
	switch s {
	case StatusApproved, StatusReviewing:
		return false
	}
	return true
}

// CanTransition reports whether the engine itself may move a material from
// one status to another. Server refreshes bypass this check. An unknown
// from status is treated as pending, the way Classify renders it.
func CanTransition(from, to ReviewStatus) bool {
	if !to.IsValid() {
		return false
	}
	if !from.IsValid() {
		from = StatusPending
	}
	switch to {
	case StatusReviewing:
		return CanTriggerAI(from)
	case StatusApproved, StatusRejected:
		// manual override, or the AI verdict landing
		return true
	default:
		// review and pending only come back from an AI pass
		return from == StatusReviewing
	}
}

// Severity is the visual weight of a status tag.
type Severity int

const (
	SeverityNeutral Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "neutral"
	}
}

// DisplayState describes how a status is rendered.
type DisplayState struct {
	Text      string
	Severity  Severity
	Automated bool // AI review in progress
}

// Classify maps a status to its display descriptor. Unknown or empty
// statuses render like pending.
func Classify(s ReviewStatus) DisplayState {
	switch s {
	case StatusApproved:
		return DisplayState{Text: "Approved", Severity: SeveritySuccess}
	case StatusRejected:
		return DisplayState{Text: "Rejected", Severity: SeverityError}
	case StatusReview:
		return DisplayState{Text: "Needs re-review", Severity: SeverityWarning}
	case StatusReviewing:
		return DisplayState{Text: "Reviewing", Severity: SeverityInfo, Automated: true}
	default:
		return DisplayState{Text: "Awaiting review", Severity: SeverityNeutral}
	}
}

// MaterialType is the kind of creative asset.
type MaterialType string

const (
	TypeImage MaterialType = "image"
	TypeVideo MaterialType = "video"
)

// ReviewDetails is the classifier verdict.
type ReviewDetails struct {
	Label      string  `json:"Label"`
	SubLabel   string  `json:"SubLabel"`
	Score      float64 `json:"Score"`
	Suggestion string  `json:"Suggestion"`
}

// ReviewResult is set by the backend once a review pass has completed.
type ReviewResult struct {
	Success      bool          `json:"success"`
	MaterialID   string        `json:"materialId"`
	ReviewStatus ReviewStatus  `json:"reviewStatus"`
	Details      ReviewDetails `json:"details"`
}

// UnmarshalJSON accepts the verdict either nested under "details" or
// flattened into the result itself.
func (r *ReviewResult) UnmarshalJSON(data []byte) error {
	type plain ReviewResult
	var aux struct {
		plain
		Details *ReviewDetails `json:"details"`
		ReviewDetails
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = ReviewResult(aux.plain)
	if aux.Details != nil {
		r.Details = *aux.Details
	} else {
		r.Details = aux.ReviewDetails
	}
	return nil
}

// Material is a creative asset subject to review.
type Material struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Type         MaterialType  `json:"type"`
	Data         string        `json:"data"`
	Cover        string        `json:"cover,omitempty"`
	ReviewStatus ReviewStatus  `json:"reviewStatus"`
	ReviewResult *ReviewResult `json:"reviewResult,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Preview returns the reference used for thumbnails: the cover if present.
func (m Material) Preview() string {
	if m.Cover != "" {
		return m.Cover
	}
	return m.Data
}
