package review

import (
	"errors"
	"strings"

	"github.com/sprite-ai/adreview/internal/model"
)

// FormState is the lifecycle of the manual review form.
type FormState int

const (
	FormClosed FormState = iota
	FormOpen
	FormSubmittingApprove
	FormSubmittingReject
)

func (s FormState) String() string {
	switch s {
	case FormClosed:
		return "closed"
	case FormOpen:
		return "open"
	case FormSubmittingApprove:
		return "submitting-approve"
	case FormSubmittingReject:
		return "submitting-reject"
	default:
		return "unknown"
	}
}

// Submitting reports whether a decision is in flight.
func (s FormState) Submitting() bool {
	return s == FormSubmittingApprove || s == FormSubmittingReject
}

// Form is the manual review form for one material at a time. The zero
// value is a closed form. It is not safe for concurrent use; the owning
// view drives it.
type Form struct {
	state    FormState
	material model.Material
	reason   string
	fieldErr map[string]string
	err      error
}

// Open shows the form for m with an empty reason and no errors.
func (f *Form) Open(m model.Material) {
	f.state = FormOpen
	f.material = m
	f.reason = ""
	f.fieldErr = nil
	f.err = nil
}

// Cancel closes the form unless a submission is in flight.
func (f *Form) Cancel() {
	if f.state.Submitting() {
		return
	}
	f.reset()
}

func (f *Form) reset() {
	*f = Form{}
}

func (f *Form) State() FormState         { return f.state }
func (f *Form) Material() model.Material { return f.material }
func (f *Form) Reason() string           { return f.reason }

// Err is the last submission failure, kept for display while open.
func (f *Form) Err() error { return f.err }

// SetReason updates the rejection reason and clears its error.
func (f *Form) SetReason(reason string) {
	f.reason = reason
	delete(f.fieldErr, "reason")
}

// FieldError returns the validation message for field, if any.
func (f *Form) FieldError(field string) string {
	return f.fieldErr[field]
}

// Approve moves to submitting and returns the intent to send.
func (f *Form) Approve() (Intent, error) {
	if f.state != FormOpen {
		return nil, ErrFormNotOpen
	}
	f.state = FormSubmittingApprove
	f.err = nil
	return Approve{}, nil
}

// Reject moves to submitting and returns the intent to send. A blank
// reason marks the reason field invalid and the form stays open.
func (f *Form) Reject() (Intent, error) {
	if f.state != FormOpen {
		return nil, ErrFormNotOpen
	}
	intent := Reject{Reason: strings.TrimSpace(f.reason)}
	if err := Validate(intent); err != nil {
		f.markInvalid(err)
		return nil, err
	}
	f.state = FormSubmittingReject
	f.err = nil
	return intent, nil
}

// Resolve ends a submission. nil closes the form; an error returns it to
// open with the error kept.
func (f *Form) Resolve(err error) {
	if !f.state.Submitting() {
		return
	}
	if err == nil {
		f.reset()
		return
	}
	f.state = FormOpen
	f.err = err
	f.markInvalid(err)
}

func (f *Form) markInvalid(err error) {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return
	}
	if f.fieldErr == nil {
		f.fieldErr = make(map[string]string)
	}
	f.fieldErr[verr.Field] = verr.Message
}
