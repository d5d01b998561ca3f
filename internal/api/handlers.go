package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sprite-ai/adreview/internal/backend"
	"github.com/sprite-ai/adreview/internal/model"
	"github.com/sprite-ai/adreview/internal/review"
	"github.com/sprite-ai/adreview/internal/verdict"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Materials ---

type displayJSON struct {
	Text      string `json:"text"`
	Severity  string `json:"severity"`
	Automated bool   `json:"automated,omitempty"`
}

type materialJSON struct {
	model.Material
	Speculative     bool        `json:"speculative,omitempty"`
	Display         displayJSON `json:"display"`
	RejectionReason string      `json:"rejectionReason,omitempty"`
}

type listResponse struct {
	Total     int            `json:"total"`
	Shown     int            `json:"shown"`
	Version   uint64         `json:"version"`
	Loading   bool           `json:"loading"`
	Materials []materialJSON `json:"materials"`
}

func materialFrom(e review.Entry) materialJSON {
	ds := model.Classify(e.ReviewStatus)
	mj := materialJSON{
		Material:    e.Material,
		Speculative: e.Speculative,
		Display: displayJSON{
			Text:      ds.Text,
			Severity:  ds.Severity.String(),
			Automated: ds.Automated,
		},
	}
	if e.ReviewStatus == model.StatusRejected {
		mj.RejectionReason = verdict.RejectionReason(e.Material)
	}
	return mj
}

func (s *Server) list(f review.Filter) listResponse {
	entries := s.ctrl.View(f)
	resp := listResponse{
		Total:     s.ctrl.Stats().Total,
		Shown:     len(entries),
		Version:   s.ctrl.Version(),
		Loading:   s.ctrl.Loading(),
		Materials: make([]materialJSON, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Materials = append(resp.Materials, materialFrom(e))
	}
	return resp
}

func (s *Server) snapshot() listResponse {
	return s.list(review.Filter{Status: review.FilterAll})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = review.FilterAll
	}
	if status != review.FilterAll {
		if _, err := model.ParseReviewStatus(status); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, s.list(review.Filter{
		Status: status,
		Search: r.URL.Query().Get("q"),
	}))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, found := s.ctrl.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, review.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, materialFrom(e))
}

// --- Review actions ---

type triggerResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	msg, err := s.client.TriggerAI(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, triggerResponse{ID: id, Message: msg})
}

type manualRequest struct {
	ReviewStatus string `json:"reviewStatus"`
	Reason       string `json:"reason,omitempty"`
}

// intent maps the request onto a review intent.
func (req manualRequest) intent() (review.Intent, error) {
	switch model.ReviewStatus(strings.TrimSpace(req.ReviewStatus)) {
	case model.StatusApproved:
		return review.Approve{}, nil
	case model.StatusRejected:
		return review.Reject{Reason: req.Reason}, nil
	default:
		return nil, &review.ValidationError{Field: "reviewStatus", Message: "must be approved or rejected"}
	}
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req manualRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	intent, err := req.intent()
	if err == nil {
		err = s.client.SubmitManual(r.Context(), id, intent)
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	e, _ := s.ctrl.Get(id)
	writeJSON(w, http.StatusOK, materialFrom(e))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Refresh(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid material id")
		return 0, false
	}
	return id, true
}

// statusFor maps review and backend errors to HTTP statuses.
func statusFor(err error) int {
	var (
		verr   *review.ValidationError
		apiErr *backend.APIError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, review.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrNotEligible):
		return http.StatusConflict
	case errors.Is(err, review.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
