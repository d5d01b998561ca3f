// Package backend is the HTTP client for the material and review REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sprite-ai/adreview/internal/metrics"
	"github.com/sprite-ai/adreview/internal/model"
)

// DefaultBaseURL is where the backend listens in a local setup.
const DefaultBaseURL = "http://localhost:9090/api"

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 10 * time.Second

const maxBodySize = 8 << 20

// Client talks to the backend.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *Credentials
	log     logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for baseURL. creds may be nil for anonymous access.
func New(baseURL string, creds *Credentials, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if creds == nil {
		creds = NewCredentials("")
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		log:     discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials returns the token holder used by the client.
func (c *Client) Credentials() *Credentials {
	return c.creds
}

// ListParams filters GET /materials.
type ListParams struct {
	Page     int
	PageSize int
	Type     model.MaterialType
}

// MaterialPage is one page of materials.
type MaterialPage struct {
	Total int              `json:"total"`
	List  []model.Material `json:"list"`
}

// ManualReview is the body of POST /reviews/manual/{id}.
type ManualReview struct {
	ReviewStatus model.ReviewStatus `json:"reviewStatus" validate:"required,oneof=approved rejected"`
	Reason       string             `json:"reason,omitempty" validate:"required_if=ReviewStatus rejected"`
}

// ListMaterials fetches one page of materials.
func (c *Client) ListMaterials(ctx context.Context, p ListParams) (*MaterialPage, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.Type != "" {
		q.Set("type", string(p.Type))
	}

	var page MaterialPage
	if _, err := c.do(ctx, "list materials", http.MethodGet, "/materials", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TriggerReview starts an asynchronous AI review and returns the
// backend's acknowledgement message.
func (c *Client) TriggerReview(ctx context.Context, id int64) (string, error) {
	env, err := c.do(ctx, "trigger review", http.MethodPost, fmt.Sprintf("/reviews/trigger/%d", id), nil, nil, nil)
	if err != nil {
		return "", err
	}
	return env.text(), nil
}

// SubmitManualReview records a human decision.
func (c *Client) SubmitManualReview(ctx context.Context, id int64, req ManualReview) error {
	_, err := c.do(ctx, "manual review", http.MethodPost, fmt.Sprintf("/reviews/manual/%d", id), nil, req, nil)
	return err
}

// UpdateMaterial renames a material.
func (c *Client) UpdateMaterial(ctx context.Context, id int64, title string) error {
	body := map[string]string{"title": title}
	_, err := c.do(ctx, "update material", http.MethodPut, fmt.Sprintf("/materials/%d", id), nil, body, nil)
	return err
}

// DeleteMaterial removes a material.
func (c *Client) DeleteMaterial(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "delete material", http.MethodDelete, fmt.Sprintf("/materials/%d", id), nil, nil, nil)
	return err
}

// envelope wraps every backend response.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body, out any) (*envelope, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.WithFields(logrus.Fields{"op": op, "request_id": requestID})
	log.WithField("url", u).Debug("backend request")

	start := time.Now()
	env, err := c.roundTrip(req, op, out)
	metrics.ObserveBackend(op, err, time.Since(start))
	if err != nil {
		log.WithError(err).Warn("backend request failed")
		return nil, err
	}
	return env, nil
}

func (c *Client) roundTrip(req *http.Request, op string, out any) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", op, err)
	}

	env := &envelope{}
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.text()
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Op: op, Status: resp.StatusCode, Code: env.Code, Message: msg}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", op, decodeErr)
	}

	if env.Code != 0 {
		msg := env.text()
		if msg == "" {
			msg = "Error"
		}
		return nil, &APIError{Op: op, Status: resp.StatusCode, Code: env.Code, Message: msg}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("%s: decoding data: %w", op, err)
		}
	}

	return env, nil
}
