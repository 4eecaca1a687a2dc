// Package closecrm provides a client for the Close CRM REST API.
package closecrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/fundingbay/leadsync/internal/model"
	"github.com/fundingbay/leadsync/internal/resilience"
)

const defaultBaseURL = "https://api.close.com/api/v1"

// leadFields is the projection requested on the lead listing call. It
// keeps the payload to exactly the attributes the sheet renders.
const leadFields = "id,display_name,created_by_name,custom,date_created,date_updated,html_url,status_label,opportunities,contacts"

const (
	noteLimit = 3
	taskLimit = 5
)

// Client defines the Close API operations used by the exporter.
type Client interface {
	// ListLeadsBySource returns leads whose source custom field matches
	// the configured tag. Not retried; the caller decides how to degrade.
	ListLeadsBySource(ctx context.Context) ([]model.Lead, error)
	// ListNotes returns the lead's most recent notes, newest first,
	// capped at three.
	ListNotes(ctx context.Context, leadID string) ([]model.Note, error)
	// ListTasks returns the lead's most recent tasks, newest first,
	// capped at five.
	ListTasks(ctx context.Context, leadID string) ([]model.Task, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry overrides the retry policy for notes/tasks calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithRateLimit sets the request pacing in requests per second.
// A non-positive value disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey        string
	sourceFieldID string
	sourceTag     string
	baseURL       string
	http          *http.Client
	limiter       *rate.Limiter
	retry         resilience.RetryConfig
}

// NewClient creates a Close API client. The API key doubles as the basic
// auth username; the password is always empty.
func NewClient(apiKey, sourceFieldID, sourceTag string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		sourceFieldID: sourceFieldID,
		sourceTag:     sourceTag,
		baseURL:       defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(4), 1),
		retry: resilience.RetryConfig{
			MaxAttempts: 3,
			Backoff:     resilience.LinearBackoff(time.Second),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get issues an authenticated GET and decodes the JSON response into out.
func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "closecrm: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "closecrm: create request")
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "closecrm: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "closecrm: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("closecrm: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "closecrm: unmarshal response")
	}
	return nil
}

type leadEnvelope struct {
	Data []model.Lead `json:"data"`
}

func (c *httpClient) ListLeadsBySource(ctx context.Context) ([]model.Lead, error) {
	params := url.Values{}
	params.Set("_limit", "100")
	params.Set("query", fmt.Sprintf("custom.%s:%q", c.sourceFieldID, c.sourceTag))
	params.Set("_fields", leadFields)

	var env leadEnvelope
	if err := c.get(ctx, "/lead/", params, &env); err != nil {
		return nil, eris.Wrap(err, "closecrm: list leads")
	}
	return env.Data, nil
}

type rawNote struct {
	ID            string `json:"id"`
	Note          string `json:"note"`
	NoteHTML      string `json:"note_html"`
	DateCreated   string `json:"date_created"`
	CreatedByName string `json:"created_by_name"`
}

func (n rawNote) toModel() model.Note {
	body := n.Note
	if body == "" {
		body = n.NoteHTML
	}
	author := n.CreatedByName
	if author == "" {
		author = "Unknown"
	}
	return model.Note{
		ID:          n.ID,
		Body:        body,
		DateCreated: n.DateCreated,
		Author:      author,
	}
}

type noteEnvelope struct {
	Data []rawNote `json:"data"`
}

func (c *httpClient) ListNotes(ctx context.Context, leadID string) ([]model.Note, error) {
	params := url.Values{}
	params.Set("_limit", fmt.Sprint(noteLimit))
	params.Set("lead_id", leadID)
	params.Set("_order_by", "-date_created")

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("closecrm", "list notes")

	raw, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]rawNote, error) {
		var env noteEnvelope
		if err := c.get(ctx, "/activity/note/", params, &env); err != nil {
			return nil, err
		}
		return env.Data, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "closecrm: list notes for lead %s", leadID)
	}

	notes := make([]model.Note, 0, len(raw))
	for _, n := range raw {
		notes = append(notes, n.toModel())
	}
	return notes, nil
}

type rawTask struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	DateCreated    string `json:"date_created"`
	Date           string `json:"date"`
	IsComplete     bool   `json:"is_complete"`
	AssignedToName string `json:"assigned_to_name"`
}

func (t rawTask) toModel() model.Task {
	assignee := t.AssignedToName
	if assignee == "" {
		assignee = "Unassigned"
	}
	return model.Task{
		ID:          t.ID,
		Text:        t.Text,
		DateCreated: t.DateCreated,
		DueDate:     t.Date,
		IsComplete:  t.IsComplete,
		Assignee:    assignee,
	}
}

type taskEnvelope struct {
	Data []rawTask `json:"data"`
}

func (c *httpClient) ListTasks(ctx context.Context, leadID string) ([]model.Task, error) {
	params := url.Values{}
	params.Set("_limit", fmt.Sprint(taskLimit))
	params.Set("lead_id", leadID)
	params.Set("_order_by", "-date_created")

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("closecrm", "list tasks")

	raw, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]rawTask, error) {
		var env taskEnvelope
		if err := c.get(ctx, "/task/", params, &env); err != nil {
			return nil, err
		}
		return env.Data, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "closecrm: list tasks for lead %s", leadID)
	}

	tasks := make([]model.Task, 0, len(raw))
	for _, t := range raw {
		tasks = append(tasks, t.toModel())
	}
	return tasks, nil
}
