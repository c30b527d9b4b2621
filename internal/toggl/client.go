// Package toggl talks to the Toggl Track Reports API v3.
package toggl

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.track.toggl.com"
	DefaultTimeout = 90 * time.Second

	CSVContentType = "text/csv"

	timeEntriesPath = "/reports/api/v3/workspace/{workspace}/search/time_entries.csv"

	// Toggl expects the literal password "api_token" when the token is sent
	// as the username.
	apiTokenPassword = "api_token"

	maxErrorBody = 512
)

// AuthStrategy presents the API token to Toggl. BasicAuth and HeaderAuth put
// the same credential on the wire through different request APIs.
type AuthStrategy struct {
	token  string
	header bool
}

func BasicAuth(token string) AuthStrategy {
	return AuthStrategy{token: token}
}

func HeaderAuth(token string) AuthStrategy {
	return AuthStrategy{token: token, header: true}
}

func (a AuthStrategy) apply(req *resty.Request) {
	if a.header {
		raw := a.token + ":" + apiTokenPassword
		req.SetHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
		return
	}
	req.SetBasicAuth(a.token, apiTokenPassword)
}

func (a AuthStrategy) String() string {
	if a.header {
		return "header"
	}
	return "basic"
}

// Export is the raw CSV returned by the reports endpoint.
type Export struct {
	Data        []byte
	ContentType string
	StartDate   string
	EndDate     string
}

// StatusError is returned when Toggl answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("toggl reports API returned %s", e.Status)
	}
	return fmt.Sprintf("toggl reports API returned %s: %s", e.Status, e.Body)
}

type Client struct {
	http   *resty.Client
	auth   AuthStrategy
	method string
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.http.SetBaseURL(strings.TrimRight(url, "/")) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithMethod selects POST (JSON body) or GET (query parameters).
func WithMethod(method string) Option {
	return func(c *Client) { c.method = strings.ToUpper(method) }
}

func NewClient(auth AuthStrategy, opts ...Option) *Client {
	c := &Client{
		http:   resty.New().SetBaseURL(DefaultBaseURL).SetTimeout(DefaultTimeout),
		auth:   auth,
		method: http.MethodPost,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTimeEntriesCSV downloads the detailed time entries report for the
// inclusive date range. The body is returned as received.
func (c *Client) FetchTimeEntriesCSV(ctx context.Context, workspaceID, startDate, endDate string) (*Export, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", CSVContentType).
		SetPathParam("workspace", workspaceID)
	c.auth.apply(req)

	switch c.method {
	case http.MethodGet:
		req.SetQueryParams(map[string]string{
			"start_date": startDate,
			"end_date":   endDate,
		})
	case http.MethodPost:
		req.SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{
				"start_date": startDate,
				"end_date":   endDate,
			})
	default:
		return nil, errors.Errorf("unsupported HTTP method %q", c.method)
	}

	zerolog.Ctx(ctx).Debug().
		Str("method", c.method).
		Str("workspace", workspaceID).
		Str("auth", c.auth.String()).
		Msg("requesting time entries report")

	resp, err := req.Execute(c.method, timeEntriesPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call toggl reports API")
	}

	if !resp.IsSuccess() {
		body := strings.TrimSpace(string(resp.Body()))
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody] + "..."
		}
		return nil, &StatusError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       body,
		}
	}

	return &Export{
		Data:        resp.Body(),
		ContentType: CSVContentType,
		StartDate:   startDate,
		EndDate:     endDate,
	}, nil
}
