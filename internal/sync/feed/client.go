// Package feed fetches registrant pages from the external registration API.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"roster/internal/sync/models"
)

// maxBodyBytes caps how much of one page response is read.
const maxBodyBytes = 8 << 20

// Client is a bearer-token client for the paginated attendee endpoint:
//
//	GET {base}/events/{source}/attendees/?page=N&page_size=M
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pageSize   int
	logger     *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(baseURL, token string, pageSize int, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    strings.TrimSpace(token),
		pageSize: pageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// attendeesResponse matches the attendee list payload.
type attendeesResponse struct {
	Pagination struct {
		PageNumber   int  `json:"page_number"`
		HasMoreItems bool `json:"has_more_items"`
	} `json:"pagination"`
	Attendees []struct {
		ID      string `json:"id"`
		Profile struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Name      string `json:"name"`
			Email     string `json:"email"`
		} `json:"profile"`
		Answers []struct {
			QuestionID string `json:"question_id"`
			Answer     string `json:"answer"`
		} `json:"answers"`
	} `json:"attendees"`
}

// FetchPage retrieves one page. Non-2xx responses and transport failures
// return *Error. A body that cannot be decoded is treated as an empty final
// page so the source ends cleanly instead of looping.
func (c *Client) FetchPage(ctx context.Context, sourceID string, page int) (models.Page, error) {
	endpoint := fmt.Sprintf("%s/events/%s/attendees/?%s", c.baseURL, url.PathEscape(sourceID), url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(c.pageSize)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Page{}, newError(ErrorInternal, sourceID, page, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Page{}, newError(transportCategory(err), sourceID, page, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		fe := newError(categoryForStatus(resp.StatusCode), sourceID, page, "status "+strconv.Itoa(resp.StatusCode), nil)
		fe.StatusCode = resp.StatusCode
		return models.Page{}, fe
	}

	var body attendeesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		c.logger.WarnContext(ctx, "malformed feed page, ending source",
			"source_id", sourceID,
			"page", page,
			"error", err,
		)
		return models.Page{Number: page}, nil
	}

	out := models.Page{
		Number:      page,
		HasMore:     body.Pagination.HasMoreItems,
		Registrants: make([]models.Registrant, 0, len(body.Attendees)),
	}
	for _, a := range body.Attendees {
		r := models.Registrant{
			ExternalID: a.ID,
			SourceID:   sourceID,
			FirstName:  a.Profile.FirstName,
			LastName:   a.Profile.LastName,
			Name:       a.Profile.Name,
			Email:      a.Profile.Email,
			Answers:    make([]models.Answer, 0, len(a.Answers)),
		}
		for _, ans := range a.Answers {
			r.Answers = append(r.Answers, models.Answer{QuestionID: ans.QuestionID, Answer: ans.Answer})
		}
		out.Registrants = append(out.Registrants, r)
	}
	return out, nil
}

func transportCategory(err error) ErrorCategory {
	if errors.Is(err, context.Canceled) {
		return ErrorCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}
	return ErrorProviderOutage
}
