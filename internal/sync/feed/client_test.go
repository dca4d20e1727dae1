package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageOne = `{
  "pagination": {"page_number": 1, "has_more_items": true},
  "attendees": [
    {
      "id": "att-1",
      "profile": {"first_name": "Ana", "last_name": "Diaz", "name": "Ana Diaz", "email": "ana@example.com"},
      "answers": [{"question_id": "q-doc", "answer": " 30111222 "}, {"question_id": "q-group", "answer": "C2"}]
    },
    {"id": "att-2", "profile": {"email": "bea@example.com"}}
  ]
}`

func TestFetchPage(t *testing.T) {
	var gotAuth, gotPath, gotPage, gotSize string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotPage = r.URL.Query().Get("page")
		gotSize = r.URL.Query().Get("page_size")
		_, _ = w.Write([]byte(pageOne))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "secret", 50, 5*time.Second, WithHTTPClient(srv.Client()))
	page, err := c.FetchPage(context.Background(), "evt-1", 1)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/events/evt-1/attendees/", gotPath)
	assert.Equal(t, "1", gotPage)
	assert.Equal(t, "50", gotSize)

	assert.True(t, page.HasMore)
	assert.Equal(t, 1, page.Number)
	require.Len(t, page.Registrants, 2)
	first := page.Registrants[0]
	assert.Equal(t, "att-1", first.ExternalID)
	assert.Equal(t, "evt-1", first.SourceID)
	assert.Equal(t, "ana@example.com", first.Email)
	require.Len(t, first.Answers, 2)
	assert.Equal(t, "q-doc", first.Answers[0].QuestionID)
	assert.Empty(t, page.Registrants[1].Answers)
}

func TestFetchPageMalformedBodyEndsSource(t *testing.T) {
	for name, body := range map[string]string{
		"garbage": "<html>oops</html>",
		"empty":   "",
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := New(srv.URL, "secret", 50, time.Second, WithHTTPClient(srv.Client()))
			page, err := c.FetchPage(context.Background(), "evt-1", 3)
			require.NoError(t, err)
			assert.False(t, page.HasMore)
			assert.Empty(t, page.Registrants)
		})
	}
}

func TestFetchPageStatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		category  ErrorCategory
		retryable bool
	}{
		{http.StatusUnauthorized, ErrorAuthentication, false},
		{http.StatusForbidden, ErrorAuthentication, false},
		{http.StatusNotFound, ErrorNotFound, false},
		{http.StatusTooManyRequests, ErrorRateLimited, true},
		{http.StatusBadGateway, ErrorProviderOutage, true},
		{http.StatusGatewayTimeout, ErrorTimeout, true},
		{http.StatusBadRequest, ErrorInternal, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := New(srv.URL, "secret", 50, time.Second, WithHTTPClient(srv.Client()))
			_, err := c.FetchPage(context.Background(), "evt-1", 2)

			var fe *Error
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.category, fe.Category)
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, 2, fe.Page)
			assert.Equal(t, "evt-1", fe.SourceID)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestFetchPageTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, "secret", 50, time.Second)
	_, err := c.FetchPage(context.Background(), "evt-1", 1)
	assert.Equal(t, ErrorProviderOutage, GetCategory(err))
}

func TestFetchPageTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, "secret", 50, 50*time.Millisecond)
	_, err := c.FetchPage(context.Background(), "evt-1", 1)
	assert.Equal(t, ErrorTimeout, GetCategory(err))
	assert.True(t, IsRetryable(err))
}

func TestFetchPageCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", 50, 5*time.Second)
	_, err := c.FetchPage(ctx, "evt-1", 1)
	require.Error(t, err)
	assert.Equal(t, ErrorCancelled, GetCategory(err))
	assert.False(t, IsRetryable(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetCategoryDefaults(t *testing.T) {
	assert.Equal(t, ErrorInternal, GetCategory(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
