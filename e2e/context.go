// Package e2e drives a running roster server through its HTTP surface.
//
// The server under test must be started with FEED_BASE_URL pointing at the
// fake feed this suite serves on E2E_FEED_ADDR, FEED_TOKEN=e2e-feed-token,
// SYNC_PAGE_DELAY=0, SYNC_DOCUMENT_QUESTION_ID=q-doc and
// SYNC_SOURCES=evt-groups:q-doc:q-group. Other sources in the features rely on
// the default document question.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext holds per-scenario state shared by step packages.
type TestContext struct {
	BaseURL    string
	HTTPClient *http.Client
	Feed       *FakeFeed

	signingKey string
	issuer     string
	audience   string

	token        string
	lastStatus   int
	lastResponse map[string]any
	lastBody     []byte
}

func NewTestContext(feed *FakeFeed) *TestContext {
	return &TestContext{
		BaseURL:    envOr("E2E_BASE_URL", "http://localhost:8080"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Feed:       feed,
		signingKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		issuer:     envOr("JWT_ISSUER", "course-portal"),
		audience:   envOr("JWT_AUDIENCE", "roster"),
	}
}

func (tc *TestContext) reset() {
	tc.token = ""
	tc.lastStatus = 0
	tc.lastResponse = nil
	tc.lastBody = nil
}

// IssueToken signs an operator token the way the course portal does.
func (tc *TestContext) IssueToken(role string) error {
	now := time.Now()
	operatorID := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"operator_id": operatorID,
		"role":        role,
		"sub":         operatorID,
		"iss":         tc.issuer,
		"aud":         []string{tc.audience},
		"iat":         now.Unix(),
		"exp":         now.Add(5 * time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(tc.signingKey))
	if err != nil {
		return err
	}
	tc.token = signed
	return nil
}

func (tc *TestContext) SetToken(token string) { tc.token = token }

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	return tc.do(http.MethodPost, path, reader)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 {
		_ = json.Unmarshal(tc.lastBody, &tc.lastResponse)
	}
	return nil
}

func (tc *TestContext) GetLastStatusCode() int { return tc.lastStatus }

func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("no JSON response available")
	}
	v, ok := tc.lastResponse[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response: %s", field, tc.lastBody)
	}
	return v, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
