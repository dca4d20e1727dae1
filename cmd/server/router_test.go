package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountstore "roster/internal/account/store"
	jwttoken "roster/internal/jwt_token"
	"roster/internal/platform/config"
	"roster/internal/sync/handler"
	"roster/internal/sync/models"
	id "roster/pkg/domain"
	request "roster/pkg/platform/middleware/request"
	"roster/pkg/testutil"
)

type countingRunner struct{ calls int }

func (r *countingRunner) Run(_ context.Context, _ []models.SourceConfig, _ bool) models.RunResult {
	r.calls++
	return models.RunResult{RunID: id.RunID(uuid.New()), Status: models.RunCompleted}
}

func newTestRouter(t *testing.T) (http.Handler, *jwttoken.JWTService, *countingRunner) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := &countingRunner{}
	syncCfg := config.SyncConfig{DefaultDocumentQuestionID: "q-doc", Sources: []models.SourceConfig{{ID: "evt-1", DocumentQuestionID: "q-doc"}}}
	h := handler.New(runner, syncCfg, accountstore.NewInMemory(), nil, log)
	jwt := jwttoken.NewJWTService("k", "roster", "roster")
	checks := map[string]healthCheck{"postgres": func(context.Context) error { return nil }}
	return newRouter(log, h, jwttoken.NewJWTServiceAdapter(jwt), prometheus.NewRegistry(), checks), jwt, runner
}

func TestRouter(t *testing.T) {
	router, jwt, runner := newTestRouter(t)

	t.Run("health is public and tagged with a request id", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))
		testutil.AssertStatusOK(t, rr)
		assert.NotEmpty(t, rr.Header().Get(request.HeaderRequestID))
	})

	t.Run("health degrades when a dependency is down", func(t *testing.T) {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		h := handler.New(&countingRunner{}, config.SyncConfig{}, accountstore.NewInMemory(), nil, log)
		checks := map[string]healthCheck{"redis": func(context.Context) error { return errors.New("dial tcp: refused") }}
		degraded := newRouter(log, h, jwttoken.NewJWTServiceAdapter(jwt), prometheus.NewRegistry(), checks)

		rr := testutil.DoRequest(degraded, testutil.NewRequest(t, http.MethodGet, "/health"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		testutil.AssertJSONContains(t, rr, "redis", "unavailable")
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("sync trigger rejects anonymous callers", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/admin/sync/runs"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("sync trigger rejects unprivileged operators", func(t *testing.T) {
		token, err := jwt.GenerateOperatorToken(id.OperatorID(uuid.New()), "viewer", time.Minute)
		require.NoError(t, err)
		req := testutil.NewRequest(t, http.MethodPost, "/admin/sync/runs")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	assert.Zero(t, runner.calls)

	t.Run("sync operator can run", func(t *testing.T) {
		token, err := jwt.GenerateOperatorToken(id.OperatorID(uuid.New()), handler.RoleSyncOperator, time.Minute)
		require.NoError(t, err)
		req := testutil.NewRequest(t, http.MethodPost, "/admin/sync/runs")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
	})
	assert.Equal(t, 1, runner.calls)
}
