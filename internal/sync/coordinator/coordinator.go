// Package coordinator drives a sync run: sources one after another, pages in
// order within a source, registrants of a page fanned out to bounded workers.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	account "roster/internal/account/models"
	"roster/internal/sync/checkpoint"
	"roster/internal/sync/extract"
	"roster/internal/sync/feed"
	"roster/internal/sync/metrics"
	"roster/internal/sync/models"
	id "roster/pkg/domain"
	audit "roster/pkg/platform/audit"
	"roster/pkg/requestcontext"
)

const (
	DefaultWorkers  = 10
	DefaultMaxPages = 500
)

type Fetcher interface {
	FetchPage(ctx context.Context, sourceID string, page int) (models.Page, error)
}

type Resolver interface {
	Resolve(ctx context.Context, email, externalID, documentID string) (*account.Account, error)
}

type Upserter interface {
	Upsert(ctx context.Context, reg models.Registrant, extracted models.ExtractedIdentity, existing *account.Account) models.Outcome
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Coordinator is safe to reuse across runs; all run state is local to Run.
type Coordinator struct {
	fetcher        Fetcher
	resolver       Resolver
	upserter       Upserter
	checkpoints    checkpoint.Store
	delay          DelayPolicy
	workers        int
	maxPages       int
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *Coordinator) {
		c.auditPublisher = publisher
	}
}

// WithCheckpoints enables resumable runs.
func WithCheckpoints(store checkpoint.Store) Option {
	return func(c *Coordinator) {
		c.checkpoints = store
	}
}

func WithDelay(policy DelayPolicy) Option {
	return func(c *Coordinator) {
		if policy != nil {
			c.delay = policy
		}
	}
}

// WithWorkers bounds concurrent upserts within one page.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxPages caps pages fetched per source in one run.
func WithMaxPages(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) {
		if tp != nil {
			c.tracer = tp.Tracer("roster/sync")
		}
	}
}

func New(fetcher Fetcher, resolver Resolver, upserter Upserter, opts ...Option) (*Coordinator, error) {
	if fetcher == nil {
		return nil, errors.New("feed fetcher is required")
	}
	if resolver == nil {
		return nil, errors.New("identity resolver is required")
	}
	if upserter == nil {
		return nil, errors.New("upsert engine is required")
	}
	c := &Coordinator{
		fetcher:  fetcher,
		resolver: resolver,
		upserter: upserter,
		delay:    FixedDelay(time.Second),
		workers:  DefaultWorkers,
		maxPages: DefaultMaxPages,
		logger:   slog.Default(),
		tracer:   otel.Tracer("roster/sync"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run syncs every source in order and always returns a result. Feed failures
// end only their own source. Cancelling ctx stops the run at the next page
// boundary; the page already dispatched still completes, and a fetch cut off
// by the cancellation marks its source cancelled rather than failed.
func (c *Coordinator) Run(ctx context.Context, sources []models.SourceConfig, resume bool) models.RunResult {
	runID := id.NewRunID()
	started := time.Now()
	ctx = requestcontext.WithRunID(ctx, runID)
	ctx = requestcontext.WithTime(ctx, started.UTC())

	ctx, span := c.tracer.Start(ctx, "sync.run", trace.WithAttributes(
		attribute.String("sync.run_id", runID.String()),
		attribute.Int("sync.sources", len(sources)),
		attribute.Bool("sync.resume", resume),
	))
	defer span.End()

	c.logger.InfoContext(ctx, "sync run started",
		"run_id", runID.String(),
		"sources", len(sources),
		"resume", resume,
		"request_id", requestcontext.RequestID(ctx),
	)

	acc := &models.Accumulator{}
	reports := make([]models.SourceReport, 0, len(sources))
	for _, src := range sources {
		if ctx.Err() != nil {
			reports = append(reports, models.SourceReport{SourceID: src.ID, Status: models.SourcePending})
			continue
		}
		reports = append(reports, c.runSource(ctx, src, resume, acc))
	}

	result := models.RunResult{
		RunID:      runID,
		Status:     models.DeriveStatus(reports),
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
		Sources:    reports,
		Outcomes:   acc.Outcomes(),
	}

	span.SetAttributes(
		attribute.String("sync.status", string(result.Status)),
		attribute.Int("sync.outcomes", len(result.Outcomes)),
	)
	if result.Status == models.RunFailed {
		span.SetStatus(codes.Error, "every source failed")
	}
	if c.metrics != nil {
		c.metrics.ObserveRun(string(result.Status), started)
	}
	c.logger.InfoContext(ctx, "sync run finished",
		"run_id", runID.String(),
		"status", string(result.Status),
		"outcomes", len(result.Outcomes),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	c.emitRunCompleted(context.WithoutCancel(ctx), result)
	return result
}

func (c *Coordinator) runSource(ctx context.Context, src models.SourceConfig, resume bool, acc *models.Accumulator) models.SourceReport {
	ctx, span := c.tracer.Start(ctx, "sync.source", trace.WithAttributes(
		attribute.String("sync.source_id", src.ID),
	))
	defer span.End()

	report := models.SourceReport{SourceID: src.ID, StartPage: c.startPage(ctx, src.ID, resume)}
	log := c.logger.With("source_id", src.ID, "run_id", requestcontext.RunID(ctx))

	for pageNum := report.StartPage; ; pageNum++ {
		if report.Pages > 0 {
			if err := c.delay.Wait(ctx); err != nil {
				report.Status = models.SourceCancelled
				log.InfoContext(ctx, "source cancelled between pages", "pages", report.Pages)
				return report
			}
		}
		if ctx.Err() != nil {
			report.Status = models.SourceCancelled
			return report
		}
		if report.Pages >= c.maxPages {
			log.WarnContext(ctx, "page cap reached, ending source", "max_pages", c.maxPages)
			report.Status = models.SourceCompleted
			return report
		}

		page, err := c.fetch(ctx, src.ID, pageNum)
		if err != nil && ctx.Err() != nil {
			report.Status = models.SourceCancelled
			log.InfoContext(ctx, "source cancelled during page fetch", "page", pageNum, "pages", report.Pages)
			return report
		}
		if err != nil {
			report.Status = models.SourceFailed
			report.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, "feed fetch failed")
			log.ErrorContext(ctx, "feed fetch failed, stopping source",
				"page", pageNum,
				"category", string(feed.GetCategory(err)),
				"retryable", feed.IsRetryable(err),
				"error", err,
			)
			return report
		}

		// The dispatched page finishes even if the run is cancelled meanwhile.
		c.processPage(context.WithoutCancel(ctx), src, page, acc)
		report.Pages++
		c.saveCheckpoint(ctx, src.ID, pageNum)

		if !page.HasMore || len(page.Registrants) == 0 {
			c.clearCheckpoint(ctx, src.ID)
			report.Status = models.SourceCompleted
			log.InfoContext(ctx, "source exhausted", "pages", report.Pages, "last_page", pageNum)
			return report
		}
	}
}

func (c *Coordinator) fetch(ctx context.Context, sourceID string, pageNum int) (models.Page, error) {
	start := time.Now()
	page, err := c.fetcher.FetchPage(ctx, sourceID, pageNum)
	if c.metrics != nil {
		c.metrics.ObservePageFetch(start)
		if err != nil {
			c.metrics.IncrementPageFetchFailure(string(feed.GetCategory(err)))
		}
	}
	return page, err
}

func (c *Coordinator) processPage(ctx context.Context, src models.SourceConfig, page models.Page, acc *models.Accumulator) {
	ctx, span := c.tracer.Start(ctx, "sync.page", trace.WithAttributes(
		attribute.String("sync.source_id", src.ID),
		attribute.Int("sync.page", page.Number),
		attribute.Int("sync.registrants", len(page.Registrants)),
	))
	defer span.End()

	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, reg := range page.Registrants {
		if reg.SourceID == "" {
			reg.SourceID = src.ID
		}
		g.Go(func() error {
			acc.Add(c.processOne(ctx, src, reg))
			return nil
		})
	}
	_ = g.Wait()
}

// processOne never panics out of a worker: a panic becomes an error outcome.
func (c *Coordinator) processOne(ctx context.Context, src models.SourceConfig, reg models.Registrant) (out models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "registrant processing panicked",
				"source_id", src.ID,
				"identifier", reg.Identifier(),
				"panic", fmt.Sprint(r),
			)
			out = models.Failed(reg.Identifier(), src.ID, models.ReasonPersistenceFailed)
		}
		if c.metrics != nil {
			c.metrics.IncrementOutcome(string(out.Status))
		}
	}()

	extracted := extract.ForSource(reg, src)
	out = c.resolveAndUpsert(ctx, reg, extracted)

	// Two registrants racing for one identity: the loser re-resolves once
	// and lands on the winner's account.
	if out.Status == models.StatusError && out.Reason == models.ReasonIdentityConflict {
		out = c.resolveAndUpsert(ctx, reg, extracted)
	}
	return out
}

func (c *Coordinator) resolveAndUpsert(ctx context.Context, reg models.Registrant, extracted models.ExtractedIdentity) models.Outcome {
	var existing *account.Account
	if extracted.Processable() {
		var err error
		existing, err = c.resolver.Resolve(ctx, reg.Email, reg.ExternalID, extracted.DocumentID)
		if err != nil {
			c.logger.WarnContext(ctx, "identity lookup failed",
				"source_id", reg.SourceID,
				"identifier", reg.Identifier(),
				"error", err,
			)
			return models.Failed(reg.Identifier(), reg.SourceID, models.ReasonLookupFailed)
		}
	}
	return c.upserter.Upsert(ctx, reg, extracted, existing)
}

func (c *Coordinator) startPage(ctx context.Context, sourceID string, resume bool) int {
	if !resume || c.checkpoints == nil {
		return 1
	}
	last, err := c.checkpoints.Load(ctx, sourceID)
	if err != nil {
		c.logger.WarnContext(ctx, "checkpoint load failed, starting from first page",
			"source_id", sourceID, "error", err)
		return 1
	}
	return last + 1
}

func (c *Coordinator) saveCheckpoint(ctx context.Context, sourceID string, page int) {
	if c.checkpoints == nil {
		return
	}
	if err := c.checkpoints.Save(context.WithoutCancel(ctx), sourceID, page); err != nil {
		c.logger.WarnContext(ctx, "checkpoint save failed", "source_id", sourceID, "page", page, "error", err)
	}
}

func (c *Coordinator) clearCheckpoint(ctx context.Context, sourceID string) {
	if c.checkpoints == nil {
		return
	}
	if err := c.checkpoints.Clear(context.WithoutCancel(ctx), sourceID); err != nil {
		c.logger.WarnContext(ctx, "checkpoint clear failed", "source_id", sourceID, "error", err)
	}
}

func (c *Coordinator) emitRunCompleted(ctx context.Context, result models.RunResult) {
	if c.auditPublisher == nil {
		return
	}
	actor := ""
	if op := requestcontext.OperatorID(ctx); !op.IsNil() {
		actor = op.String()
	}
	err := c.auditPublisher.Emit(ctx, audit.Event{
		Subject:   result.RunID.String(),
		Action:    string(audit.EventSyncRunCompleted),
		Reason:    string(result.Status),
		RunID:     result.RunID.String(),
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   actor,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "audit emit failed", "event", string(audit.EventSyncRunCompleted), "error", err)
	}
}
