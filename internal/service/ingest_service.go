// Package service orchestrates the ingestion pipeline: authenticate,
// validate every event, plan per-table inserts, execute atomically.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/attolytics/attolytics/internal/auth"
	"github.com/attolytics/attolytics/internal/executor"
	"github.com/attolytics/attolytics/internal/logging"
	"github.com/attolytics/attolytics/internal/metrics"
	"github.com/attolytics/attolytics/internal/planner"
	"github.com/attolytics/attolytics/internal/ratelimit"
	"github.com/attolytics/attolytics/internal/schema"
	"github.com/attolytics/attolytics/internal/validator"
)

// ErrRateLimited reports that the tenant exceeded its batch rate.
var ErrRateLimited = errors.New("rate limit exceeded")

// EventError wraps a validation failure with the index of the failing
// event within the submitted batch. The whole batch is rejected; zero
// rows are inserted.
type EventError struct {
	Index int
	Err   *validator.Error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %d: %v", e.Index, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// IngestService wires the pipeline stages together. The schema model is
// shared, immutable state; everything else a request touches is owned
// by that request.
type IngestService struct {
	schema  *schema.Schema
	auth    *auth.Authenticator
	exec    *executor.Executor
	limiter ratelimit.RateLimiter
	logger  *logging.Logger
}

func NewIngestService(s *schema.Schema, exec *executor.Executor, limiter ratelimit.RateLimiter, logger *logging.Logger) *IngestService {
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestService{
		schema:  s,
		auth:    auth.New(s),
		exec:    exec,
		limiter: limiter,
		logger:  logger,
	}
}

// Tenant resolves a tenant without authenticating, for CORS preflight.
func (s *IngestService) Tenant(id string) (*schema.Tenant, bool) {
	return s.schema.Tenant(id)
}

// Ready reports whether the backing database is reachable.
func (s *IngestService) Ready(ctx context.Context) error {
	return s.exec.Ping(ctx)
}

// SubmitEvents is the one logical ingestion operation: authenticate the
// tenant, validate every event, and commit all resulting rows in a
// single transaction. Any failure rejects the entire batch with zero
// rows inserted. On success the ack carries per-table insert counts.
func (s *IngestService) SubmitEvents(ctx context.Context, tenantID, secret string, events []validator.RawEvent) (*executor.Ack, error) {
	tenant, err := s.auth.Authenticate(tenantID, secret)
	if err != nil {
		// Never echo the supplied credential.
		s.logger.WarnContext(ctx, "authentication failed",
			logging.Tenant(tenantID), logging.Err(err))
		metrics.BatchesTotal.WithLabelValues(tenantID, "auth_error").Inc()
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, tenant.ID)
	if err != nil {
		// A broken limiter must not take ingestion down with it.
		s.logger.WarnContext(ctx, "rate limiter unavailable, allowing request",
			logging.Tenant(tenant.ID), logging.Err(err))
	} else if !allowed {
		metrics.BatchesTotal.WithLabelValues(tenant.ID, "rate_limited").Inc()
		return nil, ErrRateLimited
	}

	metrics.BatchSize.Observe(float64(len(events)))

	rows := make([]planner.Row, 0, len(events))
	for i, event := range events {
		row, err := validator.Validate(tenant, event, s.schema)
		if err != nil {
			var verr *validator.Error
			errors.As(err, &verr)
			s.logger.WarnContext(ctx, "event rejected",
				logging.Tenant(tenant.ID), logging.EventIndex(i), logging.Err(verr))
			metrics.BatchesTotal.WithLabelValues(tenant.ID, "validation_error").Inc()
			metrics.ValidationErrorsTotal.WithLabelValues(string(verr.Kind)).Inc()
			return nil, &EventError{Index: i, Err: verr}
		}
		rows = append(rows, planner.Row{Row: row, Position: i})
	}

	plans := planner.Build(rows)

	start := time.Now()
	ack, err := s.exec.Execute(ctx, plans)
	metrics.InsertDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "batch insert failed",
			logging.Tenant(tenant.ID), logging.Err(err))
		metrics.InsertErrors.Inc()
		metrics.BatchesTotal.WithLabelValues(tenant.ID, "execution_error").Inc()
		return nil, err
	}

	for table, n := range ack.Rows {
		metrics.RowsInsertedTotal.WithLabelValues(table).Add(float64(n))
	}
	metrics.BatchesTotal.WithLabelValues(tenant.ID, "ok").Inc()
	s.logger.InfoContext(ctx, "batch committed",
		logging.Tenant(tenant.ID), "tables", len(ack.Rows), "events", len(events))
	return ack, nil
}
