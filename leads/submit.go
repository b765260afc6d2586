package leads

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trilokanam-ux/trilokana-telegram-bot/core/logger"
)

const defaultSubmitTimeout = 15 * time.Second

// Coordinator hands completed records to the sink with a bounded timeout
// and keeps submission counters for diagnostics.
type Coordinator struct {
	sink    RecordSink
	timeout time.Duration

	submitted atomic.Uint64
	failed    atomic.Uint64
}

// NewCoordinator builds a Coordinator. timeout <= 0 uses the default bound.
func NewCoordinator(sink RecordSink, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}
	return &Coordinator{sink: sink, timeout: timeout}
}

// Submit forwards the record to the sink. Errors never propagate past this
// boundary untyped; callers only decide session disposition and messaging.
func (c *Coordinator) Submit(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.sink.Append(ctx, rec)
	took := logger.Took(start)

	if err != nil {
		c.failed.Add(1)
		logger.Error(ctx, "sink", "append.fail",
			slog.String("status", "fail"),
			slog.String("lead_id", rec.ID),
			slog.String("option", rec.Option),
			slog.Duration("duration", took),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("submit lead %s: %w", rec.ID, err)
	}

	c.submitted.Add(1)
	logger.Info(ctx, "sink", "append.ok",
		slog.String("status", "ok"),
		slog.String("lead_id", rec.ID),
		slog.String("option", rec.Option),
		slog.Duration("duration", took),
	)
	return nil
}

// Submitted returns the number of successfully persisted leads.
func (c *Coordinator) Submitted() uint64 { return c.submitted.Load() }

// Failed returns the number of failed submissions.
func (c *Coordinator) Failed() uint64 { return c.failed.Load() }
