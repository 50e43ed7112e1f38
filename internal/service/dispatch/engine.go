package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/brief/internal/audit"
	"github.com/ignite/brief/internal/domain"
	"github.com/ignite/brief/internal/metrics"
	"github.com/ignite/brief/internal/pkg/distlock"
	"github.com/ignite/brief/internal/pkg/logger"
	"github.com/ignite/brief/internal/render"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchLimit bounds the runs handled by one pass.
const DefaultBatchLimit = 10

// ErrLockLost is returned when the dispatch lock expired or changed hands
// during a pass. The run being sent is left pending and no further
// recipients are attempted.
var ErrLockLost = errors.New("dispatch lock lost")

// Result summarizes a dispatch pass. Dispatched counts runs this pass closed,
// cancelled ones included; Skipped counts runs another dispatcher closed
// first.
type Result struct {
	Dispatched int `json:"dispatched"`
	Cancelled  int `json:"cancelled"`
	Skipped    int `json:"skipped"`
}

// Engine delivers due send runs.
type Engine struct {
	repo     Repository
	subs     Subscribers
	exporter Exporter
	composer *render.Composer
	sender   Sender
	tokens   TokenIssuer

	lock        distlock.DistLock
	lockTTL     time.Duration
	heartbeat   time.Duration
	archive     Archiver
	audit       audit.Sink
	metrics     *metrics.Dispatch
	concurrency int
	now         func() time.Time

	mu   sync.Mutex
	lost atomic.Bool // set when the lock is lost during the current pass
}

// Option configures an Engine.
type Option func(*Engine)

// WithLock serializes passes across processes. A pass that cannot take the
// lock dispatches nothing. While a pass runs the lock is extended to ttl
// every ttl/3; a non-positive ttl disables renewal.
func WithLock(l distlock.DistLock, ttl time.Duration) Option {
	return func(e *Engine) {
		e.lock = l
		e.lockTTL = ttl
		e.heartbeat = ttl / 3
	}
}

// WithArchive stores the markdown delivered by every completed run.
func WithArchive(a Archiver) Option {
	return func(e *Engine) { e.archive = a }
}

// WithAudit sets the audit sink.
func WithAudit(sink audit.Sink) Option {
	return func(e *Engine) { e.audit = sink }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Dispatch) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithConcurrency sets how many recipients of a run are sent to at once.
// Values below 1 mean sequential sends.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithClock overrides the time source used when DispatchDue gets a zero now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a dispatch engine.
func NewEngine(repo Repository, subs Subscribers, exporter Exporter, composer *render.Composer, sender Sender, tokens TokenIssuer, opts ...Option) *Engine {
	e := &Engine{
		repo:        repo,
		subs:        subs,
		exporter:    exporter,
		composer:    composer,
		sender:      sender,
		tokens:      tokens,
		concurrency: 1,
		now:         time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}
	return e
}

// DispatchDue processes up to limit runs due at now (DefaultBatchLimit when
// limit <= 0, the clock when now is zero). Recipient failures are recorded
// as bounces; only store failures are returned.
func (e *Engine) DispatchDue(ctx context.Context, now time.Time, limit int) (Result, error) {
	if now.IsZero() {
		now = e.now()
	}
	now = now.UTC()
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lost.Store(false)
	if e.lock != nil {
		ok, err := e.lock.Acquire(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("acquire dispatch lock: %w", err)
		}
		if !ok {
			logger.Debug("dispatch lock held elsewhere, skipping pass")
			return Result{}, nil
		}
		hbCtx, stopHB := context.WithCancel(context.WithoutCancel(ctx))
		hbDone := make(chan struct{})
		go func() {
			defer close(hbDone)
			e.keepLock(hbCtx)
		}()
		defer func() {
			stopHB()
			<-hbDone
			if err := e.lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("release dispatch lock", "error", err)
			}
		}()
	}

	start := time.Now()
	defer func() { e.metrics.ObservePass(time.Since(start)) }()

	runs, err := e.repo.DueRuns(ctx, now, limit)
	if err != nil {
		return Result{}, fmt.Errorf("load due runs: %w", err)
	}
	if len(runs) == 0 {
		return Result{}, nil
	}

	var res Result
	for i := range runs {
		run := &runs[i]
		// Cancellation is honoured between runs only; a started run always
		// finishes its sends and its final write.
		if err := ctx.Err(); err != nil {
			logger.Info("dispatch pass interrupted", "remaining", len(runs)-i)
			return res, err
		}
		if e.lost.Load() {
			return res, ErrLockLost
		}
		outcome, err := e.dispatchRun(context.WithoutCancel(ctx), run, now)
		if err != nil {
			return res, fmt.Errorf("dispatch run %s: %w", run.ID, err)
		}
		switch outcome {
		case metrics.OutcomeSent:
			res.Dispatched++
		case metrics.OutcomeCancelled:
			res.Dispatched++
			res.Cancelled++
		default:
			res.Skipped++
		}
	}

	logger.Info("newsletter dispatch pass complete",
		"dispatched", res.Dispatched,
		"cancelled", res.Cancelled,
		"skipped", res.Skipped,
	)
	return res, nil
}

// keepLock extends the dispatch lock every heartbeat until ctx is done. It
// marks the pass lost once the lock is no longer ours.
func (e *Engine) keepLock(ctx context.Context) {
	if e.heartbeat <= 0 {
		return
	}
	t := time.NewTicker(e.heartbeat)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		err := e.lock.Extend(ctx, e.lockTTL)
		switch {
		case errors.Is(err, distlock.ErrNotHeld):
			e.lost.Store(true)
			logger.Error("dispatch lock lost mid-pass")
			return
		case err != nil && ctx.Err() == nil:
			logger.Warn("extend dispatch lock", "error", err)
		}
	}
}

// dispatchRun returns the metrics outcome of the run, or "" when another
// dispatcher closed it first.
func (e *Engine) dispatchRun(ctx context.Context, run *domain.SendRun, now time.Time) (string, error) {
	is, err := e.repo.GetIssue(ctx, run.IssueID)
	if err != nil {
		return "", fmt.Errorf("load issue: %w", err)
	}

	if !is.IsPublished() {
		ok, err := e.repo.CancelRun(ctx, run, now)
		if err != nil {
			return "", fmt.Errorf("cancel run: %w", err)
		}
		if !ok {
			return "", nil
		}
		e.metrics.RunFinished(metrics.OutcomeCancelled)
		audit.Emit(ctx, e.audit, audit.Event{
			Actor:      domain.ServiceActor,
			Action:     audit.ActionSendCancel,
			TargetType: audit.TargetSendRun,
			Metadata:   map[string]any{"issueId": is.ID, "runId": run.ID, "status": string(is.Status)},
		})
		logger.Warn("send run cancelled, issue no longer published", "run_id", run.ID, "issue_id", is.ID)
		return metrics.OutcomeCancelled, nil
	}

	subs, err := e.subs.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("load subscribers: %w", err)
	}
	md, err := e.exporter.Export(ctx, is.ID, e.composer.BaseURL())
	if err != nil {
		return "", fmt.Errorf("export issue: %w", err)
	}
	prepared, err := e.composer.Prepare(is, md)
	if err != nil {
		return "", err
	}

	events := make([]domain.DeliveryEvent, len(subs))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range subs {
		i := i
		sub := subs[i]
		g.Go(func() error {
			if e.lost.Load() {
				return ErrLockLost
			}
			events[i] = e.deliver(ctx, run.ID, &sub, prepared, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("send run abandoned, left pending", "run_id", run.ID, "error", err)
		return "", err
	}

	var tally domain.RunTally
	for _, ev := range events {
		tally.Attempted++
		if ev.EventType == domain.EventDelivered {
			tally.Sent++
		} else {
			tally.Bounced++
		}
	}

	ok, err := e.repo.CompleteRun(ctx, run, events, tally, now)
	if err != nil {
		return "", fmt.Errorf("complete run: %w", err)
	}
	if !ok {
		logger.Warn("send run already closed by another dispatcher", "run_id", run.ID)
		return "", nil
	}

	e.metrics.RunFinished(metrics.OutcomeSent)
	for _, ev := range events {
		e.metrics.Delivered(string(ev.EventType))
	}
	audit.Emit(ctx, e.audit, audit.Event{
		Actor:      domain.ServiceActor,
		Action:     audit.ActionSendDispatch,
		TargetType: audit.TargetSendRun,
		Metadata: map[string]any{
			"issueId":   is.ID,
			"runId":     run.ID,
			"attempted": tally.Attempted,
			"sent":      tally.Sent,
			"bounced":   tally.Bounced,
			"provider":  e.sender.Name(),
		},
	})

	if e.archive != nil {
		loc, err := e.archive.Archive(ctx, is.ID, run.ID, []byte(md))
		if err != nil {
			logger.Warn("archive send run failed", "run_id", run.ID, "error", err)
		} else {
			logger.Debug("send run archived", "run_id", run.ID, "location", loc)
		}
	}

	logger.Info("send run complete",
		"run_id", run.ID,
		"issue_id", is.ID,
		"attempted", tally.Attempted,
		"sent", tally.Sent,
		"bounced", tally.Bounced,
	)
	return metrics.OutcomeSent, nil
}

// deliver sends to one subscriber and always yields exactly one event.
func (e *Engine) deliver(ctx context.Context, runID string, sub *domain.Subscriber, p *render.Prepared, now time.Time) domain.DeliveryEvent {
	ev := domain.DeliveryEvent{
		ID:        uuid.NewString(),
		RunID:     runID,
		Email:     sub.Email,
		EventType: domain.EventDelivered,
		CreatedAt: now,
	}
	if err := e.send(ctx, sub, p); err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "send_failed"
		}
		ev.EventType = domain.EventBounced
		ev.ErrorMessage = msg
		logger.Warn("newsletter send bounced", "run_id", runID, "email", sub.Email, "error", msg)
	}
	return ev
}

func (e *Engine) send(ctx context.Context, sub *domain.Subscriber, p *render.Prepared) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	msg, err := p.Message(sub.Email, e.tokens.Issue(sub.ID, sub.UnsubscribeSeed))
	if err != nil {
		return err
	}
	_, err = e.sender.Send(ctx, msg)
	return err
}
