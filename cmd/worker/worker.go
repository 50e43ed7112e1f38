package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ignite/brief/internal/app"
	"github.com/ignite/brief/internal/pkg/logger"
	"github.com/ignite/brief/internal/service/dispatch"
)

// passStatus is the outcome of the most recent dispatch pass.
type passStatus struct {
	At     time.Time       `json:"at"`
	Result dispatch.Result `json:"result"`
	Error  string          `json:"error,omitempty"`
}

type worker struct {
	app *app.App
	now func() time.Time

	mu   sync.RWMutex
	last *passStatus
}

func newWorker(a *app.App) *worker {
	return &worker{app: a, now: time.Now}
}

// start launches the dispatch loop, and the ingest loop when feeds are set.
// The returned group is done once both loops have seen ctx end and the
// in-flight pass has returned.
func (w *worker) start(ctx context.Context, every time.Duration, feeds []string, ingestEvery time.Duration) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.dispatchLoop(ctx, every)
	}()
	if len(feeds) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.ingestLoop(ctx, feeds, ingestEvery)
		}()
	}
	return &wg
}

// dispatchLoop runs one pass immediately and then on every tick until ctx is
// done.
func (w *worker) dispatchLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		w.dispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *worker) dispatchOnce(ctx context.Context) {
	now := w.now().UTC()
	res, err := w.app.Dispatch.DispatchDue(ctx, now, w.app.Config.Dispatch.BatchLimit)

	st := &passStatus{At: now, Result: res}
	switch {
	case errors.Is(err, context.Canceled):
		st.Error = err.Error()
		logger.Info("dispatch pass interrupted", "dispatched", res.Dispatched)
	case err != nil:
		st.Error = err.Error()
		logger.Error("dispatch pass failed", "error", err)
	default:
		logger.Info("dispatched", "count", res.Dispatched)
	}

	w.mu.Lock()
	w.last = st
	w.mu.Unlock()
}

func (w *worker) ingestLoop(ctx context.Context, feeds []string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		for _, u := range feeds {
			if _, err := w.app.Ingest.PollFeed(ctx, u); err != nil {
				logger.Warn("feed poll failed", "feed_url", u, "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *worker) status() *passStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}
