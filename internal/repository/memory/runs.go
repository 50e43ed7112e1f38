package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/brief/internal/domain"
)

// RunRepo implements schedule.Repository and dispatch.Repository.
type RunRepo struct{ s *Store }

func (r *RunRepo) GetIssue(_ context.Context, issueID string) (*domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	is, ok := r.s.issues[issueID]
	if !ok {
		return nil, domain.ErrIssueNotFound
	}
	return cloneIssue(is), nil
}

func (r *RunRepo) SchedulePending(_ context.Context, issueID string, at time.Time, check func(*domain.Issue) error, now time.Time) (*domain.SendRun, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	is, ok := r.s.issues[issueID]
	if !ok {
		return nil, false, domain.ErrIssueNotFound
	}
	if err := check(cloneIssue(is)); err != nil {
		return nil, false, err
	}

	at = at.UTC()
	is.ScheduledFor = &at
	is.UpdatedAt = now

	if run := r.pending(issueID); run != nil {
		run.ScheduledFor = at
		run.UpdatedAt = now
		return cloneRun(run), false, nil
	}

	run := &domain.SendRun{
		ID:           uuid.NewString(),
		IssueID:      issueID,
		ScheduledFor: at,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.s.runs[run.ID] = run
	r.s.stamp(run.ID)
	return cloneRun(run), true, nil
}

// pending returns the issue's unsent run. Callers hold s.mu.
func (r *RunRepo) pending(issueID string) *domain.SendRun {
	for _, run := range r.s.runs {
		if run.IssueID == issueID && run.SentAt == nil {
			return run
		}
	}
	return nil
}

func (r *RunRepo) ListRuns(_ context.Context, issueID string) ([]domain.SendRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.issues[issueID]; !ok {
		return nil, domain.ErrIssueNotFound
	}
	var ids []string
	for id, run := range r.s.runs {
		if run.IssueID == issueID {
			ids = append(ids, id)
		}
	}
	r.s.sortByCreated(ids)
	out := make([]domain.SendRun, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *cloneRun(r.s.runs[ids[i]]))
	}
	return out, nil
}

func (r *RunRepo) DueRuns(_ context.Context, now time.Time, limit int) ([]domain.SendRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.SendRun
	for _, run := range r.s.runs {
		if run.SentAt == nil && !run.ScheduledFor.After(now) {
			out = append(out, *cloneRun(run))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledFor.Equal(out[j].ScheduledFor) {
			return out[i].ScheduledFor.Before(out[j].ScheduledFor)
		}
		return r.s.created[out[i].ID] < r.s.created[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RunRepo) CancelRun(ctx context.Context, run *domain.SendRun, now time.Time) (bool, error) {
	return r.CompleteRun(ctx, run, nil, domain.RunTally{}, now)
}

func (r *RunRepo) CompleteRun(_ context.Context, run *domain.SendRun, events []domain.DeliveryEvent, tally domain.RunTally, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.runs[run.ID]
	if !ok {
		return false, domain.ErrRunNotFound
	}
	if cur.SentAt != nil {
		return false, nil
	}

	r.s.events = append(r.s.events, events...)
	sent := now
	cur.SentAt = &sent
	cur.AttemptedCount = tally.Attempted
	cur.SentCount = tally.Sent
	cur.BouncedCount = tally.Bounced
	cur.UpdatedAt = now

	if is, ok := r.s.issues[cur.IssueID]; ok {
		is.ScheduledFor = nil
		is.UpdatedAt = now
	}
	return true, nil
}

// Run returns a run by id.
func (r *RunRepo) Run(_ context.Context, id string) (*domain.SendRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return cloneRun(run), nil
}
