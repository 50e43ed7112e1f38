// Package schedule books delivery of a published issue.
//
// Each issue has at most one pending send run (sent_at IS NULL). Scheduling
// again before dispatch moves that run instead of stacking a second one, so
// repeated scheduling calls never produce duplicate sends.
package schedule
