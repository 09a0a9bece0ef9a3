package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	jobmetrics "github.com/odyssey-erp/odyssey-hrm/internal/jobs"
)

const sessionRefreshJob = "session_refresh"

// SessionStore rewrites live sessions; implemented by shared.SessionManager.
type SessionStore interface {
	RefreshUser(ctx context.Context, userID string, role access.Role, dept access.Department) (int, error)
}

// SessionRefreshJob applies assignment changes to live sessions.
type SessionRefreshJob struct {
	Sessions SessionStore
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewSessionRefreshJob wires dependencies for the refresh handler.
func NewSessionRefreshJob(sessions SessionStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionRefreshJob {
	return &SessionRefreshJob{Sessions: sessions, Logger: logger, Metrics: metrics}
}

// Handle processes TaskSessionRefresh tasks.
func (j *SessionRefreshJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sessions == nil {
		return errors.New("session refresh: handler not configured")
	}
	var payload SessionRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("session refresh: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(sessionRefreshJob)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("user_id", payload.UserID))
	updated, err := j.Sessions.RefreshUser(ctx, payload.UserID, access.Role(payload.Role), access.Department(payload.Department))
	if err != nil {
		logger.Error("session refresh failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddSessions(sessionRefreshJob, updated)
	logger.Info("sessions refreshed",
		slog.Int("sessions", updated),
		slog.String("role", payload.Role),
		slog.String("department", payload.Department))
	return nil
}

func (j *SessionRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

const sessionSweepJob = "session_sweep"

// SessionSweeper prunes dangling session index entries.
type SessionSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SessionSweepJob runs SessionSweeper on a schedule.
type SessionSweepJob struct {
	Sessions SessionSweeper
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// Handle processes TaskSessionSweep tasks.
func (j *SessionSweepJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Sessions == nil {
		return errors.New("session sweep: handler not configured")
	}
	tracker := j.Metrics.Track(sessionSweepJob)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	removed, err := j.Sessions.Sweep(ctx)
	if err != nil {
		return err
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("session index swept", slog.Int("removed", removed))
	return nil
}
