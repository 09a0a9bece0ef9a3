package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	jobmetrics "github.com/odyssey-erp/odyssey-hrm/internal/jobs"
)

type sessionStoreStub struct {
	calls   []SessionRefreshPayload
	updated int
	err     error
}

func (s *sessionStoreStub) RefreshUser(ctx context.Context, userID string, role access.Role, dept access.Department) (int, error) {
	s.calls = append(s.calls, SessionRefreshPayload{UserID: userID, Role: string(role), Department: string(dept)})
	return s.updated, s.err
}

func TestNewSessionRefreshTask(t *testing.T) {
	task, err := NewSessionRefreshTask("42", access.RoleManager, access.DeptSales)
	require.NoError(t, err)
	assert.Equal(t, TaskSessionRefresh, task.Type())

	var payload SessionRefreshPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, SessionRefreshPayload{UserID: "42", Role: "manager", Department: "sales"}, payload)

	_, err = NewSessionRefreshTask("", access.RoleManager, access.DeptSales)
	assert.Error(t, err)
}

func TestSessionRefreshJobAppliesAssignment(t *testing.T) {
	store := &sessionStoreStub{updated: 2}
	job := NewSessionRefreshJob(store, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewSessionRefreshTask("42", access.RoleTeamLead, access.DeptHR)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, store.calls, 1)
	assert.Equal(t, "team_lead", store.calls[0].Role)
	assert.Equal(t, "hr", store.calls[0].Department)
}

func TestSessionRefreshJobSkipsRetryOnBadPayload(t *testing.T) {
	store := &sessionStoreStub{}
	job := NewSessionRefreshJob(store, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskSessionRefresh, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskSessionRefresh, []byte(`{"user_id":"","role":"manager"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, store.calls)
}

func TestSessionRefreshJobPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("redis down")
	job := NewSessionRefreshJob(&sessionStoreStub{err: boom}, nil, nil)

	task, err := NewSessionRefreshTask("42", access.RoleViewer, access.NoDepartment)
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHealthWithoutInspector(t *testing.T) {
	handler := NewHandler(nil, nil)
	rec := httptest.NewRecorder()
	handler.health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body.Queue)
}

type sweeperStub struct {
	removed int
	calls   int
}

func (s *sweeperStub) Sweep(ctx context.Context) (int, error) {
	s.calls++
	return s.removed, nil
}

func TestSessionSweepJob(t *testing.T) {
	sweeper := &sweeperStub{removed: 3}
	job := &SessionSweepJob{Sessions: sweeper}
	require.NoError(t, job.Handle(context.Background(), NewSessionSweepTask()))
	assert.Equal(t, 1, sweeper.calls)

	var missing *SessionSweepJob
	assert.Error(t, missing.Handle(context.Background(), NewSessionSweepTask()))
}
