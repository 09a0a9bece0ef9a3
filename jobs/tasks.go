package jobs

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionRefresh rewrites the live sessions of a user after an
	// assignment change.
	TaskSessionRefresh = "session:refresh"
)

// SessionRefreshPayload carries the assignment to apply.
type SessionRefreshPayload struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

// Validate checks the payload carries a user and a role.
func (p SessionRefreshPayload) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return errors.New("session refresh: user_id required")
	}
	if strings.TrimSpace(p.Role) == "" {
		return errors.New("session refresh: role required")
	}
	return nil
}

// NewSessionRefreshTask constructs an Asynq task.
func NewSessionRefreshTask(userID string, role access.Role, dept access.Department) (*asynq.Task, error) {
	payload := SessionRefreshPayload{UserID: userID, Role: string(role), Department: string(dept)}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionRefresh, data), nil
}

// TaskSessionSweep prunes session index entries whose sessions expired.
const TaskSessionSweep = "session:sweep"

// NewSessionSweepTask constructs the periodic sweep task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil)
}
