package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypePermissionsReplaced records a full replacement of a role's
	// permission set in the audit trail.
	TaskTypePermissionsReplaced = "rbac:permissions_replaced"
)

// PermissionsReplacedPayload describes one permission-set replacement.
type PermissionsReplacedPayload struct {
	RoleID     int64     `json:"roleId"`
	Actor      string    `json:"actor"`
	Keys       []string  `json:"keys"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewPermissionsReplacedTask constructs an Asynq task.
func NewPermissionsReplacedTask(payload PermissionsReplacedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePermissionsReplaced, data), nil
}

// Enqueuer submits audit events to the queue. It satisfies the RBAC
// service's AuditEnqueuer port.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Enqueuer.
func NewEnqueuer(redisOpts asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(redisOpts)}
}

// PermissionsReplaced queues an audit record for a permission-set change.
func (e *Enqueuer) PermissionsReplaced(ctx context.Context, roleID int64, actor string, keys []string) error {
	task, err := NewPermissionsReplacedTask(PermissionsReplacedPayload{
		RoleID:     roleID,
		Actor:      actor,
		Keys:       keys,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
