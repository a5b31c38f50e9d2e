package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/coursedesk/coursedesk/internal/audit"
)

// AuditWriter persists audit entries. Satisfied by audit.Recorder.
type AuditWriter interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// HandlePermissionsReplacedTask writes a queued permission-change event into
// the audit log.
func HandlePermissionsReplacedTask(writer AuditWriter, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PermissionsReplacedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		err := writer.Record(ctx, audit.Entry{
			Actor:    payload.Actor,
			Action:   "permissions.replaced",
			Entity:   "role",
			EntityID: strconv.FormatInt(payload.RoleID, 10),
			Meta:     map[string]any{"keys": payload.Keys},
			At:       payload.OccurredAt,
		})
		if err != nil {
			logger.Error("record permission audit entry",
				slog.Int64("role_id", payload.RoleID), slog.Any("error", err))
		}
		return err
	}
}

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Audit     AuditWriter
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Audit == nil {
		return nil, errors.New("worker: audit writer required")
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePermissionsReplaced, HandlePermissionsReplacedTask(cfg.Audit, cfg.Logger))
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
