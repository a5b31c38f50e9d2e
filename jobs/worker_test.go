package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursedesk/coursedesk/internal/audit"
)

type fakeWriter struct {
	entries []audit.Entry
	err     error
}

func (f *fakeWriter) Record(ctx context.Context, entry audit.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandlePermissionsReplacedTask(t *testing.T) {
	occurred := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	task, err := NewPermissionsReplacedTask(PermissionsReplacedPayload{
		RoleID:     7,
		Actor:      "u-1",
		Keys:       []string{"course:READ", "course:UPDATE"},
		OccurredAt: occurred,
	})
	require.NoError(t, err)

	writer := &fakeWriter{}
	handler := HandlePermissionsReplacedTask(writer, discardLogger())
	require.NoError(t, handler(context.Background(), task))

	require.Len(t, writer.entries, 1)
	entry := writer.entries[0]
	assert.Equal(t, "u-1", entry.Actor)
	assert.Equal(t, "permissions.replaced", entry.Action)
	assert.Equal(t, "role", entry.Entity)
	assert.Equal(t, "7", entry.EntityID)
	assert.Equal(t, occurred, entry.At)
	assert.Equal(t, []string{"course:READ", "course:UPDATE"}, entry.Meta["keys"])
}

func TestHandlePermissionsReplacedTaskMalformedPayloadSkipsRetry(t *testing.T) {
	writer := &fakeWriter{}
	handler := HandlePermissionsReplacedTask(writer, discardLogger())

	err := handler(context.Background(), asynq.NewTask(TaskTypePermissionsReplaced, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, writer.entries)
}

func TestHandlePermissionsReplacedTaskWriteFailureRetries(t *testing.T) {
	task, err := NewPermissionsReplacedTask(PermissionsReplacedPayload{RoleID: 7, Actor: "u-1"})
	require.NoError(t, err)

	writer := &fakeWriter{err: errors.New("db down")}
	handler := HandlePermissionsReplacedTask(writer, discardLogger())

	err = handler(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
