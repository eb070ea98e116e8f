package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: DefaultQueue, Type: task.Type()}, nil
}

func TestClient_EnqueueExport(t *testing.T) {
	fake := &fakeEnqueuer{}
	c := newClient(fake, nil)
	requestedBy := uuid.New()

	id, err := c.EnqueueExport(context.Background(), requestedBy)
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)

	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TypeExportReservations, fake.tasks[0].Type())

	var payload ExportPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, requestedBy, payload.RequestedBy)
}

func TestClient_EnqueueExportError(t *testing.T) {
	c := newClient(&fakeEnqueuer{err: errors.New("redis down")}, nil)

	_, err := c.EnqueueExport(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "redis down")
	assert.NoError(t, c.Close())
}
