package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/price-intel/internal/extract"
	"github.com/joseph-ayodele/price-intel/internal/ingest"
)

type stubProcessor struct {
	release chan struct{}
	err     error
}

func (s *stubProcessor) ProcessBatch(_ context.Context, docs []extract.Document, _ string) (ingest.BatchResult, error) {
	if s.release != nil {
		<-s.release
	}
	return ingest.BatchResult{RunID: "run", Succeeded: len(docs)}, s.err
}

func TestProcessorQueue_RunsJobsAndReportsStatus(t *testing.T) {
	var mu sync.Mutex
	var done []ingest.BatchResult
	q := NewProcessorQueue(&stubProcessor{}, nil, WithWorkers(1), WithOnDone(func(_ context.Context, r ingest.BatchResult) {
		mu.Lock()
		defer mu.Unlock()
		done = append(done, r)
	}))

	id, err := q.Enqueue(context.Background(), Job{Documents: make([]extract.Document, 3)})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	st, ok := q.Status(id)
	require.True(t, ok)
	assert.Equal(t, JobDone, st.State)
	require.NotNil(t, st.Result)
	assert.Equal(t, 3, st.Result.Succeeded)
	require.NotNil(t, st.FinishedAt)

	mu.Lock()
	assert.Len(t, done, 1)
	mu.Unlock()

	_, err = q.Enqueue(context.Background(), Job{})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestProcessorQueue_FullAndFailed(t *testing.T) {
	proc := &stubProcessor{release: make(chan struct{}), err: errors.New("cancelled")}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	first, err := q.Enqueue(context.Background(), Job{})
	require.NoError(t, err)
	// wait until the worker has taken the first job off the channel
	require.Eventually(t, func() bool {
		st, _ := q.Status(first)
		return st.State == JobRunning
	}, time.Second, 5*time.Millisecond)

	_, err = q.Enqueue(context.Background(), Job{})
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), Job{})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(proc.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	st, _ := q.Status(first)
	assert.Equal(t, JobFailed, st.State)
	assert.Equal(t, "cancelled", st.Error)
}

func TestProcessorQueue_PrunesFinishedStatuses(t *testing.T) {
	var mu sync.Mutex
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	q := NewProcessorQueue(&stubProcessor{}, nil, WithWorkers(1), WithRetention(time.Hour))
	q.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(d)
	}

	id, err := q.Enqueue(context.Background(), Job{})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, _ := q.Status(id)
		return st.State == JobDone
	}, 2*time.Second, 5*time.Millisecond)

	advance(59 * time.Minute)
	_, ok := q.Status(id)
	assert.True(t, ok, "still inside the retention window")

	advance(2 * time.Minute)
	_, ok = q.Status(id)
	assert.False(t, ok, "finished job pruned after retention")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Shutdown(ctx)
}
