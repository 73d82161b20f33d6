package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PNikhileswar/neurapress/internal/core"
	"github.com/PNikhileswar/neurapress/internal/tasks"
	"github.com/PNikhileswar/neurapress/pkg/constants"
	"github.com/PNikhileswar/neurapress/pkg/db/objects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	runs  *atomic.Int32
	err   error
	block chan struct{}
	panic bool
}

func (t *countingTask) Identifier() string { return "test:counting" }

func (t *countingTask) Run(ctx context.Context, _ map[string]any) error {
	t.runs.Add(1)
	if t.block != nil {
		<-t.block
	}
	if t.panic {
		panic("boom")
	}
	return t.err
}

type memLogs struct {
	mu      sync.Mutex
	created []*objects.JobLog
	updated []objects.JobLog
}

func (m *memLogs) CreateLog(_ context.Context, l *objects.JobLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, l)
	return nil
}

func (m *memLogs) UpdateLog(_ context.Context, l *objects.JobLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, *l)
	return nil
}

func register(name string, task *countingTask) {
	tasks.Register(name, func(*core.Env) core.Task { return task })
}

func TestAddJob_UnknownTask(t *testing.T) {
	s := NewScheduler(&core.Env{})
	assert.Error(t, s.AddJob("@every 1m", "test:nope", "nope", nil, string(constants.TaskTypeYAML)))
}

func TestAddJob_BadCron(t *testing.T) {
	register("test:badcron", &countingTask{runs: new(atomic.Int32)})
	s := NewScheduler(&core.Env{})
	assert.Error(t, s.AddJob("not a cron", "test:badcron", "badcron", nil, string(constants.TaskTypeYAML)))
	_, ok := s.Stats.Get("badcron")
	assert.False(t, ok)
}

func TestRunNow_RecordsStatsAndLogs(t *testing.T) {
	task := &countingTask{runs: new(atomic.Int32)}
	register("test:ok", task)
	logs := &memLogs{}
	s := NewScheduler(&core.Env{}, WithJobLogs(logs))
	require.NoError(t, s.AddJob("@every 1h", "test:ok", "ok-job", nil, string(constants.TaskTypeAPI)))

	require.NoError(t, s.RunNow("ok-job"))

	st, ok := s.Stats.Get("ok-job")
	require.True(t, ok)
	assert.Equal(t, constants.JobStatusIdle, st.Status)
	assert.Equal(t, "Success", st.LastResult)
	assert.EqualValues(t, 1, st.RunCount)
	assert.Equal(t, "test:ok", st.Task)

	require.Len(t, logs.created, 1)
	require.Len(t, logs.updated, 1)
	assert.Equal(t, "API", logs.created[0].Source)
	assert.Equal(t, objects.JobStatusSuccess, logs.updated[0].Status)
	assert.NotNil(t, logs.updated[0].EndTime)
}

func TestRunNow_FailureAndPanic(t *testing.T) {
	register("test:fail", &countingTask{runs: new(atomic.Int32), err: errors.New("upstream 500")})
	register("test:panic", &countingTask{runs: new(atomic.Int32), panic: true})
	logs := &memLogs{}
	s := NewScheduler(&core.Env{}, WithJobLogs(logs))
	require.NoError(t, s.AddJob("@every 1h", "test:fail", "fail-job", nil, "YAML"))
	require.NoError(t, s.AddJob("@every 1h", "test:panic", "panic-job", nil, "YAML"))

	assert.ErrorContains(t, s.RunNow("fail-job"), "upstream 500")
	assert.ErrorContains(t, s.RunNow("panic-job"), "panic: boom")

	st, _ := s.Stats.Get("fail-job")
	assert.Equal(t, constants.JobStatusError, st.Status)
	assert.Equal(t, "Error: upstream 500", st.LastResult)
	assert.Equal(t, objects.JobStatusFailed, logs.updated[0].Status)
	assert.Equal(t, "upstream 500", logs.updated[0].ErrorMsg)

	assert.ErrorIs(t, s.RunNow("missing"), ErrJobNotFound)
	assert.ErrorIs(t, s.ManualRun("missing"), ErrJobNotFound)
}

func TestManualRun_SkipsWhileRunning(t *testing.T) {
	task := &countingTask{runs: new(atomic.Int32), block: make(chan struct{})}
	register("test:slow", task)
	s := NewScheduler(&core.Env{})
	require.NoError(t, s.AddJob("@every 1h", "test:slow", "slow", nil, "API"))

	require.NoError(t, s.ManualRun("slow"))
	assert.Eventually(t, func() bool { return task.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.RunNow("slow"), ErrJobRunning)
	assert.ErrorIs(t, s.ManualRun("slow"), ErrJobRunning)
	st, _ := s.Stats.Get("slow")
	assert.Equal(t, constants.JobStatusRunning, st.Status)

	close(task.block)
	s.Stop()
	assert.EqualValues(t, 1, task.runs.Load())
	st, _ = s.Stats.Get("slow")
	assert.Equal(t, constants.JobStatusIdle, st.Status)
}

func TestStatsSortedCopies(t *testing.T) {
	m := NewStatManager()
	m.Set("b", &JobStats{Name: "b"})
	m.Set("a", &JobStats{Name: "a"})

	all := m.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)

	all[0].Status = "mutated"
	st, _ := m.Get("a")
	assert.Empty(t, st.Status)
	assert.False(t, m.Update("zzz", func(*JobStats) {}))
}
