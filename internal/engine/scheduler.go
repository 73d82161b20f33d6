package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PNikhileswar/neurapress/internal/core"
	"github.com/PNikhileswar/neurapress/internal/tasks"
	"github.com/PNikhileswar/neurapress/pkg/constants"
	"github.com/PNikhileswar/neurapress/pkg/db/objects"
	"github.com/PNikhileswar/neurapress/pkg/logger"
	"github.com/PNikhileswar/neurapress/pkg/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultJobTimeout = 30 * time.Minute

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobRunning  = errors.New("job already running")
)

// JobLogStore 运行日志持久化，*repo.JobLogRepo 实现
type JobLogStore interface {
	CreateLog(ctx context.Context, log *objects.JobLog) error
	UpdateLog(ctx context.Context, log *objects.JobLog) error
}

type registeredJob struct {
	task   core.Task
	params map[string]any
	mu     sync.Mutex // 同一任务不并发执行
}

type Scheduler struct {
	cron    *cron.Cron
	Stats   *StatManager
	env     *core.Env
	logs    JobLogStore
	timeout time.Duration
	now     utils.Clock
	wg      sync.WaitGroup

	mu         sync.RWMutex
	registered map[string]*registeredJob
	entries    map[string]cron.EntryID
}

type Option func(*Scheduler)

// WithJobLogs 每次运行写一条 job_logs
func WithJobLogs(store JobLogStore) Option {
	return func(s *Scheduler) { s.logs = store }
}

func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewScheduler(env *core.Env, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{})),
		Stats:      NewStatManager(),
		env:        env,
		timeout:    DefaultJobTimeout,
		now:        utils.Now,
		registered: make(map[string]*registeredJob),
		entries:    make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob 添加任务，uniqueJobName 已存在时替换原任务
func (s *Scheduler) AddJob(cronExpr, taskName, uniqueJobName string, params map[string]any, source string) error {
	// 1. 获取任务实现
	taskInstance, err := tasks.GetTask(taskName, s.env)
	if err != nil {
		return err
	}

	job := &registeredJob{task: taskInstance, params: params}

	// 2. 包装执行逻辑，上一次还没跑完时跳过
	entryID, err := s.cron.AddFunc(cronExpr, func() {
		if err := s.run(uniqueJobName, job); errors.Is(err, ErrJobRunning) {
			logger.Warn("⏭️ [Schedule] Previous run still active, skipping", zap.String("job", uniqueJobName))
		}
	})
	if err != nil {
		return fmt.Errorf("add job %s: %w", uniqueJobName, err)
	}

	s.mu.Lock()
	if old, ok := s.entries[uniqueJobName]; ok {
		s.cron.Remove(old)
	}
	s.registered[uniqueJobName] = job
	s.entries[uniqueJobName] = entryID
	s.mu.Unlock()

	// 3. 初始化状态
	next := s.cron.Entry(entryID).Next
	s.Stats.Set(uniqueJobName, &JobStats{
		Name:        uniqueJobName,
		Task:        taskName,
		CronExpr:    cronExpr,
		Status:      constants.JobStatusIdle,
		LastResult:  "Pending",
		Source:      source,
		rawNext:     next,
		NextRunTime: formatTime(next),
	})
	return nil
}

// run 执行并记录状态，上一次还没结束时返回 ErrJobRunning
func (s *Scheduler) run(name string, job *registeredJob) error {
	if !job.mu.TryLock() {
		return ErrJobRunning
	}
	defer job.mu.Unlock()
	return s.runLocked(name, job)
}

// runLocked 调用方已持有 job.mu
func (s *Scheduler) runLocked(name string, job *registeredJob) error {
	start := s.now()
	s.Stats.Update(name, func(st *JobStats) {
		st.Status = constants.JobStatusRunning
		st.LastRunTime = formatTime(start)
		st.RunCount++
	})
	logger.Info("🚀 [Schedule] Starting job", zap.String("job", name))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	runLog := s.startLog(ctx, name, start)
	err := s.safeRun(ctx, job)
	end := s.now()
	s.finishLog(ctx, runLog, end, err)

	var next time.Time
	s.mu.RLock()
	if id, ok := s.entries[name]; ok {
		next = s.cron.Entry(id).Next
	}
	s.mu.RUnlock()

	s.Stats.Update(name, func(st *JobStats) {
		if err != nil {
			st.LastResult = fmt.Sprintf("Error: %v", err)
			st.Status = constants.JobStatusError
		} else {
			st.LastResult = "Success"
			st.Status = constants.JobStatusIdle
		}
		if !next.IsZero() {
			st.rawNext = next
			st.NextRunTime = formatTime(next)
		}
	})

	if err != nil {
		logger.Error("❌ [Schedule] Job failed", zap.String("job", name), zap.Duration("took", end.Sub(start)), zap.Error(err))
	} else {
		logger.Info("✅ [Schedule] Job finished", zap.String("job", name), zap.Duration("took", end.Sub(start)))
	}
	return err
}

// safeRun 任务 panic 不影响调度器
func (s *Scheduler) safeRun(ctx context.Context, job *registeredJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.task.Run(ctx, job.params)
}

func (s *Scheduler) startLog(ctx context.Context, name string, start time.Time) *objects.JobLog {
	if s.logs == nil {
		return nil
	}
	var source string
	if st, ok := s.Stats.Get(name); ok {
		source = st.Source
	}
	l := &objects.JobLog{JobName: name, Source: source, Status: objects.JobStatusRunning, StartTime: start}
	if err := s.logs.CreateLog(ctx, l); err != nil {
		logger.Warn("⚠️ [Schedule] create job log failed", zap.String("job", name), zap.Error(err))
		return nil
	}
	return l
}

func (s *Scheduler) finishLog(ctx context.Context, l *objects.JobLog, end time.Time, runErr error) {
	if l == nil {
		return
	}
	l.EndTime = &end
	l.DurationMs = end.Sub(l.StartTime).Milliseconds()
	l.Status = objects.JobStatusSuccess
	if runErr != nil {
		l.Status = objects.JobStatusFailed
		l.ErrorMsg = runErr.Error()
	}
	// 任务超时后 ctx 已失效，日志仍要写回
	if err := s.logs.UpdateLog(context.WithoutCancel(ctx), l); err != nil {
		logger.Warn("⚠️ [Schedule] update job log failed", zap.String("job", l.JobName), zap.Error(err))
	}
}

// ManualRun 手动触发，异步执行；已在运行时返回 ErrJobRunning
func (s *Scheduler) ManualRun(uniqueJobName string) error {
	s.mu.RLock()
	job, ok := s.registered[uniqueJobName]
	s.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	// 同步占锁，任务正在执行时直接返回 ErrJobRunning
	if !job.mu.TryLock() {
		return ErrJobRunning
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer job.mu.Unlock()
		_ = s.runLocked(uniqueJobName, job)
	}()
	return nil
}

// RunNow 同步执行，CLI 使用
func (s *Scheduler) RunNow(uniqueJobName string) error {
	s.mu.RLock()
	job, ok := s.registered[uniqueJobName]
	s.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.run(uniqueJobName, job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

// cronLogger 把 cron 内部日志转到 zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Logger.Sugar().Debugw("⏰ [Cron] "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Logger.Sugar().Errorw("⏰ [Cron] "+msg, append(keysAndValues, "error", err)...)
}
