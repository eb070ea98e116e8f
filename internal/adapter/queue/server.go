package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *zap.Logger
}

func NewServer(redisAddr string, concurrency int, worker *Worker, log *zap.Logger) *Server {
	log = log.Named("asynq")

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				DefaultQueue: 10,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("task failed", zap.String("task_type", task.Type()), zap.Error(err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	worker.Register(mux)

	return &Server{server: server, mux: mux, log: log}
}

func (s *Server) Start() error {
	s.log.Info("starting asynq worker")
	return s.server.Start(s.mux)
}

func (s *Server) Shutdown() {
	s.log.Info("shutting down asynq worker")
	s.server.Shutdown()
}

// Scheduler enqueues the periodic notification tasks.
type Scheduler struct {
	scheduler *asynq.Scheduler
	log       *zap.Logger
}

func NewScheduler(redisAddr string, loc *time.Location, log *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: asynq.NewScheduler(asynq.RedisClientOpt{Addr: redisAddr}, &asynq.SchedulerOpts{Location: loc}),
		log:       log.Named("scheduler"),
	}
}

func (s *Scheduler) RegisterPeriodic(reminderCron, monthlyCron string) error {
	entries := []struct {
		cron     string
		taskType string
	}{
		{reminderCron, TypeParkingReminders},
		{monthlyCron, TypeMonthlyReport},
	}

	for _, e := range entries {
		id, err := s.scheduler.Register(e.cron, asynq.NewTask(e.taskType, nil), asynq.Queue(DefaultQueue))
		if err != nil {
			return fmt.Errorf("register %s (%q): %w", e.taskType, e.cron, err)
		}
		s.log.Info("periodic task registered", zap.String("task_type", e.taskType), zap.String("cron", e.cron), zap.String("entry_id", id))
	}

	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
