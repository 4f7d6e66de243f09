package worker

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/todys/internal/config"
	"github.com/dharsanguruparan/todys/internal/queue"
)

// RedisOpt builds the asynq connection options from cfg.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewServer returns an asynq server running cfg.ProcessingPool handlers
// concurrently.
func NewServer(cfg *config.Config, logger log.Logger) *asynq.Server {
	return asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.ProcessingPool,
		Logger:      asynqLogger{logger},
	})
}

// NewScheduler registers the periodic expiry sweep on cfg.ExpireSchedule.
func NewScheduler(cfg *config.Config, logger log.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(RedisOpt(cfg), &asynq.SchedulerOpts{
		Logger: asynqLogger{logger},
	})
	if _, err := scheduler.Register(cfg.ExpireSchedule, queue.NewExpireTask()); err != nil {
		return nil, fmt.Errorf("register expire schedule %q: %w", cfg.ExpireSchedule, err)
	}
	return scheduler, nil
}

// asynqLogger routes asynq's internal logging through go-kit.
type asynqLogger struct {
	logger log.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { level.Debug(l.logger).Log("msg", fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { level.Info(l.logger).Log("msg", fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { level.Warn(l.logger).Log("msg", fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { level.Error(l.logger).Log("msg", fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) {
	level.Error(l.logger).Log("msg", fmt.Sprint(args...), "fatal", true)
	os.Exit(1)
}
