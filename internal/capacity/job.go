package capacity

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job runs Assess on a cron schedule and, when enabled, AutoFix.
type Job struct {
	monitor  *Monitor
	schedule string
	autoFix  bool
	timeout  time.Duration
	log      *slog.Logger
	cron     *cron.Cron
}

func NewJob(m *Monitor, schedule string, autoFix bool, log *slog.Logger) *Job {
	if log == nil {
		log = slog.Default()
	}
	return &Job{monitor: m, schedule: schedule, autoFix: autoFix, timeout: 2 * time.Minute, log: log}
}

// Start registers the schedule and starts the cron runner.
func (j *Job) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(j.schedule, j.Run); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	j.log.Info("capacity job started", "schedule", j.schedule, "auto_fix", j.autoFix)
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (j *Job) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (j *Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	st, err := j.monitor.Assess(ctx)
	if err != nil {
		j.log.Error("capacity assessment failed", "err", err)
		return
	}
	j.log.Info("capacity assessed", "due_today", st.DueToday, "target", st.Target, "overage", st.Overage)
	if !j.autoFix || !st.IsBloated {
		return
	}
	if _, err := j.monitor.AutoFix(ctx, ClassifyOptions{}, ""); err != nil {
		j.log.Error("capacity auto-fix failed", "err", err)
	}
}
