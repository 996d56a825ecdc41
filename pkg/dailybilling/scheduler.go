package dailybilling

import (
	"context"
	"fmt"

	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Job is a unit of work the Scheduler triggers. *Runner is a Job.
type Job interface {
	Run(ctx context.Context) (*RunResult, error)
}

var _ Job = &Runner{}

const runSingleFlightKey = "daily-billing-run"

// Scheduler triggers a Job on a cron schedule and on demand. Triggers that
// arrive while a run is in progress wait for that run and share its result.
// Runs execute on the scheduler's own context, so a caller that gives up
// waiting does not cancel a run other callers joined.
type Scheduler struct {
	logger   log.FieldLogger
	job      Job
	schedule string
	cron     *cron.Cron
	group    singleflight.Group

	runCtx    context.Context
	cancelRun context.CancelFunc
}

func NewScheduler(logger log.FieldLogger, job Job, schedule string) (*Scheduler, error) {
	if _, err := cron.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %v", schedule, err)
	}
	runCtx, cancelRun := context.WithCancel(context.Background())
	return &Scheduler{
		logger:    logger.WithField("component", "scheduler"),
		job:       job,
		schedule:  schedule,
		cron:      cron.New(),
		runCtx:    runCtx,
		cancelRun: cancelRun,
	}, nil
}

// Trigger runs the job now, or joins the run already in progress, and waits
// for it until ctx is done.
func (s *Scheduler) Trigger(ctx context.Context) (*RunResult, error) {
	ch := s.group.DoChan(runSingleFlightKey, func() (interface{}, error) {
		return s.job.Run(s.runCtx)
	})
	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debugf("joined a run already in progress")
		}
		result, _ := res.Val.(*RunResult)
		return result, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("stopped waiting for run: %w", ctx.Err())
	}
}

// Run starts the cron schedule and blocks until ctx is done. A run still in
// progress at that point is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.cancelRun()

	err := s.cron.AddFunc(s.schedule, func() {
		logger := s.logger.WithField("trigger", "cron")
		result, err := s.Trigger(ctx)
		if err != nil {
			logger.WithError(err).Errorf("scheduled run failed")
			return
		}
		logger.Infof("scheduled run finished with outcome %s", result.Outcome)
	})
	if err != nil {
		return fmt.Errorf("couldn't add run to scheduler: %v", err)
	}

	s.logger.Infof("scheduling runs with schedule %q", s.schedule)
	s.cron.Start()
	<-ctx.Done()
	s.cron.Stop()
	s.logger.Infof("scheduler stopped")
	return nil
}
