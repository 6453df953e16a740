package service

import (
	"context"
	"sync"
	"time"

	"medqueue-portal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// PollFunc is one refresh of a polling screen.
type PollFunc func(ctx context.Context) error

// Poller runs a PollFunc immediately and then on a fixed interval. A tick
// that fires while the previous run is still in flight is skipped.
type Poller struct {
	screen  string
	fn      PollFunc
	timeout time.Duration
	log     *logrus.Logger
	metrics *metrics.Metrics

	cron   *cron.Cron
	job    cron.Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// skipLogger adapts logrus to cron.Logger and counts skipped ticks.
type skipLogger struct {
	screen  string
	log     *logrus.Logger
	metrics *metrics.Metrics
}

func (l skipLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.metrics.PollSkipped(l.screen)
		l.log.Debugf("Poll of %s skipped, previous run still in flight", l.screen)
	}
}

func (l skipLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorf("Poller %s: %s: %+v", l.screen, msg, err)
}

func NewPoller(screen string, interval, timeout time.Duration, fn PollFunc, log *logrus.Logger, m *metrics.Metrics) *Poller {
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	ctx, cancel := context.WithCancel(context.Background())
	logger := skipLogger{screen: screen, log: log, metrics: m}

	p := &Poller{
		screen:  screen,
		fn:      fn,
		timeout: timeout,
		log:     log,
		metrics: m,
		cron:    cron.New(cron.WithLogger(logger)),
		ctx:     ctx,
		cancel:  cancel,
	}
	p.job = cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(p.run))
	p.cron.Schedule(cron.Every(interval), p.job)
	return p
}

// Start runs the first poll and schedules the rest. It is a no-op once the
// poller was started or stopped.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.job.Run()
	}()
	p.cron.Start()
}

// Stop cancels the in-flight run and waits for it to return. Safe to call
// more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	<-p.cron.Stop().Done()
	p.wg.Wait()
}

func (p *Poller) run() {
	if p.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)
	p.metrics.PollRun(p.screen, err)
}
