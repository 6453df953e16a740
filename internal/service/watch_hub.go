package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"medqueue-portal/pkg/metrics"

	"github.com/sirupsen/logrus"
)

var ErrWatchHubClosed = errors.New("watch hub closed")

const (
	defaultPollInterval = 3 * time.Second
	defaultIdleTimeout  = 2 * time.Minute
	connectionLostText  = "Connection lost. Retrying..."
)

// FetchFunc loads the current data of a polling screen.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Snapshot is the last known state of a watched screen. Data keeps the last
// successful result while the connection is lost.
type Snapshot struct {
	Data           interface{} `json:"data"`
	UpdatedAt      *time.Time  `json:"updated_at"`
	ConnectionLost bool        `json:"connection_lost"`
	Error          string      `json:"error,omitempty"`
}

type WatchHubConfig struct {
	PollInterval time.Duration
	IdleTimeout  time.Duration
	// ReapInterval defaults to half the idle timeout.
	ReapInterval time.Duration
}

// WatchHub owns the pollers of all sessions. A watch is keyed by session and
// screen; it starts on the first Attach and ends on Stop, StopSession, idle
// timeout or Close.
type WatchHub struct {
	cfg     WatchHubConfig
	log     *logrus.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	watches map[watchKey]*watch

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

type watchKey struct {
	sessionID string
	screen    string
}

type watch struct {
	key      watchKey
	poller   *Poller
	ready    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	lastSeen atomic.Int64

	mu       sync.RWMutex
	snapshot Snapshot
}

func NewWatchHub(cfg WatchHubConfig, log *logrus.Logger, m *metrics.Metrics) *WatchHub {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = cfg.IdleTimeout / 2
	}
	h := &WatchHub{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		watches:  make(map[watchKey]*watch),
		stopChan: make(chan struct{}),
	}

	h.wg.Add(1)
	go h.reapLoop()

	return h
}

// Attach returns the snapshot of the session's watch on screen, starting the
// watch if needed. A new watch blocks until its first poll completes or ctx
// is done. A watch stopped before its first poll returns an empty snapshot.
func (h *WatchHub) Attach(ctx context.Context, sessionID, screen string, fetch FetchFunc) (Snapshot, error) {
	key := watchKey{sessionID: sessionID, screen: screen}

	h.mu.Lock()
	if h.stopped.Load() {
		h.mu.Unlock()
		return Snapshot{}, ErrWatchHubClosed
	}
	w, ok := h.watches[key]
	if !ok {
		w = &watch{key: key, ready: make(chan struct{}), done: make(chan struct{})}
		w.poller = NewPoller(screen, h.cfg.PollInterval, h.cfg.PollInterval, w.pollWith(fetch, h.log), h.log, h.metrics)
		h.watches[key] = w
		h.metrics.WatchStarted(screen)
		h.log.Debugf("Watch started: session=%s, screen=%s", sessionID, screen)
	}
	w.touch()
	h.mu.Unlock()

	if !ok {
		w.poller.Start()
	}

	select {
	case <-w.ready:
	case <-w.done:
		if h.stopped.Load() {
			return Snapshot{}, ErrWatchHubClosed
		}
	case <-ctx.Done():
	}
	return w.current(), nil
}

// Peek returns the snapshot of a running watch without starting one.
func (h *WatchHub) Peek(sessionID, screen string) (Snapshot, bool) {
	h.mu.Lock()
	w, ok := h.watches[watchKey{sessionID: sessionID, screen: screen}]
	h.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	w.touch()
	return w.current(), true
}

// Stop ends one watch. It reports whether the watch existed.
func (h *WatchHub) Stop(sessionID, screen string) bool {
	key := watchKey{sessionID: sessionID, screen: screen}
	h.mu.Lock()
	w, ok := h.watches[key]
	delete(h.watches, key)
	h.mu.Unlock()

	if ok {
		h.stopWatch(w)
	}
	return ok
}

// StopSession ends every watch of a session and returns how many ran.
func (h *WatchHub) StopSession(sessionID string) int {
	var victims []*watch
	h.mu.Lock()
	for key, w := range h.watches {
		if key.sessionID == sessionID {
			victims = append(victims, w)
			delete(h.watches, key)
		}
	}
	h.mu.Unlock()

	for _, w := range victims {
		h.stopWatch(w)
	}
	return len(victims)
}

// Active returns the number of running watches.
func (h *WatchHub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watches)
}

// Close stops the reaper and all watches. Safe to call multiple times.
func (h *WatchHub) Close() {
	if !h.stopped.CompareAndSwap(false, true) {
		return
	}
	close(h.stopChan)
	h.wg.Wait()

	h.mu.Lock()
	all := make([]*watch, 0, len(h.watches))
	for key, w := range h.watches {
		all = append(all, w)
		delete(h.watches, key)
	}
	h.mu.Unlock()

	for _, w := range all {
		h.stopWatch(w)
	}
	h.log.Info("WatchHub stopped")
}

func (h *WatchHub) stopWatch(w *watch) {
	w.stopOnce.Do(func() { close(w.done) })
	w.poller.Stop()
	h.metrics.WatchStopped(w.key.screen)
	h.log.Debugf("Watch stopped: session=%s, screen=%s", w.key.sessionID, w.key.screen)
}

func (h *WatchHub) reapLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case <-ticker.C:
			h.reapIdle(time.Now())
		}
	}
}

// reapIdle stops watches nobody attached to within the idle timeout.
func (h *WatchHub) reapIdle(now time.Time) int {
	cutoff := now.Add(-h.cfg.IdleTimeout).UnixNano()
	var idle []*watch

	h.mu.Lock()
	for key, w := range h.watches {
		if w.lastSeen.Load() < cutoff {
			idle = append(idle, w)
			delete(h.watches, key)
		}
	}
	h.mu.Unlock()

	for _, w := range idle {
		h.stopWatch(w)
	}
	if len(idle) > 0 {
		h.log.Debugf("Reaped %d idle watches", len(idle))
	}
	return len(idle)
}

func (w *watch) touch() {
	w.lastSeen.Store(time.Now().UnixNano())
}

func (w *watch) current() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

func (w *watch) pollWith(fetch FetchFunc, log *logrus.Logger) PollFunc {
	var readyOnce sync.Once
	return func(ctx context.Context) error {
		defer readyOnce.Do(func() { close(w.ready) })

		data, err := fetch(ctx)
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return err
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if err != nil {
			log.Warnf("Failed to refresh %s for session %s: %+v", w.key.screen, w.key.sessionID, err)
			w.snapshot.ConnectionLost = true
			w.snapshot.Error = connectionLostText
			return err
		}
		now := time.Now()
		w.snapshot = Snapshot{Data: data, UpdatedAt: &now}
		return nil
	}
}
