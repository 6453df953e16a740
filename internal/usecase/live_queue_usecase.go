package usecase

import (
	"context"
	"fmt"
	"math"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/domain/repository"
	"medqueue-portal/internal/service"

	"github.com/sirupsen/logrus"
)

const (
	ScreenLiveQueue   = "live_queue"
	ScreenDoctorQueue = "doctor_queue"

	etaReminderMinutes = 30
)

// Watcher is the watch hub as used by the polling screens.
type Watcher interface {
	Attach(ctx context.Context, sessionID, screen string, fetch service.FetchFunc) (service.Snapshot, error)
	Stop(sessionID, screen string) bool
}

// LiveQueueView is the patient's live queue with their own token
// highlighted.
type LiveQueueView struct {
	Queue       *entity.QueueStatus  `json:"queue"`
	OwnToken    entity.Token         `json:"own_token,omitempty"`
	OwnEntry    *entity.PendingToken `json:"own_entry,omitempty"`
	BeingServed bool                 `json:"being_served"`
}

// LiveQueueResult is one read of a patient polling screen.
type LiveQueueResult struct {
	service.Snapshot
	Notices []string `json:"notices,omitempty"`
}

type LiveQueueUsecase interface {
	LiveQueue(ctx context.Context, session *entity.Session) (*LiveQueueResult, error)
	DoctorQueue(ctx context.Context, session *entity.Session, doctorID entity.ID) (*LiveQueueResult, error)
	StopLiveQueue(ctx context.Context, sessionID string) bool
	StopDoctorQueue(ctx context.Context, sessionID string, doctorID entity.ID) bool
}

type liveQueueUsecase struct {
	log         *logrus.Logger
	registry    SessionRegistry
	sessionRepo repository.SessionRepository
	watcher     Watcher
	clock       TimeProvider
}

func NewLiveQueueUsecase(
	log *logrus.Logger,
	registry SessionRegistry,
	sessionRepo repository.SessionRepository,
	watcher Watcher,
	clock TimeProvider,
) LiveQueueUsecase {
	return &liveQueueUsecase{
		log:         log,
		registry:    registry,
		sessionRepo: sessionRepo,
		watcher:     watcher,
		clock:       clock,
	}
}

func (u *liveQueueUsecase) LiveQueue(ctx context.Context, session *entity.Session) (*LiveQueueResult, error) {
	scope := u.registry.Scope(session)
	sessionID := session.ID

	snapshot, err := u.watcher.Attach(ctx, sessionID, ScreenLiveQueue, func(ctx context.Context) (interface{}, error) {
		queue, err := scope.API.LiveQueue(ctx)
		if err != nil {
			return nil, err
		}
		return u.evaluate(ctx, sessionID, queue)
	})
	if err != nil {
		return nil, err
	}

	result := &LiveQueueResult{Snapshot: snapshot}
	_, err = u.sessionRepo.Update(ctx, sessionID, func(s *entity.Session) error {
		result.Notices = s.DrainNotices()
		return nil
	})
	if err != nil {
		// undelivered notices stay queued for the next read
		u.log.Warnf("Failed to drain notices of session %s: %+v", sessionID, err)
		result.Notices = nil
	}
	return result, nil
}

// evaluate highlights the session's own token and fires the one-shot
// notifications. Flags live in the session so they survive restarts and
// are shared by every replica.
func (u *liveQueueUsecase) evaluate(ctx context.Context, sessionID string, queue *entity.QueueStatus) (*LiveQueueView, error) {
	view := &LiveQueueView{Queue: queue}

	_, err := u.sessionRepo.Update(ctx, sessionID, func(s *entity.Session) error {
		view.OwnToken = s.OwnToken
		if s.OwnToken.IsZero() || queue == nil {
			return nil
		}

		if entry, ok := queue.FindPending(s.OwnToken); ok {
			view.OwnEntry = &entry
			if entry.ETAMinutes <= etaReminderMinutes && !s.Notified30Min {
				s.Notified30Min = true
				s.Notices = append(s.Notices, fmt.Sprintf("Reminder: Your token (%s) is expected in %s minutes.", s.OwnToken, formatMinutes(entry.ETAMinutes)))
			}
		}

		if queue.CurrentToken == s.OwnToken {
			view.BeingServed = true
			if !s.NotifiedNowServing {
				s.NotifiedNowServing = true
				s.Notices = append(s.Notices, fmt.Sprintf("Your token (%s) is now being served! Please proceed to the cabin.", s.OwnToken))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DoctorQueue polls the queue of one doctor for today. The watch is keyed by
// doctor so switching doctors starts a fresh watch.
func (u *liveQueueUsecase) DoctorQueue(ctx context.Context, session *entity.Session, doctorID entity.ID) (*LiveQueueResult, error) {
	scope := u.registry.Scope(session)

	snapshot, err := u.watcher.Attach(ctx, session.ID, doctorQueueScreen(doctorID), func(ctx context.Context) (interface{}, error) {
		return scope.API.QueueStatus(ctx, doctorID, formatDate(u.clock.Now()))
	})
	if err != nil {
		return nil, err
	}
	return &LiveQueueResult{Snapshot: snapshot}, nil
}

func (u *liveQueueUsecase) StopLiveQueue(ctx context.Context, sessionID string) bool {
	return u.watcher.Stop(sessionID, ScreenLiveQueue)
}

func (u *liveQueueUsecase) StopDoctorQueue(ctx context.Context, sessionID string, doctorID entity.ID) bool {
	return u.watcher.Stop(sessionID, doctorQueueScreen(doctorID))
}

func doctorQueueScreen(doctorID entity.ID) string {
	return ScreenDoctorQueue + ":" + doctorID.String()
}

func formatMinutes(m float64) string {
	if m == math.Trunc(m) {
		return fmt.Sprintf("%d", int(m))
	}
	return fmt.Sprintf("%.1f", m)
}
