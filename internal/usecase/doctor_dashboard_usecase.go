package usecase

import (
	"context"
	"errors"
	"fmt"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/domain/repository"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoNextPatient             = errors.New("no next patient")
	ErrNoActiveConsultation      = errors.New("no active consultation")
	ErrNoActivePatient           = errors.New("no active patient")
	ErrInvalidAvailabilityStatus = errors.New("invalid availability status")
)

const (
	ScreenDashboard = "dashboard"

	consultationCompletedNotes = "Consultation completed successfully."
	noShowNotes                = "Patient marked as no-show."
	defaultSpecialty           = "General Physician"
	busyQueueThreshold         = 5
)

var (
	dashboardQueueStatuses = []string{
		entity.AppointmentStatusWaiting,
		entity.AppointmentStatusInProgress,
		entity.AppointmentStatusScheduled,
		entity.AppointmentStatusConfirmed,
	}
	dashboardUpcomingStatuses = []string{
		entity.AppointmentStatusScheduled,
		entity.AppointmentStatusConfirmed,
	}
	callableStatuses = []string{
		entity.AppointmentStatusScheduled,
		entity.AppointmentStatusConfirmed,
		entity.AppointmentStatusWaiting,
	}
)

// ActionLocker serializes queue actions of one doctor.
type ActionLocker interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type DoctorHeader struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type DashboardView struct {
	Doctor          DoctorHeader              `json:"doctor"`
	Status          entity.AvailabilityStatus `json:"status"`
	Queue           []entity.Appointment      `json:"queue"`
	Upcoming        []entity.Appointment      `json:"upcoming"`
	Active          *entity.Appointment       `json:"active,omitempty"`
	QueueStats      *entity.QueueStatus       `json:"queue_stats,omitempty"`
	TooManyPatients bool                      `json:"too_many_patients"`
}

// DashboardActionResult is returned by consultation actions. Next is the
// appointment that was called in automatically, if any. Warning is set when
// the action went through but View could not be refreshed.
type DashboardActionResult struct {
	Message string              `json:"message"`
	Next    *entity.Appointment `json:"next,omitempty"`
	View    *DashboardView      `json:"view"`
	Warning string              `json:"warning,omitempty"`
}

const staleViewWarning = "Action completed, but the dashboard could not be refreshed."

type DoctorDashboardUsecase interface {
	Watch(ctx context.Context, session *entity.Session) (*service.Snapshot, error)
	StopWatch(ctx context.Context, sessionID string) bool
	GetDashboard(ctx context.Context, session *entity.Session) (*DashboardView, error)
	CallNext(ctx context.Context, session *entity.Session) (*DashboardActionResult, error)
	EndConsultation(ctx context.Context, session *entity.Session) (*DashboardActionResult, error)
	MarkNoShow(ctx context.Context, session *entity.Session) (*DashboardActionResult, error)
	SetAvailability(ctx context.Context, session *entity.Session, status entity.AvailabilityStatus) (*DashboardView, error)
	PauseTokens(ctx context.Context, session *entity.Session) (*DashboardActionResult, error)
}

type doctorDashboardUsecase struct {
	log         *logrus.Logger
	registry    SessionRegistry
	sessionRepo repository.SessionRepository
	watcher     Watcher
	locker      ActionLocker
	audit       service.AuditService
	clock       TimeProvider
}

func NewDoctorDashboardUsecase(
	log *logrus.Logger,
	registry SessionRegistry,
	sessionRepo repository.SessionRepository,
	watcher Watcher,
	locker ActionLocker,
	audit service.AuditService,
	clock TimeProvider,
) DoctorDashboardUsecase {
	return &doctorDashboardUsecase{
		log:         log,
		registry:    registry,
		sessionRepo: sessionRepo,
		watcher:     watcher,
		locker:      locker,
		audit:       audit,
		clock:       clock,
	}
}

func (u *doctorDashboardUsecase) Watch(ctx context.Context, session *entity.Session) (*service.Snapshot, error) {
	snapshot, err := u.watcher.Attach(ctx, session.ID, ScreenDashboard, func(ctx context.Context) (interface{}, error) {
		return u.GetDashboard(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (u *doctorDashboardUsecase) StopWatch(ctx context.Context, sessionID string) bool {
	return u.watcher.Stop(sessionID, ScreenDashboard)
}

func (u *doctorDashboardUsecase) GetDashboard(ctx context.Context, session *entity.Session) (*DashboardView, error) {
	scope := u.registry.Scope(session)
	dashboard, err := scope.API.DoctorDashboard(ctx)
	if err != nil {
		u.log.Warnf("Failed to load doctor dashboard: %+v", err)
		return nil, err
	}
	return buildDashboardView(dashboard, u.currentStatus(ctx, session)), nil
}

func (u *doctorDashboardUsecase) currentStatus(ctx context.Context, session *entity.Session) entity.AvailabilityStatus {
	fresh, err := u.sessionRepo.FindByID(ctx, session.ID)
	if err != nil || fresh.DoctorStatus == "" {
		return entity.AvailabilityOnline
	}
	return fresh.DoctorStatus
}

func buildDashboardView(dashboard *entity.Dashboard, status entity.AvailabilityStatus) *DashboardView {
	view := &DashboardView{
		Status:     status,
		QueueStats: dashboard.CurrentQueue,
		Queue:      entity.FilterAppointments(dashboard.TodayAppointments, entity.AppointmentFilter{Statuses: dashboardQueueStatuses}),
		Upcoming:   entity.FilterAppointments(dashboard.TodayAppointments, entity.AppointmentFilter{Statuses: dashboardUpcomingStatuses}),
	}
	view.Doctor = DoctorHeader{
		Name:      dashboard.Profile.DisplayName(),
		Specialty: dashboard.Profile.SpecialtyText(),
	}
	if view.Doctor.Specialty == "" {
		view.Doctor.Specialty = defaultSpecialty
	}
	view.Active = activeAppointment(view.Queue, dashboard.CurrentToken())
	view.TooManyPatients = len(view.Queue) > busyQueueThreshold
	return view
}

// activeAppointment matches the queue's current token exactly. Without a
// current token the first in-progress or waiting appointment is active.
func activeAppointment(queue []entity.Appointment, current entity.Token) *entity.Appointment {
	for i := range queue {
		a := queue[i]
		if current.IsZero() {
			if a.HasStatus(entity.AppointmentStatusInProgress, entity.AppointmentStatusWaiting) {
				return &a
			}
			continue
		}
		if a.TokenNumber == current {
			return &a
		}
	}
	return nil
}

func nextCallable(queue []entity.Appointment) *entity.Appointment {
	for i := range queue {
		if queue[i].HasStatus(callableStatuses...) {
			a := queue[i]
			return &a
		}
	}
	return nil
}

func consultationLockKey(session *entity.Session) string {
	return "consultation:" + session.UserID.String()
}

func (u *doctorDashboardUsecase) CallNext(ctx context.Context, session *entity.Session) (*DashboardActionResult, error) {
	var result *DashboardActionResult
	err := u.locker.Do(ctx, consultationLockKey(session), func(ctx context.Context) error {
		view, err := u.GetDashboard(ctx, session)
		if err != nil {
			return err
		}
		next, err := u.callNext(ctx, session, view)
		if err != nil {
			return err
		}
		result = &DashboardActionResult{
			Message: fmt.Sprintf("Token #%s now in consultation.", next.TokenNumber),
			Next:    next,
		}
		u.reloadView(ctx, session, result)
		return nil
	})
	return result, err
}

// reloadView refreshes result.View after an action that already went
// through. A failed reload leaves a warning instead of an error so the caller
// does not repeat the action.
func (u *doctorDashboardUsecase) reloadView(ctx context.Context, session *entity.Session, result *DashboardActionResult) {
	view, err := u.GetDashboard(ctx, session)
	if err != nil {
		u.log.Warnf("Failed to reload dashboard after action: %+v", err)
		result.Warning = staleViewWarning
		return
	}
	result.View = view
}

// callNext starts the consultation of the first callable appointment.
func (u *doctorDashboardUsecase) callNext(ctx context.Context, session *entity.Session, view *DashboardView) (*entity.Appointment, error) {
	next := nextCallable(view.Queue)
	if next == nil {
		return nil, ErrNoNextPatient
	}

	scope := u.registry.Scope(session)
	if err := scope.API.StartConsultation(ctx, next.ID); err != nil {
		u.log.Warnf("Failed to start consultation %s: %+v", next.ID, err)
		return nil, err
	}
	u.audit.Record(ctx, actorFromSession(session), entity.AuditActionConsultationStart, entity.JSON{
		"appointment_id": next.ID.String(),
		"token_number":   next.TokenNumber.String(),
	})
	return next, nil
}

func (u *doctorDashboardUsecase) EndConsultation(ctx context.Context, session *entity.Session) (*DashboardActionResult, error) {
	return u.finishActive(ctx, session, hospitalapi.EndConsultationRequest{Notes: consultationCompletedNotes},
		ErrNoActiveConsultation, entity.AuditActionConsultationEnd, "Consultation ended.")
}

func (u *doctorDashboardUsecase) MarkNoShow(ctx context.Context, session *entity.Session) (*DashboardActionResult, error) {
	return u.finishActive(ctx, session, hospitalapi.EndConsultationRequest{Notes: noShowNotes, NoShow: true},
		ErrNoActivePatient, entity.AuditActionConsultationNoShow, "Patient marked as no-show.")
}

// finishActive ends the active appointment, reloads the dashboard and calls
// the next patient in. Having nobody left to call is not an error.
func (u *doctorDashboardUsecase) finishActive(
	ctx context.Context,
	session *entity.Session,
	req hospitalapi.EndConsultationRequest,
	noActive error,
	action string,
	message string,
) (*DashboardActionResult, error) {
	var result *DashboardActionResult
	err := u.locker.Do(ctx, consultationLockKey(session), func(ctx context.Context) error {
		view, err := u.GetDashboard(ctx, session)
		if err != nil {
			return err
		}
		active := view.Active
		if active == nil {
			return noActive
		}

		scope := u.registry.Scope(session)
		if err := scope.API.EndConsultation(ctx, active.ID, req); err != nil {
			u.log.Warnf("Failed to end consultation %s: %+v", active.ID, err)
			return err
		}
		u.audit.Record(ctx, actorFromSession(session), action, entity.JSON{
			"appointment_id": active.ID.String(),
			"token_number":   active.TokenNumber.String(),
		})

		result = &DashboardActionResult{Message: message}
		view, err = u.GetDashboard(ctx, session)
		if err != nil {
			// nobody is called in without a fresh queue
			u.log.Warnf("Failed to reload dashboard after %s: %+v", action, err)
			result.Warning = staleViewWarning
			return nil
		}
		next, err := u.callNext(ctx, session, view)
		switch {
		case errors.Is(err, ErrNoNextPatient):
			result.View = view
			return nil
		case err != nil:
			// the end already went through; report the view without the call
			u.log.Warnf("Failed to call next patient after %s: %+v", action, err)
			result.View = view
			return nil
		}
		result.Next = next
		result.Message = fmt.Sprintf("%s Token #%s now in consultation.", message, next.TokenNumber)
		u.reloadView(ctx, session, result)
		return nil
	})
	return result, err
}

func (u *doctorDashboardUsecase) SetAvailability(ctx context.Context, session *entity.Session, status entity.AvailabilityStatus) (*DashboardView, error) {
	if !status.Valid() {
		return nil, ErrInvalidAvailabilityStatus
	}

	scope := u.registry.Scope(session)
	availability := entity.NewDayAvailability(u.clock.Now(), status)
	if err := scope.API.UpdateAvailability(ctx, availability); err != nil {
		u.log.Warnf("Failed to update availability to %s: %+v", status, err)
		return nil, err
	}
	if err := u.saveStatus(ctx, session.ID, status); err != nil {
		return nil, err
	}
	u.audit.Record(ctx, actorFromSession(session), entity.AuditActionAvailabilityUpdate, entity.JSON{
		"status":      string(status),
		"day_of_week": availability.DayOfWeek,
	})
	return u.GetDashboard(ctx, session)
}

func (u *doctorDashboardUsecase) PauseTokens(ctx context.Context, session *entity.Session) (*DashboardActionResult, error) {
	scope := u.registry.Scope(session)
	if err := scope.API.UpdateAvailability(ctx, entity.DoctorAvailability{IsAvailable: false, IsActive: false}); err != nil {
		u.log.Warnf("Failed to pause tokens: %+v", err)
		return nil, err
	}
	if err := u.saveStatus(ctx, session.ID, entity.AvailabilityPaused); err != nil {
		return nil, err
	}
	u.audit.Record(ctx, actorFromSession(session), entity.AuditActionAvailabilityUpdate, entity.JSON{
		"status": string(entity.AvailabilityPaused),
	})

	result := &DashboardActionResult{Message: "Doctor paused accepting tokens."}
	u.reloadView(ctx, session, result)
	return result, nil
}

func (u *doctorDashboardUsecase) saveStatus(ctx context.Context, sessionID string, status entity.AvailabilityStatus) error {
	_, err := u.sessionRepo.Update(ctx, sessionID, func(s *entity.Session) error {
		s.DoctorStatus = status
		return nil
	})
	if err != nil {
		u.log.Warnf("Failed to save doctor status for session %s: %+v", sessionID, err)
	}
	return err
}

func actorFromSession(session *entity.Session) service.AuditActor {
	return service.AuditActor{SessionID: session.ID, UserID: session.UserID, Role: session.Role}
}
