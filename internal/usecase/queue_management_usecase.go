package usecase

import (
	"context"
	"errors"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/domain/repository"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment not found in today's queue")
	ErrTokenNotInQueue      = errors.New("token not found in queue")
	ErrInvalidMoveDirection = errors.New("direction must be up or down")
	ErrCannotMove           = errors.New("token is already at the edge of the queue")
	ErrReassignSameDoctor   = errors.New("appointment is already with this doctor")
	ErrWalkInUnsupported    = errors.New("walk-in flow is not available")
)

const (
	queueNoShowNotes = "Marked as no-show via queue UI"

	WalkInUnsupportedMessage = "Walk-in flow is not available in this build. Please use the appointment booking flow."
)

type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

type QueueStats struct {
	Waiting    int `json:"waiting"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

type QueueManagementView struct {
	Appointments []entity.Appointment `json:"appointments"`
	Found        int                  `json:"found"`
	Stats        QueueStats           `json:"stats"`
	Paused       bool                 `json:"paused"`
}

type QueueManagementUsecase interface {
	GetQueue(ctx context.Context, session *entity.Session, search string) (*QueueManagementView, error)
	Move(ctx context.Context, session *entity.Session, token entity.Token, direction MoveDirection) (*QueueManagementView, error)
	SetPaused(ctx context.Context, session *entity.Session, paused bool) (*QueueManagementView, error)
	StartConsultation(ctx context.Context, session *entity.Session, appointmentID entity.ID) (*entity.Appointment, error)
	Reassign(ctx context.Context, session *entity.Session, appointmentID, doctorID entity.ID) (*entity.Appointment, error)
	MarkNoShow(ctx context.Context, session *entity.Session, appointmentID entity.ID) (*entity.Appointment, error)
	AddWalkIn(ctx context.Context, session *entity.Session) error
}

type queueManagementUsecase struct {
	log         *logrus.Logger
	registry    SessionRegistry
	sessionRepo repository.SessionRepository
	locker      ActionLocker
	audit       service.AuditService
	clock       TimeProvider
}

func NewQueueManagementUsecase(
	log *logrus.Logger,
	registry SessionRegistry,
	sessionRepo repository.SessionRepository,
	locker ActionLocker,
	audit service.AuditService,
	clock TimeProvider,
) QueueManagementUsecase {
	return &queueManagementUsecase{
		log:         log,
		registry:    registry,
		sessionRepo: sessionRepo,
		locker:      locker,
		audit:       audit,
		clock:       clock,
	}
}

func (u *queueManagementUsecase) todayAppointments(ctx context.Context, session *entity.Session) ([]entity.Appointment, error) {
	scope := u.registry.Scope(session)
	list, err := scope.API.DoctorAppointments(ctx, formatDate(u.clock.Now()))
	if err != nil {
		u.log.Warnf("Failed to load today's appointments: %+v", err)
		return nil, err
	}
	return list, nil
}

func (u *queueManagementUsecase) GetQueue(ctx context.Context, session *entity.Session, search string) (*QueueManagementView, error) {
	list, err := u.todayAppointments(ctx, session)
	if err != nil {
		return nil, err
	}
	fresh, err := u.sessionRepo.FindByID(ctx, session.ID)
	if err != nil {
		u.log.Warnf("Failed to load session %s: %+v", session.ID, err)
		return nil, err
	}
	return buildQueueView(list, fresh.QueueOrder, fresh.QueuePaused, search), nil
}

func buildQueueView(list []entity.Appointment, order []entity.Token, paused bool, search string) *QueueManagementView {
	ordered := ApplyQueueOrder(list, order)
	found := entity.FilterAppointments(ordered, entity.AppointmentFilter{Search: search})
	return &QueueManagementView{
		Appointments: found,
		Found:        len(found),
		Stats:        CountQueueStats(list),
		Paused:       paused,
	}
}

// CountQueueStats counts over the whole day regardless of any search.
func CountQueueStats(list []entity.Appointment) QueueStats {
	stats := QueueStats{Total: len(list)}
	for _, a := range list {
		switch {
		case a.HasStatus(entity.AppointmentStatusWaiting, entity.AppointmentStatusPending, entity.AppointmentStatusArrived):
			stats.Waiting++
		case a.HasStatus(entity.AppointmentStatusInProgress):
			stats.InProgress++
		case a.HasStatus(entity.AppointmentStatusCompleted):
			stats.Completed++
		}
	}
	return stats
}

// ApplyQueueOrder lays the local order overlay over the upstream list.
// Tokens named in order come first in that order; the rest follow in
// upstream order. Tokens no longer in the list are ignored.
func ApplyQueueOrder(list []entity.Appointment, order []entity.Token) []entity.Appointment {
	out := make([]entity.Appointment, 0, len(list))
	used := make([]bool, len(list))
	for _, t := range order {
		for i := range list {
			if !used[i] && list[i].TokenNumber == t {
				out = append(out, list[i])
				used[i] = true
				break
			}
		}
	}
	for i := range list {
		if !used[i] {
			out = append(out, list[i])
		}
	}
	return out
}

func (u *queueManagementUsecase) Move(ctx context.Context, session *entity.Session, token entity.Token, direction MoveDirection) (*QueueManagementView, error) {
	var delta int
	switch direction {
	case MoveUp:
		delta = -1
	case MoveDown:
		delta = 1
	default:
		return nil, ErrInvalidMoveDirection
	}

	list, err := u.todayAppointments(ctx, session)
	if err != nil {
		return nil, err
	}

	var view *QueueManagementView
	_, err = u.sessionRepo.Update(ctx, session.ID, func(s *entity.Session) error {
		ordered := ApplyQueueOrder(list, s.QueueOrder)
		index := -1
		for i := range ordered {
			if ordered[i].TokenNumber == token {
				index = i
				break
			}
		}
		if index < 0 {
			return ErrTokenNotInQueue
		}
		target := index + delta
		if target < 0 || target >= len(ordered) {
			return ErrCannotMove
		}
		ordered[index], ordered[target] = ordered[target], ordered[index]

		s.QueueOrder = make([]entity.Token, len(ordered))
		for i := range ordered {
			s.QueueOrder[i] = ordered[i].TokenNumber
		}
		view = buildQueueView(list, s.QueueOrder, s.QueuePaused, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (u *queueManagementUsecase) SetPaused(ctx context.Context, session *entity.Session, paused bool) (*QueueManagementView, error) {
	_, err := u.sessionRepo.Update(ctx, session.ID, func(s *entity.Session) error {
		s.QueuePaused = paused
		return nil
	})
	if err != nil {
		u.log.Warnf("Failed to set queue paused=%t for session %s: %+v", paused, session.ID, err)
		return nil, err
	}
	u.log.Infof("Queue paused=%t for session %s", paused, session.ID)
	return u.GetQueue(ctx, session, "")
}

func (u *queueManagementUsecase) findToday(ctx context.Context, session *entity.Session, appointmentID entity.ID) (*entity.Appointment, error) {
	list, err := u.todayAppointments(ctx, session)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == appointmentID {
			a := list[i]
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (u *queueManagementUsecase) StartConsultation(ctx context.Context, session *entity.Session, appointmentID entity.ID) (*entity.Appointment, error) {
	var appointment *entity.Appointment
	err := u.locker.Do(ctx, consultationLockKey(session), func(ctx context.Context) error {
		var err error
		appointment, err = u.findToday(ctx, session, appointmentID)
		if err != nil {
			return err
		}
		if err := u.registry.Scope(session).API.StartConsultation(ctx, appointmentID); err != nil {
			u.log.Warnf("Failed to start consultation %s: %+v", appointmentID, err)
			return err
		}
		u.audit.Record(ctx, actorFromSession(session), entity.AuditActionConsultationStart, entity.JSON{
			"appointment_id": appointmentID.String(),
			"token_number":   appointment.TokenNumber.String(),
			"source":         "queue",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

// Reassign moves an appointment to another doctor by rescheduling it with
// its own date, slot and reason. The department follows the new doctor
// when known.
func (u *queueManagementUsecase) Reassign(ctx context.Context, session *entity.Session, appointmentID, doctorID entity.ID) (*entity.Appointment, error) {
	var appointment *entity.Appointment
	err := u.locker.Do(ctx, consultationLockKey(session), func(ctx context.Context) error {
		var err error
		appointment, err = u.findToday(ctx, session, appointmentID)
		if err != nil {
			return err
		}
		if appointment.DoctorID == doctorID {
			return ErrReassignSameDoctor
		}

		scope := u.registry.Scope(session)
		doctor, ok := scope.Cache.FindDoctor(ctx, doctorID)
		if !ok {
			return ErrDoctorNotFound
		}
		department, ok := doctor.DepartmentID()
		if !ok {
			department = appointment.DepartmentID
		}

		req := hospitalapi.CreateAppointmentRequest{
			Doctor:          doctorID,
			Department:      department,
			AppointmentDate: appointment.AppointmentDate,
			TimeSlot:        appointment.TimeSlot,
			Reason:          appointment.Reason,
			BookingType:     appointment.BookingType,
			IsForSelf:       appointment.IsForSelf,
			PatientRelation: appointment.PatientRelation,
		}
		if err := scope.API.RescheduleAppointment(ctx, appointmentID, req); err != nil {
			u.log.Warnf("Failed to reassign appointment %s to doctor %s: %+v", appointmentID, doctorID, err)
			return err
		}
		u.audit.Record(ctx, actorFromSession(session), entity.AuditActionAppointmentReassign, entity.JSON{
			"appointment_id": appointmentID.String(),
			"token_number":   appointment.TokenNumber.String(),
			"from_doctor":    appointment.DoctorID.String(),
			"to_doctor":      doctorID.String(),
		})
		appointment.DoctorID = doctorID
		appointment.DoctorName = doctor.FullName
		appointment.DepartmentID = department
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (u *queueManagementUsecase) MarkNoShow(ctx context.Context, session *entity.Session, appointmentID entity.ID) (*entity.Appointment, error) {
	var appointment *entity.Appointment
	err := u.locker.Do(ctx, consultationLockKey(session), func(ctx context.Context) error {
		var err error
		appointment, err = u.findToday(ctx, session, appointmentID)
		if err != nil {
			return err
		}
		req := hospitalapi.EndConsultationRequest{NoShow: true, Notes: queueNoShowNotes}
		if err := u.registry.Scope(session).API.EndConsultation(ctx, appointmentID, req); err != nil {
			u.log.Warnf("Failed to mark appointment %s as no-show: %+v", appointmentID, err)
			return err
		}
		u.audit.Record(ctx, actorFromSession(session), entity.AuditActionConsultationNoShow, entity.JSON{
			"appointment_id": appointmentID.String(),
			"token_number":   appointment.TokenNumber.String(),
			"source":         "queue",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (u *queueManagementUsecase) AddWalkIn(ctx context.Context, session *entity.Session) error {
	return ErrWalkInUnsupported
}
