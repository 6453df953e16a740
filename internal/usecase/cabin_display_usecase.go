package usecase

import (
	"context"
	"errors"
	"strings"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/domain/repository"
	"medqueue-portal/internal/service"

	"github.com/sirupsen/logrus"
)

var ErrEmptyAnnouncement = errors.New("announcement message is required")

const (
	ScreenCabin = "cabin"

	cabinUpcomingLimit  = 3
	noTokenPlaceholder  = "—"
	waitingForPatient   = "Waiting for next patient..."
	announcementMaxSize = 200
)

// CabinQuickMessages are the preset announcements offered to the doctor.
var CabinQuickMessages = []string{
	"Doctor on short break, back soon",
	"Please wait in hall no. 2",
	"Doctor in emergency, please wait",
	"Technical issue, please bear with us",
}

var (
	cabinActiveStatuses   = []string{entity.AppointmentStatusInProgress, entity.AppointmentStatusWaiting, entity.AppointmentStatusArrived}
	cabinUpcomingStatuses = []string{
		entity.AppointmentStatusWaiting,
		entity.AppointmentStatusPending,
		entity.AppointmentStatusArrived,
		entity.AppointmentStatusScheduled,
		entity.AppointmentStatusConfirmed,
	}
)

type CabinToken struct {
	Token   string `json:"token"`
	Patient string `json:"patient"`
	Reason  string `json:"reason,omitempty"`
}

type CabinView struct {
	Doctor       DoctorHeader `json:"doctor"`
	NowServing   CabinToken   `json:"now_serving"`
	Upcoming     []CabinToken `json:"upcoming"`
	Announcement string       `json:"announcement,omitempty"`
}

type CabinOptions struct {
	// Anonymize shows patient names as initial and surname.
	Anonymize bool
}

type CabinDisplayUsecase interface {
	Watch(ctx context.Context, session *entity.Session, opts CabinOptions) (*service.Snapshot, error)
	StopWatch(ctx context.Context, sessionID string) bool
	SetAnnouncement(ctx context.Context, sessionID, message string) (string, error)
	ClearAnnouncement(ctx context.Context, sessionID string) error
}

type cabinDisplayUsecase struct {
	log         *logrus.Logger
	registry    SessionRegistry
	sessionRepo repository.SessionRepository
	watcher     Watcher
	clock       TimeProvider
}

func NewCabinDisplayUsecase(
	log *logrus.Logger,
	registry SessionRegistry,
	sessionRepo repository.SessionRepository,
	watcher Watcher,
	clock TimeProvider,
) CabinDisplayUsecase {
	return &cabinDisplayUsecase{
		log:         log,
		registry:    registry,
		sessionRepo: sessionRepo,
		watcher:     watcher,
		clock:       clock,
	}
}

// Watch returns the cabin screen. The announcement is read from the session
// on every call so it shows up without waiting for the next poll.
func (u *cabinDisplayUsecase) Watch(ctx context.Context, session *entity.Session, opts CabinOptions) (*service.Snapshot, error) {
	scope := u.registry.Scope(session)
	snapshot, err := u.watcher.Attach(ctx, session.ID, ScreenCabin, func(ctx context.Context) (interface{}, error) {
		return u.load(ctx, scope.API)
	})
	if err != nil {
		return nil, err
	}

	view, ok := snapshot.Data.(*CabinView)
	if !ok || view == nil {
		return &snapshot, nil
	}
	out := *view
	out.Upcoming = append([]CabinToken(nil), view.Upcoming...)
	if opts.Anonymize {
		if out.NowServing.Patient != waitingForPatient {
			out.NowServing.Patient = AnonymizeName(out.NowServing.Patient)
		}
		for i := range out.Upcoming {
			out.Upcoming[i].Patient = AnonymizeName(out.Upcoming[i].Patient)
		}
	}

	fresh, err := u.sessionRepo.FindByID(ctx, session.ID)
	if err != nil {
		u.log.Warnf("Failed to read announcement of session %s: %+v", session.ID, err)
	} else {
		out.Announcement = fresh.CabinMessage
	}
	snapshot.Data = &out
	return &snapshot, nil
}

func (u *cabinDisplayUsecase) load(ctx context.Context, api HospitalAPI) (*CabinView, error) {
	dashboard, err := api.DoctorDashboard(ctx)
	if err != nil {
		u.log.Debugf("Cabin dashboard unavailable, using appointments: %+v", err)
		dashboard = nil
	}

	var appointments []entity.Appointment
	if dashboard != nil && len(dashboard.TodayAppointments) > 0 {
		appointments = dashboard.TodayAppointments
	} else {
		appointments, err = api.DoctorAppointments(ctx, formatDate(u.clock.Now()))
		if err != nil {
			u.log.Warnf("Failed to load cabin appointments: %+v", err)
			return nil, err
		}
	}

	var profile *entity.DoctorProfile
	if dashboard != nil {
		profile = dashboard.Profile
	}
	view := &CabinView{
		Doctor: DoctorHeader{Name: profile.DisplayName(), Specialty: profile.SpecialtyText()},
	}
	if profile == nil {
		for _, a := range appointments {
			if a.DoctorName != "" {
				view.Doctor.Name = "Dr. " + a.DoctorName
				break
			}
		}
	}

	current := dashboard.CurrentToken()
	active := cabinActivePatient(appointments, current)

	view.NowServing = CabinToken{Token: noTokenPlaceholder, Patient: waitingForPatient}
	switch {
	case !current.IsZero():
		view.NowServing.Token = current.String()
	case active != nil && !active.TokenNumber.IsZero():
		view.NowServing.Token = active.TokenNumber.String()
	}
	if active != nil && active.PatientName != "" {
		view.NowServing.Patient = active.PatientName
	}

	view.Upcoming = cabinUpcoming(appointments, active)
	return view, nil
}

// cabinActivePatient finds the patient being served. Tokens such as
// "CARD-2024-7" match a current token of "7" by containment in either
// direction.
func cabinActivePatient(appointments []entity.Appointment, current entity.Token) *entity.Appointment {
	if current.IsZero() {
		for i := range appointments {
			if appointments[i].HasStatus(cabinActiveStatuses...) {
				a := appointments[i]
				return &a
			}
		}
		return nil
	}

	want := current.String()
	for i := range appointments {
		got := appointments[i].TokenNumber.String()
		if got == "" {
			continue
		}
		if got == want || strings.Contains(got, want) || strings.Contains(want, got) {
			a := appointments[i]
			return &a
		}
	}
	return nil
}

func cabinUpcoming(appointments []entity.Appointment, active *entity.Appointment) []CabinToken {
	waiting := entity.FilterAppointments(appointments, entity.AppointmentFilter{Statuses: cabinUpcomingStatuses})
	list := waiting[:0]
	for _, a := range waiting {
		if active != nil && a.TokenNumber == active.TokenNumber {
			continue
		}
		list = append(list, a)
	}
	entity.SortTokens(list)
	if len(list) > cabinUpcomingLimit {
		list = list[:cabinUpcomingLimit]
	}

	out := make([]CabinToken, 0, len(list))
	for _, a := range list {
		reason := a.Reason
		if reason == "" {
			reason = noTokenPlaceholder
		}
		out = append(out, CabinToken{Token: a.TokenNumber.String(), Patient: a.PatientName, Reason: reason})
	}
	return out
}

// AnonymizeName shortens "John Smith" to "J. Smith" and "John" to "J.".
func AnonymizeName(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return noTokenPlaceholder
	}
	initial := string([]rune(parts[0])[:1]) + "."
	if len(parts) < 2 {
		return initial
	}
	return initial + " " + parts[len(parts)-1]
}

func (u *cabinDisplayUsecase) StopWatch(ctx context.Context, sessionID string) bool {
	return u.watcher.Stop(sessionID, ScreenCabin)
}

func (u *cabinDisplayUsecase) SetAnnouncement(ctx context.Context, sessionID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyAnnouncement
	}
	if r := []rune(message); len(r) > announcementMaxSize {
		message = string(r[:announcementMaxSize])
	}

	_, err := u.sessionRepo.Update(ctx, sessionID, func(s *entity.Session) error {
		s.CabinMessage = message
		return nil
	})
	if err != nil {
		u.log.Warnf("Failed to set announcement for session %s: %+v", sessionID, err)
		return "", err
	}
	return message, nil
}

func (u *cabinDisplayUsecase) ClearAnnouncement(ctx context.Context, sessionID string) error {
	_, err := u.sessionRepo.Update(ctx, sessionID, func(s *entity.Session) error {
		s.CabinMessage = ""
		return nil
	})
	if err != nil {
		u.log.Warnf("Failed to clear announcement for session %s: %+v", sessionID, err)
	}
	return err
}
