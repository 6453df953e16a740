package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/domain/repository"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/internal/service"
)

type endCall struct {
	id  entity.ID
	req hospitalapi.EndConsultationRequest
}

type rescheduleCall struct {
	id  entity.ID
	req hospitalapi.CreateAppointmentRequest
}

// fakeHospitalAPI is a scripted hospital API. Starting or ending a
// consultation updates the dashboard like the real server would.
type fakeHospitalAPI struct {
	fakeCatalog
	fakeSlots
	fakeBookingGateway

	mu            sync.Mutex
	dashboard     *entity.Dashboard
	dashboardErr  error
	appointments  []entity.Appointment
	apptErr       error
	liveQueue     *entity.QueueStatus
	liveQueueErr  error
	doctorQueue   *entity.QueueStatus
	started       []entity.ID
	ended         []endCall
	rescheduled   []rescheduleCall
	availability  []entity.DoctorAvailability
	startErr      error
	appointmentOn []string

	// endBreaksDashboard makes every dashboard read after an end fail
	endBreaksDashboard error
}

func (f *fakeHospitalAPI) setStatus(id entity.ID, status string) {
	if f.dashboard == nil {
		return
	}
	for i := range f.dashboard.TodayAppointments {
		if f.dashboard.TodayAppointments[i].ID == id {
			f.dashboard.TodayAppointments[i].Status = status
			if status == entity.AppointmentStatusInProgress && f.dashboard.CurrentQueue != nil {
				f.dashboard.CurrentQueue.CurrentToken = f.dashboard.TodayAppointments[i].TokenNumber
			}
		}
	}
}

func (f *fakeHospitalAPI) RescheduleAppointment(ctx context.Context, id entity.ID, req hospitalapi.CreateAppointmentRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled = append(f.rescheduled, rescheduleCall{id: id, req: req})
	return nil
}

func (f *fakeHospitalAPI) DoctorDashboard(ctx context.Context) (*entity.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dashboardErr != nil {
		return nil, f.dashboardErr
	}
	if f.dashboard == nil {
		return &entity.Dashboard{}, nil
	}
	// deep copy through JSON so callers cannot alias the script
	data, _ := json.Marshal(f.dashboard)
	var out entity.Dashboard
	_ = json.Unmarshal(data, &out)
	return &out, nil
}

func (f *fakeHospitalAPI) DoctorAppointments(ctx context.Context, date string) ([]entity.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appointmentOn = append(f.appointmentOn, date)
	if f.apptErr != nil {
		return nil, f.apptErr
	}
	return append([]entity.Appointment(nil), f.appointments...), nil
}

func (f *fakeHospitalAPI) UpdateAvailability(ctx context.Context, availability entity.DoctorAvailability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availability = append(f.availability, availability)
	return nil
}

func (f *fakeHospitalAPI) StartConsultation(ctx context.Context, id entity.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, id)
	f.setStatus(id, entity.AppointmentStatusInProgress)
	return nil
}

func (f *fakeHospitalAPI) EndConsultation(ctx context.Context, id entity.ID, req hospitalapi.EndConsultationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, endCall{id: id, req: req})
	status := entity.AppointmentStatusCompleted
	if req.NoShow {
		status = entity.AppointmentStatusNoShow
	}
	f.setStatus(id, status)
	if f.dashboard != nil && f.dashboard.CurrentQueue != nil {
		f.dashboard.CurrentQueue.CurrentToken = ""
	}
	if f.endBreaksDashboard != nil {
		f.dashboardErr = f.endBreaksDashboard
	}
	return nil
}

func (f *fakeHospitalAPI) LiveQueue(ctx context.Context) (*entity.QueueStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liveQueueErr != nil {
		return nil, f.liveQueueErr
	}
	return f.liveQueue, nil
}

func (f *fakeHospitalAPI) QueueStatus(ctx context.Context, doctorID entity.ID, date string) (*entity.QueueStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doctorQueue, nil
}

// memSessionRepo is an in-memory SessionRepository.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
}

func newMemSessionRepo(sessions ...*entity.Session) *memSessionRepo {
	r := &memSessionRepo{sessions: make(map[string]entity.Session)}
	for _, s := range sessions {
		r.sessions[s.ID] = *s
	}
	return r
}

func (r *memSessionRepo) Create(ctx context.Context, session *entity.Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *memSessionRepo) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &s, nil
}

func (r *memSessionRepo) Update(ctx context.Context, id string, fn func(*entity.Session) error) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	s.Notices = append([]string(nil), s.Notices...)
	s.QueueOrder = append([]entity.Token(nil), s.QueueOrder...)
	if err := fn(&s); err != nil {
		return nil, err
	}
	r.sessions[id] = s
	return &s, nil
}

func (r *memSessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// fakeRegistry hands every session the same scope around api.
type fakeRegistry struct {
	api     *fakeHospitalAPI
	cache   DataCache
	dropped []string
}

func newFakeRegistry(api *fakeHospitalAPI) *fakeRegistry {
	return &fakeRegistry{api: api, cache: NewDataCache(api, testLogger())}
}

func (r *fakeRegistry) Scope(session *entity.Session) *SessionScope {
	return &SessionScope{SessionID: session.ID, API: r.api, Cache: r.cache}
}

func (r *fakeRegistry) Drop(sessionID string) { r.dropped = append(r.dropped, sessionID) }

func (r *fakeRegistry) Sweep(now time.Time) int { return 0 }

// syncWatcher polls once on every Attach.
type syncWatcher struct {
	mu       sync.Mutex
	attached []string
	stopped  []string
}

func (w *syncWatcher) Attach(ctx context.Context, sessionID, screen string, fetch service.FetchFunc) (service.Snapshot, error) {
	w.mu.Lock()
	w.attached = append(w.attached, screen)
	w.mu.Unlock()

	data, err := fetch(ctx)
	now := time.Now()
	if err != nil {
		return service.Snapshot{ConnectionLost: true, Error: err.Error()}, nil
	}
	return service.Snapshot{Data: data, UpdatedAt: &now}, nil
}

func (w *syncWatcher) Stop(sessionID, screen string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = append(w.stopped, screen)
	return true
}

func (w *syncWatcher) StopSession(sessionID string) int { return 0 }

type passLocker struct {
	keys []string
}

func (l *passLocker) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	return fn(ctx)
}

type auditEntry struct {
	action   string
	metadata entity.JSON
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *fakeAudit) Record(ctx context.Context, actor service.AuditActor, action string, metadata entity.JSON) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, metadata: metadata})
}

func (a *fakeAudit) History(ctx context.Context, sessionID string, limit int) ([]entity.AuditLog, error) {
	return nil, service.ErrAuditDisabled
}

func (a *fakeAudit) Find(ctx context.Context, id int64) (*entity.AuditLog, error) {
	return nil, service.ErrAuditDisabled
}

func (a *fakeAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.action
	}
	return out
}

func appt(id, token, name, status string) entity.Appointment {
	return entity.Appointment{ID: entity.ID(id), TokenNumber: entity.Token(token), PatientName: name, Status: status}
}

func doctorSession(id string) *entity.Session {
	return &entity.Session{ID: id, UserID: "9", Role: entity.RoleDoctor, AccessToken: "a", RefreshToken: "r"}
}
