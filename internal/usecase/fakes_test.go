package usecase

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/infrastructure/hospitalapi"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

type fakeCatalog struct {
	departments   []entity.Department
	doctors       []entity.Doctor
	departmentErr error
	doctorErr     error
	doctorCalls   atomic.Int32
	deptCalls     atomic.Int32
}

func (f *fakeCatalog) Departments(ctx context.Context) ([]entity.Department, error) {
	f.deptCalls.Add(1)
	if f.departmentErr != nil {
		return nil, f.departmentErr
	}
	return f.departments, nil
}

func (f *fakeCatalog) Doctors(ctx context.Context, departmentID entity.ID) ([]entity.Doctor, error) {
	f.doctorCalls.Add(1)
	if f.doctorErr != nil {
		return nil, f.doctorErr
	}
	return f.doctors, nil
}

type slotCall struct {
	doctorID entity.ID
	date     string
}

// fakeSlots answers per doctor id. A gate, when set for a doctor, blocks the
// call until it is closed.
type fakeSlots struct {
	mu    sync.Mutex
	slots map[entity.ID][]entity.Slot
	err   error
	gates map[entity.ID]chan struct{}
	calls []slotCall
}

func (f *fakeSlots) AvailableSlots(ctx context.Context, doctorID entity.ID, date string) ([]entity.Slot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, slotCall{doctorID: doctorID, date: date})
	gate := f.gates[doctorID]
	slots := f.slots[doctorID]
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return slots, nil
}

type fakeBookingGateway struct {
	mu       sync.Mutex
	requests []hospitalapi.CreateAppointmentRequest
	token    entity.Token
	err      error
}

func (f *fakeBookingGateway) CreateAppointment(ctx context.Context, req hospitalapi.CreateAppointmentRequest) (*hospitalapi.CreateAppointmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &hospitalapi.CreateAppointmentResponse{TokenNumber: f.token}, nil
}

func boolPtr(b bool) *bool { return &b }
