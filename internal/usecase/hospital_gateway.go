package usecase

import (
	"context"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/infrastructure/hospitalapi"
)

// AuthGateway is the anonymous part of the hospital API.
type AuthGateway interface {
	Login(ctx context.Context, req hospitalapi.LoginRequest) (*hospitalapi.AuthResponse, error)
	Register(ctx context.Context, req hospitalapi.RegisterRequest) (*hospitalapi.AuthResponse, error)
	Blacklist(ctx context.Context, refreshToken string) error
}

// HospitalAPI is the hospital API as seen by one session.
// *hospitalapi.Client implements it.
type HospitalAPI interface {
	CatalogSource
	SlotSource
	BookingGateway

	RescheduleAppointment(ctx context.Context, appointmentID entity.ID, req hospitalapi.CreateAppointmentRequest) error
	DoctorDashboard(ctx context.Context) (*entity.Dashboard, error)
	DoctorAppointments(ctx context.Context, date string) ([]entity.Appointment, error)
	UpdateAvailability(ctx context.Context, availability entity.DoctorAvailability) error
	StartConsultation(ctx context.Context, appointmentID entity.ID) error
	EndConsultation(ctx context.Context, appointmentID entity.ID, req hospitalapi.EndConsultationRequest) error
	LiveQueue(ctx context.Context) (*entity.QueueStatus, error)
	QueueStatus(ctx context.Context, doctorID entity.ID, date string) (*entity.QueueStatus, error)
}

// HospitalAPIFactory binds the shared client to a session's tokens.
type HospitalAPIFactory func(store hospitalapi.TokenStore) HospitalAPI

// NewHospitalAPIFactory returns a factory backed by client.
func NewHospitalAPIFactory(client *hospitalapi.Client) HospitalAPIFactory {
	return func(store hospitalapi.TokenStore) HospitalAPI {
		return client.WithTokens(store)
	}
}

// WatchController is the part of the watch hub the usecases drive.
type WatchController interface {
	StopSession(sessionID string) int
}
