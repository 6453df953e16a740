package hospitalapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"medqueue-portal/internal/domain/entity"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username,omitempty"`
	FullName        string `json:"full_name"`
	Phone           string `json:"phone,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"password2,omitempty"`
	Role            string `json:"role,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User         entity.User `json:"user"`
	Access       string      `json:"access"`
	Refresh      string      `json:"refresh"`
	Role         string      `json:"role,omitempty"`
	DashboardURL string      `json:"dashboard_url,omitempty"`
	Message      string      `json:"message,omitempty"`
}

// CreateAppointmentRequest is the payload of POST /appointments/. It is also
// used for reschedules, which take the same fields.
type CreateAppointmentRequest struct {
	Doctor          entity.ID `json:"doctor"`
	Department      entity.ID `json:"department,omitempty"`
	AppointmentDate string    `json:"appointment_date"`
	TimeSlot        string    `json:"time_slot"`
	Reason          string    `json:"reason"`
	BookingType     string    `json:"booking_type"`
	IsForSelf       bool      `json:"is_for_self"`
	PatientRelation string    `json:"patient_relation"`
}

type CreateAppointmentResponse struct {
	TokenNumber entity.Token
	Raw         []byte
}

type EndConsultationRequest struct {
	Notes  string `json:"notes,omitempty"`
	NoShow bool   `json:"no_show,omitempty"`
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	body, err := c.request(ctx, http.MethodPost, "/auth/login/", req)
	if err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, err
	}
	if resp.Access == "" {
		return nil, fmt.Errorf("%w: login response without access token", ErrInvalidResponse)
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	body, err := c.request(ctx, http.MethodPost, "/auth/register/", req)
	if err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Blacklist revokes a refresh token upstream.
func (c *Client) Blacklist(ctx context.Context, refreshToken string) error {
	_, err := c.request(ctx, http.MethodPost, "/token/blacklist/", refreshRequest{Refresh: refreshToken})
	return err
}

func (c *Client) Departments(ctx context.Context) ([]entity.Department, error) {
	body, err := c.request(ctx, http.MethodGet, "/departments/", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[entity.Department](body, listKeys...)
}

// Doctors lists doctors; a non-zero departmentID asks the server to filter.
func (c *Client) Doctors(ctx context.Context, departmentID entity.ID) ([]entity.Doctor, error) {
	path := "/doctor/"
	if !departmentID.IsZero() {
		path += "?department=" + url.QueryEscape(departmentID.String())
	}
	body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[entity.Doctor](body, listKeys...)
}

func (c *Client) AvailableSlots(ctx context.Context, doctorID entity.ID, date string) ([]entity.Slot, error) {
	q := url.Values{}
	q.Set("doctor_id", doctorID.String())
	q.Set("date", date)
	body, err := c.request(ctx, http.MethodGet, "/appointments/available_slots/?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[entity.Slot](body, slotKeys...)
}

func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*CreateAppointmentResponse, error) {
	body, err := c.safeRequest(ctx, http.MethodPost, "/appointments/", req)
	if err != nil {
		return nil, err
	}
	return &CreateAppointmentResponse{
		TokenNumber: entity.ExtractToken(body),
		Raw:         body,
	}, nil
}

func (c *Client) RescheduleAppointment(ctx context.Context, appointmentID entity.ID, req CreateAppointmentRequest) error {
	path := fmt.Sprintf("/appointments/%s/reschedule/", url.PathEscape(appointmentID.String()))
	_, err := c.safeRequest(ctx, http.MethodPost, path, req)
	return err
}

func (c *Client) DoctorDashboard(ctx context.Context) (*entity.Dashboard, error) {
	body, err := c.safeRequest(ctx, http.MethodGet, "/doctor/dashboard/", nil)
	if err != nil {
		return nil, err
	}
	var dashboard entity.Dashboard
	if err := decodeJSON(body, &dashboard); err != nil {
		return nil, err
	}
	return &dashboard, nil
}

func (c *Client) DoctorAppointments(ctx context.Context, date string) ([]entity.Appointment, error) {
	path := "/doctor/appointments/"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	body, err := c.safeRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[entity.Appointment](body, listKeys...)
}

func (c *Client) UpdateAvailability(ctx context.Context, availability entity.DoctorAvailability) error {
	_, err := c.safeRequest(ctx, http.MethodPost, "/doctor/availability/", availability)
	return err
}

func (c *Client) StartConsultation(ctx context.Context, appointmentID entity.ID) error {
	path := fmt.Sprintf("/appointments/%s/start_consultation/", url.PathEscape(appointmentID.String()))
	_, err := c.safeRequest(ctx, http.MethodPost, path, nil)
	return err
}

func (c *Client) EndConsultation(ctx context.Context, appointmentID entity.ID, req EndConsultationRequest) error {
	path := fmt.Sprintf("/appointments/%s/end_consultation/", url.PathEscape(appointmentID.String()))
	_, err := c.safeRequest(ctx, http.MethodPost, path, req)
	return err
}

func (c *Client) LiveQueue(ctx context.Context) (*entity.QueueStatus, error) {
	body, err := c.safeRequest(ctx, http.MethodGet, "/queue/live/", nil)
	if err != nil {
		return nil, err
	}
	status, ok, err := decodeOneOrFirst[entity.QueueStatus](body)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &entity.QueueStatus{}, nil
	}
	return status, nil
}

// QueueStatus reads the queue of one doctor on date. The endpoint returns an
// array of per-day rows; the first row is used.
func (c *Client) QueueStatus(ctx context.Context, doctorID entity.ID, date string) (*entity.QueueStatus, error) {
	q := url.Values{}
	if !doctorID.IsZero() {
		q.Set("doctor", doctorID.String())
	}
	if date != "" {
		q.Set("date", date)
	}
	path := "/queue/status/"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	body, err := c.safeRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	status, ok, err := decodeOneOrFirst[entity.QueueStatus](body)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &entity.QueueStatus{}, nil
	}
	return status, nil
}
