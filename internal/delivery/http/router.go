package http

import (
	"net/http"

	"medqueue-portal/internal/delivery/http/handler"
	"medqueue-portal/internal/delivery/http/middleware"
	"medqueue-portal/pkg/metrics"

	"github.com/gorilla/mux"
)

type Router struct {
	router                 *mux.Router
	authHandler            *handler.AuthHandler
	bookingWizardHandler   *handler.BookingWizardHandler
	liveQueueHandler       *handler.LiveQueueHandler
	doctorDashboardHandler *handler.DoctorDashboardHandler
	cabinDisplayHandler    *handler.CabinDisplayHandler
	queueManagementHandler *handler.QueueManagementHandler
	auditLogHandler        *handler.AuditLogHandler
	authMiddleware         *middleware.AuthMiddleware
	corsMiddleware         *middleware.CORSMiddleware
	rateLimiter            *middleware.RateLimiter
	metrics                *metrics.Metrics
	metricsPath            string
}

func NewRouter(
	authHandler *handler.AuthHandler,
	bookingWizardHandler *handler.BookingWizardHandler,
	liveQueueHandler *handler.LiveQueueHandler,
	doctorDashboardHandler *handler.DoctorDashboardHandler,
	cabinDisplayHandler *handler.CabinDisplayHandler,
	queueManagementHandler *handler.QueueManagementHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	rateLimiter *middleware.RateLimiter,
	m *metrics.Metrics,
	metricsPath string,
) *Router {
	return &Router{
		router:                 mux.NewRouter(),
		authHandler:            authHandler,
		bookingWizardHandler:   bookingWizardHandler,
		liveQueueHandler:       liveQueueHandler,
		doctorDashboardHandler: doctorDashboardHandler,
		cabinDisplayHandler:    cabinDisplayHandler,
		queueManagementHandler: queueManagementHandler,
		auditLogHandler:        auditLogHandler,
		authMiddleware:         authMiddleware,
		corsMiddleware:         corsMiddleware,
		rateLimiter:            rateLimiter,
		metrics:                m,
		metricsPath:            metricsPath,
	}
}

func (r *Router) Setup() *mux.Router {
	if r.metrics != nil && r.metricsPath != "" {
		r.router.Handle(r.metricsPath, r.metrics.Handler()).Methods(http.MethodGet)
	}

	// Preflight requests must match a route for the CORS middleware to run.
	r.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.Handle("/register", r.limited(r.authHandler.Register)).Methods(http.MethodPost)
	auth.Handle("/login", r.limited(r.authHandler.Login)).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.GetCurrentUser).Methods(http.MethodGet)

	// Catalog
	catalog := api.PathPrefix("/catalog").Subrouter()
	catalog.Use(r.authMiddleware.Authenticate)
	catalog.HandleFunc("/departments", r.bookingWizardHandler.GetDepartments).Methods(http.MethodGet)
	catalog.HandleFunc("/doctors", r.bookingWizardHandler.GetDoctors).Methods(http.MethodGet)

	// Booking wizard
	booking := api.PathPrefix("/booking").Subrouter()
	booking.Use(r.authMiddleware.Authenticate)
	booking.HandleFunc("", r.bookingWizardHandler.GetState).Methods(http.MethodGet)
	booking.HandleFunc("/patient-mode", r.bookingWizardHandler.SetPatientMode).Methods(http.MethodPut)
	booking.HandleFunc("/patient-details", r.bookingWizardHandler.SetPatientDetails).Methods(http.MethodPut)
	booking.HandleFunc("/method", r.bookingWizardHandler.SelectMethod).Methods(http.MethodPut)
	booking.HandleFunc("/department", r.bookingWizardHandler.SelectDepartment).Methods(http.MethodPut)
	booking.HandleFunc("/doctor", r.bookingWizardHandler.SelectDoctor).Methods(http.MethodPut)
	booking.HandleFunc("/date", r.bookingWizardHandler.SelectDate).Methods(http.MethodPut)
	booking.HandleFunc("/next", r.bookingWizardHandler.Next).Methods(http.MethodPost)
	booking.HandleFunc("/back", r.bookingWizardHandler.Back).Methods(http.MethodPost)
	booking.Handle("/submit", r.limited(r.bookingWizardHandler.Submit)).Methods(http.MethodPost)
	booking.HandleFunc("/reset", r.bookingWizardHandler.Reset).Methods(http.MethodPost)
	booking.HandleFunc("/calendar/prev", r.bookingWizardHandler.PrevMonth).Methods(http.MethodPost)
	booking.HandleFunc("/calendar/next", r.bookingWizardHandler.NextMonth).Methods(http.MethodPost)

	// Patient queue screens
	queue := api.PathPrefix("/queue").Subrouter()
	queue.Use(r.authMiddleware.Authenticate)
	queue.HandleFunc("/live", r.liveQueueHandler.GetLiveQueue).Methods(http.MethodGet)
	queue.HandleFunc("/live", r.liveQueueHandler.StopLiveQueue).Methods(http.MethodDelete)
	queue.HandleFunc("/doctors/{doctorId}", r.liveQueueHandler.GetDoctorQueue).Methods(http.MethodGet)
	queue.HandleFunc("/doctors/{doctorId}", r.liveQueueHandler.StopDoctorQueue).Methods(http.MethodDelete)

	// Activity history
	audit := api.PathPrefix("/audit-logs").Subrouter()
	audit.Use(r.authMiddleware.Authenticate)
	audit.HandleFunc("", r.auditLogHandler.GetMyAuditLogs).Methods(http.MethodGet)
	audit.HandleFunc("/{id:[0-9]+}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Queue management (protected - doctor or admin)
	manage := api.PathPrefix("/doctor/queue").Subrouter()
	manage.Use(r.authMiddleware.Authenticate)
	manage.Use(middleware.RequireAdminOrDoctor)

	manage.HandleFunc("", r.queueManagementHandler.GetQueue).Methods(http.MethodGet)
	manage.HandleFunc("/move", r.queueManagementHandler.Move).Methods(http.MethodPost)
	manage.HandleFunc("/pause", r.queueManagementHandler.SetPaused).Methods(http.MethodPut)
	manage.HandleFunc("/walk-in", r.queueManagementHandler.AddWalkIn).Methods(http.MethodPost)
	manage.Handle("/appointments/{id}/start", r.limited(r.queueManagementHandler.StartConsultation)).Methods(http.MethodPost)
	manage.Handle("/appointments/{id}/reassign", r.limited(r.queueManagementHandler.Reassign)).Methods(http.MethodPost)
	manage.Handle("/appointments/{id}/no-show", r.limited(r.queueManagementHandler.MarkNoShow)).Methods(http.MethodPost)

	// Doctor desk (protected - doctor only)
	doctor := api.PathPrefix("/doctor").Subrouter()
	doctor.Use(r.authMiddleware.Authenticate)
	doctor.Use(middleware.RequireDoctor)

	doctor.HandleFunc("/dashboard", r.doctorDashboardHandler.Watch).Methods(http.MethodGet)
	doctor.HandleFunc("/dashboard", r.doctorDashboardHandler.StopWatch).Methods(http.MethodDelete)
	doctor.Handle("/dashboard/call-next", r.limited(r.doctorDashboardHandler.CallNext)).Methods(http.MethodPost)
	doctor.Handle("/dashboard/end-consultation", r.limited(r.doctorDashboardHandler.EndConsultation)).Methods(http.MethodPost)
	doctor.Handle("/dashboard/no-show", r.limited(r.doctorDashboardHandler.MarkNoShow)).Methods(http.MethodPost)
	doctor.HandleFunc("/dashboard/availability", r.doctorDashboardHandler.SetAvailability).Methods(http.MethodPut)
	doctor.Handle("/dashboard/pause-tokens", r.limited(r.doctorDashboardHandler.PauseTokens)).Methods(http.MethodPost)

	doctor.HandleFunc("/cabin", r.cabinDisplayHandler.Watch).Methods(http.MethodGet)
	doctor.HandleFunc("/cabin", r.cabinDisplayHandler.StopWatch).Methods(http.MethodDelete)
	doctor.HandleFunc("/cabin/quick-messages", r.cabinDisplayHandler.GetQuickMessages).Methods(http.MethodGet)
	doctor.HandleFunc("/cabin/announcement", r.cabinDisplayHandler.SetAnnouncement).Methods(http.MethodPut)
	doctor.HandleFunc("/cabin/announcement", r.cabinDisplayHandler.ClearAnnouncement).Methods(http.MethodDelete)

	// Add CORS and metrics middleware
	r.router.Use(r.corsMiddleware.Handle)
	r.router.Use(r.metrics.Middleware)

	return r.router
}

// limited wraps h with the per-client rate limiter when one is configured.
func (r *Router) limited(h http.HandlerFunc) http.Handler {
	if r.rateLimiter == nil {
		return h
	}
	return r.rateLimiter.Limit(h)
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
