package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicdesk/scheduler-ai/internal/agent"
	"github.com/clinicdesk/scheduler-ai/internal/http/handlers"
	httpmiddleware "github.com/clinicdesk/scheduler-ai/internal/http/middleware"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ChatHandler         *agent.Handler
	DirectoryHandler    *handlers.DirectoryHandler
	AvailabilityHandler *handlers.AvailabilityHandler
	BookingHandler      *handlers.BookingHandler
	ReportsHandler      *handlers.ReportsHandler
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.Post("/chat", cfg.ChatHandler.Chat)
		r.Post("/chat/reset", cfg.ChatHandler.Reset)
		r.Handle("/chat/ws", cfg.ChatHandler.WebSocket())
	}

	if cfg.DirectoryHandler != nil {
		r.Get("/doctors", cfg.DirectoryHandler.ListDoctors)
		r.Get("/doctors/by-name/{name}", cfg.DirectoryHandler.DoctorByName)
		r.Get("/patients", cfg.DirectoryHandler.ListPatients)
		r.Get("/patients/by-email/{email}", cfg.DirectoryHandler.PatientByEmail)
	}

	if cfg.AvailabilityHandler != nil {
		r.Get("/availability/{doctorID}/{date}", cfg.AvailabilityHandler.OpenSlots)
		r.Get("/availability/{doctorID}/{date}/next", cfg.AvailabilityHandler.NextDays)
	}

	if cfg.BookingHandler != nil {
		r.Post("/book", cfg.BookingHandler.Book)
	}

	if cfg.ReportsHandler != nil {
		r.Post("/report", cfg.ReportsHandler.Ask)
		r.Get("/report/history", cfg.ReportsHandler.History)
		r.Get("/stats/appointments", cfg.ReportsHandler.AppointmentCount)
		r.Get("/stats/busiest-day", cfg.ReportsHandler.BusiestDay)
	}

	// Staff-only operations behind the admin JWT.
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.BookingHandler != nil {
			admin.Post("/admin/reschedule-day", cfg.BookingHandler.RescheduleDay)
		}
		if cfg.ReportsHandler != nil {
			admin.Post("/admin/export", cfg.ReportsHandler.Export)
		}
	})

	return r
}
