package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lexvoice/legal-intake-platform/internal/api"
	httpmiddleware "github.com/lexvoice/legal-intake-platform/internal/http/middleware"
	"github.com/lexvoice/legal-intake-platform/internal/telephony"
	"github.com/lexvoice/legal-intake-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	VoiceHandler    *telephony.Handler
	Dashboard       *api.DashboardHandler
	AdminAuthSecret string
	MetricsHandler  http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// Twilio webhooks stay public; they carry their own signature check.
		if cfg.VoiceHandler != nil {
			r.Route("/twilio", func(r chi.Router) {
				r.Post("/webhook", cfg.VoiceHandler.VoiceWebhook)
				r.Post("/handle-response", cfg.VoiceHandler.HandleResponse)
				r.Post("/handle-slot-selection", cfg.VoiceHandler.HandleSlotSelection)
				r.Post("/handle-transfer-response", cfg.VoiceHandler.HandleTransferResponse)
			})
		}

		// Dashboard endpoints behind admin JWT auth
		if cfg.Dashboard != nil {
			r.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
				admin.Get("/calls", cfg.Dashboard.ListCalls)
				admin.Get("/calls/{id}", cfg.Dashboard.GetCall)
				admin.Get("/calls/{id}/state", cfg.Dashboard.GetCallState)
				admin.Get("/appointments", cfg.Dashboard.ListAppointments)
				admin.Get("/appointments/{id}", cfg.Dashboard.GetAppointment)
				admin.Get("/calendar/availability", cfg.Dashboard.Availability)
				admin.Post("/email/send-confirmation", cfg.Dashboard.SendConfirmation)
			})
		}
	})

	return r
}
