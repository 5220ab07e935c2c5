package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/healthdesk/clinic-booking-platform/internal/auth"
	"github.com/healthdesk/clinic-booking-platform/internal/directory"
	httpmiddleware "github.com/healthdesk/clinic-booking-platform/internal/http/middleware"
	"github.com/healthdesk/clinic-booking-platform/internal/identity"
	"github.com/healthdesk/clinic-booking-platform/internal/recovery"
	"github.com/healthdesk/clinic-booking-platform/internal/scheduling"
	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	IdentityHandler    *identity.Handler
	DirectoryHandler   *directory.Handler
	SchedulingHandler  *scheduling.Handler
	RecoveryHandler    *recovery.Handler
	JWTSecret          string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
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
	if cfg.RateLimitRPS > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	requireAuth := httpmiddleware.RequireAuth(cfg.JWTSecret)

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Route("/api/auth", func(r chi.Router) {
			r.Post("/register", cfg.IdentityHandler.Register)
			r.Post("/login", cfg.IdentityHandler.Login)
			if cfg.RecoveryHandler != nil {
				r.Post("/forgot-password", cfg.RecoveryHandler.RequestReset)
				r.Post("/reset-password", cfg.RecoveryHandler.ConfirmReset)
			}
		})

		// Directory reads and slot availability are open so booking pages
		// can render before login.
		public.Get("/api/clinics", cfg.DirectoryHandler.ListClinics)
		public.Get("/api/clinics/{id}", cfg.DirectoryHandler.GetClinic)
		public.Get("/api/doctors", cfg.DirectoryHandler.ListDoctors)
		public.Get("/api/doctors/{id}", cfg.DirectoryHandler.GetDoctor)
		public.Get("/api/appointments/booked-slots/{doctorId}/{date}", cfg.SchedulingHandler.BookedSlots)
	})

	// Authenticated routes
	r.Group(func(private chi.Router) {
		private.Use(requireAuth)

		private.Route("/api/users", func(r chi.Router) {
			r.Get("/profile", cfg.IdentityHandler.GetProfile)
			r.Put("/profile", cfg.IdentityHandler.UpdateProfile)
			r.Delete("/profile", cfg.IdentityHandler.DeleteAccount)
			r.Get("/stats", cfg.SchedulingHandler.Stats)
		})

		private.Route("/api/appointments", func(r chi.Router) {
			r.Post("/", cfg.SchedulingHandler.Book)
			r.Get("/my", cfg.SchedulingHandler.ListMine)
			r.Get("/doctor/{doctorId}", cfg.SchedulingHandler.ListForDoctor)
			r.Put("/{id}", cfg.SchedulingHandler.UpdateStatus)
			r.Put("/{id}/status", cfg.SchedulingHandler.UpdateStatus)
			r.Put("/{id}/cancel", cfg.SchedulingHandler.Cancel)
			r.Delete("/{id}", cfg.SchedulingHandler.Cancel)
		})

		// Clinic writes are admin only; doctor writes are checked against
		// ownership inside the handler.
		private.With(httpmiddleware.RequireRole(auth.RoleAdmin)).Post("/api/clinics", cfg.DirectoryHandler.CreateClinic)
		private.With(httpmiddleware.RequireRole(auth.RoleAdmin)).Put("/api/clinics/{id}", cfg.DirectoryHandler.UpdateClinic)
		private.With(httpmiddleware.RequireRole(auth.RoleAdmin)).Delete("/api/clinics/{id}", cfg.DirectoryHandler.DeleteClinic)

		private.With(httpmiddleware.RequireRole(auth.RoleAdmin)).Post("/api/doctors", cfg.DirectoryHandler.CreateDoctor)
		private.Put("/api/doctors/{id}/slots", cfg.DirectoryHandler.UpdateSlots)
	})

	return r
}
