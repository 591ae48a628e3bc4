// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/seitai-booking/internal/api"
	"github.com/codr1/seitai-booking/internal/api/admin"
	"github.com/codr1/seitai-booking/internal/api/auth"
	"github.com/codr1/seitai-booking/internal/api/bookings"
	"github.com/codr1/seitai-booking/internal/api/menu"
	"github.com/codr1/seitai-booking/internal/api/slots"
	"github.com/codr1/seitai-booking/internal/booking"
	"github.com/codr1/seitai-booking/internal/clock"
	"github.com/codr1/seitai-booking/internal/config"
	"github.com/codr1/seitai-booking/internal/db"
	"github.com/codr1/seitai-booking/internal/email"
	"github.com/codr1/seitai-booking/internal/ratelimit"
	"github.com/codr1/seitai-booking/internal/scheduler"
)

type app struct {
	config   *config.Config
	database *db.DB
	limiter  *ratelimit.Limiter
}

// newApp opens storage and wires every handler package.
func newApp(cfg *config.Config) (*app, error) {
	calendar, err := cfg.Calendar()
	if err != nil {
		return nil, fmt.Errorf("clinic hours: %w", err)
	}
	services, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("treatment menu: %w", err)
	}

	a := &app{config: cfg, limiter: ratelimit.New(nil)}

	var store booking.Store
	var userStore auth.UserStore
	switch cfg.Database.Driver {
	case "memory":
		store = booking.NewMemoryStore()
		userStore = auth.NewMemoryUserStore()
	default:
		database, err := db.Open(cfg.Database.Filename)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.database = database
		store = booking.NewSQLiteStore(database)
		userStore = auth.NewSQLiteUserStore(database)
	}

	var sender email.Sender
	if cfg.Features.EnableEmail {
		client, err := email.NewSESClient(
			cfg.Email.AccessKeyID,
			cfg.Email.SecretAccessKey,
			cfg.Email.Region,
			cfg.Email.Sender,
		)
		if err != nil {
			return nil, fmt.Errorf("email client: %w", err)
		}
		sender = client
	}

	var opts []booking.Option
	if notifier := email.NewBookingNotifier(sender, cfg.Clinic.NotifyEmail); notifier != nil {
		opts = append(opts, booking.WithNotifier(notifier))
	}
	workflow := booking.NewService(store, services, opts...)

	auth.Configure(cfg.App.Environment)
	auth.InitHandlers(userStore)
	menu.InitHandlers(services)
	slots.InitHandlers(calendar, services, store, clock.System())
	bookings.InitHandlers(workflow, store, a.limiter)
	admin.InitHandlers(store, services)

	if cfg.Features.EnableDaySheet && cfg.Clinic.NotifyEmail != "" {
		if err := scheduler.Init(); err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		err := scheduler.RegisterDaySheetJob(store, services, sender, cfg.Clinic.NotifyEmail, cfg.Clinic.DaySheetTime)
		if err != nil {
			return nil, fmt.Errorf("day sheet job: %w", err)
		}
		if err := scheduler.Start(); err != nil {
			return nil, fmt.Errorf("scheduler start: %w", err)
		}
	}

	return a, nil
}

func (a *app) Close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
}

func (a *app) newServer() *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithSession,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Public booking API
	mux.HandleFunc("/api/v1/menu", menu.HandleMenu)
	mux.HandleFunc("/api/v1/slots", slots.HandleSlots)
	mux.HandleFunc("/api/v1/bookings", bookings.HandleBookings)
	mux.HandleFunc("/api/v1/bookings/search", bookings.HandleSearch)

	// Customer accounts
	mux.HandleFunc("/api/v1/auth/register", auth.HandleRegister)
	mux.HandleFunc("/api/v1/auth/login", auth.HandleLogin)
	mux.HandleFunc("/api/v1/auth/logout", auth.HandleLogout)
	mux.Handle("/api/v1/auth/me", api.RequireSession(http.HandlerFunc(auth.HandleMe)))
	mux.Handle("/api/v1/auth/first-time", api.RequireSession(http.HandlerFunc(auth.HandleUpdateFirstTime)))

	// Staff pages
	mux.Handle("/admin/bookings", api.RequireSession(http.HandlerFunc(admin.HandleBookings)))
}
