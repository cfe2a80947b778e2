package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/engine"
	"github.com/lazypower/cadence/internal/notify"
	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/store"
)

// Server is the cadence HTTP API server.
type Server struct {
	db       *store.DB
	eng      *engine.Engine
	queue    *notify.Queue
	router   chi.Router
	version  string
	started  time.Time
	logger   *zap.Logger
	gatherer prometheus.Gatherer
}

// Options configures New. Zero values select defaults.
type Options struct {
	Logger *zap.Logger
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// New creates a new Server on db and eng.
func New(db *store.DB, eng *engine.Engine, version string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		db:       db,
		eng:      eng,
		queue:    notify.NewQueue(db),
		version:  version,
		started:  time.Now(),
		logger:   opts.Logger,
		gatherer: opts.Gatherer,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/anchors", s.handleGetAnchors)
		r.Put("/anchors/{name}", s.handleSetAnchor)
		r.Get("/resolve", s.handleResolve)
		r.Get("/next-slot", s.handleNextSlot)

		r.Get("/tiers", s.handleGetTiers)
		r.Put("/tiers", s.handleMergeTiers)
		r.Get("/tiers/{category}", s.handleResolveTier)

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", s.handleListReminders)
			r.Post("/", s.handleCreateReminder)
			r.Get("/{id}", s.handleGetReminder)
			r.Delete("/{id}", s.handleDeleteReminder)
			r.Post("/{id}/schedule", s.handleScheduleReminder)
			r.Post("/{id}/cancel", s.handleCancelReminder)
			r.Post("/{id}/snooze", s.handleSnoozeReminder)
			r.Post("/{id}/ack", s.handleAcknowledge)
			r.Post("/{id}/next", s.handleScheduleNext)
		})
		r.Post("/reschedule", s.handleRescheduleAll)

		r.Get("/escalations/{id}", s.handleGetEscalation)
		r.Post("/escalations/{id}/start", s.handleStartEscalation)
		r.Post("/escalations/{id}/stop", s.handleStopEscalation)
		r.Get("/escalations/{id}/caregiver", s.handleCaregiverEscalations)

		r.Post("/snoozes", s.handleRecordSnooze)
		r.Get("/prompts", s.handleListPrompts)
		r.Post("/prompts/{id}/accept", s.handleAcceptPrompt)
		r.Post("/prompts/{id}/dismiss", s.handleDismissPrompt)

		r.Get("/notifications", s.handlePendingNotifications)
		r.Get("/upcoming", s.handleUpcoming)
		r.Get("/calendar.ics", s.handleCalendar)
		r.Get("/agenda", s.handleAgenda)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}
	version, _ := s.db.SchemaVersion()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime":         time.Since(s.started).Seconds(),
		"db":             dbOK,
		"db_path":        s.db.Path,
		"schema_version": version,
	})
}

// accessLog logs one line per request.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps engine errors onto HTTP statuses.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads a JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &engine.ValidationError{Field: "body", Msg: "invalid json"}
	}
	return nil
}

// decode reads a JSON body into the struct v and validates its tags.
func decode(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	if err := reminder.Validate(v); err != nil {
		return &engine.ValidationError{Msg: err.Error()}
	}
	return nil
}
