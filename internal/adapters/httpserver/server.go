// Package httpserver exposes the form endpoints over HTTP.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/lsmadison/clinic-forms/internal/altcha"
	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/core"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server serves the public form API
type Server struct {
	srv          *http.Server
	guard        *core.SpamGuardService
	verifier     *altcha.Verifier
	clientIP     *ClientIPResolver
	store        core.SubmissionStore
	notifier     core.Notifier
	siteBaseURL  string
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewServer creates the HTTP server and wires up the routes
func NewServer(
	cfg *config.Config,
	guard *core.SpamGuardService,
	verifier *altcha.Verifier,
	clientIP *ClientIPResolver,
	store core.SubmissionStore,
	notifier core.Notifier,
	logger *zap.Logger,
) (*Server, error) {
	readTimeout, err := cfg.GetDuration("server.read_timeout")
	if err != nil {
		return nil, err
	}
	writeTimeout, err := cfg.GetDuration("server.write_timeout")
	if err != nil {
		return nil, err
	}

	s := &Server{
		guard:        guard,
		verifier:     verifier,
		clientIP:     clientIP,
		store:        store,
		notifier:     notifier,
		siteBaseURL:  cfg.GetString("site.base_url"),
		maxBodyBytes: int64(cfg.GetInt("server.max_body_bytes")),
		logger:       logger,
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/challenge", s.handleChallenge).Methods(http.MethodGet)
	api.HandleFunc("/forms/contact", s.handleContact).Methods(http.MethodPost)
	api.HandleFunc("/forms/intake", s.handleIntake).Methods(http.MethodPost)
	api.HandleFunc("/forms/subscribe", s.handleSubscribe).Methods(http.MethodPost)
	api.HandleFunc("/forms/unsubscribe", s.handleUnsubscribe).Methods(http.MethodPost)
	api.HandleFunc("/forms/unsubscribe/{email}", s.handleUnsubscribe).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.GetStringSlice("server.cors_origins"),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.srv = &http.Server{
		Addr:         cfg.GetString("server.listen_address"),
		Handler:      c.Handler(s.limitBody(s.logRequests(r))),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.srv.Shutdown(ctx)
}

// notifyCtx returns the context notification goroutines run under. Requests
// finish before their emails do, so the request context cannot be used.
func (s *Server) notifyCtx() context.Context {
	return context.Background()
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("Handled request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
