package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/store"
)

type userStore interface {
	CreateUser(ctx context.Context, email, passwordHash, name string) (int, error)
	Credentials(ctx context.Context, email string) (int, string, error)
	Touch(ctx context.Context, userID int) error
	UserSummaries(ctx context.Context, ids []int) (map[int]store.UserSummary, error)
}

// server carries every dependency the handlers need. It is built once in
// main and never stored at package scope.
type server struct {
	log        *zap.Logger
	tokens     *tokenIssuer
	inputs     *inputValidator
	users      userStore
	profiles   profileStore
	companions companionStore
	hub        *hub
	limiter    rateLimiter // nil disables rate limiting
	ping       func(ctx context.Context) error
}

type serverDeps struct {
	Log        *zap.Logger
	Tokens     *tokenIssuer
	Users      userStore
	Profiles   profileStore
	Companions companionStore
	Limiter    rateLimiter
	Ping       func(ctx context.Context) error
}

func newServer(d serverDeps) *server {
	return &server{
		log:        d.Log,
		tokens:     d.Tokens,
		inputs:     newInputValidator(),
		users:      d.Users,
		profiles:   d.Profiles,
		companions: d.Companions,
		hub:        newHub(),
		limiter:    d.Limiter,
		ping:       d.Ping,
	}
}

func (s *server) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(withCORS(origins))
	r.Use(dataLoaderMiddleware(s.users))

	r.Get("/health", s.healthHandler())

	// Auth
	r.Post("/register", s.registerHandler())
	r.Post("/login", s.loginHandler())

	// Own travel profile
	r.Post("/me/ping", s.pingHandler())
	r.Get("/me/travel-profile", s.getMyProfileHandler())
	r.Put("/me/travel-profile", s.putMyProfileHandler())
	r.Delete("/me/travel-profile", s.deleteMyProfileHandler())

	r.Get("/users/{id}", s.userSummaryHandler())

	// Matching
	r.Get("/matches", s.matchesHandler())
	r.Post("/matches/{id}/dismiss", s.dismissMatchHandler())

	// Companions
	r.Get("/companions", s.companionsHandler())
	r.Get("/companions/requests", s.companionRequestsHandler())
	r.Post("/companions/{id}/request", s.companionActionHandler(actionRequest))
	r.Post("/companions/{id}/accept", s.companionActionHandler(actionAccept))
	r.Post("/companions/{id}/decline", s.companionActionHandler(actionDecline))
	r.Post("/companions/{id}/cancel", s.companionActionHandler(actionCancel))
	r.Delete("/companions/{id}", s.companionActionHandler(actionRemove))

	r.Get("/ws/notifications", s.notificationsHandler())

	return r
}
