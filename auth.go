package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/store"
)

// ctxKey is the key type for values this package stores in a request context.
type ctxKey string

const userIDKey ctxKey = "userID"

var errUnauthenticated = errors.New("unauthenticated")

func userIDFrom(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey).(int)
	return id, ok
}

func withUserID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

type tokenClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// tokenIssuer signs and verifies HS256 bearer tokens.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func newTokenIssuer(secret string, ttl time.Duration) *tokenIssuer {
	return &tokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (t *tokenIssuer) issue(userID int) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *tokenIssuer) parse(tokenStr string) (int, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: %v", errUnauthenticated, err)
	}
	if claims.UserID <= 0 {
		return 0, fmt.Errorf("%w: missing user id", errUnauthenticated)
	}
	return claims.UserID, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// userIDFromRequest reads the caller from the Authorization header, falling
// back to a token query parameter when allowQuery is set (browsers cannot
// put headers on a WebSocket handshake).
func (s *server) userIDFromRequest(r *http.Request, allowQuery bool) (int, error) {
	tok, ok := bearerToken(r)
	if !ok && allowQuery {
		tok = r.URL.Query().Get("token")
		ok = tok != ""
	}
	if !ok {
		return 0, errUnauthenticated
	}
	return s.tokens.parse(tok)
}

// authenticate rejects requests without a valid bearer token and puts the
// caller's id into the request context.
func (s *server) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.userIDFromRequest(r, false)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := s.users.Touch(r.Context(), userID); err != nil {
			s.log.Warn("failed to update last_online", zap.Int("user_id", userID), zap.Error(err))
		}
		next(w, r.WithContext(withUserID(r.Context(), userID)))
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name,omitempty" validate:"max=80"`
}

type tokenResponse struct {
	Token string `json:"token"`
	ID    int    `json:"id"`
}

func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if addr, err := mail.ParseAddress(email); err == nil {
		email = addr.Address
	}
	return strings.ToLower(email)
}

// POST /register
func (s *server) registerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		req.Email = normalizeEmail(req.Email)
		req.Name = strings.TrimSpace(req.Name)
		if details := s.validate(req); details != nil {
			writeValidation(w, details)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.writeInternal(w, r, "hashing password", err)
			return
		}

		id, err := s.users.CreateUser(r.Context(), req.Email, string(hash), req.Name)
		if errors.Is(err, store.ErrEmailExists) {
			writeError(w, http.StatusConflict, "email_exists")
			return
		}
		if err != nil {
			s.writeInternal(w, r, "registering user", err)
			return
		}

		token, err := s.tokens.issue(id)
		if err != nil {
			s.writeInternal(w, r, "issuing token", err)
			return
		}
		s.log.Info("user registered", zap.Int("user_id", id))
		writeJSON(w, http.StatusCreated, tokenResponse{Token: token, ID: id})
	}
}

// POST /login
func (s *server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		req.Email = normalizeEmail(req.Email)
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}

		id, hash, err := s.users.Credentials(r.Context(), req.Email)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		if err != nil {
			s.writeInternal(w, r, "loading credentials", err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}

		if err := s.users.Touch(r.Context(), id); err != nil {
			s.log.Warn("failed to update last_online", zap.Int("user_id", id), zap.Error(err))
		}

		token, err := s.tokens.issue(id)
		if err != nil {
			s.writeInternal(w, r, "issuing token", err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{Token: token, ID: id})
	}
}
