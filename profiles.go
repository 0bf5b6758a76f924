package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/matching"
	"github.com/sramanpati48-hue/TripMate-Modified-sub001/store"
)

const dateLayout = "2006-01-02"

type profileStore interface {
	FetchProfile(ctx context.Context, userID int) (*matching.TravelProfile, error)
	FetchActiveProfiles(ctx context.Context, excludeUserID, limit int) ([]matching.TravelProfile, error)
	UpsertProfile(ctx context.Context, tp *matching.TravelProfile) (*matching.TravelProfile, error)
	DeactivateProfile(ctx context.Context, userID int) error
	DismissedUserIDs(ctx context.Context, userID int) (map[int]struct{}, error)
	Dismiss(ctx context.Context, userID, dismissedID int) error
}

type travelProfileInput struct {
	Gender          string   `json:"gender" validate:"required,oneof=female male non-binary other"`
	PreferredGender string   `json:"preferredGender" validate:"required,oneof=any same-as-me female male non-binary other"`
	GroupPreference string   `json:"groupPreference" validate:"required,oneof=solo group"`
	TravelStyle     string   `json:"travelStyle" validate:"required,max=40,tag"`
	Interests       []string `json:"interests" validate:"max=30,dive,max=40,tag"`
	Destinations    []string `json:"destinations" validate:"max=20,dive,max=100"`
	Languages       []string `json:"languages" validate:"max=10,dive,max=40,tag"`
	AvailableFrom   string   `json:"availableFrom,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AvailableUntil  string   `json:"availableUntil,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Bio             string   `json:"bio,omitempty" validate:"max=1000"`
}

// normalize lower-cases enum and tag values, trims everything and drops
// empty or repeated set entries. Destinations keep their case for display.
func (in *travelProfileInput) normalize() {
	lower := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	in.Gender = lower(in.Gender)
	in.PreferredGender = lower(in.PreferredGender)
	in.GroupPreference = lower(in.GroupPreference)
	in.TravelStyle = lower(in.TravelStyle)
	in.Interests = normalizeSet(in.Interests, lower)
	in.Languages = normalizeSet(in.Languages, lower)
	in.Destinations = normalizeSet(in.Destinations, strings.TrimSpace)
	in.AvailableFrom = strings.TrimSpace(in.AvailableFrom)
	in.AvailableUntil = strings.TrimSpace(in.AvailableUntil)
	in.Bio = strings.TrimSpace(in.Bio)
}

func normalizeSet(values []string, norm func(string) string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = norm(v)
		key := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// toProfile validates in and converts it. It returns nil and the problems
// found when the input is unusable.
func (s *server) toProfile(userID int, in travelProfileInput) (*matching.TravelProfile, map[string]string) {
	in.normalize()
	if details := s.validate(in); details != nil {
		return nil, details
	}

	tp := &matching.TravelProfile{
		UserID:          userID,
		Gender:          in.Gender,
		PreferredGender: in.PreferredGender,
		GroupPreference: in.GroupPreference,
		TravelStyle:     in.TravelStyle,
		Interests:       in.Interests,
		Destinations:    in.Destinations,
		Languages:       in.Languages,
		AvailableFrom:   parseDate(in.AvailableFrom),
		AvailableUntil:  parseDate(in.AvailableUntil),
		Bio:             in.Bio,
		IsActive:        true,
	}
	if tp.AvailableFrom != nil && tp.AvailableUntil != nil && tp.AvailableUntil.Before(*tp.AvailableFrom) {
		return nil, map[string]string{"availableUntil": "gtefield"}
	}
	return tp, nil
}

// GET /me/travel-profile
func (s *server) getMyProfileHandler() http.HandlerFunc {
	return s.authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFrom(r.Context())
		tp, err := s.profiles.FetchProfile(r.Context(), userID)
		if err != nil {
			s.writeInternal(w, r, "fetching travel profile", err)
			return
		}
		if tp == nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeJSON(w, http.StatusOK, tp)
	})
}

// PUT /me/travel-profile
func (s *server) putMyProfileHandler() http.HandlerFunc {
	return s.authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFrom(r.Context())

		var in travelProfileInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		tp, details := s.toProfile(userID, in)
		if details != nil {
			writeValidation(w, details)
			return
		}

		saved, err := s.profiles.UpsertProfile(r.Context(), tp)
		if err != nil {
			s.writeInternal(w, r, "saving travel profile", err)
			return
		}
		s.log.Debug("travel profile saved", zap.Int("user_id", userID))
		writeJSON(w, http.StatusOK, saved)
	})
}

// DELETE /me/travel-profile hides the profile from matching.
func (s *server) deleteMyProfileHandler() http.HandlerFunc {
	return s.authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFrom(r.Context())
		err := s.profiles.DeactivateProfile(r.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if err != nil {
			s.writeInternal(w, r, "deactivating travel profile", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// GET /users/{id}
func (s *server) userSummaryHandler() http.HandlerFunc {
	return s.authenticate(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		summary, err := s.loadSummary(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if err != nil {
			s.writeInternal(w, r, "loading user summary", err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})
}
