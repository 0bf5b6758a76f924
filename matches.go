package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/matching"
	"github.com/sramanpati48-hue/TripMate-Modified-sub001/store"
)

const profileRequiredMessage = "Create your travel profile before looking for companions."

type matchView struct {
	matching.MatchCandidate
	User *store.UserSummary `json:"user,omitempty"`
}

type matchesResponse struct {
	Matches []matchView `json:"matches"`
	Total   int         `json:"total"`
}

// filtersFromQuery lower-cases the exact-match filters the same way stored
// profiles are normalised.
func filtersFromQuery(r *http.Request) matching.Filters {
	q := r.URL.Query()
	lower := func(key string) string { return strings.ToLower(strings.TrimSpace(q.Get(key))) }
	return matching.Filters{
		Gender:          lower("gender"),
		GroupPreference: lower("groupPreference"),
		TravelStyle:     lower("travelStyle"),
		Destination:     q.Get("destination"),
	}
}

// page reads limit and offset. A missing limit means the whole result.
func page(r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	limit = matching.DefaultPoolLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > matching.DefaultPoolLimit {
			return 0, 0, false
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// findMatches runs the matcher for userID against the current pool minus
// the users they dismissed.
func (s *server) findMatches(ctx context.Context, userID int, f matching.Filters) (*matching.Result, error) {
	me, err := s.profiles.FetchProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if me == nil {
		return nil, matching.ErrProfileRequired
	}

	pool, err := s.profiles.FetchActiveProfiles(ctx, userID, matching.DefaultPoolLimit)
	if err != nil {
		return nil, err
	}

	dismissed, err := s.profiles.DismissedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(dismissed) > 0 {
		kept := pool[:0]
		for _, p := range pool {
			if _, gone := dismissed[p.UserID]; !gone {
				kept = append(kept, p)
			}
		}
		pool = kept
	}

	res, err := matching.FindMatches(userID, me, pool, f)
	if err != nil {
		return nil, err
	}
	for _, st := range res.Steps {
		s.log.Debug("match filter applied",
			zap.Int("user_id", userID),
			zap.String("filter", st.Name),
			zap.Int("initial", st.Initial),
			zap.Int("dropped", st.Dropped),
			zap.Int("left", st.Left),
		)
	}
	return res, nil
}

// isMatchCandidate reports whether target currently shows up in userID's
// unfiltered matches.
func (s *server) isMatchCandidate(ctx context.Context, userID, target int) (bool, error) {
	res, err := s.findMatches(ctx, userID, matching.Filters{})
	if errors.Is(err, matching.ErrProfileRequired) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, m := range res.Matches {
		if m.UserID == target {
			return true, nil
		}
	}
	return false, nil
}

// GET /matches
func (s *server) matchesHandler() http.HandlerFunc {
	return s.authenticate(s.rateLimit(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFrom(r.Context())

		limit, offset, ok := page(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_pagination")
			return
		}

		res, err := s.findMatches(r.Context(), userID, filtersFromQuery(r))
		if errors.Is(err, matching.ErrProfileRequired) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":   "profile_required",
				"message": profileRequiredMessage,
			})
			return
		}
		if err != nil {
			s.writeInternal(w, r, "finding matches", err)
			return
		}

		total := len(res.Matches)
		start := min(offset, total)
		end := min(start+limit, total)
		window := res.Matches[start:end]

		ids := make([]int, len(window))
		for i, m := range window {
			ids[i] = m.UserID
		}
		summaries := s.loadSummaries(r.Context(), ids)

		views := make([]matchView, len(window))
		for i, m := range window {
			views[i] = matchView{MatchCandidate: m}
			if i < len(summaries) {
				views[i].User = summaries[i]
			}
		}

		writeJSON(w, http.StatusOK, matchesResponse{Matches: views, Total: total})
	}))
}

// POST /matches/{id}/dismiss
func (s *server) dismissMatchHandler() http.HandlerFunc {
	return s.authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userIDFrom(r.Context())
		target, ok := pathID(r)
		if !ok || target == userID {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		tp, err := s.profiles.FetchProfile(r.Context(), target)
		if err != nil {
			s.writeInternal(w, r, "fetching dismissed profile", err)
			return
		}
		if tp == nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		if err := s.profiles.Dismiss(r.Context(), userID, target); err != nil {
			s.writeInternal(w, r, "dismissing match", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]bool{"dismissed": true})
	})
}
