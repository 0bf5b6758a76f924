package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/matching"
)

type matchesBody struct {
	Matches []struct {
		UserID             int      `json:"userId"`
		CompatibilityScore int      `json:"compatibilityScore"`
		SharedInterests    []string `json:"sharedInterests"`
		Destinations       []string `json:"destinations"`
		User               *struct {
			ID       int    `json:"id"`
			Name     string `json:"name"`
			IsOnline bool   `json:"isOnline"`
		} `json:"user"`
	} `json:"matches"`
	Total int `json:"total"`
}

func matchIDs(b matchesBody) []int {
	out := []int{}
	for _, m := range b.Matches {
		out = append(out, m.UserID)
	}
	return out
}

func TestMatchesSuite(t *testing.T) {
	env := newTestEnv(t, nil)
	fs := env.store

	me := fs.addTraveller(t, "me", func(p *matching.TravelProfile) {
		p.TravelStyle = "adventure"
		p.GroupPreference = "group"
		p.Interests = []string{"hiking", "diving", "photography"}
	})
	best := fs.addTraveller(t, "best", func(p *matching.TravelProfile) {
		p.TravelStyle = "adventure"
		p.GroupPreference = "group"
		p.Interests = []string{"hiking", "diving", "photography", "food"}
		p.Destinations = []string{"Bali, Indonesia"}
	})
	none := fs.addTraveller(t, "none", func(p *matching.TravelProfile) {
		p.TravelStyle = "luxury"
		p.GroupPreference = "solo"
		p.Destinations = []string{"Paris"}
	})
	styleOnly := fs.addTraveller(t, "style", func(p *matching.TravelProfile) {
		p.TravelStyle = "adventure"
		p.GroupPreference = "solo"
	})
	noProfile := fs.addUser(t, "newcomer")

	t.Run("requires a token", func(t *testing.T) {
		w := env.do(http.MethodGet, "/matches", 0, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("requires a travel profile", func(t *testing.T) {
		w := env.do(http.MethodGet, "/matches", noProfile, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody[map[string]string](t, w)
		assert.Equal(t, "profile_required", body["error"])
		assert.Equal(t, profileRequiredMessage, body["message"])
	})

	t.Run("ranks and decorates matches", func(t *testing.T) {
		w := env.do(http.MethodGet, "/matches", me, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decodeBody[matchesBody](t, w)
		assert.Equal(t, 3, body.Total)
		assert.Equal(t, []int{best, styleOnly, none}, matchIDs(body))

		top := body.Matches[0]
		assert.Equal(t, 65, top.CompatibilityScore)
		assert.Equal(t, []string{"hiking", "diving", "photography"}, top.SharedInterests)
		require.NotNil(t, top.User)
		assert.Equal(t, "best", top.User.Name)

		assert.Equal(t, 30, body.Matches[1].CompatibilityScore)
		assert.Equal(t, 0, body.Matches[2].CompatibilityScore)
		assert.Equal(t, []string{}, body.Matches[2].SharedInterests)

		for _, m := range body.Matches {
			assert.NotEqual(t, me, m.UserID)
		}
	})

	t.Run("destination filter is case-insensitive", func(t *testing.T) {
		w := env.do(http.MethodGet, "/matches?destination=bali", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody[matchesBody](t, w)
		assert.Equal(t, []int{best}, matchIDs(body))
		assert.Equal(t, 1, body.Total)
	})

	t.Run("travel style and group filters", func(t *testing.T) {
		w := env.do(http.MethodGet, "/matches?travelStyle=adventure&groupPreference=solo", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int{styleOnly}, matchIDs(decodeBody[matchesBody](t, w)))

		w = env.do(http.MethodGet, "/matches?groupPreference=any", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 3, decodeBody[matchesBody](t, w).Total)
	})

	t.Run("filters ignore case like stored profiles", func(t *testing.T) {
		w := env.do(http.MethodGet, "/matches?travelStyle=Adventure", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int{best, styleOnly}, matchIDs(decodeBody[matchesBody](t, w)))

		w = env.do(http.MethodGet, "/matches?groupPreference=%20Solo%20", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int{styleOnly, none}, matchIDs(decodeBody[matchesBody](t, w)))

		w = env.do(http.MethodGet, "/matches?gender=Female", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 3, decodeBody[matchesBody](t, w).Total)
	})

	t.Run("pagination keeps the total", func(t *testing.T) {
		w := env.do(http.MethodGet, "/matches?limit=1&offset=1", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody[matchesBody](t, w)
		assert.Equal(t, 3, body.Total)
		assert.Equal(t, []int{styleOnly}, matchIDs(body))

		w = env.do(http.MethodGet, "/matches?offset=10", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body = decodeBody[matchesBody](t, w)
		assert.Equal(t, 3, body.Total)
		assert.Empty(t, body.Matches)
	})

	t.Run("rejects bad pagination", func(t *testing.T) {
		for _, q := range []string{"limit=0", "limit=51", "limit=x", "offset=-1"} {
			w := env.do(http.MethodGet, "/matches?"+q, me, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})

	t.Run("dismiss hides a match", func(t *testing.T) {
		w := env.do(http.MethodPost, fmt.Sprintf("/matches/%d/dismiss", none), me, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"dismissed":true}`, w.Body.String())

		w = env.do(http.MethodGet, "/matches", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, matchIDs(decodeBody[matchesBody](t, w)), none)
	})

	t.Run("dismiss unknown or self", func(t *testing.T) {
		w := env.do(http.MethodPost, fmt.Sprintf("/matches/%d/dismiss", me), me, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = env.do(http.MethodPost, "/matches/9999/dismiss", me, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = env.do(http.MethodPost, "/matches/abc/dismiss", me, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("inactive profiles disappear", func(t *testing.T) {
		w := env.do(http.MethodDelete, "/me/travel-profile", styleOnly, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = env.do(http.MethodGet, "/matches", me, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int{best}, matchIDs(decodeBody[matchesBody](t, w)))
	})

	t.Run("store failure is an internal error", func(t *testing.T) {
		fs.err = errors.New("connection refused")
		defer func() { fs.err = nil }()

		w := env.do(http.MethodGet, "/matches", me, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal_error"}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestMatchesPoolCap(t *testing.T) {
	env := newTestEnv(t, nil)
	me := env.store.addTraveller(t, "me", nil)
	for i := 0; i < 60; i++ {
		env.store.addTraveller(t, fmt.Sprintf("t%d", i), nil)
	}

	w := env.do(http.MethodGet, "/matches", me, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[matchesBody](t, w)
	assert.Equal(t, matching.DefaultPoolLimit, env.store.lastPoolLimit)
	assert.Equal(t, matching.DefaultPoolLimit, body.Total)
	assert.Len(t, body.Matches, matching.DefaultPoolLimit)
	assert.Equal(t, 1, env.store.summaryCalls)
}

func TestMatchesRateLimit(t *testing.T) {
	t.Run("blocks over the limit", func(t *testing.T) {
		limiter := &stubLimiter{allow: false}
		env := newTestEnv(t, limiter)
		me := env.store.addTraveller(t, "me", nil)

		w := env.do(http.MethodGet, "/matches", me, nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.JSONEq(t, `{"error":"rate_limited"}`, w.Body.String())
		require.Len(t, limiter.keys, 1)
		assert.True(t, strings.HasPrefix(limiter.keys[0], "uid:"))
	})

	t.Run("fails open", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis down")}
		env := newTestEnv(t, limiter)
		me := env.store.addTraveller(t, "me", nil)

		w := env.do(http.MethodGet, "/matches", me, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("runs after authentication", func(t *testing.T) {
		limiter := &stubLimiter{allow: true}
		env := newTestEnv(t, limiter)

		w := env.do(http.MethodGet, "/matches", 0, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, limiter.keys)
	})
}
