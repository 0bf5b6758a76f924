package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/matching"
	"github.com/sramanpati48-hue/TripMate-Modified-sub001/store"
)

const testSecret = "test-secret-key-for-testing"

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeUser struct {
	email, hash, name string
}

// fakeStore keeps everything in memory and satisfies every store interface
// the server uses.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int
	seq       int
	users     map[int]fakeUser
	online    map[int]bool
	profiles  map[int]matching.TravelProfile
	dismissed map[int]map[int]struct{}
	requests  []store.CompanionRow

	err           error // returned by every profile query when set
	lastPoolLimit int
	summaryCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[int]fakeUser{},
		online:    map[int]bool{},
		profiles:  map[int]matching.TravelProfile{},
		dismissed: map[int]map[int]struct{}{},
	}
}

func (f *fakeStore) tick() time.Time {
	f.seq++
	return epoch.Add(time.Duration(f.seq) * time.Second)
}

func (f *fakeStore) CreateUser(_ context.Context, email, hash, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.email == email {
			return 0, store.ErrEmailExists
		}
	}
	f.nextID++
	f.users[f.nextID] = fakeUser{email: email, hash: hash, name: name}
	f.online[f.nextID] = true
	return f.nextID, nil
}

func (f *fakeStore) Credentials(_ context.Context, email string) (int, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.email == email {
			return id, u.hash, nil
		}
	}
	return 0, "", store.ErrNotFound
}

func (f *fakeStore) Touch(_ context.Context, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = true
	return nil
}

func (f *fakeStore) UserSummaries(_ context.Context, ids []int) (map[int]store.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	out := map[int]store.UserSummary{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = store.UserSummary{ID: id, Name: u.name, IsOnline: f.online[id]}
		}
	}
	return out, nil
}

func (f *fakeStore) FetchProfile(_ context.Context, userID int) (*matching.TravelProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	tp, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &tp, nil
}

func (f *fakeStore) FetchActiveProfiles(_ context.Context, excludeUserID, limit int) ([]matching.TravelProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.lastPoolLimit = limit
	out := []matching.TravelProfile{}
	for id, tp := range f.profiles {
		if tp.IsActive && id != excludeUserID {
			out = append(out, tp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpsertProfile(_ context.Context, tp *matching.TravelProfile) (*matching.TravelProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	saved := *tp
	now := f.tick()
	saved.CreatedAt = now
	if prev, ok := f.profiles[tp.UserID]; ok {
		saved.CreatedAt = prev.CreatedAt
	}
	saved.UpdatedAt = now
	saved.IsActive = true
	f.profiles[tp.UserID] = saved
	return &saved, nil
}

func (f *fakeStore) DeactivateProfile(_ context.Context, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tp, ok := f.profiles[userID]
	if !ok {
		return store.ErrNotFound
	}
	tp.IsActive = false
	f.profiles[userID] = tp
	return nil
}

func (f *fakeStore) DismissedUserIDs(_ context.Context, userID int) (map[int]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := map[int]struct{}{}
	for id := range f.dismissed[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) Dismiss(_ context.Context, userID, dismissedID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dismissed[userID] == nil {
		f.dismissed[userID] = map[int]struct{}{}
	}
	f.dismissed[userID][dismissedID] = struct{}{}
	return nil
}

func (f *fakeStore) UpdatePair(_ context.Context, a, b int, decide func(row *store.CompanionRow) (store.PairChange, error)) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := -1
	for i, r := range f.requests {
		if (r.UserID == a && r.TargetUserID == b) || (r.UserID == b && r.TargetUserID == a) {
			if idx < 0 || !r.UpdatedAt.Before(f.requests[idx].UpdatedAt) {
				idx = i
			}
		}
	}
	var row *store.CompanionRow
	if idx >= 0 {
		copied := f.requests[idx]
		row = &copied
	}

	change, err := decide(row)
	if err != nil {
		return 0, err
	}
	switch {
	case change.Insert:
		now := f.tick()
		id := len(f.requests) + 1
		f.requests = append(f.requests, store.CompanionRow{
			ID: id, UserID: a, TargetUserID: b, Status: statusPending, CreatedAt: now, UpdatedAt: now,
		})
		return id, nil
	case row == nil:
		return 0, nil
	case change.Status != "":
		f.requests[idx].Status = change.Status
		f.requests[idx].UpdatedAt = f.tick()
	}
	return row.ID, nil
}

func (f *fakeStore) Companions(_ context.Context, userID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []int{}
	for _, r := range f.requests {
		if r.Status != statusAccepted {
			continue
		}
		switch userID {
		case r.UserID:
			out = append(out, r.TargetUserID)
		case r.TargetUserID:
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

func (f *fakeStore) IncomingRequests(_ context.Context, userID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []int{}
	for _, r := range f.requests {
		if r.TargetUserID == userID && r.Status == statusPending {
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

// addTraveller registers a user with an active profile built by mutate.
func (f *fakeStore) addTraveller(t *testing.T, name string, mutate func(p *matching.TravelProfile)) int {
	t.Helper()
	id, err := f.CreateUser(context.Background(), name+"@example.com", "x", name)
	require.NoError(t, err)
	tp := matching.TravelProfile{
		UserID:          id,
		Gender:          "female",
		PreferredGender: matching.Any,
		GroupPreference: "solo",
		TravelStyle:     "backpacker",
		Interests:       []string{},
		Destinations:    []string{},
		Languages:       []string{},
	}
	if mutate != nil {
		mutate(&tp)
	}
	_, err = f.UpsertProfile(context.Background(), &tp)
	require.NoError(t, err)
	return id
}

// addUser registers a user without a travel profile.
func (f *fakeStore) addUser(t *testing.T, name string) int {
	t.Helper()
	id, err := f.CreateUser(context.Background(), name+"@example.com", "x", name)
	require.NoError(t, err)
	return id
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

type testEnv struct {
	t      *testing.T
	store  *fakeStore
	server *server
	router http.Handler
}

func newTestEnv(t *testing.T, limiter rateLimiter) *testEnv {
	t.Helper()
	fs := newFakeStore()
	deps := serverDeps{
		Log:        zap.NewNop(),
		Tokens:     newTokenIssuer(testSecret, time.Hour),
		Users:      fs,
		Profiles:   fs,
		Companions: fs,
		Limiter:    limiter,
	}
	s := newServer(deps)
	return &testEnv{t: t, store: fs, server: s, router: s.routes(nil)}
}

func (e *testEnv) token(userID int) string {
	e.t.Helper()
	tok, err := e.server.tokens.issue(userID)
	require.NoError(e.t, err)
	return tok
}

// do sends a request through the full router. A zero userID sends no token.
func (e *testEnv) do(method, path string, userID int, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+e.token(userID))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}
