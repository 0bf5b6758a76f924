package main

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/store"
)

// Companion request lifecycle
//
// request: none → pending, or accepted when the other side already asked.
// accept (addressee): pending → accepted.
// decline (addressee): pending → declined.
// cancel (requester): pending → cancelled.
// remove (either side): accepted → removed.
//
// After a terminal state a fresh request starts a new row, but only towards
// someone who currently shows up in the requester's matches.

const (
	statusPending   = "pending"
	statusAccepted  = "accepted"
	statusDeclined  = "declined"
	statusCancelled = "cancelled"
	statusRemoved   = "removed"
)

type companionAction string

const (
	actionRequest companionAction = "request"
	actionAccept  companionAction = "accept"
	actionDecline companionAction = "decline"
	actionCancel  companionAction = "cancel"
	actionRemove  companionAction = "remove"
)

var (
	errNoSuchRequest = errors.New("no such companion request")
	errInvalidState  = errors.New("invalid companion request state")
)

type companionStore interface {
	UpdatePair(ctx context.Context, a, b int, decide func(row *store.CompanionRow) (store.PairChange, error)) (int, error)
	Companions(ctx context.Context, userID int) ([]int, error)
	IncomingRequests(ctx context.Context, userID int) ([]int, error)
}

// outcome is what a transition leaves behind.
type outcome struct {
	change  store.PairChange
	state   string
	changed bool
}

// decideTransition applies action by me towards peer to the latest row
// between them. candidate tells whether peer is in me's matches right now.
func decideTransition(action companionAction, row *store.CompanionRow, me, peer int, candidate bool) (outcome, error) {
	fromPeer := row != nil && row.UserID == peer && row.TargetUserID == me
	fromMe := row != nil && row.UserID == me && row.TargetUserID == peer

	move := func(status string) (outcome, error) {
		return outcome{change: store.PairChange{Status: status}, state: status, changed: true}, nil
	}
	stay := func() (outcome, error) {
		return outcome{state: row.Status}, nil
	}

	switch action {
	case actionRequest:
		switch {
		case row != nil && row.Status == statusPending && fromPeer:
			return move(statusAccepted)
		case row != nil && (row.Status == statusPending || row.Status == statusAccepted):
			return stay()
		case !candidate:
			return outcome{}, errNoSuchRequest
		default:
			return outcome{change: store.PairChange{Insert: true}, state: statusPending, changed: true}, nil
		}

	case actionAccept:
		switch {
		case row == nil:
			return outcome{}, errNoSuchRequest
		case row.Status == statusPending && fromPeer:
			return move(statusAccepted)
		case row.Status == statusPending:
			return outcome{}, errNoSuchRequest
		case row.Status == statusAccepted:
			return stay()
		}

	case actionDecline:
		switch {
		case row == nil:
			return outcome{}, errNoSuchRequest
		case row.Status == statusPending && fromPeer:
			return move(statusDeclined)
		case row.Status == statusPending:
			return outcome{}, errNoSuchRequest
		case row.Status == statusDeclined && fromPeer:
			return stay()
		}

	case actionCancel:
		switch {
		case row == nil:
			return outcome{}, errNoSuchRequest
		case row.Status == statusPending && fromMe:
			return move(statusCancelled)
		case row.Status == statusPending:
			return outcome{}, errNoSuchRequest
		case row.Status == statusCancelled && fromMe:
			return stay()
		}

	case actionRemove:
		switch {
		case row == nil:
			return outcome{}, errNoSuchRequest
		case row.Status == statusAccepted:
			return move(statusRemoved)
		case row.Status == statusRemoved:
			return stay()
		}
	}
	return outcome{}, errInvalidState
}

type companionResponse struct {
	State     string `json:"state"`
	RequestID int    `json:"requestId,omitempty"`
}

// POST /companions/{id}/{request|accept|decline|cancel} and DELETE /companions/{id}
func (s *server) companionActionHandler(action companionAction) http.HandlerFunc {
	return s.authenticate(func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFrom(r.Context())
		peer, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if peer == me {
			writeError(w, http.StatusBadRequest, "invalid_target")
			return
		}

		// Candidacy is read before the pair transaction; a dismissal committed in between is not seen.
		candidate := false
		if action == actionRequest {
			var err error
			if candidate, err = s.isMatchCandidate(r.Context(), me, peer); err != nil {
				s.writeInternal(w, r, "checking match candidate", err)
				return
			}
		}

		var out outcome
		id, err := s.companions.UpdatePair(r.Context(), me, peer, func(row *store.CompanionRow) (store.PairChange, error) {
			var err error
			out, err = decideTransition(action, row, me, peer, candidate)
			return out.change, err
		})
		switch {
		case errors.Is(err, errNoSuchRequest):
			writeError(w, http.StatusNotFound, "not_found")
			return
		case errors.Is(err, errInvalidState):
			writeError(w, http.StatusConflict, "invalid_state")
			return
		case err != nil:
			s.writeInternal(w, r, "updating companion request", err)
			return
		}

		if out.changed {
			s.log.Info("companion request updated",
				zap.Int("user_id", me),
				zap.Int("peer_id", peer),
				zap.String("action", string(action)),
				zap.String("state", out.state),
			)
			evt := event{Type: "companion", From: me, Data: map[string]string{
				"action": string(action),
				"state":  out.state,
			}}
			s.hub.sendToUser(peer, evt)
			s.hub.sendToUser(me, evt)
		}
		writeJSON(w, http.StatusOK, companionResponse{State: out.state, RequestID: id})
	})
}

// GET /companions
func (s *server) companionsHandler() http.HandlerFunc {
	return s.authenticate(func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFrom(r.Context())
		ids, err := s.companions.Companions(r.Context(), me)
		if err != nil {
			s.writeInternal(w, r, "listing companions", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]int{"companions": ids})
	})
}

// GET /companions/requests lists users waiting for my answer.
func (s *server) companionRequestsHandler() http.HandlerFunc {
	return s.authenticate(func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFrom(r.Context())
		ids, err := s.companions.IncomingRequests(r.Context(), me)
		if err != nil {
			s.writeInternal(w, r, "listing companion requests", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]int{"requests": ids})
	})
}
