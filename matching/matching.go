// Package matching ranks travel profiles by how well they suit a requester
// as travel companions.
package matching

import (
	"errors"
	"sort"
	"time"
)

// Scoring weights and the candidate pool cap.
const (
	TravelStyleWeight     = 30
	GroupPreferenceWeight = 20
	SharedInterestPoints  = 5
	SharedInterestCap     = 50
	MaxScore              = TravelStyleWeight + GroupPreferenceWeight + SharedInterestCap

	// DefaultPoolLimit is how many active profiles the store hands to the
	// matcher per request. The cap applies before filtering and scoring.
	DefaultPoolLimit = 50
)

// Preference values with special meaning.
const (
	Any      = "any"
	SameAsMe = "same-as-me"
)

// ErrProfileRequired is returned when the requester has no travel profile yet.
var ErrProfileRequired = errors.New("travel profile required")

// TravelProfile is a traveller's matching preferences. One per user.
type TravelProfile struct {
	UserID          int        `json:"userId"`
	Gender          string     `json:"gender"`
	PreferredGender string     `json:"preferredGender"`
	GroupPreference string     `json:"groupPreference"`
	TravelStyle     string     `json:"travelStyle"`
	Interests       []string   `json:"interests"`
	Destinations    []string   `json:"destinations"`
	Languages       []string   `json:"languages"`
	AvailableFrom   *time.Time `json:"availableFrom,omitempty"`
	AvailableUntil  *time.Time `json:"availableUntil,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// MatchCandidate is a scored profile. Built per request and never stored.
type MatchCandidate struct {
	TravelProfile
	CompatibilityScore int      `json:"compatibilityScore"`
	SharedInterests    []string `json:"sharedInterests"`
}

// Filters are the optional narrowing parameters of a match query.
// Empty fields impose nothing.
type Filters struct {
	Gender          string
	GroupPreference string
	TravelStyle     string
	Destination     string
}

// Result carries the ranked matches and what each filter removed.
type Result struct {
	Matches []MatchCandidate
	Steps   []Step
}

// FindMatches filters the pool for requester, scores every survivor and
// returns them best first. The requester's own profile and inactive
// profiles never appear in the result, whatever the pool contains.
func FindMatches(requesterID int, requester *TravelProfile, pool []TravelProfile, f Filters) (*Result, error) {
	if requester == nil {
		return nil, ErrProfileRequired
	}

	survivors, steps := Apply(Pipeline(requesterID, requester, f), pool)

	matches := make([]MatchCandidate, 0, len(survivors))
	for _, c := range survivors {
		score, shared := Score(requester, &c)
		matches = append(matches, MatchCandidate{
			TravelProfile:      c,
			CompatibilityScore: score,
			SharedInterests:    shared,
		})
	}
	Rank(matches)

	return &Result{Matches: matches, Steps: steps}, nil
}

// Rank orders matches by score, newest profile first on ties, then by user id.
func Rank(matches []MatchCandidate) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.CompatibilityScore != b.CompatibilityScore {
			return a.CompatibilityScore > b.CompatibilityScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.UserID < b.UserID
	})
}
