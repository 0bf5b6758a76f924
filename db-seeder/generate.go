package main

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/matching"
)

var (
	firstNames   = []string{"Alex", "Sam", "Mia", "Lauri", "Noah", "Olivia", "Leo", "Emil", "Sara", "Luca", "Priya", "Arjun", "Aiko", "Diego", "Zara"}
	lastNames    = []string{"Korhonen", "Sharma", "Nieminen", "Laine", "Tanaka", "Koski", "Garcia", "Aho", "Salmi", "Patel"}
	genders      = []string{"female", "male", "non-binary"}
	groupPrefs   = []string{"solo", "group"}
	travelStyles = []string{"backpacker", "adventure", "luxury", "cultural", "relaxation"}
	interests    = []string{"hiking", "diving", "photography", "food", "museums", "nightlife", "yoga", "surfing", "wildlife", "history", "architecture", "music festivals"}
	destinations = []string{"Bali, Indonesia", "Kyoto, Japan", "Lisbon, Portugal", "Goa, India", "Reykjavik, Iceland", "Cusco, Peru", "Cape Town, South Africa", "Hanoi, Vietnam"}
	languages    = []string{"en", "es", "hi", "ja", "fi", "pt", "fr"}
	bios         = []string{
		"Early riser, always chasing sunrises.",
		"Weekend hiker and weekday coder.",
		"Happy to plan, happier to improvise.",
		"Looking for someone to split hostels with.",
		"Street food first, sightseeing second.",
	}
)

type seedUser struct {
	Email string
	Name  string
}

// generateUsers returns n users. The first two have fixed emails so there is
// always a known login.
func generateUsers(r *rand.Rand, n int) []seedUser {
	fixed := []seedUser{
		{Email: "user1@test.local", Name: "Test User One"},
		{Email: "user2@test.local", Name: "Test User Two"},
	}
	out := make([]seedUser, 0, n)
	used := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		if i < len(fixed) {
			out = append(out, fixed[i])
			used[fixed[i].Email] = struct{}{}
			continue
		}
		first := firstNames[r.Intn(len(firstNames))]
		last := lastNames[r.Intn(len(lastNames))]
		for {
			email := fmt.Sprintf("%s.%s+%d@example.com", strings.ToLower(first), strings.ToLower(last), r.Intn(1000000))
			if _, ok := used[email]; ok {
				continue
			}
			used[email] = struct{}{}
			out = append(out, seedUser{Email: email, Name: first + " " + last})
			break
		}
	}
	return out
}

// generateProfile draws a travel profile for userID. The two fixed users get
// the same style and plenty of shared interests so they match each other well.
func generateProfile(r *rand.Rand, userID, index int) matching.TravelProfile {
	if index < 2 {
		from := time.Now().UTC().AddDate(0, 1, 0).Truncate(24 * time.Hour)
		until := from.AddDate(0, 0, 14)
		return matching.TravelProfile{
			UserID:          userID,
			Gender:          genders[index],
			PreferredGender: matching.Any,
			GroupPreference: "group",
			TravelStyle:     "adventure",
			Interests:       []string{"hiking", "diving", "photography", "food"},
			Destinations:    []string{"Bali, Indonesia", "Kyoto, Japan"},
			Languages:       []string{"en"},
			AvailableFrom:   &from,
			AvailableUntil:  &until,
			Bio:             bios[index],
		}
	}

	preferred := matching.Any
	switch p := r.Float64(); {
	case p < 0.15:
		preferred = matching.SameAsMe
	case p < 0.25:
		preferred = genders[r.Intn(len(genders))]
	}

	tp := matching.TravelProfile{
		UserID:          userID,
		Gender:          genders[r.Intn(len(genders))],
		PreferredGender: preferred,
		GroupPreference: groupPrefs[r.Intn(len(groupPrefs))],
		TravelStyle:     travelStyles[r.Intn(len(travelStyles))],
		Interests:       sample(r, interests, 1+r.Intn(5)),
		Destinations:    sample(r, destinations, 1+r.Intn(3)),
		Languages:       sample(r, languages, 1+r.Intn(2)),
		Bio:             bios[r.Intn(len(bios))],
	}
	if r.Intn(2) == 0 {
		from := time.Now().UTC().AddDate(0, 0, r.Intn(90)).Truncate(24 * time.Hour)
		until := from.AddDate(0, 0, 3+r.Intn(25))
		tp.AvailableFrom, tp.AvailableUntil = &from, &until
	}
	return tp
}

// sample picks n distinct entries of vocab in a random order.
func sample(r *rand.Rand, vocab []string, n int) []string {
	if n > len(vocab) {
		n = len(vocab)
	}
	out := make([]string, 0, n)
	for _, i := range r.Perm(len(vocab))[:n] {
		out = append(out, vocab[i])
	}
	return out
}

// pickPairs gives every user roughly rate*len(ids) distinct others.
func pickPairs(r *rand.Rand, ids []int, rate float64) [][2]int {
	if rate <= 0 || len(ids) < 2 {
		return nil
	}
	per := int(float64(len(ids)-1) * rate)
	var out [][2]int
	for _, me := range ids {
		seen := map[int]struct{}{}
		for len(seen) < per {
			other := ids[r.Intn(len(ids))]
			if other == me {
				continue
			}
			if _, ok := seen[other]; ok {
				continue
			}
			seen[other] = struct{}{}
			out = append(out, [2]int{me, other})
		}
	}
	return out
}

// pickRequests lets a share of users ask one random other user to travel.
// The first fixed user always has a request waiting from the second.
func pickRequests(r *rand.Rand, ids []int, rate float64) [][2]int {
	var out [][2]int
	if len(ids) >= 2 {
		out = append(out, [2]int{ids[1], ids[0]})
	}
	if len(ids) < 3 {
		return out
	}
	for _, me := range ids[2:] {
		if r.Float64() >= rate {
			continue
		}
		other := me
		for other == me {
			other = ids[r.Intn(len(ids))]
		}
		out = append(out, [2]int{me, other})
	}
	return out
}
