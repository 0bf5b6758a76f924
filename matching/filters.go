package matching

import "strings"

// Filter is a single narrowing step over the candidate pool.
type Filter interface {
	Name() string
	Keep(p *TravelProfile) bool
}

// Step describes the result of executing a filtering step.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

type predicate struct {
	name string
	keep func(p *TravelProfile) bool
}

func (f predicate) Name() string               { return f.name }
func (f predicate) Keep(p *TravelProfile) bool { return f.keep(p) }

// Pipeline builds the filters for one match query. Filters that impose no
// restriction are left out.
func Pipeline(requesterID int, requester *TravelProfile, f Filters) []Filter {
	steps := []Filter{
		predicate{name: "eligible", keep: func(p *TravelProfile) bool {
			return p.IsActive && p.UserID != requesterID
		}},
	}

	if g := GenderRestriction(requester, f.Gender); g != "" {
		steps = append(steps, predicate{name: "gender", keep: func(p *TravelProfile) bool {
			return p.Gender == g
		}})
	}

	if gp := f.GroupPreference; gp != "" && gp != Any {
		steps = append(steps, predicate{name: "group_preference", keep: func(p *TravelProfile) bool {
			return p.GroupPreference == gp
		}})
	}

	if ts := f.TravelStyle; ts != "" {
		steps = append(steps, predicate{name: "travel_style", keep: func(p *TravelProfile) bool {
			return p.TravelStyle == ts
		}})
	}

	if d := strings.ToLower(strings.TrimSpace(f.Destination)); d != "" {
		steps = append(steps, predicate{name: "destination", keep: func(p *TravelProfile) bool {
			for _, dest := range p.Destinations {
				if strings.Contains(strings.ToLower(dest), d) {
					return true
				}
			}
			return false
		}})
	}

	return steps
}

// GenderRestriction resolves which candidate gender a query is limited to.
// An explicit filter other than "any" wins over the requester's preference.
// An empty result means no restriction.
func GenderRestriction(requester *TravelProfile, explicit string) string {
	if explicit != "" && explicit != Any {
		return explicit
	}
	switch requester.PreferredGender {
	case "", Any:
		return ""
	case SameAsMe:
		return requester.Gender
	default:
		return requester.PreferredGender
	}
}

// Apply runs filters in order and reports what each one dropped.
func Apply(filters []Filter, pool []TravelProfile) ([]TravelProfile, []Step) {
	left := make([]TravelProfile, len(pool))
	copy(left, pool)

	steps := make([]Step, 0, len(filters))
	for _, f := range filters {
		initial := len(left)
		kept := left[:0]
		for i := range left {
			if f.Keep(&left[i]) {
				kept = append(kept, left[i])
			}
		}
		left = kept
		steps = append(steps, Step{Name: f.Name(), Initial: initial, Dropped: initial - len(left), Left: len(left)})
	}
	return left, steps
}
