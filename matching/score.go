package matching

// Score computes how compatible candidate is with requester.
//
// The returned slice lists every interest the two share, in candidate order,
// even when their number exceeds what the score can reward.
func Score(requester, candidate *TravelProfile) (int, []string) {
	score := 0
	if candidate.TravelStyle == requester.TravelStyle {
		score += TravelStyleWeight
	}
	if candidate.GroupPreference == requester.GroupPreference {
		score += GroupPreferenceWeight
	}

	shared := SharedInterests(requester.Interests, candidate.Interests)
	score += min(len(shared)*SharedInterestPoints, SharedInterestCap)

	return score, shared
}

// SharedInterests returns the interests of candidate that mine also lists.
// Duplicates are reported once.
func SharedInterests(mine, candidate []string) []string {
	want := make(map[string]struct{}, len(mine))
	for _, i := range mine {
		want[i] = struct{}{}
	}

	shared := []string{}
	seen := make(map[string]struct{}, len(candidate))
	for _, i := range candidate {
		if _, ok := want[i]; !ok {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		shared = append(shared, i)
	}
	return shared
}
