// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dedup

import "fmt"

// Rejection records one duplicate loser: the path removed, the path kept in
// its place, and a human-readable reason for the quarantine/dedup log.
type Rejection struct {
	Rejected string
	Kept     string
	Reason   string
}

// tier1 groups files by normalized title and keeps the highest quality file
// in each group of size > 1.
func tier1(files []string, ffprobeBin string) (keepers []string, rejected []Rejection) {
	byTitle := make(map[string][]string)
	var order []string
	for _, f := range files {
		norm := NormalizeTitle(Title(f))
		if _, seen := byTitle[norm]; !seen {
			order = append(order, norm)
		}
		byTitle[norm] = append(byTitle[norm], f)
	}

	for _, norm := range order {
		group := byTitle[norm]
		if len(group) == 1 {
			keepers = append(keepers, group[0])
			continue
		}

		winner := highestQuality(group, ffprobeBin)
		keepers = append(keepers, winner)
		for _, loser := range group {
			if loser == winner {
				continue
			}
			rejected = append(rejected, Rejection{
				Rejected: loser,
				Kept:     winner,
				Reason: fmt.Sprintf("tag-dedup: %q kept %s over %s",
					norm, QualityLabel(winner), QualityLabel(loser)),
			})
		}
	}
	return keepers, rejected
}

func highestQuality(files []string, ffprobeBin string) string {
	best := files[0]
	bestScore := QualityScore(best, ffprobeBin)
	for _, f := range files[1:] {
		if s := QualityScore(f, ffprobeBin); s > bestScore {
			best, bestScore = f, s
		}
	}
	return best
}
