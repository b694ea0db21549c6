// Package leaderboard ranks teams by cumulative points.
package leaderboard

import (
	"cmp"
	"slices"
)

type Standing struct {
	Position int
	TeamID   int64
	TeamName string
	Points   int
}

// Compute orders teams by descending points, ties broken by ascending team
// id. Teams missing from names are listed with an empty name.
func Compute(points map[int64]int, names map[int64]string) []Standing {
	standings := make([]Standing, 0, len(points))
	for id, p := range points {
		standings = append(standings, Standing{TeamID: id, TeamName: names[id], Points: p})
	}

	slices.SortFunc(standings, func(a, b Standing) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.TeamID, b.TeamID)
	})

	for idx := range standings {
		standings[idx].Position = idx + 1
	}
	return standings
}
