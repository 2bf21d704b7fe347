package server

import (
	"sort"

	"github.com/auxroom/auxroom/internal/types"
)

// OrderTracks returns the queue order for a set of tracks: highest vote
// score first, ties broken by earliest upload, then by id so the order is
// a deterministic total order and never flaps between calls.
func OrderTracks(tracks []types.Track) []types.Track {
	ordered := make([]types.Track, len(tracks))
	copy(ordered, tracks)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].VoteScore != ordered[j].VoteScore {
			return ordered[i].VoteScore > ordered[j].VoteScore
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].Id < ordered[j].Id
	})

	return ordered
}

func queueIds(tracks []types.Track) []int {
	ids := make([]int, len(tracks))
	for i, t := range tracks {
		ids[i] = t.Id
	}
	return ids
}

func sameOrder(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
