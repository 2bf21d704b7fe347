package server

import (
	"testing"
	"time"

	"github.com/auxroom/auxroom/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestOrderTracks(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	t2 := t0.Add(2 * time.Minute)

	t.Run("sorts by vote score descending", func(t *testing.T) {
		tracks := []types.Track{
			{Id: 1, VoteScore: 0, CreatedAt: t0},
			{Id: 2, VoteScore: 3, CreatedAt: t1},
			{Id: 3, VoteScore: 1, CreatedAt: t2},
		}

		ordered := OrderTracks(tracks)
		assert.Equal(t, []int{2, 3, 1}, queueIds(ordered), "expected tracks ordered by score")
	})

	t.Run("breaks score ties by earliest upload", func(t *testing.T) {
		tracks := []types.Track{
			{Id: 1, VoteScore: 1, CreatedAt: t2},
			{Id: 2, VoteScore: 1, CreatedAt: t0},
			{Id: 3, VoteScore: 1, CreatedAt: t1},
		}

		ordered := OrderTracks(tracks)
		assert.Equal(t, []int{2, 3, 1}, queueIds(ordered), "expected earlier uploads first on equal score")
	})

	t.Run("breaks identical score and upload instant by id", func(t *testing.T) {
		tracks := []types.Track{
			{Id: 9, VoteScore: 2, CreatedAt: t0},
			{Id: 4, VoteScore: 2, CreatedAt: t0},
		}

		ordered := OrderTracks(tracks)
		assert.Equal(t, []int{4, 9}, queueIds(ordered), "expected id as deterministic secondary key")

		// same input must never flap between calls
		again := OrderTracks(tracks)
		assert.Equal(t, queueIds(ordered), queueIds(again), "expected stable order across calls")
	})

	t.Run("does not mutate its input", func(t *testing.T) {
		tracks := []types.Track{
			{Id: 1, VoteScore: 0, CreatedAt: t0},
			{Id: 2, VoteScore: 5, CreatedAt: t1},
		}

		OrderTracks(tracks)
		assert.Equal(t, 1, tracks[0].Id, "expected input slice unchanged")
	})

	t.Run("adding then removing a vote restores the prior order", func(t *testing.T) {
		tracks := []types.Track{
			{Id: 1, VoteScore: 0, CreatedAt: t0},
			{Id: 2, VoteScore: 0, CreatedAt: t1},
		}

		before := queueIds(OrderTracks(tracks))

		tracks[1].VoteScore++
		voted := queueIds(OrderTracks(tracks))
		assert.Equal(t, []int{2, 1}, voted, "expected voted track promoted")

		tracks[1].VoteScore--
		after := queueIds(OrderTracks(tracks))
		assert.Equal(t, before, after, "expected original order restored after unvote")
	})
}

func Test_sameOrder(t *testing.T) {
	assert.True(t, sameOrder(nil, nil))
	assert.True(t, sameOrder([]int{1, 2}, []int{1, 2}))
	assert.False(t, sameOrder([]int{1, 2}, []int{2, 1}))
	assert.False(t, sameOrder([]int{1}, []int{1, 2}))
}
