package server

import "time"

// playbackState is the per-room playback record. It is only ever touched
// from the room's own goroutine, so it carries no lock of its own.
//
// Position is tracked by anchoring startedAt: resume shifts startedAt
// forward by the pause duration, so now - startedAt is always the
// cumulative played time across any number of pause/resume cycles.
type playbackState struct {
	currentTrackId int
	isPlaying      bool
	startedAt      time.Time
	pausedAt       time.Time
}

func (p *playbackState) start(trackId int, now time.Time) {
	p.currentTrackId = trackId
	p.isPlaying = true
	p.startedAt = now
	p.pausedAt = time.Time{}
}

// pause is legal only while playing. Returns the position at the pause
// instant.
func (p *playbackState) pause(now time.Time) (float64, bool) {
	if !p.isPlaying || p.currentTrackId == 0 {
		return 0, false
	}

	p.isPlaying = false
	p.pausedAt = now

	return p.position(now), true
}

// resume is legal only while paused. The pause duration is added to
// startedAt so position continues from where it left off.
func (p *playbackState) resume(now time.Time) (float64, bool) {
	if p.isPlaying || p.currentTrackId == 0 || p.pausedAt.IsZero() {
		return 0, false
	}

	p.startedAt = p.startedAt.Add(now.Sub(p.pausedAt))
	p.isPlaying = true
	p.pausedAt = time.Time{}

	return p.position(now), true
}

func (p *playbackState) stop() {
	p.currentTrackId = 0
	p.isPlaying = false
	p.startedAt = time.Time{}
	p.pausedAt = time.Time{}
}

// position reports elapsed played seconds of the current track. It is
// non-negative and non-decreasing while playing.
func (p *playbackState) position(now time.Time) float64 {
	if p.currentTrackId == 0 || p.startedAt.IsZero() {
		return 0
	}

	var elapsed time.Duration
	if p.isPlaying {
		elapsed = now.Sub(p.startedAt)
	} else {
		elapsed = p.pausedAt.Sub(p.startedAt)
	}

	if elapsed < 0 {
		return 0
	}

	return elapsed.Seconds()
}
