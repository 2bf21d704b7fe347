package server

import "time"

// Clock supplies the server timestamps every playback computation and
// broadcast envelope is anchored to. Injecting it keeps position math
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func NewRealClock() Clock {
	return realClock{}
}
