// Package entropy provides the seeded random streams that drive a season.
// Every (seed, day, purpose) triple yields its own reproducible stream, so a
// draw taken for one concern can never shift the sequence seen by another.
package entropy

import (
	"math/rand"
)

// Purpose separates independent substreams of the same simulated day.
type Purpose uint64

const (
	PurposeRuns       Purpose = 0    // Participation, run metrics, paths, run ids
	PurposePopulation Purpose = 300  // Roster home-cell placement (day 0)
	PurposeDefections Purpose = 9999 // Defector sampling
)

// Stream is a deterministic pseudo-random source keyed by seed, day and purpose.
// Not safe for concurrent use; a day is simulated on a single goroutine.
type Stream struct {
	Seed    int64
	Day     int
	Purpose Purpose

	rng   *rand.Rand
	draws uint64
}

// NewStream creates the substream for one day and purpose.
func NewStream(seed int64, day int, purpose Purpose) *Stream {
	return &Stream{
		Seed:    seed,
		Day:     day,
		Purpose: purpose,
		rng:     rand.New(rand.NewSource(mix(seed, day, purpose))),
	}
}

// Float returns a value in [0, 1).
func (s *Stream) Float() float64 {
	s.draws++
	return s.rng.Float64()
}

// Uniform returns a value in [lo, hi).
func (s *Stream) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.Float()
}

// IntRange returns an integer in [lo, hi], both ends inclusive.
func (s *Stream) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	s.draws++
	return lo + s.rng.Intn(hi-lo+1)
}

// Intn returns an integer in [0, n). Panics if n <= 0, like math/rand.
func (s *Stream) Intn(n int) int {
	s.draws++
	return s.rng.Intn(n)
}

// Read fills p with pseudo-random bytes. Lets the stream back uuid generation.
func (s *Stream) Read(p []byte) (int, error) {
	s.draws++
	return s.rng.Read(p)
}

// Draws reports how many draws have been taken. Used in debug logging.
func (s *Stream) Draws() uint64 {
	return s.draws
}

// mix folds the key into a single source seed with the splitmix64 finalizer.
// Neighbouring days and purposes land far apart in the generator's state space.
func mix(seed int64, day int, purpose Purpose) int64 {
	z := uint64(seed)
	z = splitmix(z ^ uint64(int64(day))*0x9e3779b97f4a7c15)
	z = splitmix(z ^ uint64(purpose)*0xbf58476d1ce4e5b9)
	return int64(z &^ (1 << 63))
}

func splitmix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
