package quiz

import (
	"math/rand"
	"time"
)

// Rand is the random source behind draws and shuffles. *rand.Rand satisfies it;
// tests supply a scripted sequence.
type Rand interface {
	Intn(n int) int
}

// NewRand returns a time-seeded source.
func NewRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Shuffle returns a uniformly permuted copy of items (Fisher-Yates).
func Shuffle[T any](r Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
