package jaat

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the random source behind every uniform pick. Inject a seeded one
// for deterministic tests.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe Rand seeded with seed.
func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

var defaultRand = NewRand(time.Now().UnixNano())

// DefaultRand is the process-wide time-seeded source.
func DefaultRand() Rand { return defaultRand }

// Pick returns a uniform element of items, or the zero value when empty.
func Pick[T any](r Rand, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	if r == nil {
		r = defaultRand
	}
	return items[r.Intn(len(items))]
}

// Sample draws up to n distinct positions of items without replacement.
func Sample[T any](r Rand, items []T, n int) []T {
	if r == nil {
		r = defaultRand
	}
	pool := append([]T(nil), items...)
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]T, 0, n)
	for len(out) < n {
		i := r.Intn(len(pool))
		out = append(out, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
	}
	return out
}
