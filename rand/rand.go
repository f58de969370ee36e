package rand

import (
	"math"

	"github.com/pkg/errors"
	"github.com/seehuhn/mt19937"
)

// A Generator uses a goroutine to populate batches of random numbers from a
// Mersenne twister. Every stochastic choice in partree (cut tie-breaks,
// stochastic ML search, leaf/point draws) flows through a Generator so that
// an entire aggregation run is reproducible from a single seed.
type Generator struct {
	ch   chan int64
	quit chan struct{}
}

// NewGenerator starts a new background PRNG based on the given seed
func NewGenerator(seed int64) (*Generator, error) {
	return start(func(r *mt19937.MT19937) {
		r.Seed(seed)
	})
}

// NewGeneratorSlice starts a new background PRNG seeded from a slice of
// values (the canonical MT19937 array seeding).
func NewGeneratorSlice(seed []uint64) (*Generator, error) {
	if len(seed) < 1 {
		return nil, errors.Errorf("Can not seed a generator from an empty slice")
	}
	return start(func(r *mt19937.MT19937) {
		r.SeedFromSlice(seed)
	})
}

func start(seeder func(r *mt19937.MT19937)) (*Generator, error) {
	numChan := make(chan int64, 1024)
	quit := make(chan struct{})

	go func() {
		r := mt19937.New()
		seeder(r)
		for {
			select {
			case numChan <- r.Int63():
			case <-quit:
				return
			}
		}
	}()

	g := &Generator{
		ch:   numChan,
		quit: quit,
	}

	return g, nil
}

// Close stops the background goroutine. The Generator may not be used again
// after Close.
func (g *Generator) Close() {
	close(g.quit)
}

// Child returns a new Generator seeded from this one. A forest hands every
// tree its own child so tree builds are independent AND deterministic no
// matter how the parallel builds are scheduled.
func (g *Generator) Child() (*Generator, error) {
	return NewGenerator(g.Int63())
}

// Int63 provides the same interface as Go's math/rand, but with pre-generation.
func (g *Generator) Int63() int64 {
	return <-g.ch
}

// Int63n is a copy of the current Go code
func (g *Generator) Int63n(n int64) int64 {
	if n <= 0 {
		panic("invalid argument to Int63n")
	}

	if n&(n-1) == 0 { // n is power of two, can mask
		return g.Int63() & (n - 1)
	}

	max := int64((1 << 63) - 1 - (1<<63)%uint64(n))
	v := g.Int63()
	for v > max {
		v = g.Int63()
	}

	return v % n
}

// IntN is a convenience wrapper around Int63n for index selection.
func (g *Generator) IntN(n int) int {
	return int(g.Int63n(int64(n)))
}

// Float64 uses the commented, simpler implmentation since we don't have the
// same support requirements for users
func (g *Generator) Float64() float64 {
	// See the Go lang comments for Rand Float64 implementation for details
	return float64(g.Int63n(1<<53)) / (1 << 53)
}

// NormFloat64 returns a standard normal variate via the Marsaglia polar
// method. We skip the stdlib ziggurat: normal draws are not the hot path
// here (tree walks are), and the polar method keeps us on our own PRNG.
func (g *Generator) NormFloat64() float64 {
	for {
		u := 2*g.Float64() - 1
		v := 2*g.Float64() - 1
		s := u*u + v*v
		if s > 0 && s < 1 {
			return u * math.Sqrt(-2*math.Log(s)/s)
		}
	}
}
