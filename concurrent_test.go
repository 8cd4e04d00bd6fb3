package typetraits

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type concurrentShape struct {
	Name     string
	Vertices []float64
}

// TestConcurrentDerivation_SingleflightCollapsesRacers exercises
// Invariant 2 of the specialization cache (§3): many goroutines racing
// to classify the same never-before-seen type must observe exactly one
// derivation effort, and none may block on the arrival of another's
// result once the winner publishes.
func TestConcurrentDerivation_SingleflightCollapsesRacers(t *testing.T) {
	defer goleak.VerifyNone(t)

	ResetCache()
	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	results := make([]Class, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = Mutability[concurrentShape]()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, Mutable, r)
	}
}

func TestConcurrentCopy_NoRaceOnSharedSourceValue(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := concurrentShape{Name: "tri", Vertices: []float64{0, 1, 2}}
	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	copies := make([]concurrentShape, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			copies[i] = Copy(src)
		}(i)
	}
	wg.Wait()

	for _, c := range copies {
		assert.Equal(t, src.Name, c.Name)
		assert.Equal(t, src.Vertices, c.Vertices)
	}
}
