package qc

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"

	"github.com/JaimeStill/osprey/internal/catalog"
)

// MinSampleSize is the floor applied to small computed samples.
const MinSampleSize = 10

// SampleSize returns the number of files to inspect in a folder of n files
// at percent. Samples below MinSampleSize are raised to min(n, MinSampleSize).
// The result is always within [1, n] for n >= 1.
func SampleSize(n int, percent float64) int {
	if n < 1 {
		return 0
	}

	raw := int((share(n, percent) + shareScale - 1) / shareScale)
	if raw < MinSampleSize {
		return min(n, MinSampleSize)
	}
	return min(raw, n)
}

const shareScale = 10000

// share returns n*percent/100 in units of 1/shareScale of a file. Rounding
// to a fixed point keeps exact products from landing a float step off an integer.
func share(n int, percent float64) int64 {
	return max(int64(math.Round(float64(n)*percent*100)), 0)
}

// CompileFilter compiles a project's filename filter. A nil or blank
// filter returns nil, making every file eligible.
func CompileFilter(expr *string) (*regexp.Regexp, error) {
	if expr == nil || strings.TrimSpace(*expr) == "" {
		return nil, nil
	}

	re, err := regexp.Compile(*expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return re, nil
}

// Selector draws uniform random samples without replacement.
// It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector drawing from rng. A nil rng is replaced
// with a randomly seeded PCG source.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{rng: rng}
}

// NewSeededSelector creates a Selector with a deterministic PCG source.
func NewSeededSelector(seed uint64) *Selector {
	return NewSelector(rand.New(rand.NewPCG(seed, seed)))
}

// Select draws size distinct files from the files matching filter.
// When fewer files are eligible than size, every eligible file is returned.
func (s *Selector) Select(files []catalog.File, size int, filter *regexp.Regexp) ([]catalog.File, error) {
	eligible := make([]catalog.File, 0, len(files))
	for _, f := range files {
		if filter == nil || filter.MatchString(f.Name) {
			eligible = append(eligible, f)
		}
	}

	if len(eligible) == 0 {
		return nil, ErrNoEligibleFiles
	}

	size = max(1, min(size, len(eligible)))

	s.mu.Lock()
	for i := range size {
		j := i + s.rng.IntN(len(eligible)-i)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}
	s.mu.Unlock()

	return eligible[:size], nil
}
