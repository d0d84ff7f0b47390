package chip8

import (
	cryptorand "crypto/rand"
	"math"
	"math/big"
	"math/rand"
	"time"

	"github.com/retroenv/retrogolib/log"
)

// Quirks selects between behaviours that differ across CHIP-8 interpreters.
// The zero value is the COSMAC VIP behaviour.
type Quirks struct {
	// ShiftInPlace makes 8xy6 and 8xyE shift VX itself instead of a copy of VY.
	ShiftInPlace bool

	// KeepIndex makes Fx55 and Fx65 leave I unchanged instead of advancing it by X+1.
	KeepIndex bool
}

// Option configures a VM.
type Option func(*VM)

// WithLogger sets the logger used for instruction tracing.
func WithLogger(logger *log.Logger) Option {
	return func(vm *VM) {
		vm.logger = logger
	}
}

// WithTrace logs every executed instruction at trace level.
func WithTrace(trace bool) Option {
	return func(vm *VM) {
		vm.trace = trace
	}
}

// WithQuirks sets the interpreter quirks.
func WithQuirks(quirks Quirks) Option {
	return func(vm *VM) {
		vm.quirks = quirks
	}
}

// WithRandom replaces the random source of Cxnn. random(n) must return a value in [0, n).
func WithRandom(random func(n int) int) Option {
	return func(vm *VM) {
		vm.random = random
	}
}

// WithSeed makes Cxnn deterministic for the given seed.
func WithSeed(seed int64) Option {
	return WithRandom(seededRandom(seed))
}

func seededRandom(seed int64) func(n int) int {
	return rand.New(rand.NewSource(seed)).Intn
}

// stolen from: https://github.com/docker/cli/blob/aaa7a7cb9567cb5ed2e82facc2bbdd8a85347512/vendor/github.com/docker/docker/pkg/stringid/stringid.go#L81-L93
//
// newSeed tries to use a crypto seed before falling back to time.
func newSeed() int64 {
	cryptoseed, err := cryptorand.Int(cryptorand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		// This should not happen, but worst-case fallback to time-based seed.
		return time.Now().UnixNano()
	}
	return cryptoseed.Int64()
}
