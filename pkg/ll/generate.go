package ll

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrExhausted is returned when no valid access address was drawn within the
// attempt budget. Callers may retry with a larger budget.
var ErrExhausted = errors.New("access address generation exhausted")

// EntropySource produces uniformly random 32-bit values. It must be seeded from
// a physical source with at least 20 bits of entropy.
type EntropySource interface {
	Uint32() (uint32, error)
}

// Generate draws candidates from src until one satisfies every rule, giving up
// after maxAttempts draws. It blocks for the whole loop and must not be called
// from time critical contexts.
func Generate(src EntropySource, active ActiveAddressSet, codedPHY bool, maxAttempts uint32) (AccessAddress, error) {
	for i := uint32(0); i < maxAttempts; i++ {
		v, err := src.Uint32()
		if err != nil {
			return 0, fmt.Errorf("read entropy: %w", err)
		}
		aa := AccessAddress(v)
		r := Check(aa, active, codedPHY)
		if r == RuleNone {
			return aa, nil
		}
		zap.L().Debug("rejected access address",
			zap.Stringer("candidate", aa),
			zap.Stringer("rule", r),
			zap.Uint32("attempt", i+1))
	}
	return 0, fmt.Errorf("%w after %d attempts", ErrExhausted, maxAttempts)
}

// SystemEntropy reads from the operating system's random number generator.
type SystemEntropy struct{}

func (SystemEntropy) Uint32() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
