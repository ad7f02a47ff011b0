package calculator

import (
	"fmt"
	"math/bits"

	"FactionVault/internal/model"
)

// AddU64 returns a+b or ErrArithmeticOverflow.
func AddU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%d + %d: %w", a, b, model.ErrArithmeticOverflow)
	}
	return sum, nil
}

// SubU64 returns a-b or ErrArithmeticUnderflow.
func SubU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%d - %d: %w", a, b, model.ErrArithmeticUnderflow)
	}
	return diff, nil
}

// MulDivU64 returns a*b/d using a 128-bit intermediate, truncating.
// It fails if d is zero or the quotient does not fit in 64 bits.
func MulDivU64(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("divide by zero: %w", model.ErrArithmeticOverflow)
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, fmt.Errorf("%d * %d / %d: %w", a, b, d, model.ErrArithmeticOverflow)
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}
