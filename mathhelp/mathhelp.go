package mathhelp

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"
)

// Round rounds f to the given number of decimal places, half away from zero.
// Values that already have fewer significant decimals are returned unchanged.
func Round(f float64, places int32) float64 {
	r, _ := decimal.NewFromFloat(f).Round(places).Float64()
	return r
}

func Pow2(n uint) uint {
	return 1 << n
}

// Pow2F is 2^n as a float64.
func Pow2F(n int) float64 {
	return math.Ldexp(1, n)
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func EuclidianMod(d, m int) int {
	r := d % m
	if (r < 0 && m > 0) || (r > 0 && m < 0) {
		return r + m
	}
	return r
}
