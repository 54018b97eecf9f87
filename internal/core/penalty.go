package core

import (
	"cmp"
	"math"
	"slices"
)

// penaltyDenominator shapes the attenuation curve exp(-(k/2.67)^2).
const penaltyDenominator = 2.67

// penaltyFactor returns the strength left to the contributor at rank k,
// counted from zero for the strongest one.
func penaltyFactor(rank int) float64 {
	x := float64(rank) / penaltyDenominator
	return math.Exp(-x * x)
}

type penalized struct {
	multiplier float64
	seq        uint64
}

// stackingMultiplier folds penalizable multipliers of one operator into a
// single multiplier. Boosts and reductions are ranked separately.
func stackingMultiplier(values []penalized) float64 {
	var up, down []penalized
	for _, v := range values {
		switch {
		case v.multiplier > 1:
			up = append(up, v)
		case v.multiplier < 1:
			down = append(down, v)
		}
	}
	return penaltyChain(up) * penaltyChain(down)
}

func penaltyChain(values []penalized) float64 {
	slices.SortStableFunc(values, func(a, b penalized) int {
		if c := cmp.Compare(math.Abs(b.multiplier-1), math.Abs(a.multiplier-1)); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	result := 1.0
	for rank, v := range values {
		result *= 1 + (v.multiplier-1)*penaltyFactor(rank)
	}
	return result
}
