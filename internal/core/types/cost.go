package types

import (
	"github.com/shopspring/decimal"
)

// Cost represents a monetary unit cost with full precision.
// decimal.Decimal avoids the floating-point drift that a weighted-average
// cost recomputed on every receipt would otherwise accumulate.
type Cost = decimal.Decimal

// NewCostFromString creates a Cost from a string.
// This is the preferred constructor for values coming off the wire.
func NewCostFromString(s string) (Cost, error) {
	return decimal.NewFromString(s)
}

// NewCostFromFloat creates a Cost from a float.
// WARNING: prefer NewCostFromString for exact values.
func NewCostFromFloat(f float64) Cost {
	return decimal.NewFromFloat(f)
}

// MustCost creates a Cost from a string, panics on error.
// Use only for constants and tests.
func MustCost(s string) Cost {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroCost returns the zero Cost value.
func ZeroCost() Cost {
	return decimal.Zero
}

// WeightedAverageCost returns the new unit cost after receiving recvQty units
// at recvCost on top of oldQty units carried at oldCost:
//
//	(oldQty*oldCost + recvQty*recvCost) / (oldQty + recvQty)
//
// When the combined quantity is not positive the received cost wins, so a
// receipt into an empty (or negative) bucket resets the cost basis.
func WeightedAverageCost(oldQty Quantity, oldCost Cost, recvQty Quantity, recvCost Cost) Cost {
	total := oldQty + recvQty
	if total <= 0 || oldQty <= 0 {
		return recvCost
	}
	oldPart := oldCost.Mul(decimal.NewFromInt(oldQty.Int64Scaled()))
	newPart := recvCost.Mul(decimal.NewFromInt(recvQty.Int64Scaled()))
	return oldPart.Add(newPart).DivRound(decimal.NewFromInt(total.Int64Scaled()), 6)
}
