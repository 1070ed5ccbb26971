/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package pricing holds the pure price-discovery math of a sale: the pro-rata
// clearing price, the time-weighted loss penalty and the payout formula.
// All amounts are integer-valued decimals in the deposit asset's smallest unit.
package pricing

import (
	"math/bits"

	"github.com/shopspring/decimal"
)

// One is the fixed-point representation of 100% for loss penalties.
var One = decimal.New(1, 18)

const oneUnits uint64 = 1_000_000_000_000_000_000

// exponentPrecision is the number of decimal places kept in the curve's exponent.
const exponentPrecision = 18

// Log2 returns floor(log2(x)) for x >= 1, and 0 for x == 0.
func Log2(x uint64) uint {
	if x == 0 {
		return 0
	}
	return uint(bits.Len64(x) - 1)
}

// FloorDiv returns floor(a / b) for non-negative integer-valued a and positive b.
func FloorDiv(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}

// ClearingPrice returns max(floor(totalDeposited / maxSupply), minPrice).
// maxSupply must be positive; sessions with no supply are rejected at creation.
func ClearingPrice(totalDeposited decimal.Decimal, maxSupply int64, minPrice decimal.Decimal) decimal.Decimal {
	price := FloorDiv(totalDeposited, decimal.NewFromInt(maxSupply))
	if price.LessThan(minPrice) {
		return minPrice
	}
	return price
}

// LossPenalty returns the fraction of a deposit made at now that is forfeited on
// exit, in [0, One]. It grows convexly from 0 at allocationStart to One at
// allocationEnd: (now-allocationStart)^(log2(One)/log2(span)) with
// span = (allocationEnd-1) - allocationStart.
func LossPenalty(allocationStart, allocationEnd, now int64) decimal.Decimal {
	if now <= allocationStart {
		return decimal.Zero
	}
	if now >= allocationEnd {
		return One
	}

	span := (allocationEnd - 1) - allocationStart
	spanLog := Log2(uint64(span))
	if spanLog == 0 {
		// exponent undefined for windows this narrow
		return One
	}

	exponent := decimal.NewFromInt(int64(Log2(oneUnits))).
		DivRound(decimal.NewFromInt(int64(spanLog)), exponentPrecision)
	raw, err := decimal.NewFromInt(now-allocationStart).PowWithPrecision(exponent, 0)
	if err != nil || raw.GreaterThanOrEqual(One) {
		return One
	}
	return raw.Floor()
}

// WeightedPenalty folds a new deposit's penalty into an existing running
// average, weighting each by its amount.
func WeightedPenalty(oldPenalty, oldAmount, newPenalty, newAmount decimal.Decimal) decimal.Decimal {
	total := oldAmount.Add(newAmount)
	if total.IsZero() {
		return newPenalty
	}
	weighted := newPenalty.Mul(newAmount).Add(oldPenalty.Mul(oldAmount))
	return FloorDiv(weighted, total)
}

// Forfeit returns floor(penalty * amount / One).
func Forfeit(amount, penalty decimal.Decimal) decimal.Decimal {
	return FloorDiv(penalty.Mul(amount), One)
}

// Payout returns what a user receives when exiting with amount at penalty.
func Payout(amount, penalty decimal.Decimal) decimal.Decimal {
	return amount.Sub(Forfeit(amount, penalty))
}

// IsWholeUnits reports whether d is a positive integer amount.
func IsWholeUnits(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(0))
}
