// Package pricing computes the platform fee and early-bird discount for a
// ticket purchase. Compute is a pure function of the unit price, the number
// of tickets already sold and the event's fee model; the result is
// snapshotted onto the ticket row and never recomputed later.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Early-bird tier names, ordered by cumulative sold count
const (
	TierSuperEarly = "super_early"
	TierEarly      = "early"
	TierRegular    = "regular"
	TierStandard   = "standard"
	TierLate       = "late"
)

const (
	// minFeePercent is the floor below which tier discounts cannot push the
	// effective fee percentage
	minFeePercent = 3
	// UnlimitedTier marks a tier with no upper bound on sold count
	UnlimitedTier = -1
)

// minPlatformFee protects against fee erosion on very low-priced tickets
var minPlatformFee = decimal.NewFromInt(5)

var hundred = decimal.NewFromInt(100)

type tier struct {
	name       string
	adjustment int // percentage points added to the base fee
	upperBound int // exclusive sold-count bound, UnlimitedTier for the last tier
}

var tiers = []tier{
	{TierSuperEarly, -3, 25},
	{TierEarly, -2, 50},
	{TierRegular, 0, 100},
	{TierStandard, 1, 200},
	{TierLate, 2, UnlimitedTier},
}

// Quote is the full pricing breakdown for one ticket at a given position in
// the sales order.
type Quote struct {
	Tier              string
	FeePercent        int
	PlatformFee       decimal.Decimal
	BuyerPays         decimal.Decimal
	OrganizerGets     decimal.Decimal
	BuyerSaved        decimal.Decimal
	TicketsLeftInTier int // UnlimitedTier when the tier has no bound
}

// Compute prices the next ticket for an event. unitPrice must be >= 0 and
// ticketsSold >= 0; feeModel decides whether the platform fee is added to the
// buyer's charge or deducted from the organizer's proceeds.
func Compute(unitPrice decimal.Decimal, ticketsSold int, feeModel string) (Quote, error) {
	if unitPrice.IsNegative() {
		return Quote{}, fmt.Errorf("unit price must not be negative: %s", unitPrice)
	}
	if ticketsSold < 0 {
		return Quote{}, fmt.Errorf("tickets sold must not be negative: %d", ticketsSold)
	}

	t := tierFor(ticketsSold)

	feePercent := baseFeePercent(unitPrice) + t.adjustment
	if feePercent < minFeePercent {
		feePercent = minFeePercent
	}

	fee := unitPrice.Mul(decimal.NewFromInt(int64(feePercent))).Div(hundred)
	if fee.LessThan(minPlatformFee) {
		fee = minPlatformFee
	}

	quote := Quote{
		Tier:              t.name,
		FeePercent:        feePercent,
		PlatformFee:       fee,
		TicketsLeftInTier: UnlimitedTier,
	}
	if t.upperBound != UnlimitedTier {
		quote.TicketsLeftInTier = t.upperBound - ticketsSold
	}

	switch feeModel {
	case "organizer_pays":
		quote.BuyerPays = unitPrice
		quote.OrganizerGets = unitPrice.Sub(fee)
		quote.BuyerSaved = decimal.Zero
	case "buyer_pays":
		quote.BuyerPays = unitPrice.Add(fee)
		quote.OrganizerGets = unitPrice
		quote.BuyerSaved = decimal.Zero
		if t.adjustment < 0 {
			discount := decimal.NewFromInt(int64(-t.adjustment))
			quote.BuyerSaved = unitPrice.Mul(discount).Div(hundred)
		}
	default:
		return Quote{}, fmt.Errorf("unknown fee model: %q", feeModel)
	}

	return quote, nil
}

// baseFeePercent returns the fee percentage for a price bracket before any
// tier adjustment.
func baseFeePercent(unitPrice decimal.Decimal) int {
	switch {
	case unitPrice.GreaterThanOrEqual(decimal.NewFromInt(500)):
		return 5
	case unitPrice.GreaterThanOrEqual(decimal.NewFromInt(100)):
		return 8
	case unitPrice.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return 10
	default:
		return 15
	}
}

func tierFor(ticketsSold int) tier {
	for _, t := range tiers {
		if t.upperBound == UnlimitedTier || ticketsSold < t.upperBound {
			return t
		}
	}
	return tiers[len(tiers)-1]
}
