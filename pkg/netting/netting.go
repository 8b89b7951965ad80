// Package netting implements the multilateral netting engine of spec.md
// §4.11: obligations between parties in a single currency are compressed
// pairwise, into at most one settlement leg per party pair, leaving every
// party's net balance unchanged. Debts are not routed through third
// parties, so the leg set is not always the smallest possible.
package netting

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
)

// ErrArithmeticOverflow is returned when summing a pair's obligations
// would overflow uint64, per spec.md §4.11's checked-arithmetic
// requirement.
var ErrArithmeticOverflow = errors.New("netting: arithmetic overflow")

// ErrInvalidObligation is returned for any obligation failing spec.md
// §4.11's preconditions.
var ErrInvalidObligation = errors.New("netting: invalid obligation")

// Obligation is one gross amount owed from one party to another, in a
// single currency, per spec.md §3. Amount is a positive integer — no
// floating point monetary values anywhere in this package.
type Obligation struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   uint64 `json:"amount"`
	Currency string `json:"currency"`
}

// Leg is one settlement instruction in a netting Plan: a single payment
// from the net debtor to the net creditor of a party pair.
type Leg struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   uint64 `json:"amount"`
	Currency string `json:"currency"`
}

// Plan is the result of Compute: the pairwise-netted leg set plus the
// compression ratio it achieved.
type Plan struct {
	Legs            []Leg  `json:"legs"`
	GrossTotal       uint64 `json:"gross_total"`
	NetTotal         uint64 `json:"net_total"`
	ReductionBps     uint64 `json:"reduction_bps"` // basis points, unsigned integer, never float
	Currency         string `json:"currency"`
}

func validate(obligations []Obligation) (string, error) {
	if len(obligations) == 0 {
		return "", fmt.Errorf("%w: empty obligation set", ErrInvalidObligation)
	}
	currency := obligations[0].Currency
	for _, o := range obligations {
		if o.From == "" || o.To == "" {
			return "", fmt.Errorf("%w: empty party identifier", ErrInvalidObligation)
		}
		if o.From == o.To {
			return "", fmt.Errorf("%w: %s cannot owe itself", ErrInvalidObligation, o.From)
		}
		if o.Amount == 0 {
			return "", fmt.Errorf("%w: amount must be positive", ErrInvalidObligation)
		}
		if o.Currency == "" {
			return "", fmt.Errorf("%w: empty currency code", ErrInvalidObligation)
		}
		if o.Currency != currency {
			return "", fmt.Errorf("%w: mixed currencies %s and %s in one plan", ErrInvalidObligation, currency, o.Currency)
		}
	}
	return currency, nil
}

// checkedAdd adds a and b, returning ErrArithmeticOverflow instead of
// silently wrapping, via math/bits' carry-reporting Add64.
func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// Compute nets a set of single-currency obligations pairwise: for every
// ordered pair (a, b) with a < b lexicographically, net = sum(a->b) -
// sum(b->a). A positive net produces one settlement leg from the net
// debtor to the net creditor; a zero net produces no leg.
func Compute(obligations []Obligation) (*Plan, error) {
	currency, err := validate(obligations)
	if err != nil {
		return nil, err
	}

	sums := make(map[[2]string]uint64) // [from,to] -> total
	parties := make(map[string]bool)
	var grossTotal uint64

	for _, o := range obligations {
		parties[o.From] = true
		parties[o.To] = true
		grossTotal, err = checkedAdd(grossTotal, o.Amount)
		if err != nil {
			return nil, err
		}
		key := [2]string{o.From, o.To}
		sums[key], err = checkedAdd(sums[key], o.Amount)
		if err != nil {
			return nil, fmt.Errorf("netting: summing %s->%s: %w", o.From, o.To, err)
		}
	}

	ordered := make([]string, 0, len(parties))
	for p := range parties {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	var legs []Leg
	var netTotal uint64

	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			aToB := sums[[2]string{a, b}]
			bToA := sums[[2]string{b, a}]

			if aToB > bToA {
				net := aToB - bToA
				legs = append(legs, Leg{From: a, To: b, Amount: net, Currency: currency})
				netTotal, err = checkedAdd(netTotal, net)
				if err != nil {
					return nil, err
				}
			} else if bToA > aToB {
				net := bToA - aToB
				legs = append(legs, Leg{From: b, To: a, Amount: net, Currency: currency})
				netTotal, err = checkedAdd(netTotal, net)
				if err != nil {
					return nil, err
				}
			}
			// aToB == bToA: fully offsetting, no leg.
		}
	}

	var reductionBps uint64
	if grossTotal > 0 {
		// Round to nearest basis point rather than truncate, so a
		// reduction of 180/280 (64.2857%) reports as 6429bps, not 6428bps.
		reductionBps = ((grossTotal-netTotal)*10000 + grossTotal/2) / grossTotal
	}

	return &Plan{
		Legs:         legs,
		GrossTotal:   grossTotal,
		NetTotal:     netTotal,
		ReductionBps: reductionBps,
		Currency:     currency,
	}, nil
}
