// Package asset implements per-asset return and risk estimation from
// historical closing-price series.
package asset

import (
	"strings"

	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// Domicile classifies an ETF's country of registration for withholding-tax
// purposes in the product's target jurisdiction.
type Domicile string

const (
	// DomicileTaxable marks funds whose dividends are taxed at the full
	// withholding rate (US-domiciled funds for our investors).
	DomicileTaxable Domicile = "taxable"
	// DomicileTaxAdvantaged marks funds under a favourable tax treaty
	// (Ireland-domiciled UCITS funds).
	DomicileTaxAdvantaged Domicile = "tax_advantaged"
)

// DomicileForSymbol infers the domicile from the ticker convention: Irish
// UCITS listings carry the "-IE" suffix in our universe.
func DomicileForSymbol(symbol string) Domicile {
	if strings.Contains(symbol, "-IE") {
		return DomicileTaxAdvantaged
	}
	return DomicileTaxable
}

// PricePoint is one daily close in a historical series.
type PricePoint struct {
	Date  common.Date `json:"date"`
	Close float64     `json:"close"`
}

// Series is the ordered closing-price history of one symbol.  Points must be
// chronological; the estimator does not reorder or gap-fill.
type Series struct {
	Symbol   string       `json:"symbol"`
	Domicile Domicile     `json:"domicile"`
	Points   []PricePoint `json:"points"`
}

// Len returns the number of price points.
func (s Series) Len() int { return len(s.Points) }

// Closes returns the closing prices in series order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// DailyReturns computes the simple daily return sequence rᵢ = pᵢ/pᵢ₋₁ − 1.
// A series of N points yields N−1 returns.  A non-positive close would divide
// by zero, so such points are rejected with ErrCodeDegenerateSeries.
func (s Series) DailyReturns() ([]float64, error) {
	if len(s.Points) < 2 {
		return nil, errors.Newf(errors.ErrCodeInsufficientData,
			"series %s has %d points; need at least 2 for returns", s.Symbol, len(s.Points))
	}
	out := make([]float64, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Close
		if prev <= 0 {
			return nil, errors.Newf(errors.ErrCodeDegenerateSeries,
				"series %s has non-positive close %.4f at index %d", s.Symbol, prev, i-1)
		}
		out = append(out, s.Points[i].Close/prev-1)
	}
	return out, nil
}
