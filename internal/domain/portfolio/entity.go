// Package portfolio defines the persisted Portfolio aggregate and its
// repository contracts.  Portfolios are immutable once created: a rebalance
// appends a new version pointing back at the one it supersedes, and the
// drawdown-notified flag is the single exception, set at most once.
package portfolio

import (
	"time"

	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// Portfolio is one version in an owner's append-only allocation history.
type Portfolio struct {
	ID        common.ID               `json:"id"`
	OwnerID   common.OwnerID          `json:"owner_id"`
	RiskScore allocation.RiskProfile  `json:"risk_score"`
	Weights   allocation.WeightVector `json:"weights"`
	Metrics   allocation.Metrics      `json:"metrics"`
	CreatedAt time.Time               `json:"created_at"`
	// RebalanceAt is the date from which the scheduled path considers this
	// version due.
	RebalanceAt time.Time `json:"rebalance_at"`
	// PreviousID links to the superseded version; nil for the first version.
	PreviousID *common.ID `json:"previous_id,omitempty"`
	// DrawdownNotified is a one-shot flag: once a drawdown alert has fired
	// for this version it never fires again.
	DrawdownNotified bool `json:"drawdown_notified"`
}

// NewPortfolio creates the first version of an owner's portfolio.
func NewPortfolio(owner common.OwnerID, risk allocation.RiskProfile, res *allocation.Result, now time.Time, interval time.Duration) (*Portfolio, error) {
	p := &Portfolio{
		ID:          common.NewID(),
		OwnerID:     owner,
		RiskScore:   risk,
		Weights:     res.Weights.Clone(),
		Metrics:     res.Metrics,
		CreatedAt:   now,
		RebalanceAt: now.Add(interval),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewVersion creates the successor version of p with a fresh allocation and
// the owner's current risk score, which may have changed since the previous
// version.  The new version starts with a clear drawdown flag.
func (p *Portfolio) NewVersion(risk allocation.RiskProfile, res *allocation.Result, now time.Time, interval time.Duration) (*Portfolio, error) {
	prev := p.ID
	next := &Portfolio{
		ID:          common.NewID(),
		OwnerID:     p.OwnerID,
		RiskScore:   risk,
		Weights:     res.Weights.Clone(),
		Metrics:     res.Metrics,
		CreatedAt:   now,
		RebalanceAt: now.Add(interval),
		PreviousID:  &prev,
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// MarkDrawdownNotified sets the one-shot flag.  It returns false when the
// flag was already set, so callers can tell a fresh transition from a repeat.
func (p *Portfolio) MarkDrawdownNotified() bool {
	if p.DrawdownNotified {
		return false
	}
	p.DrawdownNotified = true
	return true
}

// DueForRebalance reports whether the scheduled path should pick this
// version up at the given instant.
func (p *Portfolio) DueForRebalance(now time.Time) bool {
	return !now.Before(p.RebalanceAt)
}

// Validate checks the structural invariants of a version.
func (p *Portfolio) Validate() error {
	if err := p.ID.Validate(); err != nil {
		return err
	}
	if p.OwnerID == "" {
		return errors.New(errors.ErrCodeValidation, "portfolio owner is empty")
	}
	if err := p.RiskScore.Validate(); err != nil {
		return err
	}
	if len(p.Weights) == 0 {
		return errors.New(errors.ErrCodeValidation, "portfolio has no holdings")
	}
	if p.CreatedAt.IsZero() {
		return errors.New(errors.ErrCodeValidation, "portfolio creation time is zero")
	}
	if !p.RebalanceAt.After(p.CreatedAt) {
		return errors.New(errors.ErrCodeValidation, "rebalance date must follow creation")
	}
	return nil
}
