package portfolio

import (
	"context"
	"time"

	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/pkg/types/common"
)

// Repository persists portfolio versions.  Save is append-only for new
// versions; the only permitted update is flipping the drawdown flag.
type Repository interface {
	Save(ctx context.Context, p *Portfolio) error
	FindByID(ctx context.Context, id common.ID) (*Portfolio, error)
	// FindCurrentByOwner returns the owner's latest version, i.e. the one no
	// newer version points back to.
	FindCurrentByOwner(ctx context.Context, owner common.OwnerID) (*Portfolio, error)
	// ListDue returns current versions whose RebalanceAt is at or before asOf.
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]*Portfolio, error)
	// ListUnnotifiedDrawdown returns current versions whose drawdown flag is
	// still clear.
	ListUnnotifiedDrawdown(ctx context.Context, limit int) ([]*Portfolio, error)
	// SetDrawdownNotified persists the one-shot flag for the given version.
	SetDrawdownNotified(ctx context.Context, id common.ID) error
}

// ProfileReader looks up the investor attributes the scheduler needs.
type ProfileReader interface {
	RiskScore(ctx context.Context, owner common.OwnerID) (allocation.RiskProfile, error)
	// Entitled reports whether the owner's plan includes automatic
	// rebalancing; non-entitled owners only receive an advisory notification.
	Entitled(ctx context.Context, owner common.OwnerID) (bool, error)
}

// NotificationKind labels the owner-facing events the scheduler emits.
type NotificationKind string

const (
	// NotificationRebalanced: a new portfolio version was created.
	NotificationRebalanced NotificationKind = "rebalanced"
	// NotificationAdvisory: a rebalance is due but the owner's plan does not
	// include automatic execution.
	NotificationAdvisory NotificationKind = "notify_only"
	// NotificationDrawdown: the portfolio lost more than the configured
	// threshold since this version was created.
	NotificationDrawdown NotificationKind = "drawdown"
)

// Notifier delivers owner notifications.  Delivery is fire-and-forget from
// the scheduler's point of view; a failed emit is logged, never retried at
// the scheduler level.
type Notifier interface {
	Notify(ctx context.Context, owner common.OwnerID, kind NotificationKind, portfolioID common.ID) error
}
