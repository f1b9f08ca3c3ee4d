// Package kafka publishes owner notifications onto the message bus.  The
// scheduler treats delivery as fire-and-forget; downstream consumers (mail,
// push, in-app feed) own retries and fan-out.
package kafka

import (
	"time"

	"github.com/folira/folira/internal/domain/portfolio"
)

// Topic suffixes.  The configured prefix is joined with a dot, so the default
// prefix "portfolio" yields "portfolio.rebalanced" and friends.
const (
	TopicSuffixRebalanced = "rebalanced"
	TopicSuffixAdvisory   = "notify"
	TopicSuffixDrawdown   = "drawdown"
)

// TopicFor maps a notification kind onto its fully-qualified topic name.
func TopicFor(prefix string, kind portfolio.NotificationKind) string {
	suffix := TopicSuffixAdvisory
	switch kind {
	case portfolio.NotificationRebalanced:
		suffix = TopicSuffixRebalanced
	case portfolio.NotificationDrawdown:
		suffix = TopicSuffixDrawdown
	}
	if prefix == "" {
		return suffix
	}
	return prefix + "." + suffix
}

// NotificationEvent is the wire payload for every owner notification.
type NotificationEvent struct {
	EventID     string    `json:"event_id"`
	OwnerID     string    `json:"owner_id"`
	Kind        string    `json:"kind"`
	PortfolioID string    `json:"portfolio_id"`
	Timestamp   time.Time `json:"timestamp"`
}
