package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/folira/folira/internal/domain/portfolio"
)

func TestTopicFor(t *testing.T) {
	cases := []struct {
		prefix string
		kind   portfolio.NotificationKind
		want   string
	}{
		{"portfolio", portfolio.NotificationRebalanced, "portfolio.rebalanced"},
		{"portfolio", portfolio.NotificationAdvisory, "portfolio.notify"},
		{"portfolio", portfolio.NotificationDrawdown, "portfolio.drawdown"},
		{"", portfolio.NotificationDrawdown, "drawdown"},
		{"staging", portfolio.NotificationRebalanced, "staging.rebalanced"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TopicFor(tc.prefix, tc.kind))
	}
}

func TestTopicFor_UnknownKindFallsBackToAdvisory(t *testing.T) {
	assert.Equal(t, "portfolio.notify", TopicFor("portfolio", portfolio.NotificationKind("bogus")))
}
