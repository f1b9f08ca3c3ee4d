package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/internal/domain/portfolio"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// MemoryPortfolioRepo is a map-backed portfolio.Repository for tests.
type MemoryPortfolioRepo struct {
	mu    sync.Mutex
	items map[common.ID]*portfolio.Portfolio
	// SaveErr, when set, is returned by Save to exercise failure paths.
	SaveErr error
}

// NewMemoryPortfolioRepo returns an empty repository.
func NewMemoryPortfolioRepo() *MemoryPortfolioRepo {
	return &MemoryPortfolioRepo{items: map[common.ID]*portfolio.Portfolio{}}
}

func (r *MemoryPortfolioRepo) Save(_ context.Context, p *portfolio.Portfolio) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *MemoryPortfolioRepo) FindByID(_ context.Context, id common.ID) (*portfolio.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodePortfolioNotFound, "portfolio %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryPortfolioRepo) FindCurrentByOwner(_ context.Context, owner common.OwnerID) (*portfolio.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *portfolio.Portfolio
	for _, p := range r.items {
		if p.OwnerID != owner {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, errors.Newf(errors.ErrCodePortfolioNotFound, "owner %s has no portfolio", owner)
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryPortfolioRepo) ListDue(_ context.Context, asOf time.Time, limit int) ([]*portfolio.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.current()
	due := out[:0]
	for _, p := range out {
		if p.DueForRebalance(asOf) {
			due = append(due, p)
		}
	}
	if len(due) > limit {
		due = due[:limit]
	}
	return copyAll(due), nil
}

func (r *MemoryPortfolioRepo) ListUnnotifiedDrawdown(_ context.Context, limit int) ([]*portfolio.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.current()
	pending := out[:0]
	for _, p := range out {
		if !p.DrawdownNotified {
			pending = append(pending, p)
		}
	}
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return copyAll(pending), nil
}

func (r *MemoryPortfolioRepo) SetDrawdownNotified(_ context.Context, id common.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return errors.Newf(errors.ErrCodePortfolioNotFound, "portfolio %s not found", id)
	}
	p.DrawdownNotified = true
	return nil
}

// Count returns the number of stored versions.
func (r *MemoryPortfolioRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// current returns versions no newer version points back to, sorted by
// creation for deterministic iteration.
func (r *MemoryPortfolioRepo) current() []*portfolio.Portfolio {
	superseded := map[common.ID]bool{}
	for _, p := range r.items {
		if p.PreviousID != nil {
			superseded[*p.PreviousID] = true
		}
	}
	out := make([]*portfolio.Portfolio, 0, len(r.items))
	for _, p := range r.items {
		if !superseded[p.ID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func copyAll(in []*portfolio.Portfolio) []*portfolio.Portfolio {
	out := make([]*portfolio.Portfolio, len(in))
	for i, p := range in {
		cp := *p
		out[i] = &cp
	}
	return out
}

// StaticProfiles is a fixed-answer portfolio.ProfileReader.
type StaticProfiles struct {
	Scores      map[common.OwnerID]allocation.RiskProfile
	Entitlement map[common.OwnerID]bool
	// Err, when set, is returned by both lookups.
	Err error
}

func (s *StaticProfiles) RiskScore(_ context.Context, owner common.OwnerID) (allocation.RiskProfile, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	score, ok := s.Scores[owner]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeProfileNotFound, "no profile for %s", owner)
	}
	return score, nil
}

func (s *StaticProfiles) Entitled(_ context.Context, owner common.OwnerID) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	return s.Entitlement[owner], nil
}

// Notification is one recorded Notify call.
type Notification struct {
	Owner       common.OwnerID
	Kind        portfolio.NotificationKind
	PortfolioID common.ID
}

// RecordingNotifier captures notifications for assertions.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	// Err, when set, is returned by Notify.
	Err error
}

func (n *RecordingNotifier) Notify(_ context.Context, owner common.OwnerID, kind portfolio.NotificationKind, id common.ID) error {
	if n.Err != nil {
		return n.Err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{Owner: owner, Kind: kind, PortfolioID: id})
	return nil
}

// Sent returns a copy of the recorded notifications.
func (n *RecordingNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

// SentOfKind filters the recorded notifications by kind.
func (n *RecordingNotifier) SentOfKind(kind portfolio.NotificationKind) []Notification {
	out := make([]Notification, 0)
	for _, msg := range n.Sent() {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}
