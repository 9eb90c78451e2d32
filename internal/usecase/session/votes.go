package session

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/mutation"
)

// voteIntent carries the click into the controller; the optimistic step fills target.
type voteIntent struct {
	clicked domain.Vote
	target  domain.Vote
}

type voteCell struct {
	mu   sync.Mutex
	vote domain.Vote
	ctrl *mutation.Controller[*voteIntent, struct{}]
}

func (c *voteCell) get() domain.Vote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vote
}

// voteBook owns the votes of one session, one superseding controller per product.
type voteBook struct {
	searchID string
	send     func(context.Context, domain.Feedback) error
	// changed runs once an optimistic vote is visible, before its call.
	changed func()
	logger  *zap.Logger
	metrics *prometheus.CounterVec

	mu    sync.Mutex
	cells map[string]*voteCell
}

func newVoteBook(
	searchID string,
	send func(context.Context, domain.Feedback) error,
	changed func(),
	metrics *prometheus.CounterVec,
	logger *zap.Logger,
) *voteBook {
	return &voteBook{
		searchID: searchID,
		send:     send,
		changed:  changed,
		logger:   logger,
		metrics:  metrics,
		cells:    make(map[string]*voteCell),
	}
}

func (b *voteBook) cell(productID string) *voteCell {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.cells[productID]; ok {
		return c
	}
	c := &voteCell{}
	c.ctrl = mutation.New(func(ctx context.Context, in *voteIntent) (struct{}, error) {
		return struct{}{}, b.send(ctx, domain.Feedback{
			QueryID:    b.searchID,
			ProductID:  productID,
			IsRelevant: in.target.IsRelevant(),
		})
	}, mutation.Config[*voteIntent, struct{}]{
		Name:   "vote",
		Policy: mutation.Supersede,
		Optimistic: func(in *voteIntent) func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			prev := c.vote
			in.target = prev.Toggle(in.clicked)
			c.vote = in.target
			return func() {
				c.mu.Lock()
				c.vote = prev
				c.mu.Unlock()
			}
		},
		OnApplied: func(*voteIntent) {
			if b.changed != nil {
				b.changed()
			}
		},
		Logger:  b.logger,
		Metrics: b.metrics,
	})
	b.cells[productID] = c
	return c
}

func (b *voteBook) vote(ctx context.Context, productID string, clicked domain.Vote) (domain.Vote, error) {
	c := b.cell(productID)
	_, err := c.ctrl.Trigger(ctx, &voteIntent{clicked: clicked})
	return c.get(), err
}

func (b *voteBook) get(productID string) domain.Vote {
	b.mu.Lock()
	c, ok := b.cells[productID]
	b.mu.Unlock()
	if !ok {
		return domain.VoteUnset
	}
	return c.get()
}

// all returns the non-unset votes.
func (b *voteBook) all() map[string]domain.Vote {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]domain.Vote, len(b.cells))
	for id, c := range b.cells {
		if v := c.get(); v != domain.VoteUnset {
			out[id] = v
		}
	}
	return out
}
