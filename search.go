package smartsearch

import (
	"context"
	"time"
)

// Search submits q and follows the new session until its results are
// rendered. A query that fails validation returns a *ValidationError without
// any network call; a second Search while one is submitting returns
// ErrPending.
func (c *Client) Search(ctx context.Context, q QueryRequest) (Snapshot, error) {
	start := time.Now()
	snap, err := c.sessions.Submit(ctx, q)
	c.obs.observe("search", start, err)
	return snap, err
}

// Open starts a session for an existing search id, as after a page reload.
// Results already in the cache are shown without a new fetch.
func (c *Client) Open(ctx context.Context, searchID string) (Snapshot, error) {
	start := time.Now()
	snap, err := c.sessions.Open(ctx, searchID)
	c.obs.observe("open", start, err)
	return snap, err
}

// Retry repeats the failed step of the active session.
func (c *Client) Retry(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	snap, err := c.sessions.Retry(ctx)
	c.obs.observe("retry", start, err)
	return snap, err
}

// SearchInstead searches the raw text of a corrected session.
func (c *Client) SearchInstead(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	snap, err := c.sessions.SearchInstead(ctx)
	c.obs.observe("search_instead", start, err)
	return snap, err
}

// Vote toggles the relevance vote of a product of the active session and
// returns the displayed vote. A failed feedback call reverts the vote and
// returns a *MutationRollbackError.
func (c *Client) Vote(ctx context.Context, productID string, clicked Vote) (Vote, error) {
	start := time.Now()
	v, err := c.sessions.Vote(ctx, productID, clicked)
	c.obs.observe("vote", start, err)
	return v, err
}

// VoteState returns the displayed vote of a product of the active session.
func (c *Client) VoteState(productID string) Vote {
	return c.sessions.VoteState(productID)
}

// Current returns the state of the active session.
func (c *Client) Current() Snapshot {
	return c.sessions.Snapshot()
}

// Subscribe calls fn on every session state change until cancel is called.
func (c *Client) Subscribe(fn func(Snapshot)) (cancel func()) {
	return c.sessions.Subscribe(fn)
}
