// Package mutation runs side-effecting calls with observable state and
// optional optimistic local updates.
package mutation

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// ErrPending is returned when a trigger is ignored because a call is in flight.
var ErrPending = errors.New("mutation: already pending")

// State of a controller.
type State int

// Controller states.
const (
	Idle State = iota
	Pending
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Policy decides what a trigger does while a previous call is in flight.
type Policy int

const (
	// IgnoreWhilePending rejects new triggers with ErrPending.
	IgnoreWhilePending Policy = iota
	// Supersede lets the newest trigger own the controller state.
	Supersede
)

// Snapshot is the observable state after the latest trigger.
type Snapshot[Out any] struct {
	State State
	Value Out
	Err   error
	// Seq numbers triggers from 1. Zero means never triggered.
	Seq uint64
}

// Config wires a controller.
type Config[In, Out any] struct {
	// Name labels logs, metrics and rollback errors.
	Name   string
	Policy Policy
	// Optimistic applies the local change for in and returns its undo.
	// It runs under the controller lock, so it must not call back into the controller.
	// Undo also runs under the lock.
	Optimistic func(in In) (undo func())
	// OnApplied runs after Optimistic, outside the lock and before the call.
	OnApplied func(in In)
	OnSuccess func(in In, out Out)
	OnError   func(in In, err error)
	Logger    *zap.Logger
	// Metrics counts triggers by label "result"
	// ("ok", "error", "ignored", "superseded", "rolled_back").
	Metrics *prometheus.CounterVec
}

// Controller executes fn once per accepted trigger.
type Controller[In, Out any] struct {
	fn  func(context.Context, In) (Out, error)
	cfg Config[In, Out]

	mu      sync.Mutex
	seq     uint64
	pending int
	snap    Snapshot[Out]
	// undos holds unconfirmed optimistic updates in trigger order.
	undos []undoEntry
}

type undoEntry struct {
	seq    uint64
	undo   func()
	failed bool
}

// New creates a controller around fn.
func New[In, Out any](fn func(context.Context, In) (Out, error), cfg Config[In, Out]) *Controller[In, Out] {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "mutation"
	}
	return &Controller[In, Out]{fn: fn, cfg: cfg}
}

// Trigger runs one call. With an optimistic update configured, a failed call
// returns *domain.MutationRollbackError.
//
// Optimistic updates are undone newest first: a failed trigger is undone once
// every later trigger has failed too, restoring the value captured when it
// started. A success confirms its own update and every earlier one, so their
// failures no longer undo anything.
func (c *Controller[In, Out]) Trigger(ctx context.Context, in In) (Out, error) {
	var zero Out

	c.mu.Lock()
	if c.cfg.Policy == IgnoreWhilePending && c.pending > 0 {
		c.mu.Unlock()
		c.inc("ignored")
		return zero, ErrPending
	}
	c.seq++
	seq := c.seq
	c.pending++
	c.snap = Snapshot[Out]{State: Pending, Seq: seq}
	var undo func()
	if c.cfg.Optimistic != nil {
		undo = c.cfg.Optimistic(in)
		if undo != nil {
			c.undos = append(c.undos, undoEntry{seq: seq, undo: undo})
		}
	}
	c.mu.Unlock()

	if c.cfg.Optimistic != nil && c.cfg.OnApplied != nil {
		c.cfg.OnApplied(in)
	}

	out, err := c.fn(ctx, in)

	c.mu.Lock()
	c.pending--
	latest := seq == c.seq
	reverted := false
	if err != nil {
		reverted = c.unwindLocked(seq)
		if latest {
			c.snap = Snapshot[Out]{State: Failed, Err: err, Seq: seq}
		}
	} else {
		c.confirmLocked(seq)
		if latest {
			c.snap = Snapshot[Out]{State: Succeeded, Value: out, Seq: seq}
		}
	}
	c.mu.Unlock()

	if !latest {
		c.inc("superseded")
	}
	if err != nil {
		c.inc("error")
		c.cfg.Logger.Warn("Mutation failed",
			zap.String("mutation", c.cfg.Name),
			zap.Uint64("seq", seq),
			zap.Bool("latest", latest),
			zap.Error(err),
		)
		if c.cfg.OnError != nil {
			c.cfg.OnError(in, err)
		}
		if c.cfg.Optimistic != nil {
			if reverted {
				c.inc("rolled_back")
			}
			return zero, &domain.MutationRollbackError{Mutation: c.cfg.Name, Reverted: reverted, Err: err}
		}
		return zero, err
	}

	c.inc("ok")
	if c.cfg.OnSuccess != nil {
		c.cfg.OnSuccess(in, out)
	}
	return out, nil
}

// unwindLocked marks seq failed and undoes failed updates from the newest down
// to the first one still in flight. It reports whether seq itself was undone.
func (c *Controller[In, Out]) unwindLocked(seq uint64) bool {
	for i := range c.undos {
		if c.undos[i].seq == seq {
			c.undos[i].failed = true
		}
	}
	undone := false
	for n := len(c.undos); n > 0 && c.undos[n-1].failed; n = len(c.undos) {
		e := c.undos[n-1]
		c.undos = c.undos[:n-1]
		e.undo()
		if e.seq == seq {
			undone = true
		}
	}
	return undone
}

// confirmLocked drops the undo of seq and of every earlier trigger.
func (c *Controller[In, Out]) confirmLocked(seq uint64) {
	i := 0
	for i < len(c.undos) && c.undos[i].seq <= seq {
		i++
	}
	c.undos = slices.Delete(c.undos, 0, i)
}

// Snapshot returns the current state.
func (c *Controller[In, Out]) Snapshot() Snapshot[Out] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Pending reports whether any call is in flight.
func (c *Controller[In, Out]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending > 0
}

// Reset clears a terminal success or error back to Idle. A pending state is left alone.
func (c *Controller[In, Out]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.State == Pending {
		return
	}
	c.snap = Snapshot[Out]{State: Idle, Seq: c.snap.Seq}
}

func (c *Controller[In, Out]) inc(result string) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.WithLabelValues(result).Inc()
	}
}
