// Package session drives a search from submission to rendered results.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/cache"
	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/mutation"
	"github.com/kailas-cloud/smartsearch/internal/validate"
)

var (
	// ErrNoSession is returned by operations that need a session with an id.
	ErrNoSession = errors.New("session: no active search")
	// ErrNotRetryable is returned by Retry when the active session has not failed.
	ErrNotRetryable = errors.New("session: nothing to retry")
)

// Phase of the active session.
type Phase int

// Session phases.
const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseAwaitingResults
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseAwaitingResults:
		return "awaiting_results"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Snapshot is a copy of the active session state.
type Snapshot struct {
	Phase         Phase
	SearchID      string
	RawText       string
	CorrectedText string
	Products      []domain.Product
	Votes         map[string]domain.Vote
	Err           error
	SubmittedAt   time.Time
	IDIssuedAt    time.Time
	ReadyAt       time.Time
}

// CanSearchInstead reports whether the "search instead for <raw text>" action applies.
func (s Snapshot) CanSearchInstead() bool {
	return s.Phase == PhaseReady && s.CorrectedText != "" && s.CorrectedText != s.RawText
}

// ResultsKey is the cache key of the results of a search id.
func ResultsKey(searchID string) cache.Key {
	return cache.Key{"searchResults", searchID}
}

type session struct {
	id          string
	raw         string
	corrected   string
	products    []domain.Product
	phase       Phase
	err         error
	submittedAt time.Time
	idIssuedAt  time.Time
	readyAt     time.Time
	votes       *voteBook
	// issue obtains the id again when the session failed before getting one.
	issue func(context.Context) (string, error)
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

// Service is the search session orchestrator. Only one session is active at a time;
// starting another abandons the previous one.
type Service struct {
	transport Transport
	cache     *cache.Store
	recorder  Recorder
	validate  *validator.Validate
	maxRunes  int
	logger    *zap.Logger
	now       func() time.Time
	outcomes  *prometheus.CounterVec
	mutations *prometheus.CounterVec

	submit  *mutation.Controller[domain.QueryRequest, string]
	instead *mutation.Controller[string, string]

	mu         sync.Mutex
	active     *session
	submitting bool
	subs       []subscriber
	nextSub    uint64

	pubMu sync.Mutex
	bg    sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithMaxQueryRunes bounds the query text length in code points.
func WithMaxQueryRunes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRunes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithValidator shares a validator instance.
func WithValidator(v *validator.Validate) Option {
	return func(s *Service) { s.validate = v }
}

// WithMetrics sets the session outcome counter (label "outcome") and the
// mutation counter (labels "mutation", "result").
func WithMetrics(outcomes, mutations *prometheus.CounterVec) Option {
	return func(s *Service) {
		s.outcomes = outcomes
		s.mutations = mutations
	}
}

// New creates an orchestrator. A nil recorder disables duration telemetry.
func New(t Transport, store *cache.Store, rec Recorder, opts ...Option) *Service {
	s := &Service{
		transport: t,
		cache:     store,
		recorder:  rec,
		maxRunes:  domain.DefaultMaxQueryRunes,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validate == nil {
		s.validate = validate.New()
	}

	s.submit = mutation.New(t.SubmitSearch, mutation.Config[domain.QueryRequest, string]{
		Name:    "submit",
		Policy:  mutation.IgnoreWhilePending,
		Logger:  s.logger,
		Metrics: s.mutationMetrics("submit"),
	})
	s.instead = mutation.New(t.SearchRawText, mutation.Config[string, string]{
		Name:    "search_instead",
		Policy:  mutation.IgnoreWhilePending,
		Logger:  s.logger,
		Metrics: s.mutationMetrics("search_instead"),
	})
	return s
}

// Submit validates q, obtains a search id and fetches its results.
// Invalid input fails with a *domain.ValidationError before any network call.
func (s *Service) Submit(ctx context.Context, q domain.QueryRequest) (Snapshot, error) {
	if err := s.validateQuery(q); err != nil {
		return s.Snapshot(), err
	}

	sess := &session{
		raw:         q.Text,
		phase:       PhaseSubmitting,
		submittedAt: s.now(),
		issue: func(ctx context.Context) (string, error) {
			return s.submit.Trigger(ctx, q)
		},
	}
	if err := s.start(sess); err != nil {
		return s.Snapshot(), err
	}
	return s.issue(ctx, sess)
}

// Open starts a fresh session for an existing search id, e.g. after a reload.
func (s *Service) Open(ctx context.Context, searchID string) (Snapshot, error) {
	if strings.TrimSpace(searchID) == "" {
		return s.Snapshot(), domain.NewValidationError("search_id", "required")
	}

	sess := &session{
		id:         searchID,
		phase:      PhaseAwaitingResults,
		idIssuedAt: s.now(),
		votes:      s.newVotes(searchID),
	}
	s.mu.Lock()
	s.activate(sess)
	s.mu.Unlock()
	s.publish()

	return s.fetch(ctx, sess)
}

// Retry repeats the failed step of the active session: the id request when
// submission failed, the results fetch otherwise.
func (s *Service) Retry(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	sess := s.active
	if sess == nil || sess.phase != PhaseFailed {
		s.mu.Unlock()
		return s.Snapshot(), ErrNotRetryable
	}

	if sess.id == "" {
		if s.submitting {
			s.mu.Unlock()
			return s.Snapshot(), mutation.ErrPending
		}
		s.submitting = true
		sess.phase = PhaseSubmitting
		sess.err = nil
		sess.submittedAt = s.now()
		s.mu.Unlock()
		s.publish()
		return s.issue(ctx, sess)
	}

	sess.phase = PhaseAwaitingResults
	sess.err = nil
	sess.products = nil
	s.mu.Unlock()
	s.publish()
	return s.fetch(ctx, sess)
}

// SearchInstead re-runs the search with the raw text of the active session,
// which must be ready with a corrected query. The new id comes from the old one.
func (s *Service) SearchInstead(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	prev := s.active
	if prev == nil || prev.phase != PhaseReady || prev.corrected == "" || prev.corrected == prev.raw {
		s.mu.Unlock()
		return s.Snapshot(), domain.ErrNoCorrection
	}
	prevID, raw := prev.id, prev.raw
	s.mu.Unlock()

	sess := &session{
		raw:         raw,
		phase:       PhaseSubmitting,
		submittedAt: s.now(),
		issue: func(ctx context.Context) (string, error) {
			return s.instead.Trigger(ctx, prevID)
		},
	}
	if err := s.start(sess); err != nil {
		return s.Snapshot(), err
	}
	return s.issue(ctx, sess)
}

// Vote toggles the vote of a product in the active session. The new value is
// published to subscribers and visible through VoteState before the feedback
// call returns; subscribers are notified again once it settles. A failed call
// returns *domain.MutationRollbackError.
func (s *Service) Vote(ctx context.Context, productID string, clicked domain.Vote) (domain.Vote, error) {
	if clicked != domain.VoteLike && clicked != domain.VoteDislike {
		return domain.VoteUnset, domain.NewValidationError("vote", "must be like or dislike")
	}
	s.mu.Lock()
	sess := s.active
	s.mu.Unlock()
	if sess == nil || sess.votes == nil {
		return domain.VoteUnset, ErrNoSession
	}

	v, err := sess.votes.vote(ctx, productID, clicked)
	s.publish()
	return v, err
}

// VoteState returns the displayed vote of a product in the active session.
func (s *Service) VoteState(productID string) domain.Vote {
	s.mu.Lock()
	sess := s.active
	s.mu.Unlock()
	if sess == nil || sess.votes == nil {
		return domain.VoteUnset
	}
	return sess.votes.get(productID)
}

// Snapshot returns the state of the active session.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.active)
}

// Subscribe registers fn for every state change. fn must not start session operations synchronously.
func (s *Service) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

// Wait blocks until background telemetry calls have finished.
func (s *Service) Wait() {
	s.bg.Wait()
}

// start makes sess the active session unless an id request is already in flight.
func (s *Service) start(sess *session) error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return mutation.ErrPending
	}
	s.submitting = true
	s.activate(sess)
	s.mu.Unlock()
	s.publish()
	return nil
}

func (s *Service) issue(ctx context.Context, sess *session) (Snapshot, error) {
	id, err := sess.issue(ctx)

	s.mu.Lock()
	s.submitting = false
	if s.active != sess {
		snap := s.snapshotLocked(sess)
		s.mu.Unlock()
		s.inc("abandoned")
		return snap, domain.ErrAbandoned
	}
	if err != nil {
		sess.phase = PhaseFailed
		sess.err = err
		snap := s.snapshotLocked(sess)
		s.mu.Unlock()
		s.inc("failed")
		s.publish()
		return snap, fmt.Errorf("submit search: %w", err)
	}
	sess.id = id
	sess.idIssuedAt = s.now()
	sess.phase = PhaseAwaitingResults
	sess.votes = s.newVotes(id)
	s.mu.Unlock()
	s.publish()

	s.logger.Debug("Search id issued", zap.String("search_id", id))
	return s.fetch(ctx, sess)
}

func (s *Service) fetch(ctx context.Context, sess *session) (Snapshot, error) {
	res, err := cache.Resolve(ctx, s.cache, ResultsKey(sess.id), func(ctx context.Context) (domain.SearchResults, error) {
		return s.load(ctx, sess)
	})

	s.mu.Lock()
	if s.active != sess {
		snap := s.snapshotLocked(sess)
		s.mu.Unlock()
		s.inc("abandoned")
		s.logger.Debug("Ignoring results of abandoned session", zap.String("search_id", sess.id))
		return snap, domain.ErrAbandoned
	}
	if err != nil {
		sess.phase = PhaseFailed
		sess.err = err
		snap := s.snapshotLocked(sess)
		s.mu.Unlock()
		s.inc("failed")
		s.publish()
		return snap, fmt.Errorf("fetch results %s: %w", sess.id, err)
	}

	if res.RawText != "" {
		sess.raw = res.RawText
	}
	sess.corrected = res.CorrectedText
	sess.products = slices.Clone(res.Products)
	sess.phase = PhaseReady
	sess.readyAt = s.now()
	snap := s.snapshotLocked(sess)
	s.mu.Unlock()

	s.inc("ready")
	s.publish()
	s.record(ctx, snap)
	return snap, nil
}

// load fetches results, progressively when the transport streams them.
func (s *Service) load(ctx context.Context, sess *session) (domain.SearchResults, error) {
	st, ok := s.transport.(StreamingTransport)
	if !ok {
		return s.transport.FetchResults(ctx, sess.id)
	}

	dec, err := st.StreamResults(ctx, sess.id)
	if err != nil {
		return domain.SearchResults{}, err
	}
	defer dec.Close()

	res := domain.SearchResults{SearchID: sess.id}
	for ev := range dec.Records(ctx) {
		switch ev.Kind {
		case domain.EventMeta:
			res.RawText = ev.RawText
			res.CorrectedText = ev.CorrectedText
		case domain.EventProduct:
			if ev.Product == nil {
				continue
			}
			res.Products = append(res.Products, *ev.Product)
		default:
			s.logger.Debug("Skipping unknown result event", zap.String("kind", ev.Kind))
			continue
		}
		s.progress(sess, res)
	}
	if err := dec.Err(); err != nil {
		return domain.SearchResults{}, fmt.Errorf("stream results: %w", err)
	}
	return res, nil
}

// progress applies partial results to the active session of the fetched id,
// which may be a later session sharing the same fetch.
func (s *Service) progress(sess *session, res domain.SearchResults) {
	s.mu.Lock()
	cur := s.active
	if cur == nil || cur.id != sess.id || cur.phase != PhaseAwaitingResults {
		s.mu.Unlock()
		return
	}
	if res.RawText != "" {
		cur.raw = res.RawText
	}
	cur.corrected = res.CorrectedText
	cur.products = slices.Clone(res.Products)
	s.mu.Unlock()
	s.publish()
}

func (s *Service) record(ctx context.Context, snap Snapshot) {
	if s.recorder == nil {
		return
	}
	d := domain.SearchDuration{
		SearchID:              snap.SearchID,
		ProductLoadDurationMs: snap.ReadyAt.Sub(snap.IDIssuedAt).Milliseconds(),
	}
	if !snap.SubmittedAt.IsZero() {
		d.SearchDurationMs = snap.IDIssuedAt.Sub(snap.SubmittedAt).Milliseconds()
	}

	detached := context.WithoutCancel(ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.recorder.Record(detached, d)
	}()
}

func (s *Service) validateQuery(q domain.QueryRequest) error {
	if strings.TrimSpace(q.Text) == "" && !q.HasImage() {
		return domain.NewValidationError("raw_text", "Please enter a search query or add an image.")
	}
	return validate.Var(s.validate, "raw_text", q.Text, "max="+strconv.Itoa(s.maxRunes))
}

// activate must be called with s.mu held.
func (s *Service) activate(sess *session) {
	if prev := s.active; prev != nil && prev != sess {
		s.logger.Debug("Abandoning session", zap.String("search_id", prev.id), zap.Stringer("phase", prev.phase))
	}
	s.active = sess
}

func (s *Service) snapshotLocked(sess *session) Snapshot {
	if sess == nil {
		return Snapshot{Phase: PhaseIdle}
	}
	snap := Snapshot{
		Phase:         sess.phase,
		SearchID:      sess.id,
		RawText:       sess.raw,
		CorrectedText: sess.corrected,
		Products:      slices.Clone(sess.products),
		Err:           sess.err,
		SubmittedAt:   sess.submittedAt,
		IDIssuedAt:    sess.idIssuedAt,
		ReadyAt:       sess.readyAt,
	}
	if sess.votes != nil {
		snap.Votes = sess.votes.all()
	}
	return snap
}

func (s *Service) publish() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked(s.active)
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func (s *Service) newVotes(searchID string) *voteBook {
	return newVoteBook(searchID, s.transport.SendFeedback, s.publish, s.mutationMetrics("vote"), s.logger)
}

func (s *Service) mutationMetrics(name string) *prometheus.CounterVec {
	if s.mutations == nil {
		return nil
	}
	return s.mutations.MustCurryWith(prometheus.Labels{"mutation": name})
}

func (s *Service) inc(outcome string) {
	if s.outcomes != nil {
		s.outcomes.WithLabelValues(outcome).Inc()
	}
}
