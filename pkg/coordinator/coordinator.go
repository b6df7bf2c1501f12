// Package coordinator persists edit sessions through a RecordService.
//
// A Coordinator reads drafts from an editsession.Store, sends them to the
// service, and reconciles the answer into the recordstore.Store. Saves are
// single-flight: while a save of one kind is outstanding, a new trigger of
// the same kind is dropped, not queued. With the default ScopeKind a row
// save and a bulk save can still overlap; ScopeGlobal serializes them.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kittclouds/usergrid/pkg/editsession"
	"github.com/kittclouds/usergrid/pkg/logging"
	"github.com/kittclouds/usergrid/pkg/records"
	"github.com/kittclouds/usergrid/pkg/recordstore"
)

// Outcome describes what a save call did.
type Outcome string

const (
	OutcomeSaved     Outcome = "saved"
	OutcomeSimulated Outcome = "simulated"
	OutcomeNoDraft   Outcome = "no_draft"
	OutcomeDropped   Outcome = "dropped"
	OutcomeFailed    Outcome = "failed"

	// OutcomeLoaded is only recorded for loads.
	OutcomeLoaded Outcome = "loaded"
)

// Coordinator orchestrates loads and saves between the stores and a service.
type Coordinator struct {
	service RecordService
	records *recordstore.Store
	edits   *editsession.Store

	guards   *guards
	fallback bool
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *Metrics

	savingOne atomic.Int32
	savingAll atomic.Int32

	gaugeMu sync.Mutex // serializes open_drafts writes

	unsubscribe func()
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Default is logging.Nop().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records outcomes and the open draft count into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLockScope selects which saves exclude each other. Default ScopeKind.
func WithLockScope(scope LockScope) Option {
	return func(c *Coordinator) { c.guards = newGuards(scope) }
}

// WithBulkFallback toggles the simulated bulk response. Default on.
func WithBulkFallback(enabled bool) Option {
	return func(c *Coordinator) { c.fallback = enabled }
}

// WithTimeout bounds every service call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// New creates a coordinator over the given stores.
func New(service RecordService, rs *recordstore.Store, es *editsession.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		service:  service,
		records:  rs,
		edits:    es,
		guards:   newGuards(ScopeKind),
		fallback: true,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics != nil {
		c.syncDraftGauge()
		c.unsubscribe = es.Subscribe(func(editsession.Session) {
			c.syncDraftGauge()
		})
	}
	return c
}

// syncDraftGauge sets open_drafts from the store's live count. Notifications
// of concurrent updates can arrive out of order.
func (c *Coordinator) syncDraftGauge() {
	c.gaugeMu.Lock()
	defer c.gaugeMu.Unlock()
	c.metrics.setDrafts(c.edits.Len())
}

// Close detaches the coordinator from the edit store.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Records returns the canonical store.
func (c *Coordinator) Records() *recordstore.Store {
	return c.records
}

// Edits returns the draft store.
func (c *Coordinator) Edits() *editsession.Store {
	return c.edits
}

// Busy reports which save kinds are in flight.
func (c *Coordinator) Busy() (savingOne, savingAll bool) {
	return c.savingOne.Load() > 0, c.savingAll.Load() > 0
}

// =============================================================================
// Load
// =============================================================================

// Load fetches every record and replaces the canonical collection.
// Failures leave the store untouched.
func (c *Coordinator) Load(ctx context.Context) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	list, err := c.service.FetchAll(ctx)
	if err != nil {
		c.metrics.observe(KindLoad, OutcomeFailed, time.Since(start))
		c.logger.Error("load failed", "error", err)
		return transportError(OpFetchAll, err)
	}
	c.metrics.observe(KindLoad, OutcomeLoaded, time.Since(start))

	n := c.records.SetAll(list)
	c.logger.Debug("records loaded", "count", n)
	return nil
}

// =============================================================================
// Edit intents
// =============================================================================

// StartEdit opens a draft for id seeded from its canonical record,
// replacing any open drafts. Unknown ids return false.
func (c *Coordinator) StartEdit(id int) bool {
	r, ok := c.records.Lookup(id)
	if !ok {
		return false
	}
	c.edits.StartEdit([]records.Pair{{ID: id, Record: r}})
	return true
}

// EditAll opens a draft for every canonical record and raises the bulk flag.
func (c *Coordinator) EditAll() int {
	list := c.records.List()
	c.edits.StartEditAll(list)
	return len(list)
}

// =============================================================================
// Saves
// =============================================================================

// SaveOne persists the draft for id.
//
// Without a draft nothing is sent. While another row save holds the slot the
// call is dropped. On success the server's fields are merged into the
// canonical record and only this id's draft is closed; on failure both
// stores are left as they were and the draft stays open for a retry.
func (c *Coordinator) SaveOne(ctx context.Context, id int) (Outcome, error) {
	release, ok := c.guards.tryOne(id)
	if !ok {
		c.metrics.observe(KindSaveOne, OutcomeDropped, 0)
		c.logger.Debug("save dropped, another save is in flight", "id", id)
		return OutcomeDropped, nil
	}
	defer release()

	draft, ok := c.edits.Draft(id)
	if !ok {
		c.metrics.observe(KindSaveOne, OutcomeNoDraft, 0)
		return OutcomeNoDraft, nil
	}

	c.savingOne.Add(1)
	defer c.savingOne.Add(-1)

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	saved, err := c.service.Update(ctx, draft)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(KindSaveOne, OutcomeFailed, elapsed)
		c.logger.Warn("save failed, draft kept open", "id", id, "error", err)
		return OutcomeFailed, transportError(OpUpdate, err)
	}

	// The requested id is the key; the response cannot move a record.
	c.records.UpdateOne(id, records.FullPatch(saved))
	c.edits.Discard(id)

	c.metrics.observe(KindSaveOne, OutcomeSaved, elapsed)
	c.logger.Info("record saved", "id", id)
	return OutcomeSaved, nil
}

// SaveAll persists every open draft in one bulk call.
//
// A failed bulk call is read as "endpoint not implemented": when the
// fallback is on, the drafts are echoed back as if the server had accepted
// them verbatim and the result is OutcomeSimulated. Real transport errors
// take the same path and are only visible in the warn log.
func (c *Coordinator) SaveAll(ctx context.Context) (Outcome, error) {
	release, ok := c.guards.tryAll()
	if !ok {
		c.metrics.observe(KindSaveAll, OutcomeDropped, 0)
		c.logger.Debug("bulk save dropped, another save is in flight")
		return OutcomeDropped, nil
	}
	defer release()

	snapshot := c.edits.Drafts()
	if len(snapshot) == 0 {
		// Every row may have been saved one by one; bulk mode still ends here.
		c.edits.SetBulkInProgress(false)
		c.metrics.observe(KindSaveAll, OutcomeNoDraft, 0)
		return OutcomeNoDraft, nil
	}

	c.savingAll.Add(1)
	defer c.savingAll.Add(-1)

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	outcome := OutcomeSaved
	start := time.Now()
	saved, err := c.service.UpdateBulk(ctx, records.CopyMap(snapshot))
	elapsed := time.Since(start)
	if err != nil {
		if !c.fallback {
			c.metrics.observe(KindSaveAll, OutcomeFailed, elapsed)
			c.logger.Warn("bulk save failed, drafts kept open", "count", len(snapshot), "error", err)
			return OutcomeFailed, transportError(OpUpdateBulk, err)
		}
		c.logger.Warn("bulk update endpoint unavailable, response is simulated",
			"count", len(snapshot), "error", err)
		saved = snapshot
		outcome = OutcomeSimulated
	}

	updates := make([]records.Update, 0, len(saved))
	for _, id := range records.SortedIDs(saved) {
		updates = append(updates, records.Update{ID: id, Changes: records.FullPatch(saved[id])})
	}
	applied := c.records.UpdateMany(updates)
	c.edits.Reset()

	c.metrics.observe(KindSaveAll, outcome, elapsed)
	c.logger.Info("bulk save applied", "outcome", string(outcome), "records", applied)
	return outcome, nil
}

func (c *Coordinator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}
