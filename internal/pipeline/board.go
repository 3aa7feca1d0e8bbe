// Package pipeline holds the lead board: lanes, optimistic moves, the
// proposal step and fire-and-forget persistence.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/models"
)

// Persister receives board mutations. Implementations talk to the remote
// lead store; a nil Persister means demo mode.
type Persister interface {
	UpdateFields(ctx context.Context, id string, update models.LeadUpdate) error
}

type Options struct {
	// RemoteTimeout bounds each remote write.
	RemoteTimeout time.Duration
	// ReconcileGrace protects locally mutated leads from being overwritten
	// by a snapshot that may predate the mutation.
	ReconcileGrace time.Duration
	Clock          func() time.Time
	Logger         logger.Logger
}

// PendingProposal is an open "attach proposal" step. The lead keeps its
// lane until the step is confirmed.
type PendingProposal struct {
	LeadID   string           `json:"leadId"`
	Prefill  *models.Proposal `json:"prefill,omitempty"`
	OpenedAt time.Time        `json:"openedAt"`
}

// MoveResult describes the outcome of a move or reorder.
type MoveResult struct {
	Lead             models.Lead      `json:"lead"`
	Moved            bool             `json:"moved"`
	ProposalRequired bool             `json:"proposalRequired"`
	Pending          *PendingProposal `json:"pending,omitempty"`
}

// Lane is one board column.
type Lane struct {
	Status models.LeadStatus `json:"status"`
	Label  string            `json:"label"`
	Leads  []models.Lead     `json:"leads"`
	Count  int               `json:"count"`
}

type write struct {
	op     string
	id     string
	update models.LeadUpdate
}

type Board struct {
	mu      sync.RWMutex
	leads   []models.Lead
	pending map[string]*PendingProposal
	touched map[string]time.Time

	persister Persister
	opts      Options
	logger    logger.Logger

	// queue is unbounded and guarded by qmu alone. Lock order is b.mu then
	// qmu; the writer never holds qmu while persisting.
	qmu      sync.Mutex
	queue    []write
	closed   bool
	wake     chan struct{}
	inflight int // queued or being applied
	idle     *sync.Cond
	done     chan struct{}
}

// NewBoard creates an empty board. With a non-nil persister every mutation
// is written remotely, in order, by a background writer.
func NewBoard(persister Persister, opts Options) *Board {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}

	b := &Board{
		pending:   make(map[string]*PendingProposal),
		touched:   make(map[string]time.Time),
		persister: persister,
		opts:      opts,
		logger:    opts.Logger.WithFields(map[string]interface{}{"component": "pipeline"}),
		done:      make(chan struct{}),
	}
	if persister != nil {
		b.wake = make(chan struct{}, 1)
		b.idle = sync.NewCond(&b.qmu)
		go b.writeLoop()
	} else {
		close(b.done)
	}
	return b
}

// NewDemoBoard returns a board over the seed leads with no persistence.
func NewDemoBoard(opts Options) *Board {
	b := NewBoard(nil, opts)
	b.ApplySnapshot(SeedLeads())
	return b
}

// Demo reports whether the board runs without a remote store.
func (b *Board) Demo() bool {
	return b.persister == nil
}

// ==========================
// Reads
// ==========================

// Leads returns all leads in board order.
func (b *Board) Leads() []models.Lead {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneAll(b.leads)
}

func (b *Board) Lead(id string) (models.Lead, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := b.indexOf(id); i >= 0 {
		return b.leads[i].Clone(), true
	}
	return models.Lead{}, false
}

// Lanes partitions the board into the fixed lane order.
func (b *Board) Lanes() []Lane {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lanes := make([]Lane, len(models.Lanes))
	pos := make(map[models.LeadStatus]int, len(models.Lanes))
	for i, s := range models.Lanes {
		lanes[i] = Lane{Status: s, Label: s.Label(), Leads: []models.Lead{}}
		pos[s] = i
	}
	for _, l := range b.leads {
		i := pos[l.Status]
		lanes[i].Leads = append(lanes[i].Leads, l.Clone())
		lanes[i].Count++
	}
	return lanes
}

// Recent returns the n most recently created leads.
func (b *Board) Recent(n int) []models.Lead {
	all := b.Leads()
	models.SortByCreatedDesc(all)
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Filter returns leads whose name contains term, ignoring case.
func (b *Board) Filter(term string) []models.Lead {
	term = strings.ToLower(strings.TrimSpace(term))
	all := b.Leads()
	if term == "" {
		return all
	}
	out := make([]models.Lead, 0, len(all))
	for _, l := range all {
		if strings.Contains(strings.ToLower(l.Name), term) {
			out = append(out, l)
		}
	}
	return out
}

// PendingProposal returns the open proposal step for id, if any.
func (b *Board) PendingProposal(id string) (*PendingProposal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pending[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// ==========================
// Mutations
// ==========================

// MoveLead changes a lead's lane. Moving to quoted does not change the lane:
// it opens the proposal step instead. Moving to the current lane is a no-op.
func (b *Board) MoveLead(ctx context.Context, id string, target models.LeadStatus) (MoveResult, error) {
	if !target.Valid() {
		return MoveResult{}, apperrors.NewInvalidLeadStatusError(string(target))
	}

	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return MoveResult{}, apperrors.NewLeadNotFoundError(id)
	}
	lead := &b.leads[i]

	if lead.Status == target {
		res := MoveResult{Lead: lead.Clone()}
		b.mu.Unlock()
		return res, nil
	}

	if target == models.StatusQuoted {
		p := &PendingProposal{LeadID: id, OpenedAt: b.opts.Clock()}
		if lead.Proposal != nil {
			prefill := *lead.Proposal
			p.Prefill = &prefill
		}
		b.pending[id] = p
		res := MoveResult{Lead: lead.Clone(), ProposalRequired: true, Pending: clonePending(p)}
		b.mu.Unlock()
		return res, nil
	}

	from := lead.Status
	lead.Status = target
	lead.UpdatedAt = b.opts.Clock()
	b.touched[id] = lead.UpdatedAt
	delete(b.pending, id)
	res := MoveResult{Lead: lead.Clone(), Moved: true}
	status := target
	// Enqueued under b.mu so remote writes keep the order of local ones.
	b.enqueue("move", id, models.LeadUpdate{Status: &status})
	b.mu.Unlock()

	metrics.PipelineMoves.WithLabelValues(string(from), string(target)).Inc()
	b.logger.Info("lead moved", map[string]interface{}{"leadId": id, "from": from, "to": target})
	return res, nil
}

// Reorder handles a drop of dragged onto target. Within a lane the dragged
// lead takes the target's position locally; across lanes it moves to the
// target's lane.
func (b *Board) Reorder(ctx context.Context, draggedID, targetID string) (MoveResult, error) {
	b.mu.Lock()
	from, to := b.indexOf(draggedID), b.indexOf(targetID)
	if from < 0 {
		b.mu.Unlock()
		return MoveResult{}, apperrors.NewLeadNotFoundError(draggedID)
	}
	if to < 0 {
		b.mu.Unlock()
		return MoveResult{}, apperrors.NewLeadNotFoundError(targetID)
	}

	if b.leads[from].Status != b.leads[to].Status {
		target := b.leads[to].Status
		b.mu.Unlock()
		return b.MoveLead(ctx, draggedID, target)
	}

	if from != to {
		moved := b.leads[from]
		b.leads = append(b.leads[:from], b.leads[from+1:]...)
		b.leads = append(b.leads[:to], append([]models.Lead{moved}, b.leads[to:]...)...)
	}
	res := MoveResult{Lead: b.leads[to].Clone()}
	b.mu.Unlock()
	return res, nil
}

// AttachProposal confirms the proposal step: the proposal replaces any
// previous one, the lead moves to quoted and its estimated value becomes the
// proposal value.
func (b *Board) AttachProposal(ctx context.Context, id, value, fileURL string) (models.Lead, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.Lead{}, apperrors.NewInvalidInputError("proposal value is required")
	}

	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return models.Lead{}, apperrors.NewLeadNotFoundError(id)
	}

	now := b.opts.Clock()
	lead := &b.leads[i]
	from := lead.Status
	proposal := models.Proposal{Value: value, FileURL: fileURL, Date: now.Format("2006-01-02")}

	lead.Proposal = &proposal
	lead.Status = models.StatusQuoted
	lead.EstimatedValue = value
	lead.UpdatedAt = now
	b.touched[id] = now
	delete(b.pending, id)
	out := lead.Clone()
	status := models.StatusQuoted
	b.enqueue("attach_proposal", id, models.LeadUpdate{Status: &status, EstimatedValue: &value, Proposal: &proposal})
	b.mu.Unlock()

	if from != models.StatusQuoted {
		metrics.PipelineMoves.WithLabelValues(string(from), string(models.StatusQuoted)).Inc()
	}
	b.logger.Info("proposal attached", map[string]interface{}{"leadId": id, "value": value, "hasFile": fileURL != ""})
	return out, nil
}

// CancelProposal closes the proposal step without touching the lead.
func (b *Board) CancelProposal(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[id]
	delete(b.pending, id)
	return ok
}

// Upsert places a lead on the board: replaced in place when known,
// otherwise inserted first.
func (b *Board) Upsert(lead models.Lead) {
	lead = models.NormalizeLead(lead).Clone()

	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexOf(lead.ID); i >= 0 {
		b.leads[i] = lead
		return
	}
	b.leads = append([]models.Lead{lead}, b.leads...)
}

// ApplySnapshot reconciles the board with a full store snapshot. Leads
// already on the board keep their position; new leads are placed first in
// snapshot order. A lead mutated locally within the grace window keeps its
// local copy, since the snapshot may predate the pending write.
func (b *Board) ApplySnapshot(snapshot []models.Lead) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.opts.Clock()
	incoming := make(map[string]models.Lead, len(snapshot))
	var fresh []models.Lead
	for _, l := range snapshot {
		l = models.NormalizeLead(l).Clone()
		if _, dup := incoming[l.ID]; dup {
			continue
		}
		incoming[l.ID] = l
		if b.indexOf(l.ID) < 0 {
			fresh = append(fresh, l)
		}
	}

	merged := make([]models.Lead, 0, len(snapshot))
	merged = append(merged, fresh...)
	for _, local := range b.leads {
		protected := b.withinGrace(local.ID, now)
		remote, ok := incoming[local.ID]
		switch {
		case protected:
			merged = append(merged, local)
		case ok:
			merged = append(merged, remote)
		}
	}

	for id, at := range b.touched {
		if now.Sub(at) > b.opts.ReconcileGrace {
			delete(b.touched, id)
		}
	}
	for id := range b.pending {
		if _, ok := incoming[id]; !ok && !b.withinGrace(id, now) {
			delete(b.pending, id)
		}
	}
	b.leads = merged
}

func (b *Board) withinGrace(id string, now time.Time) bool {
	at, ok := b.touched[id]
	return ok && b.opts.ReconcileGrace > 0 && now.Sub(at) <= b.opts.ReconcileGrace
}

func (b *Board) indexOf(id string) int {
	for i := range b.leads {
		if b.leads[i].ID == id {
			return i
		}
	}
	return -1
}

// ==========================
// Persistence
// ==========================

func (b *Board) enqueue(op, id string, update models.LeadUpdate) {
	if b.persister == nil {
		return
	}
	b.qmu.Lock()
	if b.closed {
		b.qmu.Unlock()
		b.logger.Warn("board closed, dropping remote write", map[string]interface{}{"op": op, "leadId": id})
		return
	}
	b.inflight++
	b.queue = append(b.queue, write{op: op, id: id, update: update})
	b.qmu.Unlock()
	b.signal()
}

func (b *Board) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest queued write. ok is false once the board is closed
// and the queue is drained.
func (b *Board) next() (w write, ok bool) {
	for {
		b.qmu.Lock()
		if len(b.queue) > 0 {
			w = b.queue[0]
			b.queue[0] = write{}
			b.queue = b.queue[1:]
			b.qmu.Unlock()
			return w, true
		}
		closed := b.closed
		b.qmu.Unlock()
		if closed {
			return write{}, false
		}
		<-b.wake
	}
}

func (b *Board) writeLoop() {
	defer close(b.done)
	for {
		w, ok := b.next()
		if !ok {
			return
		}
		b.apply(w)

		b.qmu.Lock()
		b.inflight--
		if b.inflight == 0 {
			b.idle.Broadcast()
		}
		b.qmu.Unlock()
	}
}

func (b *Board) apply(w write) {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.RemoteTimeout)
	defer cancel()

	if err := b.persister.UpdateFields(ctx, w.id, w.update); err != nil {
		metrics.PipelineRemoteWriteFailures.WithLabelValues(w.op).Inc()
		b.logger.Error("remote write failed, keeping local state", map[string]interface{}{
			"op":     w.op,
			"leadId": w.id,
			"error":  err.Error(),
		})
	}
}

// Flush waits until every queued remote write has been attempted.
func (b *Board) Flush(ctx context.Context) error {
	if b.persister == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		b.qmu.Lock()
		for b.inflight > 0 {
			b.idle.Wait()
		}
		b.qmu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes and waits for the queued ones, bounded by
// ctx. Writes still queued when ctx ends are attempted in the background.
func (b *Board) Close(ctx context.Context) error {
	if b.persister == nil {
		return nil
	}
	b.qmu.Lock()
	if b.closed {
		b.qmu.Unlock()
		return nil
	}
	b.closed = true
	b.qmu.Unlock()
	b.signal()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		b.qmu.Lock()
		dropped := len(b.queue)
		b.qmu.Unlock()
		b.logger.Warn("board close timed out with writes pending", map[string]interface{}{"pending": dropped})
		return ctx.Err()
	}
}

func cloneAll(in []models.Lead) []models.Lead {
	out := make([]models.Lead, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}

func clonePending(p *PendingProposal) *PendingProposal {
	cp := *p
	return &cp
}
