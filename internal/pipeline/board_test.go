package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/metrics"
	"broker-backoffice/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

type recordedWrite struct {
	id     string
	update models.LeadUpdate
}

type fakePersister struct {
	mu     sync.Mutex
	writes []recordedWrite
	err    error
	delay  time.Duration
}

func (f *fakePersister) UpdateFields(ctx context.Context, id string, update models.LeadUpdate) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, recordedWrite{id: id, update: update})
	return f.err
}

func (f *fakePersister) recorded() []recordedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedWrite(nil), f.writes...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)}
}

func setupBoard(t *testing.T, p Persister, clock *fakeClock) *Board {
	t.Helper()
	b := NewBoard(p, Options{
		RemoteTimeout:  time.Second,
		ReconcileGrace: 5 * time.Second,
		Clock:          clock.Now,
		Logger:         logger.NewTestLogger(t),
	})
	b.ApplySnapshot(SeedLeads())
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func flush(t *testing.T, b *Board) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Flush(ctx))
}

func ids(leads []models.Lead) []string {
	out := make([]string, len(leads))
	for i, l := range leads {
		out[i] = l.ID
	}
	return out
}

// ==========================
// Seed and Lanes
// ==========================

func TestDemoBoard_MatchesSeed(t *testing.T) {
	b := NewDemoBoard(Options{})
	defer b.Close(context.Background())

	assert.True(t, b.Demo())
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, ids(b.Leads()))
	assert.Equal(t, SeedLeads(), b.Leads())
}

func TestLanes(t *testing.T) {
	b := NewDemoBoard(Options{})
	defer b.Close(context.Background())

	lanes := b.Lanes()
	require.Len(t, lanes, 4)

	assert.Equal(t, models.StatusNew, lanes[0].Status)
	assert.Equal(t, "Novo", lanes[0].Label)
	assert.Equal(t, []string{"1", "5"}, ids(lanes[0].Leads))
	assert.Equal(t, []string{"2", "6"}, ids(lanes[1].Leads))
	assert.Equal(t, []string{"3"}, ids(lanes[2].Leads))
	assert.Equal(t, 1, lanes[3].Count)
}

func TestRecentAndFilter(t *testing.T) {
	b := NewDemoBoard(Options{})
	defer b.Close(context.Background())

	assert.Equal(t, []string{"1", "2", "3"}, ids(b.Recent(3)))
	assert.Equal(t, []string{"4"}, ids(b.Filter("veloz")))
	assert.Len(t, b.Filter("  "), 6)
}

// ==========================
// MoveLead
// ==========================

func TestMoveLead_UpdatesLaneAndPersists(t *testing.T) {
	p := &fakePersister{}
	b := setupBoard(t, p, newClock())

	res, err := b.MoveLead(context.Background(), "1", models.StatusInAnalysis)
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.False(t, res.ProposalRequired)
	assert.Equal(t, models.StatusInAnalysis, res.Lead.Status)

	lead, ok := b.Lead("1")
	require.True(t, ok)
	assert.Equal(t, models.StatusInAnalysis, lead.Status)

	flush(t, b)
	writes := p.recorded()
	require.Len(t, writes, 1)
	assert.Equal(t, "1", writes[0].id)
	require.NotNil(t, writes[0].update.Status)
	assert.Equal(t, models.StatusInAnalysis, *writes[0].update.Status)
	assert.Nil(t, writes[0].update.Proposal)
}

func TestMoveLead_ToQuotedOpensProposalStep(t *testing.T) {
	p := &fakePersister{}
	b := setupBoard(t, p, newClock())

	res, err := b.MoveLead(context.Background(), "1", models.StatusQuoted)
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.True(t, res.ProposalRequired)
	require.NotNil(t, res.Pending)
	assert.Nil(t, res.Pending.Prefill)

	lead, _ := b.Lead("1")
	assert.Equal(t, models.StatusNew, lead.Status)

	_, open := b.PendingProposal("1")
	assert.True(t, open)

	flush(t, b)
	assert.Empty(t, p.recorded())
}

func TestMoveLead_CancelLeavesLeadUnchanged(t *testing.T) {
	b := setupBoard(t, &fakePersister{}, newClock())
	before, _ := b.Lead("1")

	_, err := b.MoveLead(context.Background(), "1", models.StatusQuoted)
	require.NoError(t, err)
	assert.True(t, b.CancelProposal("1"))

	after, _ := b.Lead("1")
	assert.Equal(t, before, after)
	_, open := b.PendingProposal("1")
	assert.False(t, open)
	assert.False(t, b.CancelProposal("1"))
}

func TestMoveLead_SameLaneIsNoop(t *testing.T) {
	p := &fakePersister{}
	b := setupBoard(t, p, newClock())

	res, err := b.MoveLead(context.Background(), "2", models.StatusInAnalysis)
	require.NoError(t, err)
	assert.False(t, res.Moved)

	flush(t, b)
	assert.Empty(t, p.recorded())
}

func TestMoveLead_Errors(t *testing.T) {
	b := setupBoard(t, &fakePersister{}, newClock())

	_, err := b.MoveLead(context.Background(), "missing", models.StatusClosed)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound))

	_, err = b.MoveLead(context.Background(), "1", models.LeadStatus("archived"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidLeadStatus))
}

func TestMoveLead_RemoteFailureKeepsLocalState(t *testing.T) {
	p := &fakePersister{err: errors.New("permission denied")}
	b := setupBoard(t, p, newClock())
	failures := metrics.PipelineRemoteWriteFailures.WithLabelValues("move")
	before := testutil.ToFloat64(failures)

	_, err := b.MoveLead(context.Background(), "5", models.StatusClosed)
	require.NoError(t, err)
	flush(t, b)

	lead, _ := b.Lead("5")
	assert.Equal(t, models.StatusClosed, lead.Status)
	assert.Equal(t, before+1, testutil.ToFloat64(failures))
}

func TestMoveLead_SlowStoreDoesNotBlock(t *testing.T) {
	p := &fakePersister{delay: 200 * time.Millisecond}
	b := setupBoard(t, p, newClock())

	start := time.Now()
	_, err := b.MoveLead(context.Background(), "1", models.StatusClosed)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	flush(t, b)
	assert.Len(t, p.recorded(), 1)
}

// ==========================
// AttachProposal
// ==========================

func TestAttachProposal(t *testing.T) {
	p := &fakePersister{}
	b := setupBoard(t, p, newClock())

	_, err := b.MoveLead(context.Background(), "1", models.StatusQuoted)
	require.NoError(t, err)

	lead, err := b.AttachProposal(context.Background(), "1", "R$ 5.000", "https://files.example.com/p.pdf")
	require.NoError(t, err)

	assert.Equal(t, models.StatusQuoted, lead.Status)
	assert.Equal(t, "R$ 5.000", lead.EstimatedValue)
	require.NotNil(t, lead.Proposal)
	assert.Equal(t, "2025-03-10", lead.Proposal.Date)
	assert.Equal(t, "https://files.example.com/p.pdf", lead.Proposal.FileURL)

	_, open := b.PendingProposal("1")
	assert.False(t, open)

	flush(t, b)
	writes := p.recorded()
	require.Len(t, writes, 1)
	assert.Equal(t, models.StatusQuoted, *writes[0].update.Status)
	assert.Equal(t, "R$ 5.000", *writes[0].update.EstimatedValue)
	assert.Equal(t, "2025-03-10", writes[0].update.Proposal.Date)
}

func TestAttachProposal_ReplacesPrevious(t *testing.T) {
	clock := newClock()
	b := setupBoard(t, &fakePersister{}, clock)

	_, err := b.AttachProposal(context.Background(), "3", "R$ 150/mês", "a.pdf")
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)

	lead, err := b.AttachProposal(context.Background(), "3", "R$ 180/mês", "")
	require.NoError(t, err)
	assert.Equal(t, "R$ 180/mês", lead.Proposal.Value)
	assert.Empty(t, lead.Proposal.FileURL)
	assert.Equal(t, "2025-03-12", lead.Proposal.Date)
}

func TestAttachProposal_RequiresValue(t *testing.T) {
	b := setupBoard(t, &fakePersister{}, newClock())

	_, err := b.AttachProposal(context.Background(), "1", "  ", "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	lead, _ := b.Lead("1")
	assert.Equal(t, models.StatusNew, lead.Status)
}

func TestMoveLead_QuotedAgainPrefillsProposal(t *testing.T) {
	b := setupBoard(t, &fakePersister{}, newClock())

	_, err := b.AttachProposal(context.Background(), "1", "R$ 900", "")
	require.NoError(t, err)
	_, err = b.MoveLead(context.Background(), "1", models.StatusInAnalysis)
	require.NoError(t, err)

	lead, _ := b.Lead("1")
	require.NotNil(t, lead.Proposal)

	res, err := b.MoveLead(context.Background(), "1", models.StatusQuoted)
	require.NoError(t, err)
	require.NotNil(t, res.Pending.Prefill)
	assert.Equal(t, "R$ 900", res.Pending.Prefill.Value)
}

// ==========================
// Reorder
// ==========================

func TestReorder_SameLaneIsLocal(t *testing.T) {
	p := &fakePersister{}
	b := setupBoard(t, p, newClock())

	res, err := b.Reorder(context.Background(), "5", "1")
	require.NoError(t, err)
	assert.False(t, res.Moved)

	assert.Equal(t, []string{"5", "1", "2", "3", "4", "6"}, ids(b.Leads()))
	assert.Equal(t, []string{"5", "1"}, ids(b.Lanes()[0].Leads))

	flush(t, b)
	assert.Empty(t, p.recorded())
}

func TestReorder_AcrossLanesMoves(t *testing.T) {
	p := &fakePersister{}
	b := setupBoard(t, p, newClock())

	res, err := b.Reorder(context.Background(), "1", "4")
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Equal(t, models.StatusClosed, res.Lead.Status)

	flush(t, b)
	assert.Len(t, p.recorded(), 1)
}

func TestReorder_AcrossIntoQuotedNeedsProposal(t *testing.T) {
	b := setupBoard(t, &fakePersister{}, newClock())

	res, err := b.Reorder(context.Background(), "1", "3")
	require.NoError(t, err)
	assert.True(t, res.ProposalRequired)

	lead, _ := b.Lead("1")
	assert.Equal(t, models.StatusNew, lead.Status)
}

func TestReorder_UnknownLead(t *testing.T) {
	b := setupBoard(t, &fakePersister{}, newClock())

	_, err := b.Reorder(context.Background(), "1", "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound))
}

// ==========================
// Reconciliation
// ==========================

func TestApplySnapshot_AddsRemovesAndKeepsOrder(t *testing.T) {
	b := setupBoard(t, &fakePersister{}, newClock())

	snapshot := SeedLeads()[1:]
	snapshot[0].EstimatedValue = "R$ 13.000"
	snapshot = append(snapshot, models.Lead{ID: "7", Name: "Novo Cliente", Status: models.StatusNew})

	b.ApplySnapshot(snapshot)

	assert.Equal(t, []string{"7", "2", "3", "4", "5", "6"}, ids(b.Leads()))
	lead, _ := b.Lead("2")
	assert.Equal(t, "R$ 13.000", lead.EstimatedValue)
	added, _ := b.Lead("7")
	assert.Equal(t, models.EstimatedValuePending, added.EstimatedValue)
}

func TestApplySnapshot_GraceProtectsLocalMutation(t *testing.T) {
	clock := newClock()
	b := setupBoard(t, &fakePersister{}, clock)

	_, err := b.MoveLead(context.Background(), "1", models.StatusClosed)
	require.NoError(t, err)

	// stale snapshot still shows the old lane
	b.ApplySnapshot(SeedLeads())
	lead, _ := b.Lead("1")
	assert.Equal(t, models.StatusClosed, lead.Status)

	clock.Advance(10 * time.Second)
	b.ApplySnapshot(SeedLeads())
	lead, _ = b.Lead("1")
	assert.Equal(t, models.StatusNew, lead.Status)
}

func TestUpsert(t *testing.T) {
	b := setupBoard(t, &fakePersister{}, newClock())

	b.Upsert(models.Lead{ID: "9", Name: " Site Lead ", Status: models.StatusNew, Origin: models.OriginSiteForm})
	assert.Equal(t, "9", b.Leads()[0].ID)
	lead, _ := b.Lead("9")
	assert.Equal(t, "Site Lead", lead.Name)

	b.Upsert(models.Lead{ID: "9", Name: "Site Lead", Status: models.StatusInAnalysis})
	assert.Len(t, b.Leads(), 7)
	lead, _ = b.Lead("9")
	assert.Equal(t, models.StatusInAnalysis, lead.Status)
}

func TestClose_DropsLateWrites(t *testing.T) {
	p := &fakePersister{}
	b := setupBoard(t, p, newClock())

	require.NoError(t, b.Close(context.Background()))
	_, err := b.MoveLead(context.Background(), "1", models.StatusClosed)
	require.NoError(t, err)
	assert.Empty(t, p.recorded())
}

func TestClose_BoundedByContext(t *testing.T) {
	p := &fakePersister{delay: 500 * time.Millisecond}
	b := NewBoard(p, Options{RemoteTimeout: time.Second, Logger: logger.NewTestLogger(t)})
	b.ApplySnapshot(SeedLeads())

	for _, status := range []models.LeadStatus{models.StatusInAnalysis, models.StatusClosed, models.StatusNew} {
		_, err := b.MoveLead(context.Background(), "1", status)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := b.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

// echoPersister applies every write back onto the board as a snapshot, the
// way a store with a change feed does.
type echoPersister struct {
	mu    sync.Mutex
	board *Board
	leads map[string]models.Lead
}

func (e *echoPersister) UpdateFields(ctx context.Context, id string, update models.LeadUpdate) error {
	e.mu.Lock()
	lead := e.leads[id]
	if update.Status != nil {
		lead.Status = *update.Status
	}
	e.leads[id] = lead
	snapshot := make([]models.Lead, 0, len(e.leads))
	for _, l := range SeedLeads() {
		snapshot = append(snapshot, e.leads[l.ID])
	}
	e.mu.Unlock()

	e.board.ApplySnapshot(snapshot)
	return nil
}

func TestMoveLead_ManyMovesWithEchoingStore(t *testing.T) {
	e := &echoPersister{leads: map[string]models.Lead{}}
	for _, l := range SeedLeads() {
		e.leads[l.ID] = l
	}
	b := setupBoard(t, e, newClock())
	e.board = b

	statuses := []models.LeadStatus{models.StatusInAnalysis, models.StatusClosed, models.StatusNew}
	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					_, _ = b.MoveLead(context.Background(), "1", statuses[(g+i)%len(statuses)])
				}
			}(g)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("moves stalled behind remote writes")
	}
	flush(t, b)

	lead, _ := b.Lead("1")
	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Equal(t, lead.Status, e.leads["1"].Status)
}
