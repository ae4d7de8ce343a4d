package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/lifecycle"
)

func (h *harness) sweeper(cfg SweepConfig) *Sweeper {
	return NewSweeper(h.svc, h.store, h.clock, cfg, zerolog.Nop())
}

func TestSweep_EvaluatesDueListings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		h.create(t, mondayClass())
	}
	sw := h.sweeper(SweepConfig{Workers: 2})
	assert.True(t, strings.HasPrefix(sw.Owner(), "sweep-"))

	h.clock.Set(t0.Add(time.Hour))
	report, err := sw.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Due, "nothing is due before the first threshold")

	h.clock.Set(t0.Add(8*week + time.Hour))
	report, err = sw.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Due)
	assert.Equal(t, 3, report.Evaluated)
	assert.Equal(t, 3, report.Transitioned)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.False(t, report.Interrupted)
	assert.True(t, report.Started.Equal(t0.Add(8*week+time.Hour)))

	report, err = sw.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Due, "next threshold is a week away")
}

func TestSweep_BatchLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		h.create(t, mondayClass())
	}
	h.clock.Set(t0.Add(8*week + time.Hour))

	report, err := h.sweeper(SweepConfig{Batch: 2}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Due)

	report, err = h.sweeper(SweepConfig{Batch: 2}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
}

func TestSweep_SkipsClaimedListings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	held := h.create(t, mondayClass())
	h.create(t, mondayClass())
	h.clock.Set(t0.Add(8*week + time.Hour))

	ok, err := h.store.Claim(ctx, held.ID, "other-process", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	report, err := h.sweeper(SweepConfig{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Due)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.Skipped)

	due, err := h.store.DueBefore(ctx, h.clock.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{held.ID}, due)
}

func TestSweep_CountsFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.create(t, mondayClass())

	broken := mondayClass()
	broken.Kind = entities.KindEvent
	broken.Recurrence.TimeZone = "Nowhere/Special"
	lifecycle.NewMachine(lifecycle.Production()).Initialize(broken, t0)
	require.NoError(t, h.store.Create(ctx, broken))

	h.clock.Set(t0.Add(8*week + time.Hour))
	report, err := h.sweeper(SweepConfig{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Due)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.Failed)

	stored, err := h.store.FindByID(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusVerified, stored.Status)
}

type cancellingNotifier struct {
	recorder
	cancel context.CancelFunc
}

func (n *cancellingNotifier) Notify(ctx context.Context, notice lifecycle.Notice) error {
	n.cancel()
	return n.recorder.Notify(ctx, notice)
}

func TestSweep_StopsWhenCancelled(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.create(t, mondayClass())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notes := &cancellingNotifier{cancel: cancel}
	svc := newService(h.store, h.store, notes, h.clock)
	h.clock.Set(t0.Add(9*week + time.Hour))

	report, err := NewSweeper(svc, h.store, h.clock, SweepConfig{Workers: 1}, zerolog.Nop()).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Interrupted)
	assert.Equal(t, 3, report.Due)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.Transitioned)

	due, err := h.store.DueBefore(context.Background(), h.clock.Now(), 10)
	require.NoError(t, err)
	assert.Len(t, due, 2, "unvisited listings stay due")
}

func TestSweepConfig_Defaults(t *testing.T) {
	cfg := SweepConfig{}.normalized()
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 500, cfg.Batch)
	assert.Zero(t, cfg.Budget)
}
