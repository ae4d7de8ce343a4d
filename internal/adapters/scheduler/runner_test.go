package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/ports/input"
)

type countingSweep struct {
	runs atomic.Int32
}

func (c *countingSweep) Run(context.Context) (input.SweepReport, error) {
	c.runs.Add(1)
	return input.SweepReport{}, nil
}

func TestNewRunner_RejectsBadSchedule(t *testing.T) {
	_, err := NewRunner(&countingSweep{}, "every tuesday", zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewRunner_DefaultSchedule(t *testing.T) {
	r, err := NewRunner(&countingSweep{}, "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, r.schedule)
}

func TestRunner_SweepsOnStartAndStops(t *testing.T) {
	sweep := &countingSweep{}
	r, err := NewRunner(sweep, "@every 1h", zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return sweep.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, int32(1), sweep.runs.Load())
}
