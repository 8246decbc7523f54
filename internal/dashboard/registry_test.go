package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-bands-dashboard/internal/chart"
	"github.com/i474232898/weather-bands-dashboard/internal/logger"
)

func newTestRegistry(t *testing.T, idle time.Duration) (*Registry, *mockBandSource) {
	src := &mockBandSource{}
	src.On("DailyBands", mock.Anything, "USC00118740", 2023).Return(bandsFor("USC00118740", 2023, 5), nil)

	catalog := testCatalog(t)
	r := NewRegistry(func() *Controller {
		return NewController(catalog, src, chart.NewBandChart(""), time.Second, logger.Discard())
	}, idle)
	return r, src
}

func TestRegistry_CreateGetDelete(t *testing.T) {
	r, _ := newTestRegistry(t, time.Hour)

	id, ctrl := r.Create(context.Background())
	require.NotEmpty(t, id)
	assert.Equal(t, "Weather data for Champaign, IL 2023", ctrl.View().Title)

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, ctrl, got)

	other, _ := r.Create(context.Background())
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, r.Len())

	require.NoError(t, r.Delete(id))
	_, err = r.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, r.Delete(id), ErrSessionNotFound)
}

func TestRegistry_Sweep(t *testing.T) {
	r, _ := newTestRegistry(t, time.Minute)
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	stale, _ := r.Create(context.Background())
	fresh, _ := r.Create(context.Background())

	now = now.Add(45 * time.Second)
	_, err := r.Get(fresh)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, r.Sweep())

	_, err = r.Get(stale)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get(fresh)
	assert.NoError(t, err)
}

func TestRegistry_SweepDisabled(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	r.Create(context.Background())

	assert.Zero(t, r.Sweep())
	assert.Equal(t, 1, r.Len())
}
