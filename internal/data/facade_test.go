package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tradegate/internal/domain"
)

type fakeDerivs struct {
	result *DerivsResult
	err    error
}

func (f *fakeDerivs) Fetch(context.Context, string) (*DerivsResult, error) {
	return f.result, f.err
}

type fakeOptions struct {
	result *OptionsResult
	err    error
}

func (f *fakeOptions) Fetch(context.Context, string) (*OptionsResult, error) {
	return f.result, f.err
}

type fakeWhale struct {
	result *WhaleResult
	err    error
}

func (f *fakeWhale) Fetch(context.Context, string) (*WhaleResult, error) {
	return f.result, f.err
}

func facadeFixture(now time.Time) (*fakeDerivs, *fakeOptions, *fakeWhale) {
	derivs := &fakeDerivs{result: &DerivsResult{
		Price:    98200,
		Exchange: "binance",
		Metrics:  &domain.ExchangeMetrics{FundingRate: 0.02, OpenInterest: 1.2e9},
		AsOf:     now.Add(-time.Minute),
	}}
	options := &fakeOptions{result: &OptionsResult{
		Metrics: &domain.OptionsMetrics{
			VolStance:    domain.VolStanceLong,
			ComfortRange: &domain.PriceRange{Lower: 95000, Upper: 110000},
		},
		AsOf: now.Add(-2 * time.Minute),
	}}
	whale := &fakeWhale{result: &WhaleResult{
		Metrics: &domain.WhaleMetrics{CVD24h: 5e6, CVD7d: 2e7, WhaleVolumeRatio: 0.4},
		AsOf:    now.Add(-30 * time.Second),
	}}
	return derivs, options, whale
}

func TestFacade_BuildSnapshotAllSourcesFresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	derivs, options, whale := facadeFixture(now)
	f := NewFacade(DefaultFacadeConfig(), derivs, options, whale, nil)
	f.nowFn = func() time.Time { return now }

	snap, err := f.BuildSnapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, "BTC-USD", snap.Asset)
	assert.Equal(t, 98200.0, snap.Price)
	require.NotNil(t, snap.Exchange)
	require.NotNil(t, snap.Options)
	require.NotNil(t, snap.Whale)
	assert.True(t, snap.Quality.ExchangeFresh)
	assert.True(t, snap.Quality.OptionsFresh)
	assert.True(t, snap.Quality.WhaleFresh)
	assert.Equal(t, 1.0, snap.Quality.OverallScore)
}

func TestFacade_DerivsFailureFailsBuild(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	derivs, options, whale := facadeFixture(now)
	derivs.err = errors.New("venue 503")
	derivs.result = nil
	f := NewFacade(DefaultFacadeConfig(), derivs, options, whale, nil)
	f.nowFn = func() time.Time { return now }

	snap, err := f.BuildSnapshot(context.Background(), "BTC-USD")
	assert.Error(t, err)
	assert.Nil(t, snap)
}

func TestFacade_OptionalSourcesDegradeQuality(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	derivs, options, whale := facadeFixture(now)
	options.err = errors.New("options feed down")
	options.result = nil
	whale.err = errors.New("no prints yet")
	whale.result = nil
	f := NewFacade(DefaultFacadeConfig(), derivs, options, whale, nil)
	f.nowFn = func() time.Time { return now }

	snap, err := f.BuildSnapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)

	assert.Nil(t, snap.Options)
	assert.Nil(t, snap.Whale)
	assert.True(t, snap.Quality.ExchangeFresh)
	assert.False(t, snap.Quality.OptionsFresh)
	assert.False(t, snap.Quality.WhaleFresh)
	assert.Equal(t, 0.5, snap.Quality.OverallScore)
}

func TestFacade_StaleSourceMarkedNotFresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	derivs, options, whale := facadeFixture(now)
	whale.result.AsOf = now.Add(-time.Hour)
	f := NewFacade(DefaultFacadeConfig(), derivs, options, whale, nil)
	f.nowFn = func() time.Time { return now }

	snap, err := f.BuildSnapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)

	assert.NotNil(t, snap.Whale, "stale telemetry still attaches, only freshness drops")
	assert.False(t, snap.Quality.WhaleFresh)
	assert.Equal(t, 0.75, snap.Quality.OverallScore)
}
