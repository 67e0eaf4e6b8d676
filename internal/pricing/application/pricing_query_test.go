package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

func TestPricingQueryService_GetLatestResult(t *testing.T) {
	ctx := context.Background()
	stored := &domain.PricingResult{
		ID:           7,
		Symbol:       "GGAL",
		PricingModel: domain.PricingModelBlackScholes,
	}

	t.Run("serves from cache without touching the repository", func(t *testing.T) {
		repo := &fakeRepo{}
		cache := newFakeCache()
		cache.store[cacheKey("GGAL", domain.PricingModelBlackScholes)] = stored
		svc := NewPricingQueryService(repo, cache, nil, testPricingConfig())

		result, err := svc.GetLatestResult(ctx, "GGAL", "")
		require.NoError(t, err)
		assert.Same(t, stored, result)
		assert.Equal(t, 0, repo.latestCalls)
	})

	t.Run("falls back to the repository and refills the cache", func(t *testing.T) {
		repo := &fakeRepo{pricingResults: []*domain.PricingResult{stored}}
		cache := newFakeCache()
		svc := NewPricingQueryService(repo, cache, nil, testPricingConfig())

		result, err := svc.GetLatestResult(ctx, "GGAL", "BLACK_SCHOLES")
		require.NoError(t, err)
		assert.Same(t, stored, result)
		assert.Equal(t, 1, repo.latestCalls)
		assert.Equal(t, 1, cache.setCalls)
	})

	t.Run("cache failure degrades to the repository", func(t *testing.T) {
		repo := &fakeRepo{pricingResults: []*domain.PricingResult{stored}}
		cache := newFakeCache()
		cache.failGet = true
		svc := NewPricingQueryService(repo, cache, nil, testPricingConfig())

		result, err := svc.GetLatestResult(ctx, "GGAL", "")
		require.NoError(t, err)
		assert.Same(t, stored, result)
	})

	t.Run("no record returns nil without error", func(t *testing.T) {
		svc := NewPricingQueryService(&fakeRepo{}, nil, nil, testPricingConfig())
		result, err := svc.GetLatestResult(ctx, "MISSING", "")
		assert.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("unknown model is rejected", func(t *testing.T) {
		svc := NewPricingQueryService(&fakeRepo{}, nil, nil, testPricingConfig())
		_, err := svc.GetLatestResult(ctx, "GGAL", "MONTE_CARLO")
		assert.ErrorIs(t, err, domain.ErrInvalidPricingModel)
	})

	t.Run("missing symbol is rejected", func(t *testing.T) {
		svc := NewPricingQueryService(&fakeRepo{}, nil, nil, testPricingConfig())
		_, err := svc.GetLatestResult(ctx, "", "")
		assert.Error(t, err)
	})
}

func TestPricingQueryService_Histories(t *testing.T) {
	ctx := context.Background()

	t.Run("zero limit defaults and large limits clamp", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := NewPricingQueryService(repo, nil, nil, testPricingConfig())

		_, err := svc.GetResultHistory(ctx, "GGAL", 0)
		require.NoError(t, err)
		assert.Equal(t, 20, repo.lastLimit)

		_, err = svc.GetResultHistory(ctx, "GGAL", 1000)
		require.NoError(t, err)
		assert.Equal(t, 200, repo.lastLimit)
	})

	t.Run("implied vol history uses the same clamping", func(t *testing.T) {
		repo := &fakeRepo{impliedVols: []*domain.ImpliedVolResult{{Symbol: "GGAL"}}}
		svc := NewPricingQueryService(repo, nil, nil, testPricingConfig())

		results, err := svc.GetImpliedVolHistory(ctx, "GGAL", 50)
		require.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, 50, repo.lastLimit)
	})
}

func TestPricingQueryService_ComputeGreeks(t *testing.T) {
	ctx := context.Background()
	cmd := PriceOptionCommand{
		Symbol:          "GGAL",
		OptionType:      "CALL",
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    1,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
	}

	t.Run("prices on the fly without persistence", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := NewPricingQueryService(repo, nil, nil, testPricingConfig())

		greeks, err := svc.ComputeGreeks(ctx, cmd)
		require.NoError(t, err)
		assert.InDelta(t, 10.450584, greeks.Prima, 1e-6)
		assert.InDelta(t, 0.636831, greeks.Delta, 1e-6)
		assert.Empty(t, repo.pricingResults)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		svc := NewPricingQueryService(&fakeRepo{}, nil, nil, testPricingConfig())

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.ComputeGreeks(cancelled, cmd)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewValuation(t *testing.T) {
	cfg := testPricingConfig()

	t.Run("model defaults from configuration", func(t *testing.T) {
		val, err := newValuation(PriceOptionCommand{OptionType: "CALL"}, cfg)
		require.NoError(t, err)
		assert.Equal(t, domain.PricingModelBlackScholes, val.model)
		assert.Equal(t, domain.ExerciseEuropean, val.style)
		assert.Equal(t, domain.UnderlyingEquity, val.contract.Underlying)
	})

	t.Run("binomial defaults to american with configured steps", func(t *testing.T) {
		val, err := newValuation(PriceOptionCommand{OptionType: "PUT", PricingModel: "CRR"}, cfg)
		require.NoError(t, err)
		assert.Equal(t, domain.PricingModelBinomial, val.model)
		assert.Equal(t, domain.ExerciseAmerican, val.style)
		assert.Equal(t, 100, val.steps)
	})

	t.Run("american approximation rejects european exercise", func(t *testing.T) {
		_, err := newValuation(PriceOptionCommand{
			OptionType:    "CALL",
			PricingModel:  "BS93",
			ExerciseStyle: "EUROPEAN",
		}, cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidExerciseStyle)
	})

	t.Run("expiry timestamp converts to year fraction", func(t *testing.T) {
		const yearMillis = 365 * 24 * 3600 * 1000

		val, err := newValuation(PriceOptionCommand{
			OptionType: "CALL",
			ExpiryDate: time.Now().UnixMilli() + yearMillis,
		}, cfg)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, val.contract.TimeToExpiry, 1e-3)
	})

	t.Run("past expiry collapses to zero", func(t *testing.T) {
		val, err := newValuation(PriceOptionCommand{
			OptionType: "CALL",
			ExpiryDate: 1000,
		}, cfg)
		require.NoError(t, err)
		assert.Equal(t, 0.0, val.contract.TimeToExpiry)
	})

	t.Run("explicit time to expiry wins over the timestamp", func(t *testing.T) {
		val, err := newValuation(PriceOptionCommand{
			OptionType:   "CALL",
			TimeToExpiry: 0.5,
			ExpiryDate:   1000,
		}, cfg)
		require.NoError(t, err)
		assert.Equal(t, 0.5, val.contract.TimeToExpiry)
	})
}
