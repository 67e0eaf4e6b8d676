package application

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/optionpricing/internal/contracts/domain"
	pricingapp "github.com/wyfcoding/optionpricing/internal/pricing/application"
	pricingdomain "github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/config"
)

type fakeContractRepo struct {
	contracts map[string]*domain.Contract
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{contracts: make(map[string]*domain.Contract)}
}

func (f *fakeContractRepo) Save(_ context.Context, contract *domain.Contract) error {
	if contract.ID == 0 {
		contract.ID = uint(len(f.contracts) + 1)
	}
	f.contracts[contract.Symbol] = contract
	return nil
}

func (f *fakeContractRepo) GetBySymbol(_ context.Context, symbol string) (*domain.Contract, error) {
	return f.contracts[symbol], nil
}

func (f *fakeContractRepo) ListActive(_ context.Context, underlying string, limit int) ([]*domain.Contract, error) {
	var out []*domain.Contract
	for _, c := range f.contracts {
		if c.Status != domain.StatusActive {
			continue
		}
		if underlying != "" && c.Underlying != underlying {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeContractRepo) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for _, c := range f.contracts {
		if c.Status == domain.StatusActive && c.IsExpired(now) {
			c.Status = domain.StatusExpired
			count++
		}
	}
	return count, nil
}

type stubPricingRepo struct {
	saved []*pricingdomain.PricingResult
}

func (s *stubPricingRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *stubPricingRepo) SavePricingResult(_ context.Context, result *pricingdomain.PricingResult) error {
	s.saved = append(s.saved, result)
	return nil
}

func (s *stubPricingRepo) GetLatestPricingResult(_ context.Context, _ string, _ pricingdomain.PricingModelType) (*pricingdomain.PricingResult, error) {
	return nil, nil
}

func (s *stubPricingRepo) GetPricingResultHistory(_ context.Context, _ string, _ int) ([]*pricingdomain.PricingResult, error) {
	return nil, nil
}

func (s *stubPricingRepo) SaveImpliedVolResult(_ context.Context, _ *pricingdomain.ImpliedVolResult) error {
	return nil
}

func (s *stubPricingRepo) GetImpliedVolHistory(_ context.Context, _ string, _ int) ([]*pricingdomain.ImpliedVolResult, error) {
	return nil, nil
}

func newTestService(repo domain.ContractRepository, pricingRepo *stubPricingRepo) *ContractAppService {
	cfg := config.PricingConfig{DefaultModel: "BLACK_SCHOLES", DefaultSteps: 100, MaxLatticeSteps: 2000}
	pricing := pricingapp.NewPricingCommandService(pricingRepo, nil, nil, nil, cfg)
	return NewContractAppService(repo, pricing, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestContractAppService_Register(t *testing.T) {
	ctx := context.Background()
	expiry := time.Now().Add(90 * 24 * time.Hour)

	t.Run("normalizes the vocabulary before saving", func(t *testing.T) {
		repo := newFakeContractRepo()
		svc := newTestService(repo, &stubPricingRepo{})

		contract, err := svc.Register(ctx, RegisterContractCommand{
			Symbol:        "GFGC120DI",
			OptionType:    "call",
			Underlying:    "accion",
			ExerciseStyle: "europea",
			StrikePrice:   120,
			ExpiryDate:    expiry,
		})
		require.NoError(t, err)
		assert.Equal(t, "CALL", contract.OptionType)
		assert.Equal(t, "EQUITY", contract.Underlying)
		assert.Equal(t, "EUROPEAN", contract.ExerciseStyle)
		assert.Empty(t, contract.Settlement)
		assert.Equal(t, domain.StatusActive, contract.Status)
		assert.True(t, contract.StrikePrice.Equal(decimal.NewFromInt(120)))
		assert.Contains(t, repo.contracts, "GFGC120DI")
	})

	t.Run("future underlyings must declare a settlement style", func(t *testing.T) {
		svc := newTestService(newFakeContractRepo(), &stubPricingRepo{})

		_, err := svc.Register(ctx, RegisterContractCommand{
			Symbol:        "DLR122400C",
			OptionType:    "CALL",
			Underlying:    "FUTURO",
			ExerciseStyle: "AMERICANA",
			StrikePrice:   1224,
			ExpiryDate:    expiry,
		})
		assert.ErrorIs(t, err, pricingdomain.ErrInvalidSettlementStyle)
	})

	t.Run("matba rofex futures register with their settlement", func(t *testing.T) {
		svc := newTestService(newFakeContractRepo(), &stubPricingRepo{})

		contract, err := svc.Register(ctx, RegisterContractCommand{
			Symbol:        "SOJ1152500P",
			OptionType:    "PUT",
			Underlying:    "FUTURE",
			Settlement:    "MATBA_ROFEX",
			ExerciseStyle: "AMERICAN",
			StrikePrice:   152500,
			ExpiryDate:    expiry,
		})
		require.NoError(t, err)
		assert.Equal(t, "MATBA_ROFEX_STYLE", contract.Settlement)
	})

	t.Run("expiry must lie in the future", func(t *testing.T) {
		svc := newTestService(newFakeContractRepo(), &stubPricingRepo{})

		_, err := svc.Register(ctx, RegisterContractCommand{
			Symbol:        "OLD",
			OptionType:    "CALL",
			Underlying:    "EQUITY",
			ExerciseStyle: "EUROPEAN",
			StrikePrice:   100,
			ExpiryDate:    time.Now().Add(-time.Hour),
		})
		assert.ErrorIs(t, err, domain.ErrExpiryInPast)
	})

	t.Run("duplicate symbols are rejected", func(t *testing.T) {
		repo := newFakeContractRepo()
		svc := newTestService(repo, &stubPricingRepo{})

		cmd := RegisterContractCommand{
			Symbol:        "GFGC120DI",
			OptionType:    "CALL",
			Underlying:    "EQUITY",
			ExerciseStyle: "EUROPEAN",
			StrikePrice:   120,
			ExpiryDate:    expiry,
		}
		_, err := svc.Register(ctx, cmd)
		require.NoError(t, err)

		_, err = svc.Register(ctx, cmd)
		assert.ErrorIs(t, err, domain.ErrContractExists)
	})

	t.Run("vocabulary errors carry the offending token", func(t *testing.T) {
		svc := newTestService(newFakeContractRepo(), &stubPricingRepo{})

		_, err := svc.Register(ctx, RegisterContractCommand{
			Symbol:        "BAD",
			OptionType:    "STRADDLE",
			Underlying:    "EQUITY",
			ExerciseStyle: "EUROPEAN",
			StrikePrice:   100,
			ExpiryDate:    expiry,
		})
		assert.ErrorIs(t, err, pricingdomain.ErrInvalidOptionType)
		assert.ErrorContains(t, err, "STRADDLE")
	})
}

func TestContractAppService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("missing contract maps to not found", func(t *testing.T) {
		svc := newTestService(newFakeContractRepo(), &stubPricingRepo{})
		_, err := svc.Get(ctx, "NOPE")
		assert.ErrorIs(t, err, domain.ErrContractNotFound)
	})

	t.Run("existing contract is returned as stored", func(t *testing.T) {
		repo := newFakeContractRepo()
		repo.contracts["GGAL"] = &domain.Contract{Symbol: "GGAL", Status: domain.StatusActive}
		svc := newTestService(repo, &stubPricingRepo{})

		contract, err := svc.Get(ctx, "GGAL")
		require.NoError(t, err)
		assert.Equal(t, "GGAL", contract.Symbol)
	})
}

func TestContractAppService_Expire(t *testing.T) {
	ctx := context.Background()

	t.Run("active contracts transition to expired", func(t *testing.T) {
		repo := newFakeContractRepo()
		repo.contracts["GGAL"] = &domain.Contract{Symbol: "GGAL", Status: domain.StatusActive}
		svc := newTestService(repo, &stubPricingRepo{})

		contract, err := svc.Expire(ctx, "GGAL")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusExpired, contract.Status)
		assert.Equal(t, domain.StatusExpired, repo.contracts["GGAL"].Status)
	})

	t.Run("expiring twice fails", func(t *testing.T) {
		repo := newFakeContractRepo()
		repo.contracts["GGAL"] = &domain.Contract{Symbol: "GGAL", Status: domain.StatusExpired}
		svc := newTestService(repo, &stubPricingRepo{})

		_, err := svc.Expire(ctx, "GGAL")
		assert.ErrorIs(t, err, domain.ErrContractExpired)
	})
}

func TestContractAppService_ExpireDue(t *testing.T) {
	ctx := context.Background()
	repo := newFakeContractRepo()
	repo.contracts["DUE"] = &domain.Contract{
		Symbol:     "DUE",
		Status:     domain.StatusActive,
		ExpiryDate: time.Now().Add(-time.Hour),
	}
	repo.contracts["LIVE"] = &domain.Contract{
		Symbol:     "LIVE",
		Status:     domain.StatusActive,
		ExpiryDate: time.Now().Add(time.Hour),
	}
	svc := newTestService(repo, &stubPricingRepo{})

	count, err := svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, domain.StatusExpired, repo.contracts["DUE"].Status)
	assert.Equal(t, domain.StatusActive, repo.contracts["LIVE"].Status)
}

func TestContractAppService_PriceBySymbol(t *testing.T) {
	ctx := context.Background()
	market := PriceBySymbolCommand{
		UnderlyingPrice: 100,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
	}

	t.Run("prices with the registered terms", func(t *testing.T) {
		repo := newFakeContractRepo()
		pricingRepo := &stubPricingRepo{}
		svc := newTestService(repo, pricingRepo)

		_, err := svc.Register(ctx, RegisterContractCommand{
			Symbol:        "GFGC100DI",
			OptionType:    "CALL",
			Underlying:    "EQUITY",
			ExerciseStyle: "EUROPEAN",
			StrikePrice:   100,
			ExpiryDate:    time.Now().Add(365 * 24 * time.Hour),
		})
		require.NoError(t, err)

		result, err := svc.PriceBySymbol(ctx, "GFGC100DI", market)
		require.NoError(t, err)
		assert.Equal(t, "GFGC100DI", result.Symbol)
		assert.Equal(t, pricingdomain.PricingModelBlackScholes, result.PricingModel)
		// 剩余期限由到期日和当前时钟推导, 与整年仅差调用间隔
		assert.InDelta(t, 10.450584, result.OptionPrice.InexactFloat64(), 1e-4)
		assert.Len(t, pricingRepo.saved, 1)
	})

	t.Run("american styles default to the lattice", func(t *testing.T) {
		repo := newFakeContractRepo()
		pricingRepo := &stubPricingRepo{}
		svc := newTestService(repo, pricingRepo)

		_, err := svc.Register(ctx, RegisterContractCommand{
			Symbol:        "GFGV100DI",
			OptionType:    "PUT",
			Underlying:    "EQUITY",
			ExerciseStyle: "AMERICAN",
			StrikePrice:   100,
			ExpiryDate:    time.Now().Add(180 * 24 * time.Hour),
		})
		require.NoError(t, err)

		result, err := svc.PriceBySymbol(ctx, "GFGV100DI", market)
		require.NoError(t, err)
		assert.Equal(t, pricingdomain.PricingModelBinomial, result.PricingModel)
		assert.Equal(t, pricingdomain.ExerciseAmerican, result.ExerciseStyle)
		assert.Equal(t, 100, result.Steps)
	})

	t.Run("explicit model overrides the default", func(t *testing.T) {
		repo := newFakeContractRepo()
		svc := newTestService(repo, &stubPricingRepo{})

		_, err := svc.Register(ctx, RegisterContractCommand{
			Symbol:        "GFGV90DI",
			OptionType:    "PUT",
			Underlying:    "EQUITY",
			ExerciseStyle: "AMERICAN",
			StrikePrice:   90,
			ExpiryDate:    time.Now().Add(180 * 24 * time.Hour),
		})
		require.NoError(t, err)

		result, err := svc.PriceBySymbol(ctx, "GFGV90DI", PriceBySymbolCommand{
			PricingModel:    "BS93",
			UnderlyingPrice: 100,
			Volatility:      0.2,
			RiskFreeRate:    0.05,
		})
		require.NoError(t, err)
		assert.Equal(t, pricingdomain.PricingModelBjerksundStensland, result.PricingModel)
	})

	t.Run("expired contracts cannot be priced", func(t *testing.T) {
		repo := newFakeContractRepo()
		repo.contracts["OLD"] = &domain.Contract{
			Symbol:     "OLD",
			OptionType: "CALL",
			Underlying: "EQUITY",
			Status:     domain.StatusActive,
			ExpiryDate: time.Now().Add(-time.Hour),
		}
		svc := newTestService(repo, &stubPricingRepo{})

		_, err := svc.PriceBySymbol(ctx, "OLD", market)
		assert.ErrorIs(t, err, domain.ErrContractExpired)
	})

	t.Run("unknown symbols fail fast", func(t *testing.T) {
		svc := newTestService(newFakeContractRepo(), &stubPricingRepo{})
		_, err := svc.PriceBySymbol(ctx, "NOPE", market)
		assert.ErrorIs(t, err, domain.ErrContractNotFound)
	})
}
