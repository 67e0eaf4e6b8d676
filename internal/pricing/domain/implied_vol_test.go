package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImpliedVolSolver_FromBlackScholes(t *testing.T) {
	solver := NewImpliedVolSolver()
	contract := OptionContract{
		OptionType:      OptionTypeCall,
		Underlying:      UnderlyingEquity,
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    1,
		RiskFreeRate:    0.05,
	}

	t.Run("recovers the volatility behind a quoted premium", func(t *testing.T) {
		priced := contract
		priced.Volatility = 0.25
		premium, err := NewBlackScholesModel().Price(GreekPrima, priced)
		assert.NoError(t, err)

		vol, err := solver.FromBlackScholes(contract, premium)
		assert.NoError(t, err)
		assert.InDelta(t, 0.25, vol, 1e-3)
	})

	t.Run("unattainable premium does not converge", func(t *testing.T) {
		// 看涨权利金上界为现价, 150 永远无法命中
		_, err := solver.FromBlackScholes(contract, 150)
		assert.ErrorIs(t, err, ErrNoConvergence)
	})

	t.Run("degenerate inputs return zero without error", func(t *testing.T) {
		vol, err := solver.FromBlackScholes(contract, 0)
		assert.NoError(t, err)
		assert.Equal(t, 0.0, vol)

		expired := contract
		expired.TimeToExpiry = 0
		vol, err = solver.FromBlackScholes(expired, 10)
		assert.NoError(t, err)
		assert.Equal(t, 0.0, vol)
	})

	t.Run("matba rofex settlement cannot converge", func(t *testing.T) {
		matba := contract
		matba.Underlying = UnderlyingFuture
		matba.Settlement = SettlementMatbaRofexStyle
		_, err := solver.FromBlackScholes(matba, 10)
		assert.ErrorIs(t, err, ErrNoConvergence)
	})
}

func TestImpliedVolSolver_FromBinomial(t *testing.T) {
	solver := NewImpliedVolSolver()
	put := OptionContract{
		OptionType:      OptionTypePut,
		Underlying:      UnderlyingEquity,
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    1,
		RiskFreeRate:    0.05,
	}

	t.Run("recovers the volatility of an american put", func(t *testing.T) {
		priced := put
		priced.Volatility = 0.22
		premium, err := NewBinomialModel().Price(GreekPrima, priced, ExerciseAmerican, 100)
		assert.NoError(t, err)
		assert.InDelta(t, 6.832765, premium, 1e-6)

		vol, err := solver.FromBinomial(put, ExerciseAmerican, 100, premium)
		assert.NoError(t, err)
		assert.InDelta(t, 0.22, vol, 1e-3)
	})

	t.Run("step and style guards run before solving", func(t *testing.T) {
		_, err := solver.FromBinomial(put, ExerciseAmerican, 1, 5)
		assert.ErrorIs(t, err, ErrInvalidStepCount)

		_, err = solver.FromBinomial(put, "BERMUDAN", 100, 5)
		assert.ErrorIs(t, err, ErrInvalidExerciseStyle)
	})

	t.Run("degenerate target returns zero", func(t *testing.T) {
		vol, err := solver.FromBinomial(put, ExerciseAmerican, 100, -1)
		assert.NoError(t, err)
		assert.Equal(t, 0.0, vol)
	})
}

func TestImpliedVolSolver_FromBjerksundStensland(t *testing.T) {
	solver := NewImpliedVolSolver()
	put := OptionContract{
		OptionType:      OptionTypePut,
		Underlying:      UnderlyingEquity,
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    1,
		RiskFreeRate:    0.05,
	}

	t.Run("recovers the volatility of the american approximation", func(t *testing.T) {
		priced := put
		priced.Volatility = 0.3
		premium, err := NewBjerksundStenslandModel().Price(GreekPrima, priced)
		assert.NoError(t, err)

		vol, err := solver.FromBjerksundStensland(put, premium)
		assert.NoError(t, err)
		assert.InDelta(t, 0.3, vol, 1e-3)
	})

	t.Run("unattainable premium does not converge", func(t *testing.T) {
		_, err := solver.FromBjerksundStensland(put, 500)
		assert.ErrorIs(t, err, ErrNoConvergence)
	})
}
