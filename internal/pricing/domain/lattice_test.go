package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinomialModel_Price(t *testing.T) {
	model := NewBinomialModel()
	contract := OptionContract{
		OptionType:      OptionTypeCall,
		Underlying:      UnderlyingEquity,
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    1,
		RiskFreeRate:    0.05,
		Volatility:      0.2,
	}

	t.Run("two step european call reads greeks off the tree", func(t *testing.T) {
		prima, err := model.Price(GreekPrima, contract, ExerciseEuropean, 2)
		assert.NoError(t, err)
		assert.InDelta(t, 9.540501, prima, 1e-6)

		delta, err := model.Price(GreekDelta, contract, ExerciseEuropean, 2)
		assert.NoError(t, err)
		assert.InDelta(t, 0.622299, delta, 1e-6)

		gamma, err := model.Price(GreekGamma, contract, ExerciseEuropean, 2)
		assert.NoError(t, err)
		assert.InDelta(t, 0.034888, gamma, 1e-6)

		theta, err := model.Price(GreekTheta, contract, ExerciseEuropean, 2)
		assert.NoError(t, err)
		assert.InDelta(t, -9.540501, theta, 1e-6)
	})

	t.Run("single step count is rejected", func(t *testing.T) {
		_, err := model.Price(GreekPrima, contract, ExerciseEuropean, 1)
		assert.ErrorIs(t, err, ErrInvalidStepCount)
	})

	t.Run("missing exercise style is rejected", func(t *testing.T) {
		_, err := model.Price(GreekPrima, contract, "", 100)
		assert.ErrorIs(t, err, ErrInvalidExerciseStyle)
	})

	t.Run("gammap has no lattice definition", func(t *testing.T) {
		_, err := model.Price(GreekGammaP, contract, ExerciseEuropean, 100)
		assert.ErrorIs(t, err, ErrInvalidGreek)
	})

	t.Run("expired contract returns intrinsic value", func(t *testing.T) {
		expired := contract
		expired.UnderlyingPrice = 110
		expired.TimeToExpiry = 0

		prima, err := model.Price(GreekPrima, expired, ExerciseAmerican, 100)
		assert.NoError(t, err)
		assert.Equal(t, 10.0, prima)

		vega, err := model.Price(GreekVega, expired, ExerciseAmerican, 100)
		assert.NoError(t, err)
		assert.Equal(t, 0.0, vega)
	})
}

func TestBinomialModel_ConvergesToBlackScholes(t *testing.T) {
	contract := OptionContract{
		OptionType:      OptionTypeCall,
		Underlying:      UnderlyingEquity,
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    1,
		RiskFreeRate:    0.05,
		Volatility:      0.2,
	}

	closedForm, err := NewBlackScholesModel().Price(GreekPrima, contract)
	assert.NoError(t, err)

	lattice, err := NewBinomialModel().Price(GreekPrima, contract, ExerciseEuropean, 500)
	assert.NoError(t, err)
	assert.InDelta(t, closedForm, lattice, 0.01)
}

func TestBinomialModel_AmericanExercise(t *testing.T) {
	model := NewBinomialModel()
	put := OptionContract{
		OptionType:      OptionTypePut,
		Underlying:      UnderlyingEquity,
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    1,
		RiskFreeRate:    0.05,
		Volatility:      0.2,
	}

	t.Run("american put is worth at least the european", func(t *testing.T) {
		american, err := model.Price(GreekPrima, put, ExerciseAmerican, 200)
		assert.NoError(t, err)
		european, err := model.Price(GreekPrima, put, ExerciseEuropean, 200)
		assert.NoError(t, err)

		assert.InDelta(t, 6.086383, american, 1e-6)
		assert.InDelta(t, 5.563534, european, 1e-6)
		assert.Greater(t, american, european)
	})

	t.Run("deep in the money american put exercises immediately", func(t *testing.T) {
		deep := put
		deep.UnderlyingPrice = 80
		prima, err := model.Price(GreekPrima, deep, ExerciseAmerican, 100)
		assert.NoError(t, err)
		assert.InDelta(t, 20.0, prima, 1e-9)
	})
}

func TestBinomialModel_MatbaRofexAccrual(t *testing.T) {
	model := NewBinomialModel()
	base := OptionContract{
		OptionType:      OptionTypeCall,
		Underlying:      UnderlyingFuture,
		UnderlyingPrice: 100,
		StrikePrice:     90,
		TimeToExpiry:    0.5,
		RiskFreeRate:    0.1,
		Volatility:      0.3,
	}

	matba := base
	matba.Settlement = SettlementMatbaRofexStyle
	accrued, err := model.Price(GreekPrima, matba, ExerciseEuropean, 100)
	assert.NoError(t, err)

	plain := base
	plain.Settlement = SettlementEquityStyle
	discounted, err := model.Price(GreekPrima, plain, ExerciseEuropean, 100)
	assert.NoError(t, err)

	// 盯市计息把内在价值的利息加回权利金
	assert.InDelta(t, 13.904120, accrued, 1e-6)
	assert.InDelta(t, 13.322833, discounted, 1e-6)
	assert.Greater(t, accrued, discounted)
}

func TestBinomialModel_Greeks(t *testing.T) {
	model := NewBinomialModel()
	contract := OptionContract{
		OptionType:      OptionTypeCall,
		Underlying:      UnderlyingEquity,
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    1,
		RiskFreeRate:    0.05,
		Volatility:      0.2,
	}

	t.Run("hundred step european call", func(t *testing.T) {
		g, err := model.Greeks(contract, ExerciseEuropean, 100)
		assert.NoError(t, err)
		assert.InDelta(t, 10.430612, g.Prima, 1e-6)
		assert.InDelta(t, 0.636512, g.Delta, 1e-6)
		assert.InDelta(t, 0.018922, g.Gamma, 1e-6)
		assert.InDelta(t, -6.445313, g.Theta, 1e-6)
		// vega 与 rho 以 ±0.01 重建整棵树取中心差分
		assert.InDelta(t, 0.374270, g.Vega, 1e-6)
		assert.InDelta(t, 0.532130, g.Rho, 1e-6)
		assert.Equal(t, 0.0, g.GammaP)
	})

	t.Run("step and style guards", func(t *testing.T) {
		_, err := model.Greeks(contract, ExerciseEuropean, 0)
		assert.ErrorIs(t, err, ErrInvalidStepCount)

		_, err = model.Greeks(contract, "BERMUDAN", 100)
		assert.ErrorIs(t, err, ErrInvalidExerciseStyle)
	})

	t.Run("expired contract degenerates", func(t *testing.T) {
		expired := contract
		expired.TimeToExpiry = 0
		expired.UnderlyingPrice = 95

		g, err := model.Greeks(expired, ExerciseAmerican, 100)
		assert.NoError(t, err)
		assert.Equal(t, 0.0, g.Prima)
		assert.Equal(t, 0.0, g.Delta)
	})
}
