package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlackScholesModel_Greeks(t *testing.T) {
	model := NewBlackScholesModel()

	t.Run("at the money equity call", func(t *testing.T) {
		g, err := model.Greeks(OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 100,
			StrikePrice:     100,
			TimeToExpiry:    1,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		})
		assert.NoError(t, err)
		assert.InDelta(t, 10.450584, g.Prima, 1e-6)
		assert.InDelta(t, 0.636831, g.Delta, 1e-6)
		assert.InDelta(t, 0.018762, g.Gamma, 1e-6)
		assert.InDelta(t, 0.018762, g.GammaP, 1e-6)
		assert.InDelta(t, -6.414028, g.Theta, 1e-6)
		assert.InDelta(t, 0.375240, g.Vega, 1e-6)
		assert.InDelta(t, 0.532325, g.Rho, 1e-6)
	})

	t.Run("at the money equity put", func(t *testing.T) {
		g, err := model.Greeks(OptionContract{
			OptionType:      OptionTypePut,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 100,
			StrikePrice:     100,
			TimeToExpiry:    1,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		})
		assert.NoError(t, err)
		assert.InDelta(t, 5.573526, g.Prima, 1e-6)
		assert.InDelta(t, -0.363169, g.Delta, 1e-6)
		assert.InDelta(t, -0.418905, g.Rho, 1e-6)
	})

	t.Run("put call parity holds for equity", func(t *testing.T) {
		contract := OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 105,
			StrikePrice:     98,
			TimeToExpiry:    0.75,
			RiskFreeRate:    0.04,
			DividendYield:   0.01,
			Volatility:      0.3,
		}
		call, err := model.Greeks(contract)
		assert.NoError(t, err)

		contract.OptionType = OptionTypePut
		put, err := model.Greeks(contract)
		assert.NoError(t, err)

		// C - P = s*e^{-qT} - k*e^{-rT}
		forward := 105*math.Exp(-0.01*0.75) - 98*math.Exp(-0.04*0.75)
		assert.InDelta(t, forward, call.Prima-put.Prima, 1e-9)
	})

	t.Run("dividend yield shifts the carry", func(t *testing.T) {
		g, err := model.Greeks(OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 100,
			StrikePrice:     95,
			TimeToExpiry:    0.5,
			RiskFreeRate:    0.05,
			DividendYield:   0.03,
			Volatility:      0.25,
		})
		assert.NoError(t, err)
		assert.InDelta(t, 10.059924, g.Prima, 1e-6)
		assert.InDelta(t, 0.658312, g.Delta, 1e-6)
	})

	t.Run("futures style option has no discounting and zero rho", func(t *testing.T) {
		g, err := model.Greeks(OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingFuture,
			Settlement:      SettlementFuturesStyle,
			UnderlyingPrice: 100,
			StrikePrice:     100,
			TimeToExpiry:    1,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		})
		assert.NoError(t, err)
		assert.InDelta(t, 7.965567, g.Prima, 1e-6)
		assert.InDelta(t, 0.539828, g.Delta, 1e-6)
		assert.Equal(t, 0.0, g.Rho)
	})

	t.Run("premium paid future option discounts and carries premium rho", func(t *testing.T) {
		g, err := model.Greeks(OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingFuture,
			Settlement:      SettlementEquityStyle,
			UnderlyingPrice: 100,
			StrikePrice:     100,
			TimeToExpiry:    1,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		})
		assert.NoError(t, err)
		assert.InDelta(t, 7.577082, g.Prima, 1e-6)
		// rho = -T * prima / 100
		assert.InDelta(t, -0.075771, g.Rho, 1e-6)
	})

	t.Run("expired contract returns intrinsic value and step delta", func(t *testing.T) {
		g, err := model.Greeks(OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 110,
			StrikePrice:     100,
			TimeToExpiry:    0,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		})
		assert.NoError(t, err)
		assert.Equal(t, 10.0, g.Prima)
		assert.Equal(t, 1.0, g.Delta)
		assert.Equal(t, 0.0, g.Gamma)
		assert.Equal(t, 0.0, g.Vega)
	})

	t.Run("matba rofex settlement is rejected", func(t *testing.T) {
		_, err := model.Greeks(OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingFuture,
			Settlement:      SettlementMatbaRofexStyle,
			UnderlyingPrice: 100,
			StrikePrice:     100,
			TimeToExpiry:    1,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		})
		assert.ErrorIs(t, err, ErrInvalidSettlementStyle)
	})
}

func TestBlackScholesModel_Price(t *testing.T) {
	model := NewBlackScholesModel()
	contract := OptionContract{
		OptionType:      OptionTypeCall,
		Underlying:      UnderlyingEquity,
		UnderlyingPrice: 100,
		StrikePrice:     100,
		TimeToExpiry:    1,
		RiskFreeRate:    0.05,
		Volatility:      0.2,
	}

	t.Run("selector output matches full greeks", func(t *testing.T) {
		g, err := model.Greeks(contract)
		assert.NoError(t, err)

		for greek, want := range map[Greek]float64{
			GreekPrima:  g.Prima,
			GreekDelta:  g.Delta,
			GreekGamma:  g.Gamma,
			GreekGammaP: g.GammaP,
			GreekTheta:  g.Theta,
			GreekVega:   g.Vega,
			GreekRho:    g.Rho,
		} {
			got, err := model.Price(greek, contract)
			assert.NoError(t, err, greek)
			assert.InDelta(t, want, got, 1e-12, greek)
		}
	})

	t.Run("invalid selector is rejected", func(t *testing.T) {
		_, err := model.Price("VOMMA", contract)
		assert.ErrorIs(t, err, ErrInvalidGreek)
	})

	t.Run("expired put pays intrinsic with negative step delta", func(t *testing.T) {
		expired := OptionContract{
			OptionType:      OptionTypePut,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 90,
			StrikePrice:     100,
			TimeToExpiry:    0,
		}
		prima, err := model.Price(GreekPrima, expired)
		assert.NoError(t, err)
		assert.Equal(t, 10.0, prima)

		delta, err := model.Price(GreekDelta, expired)
		assert.NoError(t, err)
		assert.Equal(t, -1.0, delta)
	})
}
