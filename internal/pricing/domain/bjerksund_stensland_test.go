package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBjerksundStenslandModel_Price(t *testing.T) {
	model := NewBjerksundStenslandModel()

	t.Run("call without carry advantage equals european", func(t *testing.T) {
		// q=0 时 b=r, 提前行权无利可图, 闭式近似直接退化为欧式
		contract := OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 100,
			StrikePrice:     100,
			TimeToExpiry:    1,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		}
		american, err := model.Price(GreekPrima, contract)
		assert.NoError(t, err)
		european, err := NewBlackScholesModel().Price(GreekPrima, contract)
		assert.NoError(t, err)
		assert.InDelta(t, european, american, 1e-9)
	})

	t.Run("american put carries early exercise premium", func(t *testing.T) {
		contract := OptionContract{
			OptionType:      OptionTypePut,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 100,
			StrikePrice:     100,
			TimeToExpiry:    1,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		}
		american, err := model.Price(GreekPrima, contract)
		assert.NoError(t, err)
		assert.InDelta(t, 5.982974, american, 1e-6)
		assert.Greater(t, american, 5.573526)
	})

	t.Run("high dividend yield call uses the approximation branch", func(t *testing.T) {
		contract := OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 100,
			StrikePrice:     95,
			TimeToExpiry:    0.75,
			RiskFreeRate:    0.05,
			DividendYield:   0.08,
			Volatility:      0.25,
		}
		american, err := model.Price(GreekPrima, contract)
		assert.NoError(t, err)
		assert.InDelta(t, 9.771858, american, 1e-6)
		assert.Greater(t, american, 9.410162) // 欧式值
	})

	t.Run("future put exceeds intrinsic and european", func(t *testing.T) {
		contract := OptionContract{
			OptionType:      OptionTypePut,
			Underlying:      UnderlyingFuture,
			Settlement:      SettlementEquityStyle,
			UnderlyingPrice: 90,
			StrikePrice:     100,
			TimeToExpiry:    0.5,
			RiskFreeRate:    0.1,
			Volatility:      0.3,
		}
		american, err := model.Price(GreekPrima, contract)
		assert.NoError(t, err)
		assert.InDelta(t, 13.491044, american, 1e-6)
		assert.Greater(t, american, 13.307541)
		assert.Greater(t, american, contract.IntrinsicValue())
	})

	t.Run("expired contract returns intrinsic value", func(t *testing.T) {
		prima, err := model.Price(GreekPrima, OptionContract{
			OptionType:      OptionTypePut,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 90,
			StrikePrice:     100,
			TimeToExpiry:    0,
		})
		assert.NoError(t, err)
		assert.Equal(t, 10.0, prima)
	})

	t.Run("gammap has no finite difference definition", func(t *testing.T) {
		_, err := model.Price(GreekGammaP, OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 100,
			StrikePrice:     100,
			TimeToExpiry:    1,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		})
		assert.ErrorIs(t, err, ErrInvalidGreek)
	})

	t.Run("matba rofex settlement is rejected", func(t *testing.T) {
		_, err := model.Price(GreekPrima, OptionContract{
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

func TestBjerksundStenslandModel_Greeks(t *testing.T) {
	model := NewBjerksundStenslandModel()

	t.Run("finite differences track the closed form when european", func(t *testing.T) {
		// b=r 时权利金与欧式一致, 差分希腊字母应贴近闭式值
		contract := OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 100,
			StrikePrice:     100,
			TimeToExpiry:    1,
			RiskFreeRate:    0.05,
			Volatility:      0.2,
		}
		g, err := model.Greeks(contract)
		assert.NoError(t, err)
		assert.InDelta(t, 10.450584, g.Prima, 1e-6)
		assert.InDelta(t, 0.636831, g.Delta, 1e-3)
		assert.InDelta(t, 0.018762, g.Gamma, 1e-4)
		assert.InDelta(t, -6.414028, g.Theta, 1e-2)
		assert.InDelta(t, 0.375240, g.Vega, 1e-3)
		assert.InDelta(t, 0.532325, g.Rho, 1e-3)
		assert.Equal(t, 0.0, g.GammaP)
	})

	t.Run("expired contract degenerates", func(t *testing.T) {
		g, err := model.Greeks(OptionContract{
			OptionType:      OptionTypeCall,
			Underlying:      UnderlyingEquity,
			UnderlyingPrice: 120,
			StrikePrice:     100,
			TimeToExpiry:    0,
		})
		assert.NoError(t, err)
		assert.Equal(t, 20.0, g.Prima)
		assert.Equal(t, 1.0, g.Delta)
		assert.Equal(t, 0.0, g.Vega)
	})
}
