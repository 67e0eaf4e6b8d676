package domain

import "math"

// BlackScholesModel 广义 Black-Scholes 模型, 通过持有成本 b 统一股票与期货的欧式定价。
// 期货标的仅接受期货式或权利金先付式结算。
type BlackScholesModel struct{}

// NewBlackScholesModel 创建广义 Black-Scholes 模型
func NewBlackScholesModel() *BlackScholesModel {
	return &BlackScholesModel{}
}

// bsTerms 闭式公式的公共中间量
type bsTerms struct {
	d1    float64
	d2    float64
	dfB   float64 // e^{(b-r_eff)T}
	dfR   float64 // e^{-r_eff*T}
	sqrtT float64
}

func newBSTerms(c OptionContract, carry CostOfCarry) bsTerms {
	sqrtT := math.Sqrt(c.TimeToExpiry)
	d1 := (math.Log(c.UnderlyingPrice/c.StrikePrice) + (carry.B+0.5*c.Volatility*c.Volatility)*c.TimeToExpiry) /
		(c.Volatility * sqrtT)
	return bsTerms{
		d1:    d1,
		d2:    d1 - c.Volatility*sqrtT,
		dfB:   math.Exp((carry.B - carry.EffectiveRate) * c.TimeToExpiry),
		dfR:   math.Exp(-carry.EffectiveRate * c.TimeToExpiry),
		sqrtT: sqrtT,
	}
}

// Price 返回指定选择器对应的权利金或希腊字母。
// 到期及过期合约走退化分支: prima 为内在价值, delta 为阶跃, 其余为 0。
func (m *BlackScholesModel) Price(greek Greek, c OptionContract) (float64, error) {
	carry, err := resolvePremiumCarry(c)
	if err != nil {
		return 0, err
	}
	switch greek {
	case GreekPrima, GreekDelta, GreekGamma, GreekGammaP, GreekTheta, GreekVega, GreekRho:
	default:
		return 0, ErrInvalidGreek
	}
	if c.TimeToExpiry <= 0 {
		return degenerateValue(greek, c), nil
	}
	g := m.evaluate(c, carry)
	switch greek {
	case GreekPrima:
		return g.Prima, nil
	case GreekDelta:
		return g.Delta, nil
	case GreekGamma:
		return g.Gamma, nil
	case GreekGammaP:
		return g.GammaP, nil
	case GreekTheta:
		return g.Theta, nil
	case GreekVega:
		return g.Vega, nil
	default:
		return g.Rho, nil
	}
}

// Greeks 一次求出全部敏感度
func (m *BlackScholesModel) Greeks(c OptionContract) (OptionGreeks, error) {
	carry, err := resolvePremiumCarry(c)
	if err != nil {
		return OptionGreeks{}, err
	}
	if c.TimeToExpiry <= 0 {
		return OptionGreeks{Prima: c.IntrinsicValue(), Delta: c.expiryDelta()}, nil
	}
	return m.evaluate(c, carry), nil
}

func (m *BlackScholesModel) evaluate(c OptionContract, carry CostOfCarry) OptionGreeks {
	t := newBSTerms(c, carry)
	s := c.UnderlyingPrice
	k := c.StrikePrice
	sigma := c.Volatility
	b := carry.B
	rEff := carry.EffectiveRate
	pdf := normPdf(t.d1)

	var g OptionGreeks
	g.Gamma = t.dfB * pdf / (s * sigma * t.sqrtT)
	g.GammaP = g.Gamma * s / 100
	g.Vega = s * t.dfB * pdf * t.sqrtT / 100

	if c.OptionType == OptionTypeCall {
		g.Prima = s*t.dfB*normCdf(t.d1) - k*t.dfR*normCdf(t.d2)
		g.Delta = t.dfB * normCdf(t.d1)
		g.Theta = -s*t.dfB*pdf*sigma/(2*t.sqrtT) +
			(b-rEff)*s*t.dfB*normCdf(t.d1) -
			rEff*k*t.dfR*normCdf(t.d2)
	} else {
		g.Prima = k*t.dfR*normCdf(-t.d2) - s*t.dfB*normCdf(-t.d1)
		g.Delta = -t.dfB * normCdf(-t.d1)
		g.Theta = -s*t.dfB*pdf*sigma/(2*t.sqrtT) -
			(b-rEff)*s*t.dfB*normCdf(-t.d1) +
			rEff*k*t.dfR*normCdf(-t.d2)
	}
	g.Rho = m.rho(c, t, g.Prima)
	return g
}

// rho 随结算方式变化: 股票用标准公式; 期货权利金先付式下利率只影响权利金贴现;
// 其余期货方式贴现已被盯市消除, 无利率敏感度。
func (m *BlackScholesModel) rho(c OptionContract, t bsTerms, prima float64) float64 {
	if c.Underlying == UnderlyingEquity {
		if c.OptionType == OptionTypeCall {
			return c.TimeToExpiry * c.StrikePrice * t.dfR * normCdf(t.d2) / 100
		}
		return -c.TimeToExpiry * c.StrikePrice * t.dfR * normCdf(-t.d2) / 100
	}
	if c.Settlement == SettlementEquityStyle {
		return -c.TimeToExpiry * prima / 100
	}
	return 0
}

// premium 纯权利金函数, 供隐含波动率求解复用; 入参已通过入口校验
func (m *BlackScholesModel) premium(c OptionContract, carry CostOfCarry) float64 {
	return europeanValue(c.OptionType, c.UnderlyingPrice, c.StrikePrice, c.TimeToExpiry,
		carry.EffectiveRate, carry.B, c.Volatility)
}

// europeanValue 欧式闭式权利金, 要求 T > 0
func europeanValue(optionType OptionType, s, k, t, rEff, b, sigma float64) float64 {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (b+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	dfB := math.Exp((b - rEff) * t)
	dfR := math.Exp(-rEff * t)
	if optionType == OptionTypePut {
		return k*dfR*normCdf(-d2) - s*dfB*normCdf(-d1)
	}
	return s*dfB*normCdf(d1) - k*dfR*normCdf(d2)
}
