package domain

import "math"

// bs93Bump 有限差分扰动幅度
const bs93Bump = 0.01

// BjerksundStenslandModel 1993 年 Bjerksund-Stensland 美式期权闭式近似。
// 看跌期权通过 call(k, s, T, r-b, -b, sigma) 变换定价;
// 希腊字母全部以有限差分估计。结算方式限制与广义 Black-Scholes 相同。
type BjerksundStenslandModel struct{}

// NewBjerksundStenslandModel 创建美式近似模型
func NewBjerksundStenslandModel() *BjerksundStenslandModel {
	return &BjerksundStenslandModel{}
}

// Price 返回指定选择器对应的值; gammap 在该模型下无定义
func (m *BjerksundStenslandModel) Price(greek Greek, c OptionContract) (float64, error) {
	if _, err := resolvePremiumCarry(c); err != nil {
		return 0, err
	}
	switch greek {
	case GreekPrima, GreekDelta, GreekGamma, GreekTheta, GreekVega, GreekRho:
	default:
		return 0, ErrInvalidGreek
	}
	if c.TimeToExpiry <= 0 {
		return degenerateValue(greek, c), nil
	}

	switch greek {
	case GreekPrima:
		return m.value(c), nil
	case GreekDelta:
		return centeredDiff(m.value, c, bumpSpot, bs93Bump, 2*bs93Bump), nil
	case GreekGamma:
		return secondDiff(m.value, c, bumpSpot, bs93Bump), nil
	case GreekTheta:
		dt := math.Min(bs93Bump, c.TimeToExpiry/2)
		return (m.value(bumpExpiry(c, -dt)) - m.value(bumpExpiry(c, dt))) / (2 * dt), nil
	case GreekVega:
		return centeredDiff(m.value, c, bumpVolatility, bs93Bump, 2*bs93Bump) / 100, nil
	default:
		return centeredDiff(m.value, c, bumpRate, bs93Bump, 2*bs93Bump) / 100, nil
	}
}

// Greeks 一次求出全部敏感度; gammap 保持为 0
func (m *BjerksundStenslandModel) Greeks(c OptionContract) (OptionGreeks, error) {
	if _, err := resolvePremiumCarry(c); err != nil {
		return OptionGreeks{}, err
	}
	if c.TimeToExpiry <= 0 {
		return OptionGreeks{Prima: c.IntrinsicValue(), Delta: c.expiryDelta()}, nil
	}
	dt := math.Min(bs93Bump, c.TimeToExpiry/2)
	return OptionGreeks{
		Prima: m.value(c),
		Delta: centeredDiff(m.value, c, bumpSpot, bs93Bump, 2*bs93Bump),
		Gamma: secondDiff(m.value, c, bumpSpot, bs93Bump),
		Theta: (m.value(bumpExpiry(c, -dt)) - m.value(bumpExpiry(c, dt))) / (2 * dt),
		Vega:  centeredDiff(m.value, c, bumpVolatility, bs93Bump, 2*bs93Bump) / 100,
		Rho:   centeredDiff(m.value, c, bumpRate, bs93Bump, 2*bs93Bump) / 100,
	}, nil
}

// value 在扰动后合约上重新推导持有成本并求权利金。
// 利率扰动下股票的 b 随 r 变动, 期货的 b 保持为 0。
func (m *BjerksundStenslandModel) value(c OptionContract) float64 {
	carry, err := resolvePremiumCarry(c)
	if err != nil {
		return 0
	}
	return m.premium(c, carry)
}

// premium 纯权利金函数, 供隐含波动率求解复用
func (m *BjerksundStenslandModel) premium(c OptionContract, carry CostOfCarry) float64 {
	if c.OptionType == OptionTypePut {
		return americanCall(c.StrikePrice, c.UnderlyingPrice, c.TimeToExpiry,
			carry.EffectiveRate-carry.B, -carry.B, c.Volatility)
	}
	return americanCall(c.UnderlyingPrice, c.StrikePrice, c.TimeToExpiry,
		carry.EffectiveRate, carry.B, c.Volatility)
}

// americanCall 1993 近似的看涨定价。
// b >= r 时提前行权不再有利, 直接退化为欧式闭式; 标的价达到触发价 I 时立即行权。
func americanCall(s, k, t, r, b, sigma float64) float64 {
	if t <= 0 {
		return math.Max(0, s-k)
	}
	if b >= r {
		return europeanValue(OptionTypeCall, s, k, t, r, b, sigma)
	}

	sigma2 := sigma * sigma
	beta := (0.5 - b/sigma2) + math.Sqrt(math.Pow(b/sigma2-0.5, 2)+2*r/sigma2)
	bInfinity := beta / (beta - 1) * k
	b0 := math.Max(k, r/(r-b)*k)
	hT := -(b*t + 2*sigma*math.Sqrt(t)) * b0 / (bInfinity - b0)
	trigger := b0 + (bInfinity-b0)*(1-math.Exp(hT))
	if s >= trigger {
		return s - k
	}

	alpha := (trigger - k) * math.Pow(trigger, -beta)
	return alpha*math.Pow(s, beta) -
		alpha*bs93Phi(s, t, beta, trigger, trigger, r, b, sigma) +
		bs93Phi(s, t, 1, trigger, trigger, r, b, sigma) -
		bs93Phi(s, t, 1, k, trigger, r, b, sigma) -
		k*bs93Phi(s, t, 0, trigger, trigger, r, b, sigma) +
		k*bs93Phi(s, t, 0, k, trigger, r, b, sigma)
}

// bs93Phi 近似公式的 phi 辅助项: S 的幂函数乘以带触发价修正的正态项
func bs93Phi(s, t, gamma, h, trigger, r, b, sigma float64) float64 {
	sqrtT := math.Sqrt(t)
	lambda := (-r + gamma*b + 0.5*gamma*(gamma-1)*sigma*sigma) * t
	d := -(math.Log(s/h) + (b+(gamma-0.5)*sigma*sigma)*t) / (sigma * sqrtT)
	kappa := 2*b/(sigma*sigma) + 2*gamma - 1
	return math.Exp(lambda) * math.Pow(s, gamma) *
		(normCdf(d) - math.Pow(trigger/s, kappa)*normCdf(d-2*math.Log(trigger/s)/(sigma*sqrtT)))
}
