package domain

import "math"

// latticeBump 波动率/利率的扰动幅度 (1% 约定, 差分除以 2, 不再除 100)
const latticeBump = 0.01

// BinomialModel Cox-Ross-Rubinstein 二叉树模型。
// 支持欧式与美式行权, 以及 Matba Rofex 式逐日盯市计息; 三种期货结算方式均可用。
type BinomialModel struct{}

// NewBinomialModel 创建二叉树模型
func NewBinomialModel() *BinomialModel {
	return &BinomialModel{}
}

// latticeValues 单次倒推从树上读出的量
type latticeValues struct {
	prima float64
	delta float64
	gamma float64
	theta float64
}

// Price 返回指定选择器对应的值。
// prima/delta/gamma/theta 直接读树; vega/rho 以 ±0.01 重建整棵树取中心差分;
// 其余选择器无效。steps 必须大于 1。
func (m *BinomialModel) Price(greek Greek, c OptionContract, style ExerciseStyle, steps int) (float64, error) {
	if steps <= 1 {
		return 0, ErrInvalidStepCount
	}
	if style != ExerciseEuropean && style != ExerciseAmerican {
		return 0, ErrInvalidExerciseStyle
	}
	carry, err := ResolveCarry(c)
	if err != nil {
		return 0, err
	}

	switch greek {
	case GreekPrima, GreekDelta, GreekGamma, GreekTheta:
		if c.TimeToExpiry <= 0 {
			return degenerateValue(greek, c), nil
		}
		v := m.evaluate(c, carry, style, steps)
		switch greek {
		case GreekPrima:
			return v.prima, nil
		case GreekDelta:
			return v.delta, nil
		case GreekGamma:
			return v.gamma, nil
		default:
			return v.theta, nil
		}
	case GreekVega:
		if c.TimeToExpiry <= 0 {
			return 0, nil
		}
		return centeredDiff(m.treePremium(style, steps), c, bumpVolatility, latticeBump, 2), nil
	case GreekRho:
		if c.TimeToExpiry <= 0 {
			return 0, nil
		}
		return centeredDiff(m.treePremium(style, steps), c, bumpRate, latticeBump, 2), nil
	default:
		return 0, ErrInvalidGreek
	}
}

// Greeks 一次求出全部敏感度; gammap 在树模型下无定义, 保持为 0
func (m *BinomialModel) Greeks(c OptionContract, style ExerciseStyle, steps int) (OptionGreeks, error) {
	if steps <= 1 {
		return OptionGreeks{}, ErrInvalidStepCount
	}
	if style != ExerciseEuropean && style != ExerciseAmerican {
		return OptionGreeks{}, ErrInvalidExerciseStyle
	}
	carry, err := ResolveCarry(c)
	if err != nil {
		return OptionGreeks{}, err
	}
	if c.TimeToExpiry <= 0 {
		return OptionGreeks{Prima: c.IntrinsicValue(), Delta: c.expiryDelta()}, nil
	}

	v := m.evaluate(c, carry, style, steps)
	premium := m.treePremium(style, steps)
	return OptionGreeks{
		Prima: v.prima,
		Delta: v.delta,
		Gamma: v.gamma,
		Theta: v.theta,
		Vega:  centeredDiff(premium, c, bumpVolatility, latticeBump, 2),
		Rho:   centeredDiff(premium, c, bumpRate, latticeBump, 2),
	}, nil
}

// treePremium 返回在扰动后合约上重建整棵树求权利金的函数。
// 利率扰动会改变持有成本, 因此在闭包内重新推导。
func (m *BinomialModel) treePremium(style ExerciseStyle, steps int) PriceFunc {
	return func(c OptionContract) float64 {
		carry, err := ResolveCarry(c)
		if err != nil {
			return 0
		}
		return m.evaluate(c, carry, style, steps).prima
	}
}

// evaluate 构建终端层并倒推至根节点, 途中在第 2/1/0 层读出希腊字母。
// values 数组为本次调用独占。
func (m *BinomialModel) evaluate(c OptionContract, carry CostOfCarry, style ExerciseStyle, steps int) latticeValues {
	dt := c.TimeToExpiry / float64(steps)
	u := math.Exp(c.Volatility * math.Sqrt(dt))
	d := 1 / u
	p := (math.Exp(carry.B*dt) - d) / (u - d)
	df := math.Exp(-carry.EffectiveRate * dt)
	accrual := math.Exp(carry.EffectiveRate*dt) - 1
	accrue := c.Underlying == UnderlyingFuture && c.Settlement == SettlementMatbaRofexStyle
	american := style == ExerciseAmerican
	z := c.sign()

	values := make([]float64, steps+1)
	for i := 0; i <= steps; i++ {
		values[i] = payoff(z, nodeSpot(c.UnderlyingPrice, u, d, i, steps), c.StrikePrice)
	}

	var out latticeValues
	var c21 float64
	capture := func(level int) {
		switch level {
		case 2:
			suu := c.UnderlyingPrice * u * u
			sdd := c.UnderlyingPrice * d * d
			out.gamma = unevenGamma(values[2], values[1], values[0], suu, c.UnderlyingPrice, sdd)
			c21 = values[1]
		case 1:
			out.delta = (values[1] - values[0]) / (c.UnderlyingPrice*u - c.UnderlyingPrice*d)
		case 0:
			out.prima = values[0]
			out.theta = (c21 - values[0]) / (2 * dt)
		}
	}
	capture(steps)

	for j := steps - 1; j >= 0; j-- {
		for i := 0; i <= j; i++ {
			intrinsic := payoff(z, nodeSpot(c.UnderlyingPrice, u, d, i, j), c.StrikePrice)
			continuation := p*values[i+1] + (1-p)*values[i]
			var expected float64
			if accrue {
				expected = df * (intrinsic*accrual + continuation)
			} else {
				expected = df * continuation
			}
			if american && intrinsic > expected {
				expected = intrinsic
			}
			values[i] = expected
		}
		capture(j)
	}
	return out
}

// premium 纯权利金函数, 供隐含波动率求解复用; 入参已通过入口校验
func (m *BinomialModel) premium(c OptionContract, carry CostOfCarry, style ExerciseStyle, steps int) float64 {
	return m.evaluate(c, carry, style, steps).prima
}

// nodeSpot 第 j 层第 i 个节点的标的价 s*u^i*d^(j-i)
func nodeSpot(s, u, d float64, i, j int) float64 {
	return s * math.Pow(u, float64(i)) * math.Pow(d, float64(j-i))
}

// payoff 行权收益 max(0, z*(s-k))
func payoff(z, s, k float64) float64 {
	v := z * (s - k)
	if v < 0 {
		return 0
	}
	return v
}

// unevenGamma 不等间距三点二阶中心差分
func unevenGamma(vuu, vum, vdd, suu, sum, sdd float64) float64 {
	h1 := suu - sum
	h2 := sum - sdd
	return ((vuu-vum)/h1 - (vum-vdd)/h2) / ((suu - sdd) / 2)
}
