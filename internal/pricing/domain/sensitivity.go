package domain

// PriceFunc 在给定合约上求出权利金
type PriceFunc func(OptionContract) float64

func bumpSpot(c OptionContract, dv float64) OptionContract {
	c.UnderlyingPrice += dv
	return c
}

func withVolatility(c OptionContract, v float64) OptionContract {
	c.Volatility = v
	return c
}

func bumpVolatility(c OptionContract, dv float64) OptionContract {
	c.Volatility += dv
	return c
}

func bumpRate(c OptionContract, dv float64) OptionContract {
	c.RiskFreeRate += dv
	return c
}

func bumpExpiry(c OptionContract, dv float64) OptionContract {
	c.TimeToExpiry += dv
	return c
}

// centeredDiff 对单一参数作 ±h 对称扰动后取差, 除以 scale。
// scale 由各模型自带的约定决定, 不在此统一。
func centeredDiff(price PriceFunc, c OptionContract, bump func(OptionContract, float64) OptionContract, h, scale float64) float64 {
	return (price(bump(c, h)) - price(bump(c, -h))) / scale
}

// secondDiff 二阶中心差分
func secondDiff(price PriceFunc, c OptionContract, bump func(OptionContract, float64) OptionContract, h float64) float64 {
	return (price(bump(c, h)) - 2*price(c) + price(bump(c, -h))) / (h * h)
}
