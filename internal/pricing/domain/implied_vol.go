package domain

import "math"

// 二分法求解参数
const (
	ivEpsilon       = 0.0001
	ivMaxIterations = 100
	ivHighBound     = 4.0 // 闭式与树模型的初始上界
	ivHighBoundBS93 = 3.0 // 美式近似的初始上界
)

// ImpliedVolSolver 隐含波动率求解器。
// 同一个二分例程驱动三种模型的权利金函数, 只有初始上界与入口校验不同。
type ImpliedVolSolver struct {
	blackScholes *BlackScholesModel
	binomial     *BinomialModel
	american     *BjerksundStenslandModel
}

// NewImpliedVolSolver 创建求解器
func NewImpliedVolSolver() *ImpliedVolSolver {
	return &ImpliedVolSolver{
		blackScholes: NewBlackScholesModel(),
		binomial:     NewBinomialModel(),
		american:     NewBjerksundStenslandModel(),
	}
}

// FromBlackScholes 由观察到的权利金反解广义 Black-Scholes 隐含波动率。
// targetPremium <= 0 或 T <= 0 为退化输入, 返回 0; 标的与结算方式组合非法时按不收敛处理。
func (s *ImpliedVolSolver) FromBlackScholes(c OptionContract, targetPremium float64) (float64, error) {
	if targetPremium <= 0 || c.TimeToExpiry <= 0 {
		return 0, nil
	}
	carry, err := resolvePremiumCarry(c)
	if err != nil {
		return 0, ErrNoConvergence
	}
	return bisect(func(v float64) float64 {
		return s.blackScholes.premium(withVolatility(c, v), carry)
	}, targetPremium, ivHighBound)
}

// FromBinomial 在二叉树模型上反解隐含波动率, 三种期货结算方式均可用
func (s *ImpliedVolSolver) FromBinomial(c OptionContract, style ExerciseStyle, steps int, targetPremium float64) (float64, error) {
	if steps <= 1 {
		return 0, ErrInvalidStepCount
	}
	if style != ExerciseEuropean && style != ExerciseAmerican {
		return 0, ErrInvalidExerciseStyle
	}
	if targetPremium <= 0 || c.TimeToExpiry <= 0 {
		return 0, nil
	}
	carry, err := ResolveCarry(c)
	if err != nil {
		return 0, ErrNoConvergence
	}
	return bisect(func(v float64) float64 {
		return s.binomial.premium(withVolatility(c, v), carry, style, steps)
	}, targetPremium, ivHighBound)
}

// FromBjerksundStensland 在美式近似模型上反解隐含波动率
func (s *ImpliedVolSolver) FromBjerksundStensland(c OptionContract, targetPremium float64) (float64, error) {
	if targetPremium <= 0 || c.TimeToExpiry <= 0 {
		return 0, nil
	}
	carry, err := resolvePremiumCarry(c)
	if err != nil {
		return 0, ErrNoConvergence
	}
	return bisect(func(v float64) float64 {
		return s.american.premium(withVolatility(c, v), carry)
	}, targetPremium, ivHighBoundBS93)
}

// bisect 在单调权利金函数上二分搜索波动率。
// 返回中点要求区间宽度与价格偏差同时进入 epsilon;
// 目标权利金超出可达范围时区间无法同时满足两者, 在迭代上限处返回不收敛。
func bisect(premium func(float64) float64, target, high float64) (float64, error) {
	low := 0.0
	for i := 0; i < ivMaxIterations; i++ {
		mid := 0.5 * (low + high)
		value := premium(mid)
		if value > target {
			high = mid
		} else {
			low = mid
		}
		if high-low <= ivEpsilon && math.Abs(value-target) <= ivEpsilon {
			return mid, nil
		}
	}
	return 0, ErrNoConvergence
}
