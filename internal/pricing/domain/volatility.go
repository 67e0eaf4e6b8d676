package domain

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// TradingPeriodsPerYear 默认年化采样期数, 按交易日计。
const TradingPeriodsPerYear = 252

// RealizedVolatility 由收盘价序列计算年化历史波动率:
// 对相邻收盘价取对数收益, 以样本标准差乘以每年期数的平方根年化。
// 序列至少需要三个价格点; periods 传 0 或负数时按 252 处理。
func RealizedVolatility(closes []float64, periods float64) (float64, error) {
	if len(closes) < 3 {
		return 0, ErrInsufficientPrices
	}
	if periods <= 0 {
		periods = TradingPeriodsPerYear
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, fmt.Errorf("non-positive close at index %d: %w", i, ErrInsufficientPrices)
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return 0, fmt.Errorf("sample standard deviation: %w", err)
	}
	return sd * math.Sqrt(periods), nil
}
