// Package domain 期权定价服务的领域模型与定价引擎。
package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidOptionType      = errors.New("invalid option type")
	ErrInvalidUnderlyingType  = errors.New("invalid underlying type")
	ErrInvalidSettlementStyle = errors.New("invalid settlement style")
	ErrInvalidExerciseStyle   = errors.New("invalid exercise style")
	ErrInvalidStepCount       = errors.New("invalid step count")
	ErrInvalidGreek           = errors.New("invalid greek selector")
	ErrInvalidPricingModel    = errors.New("invalid pricing model")
	ErrNoConvergence          = errors.New("implied volatility did not converge")
	ErrInsufficientPrices     = errors.New("insufficient price history")
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// UnderlyingType 标的资产类型
type UnderlyingType string

const (
	UnderlyingEquity UnderlyingType = "EQUITY" // 股票类标的, 连续持有成本
	UnderlyingFuture UnderlyingType = "FUTURE" // 期货类标的
)

// SettlementStyle 期货结算方式, 仅当标的为期货时有意义
type SettlementStyle string

const (
	SettlementFuturesStyle    SettlementStyle = "FUTURES_STYLE"     // 逐日盯市, 无贴现
	SettlementEquityStyle     SettlementStyle = "EQUITY_STYLE"      // 权利金先付, 无逐日盯市
	SettlementMatbaRofexStyle SettlementStyle = "MATBA_ROFEX_STYLE" // 逐日盯市, 内在价值计息
)

// ExerciseStyle 行权方式
type ExerciseStyle string

const (
	ExerciseEuropean ExerciseStyle = "EUROPEAN"
	ExerciseAmerican ExerciseStyle = "AMERICAN"
)

// Greek 定价输出选择器
type Greek string

const (
	GreekPrima  Greek = "PRIMA" // 权利金
	GreekDelta  Greek = "DELTA"
	GreekGamma  Greek = "GAMMA"
	GreekGammaP Greek = "GAMMAP" // gamma 按现价 /100 缩放, 仅 Black-Scholes 模型支持
	GreekTheta  Greek = "THETA"
	GreekVega   Greek = "VEGA"
	GreekRho    Greek = "RHO"
)

// PricingModelType 定价模型类型
type PricingModelType string

const (
	PricingModelBlackScholes       PricingModelType = "BLACK_SCHOLES"
	PricingModelBinomial           PricingModelType = "BINOMIAL"
	PricingModelBjerksundStensland PricingModelType = "BJERKSUND_STENSLAND"
)

// ParseOptionType 解析期权类型, 大小写不敏感
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C":
		return OptionTypeCall, nil
	case "PUT", "P":
		return OptionTypePut, nil
	default:
		return "", ErrInvalidOptionType
	}
}

// ParseUnderlyingType 解析标的类型; 兼容西语市场术语 accion/futuro
func ParseUnderlyingType(s string) (UnderlyingType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EQUITY", "STOCK", "ACCION", "ACCIÓN":
		return UnderlyingEquity, nil
	case "FUTURE", "FUTURES", "FUTURO":
		return UnderlyingFuture, nil
	default:
		return "", ErrInvalidUnderlyingType
	}
}

// ParseSettlementStyle 解析期货结算方式
func ParseSettlementStyle(s string) (SettlementStyle, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FUTURES_STYLE", "FUTURES":
		return SettlementFuturesStyle, nil
	case "EQUITY_STYLE", "EQUITY":
		return SettlementEquityStyle, nil
	case "MATBA_ROFEX_STYLE", "MATBA_ROFEX", "MATBA":
		return SettlementMatbaRofexStyle, nil
	default:
		return "", ErrInvalidSettlementStyle
	}
}

// ParseExerciseStyle 解析行权方式; 兼容 europea/americana
func ParseExerciseStyle(s string) (ExerciseStyle, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EUROPEAN", "EUROPEA":
		return ExerciseEuropean, nil
	case "AMERICAN", "AMERICANA":
		return ExerciseAmerican, nil
	default:
		return "", ErrInvalidExerciseStyle
	}
}

// ParseGreek 解析定价输出选择器; prima/price/premium 均指权利金
func ParseGreek(s string) (Greek, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRIMA", "PRICE", "PREMIUM":
		return GreekPrima, nil
	case "DELTA":
		return GreekDelta, nil
	case "GAMMA":
		return GreekGamma, nil
	case "GAMMAP":
		return GreekGammaP, nil
	case "THETA":
		return GreekTheta, nil
	case "VEGA":
		return GreekVega, nil
	case "RHO":
		return GreekRho, nil
	default:
		return "", ErrInvalidGreek
	}
}

// ParsePricingModel 解析定价模型类型
func ParsePricingModel(s string) (PricingModelType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BLACK_SCHOLES", "BLACKSCHOLES", "BS":
		return PricingModelBlackScholes, nil
	case "BINOMIAL", "CRR", "LATTICE":
		return PricingModelBinomial, nil
	case "BJERKSUND_STENSLAND", "BJERKSUNDSTENSLAND", "BS93":
		return PricingModelBjerksundStensland, nil
	default:
		return "", ErrInvalidPricingModel
	}
}

// OptionContract 单次估值的期权合约参数, 调用期间不可变
type OptionContract struct {
	OptionType      OptionType
	Underlying      UnderlyingType
	Settlement      SettlementStyle
	UnderlyingPrice float64 // s
	StrikePrice     float64 // k
	TimeToExpiry    float64 // T, 年
	RiskFreeRate    float64 // r
	DividendYield   float64 // q
	Volatility      float64 // sigma
}

// sign 看涨 +1, 看跌 -1
func (c OptionContract) sign() float64 {
	if c.OptionType == OptionTypePut {
		return -1
	}
	return 1
}

// IntrinsicValue 内在价值 max(0, z*(s-k))
func (c OptionContract) IntrinsicValue() float64 {
	v := c.sign() * (c.UnderlyingPrice - c.StrikePrice)
	if v < 0 {
		return 0
	}
	return v
}

// expiryDelta 到期时的阶跃 delta: 实值看涨为 1, 实值看跌为 -1, 其余为 0
func (c OptionContract) expiryDelta() float64 {
	if c.OptionType == OptionTypePut {
		if c.UnderlyingPrice < c.StrikePrice {
			return -1
		}
		return 0
	}
	if c.UnderlyingPrice > c.StrikePrice {
		return 1
	}
	return 0
}

// degenerateValue 到期或已过期合约的取值: prima 为内在价值, delta 为阶跃, 其余为 0
func degenerateValue(greek Greek, c OptionContract) float64 {
	switch greek {
	case GreekPrima:
		return c.IntrinsicValue()
	case GreekDelta:
		return c.expiryDelta()
	default:
		return 0
	}
}
