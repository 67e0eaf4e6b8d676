package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionGreeks 单次估值产出的全部敏感度。
// gammap 仅广义 Black-Scholes 模型填充, 其余模型保持为 0。
type OptionGreeks struct {
	Prima  float64 `json:"prima"`
	Delta  float64 `json:"delta"`
	Gamma  float64 `json:"gamma"`
	GammaP float64 `json:"gammap"`
	Theta  float64 `json:"theta"`
	Vega   float64 `json:"vega"`
	Rho    float64 `json:"rho"`
}

// PricingResult 定价结果实体
type PricingResult struct {
	ID              uint             `json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Symbol          string           `json:"symbol"`
	PricingModel    PricingModelType `json:"pricing_model"`
	OptionType      OptionType       `json:"option_type"`
	Underlying      UnderlyingType   `json:"underlying"`
	Settlement      SettlementStyle  `json:"settlement,omitempty"`
	ExerciseStyle   ExerciseStyle    `json:"exercise_style"`
	Steps           int              `json:"steps,omitempty"`
	UnderlyingPrice decimal.Decimal  `json:"underlying_price"`
	StrikePrice     decimal.Decimal  `json:"strike_price"`
	OptionPrice     decimal.Decimal  `json:"option_price"`
	Delta           decimal.Decimal  `json:"delta"`
	Gamma           decimal.Decimal  `json:"gamma"`
	GammaP          decimal.Decimal  `json:"gammap"`
	Theta           decimal.Decimal  `json:"theta"`
	Vega            decimal.Decimal  `json:"vega"`
	Rho             decimal.Decimal  `json:"rho"`
	Volatility      decimal.Decimal  `json:"volatility"`
	RiskFreeRate    decimal.Decimal  `json:"risk_free_rate"`
	DividendYield   decimal.Decimal  `json:"dividend_yield"`
	TimeToExpiry    decimal.Decimal  `json:"time_to_expiry"`
	CalculatedAt    int64            `json:"calculated_at"`
}

// ImpliedVolResult 隐含波动率求解结果实体。
// 不收敛的求解同样落库, Converged 为 false, ImpliedVol 为 0。
type ImpliedVolResult struct {
	ID            uint             `json:"id"`
	CreatedAt     time.Time        `json:"created_at"`
	Symbol        string           `json:"symbol"`
	PricingModel  PricingModelType `json:"pricing_model"`
	OptionType    OptionType       `json:"option_type"`
	TargetPremium decimal.Decimal  `json:"target_premium"`
	ImpliedVol    decimal.Decimal  `json:"implied_vol"`
	Converged     bool             `json:"converged"`
	Steps         int              `json:"steps,omitempty"`
	CalculatedAt  int64            `json:"calculated_at"`
}
