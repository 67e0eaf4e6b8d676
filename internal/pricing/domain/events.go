package domain

import "time"

const (
	OptionPricedEventType          = "OptionPriced"
	GreeksCalculatedEventType      = "GreeksCalculated"
	ImpliedVolCalculatedEventType  = "ImpliedVolCalculated"
	RealizedVolCalculatedEventType = "RealizedVolCalculated"
	PricingErrorEventType          = "PricingError"
	BatchPricingCompletedEventType = "BatchPricingCompleted"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	Symbol          string           `json:"symbol"`
	PricingModel    PricingModelType `json:"pricing_model"`
	OptionType      OptionType       `json:"option_type"`
	Underlying      UnderlyingType   `json:"underlying"`
	Settlement      SettlementStyle  `json:"settlement,omitempty"`
	ExerciseStyle   ExerciseStyle    `json:"exercise_style"`
	Steps           int              `json:"steps,omitempty"`
	UnderlyingPrice float64          `json:"underlying_price"`
	StrikePrice     float64          `json:"strike_price"`
	TimeToExpiry    float64          `json:"time_to_expiry"`
	OptionPrice     float64          `json:"option_price"`
	Volatility      float64          `json:"volatility"`
	RiskFreeRate    float64          `json:"risk_free_rate"`
	DividendYield   float64          `json:"dividend_yield"`
	CalculatedAt    int64            `json:"calculated_at"`
	OccurredOn      time.Time        `json:"occurred_on"`
}

// GreeksCalculatedEvent 希腊字母计算完成事件
type GreeksCalculatedEvent struct {
	Symbol          string           `json:"symbol"`
	PricingModel    PricingModelType `json:"pricing_model"`
	OptionType      OptionType       `json:"option_type"`
	UnderlyingPrice float64          `json:"underlying_price"`
	StrikePrice     float64          `json:"strike_price"`
	TimeToExpiry    float64          `json:"time_to_expiry"`
	Greeks          OptionGreeks     `json:"greeks"`
	CalculatedAt    int64            `json:"calculated_at"`
	OccurredOn      time.Time        `json:"occurred_on"`
}

// ImpliedVolCalculatedEvent 隐含波动率求解完成事件
type ImpliedVolCalculatedEvent struct {
	Symbol        string           `json:"symbol"`
	PricingModel  PricingModelType `json:"pricing_model"`
	OptionType    OptionType       `json:"option_type"`
	TargetPremium float64          `json:"target_premium"`
	ImpliedVol    float64          `json:"implied_vol"`
	Converged     bool             `json:"converged"`
	CalculatedAt  int64            `json:"calculated_at"`
	OccurredOn    time.Time        `json:"occurred_on"`
}

// RealizedVolCalculatedEvent 历史波动率计算完成事件
type RealizedVolCalculatedEvent struct {
	Symbol       string    `json:"symbol"`
	RealizedVol  float64   `json:"realized_vol"`
	SampleSize   int       `json:"sample_size"`
	Periods      float64   `json:"periods"`
	CalculatedAt int64     `json:"calculated_at"`
	OccurredOn   time.Time `json:"occurred_on"`
}

// PricingErrorEvent 定价错误事件
type PricingErrorEvent struct {
	Symbol       string           `json:"symbol"`
	PricingModel PricingModelType `json:"pricing_model"`
	OptionType   OptionType       `json:"option_type"`
	StrikePrice  float64          `json:"strike_price"`
	Error        string           `json:"error"`
	OccurredAt   int64            `json:"occurred_at"`
	OccurredOn   time.Time        `json:"occurred_on"`
}

// BatchPricingCompletedEvent 批量定价完成事件
type BatchPricingCompletedEvent struct {
	BatchID        string    `json:"batch_id"`
	Symbols        []string  `json:"symbols"`
	TotalContracts int       `json:"total_contracts"`
	SuccessCount   int       `json:"success_count"`
	FailureCount   int       `json:"failure_count"`
	AverageTime    float64   `json:"average_time"`
	CompletedAt    int64     `json:"completed_at"`
	OccurredOn     time.Time `json:"occurred_on"`
}
