package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PricingResultModel 定价结果数据库模型
type PricingResultModel struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
	Symbol          string    `gorm:"column:symbol;type:varchar(32);index:idx_symbol_model;not null"`
	PricingModel    string    `gorm:"column:pricing_model;type:varchar(32);index:idx_symbol_model;not null"`
	OptionType      string    `gorm:"column:option_type;type:varchar(8);not null"`
	Underlying      string    `gorm:"column:underlying;type:varchar(16);not null"`
	Settlement      string    `gorm:"column:settlement;type:varchar(32)"`
	ExerciseStyle   string    `gorm:"column:exercise_style;type:varchar(16);not null"`
	Steps           int       `gorm:"column:steps"`
	UnderlyingPrice string    `gorm:"column:underlying_price;type:decimal(32,18);not null"`
	StrikePrice     string    `gorm:"column:strike_price;type:decimal(32,18);not null"`
	OptionPrice     string    `gorm:"column:option_price;type:decimal(32,18);not null"`
	Delta           string    `gorm:"column:delta;type:decimal(32,18)"`
	Gamma           string    `gorm:"column:gamma;type:decimal(32,18)"`
	GammaP          string    `gorm:"column:gammap;type:decimal(32,18)"`
	Theta           string    `gorm:"column:theta;type:decimal(32,18)"`
	Vega            string    `gorm:"column:vega;type:decimal(32,18)"`
	Rho             string    `gorm:"column:rho;type:decimal(32,18)"`
	Volatility      string    `gorm:"column:volatility;type:decimal(32,18)"`
	RiskFreeRate    string    `gorm:"column:risk_free_rate;type:decimal(32,18)"`
	DividendYield   string    `gorm:"column:dividend_yield;type:decimal(32,18)"`
	TimeToExpiry    string    `gorm:"column:time_to_expiry;type:decimal(32,18)"`
	CalculatedAt    int64     `gorm:"column:calculated_at;type:bigint;index;not null"`
}

func (PricingResultModel) TableName() string { return "pricing_results" }

// ImpliedVolResultModel 隐含波动率求解结果数据库模型
type ImpliedVolResultModel struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	Symbol        string    `gorm:"column:symbol;type:varchar(32);index;not null"`
	PricingModel  string    `gorm:"column:pricing_model;type:varchar(32);not null"`
	OptionType    string    `gorm:"column:option_type;type:varchar(8);not null"`
	TargetPremium string    `gorm:"column:target_premium;type:decimal(32,18);not null"`
	ImpliedVol    string    `gorm:"column:implied_vol;type:decimal(32,18)"`
	Converged     bool      `gorm:"column:converged;not null"`
	Steps         int       `gorm:"column:steps"`
	CalculatedAt  int64     `gorm:"column:calculated_at;type:bigint;index;not null"`
}

func (ImpliedVolResultModel) TableName() string { return "implied_vol_results" }

// mapping helpers

func toPricingResultModel(res *domain.PricingResult) *PricingResultModel {
	if res == nil {
		return nil
	}
	return &PricingResultModel{
		ID:              res.ID,
		CreatedAt:       res.CreatedAt,
		UpdatedAt:       res.UpdatedAt,
		Symbol:          res.Symbol,
		PricingModel:    string(res.PricingModel),
		OptionType:      string(res.OptionType),
		Underlying:      string(res.Underlying),
		Settlement:      string(res.Settlement),
		ExerciseStyle:   string(res.ExerciseStyle),
		Steps:           res.Steps,
		UnderlyingPrice: res.UnderlyingPrice.String(),
		StrikePrice:     res.StrikePrice.String(),
		OptionPrice:     res.OptionPrice.String(),
		Delta:           res.Delta.String(),
		Gamma:           res.Gamma.String(),
		GammaP:          res.GammaP.String(),
		Theta:           res.Theta.String(),
		Vega:            res.Vega.String(),
		Rho:             res.Rho.String(),
		Volatility:      res.Volatility.String(),
		RiskFreeRate:    res.RiskFreeRate.String(),
		DividendYield:   res.DividendYield.String(),
		TimeToExpiry:    res.TimeToExpiry.String(),
		CalculatedAt:    res.CalculatedAt,
	}
}

func toPricingResult(m *PricingResultModel) *domain.PricingResult {
	if m == nil {
		return nil
	}
	underlyingPrice, _ := decimal.NewFromString(m.UnderlyingPrice)
	strikePrice, _ := decimal.NewFromString(m.StrikePrice)
	optionPrice, _ := decimal.NewFromString(m.OptionPrice)
	delta, _ := decimal.NewFromString(m.Delta)
	gamma, _ := decimal.NewFromString(m.Gamma)
	gammaP, _ := decimal.NewFromString(m.GammaP)
	theta, _ := decimal.NewFromString(m.Theta)
	vega, _ := decimal.NewFromString(m.Vega)
	rho, _ := decimal.NewFromString(m.Rho)
	volatility, _ := decimal.NewFromString(m.Volatility)
	riskFreeRate, _ := decimal.NewFromString(m.RiskFreeRate)
	dividendYield, _ := decimal.NewFromString(m.DividendYield)
	timeToExpiry, _ := decimal.NewFromString(m.TimeToExpiry)

	return &domain.PricingResult{
		ID:              m.ID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Symbol:          m.Symbol,
		PricingModel:    domain.PricingModelType(m.PricingModel),
		OptionType:      domain.OptionType(m.OptionType),
		Underlying:      domain.UnderlyingType(m.Underlying),
		Settlement:      domain.SettlementStyle(m.Settlement),
		ExerciseStyle:   domain.ExerciseStyle(m.ExerciseStyle),
		Steps:           m.Steps,
		UnderlyingPrice: underlyingPrice,
		StrikePrice:     strikePrice,
		OptionPrice:     optionPrice,
		Delta:           delta,
		Gamma:           gamma,
		GammaP:          gammaP,
		Theta:           theta,
		Vega:            vega,
		Rho:             rho,
		Volatility:      volatility,
		RiskFreeRate:    riskFreeRate,
		DividendYield:   dividendYield,
		TimeToExpiry:    timeToExpiry,
		CalculatedAt:    m.CalculatedAt,
	}
}

func toImpliedVolResultModel(res *domain.ImpliedVolResult) *ImpliedVolResultModel {
	if res == nil {
		return nil
	}
	return &ImpliedVolResultModel{
		ID:            res.ID,
		CreatedAt:     res.CreatedAt,
		Symbol:        res.Symbol,
		PricingModel:  string(res.PricingModel),
		OptionType:    string(res.OptionType),
		TargetPremium: res.TargetPremium.String(),
		ImpliedVol:    res.ImpliedVol.String(),
		Converged:     res.Converged,
		Steps:         res.Steps,
		CalculatedAt:  res.CalculatedAt,
	}
}

func toImpliedVolResult(m *ImpliedVolResultModel) *domain.ImpliedVolResult {
	if m == nil {
		return nil
	}
	targetPremium, _ := decimal.NewFromString(m.TargetPremium)
	impliedVol, _ := decimal.NewFromString(m.ImpliedVol)

	return &domain.ImpliedVolResult{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Symbol:        m.Symbol,
		PricingModel:  domain.PricingModelType(m.PricingModel),
		OptionType:    domain.OptionType(m.OptionType),
		TargetPremium: targetPremium,
		ImpliedVol:    impliedVol,
		Converged:     m.Converged,
		Steps:         m.Steps,
		CalculatedAt:  m.CalculatedAt,
	}
}
