package application

import (
	"fmt"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// PriceOptionCommand 期权定价命令。
// TimeToExpiry 与 ExpiryDate 二选一: 前者为年化剩余期限, 优先生效;
// 后者为毫秒时间戳, 由服务换算, 已到期合约按 T=0 处理。
type PriceOptionCommand struct {
	Symbol          string
	PricingModel    string
	OptionType      string
	Underlying      string
	Settlement      string
	ExerciseStyle   string
	Steps           int
	UnderlyingPrice float64
	StrikePrice     float64
	TimeToExpiry    float64
	ExpiryDate      int64
	Volatility      float64
	RiskFreeRate    float64
	DividendYield   float64
}

// SolveImpliedVolCommand 隐含波动率求解命令
type SolveImpliedVolCommand struct {
	Symbol          string
	PricingModel    string
	OptionType      string
	Underlying      string
	Settlement      string
	ExerciseStyle   string
	Steps           int
	UnderlyingPrice float64
	StrikePrice     float64
	TimeToExpiry    float64
	ExpiryDate      int64
	RiskFreeRate    float64
	DividendYield   float64
	TargetPremium   float64
}

// pricing 以零波动率视角复用定价命令的合约装配
func (cmd SolveImpliedVolCommand) pricing() PriceOptionCommand {
	return PriceOptionCommand{
		Symbol:          cmd.Symbol,
		PricingModel:    cmd.PricingModel,
		OptionType:      cmd.OptionType,
		Underlying:      cmd.Underlying,
		Settlement:      cmd.Settlement,
		ExerciseStyle:   cmd.ExerciseStyle,
		Steps:           cmd.Steps,
		UnderlyingPrice: cmd.UnderlyingPrice,
		StrikePrice:     cmd.StrikePrice,
		TimeToExpiry:    cmd.TimeToExpiry,
		ExpiryDate:      cmd.ExpiryDate,
		RiskFreeRate:    cmd.RiskFreeRate,
		DividendYield:   cmd.DividendYield,
	}
}

// ComputeRealizedVolCommand 历史波动率计算命令
type ComputeRealizedVolCommand struct {
	Symbol  string
	Closes  []float64
	Periods float64
}

// RealizedVolReport 历史波动率计算结果
type RealizedVolReport struct {
	Symbol      string  `json:"symbol"`
	RealizedVol float64 `json:"realized_vol"`
	SampleSize  int     `json:"sample_size"`
	Periods     float64 `json:"periods"`
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string
	Contracts []PriceOptionCommand
}

// BatchPricingResult 批量定价结果
type BatchPricingResult struct {
	BatchID      string                  `json:"batch_id"`
	Results      []*domain.PricingResult `json:"results"`
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	AverageTime  float64                 `json:"average_time"`
}

// valuation 装配完成的一次估值: 模型、领域合约、行权方式与树步数
type valuation struct {
	model    domain.PricingModelType
	contract domain.OptionContract
	style    domain.ExerciseStyle
	steps    int
}

// newValuation 把命令参数装配为领域合约。
// 标的缺省为股票类; 结算方式仅透传, 组合合法性由领域层裁决;
// 树步数缺省取配置默认值, 超过配置上限在建树前拒绝。
func newValuation(cmd PriceOptionCommand, cfg config.PricingConfig) (valuation, error) {
	modelName := cmd.PricingModel
	if modelName == "" {
		modelName = cfg.DefaultModel
	}
	model, err := domain.ParsePricingModel(modelName)
	if err != nil {
		return valuation{}, fmt.Errorf("pricing model %q: %w", modelName, err)
	}

	optionType, err := domain.ParseOptionType(cmd.OptionType)
	if err != nil {
		return valuation{}, fmt.Errorf("option type %q: %w", cmd.OptionType, err)
	}

	underlying := domain.UnderlyingEquity
	if cmd.Underlying != "" {
		underlying, err = domain.ParseUnderlyingType(cmd.Underlying)
		if err != nil {
			return valuation{}, fmt.Errorf("underlying %q: %w", cmd.Underlying, err)
		}
	}

	var settlement domain.SettlementStyle
	if cmd.Settlement != "" {
		settlement, err = domain.ParseSettlementStyle(cmd.Settlement)
		if err != nil {
			return valuation{}, fmt.Errorf("settlement %q: %w", cmd.Settlement, err)
		}
	}

	style, err := resolveExerciseStyle(model, cmd.ExerciseStyle)
	if err != nil {
		return valuation{}, err
	}

	steps := 0
	if model == domain.PricingModelBinomial {
		steps = cmd.Steps
		if steps == 0 {
			steps = cfg.DefaultSteps
		}
		if cfg.MaxLatticeSteps > 0 && steps > cfg.MaxLatticeSteps {
			return valuation{}, fmt.Errorf("steps %d exceed ceiling %d: %w", steps, cfg.MaxLatticeSteps, domain.ErrInvalidStepCount)
		}
	}

	return valuation{
		model: model,
		contract: domain.OptionContract{
			OptionType:      optionType,
			Underlying:      underlying,
			Settlement:      settlement,
			UnderlyingPrice: cmd.UnderlyingPrice,
			StrikePrice:     cmd.StrikePrice,
			TimeToExpiry:    resolveTimeToExpiry(cmd.TimeToExpiry, cmd.ExpiryDate),
			RiskFreeRate:    cmd.RiskFreeRate,
			DividendYield:   cmd.DividendYield,
			Volatility:      cmd.Volatility,
		},
		style: style,
		steps: steps,
	}, nil
}

// resolveExerciseStyle 确定行权方式。
// Black-Scholes 只定价欧式, Bjerksund-Stensland 只定价美式,
// 显式传入相反方式视为调用错误; 二叉树缺省美式。
func resolveExerciseStyle(model domain.PricingModelType, s string) (domain.ExerciseStyle, error) {
	if s == "" {
		if model == domain.PricingModelBlackScholes {
			return domain.ExerciseEuropean, nil
		}
		return domain.ExerciseAmerican, nil
	}
	style, err := domain.ParseExerciseStyle(s)
	if err != nil {
		return "", fmt.Errorf("exercise style %q: %w", s, err)
	}
	switch model {
	case domain.PricingModelBlackScholes:
		if style != domain.ExerciseEuropean {
			return "", fmt.Errorf("model %s prices european exercise only: %w", model, domain.ErrInvalidExerciseStyle)
		}
	case domain.PricingModelBjerksundStensland:
		if style != domain.ExerciseAmerican {
			return "", fmt.Errorf("model %s prices american exercise only: %w", model, domain.ErrInvalidExerciseStyle)
		}
	}
	return style, nil
}

// resolveTimeToExpiry 归一化剩余期限: 显式 T 优先, 否则由到期毫秒时间戳换算
func resolveTimeToExpiry(timeToExpiry float64, expiryDate int64) float64 {
	if timeToExpiry > 0 {
		return timeToExpiry
	}
	if expiryDate > 0 {
		t := float64(expiryDate-time.Now().UnixMilli()) / 1000 / 24 / 3600 / 365
		if t > 0 {
			return t
		}
	}
	return 0
}

// engines 三种定价引擎的共享句柄, 命令与查询服务各持有一份
type engines struct {
	blackScholes *domain.BlackScholesModel
	binomial     *domain.BinomialModel
	american     *domain.BjerksundStenslandModel
	solver       *domain.ImpliedVolSolver
}

func newEngines() engines {
	return engines{
		blackScholes: domain.NewBlackScholesModel(),
		binomial:     domain.NewBinomialModel(),
		american:     domain.NewBjerksundStenslandModel(),
		solver:       domain.NewImpliedVolSolver(),
	}
}

// greeks 按模型分派全量敏感度估值
func (e engines) greeks(val valuation) (domain.OptionGreeks, error) {
	switch val.model {
	case domain.PricingModelBinomial:
		return e.binomial.Greeks(val.contract, val.style, val.steps)
	case domain.PricingModelBjerksundStensland:
		return e.american.Greeks(val.contract)
	default:
		return e.blackScholes.Greeks(val.contract)
	}
}

// impliedVol 按模型分派隐含波动率求解
func (e engines) impliedVol(val valuation, targetPremium float64) (float64, error) {
	switch val.model {
	case domain.PricingModelBinomial:
		return e.solver.FromBinomial(val.contract, val.style, val.steps, targetPremium)
	case domain.PricingModelBjerksundStensland:
		return e.solver.FromBjerksundStensland(val.contract, targetPremium)
	default:
		return e.solver.FromBlackScholes(val.contract, targetPremium)
	}
}

// observeValuation 记录估值次数与耗时, m 为 nil 时跳过
func observeValuation(m *metrics.Metrics, val valuation, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PricingsTotal.WithLabelValues(string(val.model)).Inc()
	m.PricingDuration.Observe(elapsed.Seconds())
	if val.model == domain.PricingModelBinomial {
		m.LatticeStepsObserved.Observe(float64(val.steps))
	}
}
