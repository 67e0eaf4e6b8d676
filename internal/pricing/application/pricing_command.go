package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/contextx"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/messagequeue"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// PricingCommandService 处理定价相关的命令操作。
// 领域事件经 Outbox 随业务事务一并落库, 由后台 relay 投递到 Kafka。
type PricingCommandService struct {
	repo      domain.PricingRepository
	cache     domain.PricingCache
	publisher messagequeue.EventPublisher
	engines   engines
	metrics   *metrics.Metrics
	cfg       config.PricingConfig
}

// NewPricingCommandService 创建命令服务; cache 与 metrics 允许为 nil。
func NewPricingCommandService(repo domain.PricingRepository, cache domain.PricingCache, publisher messagequeue.EventPublisher, m *metrics.Metrics, cfg config.PricingConfig) *PricingCommandService {
	return &PricingCommandService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		engines:   newEngines(),
		metrics:   m,
		cfg:       cfg,
	}
}

// PriceOption 为单个合约估值并持久化结果,
// OptionPriced 与 GreeksCalculated 事件随业务事务写入 Outbox。
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	if cmd.Symbol == "" {
		return nil, errors.New("symbol is required")
	}
	val, err := newValuation(cmd, c.cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	greeks, err := c.engines.greeks(val)
	if err != nil {
		c.recordPricingError(ctx, cmd.Symbol, val, err)
		return nil, err
	}

	now := time.Now()
	result := &domain.PricingResult{
		Symbol:          cmd.Symbol,
		PricingModel:    val.model,
		OptionType:      val.contract.OptionType,
		Underlying:      val.contract.Underlying,
		Settlement:      val.contract.Settlement,
		ExerciseStyle:   val.style,
		Steps:           val.steps,
		UnderlyingPrice: decimal.NewFromFloat(val.contract.UnderlyingPrice),
		StrikePrice:     decimal.NewFromFloat(val.contract.StrikePrice),
		OptionPrice:     decimal.NewFromFloat(greeks.Prima),
		Delta:           decimal.NewFromFloat(greeks.Delta),
		Gamma:           decimal.NewFromFloat(greeks.Gamma),
		GammaP:          decimal.NewFromFloat(greeks.GammaP),
		Theta:           decimal.NewFromFloat(greeks.Theta),
		Vega:            decimal.NewFromFloat(greeks.Vega),
		Rho:             decimal.NewFromFloat(greeks.Rho),
		Volatility:      decimal.NewFromFloat(val.contract.Volatility),
		RiskFreeRate:    decimal.NewFromFloat(val.contract.RiskFreeRate),
		DividendYield:   decimal.NewFromFloat(val.contract.DividendYield),
		TimeToExpiry:    decimal.NewFromFloat(val.contract.TimeToExpiry),
		CalculatedAt:    now.Unix(),
	}

	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.SavePricingResult(txCtx, result); err != nil {
			return fmt.Errorf("save pricing result: %w", err)
		}
		if c.publisher == nil {
			return nil
		}
		tx := contextx.GetTx(txCtx)

		priced := domain.OptionPricedEvent{
			Symbol:          cmd.Symbol,
			PricingModel:    val.model,
			OptionType:      val.contract.OptionType,
			Underlying:      val.contract.Underlying,
			Settlement:      val.contract.Settlement,
			ExerciseStyle:   val.style,
			Steps:           val.steps,
			UnderlyingPrice: val.contract.UnderlyingPrice,
			StrikePrice:     val.contract.StrikePrice,
			TimeToExpiry:    val.contract.TimeToExpiry,
			OptionPrice:     greeks.Prima,
			Volatility:      val.contract.Volatility,
			RiskFreeRate:    val.contract.RiskFreeRate,
			DividendYield:   val.contract.DividendYield,
			CalculatedAt:    result.CalculatedAt,
			OccurredOn:      now,
		}
		if err := c.publisher.PublishInTx(txCtx, tx, domain.OptionPricedEventType, cmd.Symbol, priced); err != nil {
			return fmt.Errorf("publish %s: %w", domain.OptionPricedEventType, err)
		}

		calculated := domain.GreeksCalculatedEvent{
			Symbol:          cmd.Symbol,
			PricingModel:    val.model,
			OptionType:      val.contract.OptionType,
			UnderlyingPrice: val.contract.UnderlyingPrice,
			StrikePrice:     val.contract.StrikePrice,
			TimeToExpiry:    val.contract.TimeToExpiry,
			Greeks:          greeks,
			CalculatedAt:    result.CalculatedAt,
			OccurredOn:      now,
		}
		if err := c.publisher.PublishInTx(txCtx, tx, domain.GreeksCalculatedEventType, cmd.Symbol, calculated); err != nil {
			return fmt.Errorf("publish %s: %w", domain.GreeksCalculatedEventType, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetLatest(ctx, result); err != nil {
			logger.Warn(ctx, "failed to refresh latest pricing cache", "symbol", cmd.Symbol, "error", err)
		}
	}
	observeValuation(c.metrics, val, time.Since(start))
	return result, nil
}

// SolveImpliedVol 由观察到的权利金反解隐含波动率并持久化。
// 不收敛的求解同样落库并发布事件, Converged 为 false, 随结果一并返回 ErrNoConvergence。
func (c *PricingCommandService) SolveImpliedVol(ctx context.Context, cmd SolveImpliedVolCommand) (*domain.ImpliedVolResult, error) {
	if cmd.Symbol == "" {
		return nil, errors.New("symbol is required")
	}
	val, err := newValuation(cmd.pricing(), c.cfg)
	if err != nil {
		return nil, err
	}

	vol, solveErr := c.engines.impliedVol(val, cmd.TargetPremium)
	if solveErr != nil && !errors.Is(solveErr, domain.ErrNoConvergence) {
		return nil, solveErr
	}
	if c.metrics != nil {
		c.metrics.ImpliedVolTotal.Inc()
		if solveErr != nil {
			c.metrics.ImpliedVolFailed.Inc()
		}
	}

	now := time.Now()
	result := &domain.ImpliedVolResult{
		Symbol:        cmd.Symbol,
		PricingModel:  val.model,
		OptionType:    val.contract.OptionType,
		TargetPremium: decimal.NewFromFloat(cmd.TargetPremium),
		ImpliedVol:    decimal.NewFromFloat(vol),
		Converged:     solveErr == nil,
		Steps:         val.steps,
		CalculatedAt:  now.Unix(),
	}

	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.SaveImpliedVolResult(txCtx, result); err != nil {
			return fmt.Errorf("save implied vol result: %w", err)
		}
		if c.publisher == nil {
			return nil
		}
		event := domain.ImpliedVolCalculatedEvent{
			Symbol:        cmd.Symbol,
			PricingModel:  val.model,
			OptionType:    val.contract.OptionType,
			TargetPremium: cmd.TargetPremium,
			ImpliedVol:    vol,
			Converged:     result.Converged,
			CalculatedAt:  result.CalculatedAt,
			OccurredOn:    now,
		}
		if err := c.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.ImpliedVolCalculatedEventType, cmd.Symbol, event); err != nil {
			return fmt.Errorf("publish %s: %w", domain.ImpliedVolCalculatedEventType, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, solveErr
}

// BatchPriceOptions 逐个合约估值, 单项失败计数而不中断批次,
// 完成后发布 BatchPricingCompleted 汇总事件。批次间响应取消。
func (c *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	batchID := cmd.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}

	results := make([]*domain.PricingResult, 0, len(cmd.Contracts))
	successCount := 0
	failureCount := 0
	totalTime := 0.0

	for _, contract := range cmd.Contracts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		startTime := time.Now()
		result, err := c.PriceOption(ctx, contract)
		totalTime += time.Since(startTime).Seconds()

		if err != nil {
			failureCount++
			logger.Warn(ctx, "batch pricing item failed", "batch_id", batchID, "symbol", contract.Symbol, "error", err)
			continue
		}
		results = append(results, result)
		successCount++
	}

	avg := 0.0
	if len(cmd.Contracts) > 0 {
		avg = totalTime / float64(len(cmd.Contracts))
	}

	if c.publisher != nil {
		event := domain.BatchPricingCompletedEvent{
			BatchID:        batchID,
			Symbols:        extractSymbols(cmd.Contracts),
			TotalContracts: len(cmd.Contracts),
			SuccessCount:   successCount,
			FailureCount:   failureCount,
			AverageTime:    avg,
			CompletedAt:    time.Now().Unix(),
			OccurredOn:     time.Now(),
		}
		if err := c.publisher.Publish(ctx, domain.BatchPricingCompletedEventType, batchID, event); err != nil {
			logger.Warn(ctx, "failed to publish batch completion event", "batch_id", batchID, "error", err)
		}
	}

	return &BatchPricingResult{
		BatchID:      batchID,
		Results:      results,
		SuccessCount: successCount,
		FailureCount: failureCount,
		AverageTime:  avg,
	}, nil
}

// ComputeRealizedVol 由收盘价序列计算年化历史波动率。
// 结果不落库, 仅发布 RealizedVolCalculated 事件。
func (c *PricingCommandService) ComputeRealizedVol(ctx context.Context, cmd ComputeRealizedVolCommand) (*RealizedVolReport, error) {
	if cmd.Symbol == "" {
		return nil, errors.New("symbol is required")
	}
	vol, err := domain.RealizedVolatility(cmd.Closes, cmd.Periods)
	if err != nil {
		return nil, err
	}

	periods := cmd.Periods
	if periods <= 0 {
		periods = domain.TradingPeriodsPerYear
	}
	report := &RealizedVolReport{
		Symbol:      cmd.Symbol,
		RealizedVol: vol,
		SampleSize:  len(cmd.Closes),
		Periods:     periods,
	}

	if c.publisher != nil {
		event := domain.RealizedVolCalculatedEvent{
			Symbol:       cmd.Symbol,
			RealizedVol:  vol,
			SampleSize:   report.SampleSize,
			Periods:      periods,
			CalculatedAt: time.Now().Unix(),
			OccurredOn:   time.Now(),
		}
		if err := c.publisher.Publish(ctx, domain.RealizedVolCalculatedEventType, cmd.Symbol, event); err != nil {
			logger.Warn(ctx, "failed to publish realized vol event", "symbol", cmd.Symbol, "error", err)
		}
	}
	return report, nil
}

// recordPricingError 计数并尽力发布 PricingError 事件, 不影响主错误返回
func (c *PricingCommandService) recordPricingError(ctx context.Context, symbol string, val valuation, cause error) {
	if c.metrics != nil {
		c.metrics.PricingErrorsTotal.Inc()
	}
	if c.publisher == nil {
		return
	}
	event := domain.PricingErrorEvent{
		Symbol:       symbol,
		PricingModel: val.model,
		OptionType:   val.contract.OptionType,
		StrikePrice:  val.contract.StrikePrice,
		Error:        cause.Error(),
		OccurredAt:   time.Now().Unix(),
		OccurredOn:   time.Now(),
	}
	if err := c.publisher.Publish(ctx, domain.PricingErrorEventType, symbol, event); err != nil {
		logger.Warn(ctx, "failed to publish pricing error event", "symbol", symbol, "error", err)
	}
}

// extractSymbols 提取批次内去重后的合约符号
func extractSymbols(contracts []PriceOptionCommand) []string {
	symbols := make([]string, 0, len(contracts))
	seen := make(map[string]bool)
	for _, contract := range contracts {
		if !seen[contract.Symbol] {
			symbols = append(symbols, contract.Symbol)
			seen[contract.Symbol] = true
		}
	}
	return symbols
}
