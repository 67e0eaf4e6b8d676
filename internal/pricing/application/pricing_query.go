package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// 历史查询条数限制
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// PricingQueryService 处理定价相关的查询操作。
// 唯一的写路径是最新结果查询未命中缓存后的回填。
type PricingQueryService struct {
	repo    domain.PricingRepository
	cache   domain.PricingCache
	engines engines
	metrics *metrics.Metrics
	cfg     config.PricingConfig
}

// NewPricingQueryService 创建查询服务; cache 与 metrics 允许为 nil。
func NewPricingQueryService(repo domain.PricingRepository, cache domain.PricingCache, m *metrics.Metrics, cfg config.PricingConfig) *PricingQueryService {
	return &PricingQueryService{
		repo:    repo,
		cache:   cache,
		engines: newEngines(),
		metrics: m,
		cfg:     cfg,
	}
}

// GetLatestResult 查询某合约在指定模型下的最新定价结果,
// 缓存优先, 未命中回源 MySQL 并回填。无记录时返回 (nil, nil)。
func (q *PricingQueryService) GetLatestResult(ctx context.Context, symbol, model string) (*domain.PricingResult, error) {
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	name := model
	if name == "" {
		name = q.cfg.DefaultModel
	}
	modelType, err := domain.ParsePricingModel(name)
	if err != nil {
		return nil, fmt.Errorf("pricing model %q: %w", name, err)
	}

	if q.cache != nil {
		cached, err := q.cache.GetLatest(ctx, symbol, modelType)
		if err != nil {
			logger.Warn(ctx, "latest pricing cache lookup failed", "symbol", symbol, "error", err)
		} else if cached != nil {
			if q.metrics != nil {
				q.metrics.CacheHitsTotal.Inc()
			}
			return cached, nil
		}
		if q.metrics != nil {
			q.metrics.CacheMissesTotal.Inc()
		}
	}

	result, err := q.repo.GetLatestPricingResult(ctx, symbol, modelType)
	if err != nil || result == nil {
		return result, err
	}
	if q.cache != nil {
		if err := q.cache.SetLatest(ctx, result); err != nil {
			logger.Warn(ctx, "failed to refill latest pricing cache", "symbol", symbol, "error", err)
		}
	}
	return result, nil
}

// GetResultHistory 查询定价历史, 按计算时间倒序
func (q *PricingQueryService) GetResultHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	return q.repo.GetPricingResultHistory(ctx, symbol, normalizeLimit(limit))
}

// GetImpliedVolHistory 查询隐含波动率求解历史, 按计算时间倒序
func (q *PricingQueryService) GetImpliedVolHistory(ctx context.Context, symbol string, limit int) ([]*domain.ImpliedVolResult, error) {
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	return q.repo.GetImpliedVolHistory(ctx, symbol, normalizeLimit(limit))
}

// ComputeGreeks 即时估值, 不落库不发事件
func (q *PricingQueryService) ComputeGreeks(ctx context.Context, cmd PriceOptionCommand) (*domain.OptionGreeks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, err := newValuation(cmd, q.cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	greeks, err := q.engines.greeks(val)
	if err != nil {
		if q.metrics != nil {
			q.metrics.PricingErrorsTotal.Inc()
		}
		return nil, err
	}
	observeValuation(q.metrics, val, time.Since(start))
	return &greeks, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
