package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/cache"
)

const latestKeyPrefix = "pricing:latest"

// PricingCache 最新定价结果的 Redis 缓存, 实现 domain.PricingCache。
// 键按合约符号与定价模型区分, 命中后直接反序列化为领域实体。
type PricingCache struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewPricingCache 创建缓存; ttl 非正时取 30 秒
func NewPricingCache(c *cache.RedisCache, ttl time.Duration) *PricingCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PricingCache{cache: c, ttl: ttl}
}

// SetLatest 写入某合约在指定模型下的最新结果
func (pc *PricingCache) SetLatest(ctx context.Context, result *domain.PricingResult) error {
	if result == nil {
		return nil
	}
	return pc.cache.SetJSON(ctx, latestKey(result.Symbol, result.PricingModel), result, pc.ttl)
}

// GetLatest 读取最新结果, 未命中返回 (nil, nil)
func (pc *PricingCache) GetLatest(ctx context.Context, symbol string, model domain.PricingModelType) (*domain.PricingResult, error) {
	val, err := pc.cache.Get(ctx, latestKey(symbol, model))
	if err != nil {
		return nil, err
	}
	if val == "" {
		return nil, nil
	}
	var result domain.PricingResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, fmt.Errorf("decode cached pricing result: %w", err)
	}
	return &result, nil
}

// InvalidateSymbol 清除某合约全部模型的缓存
func (pc *PricingCache) InvalidateSymbol(ctx context.Context, symbol string) error {
	return pc.cache.Delete(ctx,
		latestKey(symbol, domain.PricingModelBlackScholes),
		latestKey(symbol, domain.PricingModelBinomial),
		latestKey(symbol, domain.PricingModelBjerksundStensland),
	)
}

func latestKey(symbol string, model domain.PricingModelType) string {
	return fmt.Sprintf("%s:%s:%s", latestKeyPrefix, symbol, model)
}
