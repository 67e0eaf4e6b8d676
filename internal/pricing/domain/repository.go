package domain

import "context"

// PricingRepository 定价结果仓储接口。
// 未找到记录时返回 (nil, nil)。
type PricingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	SavePricingResult(ctx context.Context, result *PricingResult) error
	GetLatestPricingResult(ctx context.Context, symbol string, model PricingModelType) (*PricingResult, error)
	GetPricingResultHistory(ctx context.Context, symbol string, limit int) ([]*PricingResult, error)
	SaveImpliedVolResult(ctx context.Context, result *ImpliedVolResult) error
	GetImpliedVolHistory(ctx context.Context, symbol string, limit int) ([]*ImpliedVolResult, error)
}

// PricingCache 最新定价结果缓存接口。
// 未命中时返回 (nil, nil)。
type PricingCache interface {
	SetLatest(ctx context.Context, result *PricingResult) error
	GetLatest(ctx context.Context, symbol string, model PricingModelType) (*PricingResult, error)
	InvalidateSymbol(ctx context.Context, symbol string) error
}
