package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/contextx"
	"gorm.io/gorm"
)

type pricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建并返回一个新的 pricingRepository 实例。
func NewPricingRepository(db *gorm.DB) domain.PricingRepository {
	return &pricingRepository{db: db}
}

// WithTx 在单个数据库事务内执行 fn, 事务句柄通过 context 传递给嵌套的仓储调用。
func (r *pricingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		return fn(txCtx)
	})
}

// --- PricingResult ---

func (r *pricingRepository) SavePricingResult(ctx context.Context, res *domain.PricingResult) error {
	model := toPricingResultModel(res)
	if model == nil {
		return nil
	}
	db := r.getDB(ctx).WithContext(ctx)
	if model.ID == 0 {
		if err := db.Create(model).Error; err != nil {
			return err
		}
		res.ID = model.ID
		res.CreatedAt = model.CreatedAt
		res.UpdatedAt = model.UpdatedAt
		return nil
	}
	return db.Model(&PricingResultModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"symbol":           model.Symbol,
			"pricing_model":    model.PricingModel,
			"option_type":      model.OptionType,
			"underlying":       model.Underlying,
			"settlement":       model.Settlement,
			"exercise_style":   model.ExerciseStyle,
			"steps":            model.Steps,
			"underlying_price": model.UnderlyingPrice,
			"strike_price":     model.StrikePrice,
			"option_price":     model.OptionPrice,
			"delta":            model.Delta,
			"gamma":            model.Gamma,
			"gammap":           model.GammaP,
			"theta":            model.Theta,
			"vega":             model.Vega,
			"rho":              model.Rho,
			"volatility":       model.Volatility,
			"risk_free_rate":   model.RiskFreeRate,
			"dividend_yield":   model.DividendYield,
			"time_to_expiry":   model.TimeToExpiry,
			"calculated_at":    model.CalculatedAt,
			"updated_at":       time.Now(),
		}).Error
}

func (r *pricingRepository) GetLatestPricingResult(ctx context.Context, symbol string, model domain.PricingModelType) (*domain.PricingResult, error) {
	var m PricingResultModel
	if err := r.getDB(ctx).WithContext(ctx).
		Where("symbol = ? AND pricing_model = ?", symbol, string(model)).
		Order("calculated_at desc").
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toPricingResult(&m), nil
}

func (r *pricingRepository) GetPricingResultHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	var models []PricingResultModel
	if err := r.getDB(ctx).WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.PricingResult, len(models))
	for i := range models {
		res[i] = toPricingResult(&models[i])
	}
	return res, nil
}

// --- ImpliedVolResult ---

func (r *pricingRepository) SaveImpliedVolResult(ctx context.Context, res *domain.ImpliedVolResult) error {
	model := toImpliedVolResultModel(res)
	if model == nil {
		return nil
	}
	db := r.getDB(ctx).WithContext(ctx)
	if err := db.Create(model).Error; err != nil {
		return err
	}
	res.ID = model.ID
	res.CreatedAt = model.CreatedAt
	return nil
}

func (r *pricingRepository) GetImpliedVolHistory(ctx context.Context, symbol string, limit int) ([]*domain.ImpliedVolResult, error) {
	var models []ImpliedVolResultModel
	if err := r.getDB(ctx).WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.ImpliedVolResult, len(models))
	for i := range models {
		res[i] = toImpliedVolResult(&models[i])
	}
	return res, nil
}

// getDB 优先使用 context 中携带的事务句柄
func (r *pricingRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}
