package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/optionpricing/internal/contracts/domain"
	"gorm.io/gorm"
)

type contractRepository struct {
	db *gorm.DB
}

// NewContractRepository 创建合约仓储
func NewContractRepository(db *gorm.DB) domain.ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Save(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Save(contract).Error
}

func (r *contractRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Contract, error) {
	var contract domain.Contract
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&contract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) ListActive(ctx context.Context, underlying string, limit int) ([]*domain.Contract, error) {
	query := r.db.WithContext(ctx).Where("status = ?", domain.StatusActive)
	if underlying != "" {
		query = query.Where("underlying = ?", underlying)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var contracts []*domain.Contract
	if err := query.Order("expiry_date asc").Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

// ExpireDue 批量标记到期合约, 返回流转条数
func (r *contractRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Contract{}).
		Where("status = ? AND expiry_date <= ?", domain.StatusActive, now).
		Updates(map[string]any{"status": domain.StatusExpired, "updated_at": now})
	return result.RowsAffected, result.Error
}
