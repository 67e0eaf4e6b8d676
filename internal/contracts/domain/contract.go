// Package domain 期权合约参考数据的领域模型。
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrContractExists   = errors.New("contract already registered")
	ErrContractNotFound = errors.New("contract not found")
	ErrContractExpired  = errors.New("contract already expired")
	ErrExpiryInPast     = errors.New("expiry date in the past")
)

// ContractStatus 合约状态
type ContractStatus string

const (
	StatusActive  ContractStatus = "ACTIVE"
	StatusExpired ContractStatus = "EXPIRED"
)

// Contract 期权合约参考数据。
// 词汇字段在注册时归一化为定价上下文的规范取值。
type Contract struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_at"`
	Symbol        string          `gorm:"column:symbol;type:varchar(32);uniqueIndex;not null" json:"symbol"`
	OptionType    string          `gorm:"column:option_type;type:varchar(8);not null" json:"option_type"`
	Underlying    string          `gorm:"column:underlying;type:varchar(16);not null" json:"underlying"`
	Settlement    string          `gorm:"column:settlement;type:varchar(32)" json:"settlement,omitempty"`
	ExerciseStyle string          `gorm:"column:exercise_style;type:varchar(16);not null" json:"exercise_style"`
	StrikePrice   decimal.Decimal `gorm:"column:strike_price;type:decimal(32,18);not null" json:"strike_price"`
	ExpiryDate    time.Time       `gorm:"column:expiry_date;index;not null" json:"expiry_date"`
	Status        ContractStatus  `gorm:"column:status;type:varchar(16);not null;default:'ACTIVE'" json:"status"`
}

func (Contract) TableName() string { return "option_contracts" }

// IsExpired 按给定时钟判断是否已到期
func (c *Contract) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiryDate)
}

// TimeToExpiry 距到期的年化剩余期限, 已到期返回 0
func (c *Contract) TimeToExpiry(now time.Time) float64 {
	if c.IsExpired(now) {
		return 0
	}
	return c.ExpiryDate.Sub(now).Hours() / 24 / 365
}

// IntrinsicValue 以给定现价计算内在价值
func (c *Contract) IntrinsicValue(spot decimal.Decimal) decimal.Decimal {
	diff := spot.Sub(c.StrikePrice)
	if c.OptionType == "PUT" {
		diff = c.StrikePrice.Sub(spot)
	}
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// Expire 标记过期, 仅 ACTIVE 状态可流转
func (c *Contract) Expire() error {
	if c.Status != StatusActive {
		return ErrContractExpired
	}
	c.Status = StatusExpired
	return nil
}

// ContractRepository 合约仓储。查询未命中返回 (nil, nil)。
type ContractRepository interface {
	Save(ctx context.Context, contract *Contract) error
	GetBySymbol(ctx context.Context, symbol string) (*Contract, error)
	ListActive(ctx context.Context, underlying string, limit int) ([]*Contract, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
