package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionpricing/internal/contracts/domain"
	pricingapp "github.com/wyfcoding/optionpricing/internal/pricing/application"
	pricingdomain "github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// RegisterContractCommand 合约注册命令
type RegisterContractCommand struct {
	Symbol        string
	OptionType    string
	Underlying    string
	Settlement    string
	ExerciseStyle string
	StrikePrice   float64
	ExpiryDate    time.Time
}

// PriceBySymbolCommand 按符号定价时的市场参数
type PriceBySymbolCommand struct {
	PricingModel    string
	Steps           int
	UnderlyingPrice float64
	Volatility      float64
	RiskFreeRate    float64
	DividendYield   float64
}

// ContractAppService 合约参考数据服务。
// 按符号定价时装配合约条款与市场参数, 委托给定价上下文。
type ContractAppService struct {
	repo    domain.ContractRepository
	pricing *pricingapp.PricingCommandService
	logger  *slog.Logger
}

// NewContractAppService 创建合约服务
func NewContractAppService(repo domain.ContractRepository, pricing *pricingapp.PricingCommandService, logger *slog.Logger) *ContractAppService {
	return &ContractAppService{
		repo:    repo,
		pricing: pricing,
		logger:  logger,
	}
}

// Register 注册新合约, 词汇字段归一化为定价上下文的规范取值
func (s *ContractAppService) Register(ctx context.Context, cmd RegisterContractCommand) (*domain.Contract, error) {
	optionType, err := pricingdomain.ParseOptionType(cmd.OptionType)
	if err != nil {
		return nil, fmt.Errorf("option type %q: %w", cmd.OptionType, err)
	}
	underlying, err := pricingdomain.ParseUnderlyingType(cmd.Underlying)
	if err != nil {
		return nil, fmt.Errorf("underlying %q: %w", cmd.Underlying, err)
	}
	var settlement pricingdomain.SettlementStyle
	if cmd.Settlement != "" {
		settlement, err = pricingdomain.ParseSettlementStyle(cmd.Settlement)
		if err != nil {
			return nil, fmt.Errorf("settlement %q: %w", cmd.Settlement, err)
		}
	}
	if underlying == pricingdomain.UnderlyingFuture && settlement == "" {
		return nil, fmt.Errorf("settlement is required for future underlyings: %w", pricingdomain.ErrInvalidSettlementStyle)
	}
	style, err := pricingdomain.ParseExerciseStyle(cmd.ExerciseStyle)
	if err != nil {
		return nil, fmt.Errorf("exercise style %q: %w", cmd.ExerciseStyle, err)
	}
	if !cmd.ExpiryDate.After(time.Now()) {
		return nil, domain.ErrExpiryInPast
	}

	existing, err := s.repo.GetBySymbol(ctx, cmd.Symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrContractExists
	}

	contract := &domain.Contract{
		Symbol:        cmd.Symbol,
		OptionType:    string(optionType),
		Underlying:    string(underlying),
		Settlement:    string(settlement),
		ExerciseStyle: string(style),
		StrikePrice:   decimal.NewFromFloat(cmd.StrikePrice),
		ExpiryDate:    cmd.ExpiryDate,
		Status:        domain.StatusActive,
	}
	if err := s.repo.Save(ctx, contract); err != nil {
		return nil, fmt.Errorf("save contract: %w", err)
	}

	s.logger.InfoContext(ctx, "contract registered", "symbol", contract.Symbol, "expiry", contract.ExpiryDate)
	return contract, nil
}

// Get 按符号查询合约
func (s *ContractAppService) Get(ctx context.Context, symbol string) (*domain.Contract, error) {
	contract, err := s.repo.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrContractNotFound
	}
	return contract, nil
}

// ListActive 查询活跃合约, underlying 为空时不过滤
func (s *ContractAppService) ListActive(ctx context.Context, underlying string, limit int) ([]*domain.Contract, error) {
	return s.repo.ListActive(ctx, underlying, limit)
}

// Expire 手动标记合约过期
func (s *ContractAppService) Expire(ctx context.Context, symbol string) (*domain.Contract, error) {
	contract, err := s.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := contract.Expire(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, contract); err != nil {
		return nil, fmt.Errorf("save contract: %w", err)
	}
	s.logger.InfoContext(ctx, "contract expired", "symbol", symbol)
	return contract, nil
}

// ExpireDue 批量标记已到期合约, 由后台定时任务驱动
func (s *ContractAppService) ExpireDue(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireDue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "contracts auto-expired", "count", count)
	}
	return count, nil
}

// PriceBySymbol 按已注册合约的条款定价, 剩余期限按当前时钟从到期日推导。
// 模型缺省按行权方式选择: 欧式用 Black-Scholes, 美式用二叉树。
func (s *ContractAppService) PriceBySymbol(ctx context.Context, symbol string, cmd PriceBySymbolCommand) (*pricingdomain.PricingResult, error) {
	contract, err := s.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if contract.Status != domain.StatusActive || contract.IsExpired(now) {
		return nil, domain.ErrContractExpired
	}

	model := cmd.PricingModel
	if model == "" {
		model = string(pricingdomain.PricingModelBlackScholes)
		if contract.ExerciseStyle == string(pricingdomain.ExerciseAmerican) {
			model = string(pricingdomain.PricingModelBinomial)
		}
	}

	strike, _ := contract.StrikePrice.Float64()
	return s.pricing.PriceOption(ctx, pricingapp.PriceOptionCommand{
		Symbol:          contract.Symbol,
		PricingModel:    model,
		OptionType:      contract.OptionType,
		Underlying:      contract.Underlying,
		Settlement:      contract.Settlement,
		ExerciseStyle:   contract.ExerciseStyle,
		Steps:           cmd.Steps,
		UnderlyingPrice: cmd.UnderlyingPrice,
		StrikePrice:     strike,
		TimeToExpiry:    contract.TimeToExpiry(now),
		Volatility:      cmd.Volatility,
		RiskFreeRate:    cmd.RiskFreeRate,
		DividendYield:   cmd.DividendYield,
	})
}
