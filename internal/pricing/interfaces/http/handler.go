package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/response"
)

// PricingHandler 定价相关 HTTP 请求的处理器
type PricingHandler struct {
	cmd   *application.PricingCommandService
	query *application.PricingQueryService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(cmd *application.PricingCommandService, query *application.PricingQueryService) *PricingHandler {
	return &PricingHandler{cmd: cmd, query: query}
}

// RegisterRoutes 将处理器方法绑定到 Gin 路由引擎
func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/greeks", h.ComputeGreeks)
		api.POST("/option/implied-vol", h.SolveImpliedVol)
		api.POST("/option/batch", h.BatchPriceOptions)
		api.POST("/volatility/realized", h.RealizedVolatility)
		api.GET("/results/:symbol/latest", h.GetLatestResult)
		api.GET("/results/:symbol/history", h.GetResultHistory)
		api.GET("/implied-vol/:symbol/history", h.GetImpliedVolHistory)
	}
}

// PricingRequest 定价请求。
// time_to_expiry 为年化剩余期限, 与 expiry_date 二选一且优先生效;
// 两者都缺省时按已到期合约取内在价值。
type PricingRequest struct {
	Symbol          string    `json:"symbol" binding:"required"`
	PricingModel    string    `json:"pricing_model"`
	OptionType      string    `json:"option_type" binding:"required"`
	Underlying      string    `json:"underlying"`
	Settlement      string    `json:"settlement"`
	ExerciseStyle   string    `json:"exercise_style"`
	Steps           int       `json:"steps" binding:"omitempty,gte=2"`
	UnderlyingPrice float64   `json:"underlying_price" binding:"required,gt=0"`
	StrikePrice     float64   `json:"strike_price" binding:"required,gt=0"`
	TimeToExpiry    float64   `json:"time_to_expiry" binding:"omitempty,gte=0"`
	ExpiryDate      time.Time `json:"expiry_date"`
	Volatility      float64   `json:"volatility" binding:"required,gt=0"`
	RiskFreeRate    float64   `json:"risk_free_rate"`
	DividendYield   float64   `json:"dividend_yield" binding:"omitempty,gte=0"`
}

func (r PricingRequest) toCommand() application.PriceOptionCommand {
	var expiryMillis int64
	if !r.ExpiryDate.IsZero() {
		expiryMillis = r.ExpiryDate.UnixMilli()
	}
	return application.PriceOptionCommand{
		Symbol:          r.Symbol,
		PricingModel:    r.PricingModel,
		OptionType:      r.OptionType,
		Underlying:      r.Underlying,
		Settlement:      r.Settlement,
		ExerciseStyle:   r.ExerciseStyle,
		Steps:           r.Steps,
		UnderlyingPrice: r.UnderlyingPrice,
		StrikePrice:     r.StrikePrice,
		TimeToExpiry:    r.TimeToExpiry,
		ExpiryDate:      expiryMillis,
		Volatility:      r.Volatility,
		RiskFreeRate:    r.RiskFreeRate,
		DividendYield:   r.DividendYield,
	}
}

// ImpliedVolRequest 隐含波动率求解请求
type ImpliedVolRequest struct {
	Symbol          string    `json:"symbol" binding:"required"`
	PricingModel    string    `json:"pricing_model"`
	OptionType      string    `json:"option_type" binding:"required"`
	Underlying      string    `json:"underlying"`
	Settlement      string    `json:"settlement"`
	ExerciseStyle   string    `json:"exercise_style"`
	Steps           int       `json:"steps" binding:"omitempty,gte=2"`
	UnderlyingPrice float64   `json:"underlying_price" binding:"required,gt=0"`
	StrikePrice     float64   `json:"strike_price" binding:"required,gt=0"`
	TimeToExpiry    float64   `json:"time_to_expiry" binding:"omitempty,gte=0"`
	ExpiryDate      time.Time `json:"expiry_date"`
	RiskFreeRate    float64   `json:"risk_free_rate"`
	DividendYield   float64   `json:"dividend_yield" binding:"omitempty,gte=0"`
	TargetPremium   float64   `json:"target_premium" binding:"required,gt=0"`
}

func (r ImpliedVolRequest) toCommand() application.SolveImpliedVolCommand {
	var expiryMillis int64
	if !r.ExpiryDate.IsZero() {
		expiryMillis = r.ExpiryDate.UnixMilli()
	}
	return application.SolveImpliedVolCommand{
		Symbol:          r.Symbol,
		PricingModel:    r.PricingModel,
		OptionType:      r.OptionType,
		Underlying:      r.Underlying,
		Settlement:      r.Settlement,
		ExerciseStyle:   r.ExerciseStyle,
		Steps:           r.Steps,
		UnderlyingPrice: r.UnderlyingPrice,
		StrikePrice:     r.StrikePrice,
		TimeToExpiry:    r.TimeToExpiry,
		ExpiryDate:      expiryMillis,
		RiskFreeRate:    r.RiskFreeRate,
		DividendYield:   r.DividendYield,
		TargetPremium:   r.TargetPremium,
	}
}

// BatchPricingRequest 批量定价请求
type BatchPricingRequest struct {
	BatchID   string           `json:"batch_id"`
	Contracts []PricingRequest `json:"contracts" binding:"required,min=1,max=500,dive"`
}

// RealizedVolRequest 历史波动率计算请求
type RealizedVolRequest struct {
	Symbol  string    `json:"symbol" binding:"required"`
	Closes  []float64 `json:"closes" binding:"required,min=3"`
	Periods float64   `json:"periods" binding:"omitempty,gt=0"`
}

// PriceOption 估值并持久化
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.cmd.PriceOption(c.Request.Context(), req.toCommand())
	if err != nil {
		h.writeError(c, "price option", err)
		return
	}
	response.Success(c, result)
}

// ComputeGreeks 即时估值, 不落库
func (h *PricingHandler) ComputeGreeks(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	greeks, err := h.query.ComputeGreeks(c.Request.Context(), req.toCommand())
	if err != nil {
		h.writeError(c, "compute greeks", err)
		return
	}
	response.Success(c, gin.H{
		"symbol":           req.Symbol,
		"greeks":           greeks,
		"calculation_time": time.Now(),
	})
}

// SolveImpliedVol 由目标权利金反解隐含波动率
func (h *PricingHandler) SolveImpliedVol(c *gin.Context) {
	var req ImpliedVolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.cmd.SolveImpliedVol(c.Request.Context(), req.toCommand())
	if err != nil {
		h.writeError(c, "solve implied vol", err)
		return
	}
	response.Success(c, result)
}

// BatchPriceOptions 批量估值
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var req BatchPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	contracts := make([]application.PriceOptionCommand, len(req.Contracts))
	for i, contract := range req.Contracts {
		contracts[i] = contract.toCommand()
	}
	result, err := h.cmd.BatchPriceOptions(c.Request.Context(), application.BatchPriceOptionsCommand{
		BatchID:   req.BatchID,
		Contracts: contracts,
	})
	if err != nil {
		h.writeError(c, "batch price options", err)
		return
	}
	response.Success(c, result)
}

// RealizedVolatility 由收盘价序列计算年化历史波动率
func (h *PricingHandler) RealizedVolatility(c *gin.Context) {
	var req RealizedVolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.cmd.ComputeRealizedVol(c.Request.Context(), application.ComputeRealizedVolCommand{
		Symbol:  req.Symbol,
		Closes:  req.Closes,
		Periods: req.Periods,
	})
	if err != nil {
		h.writeError(c, "realized volatility", err)
		return
	}
	response.Success(c, report)
}

// GetLatestResult 查询最新定价结果, model 查询参数缺省取服务默认模型
func (h *PricingHandler) GetLatestResult(c *gin.Context) {
	symbol := c.Param("symbol")
	result, err := h.query.GetLatestResult(c.Request.Context(), symbol, c.Query("model"))
	if err != nil {
		h.writeError(c, "get latest result", err)
		return
	}
	if result == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "no pricing result for symbol", symbol)
		return
	}
	response.Success(c, result)
}

// GetResultHistory 查询定价历史
func (h *PricingHandler) GetResultHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, err := parseLimit(c)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	results, err := h.query.GetResultHistory(c.Request.Context(), symbol, limit)
	if err != nil {
		h.writeError(c, "get result history", err)
		return
	}
	response.Success(c, gin.H{
		"symbol":  symbol,
		"results": results,
		"count":   len(results),
	})
}

// GetImpliedVolHistory 查询隐含波动率求解历史
func (h *PricingHandler) GetImpliedVolHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, err := parseLimit(c)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	results, err := h.query.GetImpliedVolHistory(c.Request.Context(), symbol, limit)
	if err != nil {
		h.writeError(c, "get implied vol history", err)
		return
	}
	response.Success(c, gin.H{
		"symbol":  symbol,
		"results": results,
		"count":   len(results),
	})
}

// writeError 按错误类别映射状态码: 调用方参数错误 400, 求解不收敛 422, 其余 500
func (h *PricingHandler) writeError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, domain.ErrNoConvergence):
		response.ErrorWithStatus(c, http.StatusUnprocessableEntity, err.Error(), "")
	case isCallerFault(err):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	default:
		logger.Error(c.Request.Context(), "pricing request failed", "operation", operation, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}

func isCallerFault(err error) bool {
	return errors.Is(err, domain.ErrInvalidOptionType) ||
		errors.Is(err, domain.ErrInvalidUnderlyingType) ||
		errors.Is(err, domain.ErrInvalidSettlementStyle) ||
		errors.Is(err, domain.ErrInvalidExerciseStyle) ||
		errors.Is(err, domain.ErrInvalidStepCount) ||
		errors.Is(err, domain.ErrInvalidGreek) ||
		errors.Is(err, domain.ErrInvalidPricingModel) ||
		errors.Is(err, domain.ErrInsufficientPrices)
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("limit", "0")
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	return limit, nil
}
