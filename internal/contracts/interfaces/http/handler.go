package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/optionpricing/internal/contracts/application"
	"github.com/wyfcoding/optionpricing/internal/contracts/domain"
	pricingdomain "github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/response"
)

// ContractHandler 合约参考数据的 HTTP 处理器
type ContractHandler struct {
	service *application.ContractAppService
}

// NewContractHandler 创建 HTTP 处理器实例
func NewContractHandler(service *application.ContractAppService) *ContractHandler {
	return &ContractHandler{service: service}
}

// RegisterRoutes 将处理器方法绑定到 Gin 路由引擎
func (h *ContractHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/contracts")
	{
		api.POST("", h.Register)
		api.GET("", h.ListActive)
		api.GET("/:symbol", h.Get)
		api.POST("/:symbol/expire", h.Expire)
		api.POST("/:symbol/price", h.PriceBySymbol)
	}
}

// RegisterContractRequest 合约注册请求
type RegisterContractRequest struct {
	Symbol        string    `json:"symbol" binding:"required"`
	OptionType    string    `json:"option_type" binding:"required"`
	Underlying    string    `json:"underlying" binding:"required"`
	Settlement    string    `json:"settlement"`
	ExerciseStyle string    `json:"exercise_style" binding:"required"`
	StrikePrice   float64   `json:"strike_price" binding:"required,gt=0"`
	ExpiryDate    time.Time `json:"expiry_date" binding:"required"`
}

// PriceBySymbolRequest 按符号定价请求, 合约条款由注册信息提供
type PriceBySymbolRequest struct {
	PricingModel    string  `json:"pricing_model"`
	Steps           int     `json:"steps" binding:"omitempty,gte=2"`
	UnderlyingPrice float64 `json:"underlying_price" binding:"required,gt=0"`
	Volatility      float64 `json:"volatility" binding:"required,gt=0"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	DividendYield   float64 `json:"dividend_yield" binding:"omitempty,gte=0"`
}

// Register 注册新合约
func (h *ContractHandler) Register(c *gin.Context) {
	var req RegisterContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	contract, err := h.service.Register(c.Request.Context(), application.RegisterContractCommand{
		Symbol:        req.Symbol,
		OptionType:    req.OptionType,
		Underlying:    req.Underlying,
		Settlement:    req.Settlement,
		ExerciseStyle: req.ExerciseStyle,
		StrikePrice:   req.StrikePrice,
		ExpiryDate:    req.ExpiryDate,
	})
	if err != nil {
		h.writeError(c, "register contract", err)
		return
	}
	response.Success(c, contract)
}

// Get 按符号查询合约
func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.service.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.writeError(c, "get contract", err)
		return
	}
	response.Success(c, contract)
}

// ListActive 查询活跃合约
func (h *ContractHandler) ListActive(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "limit must be an integer", "")
		return
	}

	contracts, err := h.service.ListActive(c.Request.Context(), c.Query("underlying"), limit)
	if err != nil {
		h.writeError(c, "list contracts", err)
		return
	}
	response.Success(c, gin.H{
		"contracts": contracts,
		"count":     len(contracts),
	})
}

// Expire 手动标记合约过期
func (h *ContractHandler) Expire(c *gin.Context) {
	contract, err := h.service.Expire(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.writeError(c, "expire contract", err)
		return
	}
	response.Success(c, contract)
}

// PriceBySymbol 按已注册合约定价
func (h *ContractHandler) PriceBySymbol(c *gin.Context) {
	var req PriceBySymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.service.PriceBySymbol(c.Request.Context(), c.Param("symbol"), application.PriceBySymbolCommand{
		PricingModel:    req.PricingModel,
		Steps:           req.Steps,
		UnderlyingPrice: req.UnderlyingPrice,
		Volatility:      req.Volatility,
		RiskFreeRate:    req.RiskFreeRate,
		DividendYield:   req.DividendYield,
	})
	if err != nil {
		h.writeError(c, "price by symbol", err)
		return
	}
	response.Success(c, result)
}

// writeError 按错误类别映射状态码
func (h *ContractHandler) writeError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, domain.ErrContractNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrContractExists), errors.Is(err, domain.ErrContractExpired):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	case errors.Is(err, domain.ErrExpiryInPast), isVocabularyFault(err):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	default:
		logger.Error(c.Request.Context(), "contract request failed", "operation", operation, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}

func isVocabularyFault(err error) bool {
	return errors.Is(err, pricingdomain.ErrInvalidOptionType) ||
		errors.Is(err, pricingdomain.ErrInvalidUnderlyingType) ||
		errors.Is(err, pricingdomain.ErrInvalidSettlementStyle) ||
		errors.Is(err, pricingdomain.ErrInvalidExerciseStyle) ||
		errors.Is(err, pricingdomain.ErrInvalidStepCount) ||
		errors.Is(err, pricingdomain.ErrInvalidPricingModel)
}
