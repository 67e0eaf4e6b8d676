package domain

// CostOfCarry 持有成本参数, 每次估值时从合约重新推导
type CostOfCarry struct {
	B             float64 // 持有成本率
	EffectiveRate float64 // 有效无风险利率
}

// ResolveCarry 根据标的类型与结算方式推导持有成本:
// 股票 b=r-q; 期货 b=0; 期货式结算额外令 r_eff=0 (逐日盯市已转移价值, 无需贴现);
// Matba Rofex 式结算保留 r_eff=r, 仅用于树内逐日计息。
func ResolveCarry(c OptionContract) (CostOfCarry, error) {
	switch c.Underlying {
	case UnderlyingEquity:
		return CostOfCarry{B: c.RiskFreeRate - c.DividendYield, EffectiveRate: c.RiskFreeRate}, nil
	case UnderlyingFuture:
		switch c.Settlement {
		case SettlementFuturesStyle:
			return CostOfCarry{B: 0, EffectiveRate: 0}, nil
		case SettlementEquityStyle, SettlementMatbaRofexStyle:
			return CostOfCarry{B: 0, EffectiveRate: c.RiskFreeRate}, nil
		default:
			return CostOfCarry{}, ErrInvalidSettlementStyle
		}
	default:
		return CostOfCarry{}, ErrInvalidUnderlyingType
	}
}

// resolvePremiumCarry 为无逐日计息能力的闭式模型推导持有成本,
// 拒绝 Matba Rofex 式结算。
func resolvePremiumCarry(c OptionContract) (CostOfCarry, error) {
	if c.Underlying == UnderlyingFuture && c.Settlement == SettlementMatbaRofexStyle {
		return CostOfCarry{}, ErrInvalidSettlementStyle
	}
	return ResolveCarry(c)
}
