package pillars

import (
	"context"

	"solana-token-audit/internal/domain"
	"solana-token-audit/internal/market"
)

// Market pillar risks and penalties.
const (
	RiskNotTrading       = "Token not trading"
	RiskCrash            = "CRASH DETECTED (-50% in 1h)"
	RiskLowLiquidity     = "Low Liquidity (<$1k)"
	RiskSuspiciousVolume = "Suspicious Volume (Wash Trading)"

	PenaltyNotTrading       = 50
	PenaltyCrash            = 100 // enough on its own to zero the score
	PenaltyLowLiquidity     = 30
	PenaltySuspiciousVolume = 20

	CrashChangePct        = -50.0
	MinLiquidityUSD       = 1000.0
	WashTradingVolumeMult = 2.0
)

// AnalyzeMarket scores a market snapshot. Nil means the token is not trading.
// Checks are additive.
func AnalyzeMarket(attrs *market.TokenAttributes) domain.MarketPillar {
	result := domain.MarketPillar{Pillar: domain.NewPillar()}

	if attrs == nil {
		result.Status = domain.MarketStatusDead
		result.Price = "0"
		result.AddRisk(RiskNotTrading, PenaltyNotTrading)
		return result
	}

	result.Status = domain.MarketStatusTrading
	result.Price = attrs.PriceUSD
	result.Volume = attrs.Volume24hUSD
	result.Change = attrs.Change1hPct
	result.Liquidity = attrs.ReserveUSD

	if attrs.Change1hPct < CrashChangePct {
		result.AddRisk(RiskCrash, PenaltyCrash)
	}

	if attrs.ReserveUSD < MinLiquidityUSD {
		result.AddRisk(RiskLowLiquidity, PenaltyLowLiquidity)
	}

	if attrs.ReserveUSD > 0 && attrs.Volume24hUSD/attrs.ReserveUSD > WashTradingVolumeMult {
		result.AddRisk(RiskSuspiciousVolume, PenaltySuspiciousVolume)
	}

	return result
}

// MarketFallback is the result when market data could not be fetched.
func MarketFallback() domain.MarketPillar {
	result := domain.MarketPillar{Pillar: domain.NewPillar()}
	result.Status = domain.MarketStatusUnknown
	result.Degraded = true
	return result
}

// Market fetches the market snapshot and scores it.
func (a *Analyzer) Market(ctx context.Context, address string) domain.MarketPillar {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	attrs, err := a.market.GetToken(ctx, address)
	if err != nil {
		a.degrade(NameMarket, address, err)
		return MarketFallback()
	}
	return AnalyzeMarket(attrs)
}
