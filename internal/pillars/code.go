package pillars

import (
	"context"

	"solana-token-audit/internal/domain"
	"solana-token-audit/internal/solana"
)

// Code pillar risks and penalties.
const (
	RiskMutableMetadata  = "Mutable Metadata (Dev can change details)"
	RiskAuditUnavailable = "Audit data unavailable"

	PenaltyMutableMetadata = 10
)

// AnalyzeCode scores asset metadata. A nil asset carries no risks.
func AnalyzeCode(asset *solana.Asset) domain.CodePillar {
	result := domain.CodePillar{Pillar: domain.NewPillar()}
	if asset == nil {
		return result
	}

	if asset.Mutable {
		result.AddRisk(RiskMutableMetadata, PenaltyMutableMetadata)
	}

	// asset.Ownership (frozen/owner) is not scored: it is not a reliable
	// proxy for renounced mint/freeze authorities.

	return result
}

// CodeFallback is the result when metadata could not be fetched.
func CodeFallback() domain.CodePillar {
	result := domain.CodePillar{Pillar: domain.NewPillar()}
	result.Risks = append(result.Risks, RiskAuditUnavailable)
	result.Degraded = true
	return result
}

// Code fetches asset metadata and scores it.
func (a *Analyzer) Code(ctx context.Context, address string) domain.CodePillar {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	asset, err := a.rpc.GetAsset(ctx, address)
	if err != nil {
		if isProviderRefusal(err) {
			return AnalyzeCode(nil)
		}
		a.degrade(NameCode, address, err)
		return CodeFallback()
	}
	return AnalyzeCode(asset)
}
