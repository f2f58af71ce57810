package pillars

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"solana-token-audit/internal/domain"
	"solana-token-audit/internal/solana"
)

// Supply pillar risks and penalties.
const (
	RiskHiddenSupply    = "Hidden Supply / Error"
	RiskWhaleDominance  = "CRITICAL: Single Whale Dominance"
	RiskHighConcentrate = "High Concentration"

	PenaltyHiddenSupply    = 50
	PenaltyWhaleDominance  = 40
	PenaltyHighConcentrate = 20

	WhaleRatio         = 0.5
	ConcentrationRatio = 0.2

	topHolderWindow = 10
)

// ErrZeroSupply is returned when the top holders hold nothing.
var ErrZeroSupply = errors.New("top holders sum to zero")

// AnalyzeSupply scores raw holder amounts, largest first.
// The concentration ratio is the largest holder's share of the top-10 sum,
// not of total supply.
func AnalyzeSupply(amounts []*big.Int) (domain.SupplyPillar, error) {
	result := domain.SupplyPillar{Pillar: domain.NewPillar()}

	if len(amounts) == 0 {
		result.AddRisk(RiskHiddenSupply, PenaltyHiddenSupply)
		return result, nil
	}

	top := amounts
	if len(top) > topHolderWindow {
		top = top[:topHolderWindow]
	}

	total := new(big.Int)
	for _, amt := range top {
		total.Add(total, amt)
	}
	if total.Sign() == 0 {
		return result, ErrZeroSupply
	}

	ratio, _ := new(big.Rat).SetFrac(amounts[0], total).Float64()

	switch {
	case ratio > WhaleRatio:
		result.AddRisk(RiskWhaleDominance, PenaltyWhaleDominance)
	case ratio > ConcentrationRatio:
		result.AddRisk(RiskHighConcentrate, PenaltyHighConcentrate)
	}

	result.Top10Percent = int(math.Round(ratio * 100))
	result.HoldersCount = len(amounts)
	return result, nil
}

// ParseAmounts decodes string-encoded raw balances.
func ParseAmounts(accounts []solana.TokenAccountBalance) ([]*big.Int, error) {
	amounts := make([]*big.Int, len(accounts))
	for i, acc := range accounts {
		amt, ok := new(big.Int).SetString(acc.Amount, 10)
		if !ok || amt.Sign() < 0 {
			return nil, fmt.Errorf("account %s: invalid amount %q", acc.Address, acc.Amount)
		}
		amounts[i] = amt
	}
	return amounts, nil
}

// SupplyFallback is the result when holder data could not be used.
func SupplyFallback() domain.SupplyPillar {
	result := domain.SupplyPillar{Pillar: domain.NewPillar()}
	result.Degraded = true
	return result
}

// Supply fetches the largest holders and scores their distribution.
func (a *Analyzer) Supply(ctx context.Context, address string) domain.SupplyPillar {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	accounts, err := a.rpc.GetTokenLargestAccounts(ctx, address)
	if err != nil && !isProviderRefusal(err) {
		a.degrade(NameSupply, address, err)
		return SupplyFallback()
	}

	// A refused call has no accounts and scores as hidden supply.
	amounts, err := ParseAmounts(accounts)
	if err != nil {
		a.degrade(NameSupply, address, err)
		return SupplyFallback()
	}

	result, err := AnalyzeSupply(amounts)
	if err != nil {
		a.degrade(NameSupply, address, err)
		return SupplyFallback()
	}
	return result
}
