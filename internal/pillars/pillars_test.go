package pillars

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-audit/internal/domain"
	"solana-token-audit/internal/market"
	"solana-token-audit/internal/solana"
	"solana-token-audit/internal/solana/stub"
)

const testMint = "Mint1111111111111111111111111111111111111111"

type fakeMarket struct {
	attrs *market.TokenAttributes
	err   error
	delay time.Duration
}

func (f *fakeMarket) GetToken(ctx context.Context, _ string) (*market.TokenAttributes, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.attrs, f.err
}

func amounts(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func newTestAnalyzer(rpc solana.RPCClient, m MarketSource, degraded *[]string) *Analyzer {
	return NewAnalyzer(Options{
		RPC:     rpc,
		Market:  m,
		Timeout: 50 * time.Millisecond,
		Logger:  log.New(&bytes.Buffer{}, "", 0),
		OnDegrade: func(pillar string, _ error) {
			if degraded != nil {
				*degraded = append(*degraded, pillar)
			}
		},
	})
}

func TestAnalyzeCode(t *testing.T) {
	result := AnalyzeCode(&solana.Asset{Mutable: true})
	assert.Equal(t, 10, result.ScorePenalty)
	assert.Equal(t, []string{RiskMutableMetadata}, result.Risks)

	result = AnalyzeCode(&solana.Asset{Mutable: false})
	assert.Zero(t, result.ScorePenalty)
	assert.Empty(t, result.Risks)
	assert.NotNil(t, result.Risks)
}

func TestAnalyzeCode_OwnershipIsInert(t *testing.T) {
	frozen := AnalyzeCode(&solana.Asset{Ownership: solana.AssetOwnership{Frozen: true}})
	notFrozen := AnalyzeCode(&solana.Asset{Ownership: solana.AssetOwnership{Frozen: false, Owner: "x"}})
	assert.Equal(t, frozen, notFrozen)
}

func TestAnalyzeSupply(t *testing.T) {
	tests := []struct {
		name        string
		amounts     []*big.Int
		wantPenalty int
		wantRisk    string
		wantPercent int
	}{
		{"whale dominance", amounts(60, 20, 20), 40, RiskWhaleDominance, 60},
		{"exactly half is concentration", amounts(50, 25, 25), 20, RiskHighConcentrate, 50},
		{"high concentration", amounts(30, 30, 20, 20), 20, RiskHighConcentrate, 30},
		{"exactly 20 percent is fine", amounts(20, 20, 20, 20, 20), 0, "", 20},
		{"distributed", amounts(10, 10, 10, 10, 10, 10, 10, 10, 10, 10), 0, "", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AnalyzeSupply(tt.amounts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPenalty, result.ScorePenalty)
			assert.Equal(t, tt.wantPercent, result.Top10Percent)
			assert.Equal(t, len(tt.amounts), result.HoldersCount)
			if tt.wantRisk == "" {
				assert.Empty(t, result.Risks)
			} else {
				assert.Equal(t, []string{tt.wantRisk}, result.Risks)
			}
		})
	}
}

func TestAnalyzeSupply_OnlyTopTenCounted(t *testing.T) {
	// 11th..20th holders are ignored in the denominator.
	vals := []int64{30, 10, 10, 10, 10, 10, 10, 5, 3, 2, 1000, 1000}
	result, err := AnalyzeSupply(amounts(vals...))
	require.NoError(t, err)

	assert.Equal(t, 30, result.Top10Percent)
	assert.Equal(t, 20, result.ScorePenalty)
	assert.Equal(t, 12, result.HoldersCount)
}

func TestAnalyzeSupply_Rounding(t *testing.T) {
	// 2/3 = 66.67% rounds to 67.
	result, err := AnalyzeSupply(amounts(2, 1))
	require.NoError(t, err)
	assert.Equal(t, 67, result.Top10Percent)
}

func TestAnalyzeSupply_Empty(t *testing.T) {
	result, err := AnalyzeSupply(nil)
	require.NoError(t, err)
	assert.Equal(t, 50, result.ScorePenalty)
	assert.Equal(t, []string{RiskHiddenSupply}, result.Risks)
	assert.Zero(t, result.Top10Percent)
}

func TestAnalyzeSupply_ZeroTotal(t *testing.T) {
	_, err := AnalyzeSupply(amounts(0, 0))
	assert.True(t, errors.Is(err, ErrZeroSupply))
}

func TestAnalyzeSupply_LargeAmounts(t *testing.T) {
	huge, ok := new(big.Int).SetString("900000000000000000000000", 10)
	require.True(t, ok)
	small, _ := new(big.Int).SetString("100000000000000000000000", 10)

	result, err := AnalyzeSupply([]*big.Int{huge, small})
	require.NoError(t, err)
	assert.Equal(t, 90, result.Top10Percent)
	assert.Equal(t, 40, result.ScorePenalty)
}

func TestParseAmounts(t *testing.T) {
	got, err := ParseAmounts([]solana.TokenAccountBalance{{Amount: "60"}, {Amount: "40"}})
	require.NoError(t, err)
	assert.Equal(t, 0, got[0].Cmp(big.NewInt(60)))

	_, err = ParseAmounts([]solana.TokenAccountBalance{{Address: "a", Amount: "12.5"}})
	assert.Error(t, err)
}

func TestAnalyzeMarket(t *testing.T) {
	tests := []struct {
		name        string
		attrs       market.TokenAttributes
		wantPenalty int
		wantRisks   []string
	}{
		{
			name:        "healthy",
			attrs:       market.TokenAttributes{PriceUSD: "1.2", Volume24hUSD: 10000, Change1hPct: 3, ReserveUSD: 50000},
			wantPenalty: 0,
			wantRisks:   []string{},
		},
		{
			name:        "crash",
			attrs:       market.TokenAttributes{Change1hPct: -60, ReserveUSD: 50000, Volume24hUSD: 100},
			wantPenalty: 100,
			wantRisks:   []string{RiskCrash},
		},
		{
			name:        "exactly minus fifty is not a crash",
			attrs:       market.TokenAttributes{Change1hPct: -50, ReserveUSD: 50000},
			wantPenalty: 0,
			wantRisks:   []string{},
		},
		{
			name:        "low liquidity",
			attrs:       market.TokenAttributes{ReserveUSD: 500, Volume24hUSD: 100},
			wantPenalty: 30,
			wantRisks:   []string{RiskLowLiquidity},
		},
		{
			name:        "liquidity threshold is exclusive",
			attrs:       market.TokenAttributes{ReserveUSD: 1000, Volume24hUSD: 100},
			wantPenalty: 0,
			wantRisks:   []string{},
		},
		{
			name:        "wash trading",
			attrs:       market.TokenAttributes{ReserveUSD: 10000, Volume24hUSD: 20001},
			wantPenalty: 20,
			wantRisks:   []string{RiskSuspiciousVolume},
		},
		{
			name:        "volume exactly twice liquidity",
			attrs:       market.TokenAttributes{ReserveUSD: 10000, Volume24hUSD: 20000},
			wantPenalty: 0,
			wantRisks:   []string{},
		},
		{
			name:        "zero liquidity skips wash check",
			attrs:       market.TokenAttributes{ReserveUSD: 0, Volume24hUSD: 1e6},
			wantPenalty: 30,
			wantRisks:   []string{RiskLowLiquidity},
		},
		{
			name:        "all checks add up",
			attrs:       market.TokenAttributes{Change1hPct: -75, ReserveUSD: 400, Volume24hUSD: 5000},
			wantPenalty: 150,
			wantRisks:   []string{RiskCrash, RiskLowLiquidity, RiskSuspiciousVolume},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := tt.attrs
			result := AnalyzeMarket(&attrs)
			assert.Equal(t, tt.wantPenalty, result.ScorePenalty)
			assert.Equal(t, tt.wantRisks, result.Risks)
			assert.Equal(t, domain.MarketStatusTrading, result.Status)
		})
	}
}

func TestAnalyzeMarket_NotTrading(t *testing.T) {
	result := AnalyzeMarket(nil)
	assert.Equal(t, 50, result.ScorePenalty)
	assert.Equal(t, domain.MarketStatusDead, result.Status)
	assert.Equal(t, "0", result.Price)
	assert.Equal(t, []string{RiskNotTrading}, result.Risks)
}

func TestAnalyzer_Code(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Assets[testMint] = &solana.Asset{ID: testMint, Mutable: true}

	result := newTestAnalyzer(rpc, nil, nil).Code(context.Background(), testMint)
	assert.Equal(t, 10, result.ScorePenalty)
	assert.False(t, result.Degraded)
}

func TestAnalyzer_Code_Failure(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = errors.New("connection refused")

	var degraded []string
	result := newTestAnalyzer(rpc, nil, &degraded).Code(context.Background(), testMint)

	assert.Zero(t, result.ScorePenalty)
	assert.Equal(t, []string{RiskAuditUnavailable}, result.Risks)
	assert.True(t, result.Degraded)
	assert.Equal(t, []string{NameCode}, degraded)
}

func TestAnalyzer_Code_RPCErrorReadsAsEmpty(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = &solana.RPCError{Code: -32000, Message: "Asset Not Found"}

	result := newTestAnalyzer(rpc, nil, nil).Code(context.Background(), testMint)
	assert.Zero(t, result.ScorePenalty)
	assert.Empty(t, result.Risks)
	assert.False(t, result.Degraded)
}

func TestAnalyzer_Supply(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Holders[testMint] = []solana.TokenAccountBalance{
		{Address: "a", Amount: "60"},
		{Address: "b", Amount: "20"},
		{Address: "c", Amount: "20"},
	}

	result := newTestAnalyzer(rpc, nil, nil).Supply(context.Background(), testMint)
	assert.Equal(t, 40, result.ScorePenalty)
	assert.Equal(t, 60, result.Top10Percent)
	assert.Equal(t, 3, result.HoldersCount)
}

func TestAnalyzer_Code_NullResult(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = fmt.Errorf("getAsset %s: %w", testMint, solana.ErrNullResult)

	var degraded []string
	result := newTestAnalyzer(rpc, nil, &degraded).Code(context.Background(), testMint)

	assert.Equal(t, CodeFallback(), result)
	assert.Equal(t, []string{NameCode}, degraded)
}

func TestAnalyzer_Supply_Failures(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		rpc := stub.NewRPCClient()
		rpc.Err = errors.New("timeout")

		result := newTestAnalyzer(rpc, nil, nil).Supply(context.Background(), testMint)
		assert.Equal(t, SupplyFallback(), result)
	})

	t.Run("bad amount", func(t *testing.T) {
		rpc := stub.NewRPCClient()
		rpc.Holders[testMint] = []solana.TokenAccountBalance{{Address: "a", Amount: "x"}}

		result := newTestAnalyzer(rpc, nil, nil).Supply(context.Background(), testMint)
		assert.True(t, result.Degraded)
		assert.Zero(t, result.ScorePenalty)
	})

	t.Run("null result", func(t *testing.T) {
		rpc := stub.NewRPCClient()
		rpc.Err = solana.ErrNullResult

		var degraded []string
		result := newTestAnalyzer(rpc, nil, &degraded).Supply(context.Background(), testMint)
		assert.Equal(t, SupplyFallback(), result)
		assert.Equal(t, []string{NameSupply}, degraded)
	})

	t.Run("rpc error is hidden supply", func(t *testing.T) {
		rpc := stub.NewRPCClient()
		rpc.Err = &solana.RPCError{Code: -32602, Message: "not a Token mint"}

		result := newTestAnalyzer(rpc, nil, nil).Supply(context.Background(), testMint)
		assert.Equal(t, 50, result.ScorePenalty)
		assert.Equal(t, []string{RiskHiddenSupply}, result.Risks)
	})
}

func TestAnalyzer_Market_Failure(t *testing.T) {
	var degraded []string
	a := newTestAnalyzer(nil, &fakeMarket{err: errors.New("502")}, &degraded)

	result := a.Market(context.Background(), testMint)
	assert.Equal(t, domain.MarketStatusUnknown, result.Status)
	assert.Zero(t, result.ScorePenalty)
	assert.Empty(t, result.Risks)
	assert.Equal(t, []string{NameMarket}, degraded)
}

func TestAnalyzer_Market_Timeout(t *testing.T) {
	a := newTestAnalyzer(nil, &fakeMarket{delay: time.Second}, nil)

	start := time.Now()
	result := a.Market(context.Background(), testMint)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, result.Degraded)
	assert.Equal(t, domain.MarketStatusUnknown, result.Status)
}

func TestAnalyzer_Market_EmptyAttributesIsDead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"x","type":"token","attributes":{}}}`))
	}))
	defer server.Close()

	var degraded []string
	a := newTestAnalyzer(nil, market.NewGeckoClient(market.WithBaseURL(server.URL)), &degraded)

	result := a.Market(context.Background(), testMint)
	assert.Equal(t, domain.MarketStatusDead, result.Status)
	assert.Equal(t, 50, result.ScorePenalty)
	assert.Equal(t, []string{RiskNotTrading}, result.Risks)
	assert.False(t, result.Degraded)
	assert.Empty(t, degraded)
}
