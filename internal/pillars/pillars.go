// Package pillars implements the three independent audit dimensions:
// code/metadata, supply distribution and market behavior.
//
// Each pillar has a pure Analyze function over normalized provider data and
// an Analyzer method that fetches the data and falls back to a neutral result
// when the provider call fails. Provider failures never escape this package.
package pillars

import (
	"context"
	"errors"
	"log"
	"time"

	"solana-token-audit/internal/market"
	"solana-token-audit/internal/solana"
)

// Pillar names, used in logs and metrics.
const (
	NameCode   = "code"
	NameSupply = "supply"
	NameMarket = "market"
)

// MarketSource provides market snapshots.
type MarketSource interface {
	GetToken(ctx context.Context, address string) (*market.TokenAttributes, error)
}

// DegradeHook is called when a pillar falls back after a provider failure.
type DegradeHook func(pillar string, err error)

// Analyzer runs the pillars against live providers.
type Analyzer struct {
	rpc       solana.RPCClient
	market    MarketSource
	timeout   time.Duration
	logger    *log.Logger
	onDegrade DegradeHook
}

// Options for creating Analyzer.
type Options struct {
	RPC     solana.RPCClient // metadata + holder provider
	Market  MarketSource
	Timeout time.Duration // per provider call; 0 means no extra deadline
	Logger  *log.Logger

	OnDegrade DegradeHook
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Analyzer{
		rpc:       opts.RPC,
		market:    opts.Market,
		timeout:   opts.Timeout,
		logger:    logger,
		onDegrade: opts.OnDegrade,
	}
}

// withTimeout bounds a single provider call.
func (a *Analyzer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Analyzer) degrade(pillar, address string, err error) {
	a.logger.Printf("%s pillar degraded for %s: %v", pillar, address, err)
	if a.onDegrade != nil {
		a.onDegrade(pillar, err)
	}
}

// isProviderRefusal reports whether the provider answered with a JSON-RPC error.
// Such answers carry no data and are read as an empty result.
func isProviderRefusal(err error) bool {
	var rpcErr *solana.RPCError
	return errors.As(err, &rpcErr)
}
