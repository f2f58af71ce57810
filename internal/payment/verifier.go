// Package payment verifies on-chain SOL payments to the treasury wallet
// and prevents a payment signature from being used twice.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"solana-token-audit/internal/solana"
	"solana-token-audit/internal/storage"
)

// DefaultEpsilonSOL is the dust tolerance below the required amount.
var DefaultEpsilonSOL = decimal.RequireFromString("0.000005")

// Rejection and acceptance messages.
const (
	MsgNoSignature       = "No payment signature provided"
	MsgInvalidSignature  = "Invalid signature format"
	MsgAlreadyUsed       = "Payment already used"
	MsgProviderError     = "Payment verification failed"
	MsgNotFound          = "Transaction not found"
	MsgTxFailed          = "Transaction failed"
	MsgTreasuryMissing   = "Payment not sent to treasury"
	MsgBalancesMissing   = "Transaction balances unavailable"
	MsgVerified          = "Payment verified"
	msgInsufficientTempl = "Insufficient payment: received %s SOL, required %s SOL"
)

// Outcome classifies a verification for metrics.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeMissing      Outcome = "missing"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeReplayed     Outcome = "replayed"
	OutcomeProviderErr  Outcome = "provider_error"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeFailed       Outcome = "failed"
	OutcomeWrongPayee   Outcome = "wrong_recipient"
	OutcomeInsufficient Outcome = "insufficient"
)

// Result is the verdict on one payment signature.
type Result struct {
	Accepted    bool
	Message     string
	Outcome     Outcome
	ReceivedSOL decimal.Decimal
}

func reject(outcome Outcome, msg string) Result {
	return Result{Message: msg, Outcome: outcome}
}

// Verifier checks payment transactions against the ledger.
type Verifier struct {
	rpc      solana.RPCClient
	store    storage.SignatureStore
	treasury string
	required decimal.Decimal
	epsilon  decimal.Decimal
	logger   *log.Logger
}

// Config for creating Verifier.
type Config struct {
	RPC         solana.RPCClient
	Store       storage.SignatureStore
	Treasury    string          // recipient wallet
	RequiredSOL decimal.Decimal // fee in SOL
	EpsilonSOL  decimal.Decimal // zero uses DefaultEpsilonSOL
	Logger      *log.Logger
}

// NewVerifier creates a new Verifier.
func NewVerifier(cfg Config) *Verifier {
	epsilon := cfg.EpsilonSOL
	if epsilon.IsZero() {
		epsilon = DefaultEpsilonSOL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Verifier{
		rpc:      cfg.RPC,
		store:    cfg.Store,
		treasury: cfg.Treasury,
		required: cfg.RequiredSOL,
		epsilon:  epsilon,
		logger:   logger,
	}
}

// RequiredSOL returns the configured fee.
func (v *Verifier) RequiredSOL() decimal.Decimal {
	return v.required
}

// Treasury returns the configured recipient wallet.
func (v *Verifier) Treasury() string {
	return v.treasury
}

// Verify checks that signature is a successful transfer of at least the
// required amount to the treasury, and consumes it on success.
// Rejected signatures are not consumed and may be retried.
func (v *Verifier) Verify(ctx context.Context, signature string) Result {
	if signature == "" {
		return reject(OutcomeMissing, MsgNoSignature)
	}
	if err := solana.ValidateSignature(signature); err != nil {
		return reject(OutcomeInvalid, MsgInvalidSignature)
	}

	used, err := v.store.Contains(ctx, signature)
	if err != nil {
		v.logger.Printf("signature store lookup failed: %v", err)
		return reject(OutcomeProviderErr, MsgProviderError)
	}
	if used {
		return reject(OutcomeReplayed, MsgAlreadyUsed)
	}

	tx, err := v.rpc.GetTransaction(ctx, signature)
	if err != nil {
		v.logger.Printf("getTransaction %s failed: %v", signature, err)
		return reject(OutcomeProviderErr, MsgProviderError)
	}
	if tx == nil {
		return reject(OutcomeNotFound, MsgNotFound)
	}
	if tx.Meta.Failed() {
		return reject(OutcomeFailed, MsgTxFailed)
	}

	idx := tx.Message.IndexOf(v.treasury)
	if idx < 0 {
		return reject(OutcomeWrongPayee, MsgTreasuryMissing)
	}
	if idx >= len(tx.Meta.PreBalances) || idx >= len(tx.Meta.PostBalances) {
		return reject(OutcomeFailed, MsgBalancesMissing)
	}

	received := solana.LamportsToSOL(tx.Meta.PostBalances[idx] - tx.Meta.PreBalances[idx])
	if received.LessThan(v.required.Sub(v.epsilon)) {
		res := reject(OutcomeInsufficient, fmt.Sprintf(msgInsufficientTempl, received.String(), v.required.String()))
		res.ReceivedSOL = received
		return res
	}

	// The claim is the atomic step; the Contains check above only saves an RPC call.
	if err := v.store.Claim(ctx, signature); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return reject(OutcomeReplayed, MsgAlreadyUsed)
		}
		v.logger.Printf("signature claim failed: %v", err)
		return reject(OutcomeProviderErr, MsgProviderError)
	}

	return Result{
		Accepted:    true,
		Message:     MsgVerified,
		Outcome:     OutcomeAccepted,
		ReceivedSOL: received,
	}
}
