// Package audit orchestrates a token audit:
// payment gate → three independent pillars → score aggregation → verdict.
package audit

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"solana-token-audit/internal/domain"
	"solana-token-audit/internal/payment"
)

// SimulateToken in an address skips the payment gate when bypass is enabled.
// It exists for demos and testing, not for production gating.
const SimulateToken = "SIMULATE"

// ErrMissingAddress is returned when the request has no token address.
var ErrMissingAddress = errors.New("no address provided")

// PaymentRequiredError is returned when the payment gate rejects a request.
type PaymentRequiredError struct {
	Message string
	Outcome payment.Outcome
}

func (e *PaymentRequiredError) Error() string {
	return "payment required: " + e.Message
}

// Request is one audit request.
type Request struct {
	Address   string
	Signature string // payment transaction signature, optional
}

// PillarRunner runs the three analysis pillars.
type PillarRunner interface {
	Code(ctx context.Context, address string) domain.CodePillar
	Supply(ctx context.Context, address string) domain.SupplyPillar
	Market(ctx context.Context, address string) domain.MarketPillar
}

// PaymentVerifier verifies payment signatures.
type PaymentVerifier interface {
	Verify(ctx context.Context, signature string) payment.Result
}

// Recorder receives audit metrics. All methods must be safe for concurrent use.
type Recorder interface {
	RecordAudit(verdict domain.Verdict, elapsed time.Duration)
	RecordPayment(outcome payment.Outcome)
}

// Auditor coordinates a single audit.
type Auditor struct {
	pillars       PillarRunner
	verifier      PaymentVerifier
	gated         bool
	allowSimulate bool
	recorder      Recorder
	logger        *log.Logger
	now           func() time.Time
}

// Options for creating Auditor.
type Options struct {
	Pillars  PillarRunner
	Verifier PaymentVerifier // required when PaymentRequired

	PaymentRequired bool
	AllowSimulate   bool // honor SimulateToken in addresses

	Recorder Recorder
	Logger   *log.Logger
}

// New creates a new Auditor.
func New(opts Options) *Auditor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Auditor{
		pillars:       opts.Pillars,
		verifier:      opts.Verifier,
		gated:         opts.PaymentRequired,
		allowSimulate: opts.AllowSimulate,
		recorder:      opts.Recorder,
		logger:        logger,
		now:           time.Now,
	}
}

// Gated reports whether audits require payment.
func (a *Auditor) Gated() bool {
	return a.gated
}

// IsSimulated reports whether the address triggers the payment bypass.
func (a *Auditor) IsSimulated(address string) bool {
	return a.allowSimulate && strings.Contains(address, SimulateToken)
}

// Audit runs the payment gate (when enabled) and the three pillars.
// It returns ErrMissingAddress or *PaymentRequiredError; provider failures
// never surface as errors.
func (a *Auditor) Audit(ctx context.Context, req Request) (*domain.AuditReport, error) {
	start := a.now()

	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, ErrMissingAddress
	}

	simulated := a.IsSimulated(address)
	paid := false

	if a.gated && !simulated {
		res := a.verifier.Verify(ctx, strings.TrimSpace(req.Signature))
		if a.recorder != nil {
			a.recorder.RecordPayment(res.Outcome)
		}
		if !res.Accepted {
			a.logger.Printf("payment rejected for %s: %s", address, res.Message)
			return nil, &PaymentRequiredError{Message: res.Message, Outcome: res.Outcome}
		}
		paid = true
	}

	pillars := a.runPillars(ctx, address)

	score := domain.Score(pillars.TotalPenalty())
	report := &domain.AuditReport{
		AuditID:         uuid.NewString(),
		Address:         address,
		OverallScore:    score,
		VerdictTitle:    domain.VerdictFor(score),
		Pillars:         pillars,
		PaymentVerified: paid,
		Simulated:       simulated,
		GeneratedAt:     a.now().UnixMilli(),
	}

	elapsed := a.now().Sub(start)
	if a.recorder != nil {
		a.recorder.RecordAudit(report.VerdictTitle, elapsed)
	}
	a.logger.Printf("audit %s: %s score=%d verdict=%s in %v",
		report.AuditID, address, report.OverallScore, report.VerdictTitle, elapsed)

	return report, nil
}

// runPillars fans the pillars out concurrently. Pillars never fail; each
// degrades to its own fallback, so the group error is always nil.
func (a *Auditor) runPillars(ctx context.Context, address string) domain.Pillars {
	var p domain.Pillars
	var g errgroup.Group

	g.Go(func() error {
		p.Code = a.pillars.Code(ctx, address)
		return nil
	})
	g.Go(func() error {
		p.Supply = a.pillars.Supply(ctx, address)
		return nil
	})
	g.Go(func() error {
		p.Market = a.pillars.Market(ctx, address)
		return nil
	})

	_ = g.Wait()
	return p
}
