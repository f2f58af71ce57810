// Package server exposes the audit service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"solana-token-audit/internal/audit"
	"solana-token-audit/internal/domain"
	"solana-token-audit/internal/storage"
)

// Response texts.
const (
	ErrTextNoAddress       = "No address provided"
	ErrTextPaymentRequired = "Payment required"
	ErrTextInternal        = "Internal error"
	VerdictPaymentRequired = "PAYMENT_REQUIRED"
)

const (
	maxBodyBytes      = 64 << 10
	priceTimeout      = 3 * time.Second
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Auditor runs audits.
type Auditor interface {
	Audit(ctx context.Context, req audit.Request) (*domain.AuditReport, error)
}

// PriceSource quotes SOL in USD.
type PriceSource interface {
	SOLPriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// SignatureGauge mirrors the replay set size.
type SignatureGauge interface {
	SetConsumedSignatures(n int)
}

// Options for creating Server.
type Options struct {
	Auditor Auditor

	// Payment terms echoed in 402 responses.
	Gated       bool
	RequiredSOL decimal.Decimal
	Treasury    string
	Price       PriceSource // optional USD quote

	Signatures storage.SignatureStore // optional, reported by /status
	Gauge      SignatureGauge         // optional, set from Signatures on /status and /metrics
	Metrics    http.Handler           // optional /metrics handler
	Logger     *log.Logger
}

// Server is the HTTP front of the audit service.
type Server struct {
	auditor     Auditor
	gated       bool
	requiredSOL decimal.Decimal
	treasury    string
	price       PriceSource
	signatures  storage.SignatureStore
	gauge       SignatureGauge
	metrics     http.Handler
	logger      *log.Logger

	started  time.Time
	audits   atomic.Int64
	rejected atomic.Int64
}

// New creates a new Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		auditor:     opts.Auditor,
		gated:       opts.Gated,
		requiredSOL: opts.RequiredSOL,
		treasury:    opts.Treasury,
		price:       opts.Price,
		signatures:  opts.Signatures,
		gauge:       opts.Gauge,
		metrics:     opts.Metrics,
		logger:      logger,
		started:     time.Now(),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/audit", s.handleAudit)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if s.metrics != nil {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			s.consumedSignatures(r.Context())
			s.metrics.ServeHTTP(w, r)
		})
	}

	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting HTTP server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Println("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// auditRequest is the POST /audit body.
type auditRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature,omitempty"`
}

// errorResponse is the body of 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// PaymentRequiredResponse is the 402 body: a zero-score report with payment terms.
type PaymentRequiredResponse struct {
	Error             string   `json:"error"`
	Message           string   `json:"message"`
	OverallScore      int      `json:"overall_score"`
	VerdictTitle      string   `json:"verdict_title"`
	RequiredAmountSOL float64  `json:"required_amount_sol"`
	TreasuryWallet    string   `json:"treasury_wallet"`
	RequiredAmountUSD *float64 `json:"required_amount_usd,omitempty"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	var req auditRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrTextNoAddress})
		return
	}

	report, err := s.auditor.Audit(r.Context(), audit.Request{Address: req.Address, Signature: req.Signature})

	var payErr *audit.PaymentRequiredError
	switch {
	case err == nil:
		s.audits.Add(1)
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, audit.ErrMissingAddress):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrTextNoAddress})
	case errors.As(err, &payErr):
		s.rejected.Add(1)
		writeJSON(w, http.StatusPaymentRequired, s.paymentRequired(r.Context(), payErr.Message))
	default:
		s.logger.Printf("audit %s failed: %v", req.Address, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: ErrTextInternal})
	}
}

func (s *Server) paymentRequired(ctx context.Context, message string) PaymentRequiredResponse {
	resp := PaymentRequiredResponse{
		Error:             ErrTextPaymentRequired,
		Message:           message,
		OverallScore:      0,
		VerdictTitle:      VerdictPaymentRequired,
		RequiredAmountSOL: s.requiredSOL.InexactFloat64(),
		TreasuryWallet:    s.treasury,
	}

	if s.price == nil {
		return resp
	}
	ctx, cancel := context.WithTimeout(ctx, priceTimeout)
	defer cancel()

	price, err := s.price.SOLPriceUSD(ctx)
	if err != nil {
		s.logger.Printf("SOL price unavailable: %v", err)
		return resp
	}
	usd := s.requiredSOL.Mul(price).Round(4).InexactFloat64()
	resp.RequiredAmountUSD = &usd
	return resp
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status             string    `json:"status"`
	Uptime             string    `json:"uptime"`
	Started            time.Time `json:"started"`
	AuditsServed       int64     `json:"audits_served"`
	PaymentsRejected   int64     `json:"payments_rejected"`
	PaymentRequired    bool      `json:"payment_required"`
	ConsumedSignatures *int      `json:"consumed_signatures,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		Started:          s.started,
		AuditsServed:     s.audits.Load(),
		PaymentsRejected: s.rejected.Load(),
		PaymentRequired:  s.gated,
	}

	if n, ok := s.consumedSignatures(r.Context()); ok {
		resp.ConsumedSignatures = &n
	}

	writeJSON(w, http.StatusOK, resp)
}

// consumedSignatures counts the replay set and syncs the gauge with it.
// Expired Redis keys drop out of the count here.
func (s *Server) consumedSignatures(ctx context.Context) (int, bool) {
	if s.signatures == nil {
		return 0, false
	}
	n, err := s.signatures.Len(ctx)
	if err != nil {
		s.logger.Printf("count consumed signatures: %v", err)
		return 0, false
	}
	if s.gauge != nil {
		s.gauge.SetConsumedSignatures(n)
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
