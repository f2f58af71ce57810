package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-audit/internal/domain"
	"solana-token-audit/internal/payment"
)

func TestMetrics_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics("")
	b := NewMetrics("")

	a.RecordAudit(domain.VerdictSafe, time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.AuditsTotal.WithLabelValues("SAFE")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AuditsTotal.WithLabelValues("SAFE")))
}

func TestMetrics_RecordPayment(t *testing.T) {
	m := NewMetrics("test")
	m.SetConsumedSignatures(3)

	m.RecordPayment(payment.OutcomeAccepted)
	m.RecordPayment(payment.OutcomeReplayed)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.ConsumedSignatures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentVerifications.WithLabelValues("replayed")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("test")
	m.RecordDegraded("market", errors.New("timeout"))
	m.RecordProviderCall("rpc", "getAsset", 20*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.True(t, strings.Contains(text, `test_audit_pillar_degraded_total{pillar="market"} 1`), text)
	assert.True(t, strings.Contains(text, `test_provider_call_duration_seconds_count{method="getAsset",provider="rpc",status="ok"} 1`), text)
}
