package domain

// Verdict is the headline classification of a token.
type Verdict string

const (
	VerdictSafe         Verdict = "SAFE"
	VerdictCaution      Verdict = "CAUTION"
	VerdictDangerous    Verdict = "DANGEROUS"
	VerdictScamDetected Verdict = "SCAM_DETECTED"
)

// Score bounds.
const (
	BaseScore = 100
	MinScore  = 0
)

// Verdict thresholds: a score strictly below the threshold gets the label.
const (
	CautionBelow   = 80
	DangerousBelow = 50
	ScamBelow      = 20
)

// Severity orders verdicts from SAFE (0) to SCAM_DETECTED (3).
func (v Verdict) Severity() int {
	switch v {
	case VerdictSafe:
		return 0
	case VerdictCaution:
		return 1
	case VerdictDangerous:
		return 2
	case VerdictScamDetected:
		return 3
	}
	return -1
}

// Score returns clamp(100 - totalPenalty, 0, 100).
func Score(totalPenalty int) int {
	score := BaseScore - totalPenalty
	if score < MinScore {
		return MinScore
	}
	if score > BaseScore {
		return BaseScore
	}
	return score
}

// VerdictFor maps a score to its verdict.
func VerdictFor(score int) Verdict {
	switch {
	case score < ScamBelow:
		return VerdictScamDetected
	case score < DangerousBelow:
		return VerdictDangerous
	case score < CautionBelow:
		return VerdictCaution
	default:
		return VerdictSafe
	}
}

// Pillars groups the three pillar results of an audit.
type Pillars struct {
	Code   CodePillar   `json:"code"`
	Supply SupplyPillar `json:"supply"`
	Market MarketPillar `json:"market"`
}

// TotalPenalty sums the penalties of all pillars.
func (p Pillars) TotalPenalty() int {
	return p.Code.ScorePenalty + p.Supply.ScorePenalty + p.Market.ScorePenalty
}

// AuditReport is the response of a completed audit.
type AuditReport struct {
	AuditID         string  `json:"audit_id"`
	Address         string  `json:"address"`
	OverallScore    int     `json:"overall_score"`
	VerdictTitle    Verdict `json:"verdict_title"`
	Pillars         Pillars `json:"pillars"`
	PaymentVerified bool    `json:"payment_verified"`
	Simulated       bool    `json:"simulated,omitempty"`
	GeneratedAt     int64   `json:"generated_at"` // Unix timestamp in milliseconds
}
