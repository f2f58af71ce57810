package domain

// Pillar is the common part of every pillar result.
type Pillar struct {
	ScorePenalty int      `json:"score_penalty"` // subtracted from 100, never negative
	Risks        []string `json:"risks"`         // human-readable, ordered as detected

	// Degraded is set when the provider call failed and the fallback was used.
	Degraded bool `json:"-"`
}

// AddRisk records a detected risk and its penalty.
func (p *Pillar) AddRisk(risk string, penalty int) {
	p.Risks = append(p.Risks, risk)
	p.ScorePenalty += penalty
}

// NewPillar returns a pillar with an empty, non-nil risk list.
func NewPillar() Pillar {
	return Pillar{Risks: []string{}}
}

// CodePillar is the metadata/code analysis result.
type CodePillar struct {
	Pillar
}

// SupplyPillar is the holder distribution result.
type SupplyPillar struct {
	Pillar
	Top10Percent int `json:"top10_percent"`           // top holder share of the top-10 sum
	HoldersCount int `json:"holders_count,omitempty"` // accounts returned (at most 20)
}

// Market statuses.
const (
	MarketStatusTrading = "TRADING"
	MarketStatusDead    = "DEAD"
	MarketStatusUnknown = "Unknown"
)

// MarketPillar is the market behavior result.
type MarketPillar struct {
	Pillar
	Status    string  `json:"status"`
	Price     string  `json:"price,omitempty"`
	Volume    float64 `json:"volume"`
	Change    float64 `json:"change"`
	Liquidity float64 `json:"liquidity"`
}
