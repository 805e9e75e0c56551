package rewards

import (
	"math"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Tier Aggregator ────────────────────────────────────────────────────────

// TierFor returns the highest tier whose threshold count has reached.
func TierFor(count int) domain.Tier {
	tiers := domain.Tiers()
	current := tiers[0]
	for _, t := range tiers {
		if count >= t.MinReferrals {
			current = t
		}
	}
	return current
}

// NextTier returns the tier after the one count falls in, or false at the top.
func NextTier(count int) (domain.Tier, bool) {
	for _, t := range domain.Tiers() {
		if t.MinReferrals > count {
			return t, true
		}
	}
	return domain.Tier{}, false
}

// Progress measures the way to the next tier. Nil at the top tier.
func Progress(count int) *domain.TierProgress {
	next, ok := NextTier(count)
	if !ok {
		return nil
	}
	pct := math.Min(float64(count)/float64(next.MinReferrals)*100, 100)
	return &domain.TierProgress{
		Current:    count,
		Target:     next.MinReferrals,
		Percentage: math.Round(pct*100) / 100,
		Remaining:  next.MinReferrals - count,
	}
}
