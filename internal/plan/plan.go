// Package plan guesses the account's capacity tier from observed
// usage. The guess is advisory only: it informs monitor-mode limit
// displays and never gates any computation.
package plan

import (
	"fmt"

	"blockwatch/internal/model"
)

// Tier is a named capacity level with a weighted-token block limit.
type Tier string

const (
	TierPro       Tier = "pro"
	TierMax5      Tier = "max5"
	TierMax20     Tier = "max20"
	TierCustomMax Tier = "custom_max"
	TierUnknown   Tier = "unknown"
)

// Block limits in weighted tokens. Max tiers scale the base tier by
// 5x and 20x.
const (
	ProLimit   = 7_000
	Max5Limit  = 5 * ProLimit
	Max20Limit = 20 * ProLimit
)

// Limit returns the weighted-token limit for a tier, or 0 for tiers
// without a fixed limit.
func (t Tier) Limit() int64 {
	switch t {
	case TierPro:
		return ProLimit
	case TierMax5:
		return Max5Limit
	case TierMax20:
		return Max20Limit
	default:
		return 0
	}
}

// ParseTier maps a user-supplied plan name to a tier. custom_max means
// "use the highest block ever observed as the limit".
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierPro, TierMax5, TierMax20, TierCustomMax:
		return Tier(s), nil
	case "":
		return TierUnknown, nil
	}
	return TierUnknown, fmt.Errorf("unknown plan %q (want pro, max5, max20, or custom_max)", s)
}

// Detection is the classifier output.
type Detection struct {
	Tier       Tier
	Limit      int64
	Confidence float64
	Evidence   []string
}

// Detect classifies the capacity tier from block history. Confidence
// drops below 0.5 with fewer than 3 data blocks and rises when limit
// errors corroborate the peak.
func Detect(blocks []model.Block) Detection {
	var (
		peak      int64
		dataCount int
		limitErrs bool
	)
	for _, b := range blocks {
		if b.IsGap {
			continue
		}
		dataCount++
		if b.WeightedTokens > peak {
			peak = b.WeightedTokens
		}
		if b.LimitErrors > 0 {
			limitErrs = true
		}
	}

	d := Detection{Tier: TierUnknown}
	if dataCount == 0 {
		d.Evidence = append(d.Evidence, "no usage blocks observed")
		return d
	}

	switch {
	case peak > Max20Limit:
		d.Tier = TierCustomMax
		d.Limit = peak
	case peak > Max5Limit:
		d.Tier = TierMax20
		d.Limit = Max20Limit
	case peak > ProLimit:
		d.Tier = TierMax5
		d.Limit = Max5Limit
	default:
		d.Tier = TierPro
		d.Limit = ProLimit
	}
	d.Evidence = append(d.Evidence,
		fmt.Sprintf("peak block usage %d weighted tokens across %d blocks", peak, dataCount))

	d.Confidence = 0.6
	if dataCount < 3 {
		d.Confidence = 0.3
		d.Evidence = append(d.Evidence, "fewer than 3 blocks observed, low confidence")
	}
	if limitErrs {
		d.Confidence += 0.3
		if d.Confidence > 1.0 {
			d.Confidence = 1.0
		}
		d.Evidence = append(d.Evidence, "limit errors observed near peak usage")
	}
	return d
}
