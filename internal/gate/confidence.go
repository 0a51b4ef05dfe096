package gate

import "math"

// Combine returns the overall confidence for a draft:
//
//	clamp01(e*r + boost*(1 - e*r))
//
// With no boost it is the plain product, never above min(e, r). It is pure
// and monotonic in each argument.
func Combine(extraction, resolution, boost float64) float64 {
	product := clamp01(extraction) * clamp01(resolution)
	return clamp01(product + clamp01(boost)*(1-product))
}

// Settings are the gate inputs for one coach.
type Settings struct {
	AutoApprove bool
	// Threshold is the coach's effective auto-approval threshold.
	Threshold  float64
	TrustBoost float64
}

// RequiresConfirmation is false only when the coach opted into
// auto-approval and overall strictly exceeds the threshold.
func RequiresConfirmation(overall float64, settings Settings) bool {
	return !(settings.AutoApprove && overall > settings.Threshold)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
