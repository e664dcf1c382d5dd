package tracking

import "ordertrack/internal/core/domain/model/kernel"

// DefaultAccuracyThresholdMeters is the worst accuracy radius admitted once a fix was accepted.
const DefaultAccuracyThresholdMeters = 60.0

// AccuracyGate filters fixes of a single location source.
//
// A fix whose accuracy exceeds the threshold is rejected, unless the gate has
// not accepted anything yet: the very first fix always passes so a position
// exists at all, flagged as low confidence when it is inaccurate.
//
// AccuracyGate is not safe for concurrent use; its owner serializes access.
type AccuracyGate struct {
	thresholdMeters float64
	hasAccepted     bool
}

// Verdict is the outcome of AccuracyGate.Admit.
type Verdict struct {
	Accepted      bool
	LowConfidence bool
}

// NewAccuracyGate creates a gate. A non-positive threshold selects DefaultAccuracyThresholdMeters.
func NewAccuracyGate(thresholdMeters float64) *AccuracyGate {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultAccuracyThresholdMeters
	}
	return &AccuracyGate{thresholdMeters: thresholdMeters}
}

// Admit decides whether fix is usable and records an acceptance.
func (g *AccuracyGate) Admit(fix kernel.LocationFix) Verdict {
	inaccurate := fix.AccuracyMeters() > g.thresholdMeters
	if inaccurate && g.hasAccepted {
		return Verdict{}
	}

	g.hasAccepted = true
	return Verdict{Accepted: true, LowConfidence: inaccurate}
}
