// Package consensus aggregates independent verifier reports over an
// exported state bundle into a single majority PASS/FAIL verdict.
package consensus

import "log/slog"

// Verdict is one verifier's (or the aggregate's) pass/fail call.
type Verdict string

const (
	Pass Verdict = "PASS"
	Fail Verdict = "FAIL"
)

// VerifierReport is one independent verifier's replay result.
type VerifierReport struct {
	ReportID         string   `json:"reportId"`
	VerifierID       string   `json:"verifierId"`
	Verdict          Verdict  `json:"verdict"`
	SubsystemChecks  []string `json:"subsystemChecks"`
	Discrepancies    []string `json:"discrepancies"`
	BundleHash       string   `json:"bundleHash"`
	VerifiedAt       string   `json:"verifiedAt"`
}

// Config tunes aggregation. TieThreshold is not consulted today: an exact
// 0.5 agreement ratio always resolves to FAIL regardless of its value.
// It is retained on Config so a future revision of that decision doesn't
// require a breaking signature change.
type Config struct {
	MinimumVerifiers int
	TieThreshold     float64
}

// Result is the aggregate consensus outcome.
type Result struct {
	Verdict         Verdict
	AgreementRatio  float64
	QuorumReached   bool
	TotalVerifiers  int
	Dissenters      []string
}

// Aggregate reduces reports to a single verdict: majority of PASS/FAIL
// counts, with an exact tie resolved to FAIL. Reports are not deduplicated
// by reportId here; callers with a paginated report feed are expected to
// dedupe before calling Aggregate. logger defaults to slog.Default() and
// receives a Warn record naming every dissenting verifier.
func Aggregate(reports []VerifierReport, cfg Config, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}
	var passCount, failCount int
	for _, r := range reports {
		if r.Verdict == Pass {
			passCount++
		} else {
			failCount++
		}
	}
	total := len(reports)

	var majority Verdict
	var majorityCount int
	switch {
	case passCount > failCount:
		majority, majorityCount = Pass, passCount
	case failCount > passCount:
		majority, majorityCount = Fail, failCount
	default:
		// Exact tie: resolved to FAIL regardless of TieThreshold (see Config
		// doc comment).
		majority, majorityCount = Fail, passCount
	}

	var ratio float64
	if total > 0 {
		ratio = float64(majorityCount) / float64(total)
	}

	var dissenters []string
	for _, r := range reports {
		if r.Verdict != majority {
			dissenters = append(dissenters, r.VerifierID)
			logger.Warn("consensus: verifier dissents from majority verdict", "verifierId", r.VerifierID, "verdict", r.Verdict, "majority", majority)
		}
	}

	return Result{
		Verdict:        majority,
		AgreementRatio: ratio,
		QuorumReached:  total >= cfg.MinimumVerifiers,
		TotalVerifiers: total,
		Dissenters:     dissenters,
	}
}
