// Package aggregator combines rule violations and the semantic risk score
// into a single verdict. All scoring constants are policy supplied through
// configuration, never hardcoded at call sites.
package aggregator

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/compliance"
	"github.com/sebishield/validation-engine/internal/config"
	"github.com/sebishield/validation-engine/internal/semantic"
)

// ManualReviewSuggestion is attached to every fallback verdict.
const ManualReviewSuggestion = "Automated semantic review was unavailable. Please have this content reviewed manually before publishing."

// Policy holds the tunable scoring constants.
type Policy struct {
	SeverityPoints map[compliance.Severity]int
	StrictWeight   float64
	RealtimeWeight float64
	BandLow        int
	BandMedium     int
	BandHigh       int
}

// PolicyFromConfig translates the config section into a scoring policy.
func PolicyFromConfig(cfg config.ValidationConfig) Policy {
	points := make(map[compliance.Severity]int, len(cfg.SeverityPoints))
	for sev, pts := range cfg.SeverityPoints {
		points[compliance.Severity(sev)] = pts
	}
	return Policy{
		SeverityPoints: points,
		StrictWeight:   cfg.StrictWeight,
		RealtimeWeight: cfg.RealtimeWeight,
		BandLow:        cfg.BandLow,
		BandMedium:     cfg.BandMedium,
		BandHigh:       cfg.BandHigh,
	}
}

// Aggregator scores and classifies validation outcomes.
type Aggregator struct {
	policy Policy
	logger *zap.Logger
}

// New creates an aggregator with the given policy.
func New(policy Policy, logger *zap.Logger) *Aggregator {
	return &Aggregator{policy: policy, logger: logger}
}

// Aggregate produces the final verdict. A malformed violation list (unknown
// severity) indicates a bug upstream and is returned as an error rather than
// absorbed into a verdict.
func (a *Aggregator) Aggregate(violations []compliance.Violation, sem semantic.Outcome, strictMode bool) (*compliance.ValidationResult, error) {
	rulePoints := 0
	hasCritical := false
	for _, v := range violations {
		pts, ok := a.policy.SeverityPoints[v.Severity]
		if !ok {
			return nil, fmt.Errorf("violation %q carries unknown severity %q", v.Type, v.Severity)
		}
		rulePoints += pts
		if v.Severity == compliance.SeverityCritical {
			hasCritical = true
		}
	}
	if rulePoints > 100 {
		rulePoints = 100
	}

	weight := a.policy.RealtimeWeight
	if strictMode {
		weight = a.policy.StrictWeight
	}

	score := float64(rulePoints)
	if sem.Status == semantic.StatusOK && sem.Review != nil {
		score += float64(sem.Review.RiskScore) * weight
	}
	finalScore := int(score)
	if finalScore > 100 {
		finalScore = 100
	}

	level := a.band(finalScore)
	fallback := sem.Failed()
	if fallback && level.Ordinal() < compliance.RiskLevelMedium.Ordinal() {
		level = compliance.RiskLevelMedium
	}

	// A single critical violation blocks compliance regardless of score.
	compliant := level == compliance.RiskLevelLow && !hasCritical && !fallback

	suggestions := collectSuggestions(violations, sem, fallback)

	// Surface what the model flagged as a stage-2 violation. The semantic
	// score is already blended in, so this carries no extra points.
	if sem.Status == semantic.StatusOK && sem.Review != nil &&
		len(sem.Review.FlaggedPhrases) > 0 && sem.Review.RiskScore >= a.policy.BandLow {
		violations = append(violations, compliance.Violation{
			Type:        "semantic_risk",
			Severity:    compliance.SeverityMedium,
			Description: fmt.Sprintf("Semantic review flagged: %s", strings.Join(sem.Review.FlaggedPhrases, "; ")),
			Stage:       compliance.StageSemantic,
		})
	}

	result := &compliance.ValidationResult{
		IsCompliant:  compliant,
		RiskScore:    finalScore,
		RiskLevel:    level,
		ColorCode:    level.ColorCode(),
		Violations:   violations,
		Suggestions:  suggestions,
		FallbackUsed: fallback,
	}
	return result, nil
}

func (a *Aggregator) band(score int) compliance.RiskLevel {
	switch {
	case score < a.policy.BandLow:
		return compliance.RiskLevelLow
	case score < a.policy.BandMedium:
		return compliance.RiskLevelMedium
	case score < a.policy.BandHigh:
		return compliance.RiskLevelHigh
	default:
		return compliance.RiskLevelCritical
	}
}

// collectSuggestions merges rule and semantic suggestions, deduplicated and
// in detection order.
func collectSuggestions(violations []compliance.Violation, sem semantic.Outcome, fallback bool) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, v := range violations {
		add(v.Suggestion)
	}
	if sem.Status == semantic.StatusOK && sem.Review != nil {
		for _, s := range sem.Review.Suggestions {
			add(s)
		}
	}
	if fallback {
		add(ManualReviewSuggestion)
	}
	return out
}
