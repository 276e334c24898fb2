package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/compliance"
	"github.com/sebishield/validation-engine/internal/semantic"
)

func testPolicy() Policy {
	return Policy{
		SeverityPoints: map[compliance.Severity]int{
			compliance.SeverityLow:      5,
			compliance.SeverityMedium:   15,
			compliance.SeverityHigh:     30,
			compliance.SeverityCritical: 50,
		},
		StrictWeight:   0.8,
		RealtimeWeight: 0.4,
		BandLow:        30,
		BandMedium:     60,
		BandHigh:       85,
	}
}

func violation(sev compliance.Severity) compliance.Violation {
	return compliance.Violation{
		Type:        "test_" + string(sev),
		Severity:    sev,
		Description: "test violation",
		Suggestion:  "fix " + string(sev),
		Stage:       compliance.StageRules,
	}
}

func okOutcome(score int) semantic.Outcome {
	return semantic.Outcome{Status: semantic.StatusOK, Review: &semantic.Review{RiskScore: score}}
}

func TestAggregate_CleanContent(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	result, err := agg.Aggregate(nil, okOutcome(10), false)
	require.NoError(t, err)

	assert.True(t, result.IsCompliant)
	assert.Equal(t, 4, result.RiskScore) // 10 * 0.4
	assert.Equal(t, compliance.RiskLevelLow, result.RiskLevel)
	assert.Equal(t, "green", result.ColorCode)
	assert.False(t, result.FallbackUsed)
	assert.Empty(t, result.Violations)
}

func TestAggregate_SeverityPoints(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	result, err := agg.Aggregate([]compliance.Violation{
		violation(compliance.SeverityLow),
		violation(compliance.SeverityMedium),
		violation(compliance.SeverityHigh),
	}, okOutcome(0), false)
	require.NoError(t, err)

	assert.Equal(t, 50, result.RiskScore)
	assert.Equal(t, compliance.RiskLevelMedium, result.RiskLevel)
	assert.Equal(t, "yellow", result.ColorCode)
	assert.False(t, result.IsCompliant)
}

func TestAggregate_ScoreCappedAt100(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	result, err := agg.Aggregate([]compliance.Violation{
		violation(compliance.SeverityCritical),
		violation(compliance.SeverityCritical),
		violation(compliance.SeverityCritical),
	}, okOutcome(100), true)
	require.NoError(t, err)

	assert.Equal(t, 100, result.RiskScore)
	assert.Equal(t, compliance.RiskLevelCritical, result.RiskLevel)
	assert.Equal(t, "red", result.ColorCode)
}

func TestAggregate_StrictModeWeighsSemanticHigher(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	realtime, err := agg.Aggregate(nil, okOutcome(50), false)
	require.NoError(t, err)
	strict, err := agg.Aggregate(nil, okOutcome(50), true)
	require.NoError(t, err)

	assert.Equal(t, 20, realtime.RiskScore) // 50 * 0.4
	assert.Equal(t, 40, strict.RiskScore)   // 50 * 0.8
	assert.Greater(t, strict.RiskScore, realtime.RiskScore)
}

func TestAggregate_CriticalOverridesLowScore(t *testing.T) {
	// One critical violation blocks compliance even if the banded level
	// would otherwise read low. With 50 points the band is medium here, so
	// push the policy to make the override observable.
	policy := testPolicy()
	policy.SeverityPoints[compliance.SeverityCritical] = 10
	agg := New(policy, zap.NewNop())

	result, err := agg.Aggregate([]compliance.Violation{violation(compliance.SeverityCritical)}, okOutcome(0), false)
	require.NoError(t, err)

	assert.Equal(t, compliance.RiskLevelLow, result.RiskLevel)
	assert.False(t, result.IsCompliant, "critical violation must block compliance regardless of score")
}

func TestAggregate_Monotonicity(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	base := []compliance.Violation{violation(compliance.SeverityLow)}
	withExtra := append(append([]compliance.Violation{}, base...), violation(compliance.SeverityMedium))

	baseResult, err := agg.Aggregate(base, okOutcome(20), false)
	require.NoError(t, err)
	extraResult, err := agg.Aggregate(withExtra, okOutcome(20), false)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, extraResult.RiskScore, baseResult.RiskScore)
}

func TestAggregate_Fallback(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	for _, status := range []semantic.Status{semantic.StatusTimeout, semantic.StatusError} {
		result, err := agg.Aggregate(nil, semantic.Outcome{Status: status}, false)
		require.NoError(t, err)

		assert.True(t, result.FallbackUsed)
		assert.False(t, result.IsCompliant, "fallback verdict must never be compliant")
		assert.GreaterOrEqual(t, result.RiskLevel.Ordinal(), compliance.RiskLevelMedium.Ordinal())
		assert.Contains(t, result.Suggestions, ManualReviewSuggestion)
	}
}

func TestAggregate_SkippedSemanticIsNotFallback(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	result, err := agg.Aggregate(nil, semantic.Outcome{Status: semantic.StatusSkipped}, false)
	require.NoError(t, err)

	assert.False(t, result.FallbackUsed)
	assert.True(t, result.IsCompliant)
	assert.Equal(t, 0, result.RiskScore)
}

func TestAggregate_SuggestionsDeduplicated(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	v1 := violation(compliance.SeverityLow)
	v2 := violation(compliance.SeverityMedium)
	v2.Suggestion = v1.Suggestion

	sem := semantic.Outcome{
		Status: semantic.StatusOK,
		Review: &semantic.Review{RiskScore: 5, Suggestions: []string{v1.Suggestion, "add a disclaimer"}},
	}

	result, err := agg.Aggregate([]compliance.Violation{v1, v2}, sem, false)
	require.NoError(t, err)

	assert.Equal(t, []string{v1.Suggestion, "add a disclaimer"}, result.Suggestions)
}

func TestAggregate_SemanticRiskViolation(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	sem := semantic.Outcome{
		Status: semantic.StatusOK,
		Review: &semantic.Review{RiskScore: 70, FlaggedPhrases: []string{"wealth multiplier"}},
	}

	result, err := agg.Aggregate(nil, sem, true)
	require.NoError(t, err)

	require.Len(t, result.Violations, 1)
	assert.Equal(t, "semantic_risk", result.Violations[0].Type)
	assert.Equal(t, compliance.StageSemantic, result.Violations[0].Stage)
	assert.Contains(t, result.Violations[0].Description, "wealth multiplier")
}

func TestAggregate_UnknownSeverityIsError(t *testing.T) {
	agg := New(testPolicy(), zap.NewNop())

	_, err := agg.Aggregate([]compliance.Violation{{Type: "bad", Severity: "catastrophic"}}, okOutcome(0), false)
	assert.Error(t, err)
}
