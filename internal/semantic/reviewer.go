// Package semantic delegates nuanced compliance review of advisor content to
// an external language-model service. The external call is bounded by a hard
// timeout; failure and timeout are first-class outcomes, never errors
// propagated to the caller.
package semantic

import (
	"context"

	"github.com/sebishield/validation-engine/internal/compliance"
)

// Status classifies the outcome of a semantic review call.
type Status int

const (
	StatusOK Status = iota
	StatusTimeout
	StatusError
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusError:
		return "error"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Review is the risk assessment produced by the language model.
type Review struct {
	RiskScore      int      `json:"risk_score"`
	FlaggedPhrases []string `json:"flagged_phrases"`
	Suggestions    []string `json:"suggestions"`
}

// Outcome is the result of a review call. Review is non-nil only when
// Status is StatusOK.
type Outcome struct {
	Status Status
	Review *Review
	Err    error
}

// Failed reports whether the aggregation stage must fall back to a
// conservative verdict because the review could not complete.
func (o Outcome) Failed() bool {
	return o.Status == StatusTimeout || o.Status == StatusError
}

// Reviewer assesses content for nuanced compliance risk.
type Reviewer interface {
	Review(ctx context.Context, content string, contentType compliance.ContentType, lang compliance.Language) Outcome
}

// DisabledReviewer is used when semantic review is turned off in config.
// It reports StatusSkipped so the aggregator scores on rules alone instead
// of forcing a fallback verdict.
type DisabledReviewer struct{}

func (DisabledReviewer) Review(ctx context.Context, content string, contentType compliance.ContentType, lang compliance.Language) Outcome {
	return Outcome{Status: StatusSkipped}
}
