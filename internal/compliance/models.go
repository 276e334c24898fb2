package compliance

import (
	"time"
)

// ContentType identifies the channel a piece of advisor content is written for.
type ContentType string

const (
	ContentTypeWhatsApp ContentType = "whatsapp"
	ContentTypeStatus   ContentType = "status"
	ContentTypeLinkedIn ContentType = "linkedin"
	ContentTypeEmail    ContentType = "email"
	ContentTypeGeneral  ContentType = "general"
)

// Language identifies the language the content is written in.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageMarathi Language = "mr"
)

// Severity classifies how serious a violation is. Severity is a static
// property of the rule that detected the violation, not of the match.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Ordinal returns a numeric level for severity comparison. Higher is worse.
// Unknown severities map to 0.
func (s Severity) Ordinal() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	return s.Ordinal() > 0
}

// Stage identifies which pipeline stage detected a violation.
type Stage int

const (
	StageInput       Stage = 0
	StageRules       Stage = 1
	StageSemantic    Stage = 2
	StageAggregation Stage = 3
)

// RiskLevel is the banded interpretation of the final risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Ordinal returns a numeric level for risk comparison. Higher is worse.
func (r RiskLevel) Ordinal() int {
	switch r {
	case RiskLevelLow:
		return 1
	case RiskLevelMedium:
		return 2
	case RiskLevelHigh:
		return 3
	case RiskLevelCritical:
		return 4
	default:
		return 0
	}
}

// ColorCode returns the traffic-light code mirroring the risk level 1:1.
func (r RiskLevel) ColorCode() string {
	switch r {
	case RiskLevelLow:
		return "green"
	case RiskLevelMedium:
		return "yellow"
	case RiskLevelHigh:
		return "orange"
	case RiskLevelCritical:
		return "red"
	default:
		return "red"
	}
}

// ValidationRequest is a single piece of advisor content submitted for a
// compliance check. Content length bounds are enforced before any pipeline
// stage runs.
type ValidationRequest struct {
	Content     string      `json:"content" validate:"required,min=10,max=2000"`
	ContentType ContentType `json:"content_type" validate:"required,oneof=whatsapp status linkedin email general"`
	Language    Language    `json:"language" validate:"required,oneof=en hi mr"`
	AdvisorID   string      `json:"advisor_id" validate:"required"`
	EUIN        string      `json:"euin,omitempty"`
	StrictMode  bool        `json:"strict_mode"`
}

// Violation records a single detected compliance problem.
type Violation struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion,omitempty"`
	Stage       Stage    `json:"stage"`
}

// AuditEntry records one stage decision with its timing.
type AuditEntry struct {
	Stage      string    `json:"stage"`
	Decision   string    `json:"decision"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// ValidationResult is the final verdict returned to the caller. The violations
// list preserves detection order; suggestions are deduplicated.
type ValidationResult struct {
	IsCompliant  bool         `json:"is_compliant"`
	RiskScore    int          `json:"risk_score"`
	RiskLevel    RiskLevel    `json:"risk_level"`
	ColorCode    string       `json:"color_code"`
	Violations   []Violation  `json:"violations"`
	Suggestions  []string     `json:"suggestions"`
	FinalContent string       `json:"final_content,omitempty"`
	FallbackUsed bool         `json:"fallback_used"`
	AuditLog     []AuditEntry `json:"audit_log,omitempty"`
}

// Clone returns a deep copy so cached verdicts cannot be mutated by callers.
func (r *ValidationResult) Clone() *ValidationResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Violations = append([]Violation(nil), r.Violations...)
	out.Suggestions = append([]string(nil), r.Suggestions...)
	out.AuditLog = append([]AuditEntry(nil), r.AuditLog...)
	return &out
}

// AdvisorMetrics is the per-advisor latency summary exposed by the tracker.
type AdvisorMetrics struct {
	AdvisorID string        `json:"advisor_id"`
	AvgTime   time.Duration `json:"avg_time_ms"`
	P95Time   time.Duration `json:"p95_time_ms"`
	Samples   int           `json:"samples"`
}
