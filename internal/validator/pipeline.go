// Package validator composes the three-stage compliance pipeline. A request
// moves Received -> LimitChecked -> CacheChecked -> (hit | Rules -> Semantic
// -> Aggregated -> CacheStored) -> Done. Only input and limit problems reject
// a request; everything else resolves to a best-effort verdict.
package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/audit"
	"github.com/sebishield/validation-engine/internal/cache"
	"github.com/sebishield/validation-engine/internal/compliance"
	"github.com/sebishield/validation-engine/internal/config"
	"github.com/sebishield/validation-engine/internal/events"
	"github.com/sebishield/validation-engine/internal/limits"
	"github.com/sebishield/validation-engine/internal/metrics"
	"github.com/sebishield/validation-engine/internal/rules"
	"github.com/sebishield/validation-engine/internal/semantic"
	"github.com/sebishield/validation-engine/internal/tracker"
)

// RuleChecker is the deterministic first stage.
type RuleChecker interface {
	Check(content string, lang compliance.Language, meta rules.Metadata) []compliance.Violation
	ApplyFixes(content string, lang compliance.Language, violations []compliance.Violation) string
}

// Aggregator is the final scoring stage.
type Aggregator interface {
	Aggregate(violations []compliance.Violation, sem semantic.Outcome, strictMode bool) (*compliance.ValidationResult, error)
}

// Pipeline wires the stages together with the cache, limiter, tracker and
// observability sinks. All collaborators are injected; the pipeline owns no
// ambient globals.
type Pipeline struct {
	cfg      config.ValidationConfig
	logger   *zap.Logger
	rules    RuleChecker
	reviewer semantic.Reviewer
	agg      Aggregator
	cache    cache.Store
	limiter  *limits.Limiter
	tracker  *tracker.Tracker
	metrics  *metrics.Collector
	events   events.Publisher
	audit    *audit.Logger
}

// New creates a pipeline. events may be a NoopPublisher and auditLog may be
// nil when the audit trail is not wanted.
func New(
	cfg config.ValidationConfig,
	logger *zap.Logger,
	ruleChecker RuleChecker,
	reviewer semantic.Reviewer,
	agg Aggregator,
	store cache.Store,
	limiter *limits.Limiter,
	perf *tracker.Tracker,
	collector *metrics.Collector,
	publisher events.Publisher,
	auditLog *audit.Logger,
) *Pipeline {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Pipeline{
		cfg:      cfg,
		logger:   logger,
		rules:    ruleChecker,
		reviewer: reviewer,
		agg:      agg,
		cache:    store,
		limiter:  limiter,
		tracker:  perf,
		metrics:  collector,
		events:   publisher,
		audit:    auditLog,
	}
}

// Validate runs one compliance check. It returns an error only for
// rejections (*compliance.InputError, *compliance.LimitExceededError) and for
// internal inconsistencies that indicate a bug; external-service failure is
// absorbed into a fallback verdict.
func (p *Pipeline) Validate(ctx context.Context, req *compliance.ValidationRequest) (*compliance.ValidationResult, error) {
	start := time.Now()
	requestID := uuid.NewString()

	if err := compliance.ValidateRequest(req); err != nil {
		p.metrics.InputRejection()
		p.recordAudit(requestID, req, "input", "rejected")
		return nil, err
	}

	mode := modeLabel(req.StrictMode)
	contentType := string(req.ContentType)

	if err := p.limiter.Allow(ctx, req.AdvisorID); err != nil {
		p.metrics.LimitRejection()
		p.recordAudit(requestID, req, "limit", "rejected")
		return nil, err
	}

	key := cache.Key(req.Content, req.ContentType, req.Language)
	if cached, ok := p.cache.Get(ctx, key); ok {
		p.metrics.CacheHit()
		p.recordAudit(requestID, req, "cache", "hit")
		p.finish(requestID, req, cached, start, mode, contentType, true)
		return cached, nil
	}
	p.metrics.CacheMiss()

	var auditLog []compliance.AuditEntry
	record := func(stage, decision string, stageStart time.Time) {
		auditLog = append(auditLog, compliance.AuditEntry{
			Stage:      stage,
			Decision:   decision,
			DurationMs: time.Since(stageStart).Milliseconds(),
			Timestamp:  time.Now(),
		})
		p.recordAudit(requestID, req, stage, decision)
	}

	rulesStart := time.Now()
	violations := p.rules.Check(req.Content, req.Language, rules.Metadata{
		ContentType: req.ContentType,
		StrictMode:  req.StrictMode,
	})
	record("rules", fmt.Sprintf("%d violation(s)", len(violations)), rulesStart)

	semStart := time.Now()
	outcome := p.reviewer.Review(ctx, req.Content, req.ContentType, req.Language)
	p.metrics.ObserveSemantic(time.Since(semStart))
	record("semantic", outcome.Status.String(), semStart)

	aggStart := time.Now()
	result, err := p.agg.Aggregate(violations, outcome, req.StrictMode)
	if err != nil {
		// A malformed violation list is a bug, not an operational condition.
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}
	record("aggregation", string(result.RiskLevel), aggStart)

	if fixed := p.rules.ApplyFixes(req.Content, req.Language, result.Violations); fixed != "" {
		result.FinalContent = fixed
	}
	result.AuditLog = auditLog

	if result.FallbackUsed {
		p.metrics.Fallback()
		p.recordAudit(requestID, req, "cache", "skipped_fallback")
	} else if ctx.Err() == nil {
		// A canceled caller discards partial work; nothing is half-committed.
		p.cache.Put(ctx, key, result, p.cfg.CacheTTL)
		p.recordAudit(requestID, req, "cache", "stored")
	}

	p.finish(requestID, req, result, start, mode, contentType, false)
	return result, nil
}

// finish records timing, SLA and the verdict event for a completed check.
func (p *Pipeline) finish(requestID string, req *compliance.ValidationRequest, result *compliance.ValidationResult, start time.Time, mode, contentType string, cacheHit bool) {
	d := time.Since(start)
	p.tracker.Record(req.AdvisorID, d)
	p.tracker.TrackSLA(d, mode, contentType)
	p.metrics.ObserveValidation(resultLabel(result), mode, contentType, d)

	p.events.PublishVerdict(events.VerdictEvent{
		ID:           requestID,
		AdvisorID:    req.AdvisorID,
		ContentType:  contentType,
		Language:     string(req.Language),
		RiskScore:    result.RiskScore,
		RiskLevel:    string(result.RiskLevel),
		IsCompliant:  result.IsCompliant,
		FallbackUsed: result.FallbackUsed,
		CacheHit:     cacheHit,
		DurationMs:   d.Milliseconds(),
		Timestamp:    time.Now(),
	})

	p.logger.Debug("Validation completed",
		zap.String("request_id", requestID),
		zap.String("advisor_id", req.AdvisorID),
		zap.Int("risk_score", result.RiskScore),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Bool("compliant", result.IsCompliant),
		zap.Bool("cache_hit", cacheHit),
		zap.Duration("duration", d))
}

func (p *Pipeline) recordAudit(requestID string, req *compliance.ValidationRequest, stage, decision string) {
	if p.audit == nil {
		return
	}
	advisorID := ""
	if req != nil {
		advisorID = req.AdvisorID
	}
	p.audit.Record(audit.NewEntry(requestID, advisorID, stage, decision))
}

func modeLabel(strict bool) string {
	if strict {
		return "strict"
	}
	return "realtime"
}

func resultLabel(result *compliance.ValidationResult) string {
	if result.IsCompliant {
		return "compliant"
	}
	return "non_compliant"
}
