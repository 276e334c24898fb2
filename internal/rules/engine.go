package rules

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sebishield/validation-engine/internal/compliance"
)

//go:embed rules.yaml
var rulePack []byte

const (
	kindMatch  = "match"
	kindAbsent = "absent"
)

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	Severity    string              `yaml:"severity"`
	Kind        string              `yaml:"kind"`
	When        string              `yaml:"when"`
	Description string              `yaml:"description"`
	Suggestion  string              `yaml:"suggestion"`
	Patterns    map[string][]string `yaml:"patterns"`
	Fix         map[string]string   `yaml:"fix"`
}

type compiledRule struct {
	id          string
	name        string
	severity    compliance.Severity
	kind        string
	description string
	suggestion  string
	patterns    map[compliance.Language][]*regexp.Regexp
	fix         map[compliance.Language]string
	when        *vm.Program
}

// Metadata carries the request attributes rule conditions can match on.
type Metadata struct {
	ContentType compliance.ContentType
	StrictMode  bool
}

// Info describes a loaded rule for the read-only listing endpoint.
type Info struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Severity    compliance.Severity `json:"severity"`
	Kind        string              `json:"kind"`
	Description string              `json:"description"`
	Languages   []string            `json:"languages"`
}

// Engine performs deterministic pattern matching against the embedded SEBI
// rule pack. It does no I/O and holds no mutable state after construction,
// so a single instance is safe for concurrent use.
type Engine struct {
	rules  []*compiledRule
	logger *zap.Logger
}

// NewEngine parses the embedded rule pack and compiles every pattern and
// condition. Returns an error if the pack is malformed.
func NewEngine(logger *zap.Logger) (*Engine, error) {
	var file ruleFile
	if err := yaml.Unmarshal(rulePack, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded rule pack: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("embedded rule pack contains no rules")
	}

	compiled := make([]*compiledRule, 0, len(file.Rules))
	for _, spec := range file.Rules {
		cr, err := compileRule(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.ID, err)
		}
		compiled = append(compiled, cr)
	}

	logger.Info("Loaded SEBI rule pack", zap.Int("rules", len(compiled)))
	return &Engine{rules: compiled, logger: logger}, nil
}

func compileRule(spec ruleSpec) (*compiledRule, error) {
	severity := compliance.Severity(spec.Severity)
	if !severity.Valid() {
		return nil, fmt.Errorf("unknown severity %q", spec.Severity)
	}

	kind := spec.Kind
	if kind == "" {
		kind = kindMatch
	}
	if kind != kindMatch && kind != kindAbsent {
		return nil, fmt.Errorf("unknown kind %q", spec.Kind)
	}
	if len(spec.Patterns) == 0 {
		return nil, fmt.Errorf("rule has no patterns")
	}

	cr := &compiledRule{
		id:          spec.ID,
		name:        spec.Name,
		severity:    severity,
		kind:        kind,
		description: spec.Description,
		suggestion:  spec.Suggestion,
		patterns:    make(map[compliance.Language][]*regexp.Regexp, len(spec.Patterns)),
		fix:         make(map[compliance.Language]string, len(spec.Fix)),
	}

	for lang, pats := range spec.Patterns {
		res := make([]*regexp.Regexp, 0, len(pats))
		for _, pat := range pats {
			re, err := regexp.Compile("(?i)" + pat)
			if err != nil {
				return nil, fmt.Errorf("failed to compile pattern %q: %w", pat, err)
			}
			res = append(res, re)
		}
		cr.patterns[compliance.Language(lang)] = res
	}
	for lang, text := range spec.Fix {
		cr.fix[compliance.Language(lang)] = text
	}

	if spec.When != "" {
		program, err := expr.Compile(spec.When, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile condition %q: %w", spec.When, err)
		}
		cr.when = program
	}

	return cr, nil
}

// Check runs every applicable rule against the content and returns violations
// in rule-pack order. Matching is case-insensitive; a rule fires at most once
// regardless of how many of its patterns match.
func (e *Engine) Check(content string, lang compliance.Language, meta Metadata) []compliance.Violation {
	trimmed := strings.TrimSpace(content)
	env := map[string]interface{}{
		"content_type": string(meta.ContentType),
		"strict_mode":  meta.StrictMode,
	}

	var violations []compliance.Violation
	for _, rule := range e.rules {
		if !e.applies(rule, env) {
			continue
		}
		pats, ok := rule.patterns[lang]
		if !ok {
			continue
		}

		matched := false
		for _, re := range pats {
			if re.MatchString(trimmed) {
				matched = true
				break
			}
		}

		fires := matched
		if rule.kind == kindAbsent {
			fires = !matched
		}
		if !fires {
			continue
		}

		violations = append(violations, compliance.Violation{
			Type:        rule.id,
			Severity:    rule.severity,
			Description: rule.description,
			Suggestion:  rule.suggestion,
			Stage:       compliance.StageRules,
		})
	}
	return violations
}

func (e *Engine) applies(rule *compiledRule, env map[string]interface{}) bool {
	if rule.when == nil {
		return true
	}
	out, err := expr.Run(rule.when, env)
	if err != nil {
		e.logger.Warn("Rule condition evaluation failed, applying rule",
			zap.String("rule_id", rule.id),
			zap.Error(err))
		return true
	}
	ok, _ := out.(bool)
	return ok
}

// ApplyFixes returns the content with auto-fixes for the given violations
// applied, or "" when no rule offers a fix. Currently only absent-kind rules
// carry fixes (appended text such as the mandatory disclaimer).
func (e *Engine) ApplyFixes(content string, lang compliance.Language, violations []compliance.Violation) string {
	byID := make(map[string]*compiledRule, len(e.rules))
	for _, r := range e.rules {
		byID[r.id] = r
	}

	fixed := content
	changed := false
	for _, v := range violations {
		rule, ok := byID[v.Type]
		if !ok || rule.kind != kindAbsent {
			continue
		}
		text, ok := rule.fix[lang]
		if !ok || text == "" || strings.Contains(fixed, text) {
			continue
		}
		fixed = strings.TrimRight(fixed, " \n") + "\n\n" + text
		changed = true
	}
	if !changed {
		return ""
	}
	return fixed
}

// Rules returns a read-only description of the loaded rule pack.
func (e *Engine) Rules() []Info {
	infos := make([]Info, 0, len(e.rules))
	for _, r := range e.rules {
		langs := make([]string, 0, len(r.patterns))
		for lang := range r.patterns {
			langs = append(langs, string(lang))
		}
		sort.Strings(langs)
		infos = append(infos, Info{
			ID:          r.id,
			Name:        r.name,
			Severity:    r.severity,
			Kind:        r.kind,
			Description: r.description,
			Languages:   langs,
		})
	}
	return infos
}

// Count returns the number of loaded rules.
func (e *Engine) Count() int {
	return len(e.rules)
}
