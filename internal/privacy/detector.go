package privacy

import (
	"fmt"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
	"go.uber.org/zap"
)

// Detector handles PII detection and masking over records. It holds no
// per-record state and is safe for concurrent use.
type Detector struct {
	standalone []DetectionRule
	quasi      []DetectionRule
	policy     Policy
	logger     *logger.Logger
}

// New creates a new PII detector instance
func New(cfg config.PrivacyConfig, log *logger.Logger) (*Detector, error) {
	return NewWithPolicy(Policy{CombinationThreshold: cfg.CombinationThreshold}, log)
}

// NewWithPolicy creates a detector from an explicit policy
func NewWithPolicy(policy Policy, log *logger.Logger) (*Detector, error) {
	if policy.CombinationThreshold < 1 {
		return nil, fmt.Errorf("combination threshold must be at least 1, got %d", policy.CombinationThreshold)
	}
	if log == nil {
		log = logger.NewNop()
	}

	detector := &Detector{
		policy: policy,
		logger: log,
	}

	for _, rule := range GetDefaultRules() {
		switch rule.Kind {
		case RuleStandalone:
			detector.standalone = append(detector.standalone, rule)
		case RuleCombinatorial:
			detector.quasi = append(detector.quasi, rule)
		}
	}

	log.Debug("Privacy detector initialized",
		zap.Int("standalone_rules", len(detector.standalone)),
		zap.Int("quasi_identifiers", len(detector.quasi)),
		zap.Int("combination_threshold", policy.CombinationThreshold),
	)

	return detector, nil
}

// Policy returns the policy the detector was built with
func (d *Detector) Policy() Policy {
	return d.policy
}

// Rules returns the rule set, standalone rules first
func (d *Detector) Rules() []DetectionRule {
	rules := make([]DetectionRule, 0, len(d.standalone)+len(d.quasi))
	rules = append(rules, d.standalone...)
	return append(rules, d.quasi...)
}

// DetectStandalone masks every standalone field whose value fully matches
// its format. Each rule is evaluated independently.
func (d *Detector) DetectStandalone(rec Record) (Record, []Finding) {
	var (
		masked   map[string]string
		findings []Finding
	)

	for _, rule := range d.standalone {
		v, ok := rec.Get(rule.Field)
		if !ok || !v.Present || !rule.Match(v.Text) {
			continue
		}
		if masked == nil {
			masked = make(map[string]string, len(d.standalone))
		}
		masked[rule.Field] = rule.Mask(v.Text)
		findings = append(findings, Finding{Field: rule.Field, Category: rule.Category, Rule: RuleStandalone})
	}

	return rec.replace(masked), findings
}

// DetectCombinatorial masks every truthy quasi-identifier once at least
// CombinationThreshold of them are present. Below the threshold the
// record is returned untouched.
func (d *Detector) DetectCombinatorial(rec Record) (Record, []Finding) {
	present := make([]DetectionRule, 0, len(d.quasi))
	for _, rule := range d.quasi {
		if v, ok := rec.Get(rule.Field); ok && v.Truthy() {
			present = append(present, rule)
		}
	}

	if len(present) < d.policy.CombinationThreshold {
		return rec, nil
	}

	masked := make(map[string]string, len(present))
	findings := make([]Finding, 0, len(present))
	for _, rule := range present {
		v, _ := rec.Get(rule.Field)
		masked[rule.Field] = rule.Mask(v.Text)
		findings = append(findings, Finding{Field: rule.Field, Category: rule.Category, Rule: RuleCombinatorial})
	}

	return rec.replace(masked), findings
}

// Process runs both detectors over a record. An empty record yields an
// empty record and no PII.
func (d *Detector) Process(rec Record) ProcessResult {
	out, standalone := d.DetectStandalone(rec)
	out, combinatorial := d.DetectCombinatorial(out)

	findings := append(standalone, combinatorial...)
	result := ProcessResult{
		Record:      out,
		ContainsPII: len(findings) > 0,
		Findings:    findings,
	}

	if result.ContainsPII && d.logger.Core().Enabled(zap.DebugLevel) {
		fields := make([]string, len(findings))
		for i, f := range findings {
			fields[i] = f.Field
		}
		d.logger.Debug("PII detected and masked",
			zap.Int("standalone", len(standalone)),
			zap.Int("combinatorial", len(combinatorial)),
			zap.Strings("fields", fields),
		)
	}

	return result
}
