package domain

import (
	"fmt"
	"strings"
)

// AlertRule turns a group baseline into the threshold a projection must
// strictly exceed to raise an alert.
type AlertRule interface {
	Threshold(b Baseline) float64
	String() string
}

// MultiplierRule alerts when predicted > mean * Factor.
type MultiplierRule struct {
	Factor float64
}

func (r MultiplierRule) Threshold(b Baseline) float64 { return b.Mean * r.Factor }

func (r MultiplierRule) String() string { return fmt.Sprintf("multiplier(%g)", r.Factor) }

// StdDevRule alerts when predicted > mean + Factor * stddev.
type StdDevRule struct {
	Factor float64
}

func (r StdDevRule) Threshold(b Baseline) float64 { return b.Mean + r.Factor*b.StdDev }

func (r StdDevRule) String() string { return fmt.Sprintf("stddev(%g)", r.Factor) }

// Alert rule names accepted by NewAlertRule.
const (
	RuleMultiplier = "multiplier"
	RuleStdDev     = "stddev"
)

// NewAlertRule builds the rule named by name. multiplier feeds the
// "multiplier" rule and stddevFactor the "stddev" rule.
func NewAlertRule(name string, multiplier, stddevFactor float64) (AlertRule, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case RuleMultiplier:
		if multiplier <= 0 {
			return nil, fmt.Errorf("alert multiplier must be positive, got %g", multiplier)
		}
		return MultiplierRule{Factor: multiplier}, nil
	case RuleStdDev:
		if stddevFactor < 0 {
			return nil, fmt.Errorf("alert stddev factor must not be negative, got %g", stddevFactor)
		}
		return StdDevRule{Factor: stddevFactor}, nil
	default:
		return nil, fmt.Errorf("unknown alert rule %q (want %q or %q)", name, RuleMultiplier, RuleStdDev)
	}
}

// IsAlert reports whether predicted strictly exceeds the rule's threshold.
func IsAlert(rule AlertRule, predicted int, b Baseline) bool {
	return float64(predicted) > rule.Threshold(b)
}
