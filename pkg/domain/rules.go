package domain

import (
	"fmt"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether a fit is accepted.
const (
	// SeverityBlock marks the fit as invalid.
	SeverityBlock Severity = "block"
	// SeverityWarn reports a problem but keeps the fit valid.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	HolderID string   `json:"holder,omitempty"`
	TypeID   TypeID   `json:"type_id,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	var rules []string
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			rules = append(rules, v.Rule)
		}
	}
	if len(rules) == 0 {
		return "fit blocked by rules"
	}
	return fmt.Sprintf("fit blocked by rules: %s", strings.Join(rules, ", "))
}
