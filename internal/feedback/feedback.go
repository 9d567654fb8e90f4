// Package feedback turns a scored report into ordered findings using a fixed
// table of rules.
package feedback

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/dictionary"
	"github.com/spigell/ats-scorer/internal/report"
)

// Rule produces zero or more findings from a report.
type Rule interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(in Input) ([]report.Finding, Step)
}

// Input is shared by every rule.
type Input struct {
	Report  *report.Report
	Dict    *dictionary.Dictionary
	Options Options
}

// Options are the thresholds the rules compare against.
type Options struct {
	MinFindingWeight float64
	PassThreshold    int
}

// Step describes the result of running one rule.
type Step struct {
	Checked int
	Emitted int
}

// Status represents runtime information about a rule.
type Status struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// Rules returns a fresh rule table in evaluation order.
func Rules() []Rule {
	return []Rule{
		&missingKeywordRule{},
		&missingSectionRule{},
		&partialKeywordRule{},
		&stuffingRule{},
		&headingsRule{},
		&thresholdRule{},
	}
}

// Names lists the rule names in evaluation order.
func Names() []string {
	rules := Rules()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name()
	}
	return names
}

// DisableByName marks the named rules as disabled while keeping them in the
// table. Unknown names are returned.
func DisableByName(rules []Rule, names []string, reason string) []string {
	var unknown []string
	for _, name := range names {
		found := false
		for _, r := range rules {
			if r.Name() == name {
				r.Disable(reason)
				found = true
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Run executes the rules in order and returns the findings sorted by
// severity.
func Run(in Input, rules []Rule, logger *zap.Logger) []report.Finding {
	if logger == nil {
		logger = zap.NewNop()
	}

	findings := []report.Finding{}
	for _, rule := range rules {
		if !rule.IsEnabled() {
			logger.Debug("feedback rule disabled", zap.String("name", rule.Name()))
			continue
		}

		out, step := rule.Apply(in)
		logger.Debug("feedback rule",
			zap.String("name", rule.Name()),
			zap.Int("checked", step.Checked),
			zap.Int("emitted", step.Emitted),
		)
		findings = append(findings, out...)
	}

	report.SortFindings(findings)
	return findings
}

// Generate runs the default rule table.
func Generate(r *report.Report, dict *dictionary.Dictionary, opts Options, logger *zap.Logger) []report.Finding {
	return Run(Input{Report: r, Dict: dict, Options: opts}, Rules(), logger)
}

// Describe returns status entries for the provided rules.
func Describe(rules []Rule) []Status {
	statuses := make([]Status, 0, len(rules))
	for _, r := range rules {
		st := Status{Name: r.Name(), Enabled: r.IsEnabled()}
		if reasoner, ok := r.(interface{ DisabledReason() string }); ok {
			st.Reason = reasoner.DisabledReason()
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// toggle is embedded by rules for the Disable/IsEnabled pair.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) DisabledReason() string { return t.reason }

// render substitutes {placeholders} in a template.
func render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f", v*100)
}
