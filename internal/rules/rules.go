package rules

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
)

// Transition is the verdict a firing rule commits.
type Transition string

const (
	TransitionUp   Transition = "up"
	TransitionDown Transition = "down"
)

// Kind selects how a rule validates. Each kind carries its own payload
// shape, checked at parse time.
type Kind string

const (
	KindStatusCode  Kind = "status_code"
	KindHeaders     Kind = "headers"
	KindBody        Kind = "body"
	KindHeadersBody Kind = "headers+body"
	KindAll         Kind = "all"
)

// RawRule is the rule shape as it appears in configuration.
type RawRule struct {
	SubjectPattern          string              `yaml:"subject_pattern"`
	ValidationType          string              `yaml:"validation_type"`
	StateTransition         string              `yaml:"state_transition"`
	RequiredStatusCode      []int               `yaml:"required_status_code"`
	RequiredHeadersPatterns map[string][]string `yaml:"required_headers_patterns"`
	RequiredBodyPatterns    []string            `yaml:"required_body_patterns"`
}

// Rule is a parsed, validated override directive. The payload fields
// populated depend on Kind.
type Rule struct {
	Pattern    *regexp.Regexp
	Kind       Kind
	Transition Transition

	StatusCodes    []int
	HeaderPatterns map[string][]*regexp.Regexp
	BodyPatterns   []*regexp.Regexp
}

// ParseRule validates one raw rule and compiles its patterns. The
// subject pattern is anchored at the start of the netloc, matching the
// way override patterns are written (prefix match, not substring
// search).
func ParseRule(raw RawRule) (*Rule, error) {
	if raw.SubjectPattern == "" {
		return nil, errors.NewRuleError(errors.ErrorRuleInvalid, "missing subject_pattern", nil)
	}

	pattern, err := regexp.Compile("^(?:" + raw.SubjectPattern + ")")
	if err != nil {
		return nil, errors.NewRuleError(errors.ErrorRuleParsingFailed, "invalid subject_pattern", err)
	}

	transition := Transition(raw.StateTransition)
	if transition != TransitionUp && transition != TransitionDown {
		return nil, errors.NewRuleError(errors.ErrorRuleInvalid,
			fmt.Sprintf("unknown state_transition %q", raw.StateTransition), nil)
	}

	rule := &Rule{
		Pattern:    pattern,
		Kind:       Kind(raw.ValidationType),
		Transition: transition,
	}

	compileHeaders := func() error {
		rule.HeaderPatterns = make(map[string][]*regexp.Regexp, len(raw.RequiredHeadersPatterns))
		for header, patterns := range raw.RequiredHeadersPatterns {
			for _, p := range patterns {
				compiled, err := regexp.Compile(p)
				if err != nil {
					return errors.NewRuleError(errors.ErrorRuleParsingFailed,
						fmt.Sprintf("invalid header pattern for %q", header), err)
				}
				rule.HeaderPatterns[header] = append(rule.HeaderPatterns[header], compiled)
			}
		}
		return nil
	}

	compileBody := func() error {
		for _, p := range raw.RequiredBodyPatterns {
			compiled, err := regexp.Compile(p)
			if err != nil {
				return errors.NewRuleError(errors.ErrorRuleParsingFailed, "invalid body pattern", err)
			}
			rule.BodyPatterns = append(rule.BodyPatterns, compiled)
		}
		return nil
	}

	switch rule.Kind {
	case KindStatusCode:
		if len(raw.RequiredStatusCode) == 0 {
			return nil, errors.NewRuleError(errors.ErrorRuleInvalid, "status_code rule without required_status_code", nil)
		}
		rule.StatusCodes = raw.RequiredStatusCode

	case KindHeaders:
		if len(raw.RequiredHeadersPatterns) == 0 {
			return nil, errors.NewRuleError(errors.ErrorRuleInvalid, "headers rule without required_headers_patterns", nil)
		}
		if err := compileHeaders(); err != nil {
			return nil, err
		}

	case KindBody:
		if len(raw.RequiredBodyPatterns) == 0 {
			return nil, errors.NewRuleError(errors.ErrorRuleInvalid, "body rule without required_body_patterns", nil)
		}
		if err := compileBody(); err != nil {
			return nil, err
		}

	case KindHeadersBody:
		if len(raw.RequiredHeadersPatterns) == 0 && len(raw.RequiredBodyPatterns) == 0 {
			return nil, errors.NewRuleError(errors.ErrorRuleInvalid, "headers+body rule without any patterns", nil)
		}
		if err := compileHeaders(); err != nil {
			return nil, err
		}
		if err := compileBody(); err != nil {
			return nil, err
		}

	case KindAll:
		if len(raw.RequiredStatusCode) == 0 &&
			len(raw.RequiredHeadersPatterns) == 0 &&
			len(raw.RequiredBodyPatterns) == 0 {
			return nil, errors.NewRuleError(errors.ErrorRuleInvalid, "all rule without any payload", nil)
		}
		rule.StatusCodes = raw.RequiredStatusCode
		if err := compileHeaders(); err != nil {
			return nil, err
		}
		if err := compileBody(); err != nil {
			return nil, err
		}

	default:
		return nil, errors.NewRuleError(errors.ErrorRuleInvalid,
			fmt.Sprintf("unknown validation_type %q", raw.ValidationType), nil)
	}

	return rule, nil
}

// Parse validates a whole rule list. Malformed rules are diagnosed and
// skipped, never fatal; the returned warnings carry one message per
// skipped rule with its list index.
func Parse(raws []RawRule) (rules []*Rule, warnings []string) {
	for i, raw := range raws {
		rule, err := ParseRule(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("rule %d skipped: %v", i, err))
			continue
		}
		rules = append(rules, rule)
	}
	return rules, warnings
}

// LoadFile reads a YAML rule list from disk and parses it.
func LoadFile(filename string) (rules []*Rule, warnings []string, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, errors.NewFileError(errors.ErrorFileReadFailed, "failed to read rules file", filename, err)
	}

	var raws []RawRule
	if err := yaml.Unmarshal(data, &raws); err != nil {
		return nil, nil, errors.NewRuleError(errors.ErrorRuleParsingFailed, "failed to parse rules file", err)
	}

	rules, warnings = Parse(raws)
	return rules, warnings, nil
}

// Matches reports whether the rule applies to the given netloc.
func (r *Rule) Matches(netloc string) bool {
	return r.Pattern.MatchString(netloc)
}
