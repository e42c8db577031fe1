package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"osc-console/errors"
)

// NameCriterion tags every participant whose name contains a match of Pattern.
type NameCriterion struct {
	Tag     string
	Pattern string
}

// DefaultNameCriteria mirrors the stock tagging rules of the console.
func DefaultNameCriteria() []NameCriterion {
	return []NameCriterion{
		{Tag: "Host", Pattern: "^Host"},
		{Tag: "Student", Pattern: "^STU"},
		{Tag: "Teacher", Pattern: "^TCH"},
		{Tag: "Guest", Pattern: "^GST"},
		{Tag: "VIP", Pattern: "^VIP"},
	}
}

// ParseNameCriteria reads "Tag=Pattern;Tag=Pattern" lists.
func ParseNameCriteria(raw string) ([]NameCriterion, error) {
	var res []NameCriterion
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, pattern, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(tag) == "" || pattern == "" {
			return nil, fmt.Errorf("%w: %q", errors.ErrInvalidCriteria, part)
		}
		res = append(res, NameCriterion{Tag: strings.TrimSpace(tag), Pattern: pattern})
	}
	return res, nil
}

type compiledCriterion struct {
	tag string
	re  *regexp.Regexp
}

// Tagger derives participant tags. Rules are evaluated in order, as independent
// searches: every matching rule contributes its tag.
type Tagger struct {
	criteria []compiledCriterion
}

func NewTagger(criteria []NameCriterion) (*Tagger, error) {
	compiled := make([]compiledCriterion, 0, len(criteria))
	for _, c := range criteria {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: tag %s: %v", errors.ErrInvalidCriteria, c.Tag, err)
		}
		compiled = append(compiled, compiledCriterion{tag: c.Tag, re: re})
	}
	return &Tagger{criteria: compiled}, nil
}

// Tags is a pure function of name, role and the configured criteria.
func (t *Tagger) Tags(name string, role Role) []string {
	set := map[string]struct{}{role.String(): {}}
	for _, c := range t.criteria {
		if c.re.MatchString(name) {
			set[c.tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
