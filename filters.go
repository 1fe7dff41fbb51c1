package main

import (
	"fmt"
	"regexp"
	"strings"
)

// RegexFilters selects which discovered tests the harness runs, by path.
type RegexFilters struct {
	MustMatch    RegexList
	MustNotMatch RegexList
}

func (r RegexFilters) Match(path string) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(path)) &&
		!r.MustNotMatch.AnyMatch(path)
}

type RegexList struct {
	patterns []*regexp.Regexp
}

func (r RegexList) String() string {
	var ss []string
	for _, p := range r.patterns {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

func (r *RegexList) SetAll(values []string) error {
	for _, value := range values {
		rx, err := regexp.Compile(value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		r.patterns = append(r.patterns, rx)
	}
	return nil
}

func (r RegexList) IsDefined() bool {
	return len(r.patterns) != 0
}

func (r RegexList) AnyMatch(s string) bool {
	for _, p := range r.patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
