package rules

import (
	"regexp"

	"github.com/vango-dev/devstatic/internal/errors"
)

// Entry is one pattern/action pair in declaration order.
type Entry struct {
	Pattern string
	Action  Action
}

// Rule is a compiled Entry.
type Rule struct {
	Pattern string
	Regexp  *regexp.Regexp
	Action  Action
}

// Match is the result of a successful Table.Match.
type Match struct {
	Rule *Rule

	// Groups holds every submatch; Groups[0] is the whole match.
	// Groups that did not participate are empty strings.
	Groups []string
}

// Table is an ordered, immutable list of compiled rules.
type Table struct {
	rules []*Rule
}

// Compile builds a Table from entries, preserving their order.
// It fails on the first pattern that is not a valid expression fragment.
func Compile(entries []Entry) (*Table, error) {
	t := &Table{rules: make([]*Rule, 0, len(entries))}
	for _, e := range entries {
		re, err := regexp.Compile(anchor(e.Pattern))
		if err != nil {
			return nil, errors.New(errors.CodeInvalidPattern).
				WithDetail("pattern " + quote(e.Pattern) + " is not a valid regular expression").
				Wrap(err)
		}
		t.rules = append(t.rules, &Rule{
			Pattern: e.Pattern,
			Regexp:  re,
			Action:  e.Action,
		})
	}
	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(entries []Entry) *Table {
	t, err := Compile(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Match returns the first rule whose pattern matches url.
func (t *Table) Match(url string) (Match, bool) {
	if t == nil {
		return Match{}, false
	}
	for _, r := range t.rules {
		groups := r.Regexp.FindStringSubmatch(url)
		if groups == nil {
			continue
		}
		return Match{Rule: r, Groups: groups}, true
	}
	return Match{}, false
}

// Len returns the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Rules returns the compiled rules in declaration order.
func (t *Table) Rules() []*Rule {
	if t == nil {
		return nil
	}
	out := make([]*Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func anchor(pattern string) string {
	return `^/` + pattern + `($|\?)`
}

func quote(s string) string {
	return `"` + s + `"`
}
