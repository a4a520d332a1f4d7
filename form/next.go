package form

import (
	"fmt"
	"slices"
	"sort"
)

// End is the successor name meaning "the form is complete".
const End = ""

// Condition matches the value id produced by the preceding field.
type Condition struct {
	equals string
	match  func(valueID string) bool
}

func Equals(valueID string) Condition {
	return Condition{equals: valueID}
}

func Matches(fn func(valueID string) bool) Condition {
	return Condition{match: fn}
}

func (c Condition) holds(valueID string) bool {
	if c.match != nil {
		return c.match(valueID)
	}
	return c.equals == valueID
}

type Case struct {
	When Condition
	Then string
}

func When(cond Condition, then string) Case {
	return Case{When: cond, Then: then}
}

type nextKind int

const (
	nextConstant nextKind = iota
	nextSwitch
	nextPredicate
)

// NextFieldGetter picks the field that follows an answered one. It is one of
// three variants: a constant target, a switch over the value id with a
// fallback, or a predicate restricted to a declared set of targets.
type NextFieldGetter struct {
	kind     nextKind
	target   string
	cases    []Case
	possible []string
	pick     func(userID int64, value any) string
}

func Next(name string) *NextFieldGetter {
	return &NextFieldGetter{kind: nextConstant, target: name}
}

func FormEnd() *NextFieldGetter {
	return Next(End)
}

func Switch(fallback string, cases ...Case) *NextFieldGetter {
	return &NextFieldGetter{kind: nextSwitch, target: fallback, cases: slices.Clone(cases)}
}

// ByValue switches on exact value ids.
func ByValue(mapping map[string]string, fallback string) *NextFieldGetter {
	ids := make([]string, 0, len(mapping))
	for id := range mapping {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	cases := make([]Case, 0, len(ids))
	for _, id := range ids {
		cases = append(cases, When(Equals(id), mapping[id]))
	}
	return Switch(fallback, cases...)
}

// ByPredicate lets pick choose freely among possible. Returning a name outside
// possible is a runtime error.
func ByPredicate(possible []string, pick func(userID int64, value any) string) *NextFieldGetter {
	return &NextFieldGetter{kind: nextPredicate, possible: slices.Clone(possible), pick: pick}
}

// PossibleNext lists every name the getter can produce, without duplicates.
func (g *NextFieldGetter) PossibleNext() []string {
	var names []string
	switch g.kind {
	case nextConstant:
		names = []string{g.target}
	case nextSwitch:
		for _, c := range g.cases {
			names = append(names, c.Then)
		}
		names = append(names, g.target)
	case nextPredicate:
		names = slices.Clone(g.possible)
	}
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func (g *NextFieldGetter) resolve(userID int64, value any, valueID string) (string, error) {
	switch g.kind {
	case nextConstant:
		return g.target, nil
	case nextSwitch:
		for _, c := range g.cases {
			if c.When.holds(valueID) {
				return c.Then, nil
			}
		}
		return g.target, nil
	case nextPredicate:
		name := g.pick(userID, value)
		if !slices.Contains(g.possible, name) {
			return "", fmt.Errorf("next field %q is not among declared successors %q", name, g.possible)
		}
		return name, nil
	}
	return "", fmt.Errorf("unknown next field getter kind %d", g.kind)
}
