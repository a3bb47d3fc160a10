// Package extract turns page text into sets of contact facts.
package extract

import (
	"regexp"
	"sort"
)

const (
	KindEmail = "email"
	KindPhone = "phone"
)

// FactSet is an unordered set of extracted strings.
type FactSet map[string]struct{}

// NewFactSet builds a set from the given values.
func NewFactSet(values ...string) FactSet {
	s := make(FactSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s FactSet) Add(v string) {
	s[v] = struct{}{}
}

func (s FactSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s FactSet) Len() int {
	return len(s)
}

// Merge adds every element of other into s.
func (s FactSet) Merge(other FactSet) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Pop removes and returns an arbitrary element. ok is false when the set is empty.
func (s FactSet) Pop() (v string, ok bool) {
	for v = range s {
		delete(s, v)
		return v, true
	}
	return "", false
}

// Sorted returns the elements in lexical order.
func (s FactSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Extractor derives one kind of fact from text. Implementations must be pure:
// the same text always yields the same set, and no match yields an empty set.
type Extractor interface {
	Kind() string
	Extract(text string) FactSet
}

// Default returns the built-in extractors in crawl order.
func Default() []Extractor {
	return []Extractor{NewEmail(), NewPhone()}
}

// RegexExtractor collects every non-overlapping match of a pattern.
type RegexExtractor struct {
	kind    string
	pattern *regexp.Regexp
}

// NewRegex creates an extractor of the given kind. It panics if expr does not compile.
func NewRegex(kind, expr string) *RegexExtractor {
	return &RegexExtractor{kind: kind, pattern: regexp.MustCompile(expr)}
}

func (r *RegexExtractor) Kind() string {
	return r.kind
}

func (r *RegexExtractor) Extract(text string) FactSet {
	return NewFactSet(r.pattern.FindAllString(text, -1)...)
}

// emailPattern is a shape check only; it accepts plenty of undeliverable addresses.
const emailPattern = `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`

// phonePattern deliberately over-matches digit runs. reconcile.NormalizePhone
// discards candidates that are not plausible numbers.
const phonePattern = `\+?\d{1,4}[-.\s]?\(?\d{1,3}?\)?[-.\s]?\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{1,9}`

// NewEmail returns the email address extractor.
func NewEmail() *RegexExtractor {
	return NewRegex(KindEmail, emailPattern)
}

// NewPhone returns the loose phone number extractor.
func NewPhone() *RegexExtractor {
	return NewRegex(KindPhone, phonePattern)
}
