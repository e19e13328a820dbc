// Package extract pulls note fields out of a page with ordered, declarative
// fallback strategies. Extraction never fails: a field that no strategy can
// satisfy comes back as its "unknown" sentinel.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/use-agent/rednote/browser"
)

// Kind selects how a strategy produces candidate values.
type Kind string

const (
	// KindCSS reads the text (or Attr) of elements found by the locator.
	KindCSS Kind = "css"

	// KindPattern scans the text of elements found by the locator with
	// Patterns, in order, and takes the first match.
	KindPattern Kind = "pattern"

	// KindReadability scores the whole document with Readability. It only
	// applies when extracting from a page.
	KindReadability Kind = "readability"
)

// Pick selects which acceptable candidate a strategy keeps.
type Pick string

const (
	PickFirst   Pick = "first"
	PickLongest Pick = "longest"
	PickAll     Pick = "all"

	// PickJoin joins every acceptable candidate with a blank line. The
	// joined value must also reach JoinMinRunes.
	PickJoin Pick = "join"
)

// CommentAttr tags elements that belong to a comment thread.
const CommentAttr = "data-rednote-comment"

// Strategy is one way of locating a field.
type Strategy struct {
	Name string `yaml:"name,omitempty"`
	Kind Kind   `yaml:"kind,omitempty"`

	browser.Locator `yaml:",inline"`

	// Attr reads an attribute instead of the text content.
	Attr string `yaml:"attr,omitempty"`

	Pick Pick `yaml:"pick,omitempty"`

	// MinRunes and MaxRunes bound the accepted value length. Both are
	// inclusive; a zero MaxRunes means unbounded.
	MinRunes int `yaml:"min_runes,omitempty"`
	MaxRunes int `yaml:"max_runes,omitempty"`

	JoinMinRunes int `yaml:"join_min_runes,omitempty"`

	// SkipComments discards candidates inside a CommentAttr subtree.
	SkipComments bool `yaml:"skip_comments,omitempty"`

	Patterns []string `yaml:"patterns,omitempty"`
}

func (s Strategy) kind() Kind {
	if s.Kind == "" {
		return KindCSS
	}
	return s.Kind
}

func (s Strategy) pick() Pick {
	if s.Pick == "" {
		return PickFirst
	}
	return s.Pick
}

func (s Strategy) label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.kind() == KindReadability {
		return string(KindReadability)
	}
	return s.Locator.String()
}

// accept reports whether v, already trimmed, satisfies the strategy's
// acceptance predicate.
func (s Strategy) accept(v string) bool {
	if v == "" {
		return false
	}
	n := utf8.RuneCountInString(v)
	if n < s.MinRunes {
		return false
	}
	if s.MaxRunes > 0 && n > s.MaxRunes {
		return false
	}
	return true
}

// Field is a named value with its ordered strategies and the sentinel
// reported when none of them succeeds.
type Field struct {
	Name       string     `yaml:"name,omitempty"`
	Unknown    string     `yaml:"unknown,omitempty"`
	Strategies []Strategy `yaml:"strategies"`
}

// FieldResult is the outcome of extracting one field.
type FieldResult struct {
	Value string

	// Provenance is the index of the winning strategy, or -1 on a miss.
	Provenance int

	Accepted bool
	Strategy string

	// Element is the winning element, when the strategy produced one.
	Element browser.Element
}

// ListResult is the outcome of extracting a list field.
type ListResult struct {
	Values     []string
	Provenance int
	Strategy   string
}

func miss(f Field) FieldResult {
	return FieldResult{Value: f.Unknown, Provenance: -1}
}

func normalize(s string) string {
	return strings.TrimSpace(s)
}
