package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/cleaner"
	"github.com/use-agent/rednote/models"
)

// Extractor runs field strategies from a Table against a page or element.
// It is safe for concurrent use.
type Extractor struct {
	table  *Table
	origin string

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// New returns an Extractor over table. origin is the site root used to
// resolve relative URLs when scoring whole documents.
func New(table *Table, origin string) *Extractor {
	return &Extractor{table: table, origin: origin, patterns: map[string]*regexp.Regexp{}}
}

// Table returns the strategy table in use.
func (x *Extractor) Table() *Table { return x.table }

type candidate struct {
	value string
	el    browser.Element
}

// Extract walks f's strategies in order and returns the first accepted
// value. Page errors count as a miss for that strategy.
func (x *Extractor) Extract(ctx context.Context, node browser.Node, f Field) FieldResult {
	for i, s := range f.Strategies {
		c, ok := x.run(ctx, node, s)
		if !ok {
			continue
		}
		return FieldResult{
			Value:      c.value,
			Provenance: i,
			Accepted:   true,
			Strategy:   s.label(),
			Element:    c.el,
		}
	}
	slog.Debug("field missed every strategy", "field", f.Name)
	return miss(f)
}

// ExtractAll returns every accepted value of the first strategy that yields
// at least one, de-duplicated in document order.
func (x *Extractor) ExtractAll(ctx context.Context, node browser.Node, f Field) ListResult {
	for i, s := range f.Strategies {
		seen := map[string]bool{}
		var values []string
		for _, c := range x.candidates(ctx, node, s) {
			if !s.accept(c.value) || seen[c.value] {
				continue
			}
			seen[c.value] = true
			values = append(values, c.value)
		}
		if len(values) > 0 {
			return ListResult{Values: values, Provenance: i, Strategy: s.label()}
		}
	}
	return ListResult{Provenance: -1}
}

// MarkCommentRegions tags every comment-thread element so body strategies
// with SkipComments ignore it. It returns how many elements were tagged.
func (x *Extractor) MarkCommentRegions(ctx context.Context, page browser.Page) (int, error) {
	return page.Mark(ctx, x.table.CommentRegions, CommentAttr)
}

// Comments extracts comment records from the first container strategy that
// yields any, falling back to the author profile links when none does. A
// comment is kept only when both its author and a body longer than two runes
// are found. limit > 0 caps the result.
func (x *Extractor) Comments(ctx context.Context, node browser.Node, spec CommentSpec, limit int) []models.CommentRecord {
	for _, loc := range spec.Containers {
		containers, err := node.Find(ctx, loc)
		if err != nil {
			slog.Debug("comment container lookup failed", "locator", loc.String(), "error", err)
			continue
		}

		var out []models.CommentRecord
		for _, c := range containers {
			user := x.Extract(ctx, c, spec.Username)
			if !user.Accepted {
				continue
			}

			body := x.Extract(ctx, c, spec.Body)
			text := body.Value
			if !body.Accepted {
				text = x.bodyFromContainer(ctx, c, user.Value)
			}
			if utf8.RuneCountInString(text) <= 2 {
				continue
			}

			out = append(out, models.CommentRecord{
				Username: user.Value,
				Body:     text,
				PostedAt: x.Extract(ctx, c, spec.Time).Value,
			})
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return x.commentsFromProfileLinks(ctx, node, spec.ProfileLinks, limit)
}

// commentsFromProfileLinks reads comments without a container: the link
// text is the author and the body is the first non-empty following sibling,
// else the parent text without the author. The time is never known here.
func (x *Extractor) commentsFromProfileLinks(ctx context.Context, node browser.Node, locs []browser.Locator, limit int) []models.CommentRecord {
	var out []models.CommentRecord
	for _, loc := range locs {
		links, err := node.Find(ctx, loc)
		if err != nil {
			slog.Debug("profile link lookup failed", "locator", loc.String(), "error", err)
			continue
		}
		for _, link := range links {
			name, err := link.Text(ctx)
			if err != nil {
				continue
			}
			user := normalize(name)
			if user == "" {
				continue
			}

			text := x.siblingText(ctx, link)
			if text == "" {
				if parent, err := link.Parent(ctx); err == nil && parent != nil {
					text = x.bodyFromContainer(ctx, parent, user)
				}
			}
			if utf8.RuneCountInString(text) <= 2 {
				continue
			}

			out = append(out, models.CommentRecord{
				Username: user,
				Body:     text,
				PostedAt: models.UnknownCommentTime,
			})
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (x *Extractor) siblingText(ctx context.Context, el browser.Element) string {
	sibs, err := el.NextSiblings(ctx)
	if err != nil {
		return ""
	}
	for _, s := range sibs {
		if t, err := s.Text(ctx); err == nil && normalize(t) != "" {
			return normalize(t)
		}
	}
	return ""
}

// bodyFromContainer is the comment body fallback: the container text with
// every occurrence of the author name removed.
func (x *Extractor) bodyFromContainer(ctx context.Context, c browser.Element, username string) string {
	full, err := c.Text(ctx)
	if err != nil {
		return ""
	}
	return normalize(strings.ReplaceAll(normalize(full), username, ""))
}

func (x *Extractor) run(ctx context.Context, node browser.Node, s Strategy) (candidate, bool) {
	switch s.kind() {
	case KindReadability:
		return x.readable(ctx, node, s)
	case KindPattern:
		return x.pattern(ctx, node, s)
	}

	var (
		best  candidate
		found bool
		parts []string
	)
	for _, c := range x.candidates(ctx, node, s) {
		if !s.accept(c.value) {
			continue
		}
		if s.pick() == PickJoin {
			parts = append(parts, c.value)
			continue
		}
		if s.pick() != PickLongest {
			return c, true
		}
		if !found || utf8.RuneCountInString(c.value) > utf8.RuneCountInString(best.value) {
			best, found = c, true
		}
	}
	if s.pick() == PickJoin {
		joined := strings.Join(parts, "\n\n")
		if len(parts) == 0 || utf8.RuneCountInString(joined) < s.JoinMinRunes {
			return candidate{}, false
		}
		return candidate{value: joined}, true
	}
	return best, found
}

func (x *Extractor) candidates(ctx context.Context, node browser.Node, s Strategy) []candidate {
	els, err := node.Find(ctx, s.Locator)
	if err != nil {
		slog.Debug("strategy lookup failed", "strategy", s.label(), "error", err)
		return nil
	}

	out := make([]candidate, 0, len(els))
	for _, el := range els {
		if s.SkipComments {
			in, err := el.Inside(ctx, "["+CommentAttr+"]")
			if err != nil || in {
				continue
			}
		}

		var v string
		if s.Attr != "" {
			a, ok, err := el.Attribute(ctx, s.Attr)
			if err != nil || !ok {
				continue
			}
			v = a
		} else {
			t, err := el.Text(ctx)
			if err != nil {
				continue
			}
			v = t
		}
		out = append(out, candidate{value: normalize(v), el: el})
	}
	return out
}

func (x *Extractor) pattern(ctx context.Context, node browser.Node, s Strategy) (candidate, bool) {
	cands := x.candidates(ctx, node, s)
	for _, p := range s.Patterns {
		re := x.compile(p)
		if re == nil {
			continue
		}
		for _, c := range cands {
			if m := normalize(re.FindString(c.value)); s.accept(m) {
				return candidate{value: m, el: c.el}, true
			}
		}
	}
	return candidate{}, false
}

func (x *Extractor) readable(ctx context.Context, node browser.Node, s Strategy) (candidate, bool) {
	page, ok := node.(browser.Page)
	if !ok {
		return candidate{}, false
	}
	raw, err := page.HTML(ctx)
	if err != nil {
		slog.Debug("readability: reading document failed", "error", err)
		return candidate{}, false
	}
	if s.SkipComments {
		raw = cleaner.StripRegions(raw, append([]string{"[" + CommentAttr + "]"}, x.table.CommentRegions...))
	}
	text, err := cleaner.ReadableText(raw, x.origin)
	if err != nil {
		slog.Debug("readability strategy failed", "error", err)
		return candidate{}, false
	}
	text = normalize(text)
	if !s.accept(text) {
		return candidate{}, false
	}
	return candidate{value: text}, true
}

func (x *Extractor) compile(p string) *regexp.Regexp {
	x.mu.Lock()
	defer x.mu.Unlock()

	if re, ok := x.patterns[p]; ok {
		return re
	}
	re, err := regexp.Compile(p)
	if err != nil {
		slog.Warn("skipping invalid extraction pattern", "pattern", p, "error", err)
	}
	x.patterns[p] = re
	return re
}
