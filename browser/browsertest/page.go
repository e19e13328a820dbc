// Package browsertest provides in-memory implementations of the browser
// interfaces backed by goquery, so scraping logic can be tested against
// static HTML without a real browser.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/rednote/browser"
	"golang.org/x/net/html"
)

// Markup attributes understood by the stub page.
const (
	// AttrClickError makes clicks on the element (or its descendants) fail.
	AttrClickError = "data-test-click-error"

	// AttrScreenshotError makes element screenshots fail.
	AttrScreenshotError = "data-test-screenshot-error"
)

// Page is a goquery-backed browser.Page. Navigate loads the HTML registered
// for a URL; hooks let a test mutate the document in response to clicks and
// key presses. It is not safe for concurrent use.
type Page struct {
	Pages   map[string]string
	Failing map[string]error

	// OnClick runs after an element is clicked, by pointer or by script.
	OnClick func(p *Page, el *goquery.Selection)

	// OnKey runs after a key press.
	OnKey func(p *Page, key browser.Key)

	// Recorded interactions.
	Navigations  []string
	Clicks       []string
	ScriptClicks []string
	Keys         []browser.Key
	Inputs       []string
	ScrollTos    []float64
	ScrollBys    []int
	IntoView     []string

	doc *goquery.Document
	url string
}

var _ browser.Page = (*Page)(nil)

// NewPage returns a stub page serving pages, keyed by URL.
func NewPage(pages map[string]string) *Page {
	p := &Page{Pages: pages, Failing: map[string]error{}}
	p.SetHTML("<html><body></body></html>")
	return p
}

// SetHTML replaces the current document. Element handles obtained before
// the call keep referring to the old document.
func (p *Page) SetHTML(src string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("browsertest: parse html: %v", err))
	}
	p.doc = doc
}

// Doc exposes the current document for assertions and hook mutations.
func (p *Page) Doc() *goquery.Document { return p.doc }

// URL returns the last navigated URL.
func (p *Page) URL() string { return p.url }

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Navigations = append(p.Navigations, url)
	if err := p.Failing[url]; err != nil {
		return err
	}
	p.url = url
	src, ok := p.Pages[url]
	if !ok {
		src = "<html><body></body></html>"
	}
	p.SetHTML(src)
	return nil
}

func (p *Page) Find(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return find(p, p.doc.Selection, loc), nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.doc.Html()
}

func (p *Page) ScrollTo(ctx context.Context, fraction float64) error {
	p.ScrollTos = append(p.ScrollTos, fraction)
	return nil
}

func (p *Page) ScrollBy(ctx context.Context, dy int) error {
	p.ScrollBys = append(p.ScrollBys, dy)
	return nil
}

func (p *Page) Press(ctx context.Context, key browser.Key) error {
	p.Keys = append(p.Keys, key)
	if p.OnKey != nil {
		p.OnKey(p, key)
	}
	return nil
}

func (p *Page) Mark(ctx context.Context, selectors []string, attr string) (int, error) {
	n := 0
	for _, s := range selectors {
		sel := p.doc.Find(s)
		sel.SetAttr(attr, "true")
		n += sel.Length()
	}
	return n, nil
}

func (p *Page) ScriptClick(ctx context.Context, loc browser.Locator) (bool, error) {
	match := p.doc.Find(loc.CSS).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return loc.Text == "" || strings.Contains(s.Text(), loc.Text)
	})
	if match.Length() == 0 {
		return false, nil
	}
	first := match.First()
	p.ScriptClicks = append(p.ScriptClicks, strings.TrimSpace(first.Text()))
	if p.OnClick != nil {
		p.OnClick(p, first)
	}
	return true, nil
}

// Element is a stub browser.Element over one goquery node.
type Element struct {
	page *Page
	sel  *goquery.Selection
}

var _ browser.Element = (*Element)(nil)

// Selection exposes the underlying node.
func (e *Element) Selection() *goquery.Selection { return e.sel }

func (e *Element) Find(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return find(e.page, e.sel, loc), nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.sel.Text(), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *Element) HTML(ctx context.Context) (string, error) {
	return goquery.OuterHtml(e.sel)
}

// Visible is false for elements inside a [hidden] subtree.
func (e *Element) Visible(ctx context.Context) (bool, error) {
	return e.sel.Closest("[hidden]").Length() == 0, nil
}

func (e *Element) Inside(ctx context.Context, css string) (bool, error) {
	return e.sel.Closest(css).Length() > 0, nil
}

func (e *Element) Parent(ctx context.Context) (browser.Element, error) {
	parent := e.sel.Parent()
	if parent.Length() == 0 {
		return nil, nil
	}
	return &Element{page: e.page, sel: parent}, nil
}

func (e *Element) NextSiblings(ctx context.Context) ([]browser.Element, error) {
	var out []browser.Element
	e.sel.NextAll().Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{page: e.page, sel: s})
	})
	return out, nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.sel.Closest("["+AttrClickError+"]").Length() > 0 {
		return errors.New("element is not clickable")
	}
	e.page.Clicks = append(e.page.Clicks, strings.TrimSpace(e.sel.Text()))
	if e.page.OnClick != nil {
		e.page.OnClick(e.page, e.sel)
	}
	return nil
}

// Input records text and, for editable elements, replaces their content.
func (e *Element) Input(ctx context.Context, text string) error {
	e.page.Inputs = append(e.page.Inputs, text)
	e.sel.SetText(text)
	return nil
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	e.page.IntoView = append(e.page.IntoView, strings.TrimSpace(e.sel.Text()))
	return nil
}

func (e *Element) Screenshot(ctx context.Context) ([]byte, error) {
	if _, ok := e.sel.Attr(AttrScreenshotError); ok {
		return nil, errors.New("screenshot failed")
	}
	return []byte("png:" + goquery.NodeName(e.sel)), nil
}

// find resolves loc under root. Text-filtered locators return only the
// innermost matches, mirroring the real page.
func find(p *Page, root *goquery.Selection, loc browser.Locator) []browser.Element {
	var nodes []*html.Node
	root.Find(loc.CSS).Each(func(_ int, s *goquery.Selection) {
		if loc.Text != "" {
			t := strings.TrimSpace(s.Text())
			if loc.Exact && t != loc.Text || !loc.Exact && !strings.Contains(t, loc.Text) {
				return
			}
		}
		nodes = append(nodes, s.Get(0))
	})
	if loc.Text != "" {
		nodes = innermost(nodes)
	}

	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Element{page: p, sel: root.FindNodes(n)})
	}
	return out
}

func innermost(nodes []*html.Node) []*html.Node {
	out := nodes[:0:0]
	for _, a := range nodes {
		contains := false
		for _, b := range nodes {
			if a != b && isAncestor(a, b) {
				contains = true
				break
			}
		}
		if !contains {
			out = append(out, a)
		}
	}
	return out
}

func isAncestor(a, b *html.Node) bool {
	for n := b.Parent; n != nil; n = n.Parent {
		if n == a {
			return true
		}
	}
	return false
}
