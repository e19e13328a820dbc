package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// stableWait bounds the best-effort DOM stability wait after navigation.
const stableWait = 10 * time.Second

// findByTextJS returns the innermost elements under the receiver (or the
// document) matching css whose text contains, or equals, text.
const findByTextJS = `function(css, text, exact) {
	const root = (this && this.nodeType === 1) ? this : document;
	const match = (el) => {
		const t = (el.textContent || '').trim();
		return exact ? t === text : t.includes(text);
	};
	const all = Array.from(root.querySelectorAll(css)).filter(match);
	return all.filter(el => !all.some(o => o !== el && el.contains(o)));
}`

const parentJS = `function() { return this.parentElement ? [this.parentElement] : []; }`

const nextSiblingsJS = `function() {
	const out = [];
	for (let s = this.nextElementSibling; s; s = s.nextElementSibling) out.push(s);
	return out;
}`

const scriptClickJS = `function(css, text) {
	const els = Array.from(document.querySelectorAll(css))
		.filter(el => !text || (el.textContent || '').includes(text));
	if (els.length === 0) return false;
	els[0].click();
	return true;
}`

const markJS = `function(selectors, attr) {
	let n = 0;
	for (const sel of selectors) {
		document.querySelectorAll(sel).forEach(el => { el.setAttribute(attr, 'true'); n++; });
	}
	return n;
}`

// rodPage adapts a *rod.Page to Page. Every call runs under its own
// operation timeout derived from the caller's context.
type rodPage struct {
	page    *rod.Page
	timeout time.Duration
}

// NewRodPage wraps page. timeout bounds each individual call; zero disables it.
func NewRodPage(page *rod.Page, timeout time.Duration) Page {
	return &rodPage{page: page, timeout: timeout}
}

func (p *rodPage) bind(ctx context.Context) (*rod.Page, context.CancelFunc) {
	if p.timeout <= 0 {
		return p.page.Context(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	return p.page.Context(ctx), cancel
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg, cancel := p.bind(ctx)
	defer cancel()

	if err := pg.Navigate(url); err != nil {
		return err
	}

	stableCtx, stableCancel := context.WithTimeout(ctx, stableWait)
	defer stableCancel()
	if err := p.page.Context(stableCtx).WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"url", url, "error", err,
		)
	}
	return nil
}

func (p *rodPage) Find(ctx context.Context, loc Locator) ([]Element, error) {
	pg, cancel := p.bind(ctx)
	defer cancel()

	var (
		els rod.Elements
		err error
	)
	if loc.Text == "" {
		els, err = pg.Elements(loc.CSS)
	} else {
		els, err = pg.ElementsByJS(rod.Eval(findByTextJS, loc.CSS, loc.Text, loc.Exact))
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}
	return wrapElements(els, p.timeout), nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	pg, cancel := p.bind(ctx)
	defer cancel()
	return pg.HTML()
}

func (p *rodPage) ScrollTo(ctx context.Context, fraction float64) error {
	pg, cancel := p.bind(ctx)
	defer cancel()
	_, err := pg.Eval(`function(f) { window.scrollTo(0, document.body.scrollHeight * f); }`, fraction)
	return err
}

func (p *rodPage) ScrollBy(ctx context.Context, dy int) error {
	pg, cancel := p.bind(ctx)
	defer cancel()
	_, err := pg.Eval(`function(dy) { window.scrollBy(0, dy); }`, dy)
	return err
}

func (p *rodPage) Press(ctx context.Context, key Key) error {
	pg, cancel := p.bind(ctx)
	defer cancel()

	var k input.Key
	switch key {
	case KeyEnter:
		k = input.Enter
	case KeyEscape:
		k = input.Escape
	default:
		return fmt.Errorf("unsupported key %q", key)
	}
	return pg.KeyActions().Press(k).Do()
}

func (p *rodPage) Mark(ctx context.Context, selectors []string, attr string) (int, error) {
	pg, cancel := p.bind(ctx)
	defer cancel()

	res, err := pg.Eval(markJS, selectors, attr)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (p *rodPage) ScriptClick(ctx context.Context, loc Locator) (bool, error) {
	pg, cancel := p.bind(ctx)
	defer cancel()

	res, err := pg.Eval(scriptClickJS, loc.CSS, loc.Text)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// rodElement adapts a *rod.Element to Element.
type rodElement struct {
	el      *rod.Element
	timeout time.Duration
}

func wrapElements(els rod.Elements, timeout time.Duration) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, timeout: timeout})
	}
	return out
}

func (e *rodElement) bind(ctx context.Context) (*rod.Element, context.CancelFunc) {
	if e.timeout <= 0 {
		return e.el.Context(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	return e.el.Context(ctx), cancel
}

func (e *rodElement) Find(ctx context.Context, loc Locator) ([]Element, error) {
	el, cancel := e.bind(ctx)
	defer cancel()

	var (
		els rod.Elements
		err error
	)
	if loc.Text == "" {
		els, err = el.Elements(loc.CSS)
	} else {
		els, err = el.ElementsByJS(rod.Eval(findByTextJS, loc.CSS, loc.Text, loc.Exact))
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}
	return wrapElements(els, e.timeout), nil
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	el, cancel := e.bind(ctx)
	defer cancel()
	return el.Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	el, cancel := e.bind(ctx)
	defer cancel()

	v, err := el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) HTML(ctx context.Context) (string, error) {
	el, cancel := e.bind(ctx)
	defer cancel()
	return el.HTML()
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	el, cancel := e.bind(ctx)
	defer cancel()
	return el.Visible()
}

func (e *rodElement) Inside(ctx context.Context, css string) (bool, error) {
	el, cancel := e.bind(ctx)
	defer cancel()

	res, err := el.Eval(`function(s) { return this.closest(s) !== null; }`, css)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *rodElement) Parent(ctx context.Context) (Element, error) {
	el, cancel := e.bind(ctx)
	defer cancel()

	els, err := el.ElementsByJS(rod.Eval(parentJS))
	if err != nil {
		return nil, fmt.Errorf("parent: %w", err)
	}
	if len(els) == 0 {
		return nil, nil
	}
	return &rodElement{el: els[0], timeout: e.timeout}, nil
}

func (e *rodElement) NextSiblings(ctx context.Context) ([]Element, error) {
	el, cancel := e.bind(ctx)
	defer cancel()

	els, err := el.ElementsByJS(rod.Eval(nextSiblingsJS))
	if err != nil {
		return nil, fmt.Errorf("siblings: %w", err)
	}
	return wrapElements(els, e.timeout), nil
}

func (e *rodElement) Click(ctx context.Context) error {
	el, cancel := e.bind(ctx)
	defer cancel()
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Input clicks into the element and inserts text at the caret. This works
// for contenteditable editors where a value-based fill would not.
func (e *rodElement) Input(ctx context.Context, text string) error {
	el, cancel := e.bind(ctx)
	defer cancel()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	return el.Page().InsertText(text)
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	el, cancel := e.bind(ctx)
	defer cancel()
	return el.ScrollIntoView()
}

func (e *rodElement) Screenshot(ctx context.Context) ([]byte, error) {
	el, cancel := e.bind(ctx)
	defer cancel()
	return el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}
