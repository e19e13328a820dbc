// Package browser owns the shared browser session and the narrow page
// abstraction every scraping operation is written against.
package browser

import (
	"context"
	"strconv"
)

// Locator describes how to find elements: a CSS selector, optionally narrowed
// to elements whose text contains (or, with Exact, equals) Text. When several
// nested elements match a text filter only the innermost ones are returned.
type Locator struct {
	CSS   string `yaml:"css"`
	Text  string `yaml:"text,omitempty"`
	Exact bool   `yaml:"exact,omitempty"`
}

// CSS returns a plain selector locator.
func CSS(selector string) Locator { return Locator{CSS: selector} }

// HasText returns a locator for elements matching selector whose text contains text.
func HasText(selector, text string) Locator { return Locator{CSS: selector, Text: text} }

// ExactText returns a locator for elements matching selector whose trimmed text equals text.
func ExactText(selector, text string) Locator {
	return Locator{CSS: selector, Text: text, Exact: true}
}

func (l Locator) String() string {
	if l.Text == "" {
		return l.CSS
	}
	if l.Exact {
		return l.CSS + ` text=` + strconv.Quote(l.Text)
	}
	return l.CSS + ` has-text=` + strconv.Quote(l.Text)
}

// Key is a keyboard key understood by Page.Press.
type Key string

const (
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// Node is anything elements can be searched under.
type Node interface {
	// Find returns every element matching loc in document order. No match is
	// an empty slice and a nil error; Find never waits for elements to appear.
	Find(ctx context.Context, loc Locator) ([]Element, error)
}

// Page is a single browser tab. It is owned by the Session and only borrowed
// by operations, which must never close it.
type Page interface {
	Node

	// Navigate loads url. It fails only when the request itself fails.
	Navigate(ctx context.Context, url string) error

	// HTML returns the current document markup.
	HTML(ctx context.Context) (string, error)

	// ScrollTo scrolls the window to fraction (0 top, 1 bottom) of the document height.
	ScrollTo(ctx context.Context, fraction float64) error

	// ScrollBy scrolls the window vertically by dy pixels.
	ScrollBy(ctx context.Context, dy int) error

	// Press sends a key press to the focused element.
	Press(ctx context.Context, key Key) error

	// Mark sets attr on every element matching any of selectors and returns
	// how many elements were tagged.
	Mark(ctx context.Context, selectors []string, attr string) (int, error)

	// ScriptClick clicks the first element matching loc from page script,
	// bypassing pointer hit testing. It reports whether anything was clicked.
	ScriptClick(ctx context.Context, loc Locator) (bool, error)
}

// Element is a handle to one DOM element.
type Element interface {
	Node

	// Text returns the element's text content.
	Text(ctx context.Context) (string, error)

	// Attribute returns the named attribute and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)

	// HTML returns the element's outer HTML.
	HTML(ctx context.Context) (string, error)

	Visible(ctx context.Context) (bool, error)

	// Inside reports whether the element or one of its ancestors matches css.
	Inside(ctx context.Context, css string) (bool, error)

	// Parent returns the parent element, or nil at the document root.
	Parent(ctx context.Context) (Element, error)

	// NextSiblings returns the following sibling elements in document order.
	NextSiblings(ctx context.Context) ([]Element, error)

	Click(ctx context.Context) error

	// Input focuses the element and types text into it.
	Input(ctx context.Context, text string) error

	ScrollIntoView(ctx context.Context) error

	// Screenshot returns a PNG of the element's box.
	Screenshot(ctx context.Context) ([]byte, error)
}
