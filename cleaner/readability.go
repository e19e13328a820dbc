package cleaner

import (
	"fmt"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ReadableText runs the Mozilla Readability algorithm on rawHTML and returns
// the main content as plain text. Callers strip regions they never want
// scored, such as comment threads, before calling it.
func ReadableText(rawHTML, pageURL string) (string, error) {
	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: invalid page URL %q: %w", pageURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
