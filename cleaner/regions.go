package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripRegions removes every element matching any of selectors, together
// with its subtree, and returns the remaining document. Unparseable input
// is returned unchanged.
func StripRegions(rawHTML string, selectors []string) string {
	if len(selectors) == 0 {
		return rawHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	for _, s := range selectors {
		doc.Find(s).Remove()
	}

	out, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return out
}
