package cleaner

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// ValidateSelector reports whether sel is a CSS selector group the browser
// and the test page will both accept.
func ValidateSelector(sel string) error {
	if sel == "" {
		return fmt.Errorf("empty selector")
	}
	if _, err := cascadia.ParseGroup(sel); err != nil {
		return fmt.Errorf("invalid selector %q: %w", sel, err)
	}
	return nil
}
