// Package urlvalidation restricts file URLs to a configured set of prefixes.
package urlvalidation

import (
	"fmt"
	"strings"
)

// NotWhitelistedError is returned when a URL matches none of the prefixes.
type NotWhitelistedError struct {
	URL       string
	Whitelist []string
}

func (e *NotWhitelistedError) Error() string {
	return fmt.Sprintf("URL '%s' is not part of application's whitelisted urls: %s",
		e.URL, strings.Join(e.Whitelist, ", "))
}

// Validator checks URLs against a prefix whitelist.
// A Validator with an empty whitelist accepts every URL.
type Validator struct {
	whitelist []string
}

// New creates a Validator for the given prefixes. Blank entries are ignored.
func New(whitelist []string) *Validator {
	prefixes := make([]string, 0, len(whitelist))
	for _, p := range whitelist {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &Validator{whitelist: prefixes}
}

// Enabled reports whether any prefix is configured.
func (v *Validator) Enabled() bool {
	return v != nil && len(v.whitelist) > 0
}

// Validate returns a *NotWhitelistedError if url starts with none of the
// configured prefixes.
func (v *Validator) Validate(url string) error {
	if !v.Enabled() {
		return nil
	}
	for _, prefix := range v.whitelist {
		if strings.HasPrefix(url, prefix) {
			return nil
		}
	}
	return &NotWhitelistedError{URL: url, Whitelist: v.whitelist}
}
