package ussd

import "strings"

// Delimiter separates keystrokes in the aggregator's cumulative text field
const Delimiter = "*"

// Breadcrumb is the parsed keystroke history of one telecom session. The
// aggregator resends the entire history on every request, so the last element
// is the user's newest choice and the length tells us how deep they are.
type Breadcrumb struct {
	keys []string
}

// ParseBreadcrumb splits the aggregator text field into ordered keystrokes.
// An empty text means first contact and yields an empty breadcrumb.
func ParseBreadcrumb(text string) Breadcrumb {
	if text == "" {
		return Breadcrumb{}
	}
	return Breadcrumb{keys: strings.Split(text, Delimiter)}
}

// Empty reports whether this is the session's first contact
func (b Breadcrumb) Empty() bool {
	return len(b.keys) == 0
}

// Depth is the number of keystrokes sent so far
func (b Breadcrumb) Depth() int {
	return len(b.keys)
}

// Last returns the most recent keystroke, or "" on first contact
func (b Breadcrumb) Last() string {
	if len(b.keys) == 0 {
		return ""
	}
	return b.keys[len(b.keys)-1]
}

// At returns the keystroke at position i, or "" if out of range
func (b Breadcrumb) At(i int) string {
	if i < 0 || i >= len(b.keys) {
		return ""
	}
	return b.keys[i]
}

// HasPrefix reports whether the keystroke history starts with the given path
func (b Breadcrumb) HasPrefix(path ...string) bool {
	if len(path) > len(b.keys) {
		return false
	}
	for i, p := range path {
		if b.keys[i] != p {
			return false
		}
	}
	return true
}
