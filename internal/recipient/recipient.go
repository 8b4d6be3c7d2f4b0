// Package recipient maintains the ordered, duplicate-free list of addresses
// a composed message is sent to.
package recipient

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shineum/mailform/internal/notice"
)

var (
	ErrEmpty     = errors.New("please enter an email address")
	ErrInvalid   = errors.New("please enter a valid email address")
	ErrDuplicate = errors.New("this email address is already in the list")
)

// addressPattern is deliberately permissive: something@something.something
// with no whitespace and a single "@".
var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Valid reports whether s is a syntactically acceptable address.
// Deliverability is never checked.
func Valid(s string) bool {
	return addressPattern.MatchString(s)
}

// List is an ordered set of addresses. Insertion order is preserved and is
// the order recipients are numbered in. It is not safe for concurrent use.
type List struct {
	entries []string
}

// NewList creates a List holding a copy of entries.
func NewList(entries []string) *List {
	l := &List{entries: make([]string, 0, len(entries))}
	l.entries = append(l.entries, entries...)
	return l
}

// Add appends email to the end of the list. Surrounding whitespace is
// trimmed; the duplicate check is an exact, case-sensitive comparison
// against the stored entries.
func (l *List) Add(email string) (notice.Notice, error) {
	email = strings.TrimSpace(email)

	switch {
	case email == "":
		return notice.Error(ErrEmpty), ErrEmpty
	case !Valid(email):
		return notice.Error(ErrInvalid), ErrInvalid
	case l.Contains(email):
		return notice.Error(ErrDuplicate), ErrDuplicate
	}

	l.entries = append(l.entries, email)
	return notice.Success("%s added to recipients", email), nil
}

// Remove deletes the first entry equal to email. Removing an address that
// is not in the list leaves it unchanged.
func (l *List) Remove(email string) notice.Notice {
	for i, e := range l.entries {
		if e == email {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}
	return notice.Success("%s removed from recipients", email)
}

// Clear removes every entry.
func (l *List) Clear() notice.Notice {
	n := len(l.entries)
	l.entries = l.entries[:0]
	return notice.Success("All recipients cleared (%d removed)", n)
}

// Contains reports whether email is stored exactly as given.
func (l *List) Contains(email string) bool {
	for _, e := range l.entries {
		if e == email {
			return true
		}
	}
	return false
}

// Len returns the number of recipients.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the recipients in insertion order.
func (l *List) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}
