package document

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrKindMismatch is returned when a position of one kind is used with an
// engine that is already locked to the other kind.
var ErrKindMismatch = errors.New("position kind does not match document")

// Kind tags a Position as either a fixed-layout page or a reflowable location.
type Kind int

const (
	// KindNone is the zero Kind, used before any text has been received.
	KindNone Kind = iota
	// KindPage addresses fixed-layout documents by 1-based page number.
	KindPage
	// KindLocation addresses reflowable documents by an opaque location string.
	KindLocation
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPage:
		return "page"
	case KindLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Position is a tagged union of Page(number) and Location(string). The zero
// value is not a valid position; build one with Page or Location.
type Position struct {
	kind     Kind
	page     int
	location string
}

// Page returns a page-addressed position.
func Page(n int) Position {
	return Position{kind: KindPage, page: n}
}

// Location returns a location-addressed position. The string is never
// interpreted, only compared and handed back to the navigator.
func Location(loc string) Position {
	return Position{kind: KindLocation, location: loc}
}

// Kind returns the position's tag.
func (p Position) Kind() Kind { return p.kind }

// IsZero reports whether p was never set.
func (p Position) IsZero() bool { return p.kind == KindNone }

// PageNumber returns the page number and true for page positions.
func (p Position) PageNumber() (int, bool) {
	if p.kind != KindPage {
		return 0, false
	}
	return p.page, true
}

// LocationString returns the location and true for location positions.
func (p Position) LocationString() (string, bool) {
	if p.kind != KindLocation {
		return "", false
	}
	return p.location, true
}

// Equal reports whether two positions have the same kind and address.
func (p Position) Equal(o Position) bool {
	if p.kind != o.kind {
		return false
	}
	switch p.kind {
	case KindPage:
		return p.page == o.page
	case KindLocation:
		return p.location == o.location
	default:
		return true
	}
}

// String renders the position for logs and persistence.
func (p Position) String() string {
	switch p.kind {
	case KindPage:
		return "page:" + strconv.Itoa(p.page)
	case KindLocation:
		return "location:" + p.location
	default:
		return "none"
	}
}

// ParsePosition is the inverse of String.
func ParsePosition(s string) (Position, error) {
	switch {
	case len(s) > 5 && s[:5] == "page:":
		n, err := strconv.Atoi(s[5:])
		if err != nil {
			return Position{}, fmt.Errorf("invalid page position %q: %w", s, err)
		}
		return Page(n), nil
	case len(s) > 9 && s[:9] == "location:":
		return Location(s[9:]), nil
	default:
		return Position{}, fmt.Errorf("invalid position %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(b []byte) error {
	pos, err := ParsePosition(string(b))
	if err != nil {
		return err
	}
	*p = pos
	return nil
}
