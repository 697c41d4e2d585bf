// Package utils holds query-string parsing shared by the HTTP handlers.
package utils

import (
	"errors"
	"strconv"
	"strings"
)

// ErrBadPage is returned for limit or offset values that are not
// non-negative integers.
var ErrBadPage = errors.New("limit and offset must be non-negative integers")

// Page is a parsed limit/offset window. A zero Limit means "no limit".
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset query values. Empty values are zero and
// a limit above max is clamped to max (max <= 0 disables the clamp).
//
//	ParsePage("", "", 100)    // Page{}
//	ParsePage("500", "", 100) // Page{Limit: 100}
//	ParsePage("x", "", 100)   // ErrBadPage
func ParsePage(limit, offset string, max int) (Page, error) {
	l, err := nonNegative(limit)
	if err != nil {
		return Page{}, err
	}
	o, err := nonNegative(offset)
	if err != nil {
		return Page{}, err
	}
	if max > 0 && l > max {
		l = max
	}
	return Page{Limit: l, Offset: o}, nil
}

func nonNegative(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, ErrBadPage
	}
	return n, nil
}

// OptionalBool parses a tri-state query flag: "" is nil (no filter),
// anything strconv.ParseBool accepts is that value. ok is false for
// unparsable input.
func OptionalBool(s string) (v *bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, false
	}
	return &b, true
}
