// Package tickers validates and collects the ticker symbols a report is generated for.
package tickers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxTickers is the capacity of a Set.
const MaxTickers = 3

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)

// Validation error codes, stable for JSON clients.
const (
	CodeCapacityExceeded = "capacity_exceeded"
	CodeInvalidFormat    = "invalid_format"
)

var (
	ErrCapacityExceeded = errors.New("you can add up to 3 tickers")
	ErrInvalidFormat    = errors.New("a ticker is 1 to 5 letters or digits")
)

// ValidationError reports why a symbol was not added.
type ValidationError struct {
	Code   string
	Ticker string
	err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Ticker, e.err.Error())
}

func (e *ValidationError) Unwrap() error { return e.err }

// Outcome describes an Add that did not fail.
type Outcome int

const (
	OutcomeEmpty     Outcome = iota // blank input, nothing to do
	OutcomeAdded                    // appended to the set
	OutcomeDuplicate                // already present, ignored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "empty"
	}
}

// Normalize trims and upper-cases raw input.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Valid reports whether an already normalized symbol is well formed.
func Valid(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

// Set is an ordered, duplicate-free list of at most MaxTickers symbols.
// The zero value is an empty set. A Set is not safe for concurrent use.
type Set struct {
	items []string
}

// New returns an empty set.
func New() *Set {
	return &Set{}
}

// Add normalizes raw and appends it. Checks run in order: capacity,
// duplicate (silently ignored), format.
func (s *Set) Add(raw string) (Outcome, error) {
	symbol := Normalize(raw)
	if symbol == "" {
		return OutcomeEmpty, nil
	}
	if len(s.items) >= MaxTickers {
		return OutcomeEmpty, &ValidationError{Code: CodeCapacityExceeded, Ticker: symbol, err: ErrCapacityExceeded}
	}
	if s.Contains(symbol) {
		return OutcomeDuplicate, nil
	}
	if !Valid(symbol) {
		return OutcomeEmpty, &ValidationError{Code: CodeInvalidFormat, Ticker: symbol, err: ErrInvalidFormat}
	}
	s.items = append(s.items, symbol)
	return OutcomeAdded, nil
}

// Contains reports whether symbol is in the set, ignoring case.
func (s *Set) Contains(symbol string) bool {
	symbol = Normalize(symbol)
	for _, t := range s.items {
		if t == symbol {
			return true
		}
	}
	return false
}

// Clear empties the set.
func (s *Set) Clear() {
	s.items = nil
}

// Len returns the number of symbols.
func (s *Set) Len() int {
	return len(s.items)
}

// Full reports whether the set is at capacity.
func (s *Set) Full() bool {
	return len(s.items) >= MaxTickers
}

// Symbols returns a copy of the symbols in insertion order.
func (s *Set) Symbols() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// FromSymbols builds a set by adding each symbol through Add, stopping at
// the first validation error.
func FromSymbols(symbols []string) (*Set, error) {
	s := New()
	for _, sym := range symbols {
		if _, err := s.Add(sym); err != nil {
			return s, err
		}
	}
	return s, nil
}
