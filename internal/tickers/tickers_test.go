package tickers

import (
	"errors"
	"strings"
	"testing"
)

func TestAdd_NormalizesCase(t *testing.T) {
	s := New()

	outcome, err := s.Add("nvda")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if outcome != OutcomeAdded {
		t.Errorf("expected OutcomeAdded, got %s", outcome)
	}

	outcome, err = s.Add("NVDA")
	if err != nil {
		t.Fatalf("second Add failed: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Errorf("expected OutcomeDuplicate, got %s", outcome)
	}

	if got := s.Symbols(); len(got) != 1 || got[0] != "NVDA" {
		t.Errorf("expected [NVDA], got %v", got)
	}
}

func TestAdd_TrimsWhitespace(t *testing.T) {
	s := New()
	if _, err := s.Add("  aapl \t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := s.Symbols(); got[0] != "AAPL" {
		t.Errorf("expected AAPL, got %s", got[0])
	}
}

func TestAdd_EmptyIsNoOp(t *testing.T) {
	s := New()
	for _, raw := range []string{"", "   ", "\n"} {
		outcome, err := s.Add(raw)
		if err != nil {
			t.Errorf("Add(%q) returned error %v", raw, err)
		}
		if outcome != OutcomeEmpty {
			t.Errorf("Add(%q) expected OutcomeEmpty, got %s", raw, outcome)
		}
	}
	if s.Len() != 0 {
		t.Errorf("expected empty set, got %v", s.Symbols())
	}
}

func TestAdd_CapacityExceeded(t *testing.T) {
	s := New()
	for _, sym := range []string{"NVDA", "AAPL", "MSFT"} {
		if _, err := s.Add(sym); err != nil {
			t.Fatalf("Add(%s) failed: %v", sym, err)
		}
	}

	_, err := s.Add("TSLA")
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != CodeCapacityExceeded {
		t.Errorf("expected ValidationError with capacity code, got %#v", err)
	}
	if got := strings.Join(s.Symbols(), ","); got != "NVDA,AAPL,MSFT" {
		t.Errorf("set changed: %s", got)
	}
}

func TestAdd_CapacityCheckedBeforeDuplicate(t *testing.T) {
	s := New()
	for _, sym := range []string{"NVDA", "AAPL", "MSFT"} {
		s.Add(sym)
	}

	_, err := s.Add("nvda")
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("expected capacity error on full set even for a duplicate, got %v", err)
	}
}

func TestAdd_InvalidFormat(t *testing.T) {
	for _, raw := range []string{"123456", "ab!", "BRK.B", "A B", "ÅÄÖ"} {
		s := New()
		_, err := s.Add(raw)
		if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Add(%q) expected ErrInvalidFormat, got %v", raw, err)
		}
		if s.Len() != 0 {
			t.Errorf("Add(%q) changed the set: %v", raw, s.Symbols())
		}
	}
}

func TestAdd_ValidSymbols(t *testing.T) {
	for _, raw := range []string{"A", "f", "12345", "goog1"} {
		s := New()
		outcome, err := s.Add(raw)
		if err != nil || outcome != OutcomeAdded {
			t.Errorf("Add(%q) = %s, %v; want added", raw, outcome, err)
		}
	}
}

func TestAdd_NeverExceedsMax(t *testing.T) {
	s := New()
	for _, sym := range []string{"A", "B", "C", "D", "E", "F"} {
		s.Add(sym)
		if s.Len() > MaxTickers {
			t.Fatalf("set grew to %d", s.Len())
		}
	}
	if !s.Full() {
		t.Error("expected set to be full")
	}
}

func TestAdd_PreservesInsertionOrder(t *testing.T) {
	s := New()
	for _, sym := range []string{"msft", "aapl", "nvda"} {
		s.Add(sym)
	}
	if got := strings.Join(s.Symbols(), ","); got != "MSFT,AAPL,NVDA" {
		t.Errorf("expected MSFT,AAPL,NVDA, got %s", got)
	}
}

func TestClear_AlwaysEmpties(t *testing.T) {
	s := New()
	s.Clear()
	if s.Len() != 0 {
		t.Error("clear on empty set should stay empty")
	}

	s.Add("NVDA")
	s.Add("AAPL")
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("expected empty set, got %v", s.Symbols())
	}

	s.Clear()
	if s.Len() != 0 {
		t.Error("second clear should be a no-op")
	}
}

func TestSymbols_ReturnsCopy(t *testing.T) {
	s := New()
	s.Add("NVDA")
	got := s.Symbols()
	got[0] = "XXXX"
	if s.Symbols()[0] != "NVDA" {
		t.Error("Symbols must return a copy")
	}
}

func TestFromSymbols(t *testing.T) {
	s, err := FromSymbols([]string{"nvda", "AAPL", "nvda"})
	if err != nil {
		t.Fatalf("FromSymbols failed: %v", err)
	}
	if got := strings.Join(s.Symbols(), ","); got != "NVDA,AAPL" {
		t.Errorf("expected NVDA,AAPL, got %s", got)
	}

	_, err = FromSymbols([]string{"NVDA", "toolong"})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	s := New()
	_, err := s.Add("ab!")
	if err == nil || !strings.Contains(err.Error(), "AB!") {
		t.Errorf("expected normalized ticker in message, got %v", err)
	}
}
