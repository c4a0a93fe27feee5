package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/stock-predictor/internal/common"
)

func testWindow() Window {
	return Window{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestPolygonFetch_Success(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apiKey")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ticker":"NVDA","results":[{"c":1}]}`))
	}))
	defer srv.Close()

	p := NewPolygonProvider(srv.URL, "secret", 5*time.Second, common.NewSilentLogger())
	body, ok, err := p.Fetch(context.Background(), "NVDA", testWindow())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !ok {
		t.Fatal("expected data to be present")
	}
	if body != `{"ticker":"NVDA","results":[{"c":1}]}` {
		t.Errorf("body not returned verbatim: %s", body)
	}
	if gotPath != "/v2/aggs/ticker/NVDA/range/1/day/2024-01-01/2024-01-05" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("expected apiKey=secret, got %q", gotKey)
	}
}

func TestPolygonFetch_NonSuccessIsAbsent(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusTooManyRequests, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"status":"ERROR"}`))
		}))

		p := NewPolygonProvider(srv.URL, "k", 5*time.Second, common.NewSilentLogger())
		body, ok, err := p.Fetch(context.Background(), "ZZZZ", testWindow())
		if err != nil {
			t.Errorf("status %d: expected no error, got %v", status, err)
		}
		if ok || body != "" {
			t.Errorf("status %d: expected absence, got ok=%v body=%q", status, ok, body)
		}
		srv.Close()
	}
}

func TestPolygonFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewPolygonProvider(url, "k", time.Second, common.NewSilentLogger())
	_, ok, err := p.Fetch(context.Background(), "NVDA", testWindow())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if ok {
		t.Error("expected ok=false on error")
	}
}

func TestPolygonFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPolygonProvider(srv.URL, "k", 5*time.Second, common.NewSilentLogger())
	_, _, err := p.Fetch(ctx, "NVDA", testWindow())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
