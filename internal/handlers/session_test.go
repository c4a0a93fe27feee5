package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/report"
	"github.com/bobmcallan/stock-predictor/internal/session"
	"github.com/bobmcallan/stock-predictor/internal/view"
)

type stubGenerator struct {
	mu      sync.Mutex
	content string
	err     error
	gate    chan struct{}
	calls   [][]string
}

func (g *stubGenerator) Generate(_ context.Context, tickers []string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, tickers)
	gate := g.gate
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return g.content, g.err
}

func newSessionTest(gen view.Generator) (*SessionHandler, *session.Store, *http.ServeMux) {
	logger := common.NewSilentLogger()
	store := session.NewStore(time.Minute, 100, view.Options{SurfaceErrors: true}, logger)
	h := NewSessionHandler(store, gen, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGet)
	mux.HandleFunc("PUT /api/sessions/{id}/input", h.HandleSetInput)
	mux.HandleFunc("POST /api/sessions/{id}/tickers", h.HandleAddTicker)
	mux.HandleFunc("DELETE /api/sessions/{id}/tickers", h.HandleClearTickers)
	mux.HandleFunc("POST /api/sessions/{id}/report", h.HandleGenerate)
	mux.HandleFunc("DELETE /api/sessions/{id}/report", h.HandleClearReport)
	return h, store, mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) (int, SessionResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	var resp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: failed to unmarshal response %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, resp
}

func TestSessionHandler_GetUnknown(t *testing.T) {
	_, _, mux := newSessionTest(&stubGenerator{})

	code, resp := do(t, mux, "GET", "/api/sessions/nope", "")
	if code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if resp.Status != "error" {
		t.Errorf("expected error status, got %s", resp.Status)
	}
}

func TestSessionHandler_GetSnapshot(t *testing.T) {
	_, store, mux := newSessionTest(&stubGenerator{})
	id, _ := store.Create()

	code, resp := do(t, mux, "GET", "/api/sessions/"+id, "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.SessionID != id || resp.View.Phase != view.PhaseIdle || !resp.View.InputShown {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSessionHandler_SubmitInput(t *testing.T) {
	_, store, mux := newSessionTest(&stubGenerator{})
	id, _ := store.Create()
	base := "/api/sessions/" + id

	if code, _ := do(t, mux, "PUT", base+"/input", `{"value":"nvda"}`); code != http.StatusOK {
		t.Fatalf("set input: expected 200, got %d", code)
	}

	code, resp := do(t, mux, "POST", base+"/tickers", `{}`)
	if code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", code)
	}
	if fmt.Sprint(resp.View.Tickers) != "[NVDA]" {
		t.Errorf("expected [NVDA], got %v", resp.View.Tickers)
	}
	if resp.View.Input != "" {
		t.Errorf("expected input cleared, got %q", resp.View.Input)
	}
}

func TestSessionHandler_SubmitEmptyBody(t *testing.T) {
	_, store, mux := newSessionTest(&stubGenerator{})
	id, m := store.Create()
	m.SetInput("aapl")

	code, resp := do(t, mux, "POST", "/api/sessions/"+id+"/tickers", "")
	if code != http.StatusOK || fmt.Sprint(resp.View.Tickers) != "[AAPL]" {
		t.Errorf("expected AAPL added, got %d %v", code, resp.View.Tickers)
	}
}

func TestSessionHandler_QuickAdd(t *testing.T) {
	_, store, mux := newSessionTest(&stubGenerator{})
	id, m := store.Create()
	m.SetInput("ms")

	code, resp := do(t, mux, "POST", "/api/sessions/"+id+"/tickers", `{"ticker":"TSLA"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if fmt.Sprint(resp.View.Tickers) != "[TSLA]" || resp.View.Input != "ms" {
		t.Errorf("unexpected view: %+v", resp.View)
	}
}

func TestSessionHandler_ValidationErrors(t *testing.T) {
	_, store, mux := newSessionTest(&stubGenerator{})
	id, _ := store.Create()
	base := "/api/sessions/" + id

	code, resp := do(t, mux, "POST", base+"/tickers", `{"ticker":"ab!"}`)
	if code != http.StatusUnprocessableEntity || resp.Code != "invalid_format" {
		t.Errorf("expected 422 invalid_format, got %d %q", code, resp.Code)
	}

	for _, s := range []string{"NVDA", "AAPL", "MSFT"} {
		do(t, mux, "POST", base+"/tickers", `{"ticker":"`+s+`"}`)
	}
	code, resp = do(t, mux, "POST", base+"/tickers", `{"ticker":"TSLA"}`)
	if code != http.StatusUnprocessableEntity || resp.Code != "capacity_exceeded" {
		t.Errorf("expected 422 capacity_exceeded, got %d %q", code, resp.Code)
	}
	if len(resp.View.Tickers) != 3 {
		t.Errorf("expected view with 3 tickers, got %v", resp.View.Tickers)
	}
}

func TestSessionHandler_BadJSON(t *testing.T) {
	_, store, mux := newSessionTest(&stubGenerator{})
	id, _ := store.Create()

	code, resp := do(t, mux, "POST", "/api/sessions/"+id+"/tickers", `{"ticker":`)
	if code != http.StatusBadRequest || resp.Code != CodeInvalidRequest {
		t.Errorf("expected 400 invalid_request, got %d %q", code, resp.Code)
	}
}

func TestSessionHandler_GenerateSuccess(t *testing.T) {
	gen := &stubGenerator{content: "**Buy NVDA, hold AAPL.**"}
	_, store, mux := newSessionTest(gen)
	id, m := store.Create()
	m.QuickAdd("NVDA")
	m.QuickAdd("AAPL")

	code, resp := do(t, mux, "POST", "/api/sessions/"+id+"/report", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.View.Phase != view.PhaseReportReady || resp.View.Report != "**Buy NVDA, hold AAPL.**" {
		t.Errorf("unexpected view: %+v", resp.View)
	}
	if !strings.Contains(resp.ReportHTML, "<strong>Buy NVDA, hold AAPL.</strong>") {
		t.Errorf("expected rendered report, got %q", resp.ReportHTML)
	}
	if len(gen.calls) != 1 || fmt.Sprint(gen.calls[0]) != "[NVDA AAPL]" {
		t.Errorf("unexpected generator calls: %v", gen.calls)
	}
}

func TestSessionHandler_GenerateWithoutTickers(t *testing.T) {
	gen := &stubGenerator{content: "x"}
	_, store, mux := newSessionTest(gen)
	id, _ := store.Create()

	code, resp := do(t, mux, "POST", "/api/sessions/"+id+"/report", "")
	if code != http.StatusConflict || resp.Code != CodeGenerateNotAllowed {
		t.Errorf("expected 409 generate_not_allowed, got %d %q", code, resp.Code)
	}
	if len(gen.calls) != 0 {
		t.Error("generator must not be called")
	}
}

func TestSessionHandler_GenerateFailure(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("%w: boom", report.ErrReportGenerationFailed)}
	_, store, mux := newSessionTest(gen)
	id, m := store.Create()
	m.QuickAdd("NVDA")

	code, resp := do(t, mux, "POST", "/api/sessions/"+id+"/report", "")
	if code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
	if resp.View.Phase != view.PhaseIdle || resp.View.Report != "" {
		t.Errorf("expected idle with empty report, got %+v", resp.View)
	}
	if resp.Code != string(view.FailureReportGeneration) {
		t.Errorf("expected failure code, got %q", resp.Code)
	}
	if resp.View.Failure == nil {
		t.Error("expected failure notice in view")
	}
}

func TestSessionHandler_ConcurrentGenerateRejected(t *testing.T) {
	gen := &stubGenerator{content: "r", gate: make(chan struct{})}
	_, store, mux := newSessionTest(gen)
	id, m := store.Create()
	m.QuickAdd("NVDA")

	done := make(chan int)
	go func() {
		req := httptest.NewRequest("POST", "/api/sessions/"+id+"/report", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		done <- w.Code
	}()

	deadline := time.Now().Add(time.Second)
	for m.Snapshot().Phase != view.PhaseLoading && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	code, resp := do(t, mux, "POST", "/api/sessions/"+id+"/report", "")
	if code != http.StatusConflict {
		t.Errorf("expected 409 while loading, got %d", code)
	}
	if resp.View.Phase != view.PhaseLoading {
		t.Errorf("expected loading phase, got %s", resp.View.Phase)
	}

	code, resp = do(t, mux, "POST", "/api/sessions/"+id+"/tickers", `{"ticker":"AAPL"}`)
	if code != http.StatusConflict || resp.Code != CodeBusy {
		t.Errorf("expected 409 busy, got %d %q", code, resp.Code)
	}

	close(gen.gate)
	if first := <-done; first != http.StatusOK {
		t.Errorf("expected first generate to succeed, got %d", first)
	}
}

func TestSessionHandler_GenerateClearedWhileLoading(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("%w: boom", report.ErrDataFetchFailed), gate: make(chan struct{})}
	_, store, mux := newSessionTest(gen)
	id, m := store.Create()
	m.QuickAdd("NVDA")

	type result struct {
		code int
		resp SessionResponse
	}
	done := make(chan result)
	go func() {
		req := httptest.NewRequest("POST", "/api/sessions/"+id+"/report", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		var resp SessionResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		done <- result{w.Code, resp}
	}()

	deadline := time.Now().Add(time.Second)
	for m.Snapshot().Phase != view.PhaseLoading && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if code, _ := do(t, mux, "DELETE", "/api/sessions/"+id+"/tickers", ""); code != http.StatusOK {
		t.Fatalf("clear tickers: expected 200, got %d", code)
	}
	close(gen.gate)

	got := <-done
	if got.code != http.StatusOK {
		t.Errorf("expected 200 for a discarded generation, got %d (%s)", got.code, got.resp.Error)
	}
	if got.resp.View.Phase != view.PhaseIdle || got.resp.View.Failure != nil {
		t.Errorf("expected clean idle view, got %+v", got.resp.View)
	}
}

func TestSessionHandler_ClearReportAndTickers(t *testing.T) {
	gen := &stubGenerator{content: "r"}
	_, store, mux := newSessionTest(gen)
	id, m := store.Create()
	base := "/api/sessions/" + id
	m.QuickAdd("NVDA")
	do(t, mux, "POST", base+"/report", "")

	code, resp := do(t, mux, "POST", base+"/tickers", `{"ticker":"AAPL"}`)
	if code != http.StatusConflict || resp.Code != CodeInputHidden {
		t.Errorf("expected 409 input_hidden while report shown, got %d %q", code, resp.Code)
	}

	code, resp = do(t, mux, "DELETE", base+"/report", "")
	if code != http.StatusOK || resp.View.Phase != view.PhaseIdle || len(resp.View.Tickers) != 1 {
		t.Errorf("clear report: unexpected %d %+v", code, resp.View)
	}
	if resp.ReportHTML != "" {
		t.Errorf("expected no report html, got %q", resp.ReportHTML)
	}

	code, resp = do(t, mux, "DELETE", base+"/tickers", "")
	if code != http.StatusOK || len(resp.View.Tickers) != 0 {
		t.Errorf("clear tickers: unexpected %d %+v", code, resp.View)
	}
}
