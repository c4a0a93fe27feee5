package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/render"
	"github.com/bobmcallan/stock-predictor/internal/session"
	"github.com/bobmcallan/stock-predictor/internal/tickers"
	"github.com/bobmcallan/stock-predictor/internal/view"
)

// Error codes returned alongside the view when an action is rejected.
const (
	CodeBusy               = "busy"
	CodeInputHidden        = "input_hidden"
	CodeGenerateNotAllowed = "generate_not_allowed"
	CodeInvalidRequest     = "invalid_request"
)

// SessionResponse is the body of every session API response.
type SessionResponse struct {
	Status     string        `json:"status"`
	SessionID  string        `json:"session_id"`
	View       view.Snapshot `json:"view"`
	ReportHTML string        `json:"report_html"`
	Error      string        `json:"error,omitempty"`
	Code       string        `json:"code,omitempty"`
}

// SessionHandler serves the JSON API that drives a page's view machine.
type SessionHandler struct {
	store     *session.Store
	generator view.Generator
	logger    *common.Logger
}

// NewSessionHandler creates a session API handler.
func NewSessionHandler(store *session.Store, generator view.Generator, logger *common.Logger) *SessionHandler {
	return &SessionHandler{
		store:     store,
		generator: generator,
		logger:    logger,
	}
}

// machine resolves the {id} path value, writing a 404 when it is unknown.
func (h *SessionHandler) machine(w http.ResponseWriter, r *http.Request) (string, *view.Machine, bool) {
	id := r.PathValue("id")
	m, ok := h.store.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "session not found")
		return "", nil, false
	}
	return id, m, true
}

// HandleGet handles GET /api/sessions/{id}.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.machine(w, r)
	if !ok {
		return
	}
	h.writeView(w, http.StatusOK, id, m.Snapshot(), nil, "")
}

// HandleSetInput handles PUT /api/sessions/{id}/input.
func (h *SessionHandler) HandleSetInput(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.machine(w, r)
	if !ok {
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		h.writeView(w, http.StatusBadRequest, id, m.Snapshot(), err, CodeInvalidRequest)
		return
	}

	h.writeView(w, http.StatusOK, id, m.SetInput(req.Value), nil, "")
}

// HandleAddTicker handles POST /api/sessions/{id}/tickers. A body with a
// ticker is a quick-add; an empty body submits the input buffer.
func (h *SessionHandler) HandleAddTicker(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.machine(w, r)
	if !ok {
		return
	}

	var req struct {
		Ticker *string `json:"ticker"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		h.writeView(w, http.StatusBadRequest, id, m.Snapshot(), err, CodeInvalidRequest)
		return
	}

	var snap view.Snapshot
	var err error
	if req.Ticker != nil {
		snap, err = m.QuickAdd(*req.Ticker)
	} else {
		snap, err = m.SubmitInput()
	}
	if err != nil {
		status, code := classifyAddError(err)
		h.writeView(w, status, id, snap, err, code)
		return
	}

	h.writeView(w, http.StatusOK, id, snap, nil, "")
}

func classifyAddError(err error) (int, string) {
	var verr *tickers.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Code
	case errors.Is(err, view.ErrBusy):
		return http.StatusConflict, CodeBusy
	case errors.Is(err, view.ErrInputHidden):
		return http.StatusConflict, CodeInputHidden
	default:
		return http.StatusInternalServerError, ""
	}
}

// HandleClearTickers handles DELETE /api/sessions/{id}/tickers.
func (h *SessionHandler) HandleClearTickers(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.machine(w, r)
	if !ok {
		return
	}
	h.writeView(w, http.StatusOK, id, m.ClearTickers(), nil, "")
}

// HandleGenerate handles POST /api/sessions/{id}/report. The request waits
// for the report; a client that goes away does not abort the generation.
func (h *SessionHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.machine(w, r)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	snap, err := m.Generate(ctx, h.generator)
	switch {
	case err == nil:
		h.writeView(w, http.StatusOK, id, snap, nil, "")
	case errors.Is(err, view.ErrGenerateNotAllowed):
		h.writeView(w, http.StatusConflict, id, snap, err, CodeGenerateNotAllowed)
	default:
		code := ""
		if snap.Failure != nil {
			code = string(snap.Failure.Kind)
		}
		h.logger.Error().Str("session_id", id).Err(err).Msg("report generation failed")
		h.writeView(w, http.StatusBadGateway, id, snap, errors.New("no content available, try again later"), code)
	}
}

// HandleClearReport handles DELETE /api/sessions/{id}/report.
func (h *SessionHandler) HandleClearReport(w http.ResponseWriter, r *http.Request) {
	id, m, ok := h.machine(w, r)
	if !ok {
		return
	}
	h.writeView(w, http.StatusOK, id, m.ClearReport(), nil, "")
}

func (h *SessionHandler) writeView(w http.ResponseWriter, status int, id string, snap view.Snapshot, err error, code string) {
	resp := SessionResponse{
		Status:    "ok",
		SessionID: id,
		View:      snap,
	}
	if err != nil {
		resp.Status = "error"
		resp.Error = err.Error()
		resp.Code = code
	}

	html, renderErr := render.Markdown(snap.Report)
	if renderErr != nil {
		h.logger.Warn().Str("session_id", id).Err(renderErr).Msg("failed to render report")
	}
	resp.ReportHTML = html

	WriteJSON(w, status, resp)
}
