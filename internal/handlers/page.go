package handlers

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/config"
	"github.com/bobmcallan/stock-predictor/internal/session"
	"github.com/bobmcallan/stock-predictor/internal/tickers"
	"github.com/bobmcallan/stock-predictor/internal/view"
)

// PageHandler serves the single page and its static assets.
type PageHandler struct {
	logger    *common.Logger
	templates *template.Template
	store     *session.Store
	quickAdd  []string
}

// PageData is passed to index.html.
type PageData struct {
	SessionID  string
	View       view.Snapshot
	QuickAdd   []string
	MaxTickers int
	Version    string
}

// NewPageHandler creates a page handler that loads templates from the pages directory.
func NewPageHandler(logger *common.Logger, store *session.Store, quickAdd []string) *PageHandler {
	pagesDir := FindPagesDir()

	templates := template.Must(template.ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))

	return &PageHandler{
		logger:    logger,
		templates: templates,
		store:     store,
		quickAdd:  quickAdd,
	}
}

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
		".",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// ServeIndex handles GET /. Every load starts a new session, so a reload
// always shows an empty ticker list.
func (h *PageHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !RequireMethod(w, r, "GET") {
		return
	}

	id, m := h.store.Create()
	data := PageData{
		SessionID:  id,
		View:       m.Snapshot(),
		QuickAdd:   h.quickAdd,
		MaxTickers: tickers.MaxTickers,
		Version:    config.GetVersion(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error().Str("template", "index.html").Err(err).Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.logger.Debug().Str("session_id", id).Msg("session started")
}

// StaticFileHandler serves static files (CSS, JS, images).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	pagesDir := FindPagesDir()
	staticDir := filepath.Join(pagesDir, "static")

	// Remove /static/ prefix from URL path
	path := r.URL.Path[len("/static/"):]
	fullPath := filepath.Join(staticDir, path)

	// Security: prevent directory traversal
	absStaticDir, _ := filepath.Abs(staticDir)
	absFullPath, _ := filepath.Abs(fullPath)
	if len(absFullPath) < len(absStaticDir) || absFullPath[:len(absStaticDir)] != absStaticDir {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, fullPath)
}
