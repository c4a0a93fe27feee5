package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// The page; every load starts a session
	mux.HandleFunc("/", s.app.PageHandler.ServeIndex)

	// Static files (CSS, JS)
	mux.HandleFunc("/static/", s.app.PageHandler.StaticFileHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)

	// Session API, one resource per user action
	sh := s.app.SessionHandler
	mux.HandleFunc("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"GET": sh.HandleGet})
	})
	mux.HandleFunc("/api/sessions/{id}/input", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"PUT": sh.HandleSetInput})
	})
	mux.HandleFunc("/api/sessions/{id}/tickers", func(w http.ResponseWriter, r *http.Request) {
		RouteResource(w, r, nil, sh.HandleAddTicker, sh.HandleClearTickers)
	})
	mux.HandleFunc("/api/sessions/{id}/report", func(w http.ResponseWriter, r *http.Request) {
		RouteResource(w, r, nil, sh.HandleGenerate, sh.HandleClearReport)
	})

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
