package handlers

import "net/http"

// Routes registers the API on a new mux and wraps it in the standard
// middleware chain.
func (h *Handler) Routes(origins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /upload/{$}", h.Upload)
	mux.HandleFunc("POST /upload", h.Upload)
	mux.HandleFunc("GET /history", h.History)

	return Chain(mux, RequestLogger, Recover, EnableCORS(origins))
}

// Endpoints describes the routes for startup logging.
var Endpoints = []struct {
	Method, Path, Description string
}{
	{"GET", "/", "Service banner"},
	{"GET", "/health", "Health check"},
	{"POST", "/upload/", "Classify an uploaded image (multipart field 'file')"},
	{"GET", "/history", "Recent predictions"},
}
