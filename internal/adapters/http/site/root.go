// Package site serves the embedded operator landing page.
package site

import (
	"context"
	"net/http"
)

// Router is the subset of chi.Router used to register routes.
type Router interface {
	Get(pattern string, h http.HandlerFunc)
}

// Register attaches the landing page at / to r.
func Register(_ context.Context, r Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/", NewRootHandler().HandleRoot)
}

// RootHandler serves the embedded index page.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	h.files.ServeHTTP(w, r)
}
