// Package site serves the embedded community board page.
package site

import (
	"context"
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed static/*
var staticFS embed.FS

// FS returns the embedded page assets.
func FS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}

// Register attaches the board page at / and its assets under /assets/.
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	assets := FS()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFileFS(w, req, assets, "index.html")
	})
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServerFS(assets)))
}
