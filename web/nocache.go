// Package web serves a folder holding a wasm build of the effect for local
// development. The folder is built outside of this module.
package web

import (
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// conditionalHeaders would let the file server answer 304 with a stale
// build still sitting in the browser cache.
var conditionalHeaders = []string{
	"If-Match",
	"If-Modified-Since",
	"If-None-Match",
	"If-Range",
	"If-Unmodified-Since",
}

// NoCache serves every request from h as if the browser had no copy.
// Rebuilt wasm binaries show up on the next reload that way.
func NoCache(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.Clone(r.Context())
		for _, k := range conditionalHeaders {
			r.Header.Del(k)
		}

		header := w.Header()
		header.Set("Cache-Control", "no-store, max-age=0")
		header.Set("Pragma", "no-cache")
		header.Set("Expires", "0")

		h.ServeHTTP(w, r)
	})
}

// NewServer returns a server for folder on port.
func NewServer(folder string, port uint, logger *zap.Logger) (*http.Server, error) {
	if port > math.MaxUint16 {
		return nil, fmt.Errorf("port %v is bigger than max port value", port)
	}
	if !filepath.IsLocal(folder) {
		return nil, fmt.Errorf("%s is not a local folder", folder)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%v", port),
		Handler:           NoCache(http.FileServer(http.Dir(folder))),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
	}, nil
}
