// Package health tracks session liveness for the status surfaces.
//
// The HTTP transport mounts /healthz and /readyz from here and the gRPC
// transport mirrors the same readiness into the standard health service.
// /healthz answers 200 while the process runs; /readyz answers 200 only
// while a session is accepting utterances.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
)

// Checker holds the ready flag and notifies watchers when it changes.
type Checker struct {
	ready atomic.Bool

	mu       sync.Mutex
	watchers []func(bool)
}

// New creates a checker that starts not ready.
func New() *Checker {
	return &Checker{}
}

// SetReady marks the session as ready (or not) and notifies watchers.
func (c *Checker) SetReady(ready bool) {
	if c.ready.Swap(ready) == ready {
		return
	}
	c.mu.Lock()
	watchers := append([]func(bool){}, c.watchers...)
	c.mu.Unlock()
	for _, fn := range watchers {
		fn(ready)
	}
}

// Ready reports the current flag.
func (c *Checker) Ready() bool {
	return c.ready.Load()
}

// Watch registers fn to be called on every change, and once now with the
// current value.
func (c *Checker) Watch(fn func(bool)) {
	c.mu.Lock()
	c.watchers = append(c.watchers, fn)
	c.mu.Unlock()
	fn(c.ready.Load())
}

// LiveHandler serves GET /healthz.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	}
}

// ReadyHandler serves GET /readyz.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, "not_ready")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
