// Package testutil provides testing utilities for the shop API and its cache.
package testutil

import (
	"net/http"
	"sync"
	"time"
)

// Response defines the behavior of a fake downstream endpoint.
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration

	// Gate, when set, blocks the handler until it is closed or the request is cancelled.
	Gate <-chan struct{}
}

// Downstream is a configurable http.Handler standing in for the application
// behind the cache middleware.
type Downstream struct {
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	requestCount      int
	lastRequestHeader http.Header
}

// NewDownstream creates a downstream with no routes; unknown routes answer 404.
func NewDownstream() *Downstream {
	return &Downstream{
		handlers: make(map[string]http.HandlerFunc),
	}
}

// ServeHTTP implements http.Handler.
func (d *Downstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.requestCount++
	d.lastRequestHeader = r.Header.Clone()
	handler, exists := d.handlers[route(r.Method, r.URL.Path)]
	d.mu.Unlock()

	if !exists {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

// SetHandler sets a custom handler for method and path.
func (d *Downstream) SetHandler(method, path string, handler http.HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[route(method, path)] = handler
}

// SetResponse configures a canned response for method and path.
func (d *Downstream) SetResponse(method, path string, resp Response) {
	d.SetHandler(method, path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		if resp.Gate != nil {
			select {
			case <-resp.Gate:
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns how many requests reached the downstream.
func (d *Downstream) RequestCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.requestCount
}

// LastRequestHeader returns the headers of the most recent request.
func (d *Downstream) LastRequestHeader() http.Header {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastRequestHeader
}

// Reset clears the tracking counters.
func (d *Downstream) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requestCount = 0
	d.lastRequestHeader = nil
}

func route(method, path string) string {
	return method + " " + path
}
