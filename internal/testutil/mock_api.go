// Package testutil provides testing utilities for placeholder-export.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockAPI is a configurable mock of the upstream REST API for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	PathCounts   map[string]int
}

// NewMockAPI creates a new mock API server. Paths without a configured
// handler respond with an empty JSON array.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[]")
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and handlers.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.handlers = make(map[string]func(w http.ResponseWriter, r *http.Request))
}

// Requests returns the request count for a path.
func (m *MockAPI) Requests(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		w.Header().Set("Content-Type", "application/json")
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		fmt.Fprint(w, resp.Body)
	})
}

// SetJSON configures a 200 JSON response for a path.
func (m *MockAPI) SetJSON(path, body string) {
	m.SetResponse(path, MockResponse{StatusCode: http.StatusOK, Body: body})
}

// FailTimes configures a path to respond with failStatus for the first
// `times` requests, then with the given JSON body. Useful for retry tests.
func (m *MockAPI) FailTimes(path string, times, failStatus int, body string) {
	var mu sync.Mutex
	failures := 0

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		shouldFail := failures < times
		if shouldFail {
			failures++
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if shouldFail {
			w.WriteHeader(failStatus)
			fmt.Fprint(w, `{"error":"injected failure"}`)
			return
		}
		fmt.Fprint(w, body)
	})
}

// PostsHandler returns a handler serving per-user post collections keyed by
// the userId query parameter. Unknown users get an empty array.
func PostsHandler(byUser map[string]string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if body, ok := byUser[r.URL.Query().Get("userId")]; ok {
			fmt.Fprint(w, body)
			return
		}
		fmt.Fprint(w, "[]")
	}
}

// CommentsHandler returns a handler serving comments generated per postId
// query parameter.
func CommentsHandler(forPost func(postID string) string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, forPost(r.URL.Query().Get("postId")))
	}
}
