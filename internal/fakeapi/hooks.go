package fakeapi

import (
	"net/http"
	"sync"
	"time"
)

type forcedResponse struct {
	status int
	body   string
}

// hooks let tests observe and perturb routes. Routes are identified by their
// registered pattern, e.g. "POST /api/auth/refresh".
type hooks struct {
	lock     sync.Mutex
	calls    map[string]int
	failures map[string][]forcedResponse
	delays   map[string]time.Duration
}

func newHooks() *hooks {
	return &hooks{
		calls:    make(map[string]int),
		failures: make(map[string][]forcedResponse),
		delays:   make(map[string]time.Duration),
	}
}

func (h *hooks) middleware(pattern string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			h.lock.Lock()
			h.calls[pattern]++
			delay := h.delays[pattern]
			var forced *forcedResponse
			if queue := h.failures[pattern]; len(queue) > 0 {
				forced = &queue[0]
				h.failures[pattern] = queue[1:]
			}
			h.lock.Unlock()

			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}

			if forced != nil {
				if forced.body != "" {
					w.Header().Set("Content-Type", contentTypeJSON)
				}
				w.WriteHeader(forced.status)
				_, _ = w.Write([]byte(forced.body))
				return
			}
			next(w, r)
		}
	}
}

// Calls returns how many requests reached the route.
func (s *Server) Calls(pattern string) int {
	s.hooks.lock.Lock()
	defer s.hooks.lock.Unlock()
	return s.hooks.calls[pattern]
}

// FailNext makes the next request to the route answer with status and the
// raw body instead of running the handler. Calls queue up.
func (s *Server) FailNext(pattern string, status int, body string) {
	s.hooks.lock.Lock()
	defer s.hooks.lock.Unlock()
	s.hooks.failures[pattern] = append(s.hooks.failures[pattern], forcedResponse{status: status, body: body})
}

// Delay holds every request to the route for d before handling it.
func (s *Server) Delay(pattern string, d time.Duration) {
	s.hooks.lock.Lock()
	defer s.hooks.lock.Unlock()
	s.hooks.delays[pattern] = d
}
