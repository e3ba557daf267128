package harvest

import (
	"context"
	"sync"

	collyfetcher "github.com/JakeFAU/trademark-harvester/internal/fetcher/colly"
)

type stubResponse struct {
	resp collyfetcher.Response
	err  error
}

type stubGetter struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	fallback  stubResponse
	calls     int
}

func (s *stubGetter) Get(_ context.Context, rawURL string) (collyfetcher.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if r, ok := s.responses[rawURL]; ok {
		return r.resp, r.err
	}
	return s.fallback.resp, s.fallback.err
}

func (s *stubGetter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
