package handler

import (
	"maps"
	"sync"
)

// threadStates keeps the client state of each AG-UI thread between runs.
type threadStates struct {
	mu     sync.Mutex
	states map[string]map[string]any
}

func newThreadStates() *threadStates {
	return &threadStates{states: make(map[string]map[string]any)}
}

// merge overlays incoming onto the stored state of threadID and returns a
// copy of the result. Incoming keys win.
func (s *threadStates) merge(threadID string, incoming map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := maps.Clone(s.states[threadID])
	if merged == nil {
		merged = make(map[string]any, len(incoming))
	}
	maps.Copy(merged, incoming)
	s.states[threadID] = merged

	return maps.Clone(merged)
}
