package relay

import "sync"

// Registry tracks live sessions by Twilio call SID. Entries exist strictly
// between call start and teardown; there is no ambient cross-request state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(callSid string, s *Session) {
	r.mu.Lock()
	r.sessions[callSid] = s
	r.mu.Unlock()
}

func (r *Registry) Get(callSid string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[callSid]
	r.mu.RUnlock()
	return s, ok
}

func (r *Registry) Remove(callSid string) {
	r.mu.Lock()
	delete(r.sessions, callSid)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
