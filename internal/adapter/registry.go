package adapter

// SessionRegistry remembers which sessions were created as children of another
// session. Membership is sticky: entries are never removed.
type SessionRegistry struct {
	children map[string]struct{}
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{children: make(map[string]struct{})}
}

// Register marks id as a child session. Empty ids are ignored.
func (r *SessionRegistry) Register(id string) {
	if id == "" {
		return
	}
	r.children[id] = struct{}{}
}

// Contains reports whether id was registered as a child.
func (r *SessionRegistry) Contains(id string) bool {
	if id == "" {
		return false
	}
	_, ok := r.children[id]
	return ok
}

// Len returns the number of registered child sessions.
func (r *SessionRegistry) Len() int {
	return len(r.children)
}

// observeCreated registers the session described by a session.created payload
// when it names a parent.
func (r *SessionRegistry) observeCreated(props map[string]any) {
	info := obj(props["info"])
	if info == nil || str(info["parentID"]) == "" {
		return
	}
	r.Register(str(info["id"]))
}
