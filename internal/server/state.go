package server

// ConnectionState is the per-connection record the executor mutates across
// calls: just the auth flag, per the data model.
type ConnectionState struct {
	authenticated bool
}

// NewConnectionState starts authenticated iff no password is configured.
func NewConnectionState(passwordConfigured bool) *ConnectionState {
	return &ConnectionState{authenticated: !passwordConfigured}
}
