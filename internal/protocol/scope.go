package protocol

// ScopeKind selects the recipient set for one outbound frame.
type ScopeKind int

const (
	// ScopeAll delivers to every open connection, sender included.
	ScopeAll ScopeKind = iota
	// ScopeAllExcept delivers to every open connection but one.
	ScopeAllExcept
	// ScopeOnly delivers to a single connection.
	ScopeOnly
)

// Scope is the explicit broadcast target of a directive. Handlers return
// scopes instead of writing to the transport, so routing decisions stay
// testable without sockets.
type Scope struct {
	Kind   ScopeKind
	ConnID string // the excluded or sole recipient, depending on Kind
}

func All() Scope { return Scope{Kind: ScopeAll} }

func AllExcept(connID string) Scope { return Scope{Kind: ScopeAllExcept, ConnID: connID} }

func Only(connID string) Scope { return Scope{Kind: ScopeOnly, ConnID: connID} }

// Directive pairs one outbound frame with its recipient scope. The hub
// resolves scopes against the registry and performs the actual writes.
type Directive struct {
	Scope Scope
	Frame interface{}
}
