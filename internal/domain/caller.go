package domain

// ─── Caller Context ─────────────────────────────────────────────────────────
// Role-based access maps to an explicit capability check passed into each
// operation rather than inheritance: every engine entry point receives a
// Caller carrying verified role claims.

// Role is a verified role claim attached to a caller.
type Role string

const (
	RoleRegistrar Role = "registrar"
	RoleIssuer    Role = "issuer"
	RoleInvestor  Role = "investor"
	RoleOperator  Role = "operator"
	RoleAdmin     Role = "admin"
)

// Caller identifies the authenticated originator of an engine call.
type Caller struct {
	Addr string `json:"addr"`
	Role Role   `json:"role"`
}

// Is reports whether the caller holds any of the given roles.
// Admin implies every role.
func (c Caller) Is(roles ...Role) bool {
	if c.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
