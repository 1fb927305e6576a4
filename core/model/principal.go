package model

// Role is the coarse authorization role attached to a principal by the
// external auth layer.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleOperator   Role = "operator"
	RoleDriver     Role = "driver"
)

// Principal is the verified identity attached to each incoming
// operation. The core never parses or issues tokens; it trusts this
// pair as an external fact.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
