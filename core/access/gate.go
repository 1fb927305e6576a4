// Package access maps an authenticated principal and role to the set
// of permitted operations. The capability table is the single place
// role checks live; callers never branch on roles inline.
package access

import (
	"github.com/medrota/dispatch/core/fault"
	"github.com/medrota/dispatch/core/model"
)

// Entity names an addressable record type.
type Entity string

const (
	EntityVehicle Entity = "vehicle"
	EntityDriver  Entity = "driver"
	EntityRequest Entity = "request"
	EntityAlert   Entity = "alert"
)

// Action names an operation class on an entity.
type Action string

const (
	ActionCreate     Action = "create"
	ActionRead       Action = "read"
	ActionUpdate     Action = "update"
	ActionTransition Action = "transition"
)

// capability is one permitted (entity, action) cell. ownOnly limits
// the permission to records the principal owns.
type capability struct {
	ownOnly bool
}

var allActions = map[Action]capability{
	ActionCreate:     {},
	ActionRead:       {},
	ActionUpdate:     {},
	ActionTransition: {},
}

var readOnly = map[Action]capability{
	ActionRead: {},
}

// table is the role capability matrix. Adjust per deployment.
var table = map[model.Role]map[Entity]map[Action]capability{
	model.RoleAdmin: {
		EntityVehicle: allActions,
		EntityDriver:  allActions,
		EntityRequest: allActions,
		EntityAlert:   readOnly,
	},
	model.RoleSupervisor: {
		EntityVehicle: readOnly,
		EntityDriver:  readOnly,
		EntityRequest: allActions,
		EntityAlert:   readOnly,
	},
	model.RoleOperator: {
		EntityRequest: {
			ActionCreate: {},
			ActionRead:   {},
		},
	},
	model.RoleDriver: {
		EntityRequest: {
			ActionRead: {ownOnly: true},
		},
		EntityDriver: {
			ActionUpdate: {ownOnly: true},
		},
	},
}

// Gate evaluates the capability table.
type Gate struct{}

// New creates a gate.
func New() *Gate { return &Gate{} }

// Authorize returns nil when the principal may perform act on ent.
// ownerID is the id of the principal owning the addressed record; it
// is only consulted for own-scoped capabilities and may be empty for
// creations and unscoped reads. Denials carry no detail about the
// addressed record.
func (g *Gate) Authorize(p model.Principal, act Action, ent Entity, ownerID string) error {
	c, ok := table[p.Role][ent][act]
	if !ok {
		return fault.Forbiddenf("operation not permitted")
	}
	if c.ownOnly && ownerID != p.ID {
		return fault.Forbiddenf("operation not permitted")
	}
	return nil
}

// Scope is the visibility filter for a principal's reads.
type Scope struct {
	// DriverID restricts request reads to assignments of this driver.
	// Empty means unrestricted.
	DriverID string
}

// Scope returns the read filter the principal is limited to.
func (g *Gate) Scope(p model.Principal) Scope {
	if p.Role == model.RoleDriver {
		return Scope{DriverID: p.ID}
	}
	return Scope{}
}

// Visible reports whether the request is inside the scope.
func (s Scope) Visible(r model.Request) bool {
	return s.DriverID == "" || r.DriverID == s.DriverID
}
