package hr

import "slices"

// =============================================================================
// ROLES & ACTORS
// =============================================================================

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleHRManager Role = "hr_manager"
	RoleEmployee  Role = "employee"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleHRManager || r == RoleEmployee
}

// Actor is the authorization context of one call. It is always passed in
// explicitly; nothing in this module looks up a current session.
type Actor struct {
	Username   string
	Role       Role
	EmployeeID EmployeeID // linked employee, empty for accounts without one
}

// SystemActor is used for scheduled jobs.
var SystemActor = Actor{Username: "system", Role: RoleAdmin}

// Owns reports whether the actor is the employee identified by id.
func (a Actor) Owns(id EmployeeID) bool {
	return a.EmployeeID != "" && a.EmployeeID == id
}

// =============================================================================
// CAPABILITIES
// =============================================================================

// Capability is an operation together with the roles allowed to perform it.
type Capability struct {
	Name  string
	Roles []Role
}

var managers = []Role{RoleAdmin, RoleHRManager}

var (
	CapGeneratePayroll = Capability{Name: "generate payroll", Roles: managers}
	CapRunPayroll      = Capability{Name: "run batch payroll", Roles: managers}
	CapApproveLeave    = Capability{Name: "action leave requests", Roles: managers}
	CapManageTax       = Capability{Name: "manage tax rates", Roles: managers}
	CapManageBenefits  = Capability{Name: "manage benefits", Roles: managers}
	CapViewReports     = Capability{Name: "view reports", Roles: managers}
	CapManageDirectory = Capability{Name: "manage employees", Roles: managers}
	CapViewPayroll     = Capability{Name: "view payroll records", Roles: managers}
)

func (c Capability) Allows(a Actor) bool { return slices.Contains(c.Roles, a.Role) }

// Authorize is the single gate every mutating operation goes through.
func Authorize(a Actor, c Capability) error {
	if c.Allows(a) {
		return nil
	}
	return &PermissionError{Actor: a.Username, Role: a.Role, Operation: c.Name}
}

// AuthorizeSelf passes if the actor owns the employee record or holds c.
func AuthorizeSelf(a Actor, id EmployeeID, c Capability) error {
	if a.Owns(id) {
		return nil
	}
	return Authorize(a, c)
}
