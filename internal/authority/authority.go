// Package authority declares the contract of the RBAC authority engine
// the dispatch layer delegates to. Implementations store the entities,
// enforce hierarchy and separation-of-duty rules, and perform credential
// verification; the dispatch layer only routes calls and reports results.
//
// Handles produced by the Factory are scoped to a single tenant and a
// single call: callers construct one per dispatched operation, attach the
// acting session with SetAdmin where required, invoke, and discard it.
// Every rule violation is reported as *rbac.SecurityError.
package authority

import (
	"context"

	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

// Factory constructs per-call, tenant-scoped authority handles.
type Factory interface {
	Admin(ctx context.Context, contextID string) (AdminManager, error)
	DelegatedAdmin(ctx context.Context, contextID string) (DelegatedAdminManager, error)
	Review(ctx context.Context, contextID string) (ReviewManager, error)
	Access(ctx context.Context, contextID string) (AccessManager, error)
}

// AdminManager performs administrative mutations in the regular RBAC
// permission space.
type AdminManager interface {
	// SetAdmin attaches the acting identity used to authorize the
	// subsequent privileged call.
	SetAdmin(session *rbac.Session)

	AddUser(ctx context.Context, u rbac.User) (rbac.User, error)
	UpdateUser(ctx context.Context, u rbac.User) (rbac.User, error)
	DeleteUser(ctx context.Context, u rbac.User) error
	DisableUser(ctx context.Context, u rbac.User) error
	ChangePassword(ctx context.Context, u rbac.User, newPassword string) error
	ResetPassword(ctx context.Context, u rbac.User, newPassword string) error
	LockUserAccount(ctx context.Context, u rbac.User) error
	UnlockUserAccount(ctx context.Context, u rbac.User) error

	AddRole(ctx context.Context, r rbac.Role) (rbac.Role, error)
	UpdateRole(ctx context.Context, r rbac.Role) (rbac.Role, error)
	DeleteRole(ctx context.Context, r rbac.Role) error

	AssignUser(ctx context.Context, ur rbac.UserRole) error
	DeassignUser(ctx context.Context, ur rbac.UserRole) error

	AddPermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error)
	UpdatePermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error)
	DeletePermission(ctx context.Context, p rbac.Permission) error
	AddPermObj(ctx context.Context, o rbac.PermObj) (rbac.PermObj, error)
	UpdatePermObj(ctx context.Context, o rbac.PermObj) (rbac.PermObj, error)
	DeletePermObj(ctx context.Context, o rbac.PermObj) error

	GrantPermission(ctx context.Context, p rbac.Permission, r rbac.Role) error
	RevokePermission(ctx context.Context, p rbac.Permission, r rbac.Role) error
	GrantPermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error
	RevokePermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error

	// Hierarchy edges are expressed as (parent, child): parent is the
	// superior role the child inherits from. AddDescendant creates child
	// as a new role under an existing parent; AddAscendant takes the
	// existing subordinate role first and the new superior role second.
	AddDescendant(ctx context.Context, parent, child rbac.Role) error
	AddAscendant(ctx context.Context, child, parent rbac.Role) error
	AddInheritance(ctx context.Context, parent, child rbac.Role) error
	DeleteInheritance(ctx context.Context, parent, child rbac.Role) error

	CreateSsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error)
	UpdateSsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error)
	DeleteSsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error)
	AddSsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error)
	DeleteSsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error)
	SetSsdSetCardinality(ctx context.Context, s rbac.SDSet, cardinality int) (rbac.SDSet, error)

	CreateDsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error)
	UpdateDsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error)
	DeleteDsdSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error)
	AddDsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error)
	DeleteDsdRoleMember(ctx context.Context, s rbac.SDSet, r rbac.Role) (rbac.SDSet, error)
	SetDsdSetCardinality(ctx context.Context, s rbac.SDSet, cardinality int) (rbac.SDSet, error)
}

// DelegatedAdminManager performs grants and revocations in the
// administrative permission space.
type DelegatedAdminManager interface {
	SetAdmin(session *rbac.Session)

	GrantPermission(ctx context.Context, p rbac.Permission, r rbac.AdminRole) error
	RevokePermission(ctx context.Context, p rbac.Permission, r rbac.AdminRole) error
	GrantPermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error
	RevokePermissionUser(ctx context.Context, p rbac.Permission, u rbac.User) error
}

// ReviewManager answers read, search, and enumeration queries.
type ReviewManager interface {
	SetAdmin(session *rbac.Session)

	ReadUser(ctx context.Context, u rbac.User) (rbac.User, error)
	FindUsers(ctx context.Context, u rbac.User) ([]rbac.User, error)
	FindUsersInUnit(ctx context.Context, ou rbac.OrgUnit) ([]rbac.User, error)
	FindUserIDs(ctx context.Context, u rbac.User, limit int) ([]string, error)

	ReadRole(ctx context.Context, r rbac.Role) (rbac.Role, error)
	FindRoles(ctx context.Context, searchValue string) ([]rbac.Role, error)
	FindRoleNames(ctx context.Context, searchValue string, limit int) ([]string, error)

	AssignedUsers(ctx context.Context, r rbac.Role) ([]rbac.User, error)
	AssignedUserIDs(ctx context.Context, r rbac.Role, limit int) ([]string, error)
	AssignedRoles(ctx context.Context, u rbac.User) ([]rbac.UserRole, error)
	AssignedRoleNames(ctx context.Context, userID string) ([]string, error)
	AuthorizedUsers(ctx context.Context, r rbac.Role) ([]rbac.User, error)
	AuthorizedRoles(ctx context.Context, u rbac.User) (rbac.StringSet, error)

	ReadPermission(ctx context.Context, p rbac.Permission) (rbac.Permission, error)
	FindPermissions(ctx context.Context, p rbac.Permission) ([]rbac.Permission, error)
	ReadPermObj(ctx context.Context, o rbac.PermObj) (rbac.PermObj, error)
	FindPermObjs(ctx context.Context, o rbac.PermObj) ([]rbac.PermObj, error)
	FindPermObjsInUnit(ctx context.Context, ou rbac.OrgUnit) ([]rbac.PermObj, error)

	PermissionRoles(ctx context.Context, p rbac.Permission) ([]string, error)
	AuthorizedPermissionRoles(ctx context.Context, p rbac.Permission) (rbac.StringSet, error)
	PermissionUsers(ctx context.Context, p rbac.Permission) ([]string, error)
	AuthorizedPermissionUsers(ctx context.Context, p rbac.Permission) (rbac.StringSet, error)
	UserPermissions(ctx context.Context, u rbac.User) ([]rbac.Permission, error)
	RolePermissions(ctx context.Context, r rbac.Role) ([]rbac.Permission, error)

	SsdRoleSets(ctx context.Context, r rbac.Role) ([]rbac.SDSet, error)
	SsdRoleSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error)
	SsdRoleSetRoles(ctx context.Context, s rbac.SDSet) (rbac.StringSet, error)
	SsdRoleSetCardinality(ctx context.Context, s rbac.SDSet) (int, error)
	SsdSets(ctx context.Context, s rbac.SDSet) ([]rbac.SDSet, error)

	DsdRoleSets(ctx context.Context, r rbac.Role) ([]rbac.SDSet, error)
	DsdRoleSet(ctx context.Context, s rbac.SDSet) (rbac.SDSet, error)
	DsdRoleSetRoles(ctx context.Context, s rbac.SDSet) (rbac.StringSet, error)
	DsdRoleSetCardinality(ctx context.Context, s rbac.SDSet) (int, error)
	DsdSets(ctx context.Context, s rbac.SDSet) ([]rbac.SDSet, error)
}

// AccessManager performs authentication, session management, and access
// checks. Operations taking a *rbac.Session may refresh its active-role
// state in place.
type AccessManager interface {
	Authenticate(ctx context.Context, userID, password string) (*rbac.Session, error)
	CreateSession(ctx context.Context, u rbac.User, trusted bool) (*rbac.Session, error)
	CheckAccess(ctx context.Context, s *rbac.Session, p rbac.Permission) (bool, error)
	SessionPermissions(ctx context.Context, s *rbac.Session) ([]rbac.Permission, error)
	SessionRoles(ctx context.Context, s *rbac.Session) ([]rbac.UserRole, error)
	AuthorizedRoles(ctx context.Context, s *rbac.Session) (rbac.StringSet, error)
	AddActiveRole(ctx context.Context, s *rbac.Session, ur rbac.UserRole) error
	DropActiveRole(ctx context.Context, s *rbac.Session, ur rbac.UserRole) error
	UserID(ctx context.Context, s *rbac.Session) (string, error)
	User(ctx context.Context, s *rbac.Session) (rbac.User, error)
}
